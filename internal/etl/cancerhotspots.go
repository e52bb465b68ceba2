package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/datasource/cancerhotspots"
	"github.com/cancervariants/evidence-normalization/internal/fetch"
	"github.com/cancervariants/evidence-normalization/internal/normalize"
	"github.com/cancervariants/evidence-normalization/internal/tabular"
)

// DefaultHotspotsURL is the upstream Cancer Hotspots v2 workbook.
const DefaultHotspotsURL = "https://www.cancerhotspots.org/files/hotspots_v2.xls"

// CancerHotspots transforms the upstream hotspots workbook into the JSON
// artifact keyed by normalized variant id that the query path loads at
// startup.
type CancerHotspots struct {
	dataDir    string
	dataURL    string
	normalizer normalize.Normalizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewCancerHotspots builds the transform. Source and output files live under
// dataDir; variation descriptions are resolved to ids through n.
func NewCancerHotspots(dataDir string, n normalize.Normalizer) *CancerHotspots {
	return &CancerHotspots{
		dataDir:    dataDir,
		dataURL:    DefaultHotspotsURL,
		normalizer: n,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
}

// SetDataURL overrides the workbook source, e.g. for a mirrored copy.
func (t *CancerHotspots) SetDataURL(url string) {
	t.dataURL = url
}

// SetLogger sets the logger for per-row skip reporting.
func (t *CancerHotspots) SetLogger(l *zap.Logger) {
	t.logger = l
}

// Run downloads the workbook if absent, extracts every SNV and indel hotspot
// row, resolves each to a normalized variant id, and writes the dated JSON
// artifact. It returns the artifact path. Rows whose variation cannot be
// normalized are logged and skipped; a row violating the workbook's format
// contract aborts the run.
func (t *CancerHotspots) Run(ctx context.Context) (string, error) {
	workbook := filepath.Join(t.dataDir, filepath.Base(t.dataURL))
	if _, err := os.Stat(workbook); errors.Is(err, os.ErrNotExist) {
		t.logger.Info("downloading cancer hotspots workbook", zap.String("url", t.dataURL))
		if err := fetch.File(ctx, t.dataURL, workbook); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	} else if err != nil {
		return "", fmt.Errorf("stat %s: %w", workbook, err)
	}

	hotspots := make(map[string]cancerhotspots.Hotspot)
	for _, sheet := range []struct {
		name string
		snv  bool
	}{
		{cancerhotspots.SheetSNV, true},
		{cancerhotspots.SheetIndel, false},
	} {
		resource, err := tabular.OpenSheet(workbook, sheet.name)
		if err != nil {
			return "", err
		}
		err = t.transformSheet(ctx, resource, sheet.snv, hotspots)
		resource.Close()
		if err != nil {
			return "", err
		}
	}

	out := filepath.Join(t.dataDir,
		fmt.Sprintf("cancer_hotspots_%s.json", t.now().UTC().Format("20060102")))
	blob, err := json.MarshalIndent(hotspots, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode hotspots: %w", err)
	}
	if err := os.WriteFile(out, blob, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	t.logger.Info("wrote cancer hotspots artifact",
		zap.String("path", out), zap.Int("variants", len(hotspots)))
	return out, nil
}

func (t *CancerHotspots) transformSheet(ctx context.Context, resource tabular.Resource, snv bool, hotspots map[string]cancerhotspots.Hotspot) error {
	return resource.Iterate(func(row tabular.Row) (bool, error) {
		hotspot, err := cancerhotspots.ExtractHotspot(row, snv)
		if err != nil {
			return false, err
		}
		vrsID, err := t.normalizer.Normalize(ctx, hotspot.Variation)
		if err != nil {
			t.logger.Warn("skipping hotspot row, variation did not normalize",
				zap.String("variation", hotspot.Variation), zap.Error(err))
			return false, nil
		}
		if _, ok := hotspots[vrsID]; ok {
			t.logger.Debug("duplicate normalized variant id, keeping latest row",
				zap.String("vrs_identifier", vrsID), zap.String("variation", hotspot.Variation))
		}
		hotspots[vrsID] = hotspot
		return false, nil
	})
}
