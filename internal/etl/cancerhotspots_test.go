package etl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cancervariants/evidence-normalization/internal/datasource/cancerhotspots"
)

// mapNormalizer resolves variation descriptions from a fixed table.
type mapNormalizer struct {
	ids map[string]string
}

func (n *mapNormalizer) Normalize(_ context.Context, variation string) (string, error) {
	id, ok := n.ids[variation]
	if !ok {
		return "", fmt.Errorf("no normalization for %q", variation)
	}
	return id, nil
}

func writeHotspotsWorkbook(t *testing.T, path string, snvRows, indelRows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", cancerhotspots.SheetSNV))
	_, err := f.NewSheet(cancerhotspots.SheetIndel)
	require.NoError(t, err)

	snvHeader := []any{"Hugo_Symbol", "ref", "Amino_Acid_Position", "Variant_Amino_Acid", "qvalue", "Mutation_Count"}
	indelHeader := []any{"Hugo_Symbol", "Amino_Acid_Position", "Variant_Amino_Acid", "qvalue", "Mutation_Count"}
	for i, row := range append([][]any{snvHeader}, snvRows...) {
		require.NoError(t, f.SetSheetRow(cancerhotspots.SheetSNV, fmt.Sprintf("A%d", i+1), &row))
	}
	for i, row := range append([][]any{indelHeader}, indelRows...) {
		require.NoError(t, f.SetSheetRow(cancerhotspots.SheetIndel, fmt.Sprintf("A%d", i+1), &row))
	}
	// The upstream artifact keeps a legacy .xls name, which SaveAs refuses;
	// write the workbook bytes directly.
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestCancerHotspots_Run(t *testing.T) {
	dir := t.TempDir()
	writeHotspotsWorkbook(t, filepath.Join(dir, "hotspots_v2.xls"),
		[][]any{
			{"braf", "V", "600", "E:41", "0.0", "45"},
			{"KRAS", "G", "12", "D:6", "0.0001", "9"},
			{"TP53", "R", "175", "H:3", "0.002", "5"},
		},
		[][]any{
			{"BRAF", "486-490", "N486_P490del:3", "0.01", "3"},
		},
	)

	// The TP53 row is intentionally absent: it must be skipped, not fatal.
	normalizer := &mapNormalizer{ids: map[string]string{
		"braf V600E":        "ga4gh:VA.snv-braf",
		"KRAS G12D":         "ga4gh:VA.snv-kras",
		"BRAF N486_P490del": "ga4gh:VA.indel-braf",
	}}

	transform := NewCancerHotspots(dir, normalizer)
	transform.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	out, err := transform.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cancer_hotspots_20260801.json"), out)

	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	var hotspots map[string]cancerhotspots.Hotspot
	require.NoError(t, json.Unmarshal(blob, &hotspots))

	require.Len(t, hotspots, 3)
	assert.Equal(t, cancerhotspots.Hotspot{
		Variation:         "braf V600E",
		Codon:             "V600",
		Mutation:          "V600E",
		QValue:            0,
		Observations:      41,
		TotalObservations: 45,
	}, hotspots["ga4gh:VA.snv-braf"])
	assert.Equal(t, "N486_P490del", hotspots["ga4gh:VA.indel-braf"].Mutation)
	assert.Equal(t, "486-490", hotspots["ga4gh:VA.indel-braf"].Codon)
}

func TestCancerHotspots_DuplicateIDKeepsLatestRow(t *testing.T) {
	dir := t.TempDir()
	writeHotspotsWorkbook(t, filepath.Join(dir, "hotspots_v2.xls"),
		[][]any{
			{"BRAF", "V", "600", "E:41", "0.0", "45"},
			{"BRAF", "V", "600", "E:50", "0.0", "60"},
		},
		nil,
	)
	normalizer := &mapNormalizer{ids: map[string]string{"BRAF V600E": "ga4gh:VA.dup"}}

	out, err := NewCancerHotspots(dir, normalizer).Run(context.Background())
	require.NoError(t, err)

	blob, err := os.ReadFile(out)
	require.NoError(t, err)
	var hotspots map[string]cancerhotspots.Hotspot
	require.NoError(t, json.Unmarshal(blob, &hotspots))
	require.Len(t, hotspots, 1)
	assert.Equal(t, 50, hotspots["ga4gh:VA.dup"].Observations)
}

func TestCancerHotspots_MalformedRowAborts(t *testing.T) {
	dir := t.TempDir()
	writeHotspotsWorkbook(t, filepath.Join(dir, "hotspots_v2.xls"),
		[][]any{{"BRAF", "V", "600", "E;41", "0.0", "45"}},
		nil,
	)

	_, err := NewCancerHotspots(dir, &mapNormalizer{}).Run(context.Background())
	var malformed *cancerhotspots.MalformedFieldError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "Variant_Amino_Acid", malformed.Column)
}

func TestCancerHotspots_DownloadsWorkbookWhenAbsent(t *testing.T) {
	workbookDir := t.TempDir()
	writeHotspotsWorkbook(t, filepath.Join(workbookDir, "hotspots_v2.xls"),
		[][]any{{"BRAF", "V", "600", "E:41", "0.0", "45"}},
		nil,
	)
	blob, err := os.ReadFile(filepath.Join(workbookDir, "hotspots_v2.xls"))
	require.NoError(t, err)

	var served bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
		w.Write(blob)
	}))
	defer srv.Close()

	dir := t.TempDir()
	transform := NewCancerHotspots(dir, &mapNormalizer{ids: map[string]string{"BRAF V600E": "ga4gh:VA.x"}})
	transform.SetDataURL(srv.URL + "/hotspots_v2.xls")

	_, err = transform.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, served)
	assert.FileExists(t, filepath.Join(dir, "hotspots_v2.xls"))
}

func TestCancerHotspots_UpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	transform := NewCancerHotspots(t.TempDir(), &mapNormalizer{})
	transform.SetDataURL(srv.URL + "/hotspots_v2.xls")

	_, err := transform.Run(context.Background())
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
