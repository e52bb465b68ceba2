// Package cancerhotspots provides mutation hotspot lookups for normalized
// variants, backed by the Cancer Hotspots dataset
// (https://www.cancerhotspots.org/files/hotspots_v2.xls).
package cancerhotspots

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/evidence"
	"github.com/cancervariants/evidence-normalization/internal/tabular"
)

// Structural-type codes that select substitution-shaped extraction. Every
// other code falls through to indel-shaped extraction.
const (
	SOAminoAcidSubstitution = "SO:0001606"
	SOSilentMutation        = "SO:0001017"
)

// Workbook sheet names of the upstream dataset.
const (
	SheetSNV   = "SNV-hotspots"
	SheetIndel = "INDEL-hotspots"
)

// KeyColumn is the normalized-variant-id column added by the transform step.
const KeyColumn = "vrs_identifier"

// Hotspot is the per-variant hotspot record.
type Hotspot struct {
	Variation         string  `json:"variation"`
	Codon             string  `json:"codon"`
	Mutation          string  `json:"mutation"`
	QValue            float64 `json:"q_value"`
	Observations      int     `json:"observations"`
	TotalObservations int     `json:"total_observations"`
}

// Store serves mutation hotspot queries. It is backed either by the
// transformed JSON artifact produced by the ETL path (loaded wholesale at
// construction) or by the annotated source workbook queried per call. Both
// backings answer the same queries.
type Store struct {
	meta        evidence.SourceMeta
	transformed map[string]Hotspot
	snv         tabular.Resource
	indel       tabular.Resource
	logger      *zap.Logger
}

func sourceMeta() evidence.SourceMeta {
	return evidence.SourceMeta{Label: evidence.SourceCancerHotspots, Version: "2"}
}

// NewFromJSON loads the transformed hotspot artifact, a JSON object keyed by
// normalized variant id.
func NewFromJSON(path string) (*Store, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transformed hotspots: %w", err)
	}
	var transformed map[string]Hotspot
	if err := json.Unmarshal(blob, &transformed); err != nil {
		return nil, fmt.Errorf("parse transformed hotspots %s: %w", path, err)
	}
	return &Store{
		meta:        sourceMeta(),
		transformed: transformed,
		logger:      zap.NewNop(),
	}, nil
}

// NewFromWorkbook serves lookups directly from the annotated workbook sheets.
func NewFromWorkbook(snv, indel tabular.Resource) *Store {
	return &Store{
		meta:   sourceMeta(),
		snv:    snv,
		indel:  indel,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for fallback warnings.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SourceMeta returns the dataset metadata attached to every response.
func (s *Store) SourceMeta() evidence.SourceMeta {
	return s.meta
}

// MutationHotspots returns hotspot data for a normalized variant id. An
// unindexed id yields an envelope with empty data and no id.
func (s *Store) MutationHotspots(soID, vrsVariationID string) (evidence.Response, error) {
	if s.transformed != nil {
		hotspot, ok := s.transformed[vrsVariationID]
		if !ok {
			return evidence.BuildEnvelope(nil, s.meta)
		}
		data, err := evidence.AsData(hotspot)
		if err != nil {
			return evidence.Response{}, err
		}
		return evidence.BuildEnvelope(data, s.meta)
	}

	snv := IsSubstitution(soID)
	if !snv {
		s.logger.Warn("structural type not a known substitution code, using indel extraction",
			zap.String("so_id", soID))
	}
	resource := s.indel
	if snv {
		resource = s.snv
	}

	match, err := tabular.FindRow(resource, KeyColumn, vrsVariationID)
	if err != nil {
		return evidence.Response{}, err
	}
	if !match.Found {
		return evidence.BuildEnvelope(nil, s.meta)
	}
	hotspot, err := ExtractHotspot(match.Row, snv)
	if err != nil {
		return evidence.Response{}, err
	}
	data, err := evidence.AsData(hotspot)
	if err != nil {
		return evidence.Response{}, err
	}
	return evidence.BuildEnvelope(data, s.meta)
}

// IsSubstitution reports whether the structural-type code routes to the
// substitution-shaped extractor.
func IsSubstitution(soID string) bool {
	return soID == SOAminoAcidSubstitution || soID == SOSilentMutation
}
