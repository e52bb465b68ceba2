// Package cbioportal provides per-tumor-type mutation summaries from the
// cBioPortal MSK-IMPACT 2017 study.
package cbioportal

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/evidence"
	"github.com/cancervariants/evidence-normalization/internal/tabular"
)

// Transformed resource column names.
const (
	colHugoSymbol    = "Hugo_Symbol"
	colSampleBarcode = "Tumor_Sample_Barcode"
	colCaseListName  = "case_list_name"
	colCaseListIDs   = "case_list_ids"
)

// Summary is the alteration frequency of one tumor type. PercentAltered is
// always recomputed from Count and Total.
type Summary struct {
	Count          int     `json:"count"`
	Total          int     `json:"total"`
	PercentAltered float64 `json:"percent_altered"`
}

// Store serves cancer-types-summary queries over the transformed mutations
// and case-lists resources. Resources are read-only after construction; each
// query is an independent single pass.
type Store struct {
	meta      evidence.SourceMeta
	mutations tabular.Resource
	caseLists tabular.Resource
	logger    *zap.Logger
}

// New creates a store over the transformed mutations and case-lists
// resources.
func New(mutations, caseLists tabular.Resource) *Store {
	return &Store{
		meta:      evidence.SourceMeta{Label: evidence.SourceCBioPortal, Version: "msk_impact_2017"},
		mutations: mutations,
		caseLists: caseLists,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for duplicate-label warnings.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// SourceMeta returns the dataset metadata attached to every response.
func (s *Store) SourceMeta() evidence.SourceMeta {
	return s.meta
}

// CancerTypesSummary returns, per tumor type, how many of its samples carry a
// mutation in the given gene. A gene with no mutated samples short-circuits
// to an empty response without touching the case-lists resource.
func (s *Store) CancerTypesSummary(hgncSymbol string) (evidence.Response, error) {
	symbol := strings.ToUpper(hgncSymbol)

	mutated, err := s.mutatedSamples(symbol)
	if err != nil {
		return evidence.Response{}, err
	}
	if len(mutated) == 0 {
		return evidence.BuildEnvelope(nil, s.meta)
	}

	totals, err := s.tumorTypeTotals(mutated)
	if err != nil {
		return evidence.Response{}, err
	}
	data, err := evidence.AsData(totals)
	if err != nil {
		return evidence.Response{}, err
	}
	return evidence.BuildEnvelope(data, s.meta)
}

// mutatedSamples collects the sample barcodes carrying a mutation in symbol.
func (s *Store) mutatedSamples(symbol string) (map[string]struct{}, error) {
	if err := tabular.RequireColumns(s.mutations, colHugoSymbol, colSampleBarcode); err != nil {
		return nil, err
	}

	mutated := make(map[string]struct{})
	err := s.mutations.Iterate(func(row tabular.Row) (bool, error) {
		gene, _ := row.Get(colHugoSymbol)
		if gene == symbol {
			barcode, _ := row.Get(colSampleBarcode)
			mutated[barcode] = struct{}{}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return mutated, nil
}

// tumorTypeTotals joins the mutated-sample set against per-tumor-type case
// list membership. Case list names carry a "Study: Tumor Type" shape; lists
// without the separator (e.g. the pan-cancer "all" list) are skipped. When
// two lists derive the same tumor type label the later row wins.
func (s *Store) tumorTypeTotals(mutated map[string]struct{}) (map[string]Summary, error) {
	if err := tabular.RequireColumns(s.caseLists, colCaseListName, colCaseListIDs); err != nil {
		return nil, err
	}

	totals := make(map[string]Summary)
	err := s.caseLists.Iterate(func(row tabular.Row) (bool, error) {
		name, _ := row.Get(colCaseListName)
		if !strings.Contains(name, ":") {
			return false, nil
		}
		tumorType := name
		if i := strings.LastIndex(name, ": "); i >= 0 {
			tumorType = name[i+2:]
		}

		ids, _ := row.Get(colCaseListIDs)
		sampleIDs := strings.Split(ids, "\t")
		count := 0
		for _, id := range sampleIDs {
			if _, ok := mutated[id]; ok {
				count++
			}
		}
		if _, dup := totals[tumorType]; dup {
			s.logger.Debug("duplicate tumor type label, keeping later case list",
				zap.String("tumor_type", tumorType),
				zap.String("case_list_name", name))
		}
		totals[tumorType] = Summary{
			Count:          count,
			Total:          len(sampleIDs),
			PercentAltered: float64(count) / float64(len(sampleIDs)) * 100,
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}
