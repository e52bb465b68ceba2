// Package gnomad provides population allele frequency data from the gnomAD
// GraphQL API (https://gnomad.broadinstitute.org/api).
package gnomad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/cancervariants/evidence-normalization/internal/evidence"
)

// DefaultAPI is the public gnomAD GraphQL endpoint.
const DefaultAPI = "https://gnomad.broadinstitute.org/api"

// Dataset identifies a gnomAD release.
type Dataset string

const (
	DatasetR3  Dataset = "gnomad_r3"
	DatasetR21 Dataset = "gnomad_r2_1"
)

// ReferenceGenome identifies a genome assembly.
type ReferenceGenome string

const (
	GRCh38 ReferenceGenome = "GRCh38"
	GRCh37 ReferenceGenome = "GRCh37"
)

// datasets in search-preference order.
var datasets = []Dataset{DatasetR3, DatasetR21}

// DatasetFor returns the gnomAD dataset serving the given assembly.
func DatasetFor(rg ReferenceGenome) (Dataset, bool) {
	switch rg {
	case GRCh38:
		return DatasetR3, true
	case GRCh37:
		return DatasetR21, true
	}
	return "", false
}

// AssemblyFor returns the assembly a gnomAD dataset is aligned to.
func AssemblyFor(ds Dataset) (ReferenceGenome, bool) {
	switch ds {
	case DatasetR3:
		return GRCh38, true
	case DatasetR21:
		return GRCh37, true
	}
	return "", false
}

// Client queries the gnomAD GraphQL API. All remote calls retry transient
// transport failures with exponential backoff; a GraphQL-level error (e.g. an
// unknown variant) is an empty result, not a failure.
type Client struct {
	api        string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client against the public gnomAD API.
func New() *Client {
	return NewWithAPI(DefaultAPI)
}

// NewWithAPI creates a client against a specific GraphQL endpoint.
func NewWithAPI(api string) *Client {
	return &Client{
		api:        api,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for query diagnostics.
func (c *Client) SetLogger(l *zap.Logger) {
	c.logger = l
}

func (c *Client) meta(version Dataset) evidence.SourceMeta {
	return evidence.SourceMeta{Label: evidence.SourceGnomAD, Version: string(version)}
}

type graphQLError struct {
	Message string `json:"message"`
}

// query posts a GraphQL query and decodes the "data" member into out.
// A non-empty "errors" member is reported through the bool return; transport
// failures are retried and surface as errors only once retries are exhausted.
func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) (ok bool, err error) {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return false, fmt.Errorf("marshal gnomad query: %w", err)
	}

	var blob []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("gnomad api status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("gnomad api status %d", resp.StatusCode))
		}
		blob, err = io.ReadAll(resp.Body)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return false, fmt.Errorf("gnomad api request: %w", err)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(blob, &envelope); err != nil {
		return false, fmt.Errorf("decode gnomad response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		c.logger.Debug("gnomad query returned errors",
			zap.String("message", envelope.Errors[0].Message))
		return false, nil
	}
	if out != nil && envelope.Data != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return false, fmt.Errorf("decode gnomad data: %w", err)
		}
	}
	return true, nil
}

const variantSearchQuery = `
query getVariantSearch($query: String!, $dataset: DatasetId!) {
	variant_search(query: $query, dataset: $dataset) {
		variant_id
	}
}
`

// searchVariant resolves a variant id (gnomAD id, ClinGen allele registry id,
// or rsid) to a gnomAD variant id. When no assembly is pinned, datasets are
// tried in preference order.
func (c *Client) searchVariant(ctx context.Context, variantID string, rg ReferenceGenome) (string, Dataset, error) {
	tryDatasets := datasets
	if rg != "" {
		ds, known := DatasetFor(rg)
		if !known {
			return "", "", fmt.Errorf("unknown reference genome %q", rg)
		}
		tryDatasets = []Dataset{ds}
	}

	for _, ds := range tryDatasets {
		var result struct {
			VariantSearch []struct {
				VariantID string `json:"variant_id"`
			} `json:"variant_search"`
		}
		ok, err := c.query(ctx, variantSearchQuery, map[string]any{
			"query":   variantID,
			"dataset": ds,
		}, &result)
		if err != nil {
			return "", "", err
		}
		if ok && len(result.VariantSearch) > 0 {
			return result.VariantSearch[0].VariantID, ds, nil
		}
	}
	return "", "", nil
}

const variantQuery = `
query getVariant($variantId: String!, $dataset: DatasetId!) {
	variant(variantId: $variantId, dataset: $dataset) {
		variantId
		reference_genome
		genome {
			ac
			an
			populations {
				id
				ac
				an
			}
		}
		exome {
			ac
			an
			populations {
				id
				ac
				an
			}
		}
	}
}
`

type variantResult struct {
	VariantID       string          `json:"variantId"`
	ReferenceGenome string          `json:"reference_genome"`
	Genome          *FrequencyBlock `json:"genome"`
	Exome           *FrequencyBlock `json:"exome"`
}

// Observations is a cumulative allele count over exome and genome data.
type Observations struct {
	AlleleCount  int    `json:"allele_count"`
	AlleleNumber int    `json:"allele_number"`
	Decimal      string `json:"decimal,omitempty"`
}

// MaxPopulationFrequency is the sub-population with the highest allele
// frequency. Population carries the human-readable label, not the short code.
type MaxPopulationFrequency struct {
	Population   string `json:"population"`
	AlleleCount  int    `json:"allele_count"`
	AlleleNumber int    `json:"allele_number"`
	Decimal      string `json:"decimal"`
}

// FrequencyData is the population frequency payload for one variant.
type FrequencyData struct {
	Variant           string                  `json:"variant"`
	Assembly          string                  `json:"assembly"`
	TotalObservations Observations            `json:"total_observations"`
	MaxPopFreq        *MaxPopulationFrequency `json:"max_pop_freq,omitempty"`
	GnomadURL         string                  `json:"gnomad_url"`
}

// Frequency returns merged exome+genome population frequency data for a
// variant id. An unresolvable id yields an empty envelope.
func (c *Client) Frequency(ctx context.Context, variantID string, rg ReferenceGenome) (evidence.Response, error) {
	gnomadID, ds, err := c.searchVariant(ctx, variantID, rg)
	if err != nil {
		return evidence.Response{}, err
	}
	if gnomadID == "" {
		return evidence.BuildEnvelope(nil, evidence.SourceMeta{Label: evidence.SourceGnomAD})
	}

	var result struct {
		Variant *variantResult `json:"variant"`
	}
	ok, err := c.query(ctx, variantQuery, map[string]any{
		"variantId": gnomadID,
		"dataset":   ds,
	}, &result)
	if err != nil {
		return evidence.Response{}, err
	}
	if !ok || result.Variant == nil {
		return evidence.BuildEnvelope(nil, evidence.SourceMeta{Label: evidence.SourceGnomAD})
	}
	v := result.Variant

	acc := newAccumulator()
	acc.merge(v.Exome)
	acc.merge(v.Genome)

	freq := FrequencyData{
		Variant:  v.VariantID,
		Assembly: v.ReferenceGenome,
		TotalObservations: Observations{
			AlleleCount:  acc.ac,
			AlleleNumber: acc.an,
		},
		GnomadURL: fmt.Sprintf("https://gnomad.broadinstitute.org/variant/%s?dataset=%s", v.VariantID, ds),
	}
	if acc.an > 0 {
		freq.TotalObservations.Decimal = formatDecimal(acc.ac, acc.an)
	}
	if best, _, found := acc.maxPopFreq(); found {
		label, _ := populationLabel(best.ID)
		freq.MaxPopFreq = &MaxPopulationFrequency{
			Population:   label,
			AlleleCount:  best.AC,
			AlleleNumber: best.AN,
			Decimal:      formatDecimal(best.AC, best.AN),
		}
	}

	data, err := evidence.AsData(freq)
	if err != nil {
		return evidence.Response{}, err
	}
	return evidence.BuildEnvelope(data, c.meta(ds))
}
