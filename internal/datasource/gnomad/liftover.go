package gnomad

import (
	"context"

	"github.com/cancervariants/evidence-normalization/internal/evidence"
)

const liftover37To38Query = `
query liftover37GnomadVariant(
	$source_variant_id: String!, $reference_genome: ReferenceGenomeId!) {
	liftover(
		source_variant_id: $source_variant_id,
		reference_genome: $reference_genome
	) {
		liftover {variant_id, reference_genome},
		datasets
	}
}
`

const liftover38To37Query = `
query liftover38GnomadVariant(
	$liftover_variant_id: String!, $reference_genome: ReferenceGenomeId!) {
	liftover(
		liftover_variant_id: $liftover_variant_id,
		reference_genome: $reference_genome
	) {
		source {variant_id, reference_genome},
		datasets
	}
}
`

type liftoverEntry struct {
	Liftover *liftoverVariant `json:"liftover"`
	Source   *liftoverVariant `json:"source"`
}

type liftoverVariant struct {
	VariantID       string `json:"variant_id"`
	ReferenceGenome string `json:"reference_genome"`
}

// LiftoverData cross-references a variant id between assemblies.
type LiftoverData struct {
	GnomadVariantID string `json:"gnomad_variant_id"`
	ReferenceGenome string `json:"reference_genome"`
	Dataset         string `json:"dataset"`
}

// LiftoverTo38 lifts a GRCh37 gnomAD variant id over to GRCh38.
func (c *Client) LiftoverTo38(ctx context.Context, gnomadVariantID string) (evidence.Response, error) {
	return c.liftover(ctx, liftover37To38Query, map[string]any{
		"source_variant_id": gnomadVariantID,
		"reference_genome":  GRCh37,
	}, DatasetR3, false)
}

// LiftoverTo37 lifts a GRCh38 gnomAD variant id over to GRCh37.
func (c *Client) LiftoverTo37(ctx context.Context, gnomadVariantID string) (evidence.Response, error) {
	return c.liftover(ctx, liftover38To37Query, map[string]any{
		"liftover_variant_id": gnomadVariantID,
		"reference_genome":    GRCh38,
	}, DatasetR21, true)
}

func (c *Client) liftover(ctx context.Context, query string, variables map[string]any, target Dataset, fromSource bool) (evidence.Response, error) {
	var result struct {
		Liftover []liftoverEntry `json:"liftover"`
	}
	ok, err := c.query(ctx, query, variables, &result)
	if err != nil {
		return evidence.Response{}, err
	}
	if !ok || len(result.Liftover) == 0 {
		return evidence.BuildEnvelope(nil, evidence.SourceMeta{Label: evidence.SourceGnomAD})
	}

	entry := result.Liftover[0].Liftover
	if fromSource {
		entry = result.Liftover[0].Source
	}
	if entry == nil {
		return evidence.BuildEnvelope(nil, evidence.SourceMeta{Label: evidence.SourceGnomAD})
	}

	data, err := evidence.AsData(LiftoverData{
		GnomadVariantID: entry.VariantID,
		ReferenceGenome: entry.ReferenceGenome,
		Dataset:         string(target),
	})
	if err != nil {
		return evidence.Response{}, err
	}
	return evidence.BuildEnvelope(data, evidence.SourceMeta{Label: evidence.SourceGnomAD})
}

const clinvarVariantQuery = `
query getClinVarVariant($variant_id: String!,
	$reference_genome: ReferenceGenomeId!) {
	clinvar_variant(variant_id: $variant_id,
	reference_genome: $reference_genome) {
		clinvar_variation_id
	}
}
`

// ClinvarVariationID returns the ClinVar variation id for a gnomAD variant
// id, trying both assemblies when none is pinned.
func (c *Client) ClinvarVariationID(ctx context.Context, gnomadVariantID string, rg ReferenceGenome) (evidence.Response, error) {
	assemblies := []ReferenceGenome{GRCh38, GRCh37}
	if rg != "" {
		assemblies = []ReferenceGenome{rg}
	}

	for _, assembly := range assemblies {
		var result struct {
			ClinvarVariant map[string]any `json:"clinvar_variant"`
		}
		ok, err := c.query(ctx, clinvarVariantQuery, map[string]any{
			"variant_id":       gnomadVariantID,
			"reference_genome": assembly,
		}, &result)
		if err != nil {
			return evidence.Response{}, err
		}
		if ok && result.ClinvarVariant != nil {
			return evidence.BuildEnvelope(result.ClinvarVariant, evidence.SourceMeta{Label: evidence.SourceGnomAD})
		}
	}
	return evidence.BuildEnvelope(nil, evidence.SourceMeta{Label: evidence.SourceGnomAD})
}
