package cancerhotspots

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cancervariants/evidence-normalization/internal/tabular"
)

// Source workbook column names.
const (
	colHugoSymbol        = "Hugo_Symbol"
	colRef               = "ref"
	colAminoAcidPosition = "Amino_Acid_Position"
	colVariantAminoAcid  = "Variant_Amino_Acid"
	colQValue            = "qvalue"
	colMutationCount     = "Mutation_Count"
)

// MalformedFieldError reports a cell that does not satisfy the upstream
// dataset's format contract, e.g. a combined "change:count" value without the
// ":" separator.
type MalformedFieldError struct {
	Column string
	Value  string
	Reason string
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed %s value %q: %s", e.Column, e.Value, e.Reason)
}

// ExtractHotspot maps a matched workbook row to the hotspot schema. snv
// selects substitution-shaped extraction: codon is ref+position and the
// mutation carries the full ref+position+change. Indel-shaped rows use the
// bare position (possibly a range such as "486-494") as codon and the change
// alone as mutation. Both shapes split the combined Variant_Amino_Acid cell
// on ":" into the change and its observation count; a missing separator is a
// MalformedFieldError, never a silent truncation.
func ExtractHotspot(row tabular.Row, snv bool) (Hotspot, error) {
	hugo, err := cell(row, colHugoSymbol)
	if err != nil {
		return Hotspot{}, err
	}
	pos, err := cell(row, colAminoAcidPosition)
	if err != nil {
		return Hotspot{}, err
	}
	combined, err := cell(row, colVariantAminoAcid)
	if err != nil {
		return Hotspot{}, err
	}
	change, observed, found := strings.Cut(combined, ":")
	if !found {
		return Hotspot{}, &MalformedFieldError{
			Column: colVariantAminoAcid,
			Value:  combined,
			Reason: `expected "change:count"`,
		}
	}
	observations, err := strconv.Atoi(observed)
	if err != nil {
		return Hotspot{}, &MalformedFieldError{
			Column: colVariantAminoAcid,
			Value:  combined,
			Reason: "observation count is not an integer",
		}
	}

	qRaw, err := cell(row, colQValue)
	if err != nil {
		return Hotspot{}, err
	}
	qValue, err := strconv.ParseFloat(qRaw, 64)
	if err != nil {
		return Hotspot{}, &MalformedFieldError{
			Column: colQValue,
			Value:  qRaw,
			Reason: "not a float",
		}
	}

	totalRaw, err := cell(row, colMutationCount)
	if err != nil {
		return Hotspot{}, err
	}
	total, err := strconv.Atoi(totalRaw)
	if err != nil {
		return Hotspot{}, &MalformedFieldError{
			Column: colMutationCount,
			Value:  totalRaw,
			Reason: "not an integer",
		}
	}

	h := Hotspot{
		QValue:            qValue,
		Observations:      observations,
		TotalObservations: total,
	}
	if snv {
		ref, err := cell(row, colRef)
		if err != nil {
			return Hotspot{}, err
		}
		h.Codon = ref + pos
		h.Mutation = h.Codon + change
		h.Variation = fmt.Sprintf("%s %s", hugo, h.Mutation)
	} else {
		h.Codon = pos
		h.Mutation = change
		h.Variation = fmt.Sprintf("%s %s", hugo, change)
	}
	return h, nil
}

// cell reads a required column, surfacing its absence as a schema mismatch.
func cell(row tabular.Row, column string) (string, error) {
	v, ok := row.Get(column)
	if !ok {
		return "", &tabular.SchemaMismatchError{Resource: "cancer hotspots", Column: column}
	}
	return v, nil
}
