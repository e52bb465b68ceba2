package gnomad

import "strconv"

// FrequencyBlock is the exome or genome counts block of a gnomAD variant.
type FrequencyBlock struct {
	AC          int                `json:"ac"`
	AN          int                `json:"an"`
	Populations []PopulationCounts `json:"populations"`
}

// PopulationCounts is one population's allele counts within a block.
type PopulationCounts struct {
	ID string `json:"id"`
	AC int    `json:"ac"`
	AN int    `json:"an"`
}

// accumulator merges exome and genome blocks into cumulative totals. Its
// population buckets are fixed at construction from the recognized table, so
// merge order never affects the result.
type accumulator struct {
	ac   int
	an   int
	pops []PopulationCounts
}

func newAccumulator() *accumulator {
	acc := &accumulator{pops: make([]PopulationCounts, len(populations))}
	for i, p := range populations {
		acc.pops[i] = PopulationCounts{ID: p.id}
	}
	return acc
}

// merge adds a block's counts field-by-field into the accumulator. A nil
// block (a variant absent from exome or genome data) is a no-op. Population
// ids outside the fixed table are ignored.
func (a *accumulator) merge(block *FrequencyBlock) {
	if block == nil {
		return
	}
	a.ac += block.AC
	a.an += block.AN
	for _, pc := range block.Populations {
		for i := range a.pops {
			if a.pops[i].ID == pc.ID {
				a.pops[i].AC += pc.AC
				a.pops[i].AN += pc.AN
			}
		}
	}
}

// maxPopFreq returns the population bucket with the highest allele frequency.
// Buckets with a zero allele number have an undefined frequency and are never
// considered. Ties keep the earlier bucket in table order. ok is false when
// no bucket qualifies.
func (a *accumulator) maxPopFreq() (best PopulationCounts, freq float64, ok bool) {
	for _, pc := range a.pops {
		if pc.AN == 0 {
			continue
		}
		f := float64(pc.AC) / float64(pc.AN)
		if !ok || f > freq {
			best = pc
			freq = f
			ok = true
		}
	}
	return best, freq, ok
}

// formatDecimal renders an allele frequency to nine decimal places.
func formatDecimal(ac, an int) string {
	return strconv.FormatFloat(float64(ac)/float64(an), 'f', 9, 64)
}
