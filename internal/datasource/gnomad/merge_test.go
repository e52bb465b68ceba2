package gnomad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_Merge(t *testing.T) {
	exome := &FrequencyBlock{
		AC: 10, AN: 1000,
		Populations: []PopulationCounts{
			{ID: "afr", AC: 4, AN: 200},
			{ID: "sas", AC: 6, AN: 300},
		},
	}
	genome := &FrequencyBlock{
		AC: 5, AN: 500,
		Populations: []PopulationCounts{
			{ID: "afr", AC: 1, AN: 100},
			{ID: "made_up", AC: 99, AN: 99},
		},
	}

	acc := newAccumulator()
	acc.merge(exome)
	acc.merge(genome)

	assert.Equal(t, 15, acc.ac)
	assert.Equal(t, 1500, acc.an)

	byID := func(id string) PopulationCounts {
		for _, pc := range acc.pops {
			if pc.ID == id {
				return pc
			}
		}
		t.Fatalf("population %s missing", id)
		return PopulationCounts{}
	}
	assert.Equal(t, PopulationCounts{ID: "afr", AC: 5, AN: 300}, byID("afr"))
	assert.Equal(t, PopulationCounts{ID: "sas", AC: 6, AN: 300}, byID("sas"))

	// Unknown ids never create buckets.
	assert.Len(t, acc.pops, len(populations))
}

func TestAccumulator_MergeCommutative(t *testing.T) {
	a := &FrequencyBlock{AC: 3, AN: 30, Populations: []PopulationCounts{{ID: "eas", AC: 1, AN: 10}}}
	b := &FrequencyBlock{AC: 7, AN: 70, Populations: []PopulationCounts{{ID: "eas", AC: 2, AN: 20}}}

	x := newAccumulator()
	x.merge(a)
	x.merge(b)
	y := newAccumulator()
	y.merge(b)
	y.merge(a)

	assert.Equal(t, x, y)
}

func TestAccumulator_MergeNil(t *testing.T) {
	acc := newAccumulator()
	acc.merge(nil)
	assert.Equal(t, 0, acc.ac)
	assert.Equal(t, 0, acc.an)
}

func TestAccumulator_MaxPopFreqZeroGuard(t *testing.T) {
	acc := newAccumulator()
	// A bucket with an allele count but zero allele number has an undefined
	// frequency and must never be selected.
	acc.merge(&FrequencyBlock{Populations: []PopulationCounts{
		{ID: "afr", AC: 50, AN: 0},
		{ID: "fin", AC: 1, AN: 100},
	}})

	best, freq, ok := acc.maxPopFreq()
	require.True(t, ok)
	assert.Equal(t, "fin", best.ID)
	assert.InDelta(t, 0.01, freq, 1e-12)
}

func TestAccumulator_MaxPopFreqNoneQualify(t *testing.T) {
	acc := newAccumulator()
	_, _, ok := acc.maxPopFreq()
	assert.False(t, ok)
}

func TestAccumulator_MaxPopFreqTieBreak(t *testing.T) {
	acc := newAccumulator()
	// eas precedes fin in the fixed table; equal frequencies keep eas.
	acc.merge(&FrequencyBlock{Populations: []PopulationCounts{
		{ID: "fin", AC: 2, AN: 200},
		{ID: "eas", AC: 1, AN: 100},
	}})

	best, _, ok := acc.maxPopFreq()
	require.True(t, ok)
	assert.Equal(t, "eas", best.ID)
}

func TestFormatDecimal(t *testing.T) {
	assert.Equal(t, "0.010000000", formatDecimal(1, 100))
	assert.Equal(t, "0.333333333", formatDecimal(1, 3))
}

func TestPopulationLabel(t *testing.T) {
	label, ok := populationLabel("afr")
	require.True(t, ok)
	assert.Equal(t, "African/African American", label)

	_, ok = populationLabel("xyz")
	assert.False(t, ok)
}
