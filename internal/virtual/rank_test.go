package virtual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankSingleProblem(t *testing.T) {
	stats, err := Rank(map[string][]float64{"1": {80, 60, 40}}, []float64{60}, 60)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, stats.Ranks)
	assert.Equal(t, 2, stats.Rank)
	assert.Equal(t, 3, stats.Total)
	assert.InDelta(t, 60.0, stats.Average, 1e-9)
}

func TestRankTiesShareTheBetterRank(t *testing.T) {
	stats, err := Rank(map[string][]float64{"1": {80, 80, 40}}, []float64{80}, 80)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ranks[0])
}

func TestRankIsCappedAtPopulationSize(t *testing.T) {
	stats, err := Rank(map[string][]float64{"1": {80, 60, 40}}, []float64{0}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Ranks[0])
	assert.Equal(t, 3, stats.Rank)
}

func TestRankOverallUsesParticipantTotals(t *testing.T) {
	population := map[string][]float64{
		"1": {100, 50, 0},
		"2": {100, 0, 0},
	}
	stats, err := Rank(population, []float64{50, 100}, 150)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, stats.Ranks)
	// Totals are 200, 50 and 0.
	assert.Equal(t, 2, stats.Rank)
	assert.InDelta(t, 250.0/3, stats.Average, 1e-9)
}

func TestRankRejectsBadReferenceData(t *testing.T) {
	tests := []struct {
		name       string
		population map[string][]float64
		perProblem []float64
	}{
		{"missing problem", map[string][]float64{"1": {10}}, []float64{5, 5}},
		{"unequal lengths", map[string][]float64{"1": {10, 20}, "2": {10}}, []float64{5, 5}},
		{"empty population", map[string][]float64{"1": {}}, []float64{5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rank(tt.population, tt.perProblem, sum(tt.perProblem))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
