package virtual

import (
	"strconv"
)

type Stats struct {
	Rank    int     `json:"rank"`
	Ranks   []int   `json:"ranks"`
	Average float64 `json:"average"`
	Total   int     `json:"total"`
}

// Rank places a finished attempt within the reference population.
//
// population maps problemIndex+1 to that problem's scores, every array
// index-aligned on the same participants. A rank is one more than the number
// of strictly better scores, capped at the population size, so ties share
// the better rank. The overall rank uses each participant's summed total.
func Rank(population map[string][]float64, perProblem []float64, total float64) (*Stats, error) {
	n := len(perProblem)
	columns := make([][]float64, n)
	size := -1
	for i := 0; i < n; i++ {
		col, ok := population[strconv.Itoa(i+1)]
		if !ok {
			return nil, newError(ErrNotFound, "Reference scores are missing problem %d", i+1)
		}
		if size >= 0 && len(col) != size {
			return nil, newError(ErrNotFound, "Reference scores are inconsistent for problem %d", i+1)
		}
		size = len(col)
		columns[i] = col
	}
	if size <= 0 {
		return nil, newError(ErrNotFound, "No reference scores exist for this contest")
	}

	stats := &Stats{Ranks: make([]int, n), Total: size}
	for i, col := range columns {
		stats.Ranks[i] = rankAmong(col, perProblem[i])
	}

	totals := make([]float64, size)
	for _, col := range columns {
		for k, v := range col {
			totals[k] += v
		}
	}
	stats.Rank = rankAmong(totals, total)
	stats.Average = sum(totals) / float64(size)
	return stats, nil
}

func rankAmong(reference []float64, score float64) int {
	better := 0
	for _, v := range reference {
		if v > score {
			better++
		}
	}
	return min(len(reference), better+1)
}
