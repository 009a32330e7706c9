package virtual

import (
	"github.com/ZJUSCT/OITrack/internal/database/models"
)

// Normalize merges raw submissions into one canonical score per contest
// problem. Submissions are grouped by problem, their subtask vectors padded
// with zeros to the longest one, and the element-wise maximum is taken; the
// problem score is the sum of that vector. Problems are placed by ordinal
// index, problems without submissions score 0 and submissions for unknown
// problems are ignored. The result never depends on submission order.
func Normalize(problems []models.ContestProblem, subs []models.VirtualSubmission) (float64, []float64) {
	indexOf := make(map[uint]int, len(problems))
	for _, p := range problems {
		indexOf[p.ID] = p.ProblemIndex
	}

	merged := make(map[int][]float64)
	for _, s := range subs {
		idx, ok := indexOf[s.ContestProblemID]
		if !ok {
			continue
		}
		merged[idx] = mergeSubtasks(merged[idx], s.SubtaskScores)
	}

	perProblem := make([]float64, len(problems))
	var total float64
	for idx, vec := range merged {
		if idx < 0 || idx >= len(perProblem) {
			continue
		}
		perProblem[idx] = sum(vec)
	}
	for _, s := range perProblem {
		total += s
	}
	return total, perProblem
}

// mergeSubtasks returns the element-wise maximum of a and b, treating the
// shorter vector as zero-padded.
func mergeSubtasks(a, b []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := range out {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		out[i] = max(x, y)
	}
	return out
}

func sum(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
