package analysis

import (
	"cmp"
	"slices"
	"strconv"
)

// Ranked is one row of a ranking
type Ranked struct {
	Rank  int     `json:"rank"` // 1-based
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Top returns the n highest scores, best first. Equal scores keep index
// order. n <= 0 or n beyond the vector length returns every node. Missing
// names fall back to the index.
func Top(names []string, scores []float64, n int) []Ranked {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})

	if n <= 0 || n > len(order) {
		n = len(order)
	}

	ranked := make([]Ranked, n)
	for r, idx := range order[:n] {
		name := strconv.Itoa(idx)
		if idx < len(names) && names[idx] != "" {
			name = names[idx]
		}
		ranked[r] = Ranked{Rank: r + 1, Index: idx, Name: name, Score: scores[idx]}
	}
	return ranked
}
