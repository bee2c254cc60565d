package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/network"

	"github.com/ritzau/pagerank/pkg/graph"
)

// CrossCheck ranks the exported graph with gonum's unweighted PageRank and
// returns the scores in store index order. The reference treats every
// out-arc as 1/outdegree and ignores self-loops, so it only agrees with the
// engine on graphs weighted that way.
func CrossCheck(s *graph.Store, alpha, tol float64) []float64 {
	ref := make([]float64, s.NumRows())
	if len(ref) == 0 {
		return ref
	}

	for id, v := range network.PageRank(s.Directed(), alpha, tol) {
		ref[id] = v
	}
	return ref
}

// ReferenceDeviation ranks s with CrossCheck and returns the largest
// difference from scores. It is only meaningful for 1/outdegree weights.
func ReferenceDeviation(s *graph.Store, scores []float64, alpha, tol float64) float64 {
	return MaxDeviation(scores, CrossCheck(s, alpha, tol))
}

// MaxDeviation returns the largest absolute difference between two score
// vectors of equal length, or +Inf when the lengths differ.
func MaxDeviation(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	if len(a) == 0 {
		return 0
	}
	return floats.Distance(a, b, math.Inf(1))
}
