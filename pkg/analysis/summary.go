// Package analysis derives structural diagnostics and rankings from a loaded
// graph and its PageRank scores.
package analysis

import (
	gonum "gonum.org/v1/gonum/graph"

	"github.com/ritzau/pagerank/pkg/graph"
)

// Summary describes the shape of a graph and the mass of its score vector
type Summary struct {
	Nodes      int        `json:"nodes"`
	Arcs       int        `json:"arcs"`
	Dangling   int        `json:"dangling"`   // no outgoing arcs
	Isolated   int        `json:"isolated"`   // no arcs at all
	SelfLoops  int        `json:"self_loops"` // arcs from a node to itself
	Components int        `json:"components"` // strongly connected components
	RankSinks  [][]string `json:"rank_sinks,omitempty"`
	ScoreSum   float64    `json:"score_sum"`

	// ReferenceDeviation is set when the scores were compared against
	// gonum's PageRank
	ReferenceDeviation *float64 `json:"reference_deviation,omitempty"`
}

// Summarize inspects s and the scores computed from it. Scores may be nil
// when the graph has not been ranked yet.
func Summarize(s *graph.Store, scores []float64) Summary {
	sum := Summary{
		Nodes: s.NumRows(),
		Arcs:  s.NumArcs(),
	}

	loops := make(map[int]bool)
	for _, idx := range s.SelfLoops() {
		loops[idx] = true
	}
	sum.SelfLoops = len(loops)

	for i := 0; i < s.NumRows(); i++ {
		if s.IsDangling(i) {
			sum.Dangling++
			if len(s.InLinks(i)) == 0 {
				sum.Isolated++
			}
		}
	}

	for _, v := range scores {
		sum.ScoreSum += v
	}

	if s.NumRows() == 0 {
		return sum
	}

	g := s.Directed()
	sccs := NewTarjanSCC(g).FindSCCs()
	sum.Components = len(sccs)

	for _, scc := range sccs {
		if !isSink(g, scc, loops) {
			continue
		}
		names := make([]string, len(scc))
		for i, id := range scc {
			names[i] = s.NodeName(int(id))
		}
		sum.RankSinks = append(sum.RankSinks, names)
	}

	return sum
}

// isSink reports whether a component traps the walk: it must be able to
// hold the walk at all (more than one node, or a self-loop) and have no arc
// leaving it.
func isSink(g gonum.Directed, scc []int64, loops map[int]bool) bool {
	if len(scc) == 1 && !loops[int(scc[0])] {
		return false
	}

	members := make(map[int64]bool, len(scc))
	for _, id := range scc {
		members[id] = true
	}
	for _, id := range scc {
		to := g.From(id)
		for to.Next() {
			if !members[to.Node().ID()] {
				return false
			}
		}
	}
	return true
}
