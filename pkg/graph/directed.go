package graph

import (
	"gonum.org/v1/gonum/graph/simple"
)

// Directed exports the store as a gonum weighted directed graph. Node IDs are
// the store indices and every row becomes a node, isolated ones included.
// Self-loops are left out since gonum simple graphs cannot hold them; use
// SelfLoops to count them.
func (s *Store) Directed() *simple.WeightedDirectedGraph {
	g := simple.NewWeightedDirectedGraph(0, 0)

	for i := range s.rows {
		g.AddNode(simple.Node(int64(i)))
	}

	for to, row := range s.rows {
		for _, l := range row {
			if l.From == to {
				continue
			}
			g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(int64(l.From)), simple.Node(int64(to)), l.Weight))
		}
	}

	return g
}

// SelfLoops returns the indices of nodes with an arc to themselves
func (s *Store) SelfLoops() []int {
	var loops []int
	for to, row := range s.rows {
		for _, l := range row {
			if l.From == to {
				loops = append(loops, to)
				break
			}
		}
	}
	return loops
}

// Arcs returns every arc as a [from, to] pair, grouped by destination
func (s *Store) Arcs() [][2]int {
	arcs := make([][2]int, 0, s.numArcs)
	for to, row := range s.rows {
		for _, l := range row {
			arcs = append(arcs, [2]int{l.From, to})
		}
	}
	return arcs
}
