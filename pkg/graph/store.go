package graph

import (
	"math"
	"slices"
	"strconv"

	"github.com/ritzau/pagerank/pkg/logging"
)

// InLink is an incoming arc stored on its destination node
type InLink struct {
	From   int     // source node index
	Weight float64 // transition weight, used as-is by the rank engine
}

// Store holds a weighted directed graph as per-node incoming arc lists.
//
// Node indices are dense: the row count is always the highest index seen
// plus one, so an arc to a far index creates every node in between as an
// isolated row. Each incoming list is kept sorted by source index and holds
// at most one arc per source (first write wins).
type Store struct {
	params      Params
	rows        [][]InLink
	numOutgoing []int
	numArcs     int
	nodesToIdx  map[string]int
	idxToNodes  map[int]string
}

// NewStore creates an empty store configured with p
func NewStore(p Params) *Store {
	return &Store{
		params:     p,
		nodesToIdx: make(map[string]int),
		idxToNodes: make(map[int]string),
	}
}

// Reset discards all nodes, arcs and label mappings
func (s *Store) Reset() {
	s.rows = nil
	s.numOutgoing = nil
	s.numArcs = 0
	s.nodesToIdx = make(map[string]int)
	s.idxToNodes = make(map[int]string)
}

// Params returns the configuration the store was built with
func (s *Store) Params() Params {
	return s.params
}

// WithParams replaces the configuration value. The graph is left untouched.
func (s *Store) WithParams(p Params) *Store {
	s.params = p
	return s
}

// Reserve is a capacity hint for a graph of the given size
func (s *Store) Reserve(capacity int) {
	if capacity <= cap(s.rows) {
		return
	}
	s.rows = slices.Grow(s.rows, capacity-len(s.rows))
	s.numOutgoing = slices.Grow(s.numOutgoing, capacity-len(s.numOutgoing))
}

// NumRows returns the number of nodes
func (s *Store) NumRows() int {
	return len(s.rows)
}

// NumArcs returns the number of accepted arcs
func (s *Store) NumArcs() int {
	return s.numArcs
}

// InsertMapping returns the index of label, assigning the next free index
// the first time a label is seen.
func (s *Store) InsertMapping(label string) int {
	if idx, ok := s.nodesToIdx[label]; ok {
		return idx
	}
	idx := len(s.nodesToIdx)
	s.nodesToIdx[label] = idx
	s.idxToNodes[idx] = label
	return idx
}

// Lookup returns the index of a label or numeric id
func (s *Store) Lookup(name string) (int, bool) {
	if s.params.Numeric {
		idx, err := strconv.Atoi(name)
		if err != nil || idx < 0 || idx >= len(s.rows) {
			return 0, false
		}
		return idx, true
	}
	idx, ok := s.nodesToIdx[name]
	if !ok || idx >= len(s.rows) {
		return 0, false
	}
	return idx, true
}

// NodeName returns the label of a node, or its index in numeric mode
func (s *Store) NodeName(index int) string {
	if s.params.Numeric {
		return strconv.Itoa(index)
	}
	return s.idxToNodes[index]
}

// Names returns the display name of every node in index order
func (s *Store) Names() []string {
	names := make([]string, len(s.rows))
	for i := range names {
		names[i] = s.NodeName(i)
	}
	return names
}

// Mapping returns a copy of the index to label mapping
func (s *Store) Mapping() map[int]string {
	m := make(map[int]string, len(s.idxToNodes))
	for k, v := range s.idxToNodes {
		m[k] = v
	}
	return m
}

// InLinks returns the sorted incoming arcs of a node. The slice is shared
// with the store and must not be modified.
func (s *Store) InLinks(index int) []InLink {
	if index < 0 || index >= len(s.rows) {
		return nil
	}
	return s.rows[index]
}

// OutDegree returns the number of accepted arcs leaving a node
func (s *Store) OutDegree(index int) int {
	if index < 0 || index >= len(s.numOutgoing) {
		return 0
	}
	return s.numOutgoing[index]
}

// OutDegrees returns a copy of all outgoing degree counters
func (s *Store) OutDegrees() []int {
	return slices.Clone(s.numOutgoing)
}

// IsDangling reports whether a node has no outgoing arcs
func (s *Store) IsDangling(index int) bool {
	return s.OutDegree(index) == 0
}

// AddArc adds a weighted arc from -> to. The store grows to max(from, to)+1
// rows if needed. It returns false without changing anything when the
// destination already has an arc from the same source. Negative indices
// and math.MaxInt, whose row count would overflow, are rejected.
func (s *Store) AddArc(from, to int, weight float64) bool {
	if from < 0 || to < 0 || from == math.MaxInt || to == math.MaxInt {
		return false
	}

	if s.params.Trace {
		logging.Trace("checking to add arc", "from", from, "to", to)
	}

	if maxDim := max(from, to); len(s.rows) <= maxDim {
		if s.params.Trace {
			logging.Trace("resizing rows", "from", len(s.rows), "to", maxDim+1)
		}
		s.resize(maxDim + 1)
	}

	row := s.rows[to]
	pos, found := slices.BinarySearchFunc(row, from, func(l InLink, from int) int {
		return l.From - from
	})
	if found {
		return false
	}
	s.rows[to] = slices.Insert(row, pos, InLink{From: from, Weight: weight})
	s.numOutgoing[from]++
	s.numArcs++

	if s.params.Trace {
		logging.Trace("added arc", "from", from, "to", to, "weight", weight)
	}
	return true
}

// resize grows rows and degree counters to exactly n entries
func (s *Store) resize(n int) {
	if n > cap(s.rows) {
		rows := make([][]InLink, n)
		copy(rows, s.rows)
		s.rows = rows
	} else {
		s.rows = s.rows[:n]
	}
	if n > cap(s.numOutgoing) {
		counts := make([]int, n)
		copy(counts, s.numOutgoing)
		s.numOutgoing = counts
	} else {
		s.numOutgoing = s.numOutgoing[:n]
	}
}
