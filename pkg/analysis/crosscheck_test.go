package analysis

import (
	"math"
	"testing"

	"github.com/ritzau/pagerank/pkg/graph"
	"github.com/ritzau/pagerank/pkg/rank"
)

func TestCrossCheckAgreesWithEngine(t *testing.T) {
	p := graph.DefaultParams().
		WithNumeric(true).
		WithConvergence(1e-12).
		WithMaxIterations(1000)
	s := graph.NewStore(p)

	// weights are 1/outdegree; node 4 is dangling and node 3 has no in-links
	arcs := []struct {
		from, to int
		weight   float64
	}{
		{0, 1, 0.5}, {0, 2, 0.5},
		{1, 2, 0.5}, {1, 4, 0.5},
		{2, 0, 1},
		{3, 2, 1},
	}
	for _, a := range arcs {
		s.AddArc(a.from, a.to, a.weight)
	}

	e := rank.New(s)
	e.Run()

	ref := CrossCheck(s, p.Alpha, 1e-12)

	if dev := MaxDeviation(e.Scores(), ref); dev > 1e-6 {
		t.Errorf("Engine and reference differ by %g\nengine:    %v\nreference: %v", dev, e.Scores(), ref)
	}
	if dev := ReferenceDeviation(s, e.Scores(), p.Alpha, 1e-12); dev > 1e-6 {
		t.Errorf("Expected ReferenceDeviation within 1e-6, got %g", dev)
	}
}

func TestReferenceDeviationSpotsOtherWeights(t *testing.T) {
	s := graph.NewStore(graph.DefaultParams().WithNumeric(true))
	// node 0 splits 0.9/0.1 while the reference assumes 0.5/0.5
	s.AddArc(0, 1, 0.9)
	s.AddArc(0, 2, 0.1)
	s.AddArc(1, 0, 1)
	s.AddArc(2, 0, 1)

	e := rank.New(s)
	e.Run()

	if dev := ReferenceDeviation(s, e.Scores(), 0.85, 1e-9); dev < 0.01 {
		t.Errorf("Expected a visible deviation for non-uniform weights, got %g", dev)
	}
}

func TestCrossCheckEmpty(t *testing.T) {
	s := graph.NewStore(graph.DefaultParams())

	if ref := CrossCheck(s, 0.85, 1e-6); len(ref) != 0 {
		t.Errorf("Expected empty reference, got %v", ref)
	}
}

func TestMaxDeviation(t *testing.T) {
	if got := MaxDeviation([]float64{1, 2}, []float64{1.5, 1}); got != 1 {
		t.Errorf("Expected 1, got %g", got)
	}
	if got := MaxDeviation([]float64{1}, nil); !math.IsInf(got, 1) {
		t.Errorf("Expected +Inf for mismatched lengths, got %g", got)
	}
	if got := MaxDeviation(nil, nil); got != 0 {
		t.Errorf("Expected 0 for empty vectors, got %g", got)
	}
}
