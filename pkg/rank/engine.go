// Package rank runs weighted PageRank over a graph.Store by power iteration.
package rank

import (
	"math"
	"slices"

	"github.com/ritzau/pagerank/pkg/graph"
	"github.com/ritzau/pagerank/pkg/logging"
	"gonum.org/v1/gonum/floats"
)

// Iteration describes one step of the power iteration. Number 0 is the
// seeded vector before the first step; its sums and diff are zero.
type Iteration struct {
	Number        int
	Sum           float64 // sum of the scores entering this step
	DanglingSum   float64 // part of Sum held by dangling nodes
	NormalizedSum float64 // sum of the vector the step propagated
	Diff          float64 // L1 distance between propagated and new vector

	// Scores is the engine's vector after the step. It is only valid
	// during the callback.
	Scores []float64
}

// Observer is called after seeding and after every iteration
type Observer func(Iteration)

// Engine owns the score vector computed from a finished store. The store
// must not be modified while Run executes.
type Engine struct {
	store    *graph.Store
	params   graph.Params
	observer Observer

	pr         []float64
	iterations int
	diff       float64
	history    []float64
}

// New creates an engine that ranks s with the store's parameters
func New(s *graph.Store) *Engine {
	return &Engine{
		store:  s,
		params: s.Params(),
	}
}

// WithObserver installs a per-iteration callback
func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

// Run computes the PageRank vector. Every call starts over from the seeded
// vector sized to the store's current row count. The loop ends when the L1
// distance between successive vectors drops to the convergence threshold or
// the iteration cap is reached; both are normal termination.
//
// Arc weights are used as transition probabilities as given. The mass held
// by dangling nodes and the (1 - alpha) jump term are spread uniformly.
func (e *Engine) Run() {
	n := e.store.NumRows()
	e.pr = make([]float64, n)
	e.iterations = 0
	e.diff = 0
	e.history = nil

	if n == 0 {
		logging.Debug("empty graph, nothing to rank")
		return
	}

	alpha := e.params.Alpha
	nf := float64(n)
	dampingComplement := (1 - alpha) / nf

	// The first step propagates this vector unnormalized. That is only
	// correct because it sums to exactly one.
	e.pr[0] = 1.0
	e.notify(Iteration{Scores: e.pr})

	previous := make([]float64, n)
	diff := math.Inf(1)

	for diff > e.params.Convergence && e.iterations < e.params.MaxIterations {
		sumPR := floats.Sum(e.pr)
		var danglingPR float64
		for k, v := range e.pr {
			if e.store.IsDangling(k) {
				danglingPR += v
			}
		}

		copy(previous, e.pr)
		if e.iterations > 0 && sumPR > 0 {
			// Undo drift so the propagated vector sums to one
			floats.Scale(1/sumPR, previous)
		}

		danglingContrib := alpha * danglingPR / nf

		for i := 0; i < n; i++ {
			var inbound float64
			for _, l := range e.store.InLinks(i) {
				if e.store.IsDangling(l.From) {
					continue
				}
				inbound += l.Weight * previous[l.From]
			}
			e.pr[i] = alpha*inbound + danglingContrib + dampingComplement
		}

		diff = floats.Distance(e.pr, previous, 1)
		e.iterations++
		e.history = append(e.history, diff)

		logging.Debug("pagerank iteration", "iteration", e.iterations, "diff", diff, "dangling", danglingPR)
		e.notify(Iteration{
			Number:        e.iterations,
			Sum:           sumPR,
			DanglingSum:   danglingPR,
			NormalizedSum: floats.Sum(previous),
			Diff:          diff,
			Scores:        e.pr,
		})
	}

	if e.iterations > 0 {
		e.diff = diff
	}
	logging.Debug("pagerank finished", "iterations", e.iterations, "diff", diff, "nodes", n)
}

func (e *Engine) notify(it Iteration) {
	if e.params.Trace {
		logging.Trace("pagerank vector", "iteration", it.Number, "scores", it.Scores)
	}
	if e.observer != nil {
		e.observer(it)
	}
}

// Scores returns a copy of the score vector
func (e *Engine) Scores() []float64 {
	return slices.Clone(e.pr)
}

// Iterations returns how many iterations the last Run performed
func (e *Engine) Iterations() int {
	return e.iterations
}

// Diff returns the L1 distance of the last iteration
func (e *Engine) Diff() float64 {
	return e.diff
}

// History returns the L1 distance of every iteration of the last Run
func (e *Engine) History() []float64 {
	return slices.Clone(e.history)
}

// Params returns the parameters the engine ranks with
func (e *Engine) Params() graph.Params {
	return e.params
}

// Converged reports whether the last Run ended below the convergence
// threshold rather than at the iteration cap. An empty graph counts as
// converged.
func (e *Engine) Converged() bool {
	if len(e.pr) == 0 {
		return true
	}
	return e.iterations > 0 && e.diff <= e.params.Convergence
}
