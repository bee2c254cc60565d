package rank

import (
	"math"
	"testing"

	"github.com/ritzau/pagerank/pkg/graph"
)

const tolerance = 1e-9

// buildStore creates a numeric-mode store from [from, to] pairs with the
// given weight on every arc.
func buildStore(t *testing.T, p graph.Params, weight float64, arcs ...[2]int) *graph.Store {
	t.Helper()
	s := graph.NewStore(p.WithNumeric(true))
	for _, a := range arcs {
		if !s.AddArc(a[0], a[1], weight) {
			t.Fatalf("AddArc(%d, %d) rejected", a[0], a[1])
		}
	}
	return s
}

func TestRunEmptyGraph(t *testing.T) {
	s := graph.NewStore(graph.DefaultParams())
	e := New(s)

	e.Run()

	if s.NumRows() != 0 {
		t.Errorf("Expected 0 rows, got %d", s.NumRows())
	}
	if len(e.Scores()) != 0 {
		t.Errorf("Expected empty scores, got %v", e.Scores())
	}
	if e.Iterations() != 0 {
		t.Errorf("Expected 0 iterations, got %d", e.Iterations())
	}
}

func TestRunSingleSelfLoop(t *testing.T) {
	s := buildStore(t, graph.DefaultParams(), 1.0, [2]int{0, 0})
	e := New(s)

	e.Run()

	scores := e.Scores()
	if len(scores) != 1 {
		t.Fatalf("Expected 1 score, got %d", len(scores))
	}
	if math.Abs(scores[0]-1.0) > tolerance {
		t.Errorf("Expected score 1.0, got %.15f", scores[0])
	}
	if e.Iterations() != 1 {
		t.Errorf("Expected convergence after 1 iteration, got %d", e.Iterations())
	}
}

func TestRunThreeCycleConverges(t *testing.T) {
	p := graph.DefaultParams().WithMaxIterations(200)
	s := buildStore(t, p, 1.0, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 0})
	e := New(s)

	e.Run()

	if e.Iterations() >= 200 {
		t.Fatalf("Expected convergence before the cap, ran %d iterations", e.Iterations())
	}
	if e.Diff() > p.Convergence {
		t.Errorf("Expected final diff <= %g, got %g", p.Convergence, e.Diff())
	}
	for i, v := range e.Scores() {
		if math.Abs(v-1.0/3) > 1e-6 {
			t.Errorf("Node %d: expected ~1/3, got %.15f", i, v)
		}
	}

	history := e.History()
	if len(history) != e.Iterations() {
		t.Fatalf("Expected %d history entries, got %d", e.Iterations(), len(history))
	}
	for k := 2; k < len(history); k++ {
		if history[k] > history[k-1]+tolerance {
			t.Errorf("Diff increased at iteration %d: %g > %g", k+1, history[k], history[k-1])
		}
	}
}

func TestRunFirstIterations(t *testing.T) {
	s := buildStore(t, graph.DefaultParams().WithMaxIterations(2), 1.0,
		[2]int{0, 1}, [2]int{1, 2}, [2]int{2, 0})
	e := New(s)

	var steps []Iteration
	e.WithObserver(func(it Iteration) {
		it.Scores = append([]float64(nil), it.Scores...)
		steps = append(steps, it)
	})
	e.Run()

	if len(steps) != 3 {
		t.Fatalf("Expected seed plus 2 iterations, got %d callbacks", len(steps))
	}

	seed := steps[0].Scores
	if seed[0] != 1.0 || seed[1] != 0 || seed[2] != 0 {
		t.Errorf("Expected seed [1 0 0], got %v", seed)
	}

	want := []float64{0.05, 0.9, 0.05}
	for i, v := range steps[1].Scores {
		if math.Abs(v-want[i]) > tolerance {
			t.Errorf("Iteration 1 node %d: expected %g, got %.15f", i, want[i], v)
		}
	}
	if math.Abs(steps[1].Diff-1.9) > tolerance {
		t.Errorf("Iteration 1: expected diff 1.9, got %.15f", steps[1].Diff)
	}
	if math.Abs(steps[2].Diff-1.615) > tolerance {
		t.Errorf("Iteration 2: expected diff 1.615, got %.15f", steps[2].Diff)
	}
}

func TestRunConservesMassWithoutDanglingNodes(t *testing.T) {
	p := graph.DefaultParams().WithAlpha(1.0).WithMaxIterations(25)
	s := buildStore(t, p, 0.5,
		[2]int{0, 1}, [2]int{0, 2},
		[2]int{1, 2}, [2]int{1, 0},
		[2]int{2, 0}, [2]int{2, 3},
		[2]int{3, 1}, [2]int{3, 2})
	e := New(s)

	iterations := 0
	e.WithObserver(func(it Iteration) {
		if it.Number == 0 {
			return
		}
		iterations++
		if it.DanglingSum != 0 {
			t.Errorf("Iteration %d: expected no dangling mass, got %g", it.Number, it.DanglingSum)
		}
		if math.Abs(it.NormalizedSum-1.0) > tolerance {
			t.Errorf("Iteration %d: normalized sum %.15f, want 1", it.Number, it.NormalizedSum)
		}
		var sum float64
		for _, v := range it.Scores {
			sum += v
		}
		if math.Abs(sum-1.0) > tolerance {
			t.Errorf("Iteration %d: score sum %.15f, want 1", it.Number, sum)
		}
	})
	e.Run()

	if iterations == 0 {
		t.Fatal("Observer never saw an iteration")
	}
}

func TestRunIsolatedNodesGetUniformShare(t *testing.T) {
	p := graph.DefaultParams()
	s := buildStore(t, p, 1.0, [2]int{5, 0})
	e := New(s)

	n := float64(s.NumRows())
	e.WithObserver(func(it Iteration) {
		if it.Number == 0 {
			return
		}
		want := p.Alpha*it.DanglingSum/n + (1-p.Alpha)/n
		for i := 1; i <= 4; i++ {
			if math.Abs(it.Scores[i]-want) > 1e-15 {
				t.Errorf("Iteration %d node %d: expected %.17f, got %.17f", it.Number, i, want, it.Scores[i])
			}
		}
	})
	e.Run()

	if len(e.Scores()) != 6 {
		t.Fatalf("Expected 6 scores, got %d", len(e.Scores()))
	}
}

func TestRunScoresFiniteAndNonNegative(t *testing.T) {
	s := buildStore(t, graph.DefaultParams(), 0.3,
		[2]int{0, 1}, [2]int{0, 2}, [2]int{1, 2}, [2]int{2, 0},
		[2]int{3, 2}, [2]int{7, 3}, [2]int{4, 4})
	e := New(s)

	e.Run()

	scores := e.Scores()
	if len(scores) != s.NumRows() {
		t.Fatalf("Expected %d scores, got %d", s.NumRows(), len(scores))
	}
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			t.Errorf("Node %d: invalid score %g", i, v)
		}
	}
}

func TestRunRestartsFromSeed(t *testing.T) {
	s := buildStore(t, graph.DefaultParams(), 1.0, [2]int{0, 1}, [2]int{1, 0}, [2]int{2, 0})
	e := New(s)

	e.Run()
	first := e.Scores()
	firstIterations := e.Iterations()

	e.Run()
	second := e.Scores()

	if e.Iterations() != firstIterations {
		t.Errorf("Expected %d iterations on rerun, got %d", firstIterations, e.Iterations())
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Node %d: rerun gave %g, first run %g", i, second[i], first[i])
		}
	}
}

func TestRunZeroIterations(t *testing.T) {
	s := buildStore(t, graph.DefaultParams().WithMaxIterations(0), 1.0, [2]int{0, 1})
	e := New(s)

	e.Run()

	scores := e.Scores()
	if scores[0] != 1.0 || scores[1] != 0 {
		t.Errorf("Expected seeded vector [1 0], got %v", scores)
	}
	if e.Iterations() != 0 || e.Diff() != 0 {
		t.Errorf("Expected no iterations and zero diff, got %d and %g", e.Iterations(), e.Diff())
	}
}

func TestRunUsesWeightsAsGiven(t *testing.T) {
	p := graph.DefaultParams().WithMaxIterations(1)

	heavy := buildStore(t, p, 1.0, [2]int{0, 1})
	light := buildStore(t, p, 0.5, [2]int{0, 1})

	eh, el := New(heavy), New(light)
	eh.Run()
	el.Run()

	// one step from [1 0]: node 1 = alpha*w*1 + (1-alpha)/2
	if got, want := eh.Scores()[1], 0.85+0.075; math.Abs(got-want) > tolerance {
		t.Errorf("Weight 1.0: expected %g, got %.15f", want, got)
	}
	if got, want := el.Scores()[1], 0.85*0.5+0.075; math.Abs(got-want) > tolerance {
		t.Errorf("Weight 0.5: expected %g, got %.15f", want, got)
	}
}

func TestConverged(t *testing.T) {
	cycle := [][2]int{{0, 1}, {1, 2}, {2, 0}}

	tests := []struct {
		name   string
		params graph.Params
		want   bool
	}{
		{name: "below threshold", params: graph.DefaultParams().WithMaxIterations(500), want: true},
		{name: "hits the cap", params: graph.DefaultParams().WithMaxIterations(3), want: false},
		{name: "no iterations", params: graph.DefaultParams().WithMaxIterations(0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(buildStore(t, tt.params, 1.0, cycle...))
			e.Run()

			if got := e.Converged(); got != tt.want {
				t.Errorf("Converged() = %v after %d iterations (diff %g), want %v",
					got, e.Iterations(), e.Diff(), tt.want)
			}
		})
	}

	empty := New(graph.NewStore(graph.DefaultParams()))
	empty.Run()
	if !empty.Converged() {
		t.Error("Expected an empty graph to count as converged")
	}
}
