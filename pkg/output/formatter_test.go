package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/pagerank/pkg/analysis"
	"github.com/ritzau/pagerank/pkg/edgelist"
	"github.com/ritzau/pagerank/pkg/graph"
)

func init() {
	color.NoColor = true
}

func newTestReporter() (*Reporter, *bytes.Buffer, *bytes.Buffer) {
	var out, diag bytes.Buffer
	return NewReporter(&out, &diag), &out, &diag
}

func TestPrintParams(t *testing.T) {
	r, out, _ := newTestReporter()

	r.PrintParams(graph.DefaultParams())

	want := "alpha = 0.85 convergence = 1e-06 max_iterations = 100 numeric = false delimiter = '=>'\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestPrintTable(t *testing.T) {
	s := graph.NewStore(graph.DefaultParams())
	a, b := s.InsertMapping("a"), s.InsertMapping("b")
	s.AddArc(a, b, 0.5)
	s.AddArc(b, a, 1)

	r, out, _ := newTestReporter()
	r.PrintTable(s)

	want := "0:[ b.1 ]\n1:[ a.0.5 ]\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestPrintOutgoing(t *testing.T) {
	s := graph.NewStore(graph.DefaultParams().WithNumeric(true))
	s.AddArc(0, 1, 1)
	s.AddArc(0, 2, 1)

	r, out, _ := newTestReporter()
	r.PrintOutgoing(s)

	if want := "[ 2 0 0 ]\n"; out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestPrintPagerank(t *testing.T) {
	r, out, _ := newTestReporter()

	r.PrintPagerank([]float64{0.25, 0.75})

	want := "(2) [ 0.25 s = 0.25 0.75 s = 1 ] 1\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestPrintIteration(t *testing.T) {
	r, out, _ := newTestReporter()

	r.PrintIteration(0, []float64{1, 0})
	r.PrintIteration(3, []float64{0.5, 0.5})

	want := "(2) [ 1 s = 1 0 s = 1 ] 1\n3: (2) [ 0.5 s = 0.5 0.5 s = 1 ] 1\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestPrintPagerankV(t *testing.T) {
	r, out, diag := newTestReporter()

	r.PrintPagerankV([]string{"home", "about"}, []float64{0.6, 0.4})

	if want := "home = 0.6\nabout = 0.4\n"; out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
	if want := "s = 1 \n"; diag.String() != want {
		t.Errorf("Expected diagnostics %q, got %q", want, diag.String())
	}
}

func TestFormatScoreDigits(t *testing.T) {
	if got := FormatScore(1.0 / 3); got != "0.333333333333333" {
		t.Errorf("Expected 15 significant digits, got %s", got)
	}
}

func TestPrintTop(t *testing.T) {
	r, out, _ := newTestReporter()

	r.PrintTop(analysis.Top([]string{"a", "b"}, []float64{0.3, 0.7}, 0))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %q", out.String())
	}
	if !strings.HasPrefix(lines[1], "1") || !strings.Contains(lines[1], "b") {
		t.Errorf("Expected b ranked first, got %q", lines[1])
	}
}

func TestPrintSummary(t *testing.T) {
	r, out, _ := newTestReporter()

	sum := analysis.Summary{Nodes: 3, Arcs: 3, Components: 1, RankSinks: [][]string{{"a", "b", "c"}}, ScoreSum: 1}
	r.PrintSummary(edgelist.Stats{Lines: 4, Skipped: 1}, 12, 5e-7, true, sum)

	for _, want := range []string{"Nodes: 3", "Converged after 12 iterations", "RANK SINKS:", "a, b, c"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "deviation") {
		t.Errorf("Expected no deviation line without a cross-check, got:\n%s", out.String())
	}
}

func TestPrintSummaryReferenceDeviation(t *testing.T) {
	r, out, _ := newTestReporter()

	dev := 2.5e-9
	sum := analysis.Summary{Nodes: 2, Arcs: 2, Components: 1, ScoreSum: 1, ReferenceDeviation: &dev}
	r.PrintSummary(edgelist.Stats{Lines: 2}, 9, 1e-7, true, sum)

	if want := "Max deviation from gonum PageRank: 2.5e-09"; !strings.Contains(out.String(), want) {
		t.Errorf("Expected summary to contain %q, got:\n%s", want, out.String())
	}
}

func TestWriteJSON(t *testing.T) {
	r, out, _ := newTestReporter()

	rep := NewReport(graph.DefaultParams(), edgelist.Stats{Arcs: 1}, []string{"x", "y"}, []float64{0.4, 0.6}, 7, 1e-7)
	if err := r.WriteJSON(rep); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	var got Report
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Iterations != 7 || len(got.Nodes) != 2 || got.Nodes[1].Name != "y" {
		t.Errorf("Unexpected report %+v", got)
	}
	if got.Sum != 1.0 {
		t.Errorf("Expected sum 1, got %g", got.Sum)
	}
	if got.Params.Delimiter != "=>" {
		t.Errorf("Expected params to round-trip, got %+v", got.Params)
	}
}
