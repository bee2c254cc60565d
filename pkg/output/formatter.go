// Package output renders graphs and score vectors for people and programs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/pagerank/pkg/analysis"
	"github.com/ritzau/pagerank/pkg/edgelist"
	"github.com/ritzau/pagerank/pkg/graph"
)

// ScoreDigits is the number of significant digits printed for scores
const ScoreDigits = 15

// Reporter writes reports to out. Running sums and other diagnostics that
// should not pollute piped results go to diag.
type Reporter struct {
	out  io.Writer
	diag io.Writer
}

// NewReporter creates a reporter
func NewReporter(out, diag io.Writer) *Reporter {
	return &Reporter{out: out, diag: diag}
}

// FormatScore renders a score with ScoreDigits significant digits
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', ScoreDigits, 64)
}

func formatWeight(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// PrintParams prints the parameter line
func (r *Reporter) PrintParams(p graph.Params) {
	fmt.Fprintln(r.out, p.String())
}

// PrintTable dumps every row as "i:[ from.weight ... ]"
func (r *Reporter) PrintTable(s *graph.Store) {
	for i := 0; i < s.NumRows(); i++ {
		var b strings.Builder
		fmt.Fprintf(&b, "%d:[ ", i)
		for _, l := range s.InLinks(i) {
			b.WriteString(s.NodeName(l.From))
			b.WriteByte('.')
			b.WriteString(formatWeight(l.Weight))
			b.WriteByte(' ')
		}
		b.WriteString("]")
		fmt.Fprintln(r.out, b.String())
	}
}

// PrintOutgoing dumps the out-degree vector as "[ d0 d1 ... ]"
func (r *Reporter) PrintOutgoing(s *graph.Store) {
	var b strings.Builder
	b.WriteString("[ ")
	for _, d := range s.OutDegrees() {
		b.WriteString(strconv.Itoa(d))
		b.WriteByte(' ')
	}
	b.WriteString("]")
	fmt.Fprintln(r.out, b.String())
}

// PrintPagerank prints the vector with its length and a running sum after
// every entry: "(n) [ v s = sum ... ] sum"
func (r *Reporter) PrintPagerank(scores []float64) {
	var b strings.Builder
	var sum float64
	fmt.Fprintf(&b, "(%d) [ ", len(scores))
	for _, v := range scores {
		sum += v
		fmt.Fprintf(&b, "%s s = %s ", FormatScore(v), FormatScore(sum))
	}
	fmt.Fprintf(&b, "] %s", FormatScore(sum))
	fmt.Fprintln(r.out, b.String())
}

// PrintIteration prints a vector prefixed with its iteration number. The
// seeded vector (iteration 0) has no prefix.
func (r *Reporter) PrintIteration(number int, scores []float64) {
	if number > 0 {
		fmt.Fprintf(r.out, "%d: ", number)
	}
	r.PrintPagerank(scores)
}

// PrintPagerankV prints one "name = score" line per node. The total goes to
// the diagnostics writer.
func (r *Reporter) PrintPagerankV(names []string, scores []float64) {
	var sum float64
	for i, v := range scores {
		name := strconv.Itoa(i)
		if i < len(names) {
			name = names[i]
		}
		fmt.Fprintf(r.out, "%s = %s\n", name, FormatScore(v))
		sum += v
	}
	fmt.Fprintf(r.diag, "s = %s \n", FormatScore(sum))
}

// PrintTop prints a ranking table
func (r *Reporter) PrintTop(ranked []analysis.Ranked) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	bold.Fprintf(r.out, "%-6s %-30s %s\n", "RANK", "NODE", "SCORE")
	for _, row := range ranked {
		cyan.Fprintf(r.out, "%-6d ", row.Rank)
		fmt.Fprintf(r.out, "%-30s ", row.Name)
		green.Fprintln(r.out, FormatScore(row.Score))
	}
}

// PrintSummary prints load statistics, convergence and graph structure
func (r *Reporter) PrintSummary(stats edgelist.Stats, iterations int, diff float64, converged bool, sum analysis.Summary) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Fprintln(r.out, "PageRank Summary")
	bold.Fprintln(r.out, "================")
	fmt.Fprintf(r.out, "Lines: %d (%d skipped, %d duplicate arcs)\n", stats.Lines, stats.Skipped, stats.Duplicates)
	fmt.Fprintf(r.out, "Nodes: %d  Arcs: %d\n", sum.Nodes, sum.Arcs)
	fmt.Fprintf(r.out, "Dangling: %d  Isolated: %d  Self-loops: %d\n", sum.Dangling, sum.Isolated, sum.SelfLoops)
	fmt.Fprintf(r.out, "Strongly connected components: %d\n", sum.Components)

	if converged {
		green.Fprintf(r.out, "Converged after %d iterations (diff %s)\n", iterations, FormatScore(diff))
	} else {
		yellow.Fprintf(r.out, "Stopped at the iteration cap after %d iterations (diff %s)\n", iterations, FormatScore(diff))
	}
	fmt.Fprintf(r.out, "Score sum: %s\n", FormatScore(sum.ScoreSum))
	if sum.ReferenceDeviation != nil {
		fmt.Fprintf(r.out, "Max deviation from gonum PageRank: %s\n", FormatScore(*sum.ReferenceDeviation))
	}

	if len(sum.RankSinks) > 0 {
		fmt.Fprintln(r.out)
		red.Fprintln(r.out, "RANK SINKS:")
		for _, sink := range sum.RankSinks {
			yellow.Fprintf(r.out, "  %s\n", strings.Join(sink, ", "))
		}
	}
}

// NodeScore is one node of a JSON report
type NodeScore struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Report is the machine-readable result of a run
type Report struct {
	Params     graph.Params      `json:"params"`
	Stats      edgelist.Stats    `json:"stats"`
	Iterations int               `json:"iterations"`
	Diff       float64           `json:"diff"`
	Sum        float64           `json:"sum"`
	Nodes      []NodeScore       `json:"nodes"`
	Summary    *analysis.Summary `json:"summary,omitempty"`
}

// NewReport pairs names with scores and totals the vector
func NewReport(p graph.Params, stats edgelist.Stats, names []string, scores []float64, iterations int, diff float64) Report {
	rep := Report{
		Params:     p,
		Stats:      stats,
		Iterations: iterations,
		Diff:       diff,
		Nodes:      make([]NodeScore, len(scores)),
	}
	for i, v := range scores {
		name := strconv.Itoa(i)
		if i < len(names) {
			name = names[i]
		}
		rep.Nodes[i] = NodeScore{Index: i, Name: name, Score: v}
		rep.Sum += v
	}
	return rep
}

// WriteJSON writes the report as indented JSON
func (r *Reporter) WriteJSON(rep Report) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
