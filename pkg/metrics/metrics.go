// Package metrics provides Prometheus collectors for ranking runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricRunsTotal         = "pagerank_runs_total"
	MetricRunDuration       = "pagerank_run_duration_seconds"
	MetricIterations        = "pagerank_iterations"
	MetricLastDiff          = "pagerank_last_diff"
	MetricNodes             = "pagerank_nodes"
	MetricArcs              = "pagerank_arcs"
	MetricSkippedLinesTotal = "pagerank_skipped_lines_total"
)

// Run status labels
const (
	StatusConverged = "converged"
	StatusCapped    = "capped" // stopped at the iteration cap
	StatusFailure   = "failure"
)

// Metrics contains Prometheus metrics for ranking runs.
// All operations are thread-safe.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  prometheus.Histogram
	iterations   prometheus.Gauge
	lastDiff     prometheus.Gauge
	nodes        prometheus.Gauge
	arcs         prometheus.Gauge
	skippedLines prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Total number of ranking runs by outcome",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRunDuration,
				Help:    "Histogram of load plus rank duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
			},
		),
		iterations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricIterations,
			Help: "Iterations performed by the last successful run",
		}),
		lastDiff: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastDiff,
			Help: "L1 distance of the final iteration of the last successful run",
		}),
		nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricNodes,
			Help: "Nodes in the last loaded graph",
		}),
		arcs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricArcs,
			Help: "Arcs in the last loaded graph",
		}),
		skippedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSkippedLinesTotal,
			Help: "Total number of malformed input lines skipped",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveRun records a finished run
func (m *Metrics) ObserveRun(status string, seconds float64) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
}

// SetResult records the size of the graph and how the iteration ended
func (m *Metrics) SetResult(nodes, arcs, iterations int, diff float64) {
	m.nodes.Set(float64(nodes))
	m.arcs.Set(float64(arcs))
	m.iterations.Set(float64(iterations))
	m.lastDiff.Set(diff)
}

// AddSkippedLines adds malformed lines from one load
func (m *Metrics) AddSkippedLines(n int) {
	if n > 0 {
		m.skippedLines.Add(float64(n))
	}
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.iterations,
		m.lastDiff,
		m.nodes,
		m.arcs,
		m.skippedLines,
	}
}
