// Package runner loads an edge list, ranks it and keeps the latest result
// for the CLI, the HTTP server and the file watcher.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/pagerank/pkg/analysis"
	"github.com/ritzau/pagerank/pkg/edgelist"
	"github.com/ritzau/pagerank/pkg/graph"
	"github.com/ritzau/pagerank/pkg/logging"
	"github.com/ritzau/pagerank/pkg/metrics"
	"github.com/ritzau/pagerank/pkg/pubsub"
	"github.com/ritzau/pagerank/pkg/rank"
)

// Snapshot is the immutable result of one run
type Snapshot struct {
	Params     graph.Params     `json:"params"`
	Names      []string         `json:"names"`
	Scores     []float64        `json:"scores"`
	Iterations int              `json:"iterations"`
	Diff       float64          `json:"diff"`
	Converged  bool             `json:"converged"`
	Stats      edgelist.Stats   `json:"stats"`
	Summary    analysis.Summary `json:"summary"`
	Reason     string           `json:"reason"`
	Completed  time.Time        `json:"completed"`

	index map[string]int
}

// Lookup returns the index of a node by display name
func (s *Snapshot) Lookup(name string) (int, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

// Runner executes runs one at a time
type Runner struct {
	input  string
	params graph.Params

	publisher pubsub.Publisher
	metrics   *metrics.Metrics
	observer  rank.Observer
	onLoaded  func(*graph.Store)

	crossCheck bool

	mu sync.Mutex // prevents concurrent runs

	snapMu   sync.RWMutex
	snapshot *Snapshot
}

// New creates a runner for an input path; "" or "-" reads standard input
func New(input string, p graph.Params) *Runner {
	return &Runner{input: input, params: p}
}

// WithPublisher publishes run progress and results
func (r *Runner) WithPublisher(p pubsub.Publisher) *Runner {
	r.publisher = p
	return r
}

// WithMetrics records every run
func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

// WithObserver forwards every iteration of the engine
func (r *Runner) WithObserver(o rank.Observer) *Runner {
	r.observer = o
	return r
}

// WithLoadedHook is called with the store after loading and before ranking
func (r *Runner) WithLoadedHook(fn func(*graph.Store)) *Runner {
	r.onLoaded = fn
	return r
}

// WithCrossCheck compares every result with gonum's PageRank and records
// the largest deviation in the summary
func (r *Runner) WithCrossCheck(enabled bool) *Runner {
	r.crossCheck = enabled
	return r
}

// Input returns the input path
func (r *Runner) Input() string {
	return r.input
}

// Snapshot returns the latest successful result, or nil before the first one
func (r *Runner) Snapshot() *Snapshot {
	r.snapMu.RLock()
	defer r.snapMu.RUnlock()
	return r.snapshot
}

// Run loads the input into a fresh store, ranks it and replaces the
// snapshot. A failed run keeps the previous snapshot.
func (r *Runner) Run(ctx context.Context, reason string) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	snap, err := r.run(ctx, reason)
	elapsed := time.Since(start)

	if err != nil {
		logging.Error("ranking run failed", "reason", reason, "error", err)
		r.observe(metrics.StatusFailure, elapsed)
		r.publish(pubsub.TopicRanks, pubsub.EventRunFailed, pubsub.RankUpdate{Reason: reason, Error: err.Error()})
		return nil, err
	}

	status := metrics.StatusConverged
	if !snap.Converged {
		status = metrics.StatusCapped
		logging.Warn("iteration cap reached before convergence",
			"iterations", snap.Iterations, "diff", snap.Diff, "convergence", snap.Params.Convergence)
	}
	r.observe(status, elapsed)
	if r.metrics != nil {
		r.metrics.SetResult(snap.Summary.Nodes, snap.Summary.Arcs, snap.Iterations, snap.Diff)
		r.metrics.AddSkippedLines(snap.Stats.Skipped)
	}

	r.snapMu.Lock()
	r.snapshot = snap
	r.snapMu.Unlock()

	r.publish(pubsub.TopicRanks, pubsub.EventRankUpdated, pubsub.RankUpdate{
		Reason:     reason,
		Nodes:      snap.Summary.Nodes,
		Arcs:       snap.Summary.Arcs,
		Iterations: snap.Iterations,
		Diff:       snap.Diff,
		Converged:  snap.Converged,
	})

	logging.Info("ranking run finished",
		"reason", reason,
		"nodes", snap.Summary.Nodes,
		"iterations", snap.Iterations,
		"durationMs", elapsed.Milliseconds(),
	)
	return snap, nil
}

func (r *Runner) run(ctx context.Context, reason string) (*Snapshot, error) {
	if err := r.params.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logging.Info("starting ranking run", "reason", reason, "input", r.input)
	r.publish(pubsub.TopicStatus, pubsub.EventLoading, pubsub.RunStatus{State: "loading", Reason: reason, Input: r.input})

	store := graph.NewStore(r.params)
	stats, err := edgelist.NewLoader(r.params).LoadFile(r.input, store)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled after loading: %w", err)
	}
	if r.onLoaded != nil {
		r.onLoaded(store)
	}

	r.publish(pubsub.TopicStatus, pubsub.EventRanking, pubsub.RunStatus{State: "ranking", Reason: reason, Input: r.input})

	engine := rank.New(store)
	if r.observer != nil {
		engine.WithObserver(r.observer)
	}
	engine.Run()

	scores := engine.Scores()
	names := store.Names()

	summary := analysis.Summarize(store, scores)
	if r.crossCheck {
		dev := analysis.ReferenceDeviation(store, scores, r.params.Alpha, r.params.Convergence)
		summary.ReferenceDeviation = &dev
		logging.Debug("compared with reference ranking", "maxDeviation", dev)
	}

	snap := &Snapshot{
		Params:     r.params,
		Names:      names,
		Scores:     scores,
		Iterations: engine.Iterations(),
		Diff:       engine.Diff(),
		Converged:  engine.Converged(),
		Stats:      stats,
		Summary:    summary,
		Reason:     reason,
		Completed:  time.Now(),
		index:      make(map[string]int, len(names)),
	}
	for i, name := range names {
		snap.index[name] = i
	}
	return snap, nil
}

func (r *Runner) observe(status string, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.ObserveRun(status, elapsed.Seconds())
	}
}

func (r *Runner) publish(topic, eventType string, data interface{}) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(topic, eventType, data); err != nil && !errors.Is(err, pubsub.ErrClosed) {
		logging.Warn("failed to publish event", "topic", topic, "type", eventType, "error", err)
	}
}
