// Command pagerank ranks the nodes of a weighted edge list.
//
//	pagerank [flags] [input]
//
// Each input line reads "<from> => <weight> => <to>". Without an input path
// the edge list is read from standard input.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/pagerank/pkg/analysis"
	"github.com/ritzau/pagerank/pkg/config"
	"github.com/ritzau/pagerank/pkg/graph"
	"github.com/ritzau/pagerank/pkg/logging"
	"github.com/ritzau/pagerank/pkg/metrics"
	"github.com/ritzau/pagerank/pkg/output"
	"github.com/ritzau/pagerank/pkg/pubsub"
	"github.com/ritzau/pagerank/pkg/rank"
	"github.com/ritzau/pagerank/pkg/runner"
	"github.com/ritzau/pagerank/pkg/watcher"
	"github.com/ritzau/pagerank/pkg/web"
)

var (
	errUsage      = errors.New("usage")
	errWatchStdin = errors.New("--watch needs an input file, not standard input")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("pagerank", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if cfg.Watch && (cfg.Input == "" || cfg.Input == "-") {
		return fmt.Errorf("%w: %w", errUsage, errWatchStdin)
	}

	setupLogging(cfg, stderr)

	params := cfg.Params()
	reporter := output.NewReporter(stdout, stderr)
	r := newRunner(cfg, params, reporter)

	if !cfg.Serve && !cfg.Watch {
		snap, err := r.Run(ctx, "initial run")
		if err != nil {
			return err
		}
		return report(reporter, cfg, snap)
	}

	return runLive(ctx, cfg, r, reporter)
}

func setupLogging(cfg *config.Config, stderr io.Writer) {
	logging.SetOutput(stderr)
	level := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
}

// newRunner wires trace dumps into the run when --trace is set
func newRunner(cfg *config.Config, params graph.Params, reporter *output.Reporter) *runner.Runner {
	r := runner.New(cfg.Input, params).WithCrossCheck(cfg.CrossCheck)
	if !params.Trace {
		return r
	}

	reporter.PrintParams(params)
	return r.
		WithLoadedHook(func(s *graph.Store) {
			reporter.PrintTable(s)
			reporter.PrintOutgoing(s)
		}).
		WithObserver(func(it rank.Iteration) {
			reporter.PrintIteration(it.Number, it.Scores)
		})
}

// report writes one snapshot in the configured format
func report(reporter *output.Reporter, cfg *config.Config, snap *runner.Snapshot) error {
	if cfg.Format == config.FormatJSON {
		rep := output.NewReport(snap.Params, snap.Stats, snap.Names, snap.Scores, snap.Iterations, snap.Diff)
		if cfg.Summary || cfg.CrossCheck {
			rep.Summary = &snap.Summary
		}
		return reporter.WriteJSON(rep)
	}

	switch {
	case cfg.Top > 0:
		reporter.PrintTop(analysis.Top(snap.Names, snap.Scores, cfg.Top))
	case cfg.Format == config.FormatVector:
		reporter.PrintPagerank(snap.Scores)
	default:
		reporter.PrintPagerankV(snap.Names, snap.Scores)
	}

	if cfg.Summary || cfg.CrossCheck {
		reporter.PrintSummary(snap.Stats, snap.Iterations, snap.Diff, snap.Converged, snap.Summary)
	}
	return nil
}

// runLive serves and/or watches until ctx is cancelled. A failed reload
// is logged and the previous ranking stays in place.
func runLive(ctx context.Context, cfg *config.Config, r *runner.Runner, reporter *output.Reporter) error {
	pub := pubsub.NewSSEPublisher()
	defer pub.Close()
	r.WithPublisher(pub)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Serve {
		m := metrics.NewMetrics()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		r.WithMetrics(m)

		server := web.NewServer(r, pub, reg)
		g.Go(func() error {
			return server.Start(ctx, cfg.Port)
		})
	}

	var changes <-chan watcher.ChangeEvent
	if cfg.Watch {
		fw, err := watcher.NewFileWatcher(cfg.Input)
		if err != nil {
			return err
		}
		if err := fw.Start(ctx); err != nil {
			return err
		}
		d := watcher.NewDebouncer(fw.Events(), watcher.DefaultQuietPeriod, watcher.DefaultMaxWait)
		d.Start(ctx)
		changes = d.Output()
	}

	rankAndReport := func(reason string) {
		snap, err := r.Run(ctx, reason)
		if err != nil {
			return
		}
		// the server publishes results itself
		if !cfg.Serve {
			if err := report(reporter, cfg, snap); err != nil {
				logging.Error("failed to write report", "error", err)
			}
		}
	}

	g.Go(func() error {
		rankAndReport("initial run")
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-changes:
				if !ok {
					return nil
				}
				change := watcher.AnalyzeChanges(event)
				if !change.NeedReload {
					logging.Warn("input unavailable, keeping last ranking", "reason", change.Reason)
					continue
				}
				rankAndReport(change.Reason)
			}
		}
	})

	return g.Wait()
}
