package watcher

import (
	"context"
	"time"

	"github.com/ritzau/pagerank/pkg/logging"
)

// Defaults used by the CLI
const (
	DefaultQuietPeriod = 200 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// Debouncer batches rapid change events so that a burst of writes leads to
// one reload. A batch is released after quietPeriod without new events, or
// maxWait after its first event, whichever comes first.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	quiet := time.NewTimer(d.quietPeriod)
	stopTimer(quiet)
	deadline := time.NewTimer(d.maxWait)
	stopTimer(deadline)

	var pending batch

	flush := func() {
		stopTimer(quiet)
		stopTimer(deadline)
		if pending.empty() {
			return
		}

		logging.Debug("flushing accumulated events", "count", pending.count)
		select {
		case d.output <- pending.take():
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			if pending.empty() {
				deadline.Reset(d.maxWait)
			}
			pending.add(event.Type, event.Paths...)
			stopTimer(quiet)
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			flush()

		case <-deadline.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
