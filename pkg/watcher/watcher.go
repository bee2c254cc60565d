// Package watcher reports changes to the input edge list so it can be
// ranked again.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/pagerank/pkg/logging"
)

// batchWindow groups the burst of raw events a single save produces
const batchWindow = 50 * time.Millisecond

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeModified ChangeType = iota // written or created
	ChangeTypeRemoved                    // removed or renamed away
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeModified:
		return "modified"
	case ChangeTypeRemoved:
		return "removed"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches one file. It watches the parent directory so that
// editors replacing the file by rename are still noticed.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
}

// NewFileWatcher creates a watcher for path
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start begins watching. Events stop and the channel closes when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		_ = fw.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("started watching input", "path", fw.path)
	go fw.processEvents(ctx)
	return nil
}

func classify(op fsnotify.Op) (ChangeType, bool) {
	switch {
	case op.Has(fsnotify.Write), op.Has(fsnotify.Create):
		return ChangeTypeModified, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return ChangeTypeRemoved, true
	}
	return 0, false
}

// processEvents filters directory events down to the watched file and
// merges each burst into one event
func (fw *FileWatcher) processEvents(ctx context.Context) {
	defer close(fw.events)
	defer fw.watcher.Close()

	var pending batch
	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	send := func(e ChangeEvent) bool {
		select {
		case fw.events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	flush := func() bool {
		if pending.empty() {
			return true
		}
		return send(pending.take())
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			t, relevant := classify(event.Op)
			if !relevant {
				continue
			}
			logging.Trace("input event", "op", event.Op.String(), "path", event.Name)
			pending.add(t, event.Name)
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			if !flush() {
				return
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Path returns the absolute path being watched
func (fw *FileWatcher) Path() string {
	return fw.path
}
