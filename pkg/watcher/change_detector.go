package watcher

import "time"

// ChangeAnalysis describes whether a batch of changes warrants a new run
type ChangeAnalysis struct {
	NeedReload   bool
	Reason       string
	ChangedFiles []string
}

// AnalyzeChanges decides what to do about a debounced event. A removed
// input is left alone until it reappears; the last good ranking stays
// served in the meantime.
func AnalyzeChanges(event ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeModified:
		analysis.NeedReload = true
		analysis.Reason = "input changed"
	case ChangeTypeRemoved:
		analysis.Reason = "input removed"
	}

	return analysis
}

// batch merges the changes seen within one window into a single event.
// The latest change decides its type, so a rename away followed by a
// create (an editor's atomic save) comes out as one modification.
type batch struct {
	paths []string
	last  ChangeType
	count int
}

func (b *batch) add(t ChangeType, paths ...string) {
	b.paths = append(b.paths, paths...)
	b.last = t
	b.count++
}

func (b *batch) empty() bool {
	return b.count == 0
}

// take returns the merged event and resets the batch
func (b *batch) take() ChangeEvent {
	event := ChangeEvent{Type: b.last, Paths: b.paths, Timestamp: time.Now()}
	*b = batch{}
	return event
}
