// Package pubsub fans ranking events out to Server-Sent Events subscribers.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
)

// Topics
const (
	TopicRanks  = "ranks"  // finished runs
	TopicStatus = "status" // run progress
)

// Event types
const (
	EventRankUpdated = "rank_updated"
	EventRunFailed   = "run_failed"
	EventLoading     = "loading"
	EventRanking     = "ranking"
)

// ErrClosed is returned by a publisher after Close
var ErrClosed = errors.New("publisher is closed")

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // increases per topic
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	Topic() string

	// Events is closed when the publisher shuts down
	Events() <-chan Event

	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation will close the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish marshals data and sends it to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	Close() error
}

// RunStatus is published on TopicStatus while a run progresses
type RunStatus struct {
	State  string `json:"state"`  // loading, ranking
	Reason string `json:"reason"` // what triggered the run
	Input  string `json:"input"`
}

// RankUpdate is published on TopicRanks when a run ends
type RankUpdate struct {
	Reason     string  `json:"reason"`
	Nodes      int     `json:"nodes"`
	Arcs       int     `json:"arcs"`
	Iterations int     `json:"iterations"`
	Diff       float64 `json:"diff"`
	Converged  bool    `json:"converged"`
	Error      string  `json:"error,omitempty"`
}
