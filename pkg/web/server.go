// Package web serves the latest ranking over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritzau/pagerank/pkg/analysis"
	"github.com/ritzau/pagerank/pkg/logging"
	"github.com/ritzau/pagerank/pkg/pubsub"
	"github.com/ritzau/pagerank/pkg/runner"
)

const shutdownTimeout = 5 * time.Second

// SnapshotSource provides the latest ranking, nil until the first run ends
type SnapshotSource interface {
	Snapshot() *runner.Snapshot
}

// NodeDetail describes one node
type NodeDetail struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// SummaryResponse is returned by /api/summary
type SummaryResponse struct {
	Summary    analysis.Summary `json:"summary"`
	Lines      int              `json:"lines"`
	Skipped    int              `json:"skipped"`
	Duplicates int              `json:"duplicates"`
	Iterations int              `json:"iterations"`
	Diff       float64          `json:"diff"`
	Converged  bool             `json:"converged"`
	Reason     string           `json:"reason"`
	Completed  time.Time        `json:"completed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	source    SnapshotSource
	publisher pubsub.Publisher
	gatherer  prometheus.Gatherer
}

// NewServer creates a server. A nil gatherer leaves /metrics unrouted.
func NewServer(source SnapshotSource, publisher pubsub.Publisher, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		source:    source,
		publisher: publisher,
		gatherer:  gatherer,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/subscribe/ranks", s.handleSubscribeRanks).Methods("GET")

	s.router.HandleFunc("/api/params", s.handleParams).Methods("GET")
	s.router.HandleFunc("/api/ranks", s.handleRanks).Methods("GET")
	s.router.HandleFunc("/api/nodes/{name}", s.handleNode).Methods("GET")
	s.router.HandleFunc("/api/summary", s.handleSummary).Methods("GET")

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

// Handler returns the routes wrapped in request logging
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// snapshot writes 503 and returns nil while no run has finished
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) *runner.Snapshot {
	snap := s.source.Snapshot()
	if snap == nil {
		writeError(w, r, http.StatusServiceUnavailable, "no ranking available yet")
	}
	return snap
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w, r)
	if snap == nil {
		return
	}
	writeJSON(w, r, http.StatusOK, snap.Params)
}

func (s *Server) handleRanks(w http.ResponseWriter, r *http.Request) {
	n := 0
	if v := r.URL.Query().Get("top"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid top %q", v))
			return
		}
		n = parsed
	}

	snap := s.snapshot(w, r)
	if snap == nil {
		return
	}
	writeJSON(w, r, http.StatusOK, analysis.Top(snap.Names, snap.Scores, n))
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w, r)
	if snap == nil {
		return
	}

	name := mux.Vars(r)["name"]
	idx, ok := snap.Lookup(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Sprintf("unknown node %q", name))
		return
	}

	detail := NodeDetail{Index: idx, Name: name, Score: snap.Scores[idx]}
	for _, row := range analysis.Top(snap.Names, snap.Scores, 0) {
		if row.Index == idx {
			detail.Rank = row.Rank
			break
		}
	}
	writeJSON(w, r, http.StatusOK, detail)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w, r)
	if snap == nil {
		return
	}
	writeJSON(w, r, http.StatusOK, SummaryResponse{
		Summary:    snap.Summary,
		Lines:      snap.Stats.Lines,
		Skipped:    snap.Stats.Skipped,
		Duplicates: snap.Stats.Duplicates,
		Iterations: snap.Iterations,
		Diff:       snap.Diff,
		Converged:  snap.Converged,
		Reason:     snap.Reason,
		Completed:  snap.Completed,
	})
}

func (s *Server) handleSubscribeRanks(w http.ResponseWriter, r *http.Request) {
	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicRanks)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, _ := w.(http.Flusher)
	// Safari waits for the first bytes before opening the stream
	fmt.Fprintf(w, ": connected\n\n")
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Start serves on port until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down web server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	logging.Info("web server stopped")
	return nil
}
