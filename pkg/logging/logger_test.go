package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// captureLogs redirects the package logger for the duration of a test
func captureLogs(t *testing.T, l slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(l)
	t.Cleanup(func() {
		SetOutput(nopWriter{})
		SetLevel(slog.LevelInfo)
	})
	return &buf
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name      string
		verbosity string
		count     int
		want      slog.Level
	}{
		{name: "default", want: slog.LevelInfo},
		{name: "one v", count: 1, want: slog.LevelDebug},
		{name: "two v", count: 2, want: LevelTrace},
		{name: "many v", count: 5, want: LevelTrace},
		{name: "name wins", verbosity: "error", count: 2, want: slog.LevelError},
		{name: "case and spaces", verbosity: " Warning ", want: slog.LevelWarn},
		{name: "trace by name", verbosity: "trace", want: LevelTrace},
		{name: "unknown name falls back", verbosity: "loud", count: 1, want: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.verbosity, tt.count); got != tt.want {
				t.Errorf("ParseLevel(%q, %d) = %v, want %v", tt.verbosity, tt.count, got, tt.want)
			}
		})
	}
}

func TestCompactHandlerFormat(t *testing.T) {
	buf := captureLogs(t, LevelTrace)

	Info("read edges", "path", "a b.txt", "arcs", 3, "diff", 0.5)
	Trace("pagerank vector", "iteration", 1)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "[INFO]  ") {
		t.Errorf("Expected INFO prefix, got %q", lines[0])
	}
	if !strings.HasSuffix(lines[0], `read edges | path="a b.txt" arcs=3 diff=0.5`) {
		t.Errorf("Unexpected attrs in %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[TRACE] ") {
		t.Errorf("Expected TRACE prefix, got %q", lines[1])
	}
}

func TestCompactHandlerGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	l := slog.New(h).With("run", 2).WithGroup("engine")

	l.Debug("step", "diff", 0.25)

	if got := buf.String(); !strings.Contains(got, "| run=2 engine.diff=0.25") {
		t.Errorf("Expected grouped attributes, got %q", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	Debug("hidden")
	Trace("hidden too")

	if buf.Len() != 0 {
		t.Errorf("Expected nothing below INFO, got %q", buf.String())
	}
	if Enabled(slog.LevelDebug) {
		t.Error("DEBUG should be disabled at INFO")
	}
}

func TestJSONOutputNamesTrace(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetJSONOutput(LevelTrace)
	t.Cleanup(func() {
		SetOutput(nopWriter{})
		SetLevel(slog.LevelInfo)
	})

	Trace("pagerank vector")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Unmarshal(%q) error = %v", buf.String(), err)
	}
	if record["level"] != "TRACE" {
		t.Errorf("Expected level TRACE, got %v", record["level"])
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	buf := captureLogs(t, slog.LevelInfo)

	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		http.Error(w, "missing", http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/nodes/x", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc123" {
		t.Errorf("Expected handler to see request ID abc123, got %q", seen)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "abc123" {
		t.Errorf("Expected response header abc123, got %q", got)
	}
	if !strings.Contains(buf.String(), "[WARN]") || !strings.Contains(buf.String(), "status=404") {
		t.Errorf("Expected a WARN line with status 404, got %q", buf.String())
	}
}

func TestRequestIDGenerated(t *testing.T) {
	captureLogs(t, slog.LevelError)

	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	got := rec.Header().Get(RequestIDHeader)
	if len(got) != 36 {
		t.Errorf("Expected a generated UUID, got %q", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "r1")
	if GetRequestID(ctx) != "r1" {
		t.Errorf("Expected r1, got %q", GetRequestID(ctx))
	}
	if GetRequestID(context.Background()) != "" {
		t.Error("Expected empty request ID on a bare context")
	}
}
