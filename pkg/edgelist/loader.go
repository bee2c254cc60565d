// Package edgelist reads weighted arcs from line-oriented text into a
// graph.Store. A line looks like
//
//	<from> => <weight> => <to>
//
// with a configurable delimiter. Lines without two delimiters are skipped,
// as are weights that are not finite numbers. A line starting with "#" is a
// comment unless it contains the delimiter, so "#tag => 1 => b" is an arc
// from the label "#tag".
package edgelist

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ritzau/pagerank/pkg/graph"
	"github.com/ritzau/pagerank/pkg/logging"
)

// ErrInputUnavailable is returned when the input cannot be opened
var ErrInputUnavailable = errors.New("cannot open input")

// ProgressInterval is the number of lines between progress messages
const ProgressInterval = 100000

const maxLineSize = 1024 * 1024

// Stats describes one load
type Stats struct {
	Lines      int `json:"lines"`      // lines read, blank and skipped ones included
	Arcs       int `json:"arcs"`       // arcs accepted by the store
	Duplicates int `json:"duplicates"` // well-formed arcs rejected as duplicates
	Skipped    int `json:"skipped"`    // malformed lines
	Vertices   int `json:"vertices"`   // row count after loading
}

// Loader parses edge lists with a fixed delimiter and identity mode
type Loader struct {
	params graph.Params
}

// NewLoader creates a loader using the delimiter and numeric flag of p
func NewLoader(p graph.Params) *Loader {
	return &Loader{params: p}
}

// LoadFile resets s and fills it from path. An empty path or "-" reads
// standard input; a ".gz" suffix is decompressed on the fly.
func (l *Loader) LoadFile(path string, s *graph.Store) (Stats, error) {
	if path == "" || path == "-" {
		logging.Info("reading edges from standard input")
		return l.Load(os.Stdin, s)
	}

	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("%w %s: %w", ErrInputUnavailable, path, err)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Stats{}, fmt.Errorf("%w %s: %w", ErrInputUnavailable, path, err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	logging.Info("reading edges", "path", path)
	return l.Load(r, s)
}

// Load resets s and adds every well-formed arc read from r
func (l *Loader) Load(r io.Reader, s *graph.Store) (Stats, error) {
	s.Reset()

	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		stats.Lines++

		if !l.isBlankOrComment(line) {
			l.addLine(line, s, &stats)
		}

		if stats.Lines%ProgressInterval == 0 {
			logging.Info("reading edges", "lines", stats.Lines, "vertices", s.NumRows())
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading edges at line %d: %w", stats.Lines+1, err)
	}

	stats.Vertices = s.NumRows()
	s.Reserve(stats.Vertices)

	logging.Info("read edges",
		"lines", stats.Lines,
		"vertices", stats.Vertices,
		"arcs", stats.Arcs,
		"duplicates", stats.Duplicates,
		"skipped", stats.Skipped,
	)
	return stats, nil
}

func (l *Loader) addLine(line string, s *graph.Store, stats *Stats) {
	a, ok := l.parseLine(line, s)
	if !ok {
		stats.Skipped++
		if l.params.Trace {
			logging.Trace("skipping malformed line", "line", stats.Lines, "text", line)
		}
		return
	}

	if s.AddArc(a.from, a.to, a.weight) {
		stats.Arcs++
	} else {
		stats.Duplicates++
	}
}

type arc struct {
	from, to int
	weight   float64
}

// parseLine splits a line into source, weight and destination. The
// destination is everything after the second delimiter. Labels are only
// mapped once the whole line has been validated.
func (l *Loader) parseLine(line string, s *graph.Store) (arc, bool) {
	delim := l.params.Delimiter

	fromField, rest, ok := strings.Cut(line, delim)
	if !ok {
		return arc{}, false
	}
	weightField, toField, ok := strings.Cut(rest, delim)
	if !ok {
		return arc{}, false
	}

	from, to := trim(fromField), trim(toField)
	if from == "" || to == "" {
		return arc{}, false
	}
	weight, err := strconv.ParseFloat(trim(weightField), 64)
	if err != nil || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return arc{}, false
	}

	if l.params.Numeric {
		fromIdx, err := parseIndex(from)
		if err != nil {
			return arc{}, false
		}
		toIdx, err := parseIndex(to)
		if err != nil {
			return arc{}, false
		}
		return arc{from: fromIdx, to: toIdx, weight: weight}, true
	}

	return arc{from: s.InsertMapping(from), to: s.InsertMapping(to), weight: weight}, true
}

func parseIndex(field string) (int, error) {
	idx, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	if idx < 0 {
		return 0, fmt.Errorf("negative node index %d", idx)
	}
	return idx, nil
}

// trim strips spaces and tabs only
func trim(field string) string {
	return strings.Trim(field, " \t")
}

func (l *Loader) isBlankOrComment(line string) bool {
	t := trim(line)
	if t == "" {
		return true
	}
	return strings.HasPrefix(t, "#") && !strings.Contains(t, l.params.Delimiter)
}
