// Package config layers defaults, a TOML file, PAGERANK_ environment
// variables and command-line flags into one Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/pagerank/pkg/graph"
)

// DefaultFile is read when present and no --config is given
const DefaultFile = "pagerank.toml"

// EnvPrefix prefixes environment overrides, e.g. PAGERANK_ALPHA=0.9
const EnvPrefix = "PAGERANK_"

// Output formats
const (
	FormatText   = "text"   // one "name = score" line per node
	FormatVector = "vector" // the whole vector with running sums
	FormatJSON   = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrInvalidPort   = errors.New("port must be between 1 and 65535")
)

// Config holds all configuration for the application
type Config struct {
	Alpha         float64 `koanf:"alpha"`
	Convergence   float64 `koanf:"convergence"`
	MaxIterations int     `koanf:"max_iterations"`
	Numeric       bool    `koanf:"numeric"`
	Delimiter     string  `koanf:"delimiter"`
	Trace         bool    `koanf:"trace"`

	Input   string `koanf:"input"`
	Format  string `koanf:"format"`
	Top     int    `koanf:"top"`
	Summary bool   `koanf:"summary"`

	CrossCheck bool `koanf:"crosscheck"`

	Serve bool `koanf:"serve"`
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`

	Verbosity  string `koanf:"verbosity"`
	VerboseCnt int    `koanf:"verbose"`
	JSONLogs   bool   `koanf:"json_logs"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"alpha":          graph.DefaultAlpha,
		"convergence":    graph.DefaultConvergence,
		"max_iterations": graph.DefaultMaxIterations,
		"numeric":        false,
		"delimiter":      graph.DefaultDelimiter,
		"trace":          false,
		"input":          "",
		"format":         FormatText,
		"top":            0,
		"summary":        false,
		"crosscheck":     false,
		"serve":          false,
		"port":           8080,
		"watch":          false,
		"verbosity":      "",
		"verbose":        0,
		"json_logs":      false,
	}
}

// RegisterFlags declares the command-line surface on f
func RegisterFlags(f *pflag.FlagSet) {
	f.Float64P("alpha", "a", graph.DefaultAlpha, "damping factor")
	f.Float64P("convergence", "c", graph.DefaultConvergence, "stop when the L1 change drops to this value")
	f.IntP("max-iterations", "i", graph.DefaultMaxIterations, "iteration cap")
	f.BoolP("numeric", "n", false, "node ids are non-negative integers")
	f.StringP("delimiter", "d", graph.DefaultDelimiter, "field delimiter in the edge list")
	f.BoolP("trace", "t", false, "dump the table and every iteration")
	f.StringP("format", "f", FormatText, "output format: text, vector or json")
	f.Int("top", 0, "print only the N highest ranked nodes")
	f.Bool("summary", false, "print graph and convergence diagnostics")
	f.Bool("crosscheck", false, "compare the result with gonum's PageRank (meaningful for 1/outdegree weights)")
	f.Bool("serve", false, "serve results over HTTP")
	f.Int("port", 8080, "HTTP port for --serve")
	f.Bool("watch", false, "recompute when the input file changes")
	f.CountP("verbose", "v", "increase log verbosity (-v, -vv, -vvv)")
	f.String("verbosity", "", "log level: error, warn, info, debug or trace")
	f.Bool("json-logs", false, "log as JSON")
	f.String("config", "", "configuration file (default "+DefaultFile+" if present)")
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults. The first positional
// argument of f, if any, is the input path.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if err := loadFile(k, f); err != nil {
		return nil, err
	}

	// 3. Environment Variables
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.ProviderWithFlag(f, ".", k, flagKey(f)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		if f.NArg() > 0 {
			if err := k.Set("input", f.Arg(0)); err != nil {
				return nil, fmt.Errorf("failed to set input: %w", err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// loadFile reads --config when given and the default file otherwise. Only
// an explicitly named file has to exist.
func loadFile(k *koanf.Koanf, f *pflag.FlagSet) error {
	path := ""
	if f != nil && f.Lookup("config") != nil {
		path, _ = f.GetString("config")
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return nil
		}
		path = DefaultFile
	}

	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// flagKey maps dashed flag names onto the underscored config keys and
// keeps --config out of the result.
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if f.Name == "config" {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	}
}

// Params converts the ranking options into graph parameters
func (c *Config) Params() graph.Params {
	return graph.DefaultParams().
		WithAlpha(c.Alpha).
		WithConvergence(c.Convergence).
		WithMaxIterations(c.MaxIterations).
		WithNumeric(c.Numeric).
		WithDelimiter(c.Delimiter).
		WithTrace(c.Trace)
}

// Validate checks the parameters, the output format and the port
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	switch c.Format {
	case FormatText, FormatVector, FormatJSON:
	default:
		return fmt.Errorf("%w %q", ErrUnknownFormat, c.Format)
	}
	if c.Serve && (c.Port < 1 || c.Port > 65535) {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
