package graph

import (
	"errors"
	"fmt"
	"math"
)

// Default ranking parameters
const (
	DefaultAlpha         = 0.85
	DefaultConvergence   = 1e-6
	DefaultMaxIterations = 100
	DefaultDelimiter     = "=>"
)

// Parameter validation errors
var (
	ErrInvalidAlpha       = errors.New("alpha must be within [0, 1]")
	ErrInvalidConvergence = errors.New("convergence must be a positive number")
	ErrEmptyDelimiter     = errors.New("delimiter must not be empty")
	ErrNegativeIterations = errors.New("max iterations must not be negative")
)

// Params is the immutable configuration shared by the store, the loader and
// the rank engine. Use the With* methods to derive a modified copy.
type Params struct {
	Alpha         float64 `json:"alpha"`          // damping factor
	Convergence   float64 `json:"convergence"`    // L1 threshold between successive iterations
	MaxIterations int     `json:"max_iterations"` // iteration cap
	Numeric       bool    `json:"numeric"`        // node ids are raw indices instead of labels
	Delimiter     string  `json:"delimiter"`      // field separator in edge lists
	Trace         bool    `json:"trace"`          // dump internal state while loading and ranking
}

// DefaultParams returns alpha 0.85, convergence 1e-6, 100 iterations,
// label mode and the "=>" delimiter.
func DefaultParams() Params {
	return Params{
		Alpha:         DefaultAlpha,
		Convergence:   DefaultConvergence,
		MaxIterations: DefaultMaxIterations,
		Delimiter:     DefaultDelimiter,
	}
}

func (p Params) WithAlpha(alpha float64) Params {
	p.Alpha = alpha
	return p
}

func (p Params) WithConvergence(c float64) Params {
	p.Convergence = c
	return p
}

func (p Params) WithMaxIterations(n int) Params {
	p.MaxIterations = n
	return p
}

func (p Params) WithNumeric(numeric bool) Params {
	p.Numeric = numeric
	return p
}

func (p Params) WithDelimiter(d string) Params {
	p.Delimiter = d
	return p
}

func (p Params) WithTrace(trace bool) Params {
	p.Trace = trace
	return p
}

// Validate reports the first parameter that makes ranking meaningless.
func (p Params) Validate() error {
	if math.IsNaN(p.Alpha) || p.Alpha < 0 || p.Alpha > 1 {
		return fmt.Errorf("%w: got %g", ErrInvalidAlpha, p.Alpha)
	}
	if math.IsNaN(p.Convergence) || p.Convergence <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidConvergence, p.Convergence)
	}
	if p.MaxIterations < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeIterations, p.MaxIterations)
	}
	if p.Delimiter == "" {
		return ErrEmptyDelimiter
	}
	return nil
}

// String renders the parameters the way the reports print them.
func (p Params) String() string {
	return fmt.Sprintf("alpha = %g convergence = %g max_iterations = %d numeric = %t delimiter = '%s'",
		p.Alpha, p.Convergence, p.MaxIterations, p.Numeric, p.Delimiter)
}
