// Package sample defines the grid sample and its escape-time outcome.
package sample

import (
	"errors"
	"fmt"
	"math"
)

// ErrAlreadyFinalized is returned when an outcome is assigned to a sample twice.
var ErrAlreadyFinalized = errors.New("sample already finalized")

// Kind discriminates the outcome of evaluating a sample.
type Kind uint8

const (
	// Pending is the state of a freshly generated sample.
	Pending Kind = iota
	// Converged means the orbit stayed within the escape radius for every iteration.
	Converged
	// Diverged means the orbit exceeded the escape radius before the iteration limit.
	Diverged
)

func (k Kind) String() string {
	switch k {
	case Pending:
		return "pending"
	case Converged:
		return "converged"
	case Diverged:
		return "diverged"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Outcome is the two-variant result of the escape-time test.
// Magnitude is only meaningful when Kind is Converged.
type Outcome struct {
	Kind      Kind
	Magnitude float64
}

// ConvergedAt returns a Converged outcome with the final modulus m.
func ConvergedAt(m float64) Outcome {
	return Outcome{Kind: Converged, Magnitude: m}
}

// Escaped returns a Diverged outcome.
func Escaped() Outcome {
	return Outcome{Kind: Diverged}
}

// Value maps the outcome to the numeric value of the exported dataset:
// the converged modulus, or NaN for diverged (and pending) samples.
func (o Outcome) Value() float64 {
	if o.Kind == Converged {
		return o.Magnitude
	}
	return math.NaN()
}

func (o Outcome) String() string {
	if o.Kind == Converged {
		return fmt.Sprintf("converged(%g)", o.Magnitude)
	}
	return o.Kind.String()
}

// Sample is one point of the grid.
type Sample struct {
	Position complex128
	Outcome  Outcome
}

// New returns a pending sample at (re, im).
func New(re, im float64) Sample {
	return Sample{Position: complex(re, im)}
}

// Re returns the real component of the position.
func (s Sample) Re() float64 { return real(s.Position) }

// Im returns the imaginary component of the position.
func (s Sample) Im() float64 { return imag(s.Position) }

// Done reports whether an outcome has been assigned.
func (s Sample) Done() bool { return s.Outcome.Kind != Pending }

// Finalize assigns the outcome. A sample can only be finalized once.
func (s *Sample) Finalize(o Outcome) error {
	if s.Done() {
		return fmt.Errorf("%w: %v", ErrAlreadyFinalized, s.Position)
	}
	if o.Kind == Pending {
		return fmt.Errorf("finalizing %v with a pending outcome", s.Position)
	}
	s.Outcome = o
	return nil
}
