package testutil

import (
	"github.com/zjrosen/mandelgrid/internal/sample"
)

// Builder accumulates samples in insertion order.
type Builder struct {
	samples []sample.Sample
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithConverged adds a converged sample at (re, im) with final modulus m.
func (b *Builder) WithConverged(re, im, m float64) *Builder {
	s := sample.New(re, im)
	s.Outcome = sample.ConvergedAt(m)
	b.samples = append(b.samples, s)
	return b
}

// WithDiverged adds a diverged sample at (re, im).
func (b *Builder) WithDiverged(re, im float64) *Builder {
	s := sample.New(re, im)
	s.Outcome = sample.Escaped()
	b.samples = append(b.samples, s)
	return b
}

// WithPending adds a sample with no outcome.
func (b *Builder) WithPending(re, im float64) *Builder {
	b.samples = append(b.samples, sample.New(re, im))
	return b
}

// Build returns a copy of the accumulated samples.
func (b *Builder) Build() []sample.Sample {
	out := make([]sample.Sample, len(b.samples))
	copy(out, b.samples)
	return out
}
