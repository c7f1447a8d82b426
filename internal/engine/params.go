// Package engine runs the parallel escape-time evaluation: it partitions the
// grid across workers, aggregates their progress signals, and collects the
// finalized samples.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/zjrosen/mandelgrid/internal/grid"
	"github.com/zjrosen/mandelgrid/internal/partition"
)

// DefaultBatchSize is the number of samples a worker finishes between progress signals.
const DefaultBatchSize = 1000

var (
	ErrInvalidIterations = errors.New("max iterations must be positive")
	ErrInvalidRadius     = errors.New("escape radius must be a finite positive number")
)

// Params are the immutable parameters of one run.
type Params struct {
	Grid          grid.Spec
	MaxIterations int
	EscapeRadius  float64
	Workers       int
	// BatchSize is the progress granularity; zero or negative means DefaultBatchSize.
	BatchSize int
}

// Validate checks every parameter, including the worker count against the
// number of samples the grid will produce, so a run never starts with a
// partitioning it cannot honour.
func (p Params) Validate() error {
	if err := p.Grid.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	if p.MaxIterations <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidIterations, p.MaxIterations)
	}
	if !(p.EscapeRadius > 0) || math.IsInf(p.EscapeRadius, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidRadius, p.EscapeRadius)
	}
	if err := partition.Check(p.Grid.Count(), p.Workers); err != nil {
		return fmt.Errorf("threads: %w", err)
	}
	return nil
}

func (p Params) batchSize() int {
	if p.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return p.BatchSize
}

// Key identifies the evaluated dataset. Workers and BatchSize are left out
// because the result does not depend on them.
func (p Params) Key() string {
	origin := p.Grid.Origin
	if origin == "" {
		origin = grid.OriginShifted
	}
	return fmt.Sprintf("re[%v,%v] im[%v,%v] d=%v %s n=%d r=%v",
		p.Grid.ReMin, p.Grid.ReMax, p.Grid.ImMin, p.Grid.ImMax, p.Grid.Delta,
		origin, p.MaxIterations, p.EscapeRadius)
}
