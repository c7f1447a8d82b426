package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/sample"
)

// ErrResultMismatch is returned when the joined results do not cover every sample.
var ErrResultMismatch = errors.New("collected results do not match sample count")

// collector joins worker goroutines and keeps their results in worker order.
type collector struct {
	group   *errgroup.Group
	ctx     context.Context
	results [][]sample.Sample
}

func newCollector(ctx context.Context, workers int) *collector {
	group, gctx := errgroup.WithContext(ctx)
	return &collector{
		group:   group,
		ctx:     gctx,
		results: make([][]sample.Sample, workers),
	}
}

// Context is cancelled as soon as any worker fails.
func (c *collector) Context() context.Context { return c.ctx }

// Go runs fn for worker idx. A panic in fn is converted into ErrWorkerPanicked.
func (c *collector) Go(idx int, fn func(ctx context.Context) ([]sample.Sample, error)) {
	c.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(log.CatEngine, "Worker panic recovered",
					"workerID", idx,
					"panic", r,
					"stack", string(debug.Stack()))
				err = fmt.Errorf("%w: worker %d: %v", ErrWorkerPanicked, idx, r)
			}
		}()
		out, err := fn(c.ctx)
		if err != nil {
			return err
		}
		// Each goroutine writes only its own slot.
		c.results[idx] = out
		return nil
	})
}

// Wait joins every worker and concatenates their results in worker order.
func (c *collector) Wait(expected int) ([]sample.Sample, error) {
	if err := c.group.Wait(); err != nil {
		return nil, err
	}
	out := slices.Concat(c.results...)
	if len(out) != expected {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrResultMismatch, len(out), expected)
	}
	return out, nil
}
