package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/zjrosen/mandelgrid/internal/escape"
	"github.com/zjrosen/mandelgrid/internal/partition"
	"github.com/zjrosen/mandelgrid/internal/sample"
)

var (
	// ErrProgressSend is returned when a worker cannot deliver a progress signal
	// because the run was aborted.
	ErrProgressSend = errors.New("progress signal could not be delivered")
	// ErrWorkerPanicked wraps a panic recovered from a worker goroutine.
	ErrWorkerPanicked = errors.New("worker terminated abnormally")
)

// evalFunc finalizes one sample.
type evalFunc func(s *sample.Sample, maxIterations int, radius float64) error

// Worker evaluates one chunk. It owns the chunk's samples exclusively and
// talks to the outside only through the progress channel and its return value.
type Worker struct {
	ID        int
	chunk     partition.Chunk
	params    Params
	batchSize int
	eval      evalFunc
}

func newWorker(chunk partition.Chunk, params Params, eval evalFunc) *Worker {
	if eval == nil {
		eval = escape.Finalize
	}
	return &Worker{
		ID:        chunk.Index,
		chunk:     chunk,
		params:    params,
		batchSize: params.batchSize(),
		eval:      eval,
	}
}

// Len returns the number of samples the worker owns.
func (w *Worker) Len() int { return w.chunk.Len() }

// Run finalizes every sample of the chunk in order and returns them.
// A signal of batchSize is sent after every full batch and one final signal
// carries the remainder, so the signals always sum to the chunk size.
func (w *Worker) Run(ctx context.Context, progress chan<- int) ([]sample.Sample, error) {
	samples := w.chunk.Samples
	for i := range samples {
		if err := w.eval(&samples[i], w.params.MaxIterations, w.params.EscapeRadius); err != nil {
			return nil, fmt.Errorf("worker %d: sample %d: %w", w.ID, w.chunk.Offset+i, err)
		}
		if (i+1)%w.batchSize == 0 {
			if err := w.emit(ctx, progress, w.batchSize); err != nil {
				return nil, err
			}
		}
	}
	if rem := len(samples) % w.batchSize; rem > 0 {
		if err := w.emit(ctx, progress, rem); err != nil {
			return nil, err
		}
	}
	return samples, nil
}

func (w *Worker) emit(ctx context.Context, progress chan<- int, n int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: worker %d: %w", ErrProgressSend, w.ID, err)
	}
	select {
	case progress <- n:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: worker %d: %w", ErrProgressSend, w.ID, ctx.Err())
	}
}
