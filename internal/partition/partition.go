// Package partition splits the sample sequence into contiguous per-worker chunks.
package partition

import (
	"errors"
	"fmt"

	"github.com/zjrosen/mandelgrid/internal/sample"
)

var (
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")
	ErrTooManyWorkers     = errors.New("worker count exceeds sample count")
	ErrEmptySequence      = errors.New("nothing to partition")
)

// Chunk is a contiguous slice of the full sample sequence owned by one worker.
// Samples aliases the input slice; Offset is the index of its first sample.
type Chunk struct {
	Index   int
	Offset  int
	Samples []sample.Sample
}

// Len returns the number of samples in the chunk.
func (c Chunk) Len() int { return len(c.Samples) }

// Sizes returns the chunk sizes Split would produce for total samples and
// the given worker count: the first total%workers chunks carry one extra sample.
func Sizes(total, workers int) ([]int, error) {
	if err := Check(total, workers); err != nil {
		return nil, err
	}
	base, rem := total/workers, total%workers
	sizes := make([]int, workers)
	for w := range sizes {
		sizes[w] = base
		if w < rem {
			sizes[w]++
		}
	}
	return sizes, nil
}

// Check validates a worker count against a sample count.
func Check(total, workers int) error {
	if workers <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workers)
	}
	if total <= 0 {
		return ErrEmptySequence
	}
	if workers > total {
		return fmt.Errorf("%w: %d workers for %d samples", ErrTooManyWorkers, workers, total)
	}
	return nil
}

// Split returns exactly workers chunks whose sizes differ by at most one.
// Every sample belongs to exactly one chunk, in input order.
func Split(samples []sample.Sample, workers int) ([]Chunk, error) {
	sizes, err := Sizes(len(samples), workers)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, workers)
	offset := 0
	for w, n := range sizes {
		// Cap capacity so a worker can never append into its neighbour.
		chunks[w] = Chunk{
			Index:   w,
			Offset:  offset,
			Samples: samples[offset : offset+n : offset+n],
		}
		offset += n
	}
	return chunks, nil
}
