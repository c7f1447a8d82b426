// Package escape implements the magnitude-based escape-time test for z = z*z + c.
package escape

import (
	"math/cmplx"

	"github.com/zjrosen/mandelgrid/internal/sample"
)

// Evaluate iterates z = z*z + c from z = 0 at most maxIterations times.
// It returns Diverged as soon as |z| exceeds radius, otherwise Converged
// carrying |z| after the final iteration.
func Evaluate(c complex128, maxIterations int, radius float64) sample.Outcome {
	var z complex128
	for n := 0; n < maxIterations; n++ {
		z = z*z + c
		if cmplx.Abs(z) > radius {
			return sample.Escaped()
		}
	}
	return sample.ConvergedAt(cmplx.Abs(z))
}

// Finalize evaluates s in place.
func Finalize(s *sample.Sample, maxIterations int, radius float64) error {
	return s.Finalize(Evaluate(s.Position, maxIterations, radius))
}
