package escape

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/mandelgrid/internal/sample"
)

func TestEvaluate_OriginNeverEscapes(t *testing.T) {
	for _, iters := range []int{1, 2, 200} {
		got := Evaluate(0, iters, 2.0)
		assert.Equal(t, sample.ConvergedAt(0), got)
	}
}

func TestEvaluate_FarPointDivergesImmediately(t *testing.T) {
	got := Evaluate(complex(10, 10), 1, 2.0)
	assert.Equal(t, sample.Diverged, got.Kind)
	assert.True(t, math.IsNaN(got.Value()))
}

func TestEvaluate_ReportsFinalModulus(t *testing.T) {
	// c = -1 cycles 0 -> -1 -> 0 -> -1 ...
	assert.Equal(t, sample.ConvergedAt(1), Evaluate(-1, 1, 2.0))
	assert.Equal(t, sample.ConvergedAt(0), Evaluate(-1, 2, 2.0))
	assert.Equal(t, sample.ConvergedAt(1), Evaluate(-1, 3, 2.0))

	// c = i: i, -1+i, -i, -1+i, ...
	got := Evaluate(complex(0, 1), 2, 2.0)
	require.Equal(t, sample.Converged, got.Kind)
	assert.InDelta(t, math.Sqrt2, got.Magnitude, 1e-12)
}

func TestEvaluate_DivergesOnlyAboveRadius(t *testing.T) {
	// c = 2: z1 = 2 (== radius, not above), z2 = 6.
	assert.Equal(t, sample.ConvergedAt(2), Evaluate(2, 1, 2.0))
	assert.Equal(t, sample.Diverged, Evaluate(2, 2, 2.0).Kind)
}

func TestEvaluate_ZeroIterations(t *testing.T) {
	assert.Equal(t, sample.ConvergedAt(0), Evaluate(complex(5, 5), 0, 2.0))
}

func TestFinalize(t *testing.T) {
	s := sample.New(10, 10)
	require.NoError(t, Finalize(&s, 200, 2.0))
	assert.Equal(t, sample.Diverged, s.Outcome.Kind)
	require.ErrorIs(t, Finalize(&s, 200, 2.0), sample.ErrAlreadyFinalized)
}

func TestProperty_ConvergedMagnitudeWithinRadius(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		re := rapid.Float64Range(-2.5, 1.5).Draw(t, "re")
		im := rapid.Float64Range(-1.5, 1.5).Draw(t, "im")
		iters := rapid.IntRange(1, 300).Draw(t, "iters")
		radius := rapid.Float64Range(0.5, 4).Draw(t, "radius")

		c := complex(re, im)
		got := Evaluate(c, iters, radius)
		if got != Evaluate(c, iters, radius) {
			t.Fatalf("evaluate is not deterministic for %v", c)
		}
		switch got.Kind {
		case sample.Converged:
			if got.Magnitude > radius || got.Magnitude < 0 {
				t.Fatalf("converged magnitude %v outside [0, %v]", got.Magnitude, radius)
			}
		case sample.Diverged:
		default:
			t.Fatalf("unexpected kind %v", got.Kind)
		}
	})
}
