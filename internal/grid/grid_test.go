package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func defaultSpec() Spec {
	return Spec{ReMin: -1.45, ReMax: 0.45, ImMin: -0.9, ImMax: 0.9, Delta: 0.0005, Origin: OriginShifted}
}

func TestSpec_DefaultCount(t *testing.T) {
	re, im := defaultSpec().Axes()
	require.Equal(t, 3801, re.Count)
	require.Equal(t, 3601, im.Count)
	require.Equal(t, 3801*3601, defaultSpec().Count())
}

func TestGenerate_ShiftedOrigin(t *testing.T) {
	s := Spec{ReMin: 0, ReMax: 1, ImMin: 0, ImMax: 0.5, Delta: 0.5, Origin: OriginShifted}

	got, err := Generate(s)
	require.NoError(t, err)
	require.Len(t, got, 3*2)

	// First sample is one delta past the minimum on both axes.
	assert.Equal(t, complex(0.5, 0.5), got[0].Position)
	assert.Equal(t, complex(0.5, 1.0), got[1].Position)
	assert.Equal(t, complex(1.5, 1.0), got[len(got)-1].Position)
	for _, p := range got {
		assert.False(t, p.Done())
	}
}

func TestGenerate_InclusiveOrigin(t *testing.T) {
	s := Spec{ReMin: 0, ReMax: 1, ImMin: 0, ImMax: 0.5, Delta: 0.5, Origin: OriginInclusive}

	got, err := Generate(s)
	require.NoError(t, err)
	require.Len(t, got, 6)

	assert.Equal(t, complex(0, 0), got[0].Position)
	assert.Equal(t, complex(0, 0.5), got[1].Position)
	assert.Equal(t, complex(0.5, 0), got[2].Position)
	assert.Equal(t, complex(1, 0.5), got[5].Position, "last sample lands exactly on the maximum")
}

func TestGenerate_DeltaEqualsExtent(t *testing.T) {
	for _, origin := range []Origin{OriginShifted, OriginInclusive} {
		t.Run(string(origin), func(t *testing.T) {
			s := Spec{ReMin: -1.45, ReMax: 0.45, ImMin: 0.3, ImMax: 0.3, Delta: 1.9, Origin: origin}
			re, im := s.Axes()
			require.Equal(t, 2, re.Count)
			require.Equal(t, 1, im.Count)

			got, err := Generate(s)
			require.NoError(t, err)
			require.Len(t, got, 2)
		})
	}
}

func TestGenerate_DegenerateRectangle(t *testing.T) {
	s := Spec{ReMin: 0.25, ReMax: 0.25, ImMin: 0, ImMax: 0, Delta: 0.1, Origin: OriginInclusive}
	got, err := Generate(s)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, complex(0.25, 0), got[0].Position)
}

func TestGenerate_NoDriftAtMaximum(t *testing.T) {
	// 0.1 is not representable exactly; adding it ten times overshoots 1.0.
	s := Spec{ReMin: 0, ReMax: 1, ImMin: 0, ImMax: 0, Delta: 0.1, Origin: OriginInclusive}
	re, _ := s.Axes()
	require.Equal(t, 11, re.Count)
	assert.InDelta(t, 1.0, re.Coord(10), 1e-12)
}

func TestGenerate_EmptyOriginDefaultsToShifted(t *testing.T) {
	a, err := Generate(Spec{ReMin: 0, ReMax: 1, ImMin: 0, ImMax: 1, Delta: 0.5})
	require.NoError(t, err)
	b, err := Generate(Spec{ReMin: 0, ReMax: 1, ImMin: 0, ImMax: 1, Delta: 0.5, Origin: OriginShifted})
	require.NoError(t, err)
	require.Equal(t, b, a)
}

func TestSpec_Validate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want error
	}{
		{"re reversed", Spec{ReMin: 1, ReMax: 0, Delta: 0.1}, ErrInvalidBounds},
		{"im reversed", Spec{ImMin: 1, ImMax: 0, Delta: 0.1}, ErrInvalidBounds},
		{"nan bound", Spec{ReMin: math.NaN(), Delta: 0.1}, ErrInvalidBounds},
		{"inf bound", Spec{ImMax: math.Inf(1), Delta: 0.1}, ErrInvalidBounds},
		{"zero delta", Spec{Delta: 0}, ErrInvalidDelta},
		{"negative delta", Spec{Delta: -0.1}, ErrInvalidDelta},
		{"nan delta", Spec{Delta: math.NaN()}, ErrInvalidDelta},
		{"bad origin", Spec{Delta: 0.1, Origin: "centered"}, ErrInvalidOrigin},
		{"too large", Spec{ReMin: -2, ReMax: 2, ImMin: -2, ImMax: 2, Delta: 1e-6}, ErrGridTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.spec.Validate(), tt.want)
			_, err := Generate(tt.spec)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidate_SampleCapFitsInt(t *testing.T) {
	// 46340 samples per axis is the largest square under math.MaxInt32.
	ok := Spec{ReMax: 46339, ImMax: 46339, Delta: 1, Origin: OriginInclusive}
	require.NoError(t, ok.Validate())
	require.Equal(t, 46340*46340, ok.Count())
	require.LessOrEqual(t, ok.Count(), MaxSamples)

	over := Spec{ReMax: 46340, ImMax: 46340, Delta: 1, Origin: OriginInclusive}
	err := over.Validate()
	require.ErrorIs(t, err, ErrGridTooLarge)
	require.Contains(t, err.Error(), "max 2147483647")
}

func TestProperty_GenerateMatchesCount(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		origin := rapid.SampledFrom([]Origin{OriginShifted, OriginInclusive}).Draw(t, "origin")
		reMin := rapid.Float64Range(-2, 1).Draw(t, "reMin")
		reExt := rapid.Float64Range(0, 2).Draw(t, "reExt")
		imMin := rapid.Float64Range(-2, 1).Draw(t, "imMin")
		imExt := rapid.Float64Range(0, 2).Draw(t, "imExt")
		delta := rapid.Float64Range(0.05, 1).Draw(t, "delta")

		s := Spec{ReMin: reMin, ReMax: reMin + reExt, ImMin: imMin, ImMax: imMin + imExt, Delta: delta, Origin: origin}
		got, err := Generate(s)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(got) != s.Count() {
			t.Fatalf("len %d != count %d", len(got), s.Count())
		}

		again, _ := Generate(s)
		for i := range got {
			if got[i] != again[i] {
				t.Fatalf("non-deterministic sample %d", i)
			}
		}

		re, im := s.Axes()
		for i := 1; i < re.Count; i++ {
			if !(re.Coord(i) > re.Coord(i-1)) {
				t.Fatalf("re axis not increasing at %d", i)
			}
		}
		if origin == OriginInclusive {
			if re.Coord(0) != reMin || im.Coord(0) != imMin {
				t.Fatalf("inclusive origin must start at the minimum")
			}
			if re.Coord(re.Count-1) > s.ReMax+delta*1e-6 {
				t.Fatalf("re axis overshoots maximum: %v > %v", re.Coord(re.Count-1), s.ReMax)
			}
		}
	})
}
