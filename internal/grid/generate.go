package grid

import (
	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/sample"
)

// Generate returns every sample position of the grid as pending samples.
// The real axis is the outer loop and the imaginary axis the inner one,
// so identical specs always yield identical sequences.
func Generate(s Spec) ([]sample.Sample, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	re, im := s.Axes()
	out := make([]sample.Sample, 0, re.Count*im.Count)
	for i := 0; i < re.Count; i++ {
		x := re.Coord(i)
		for j := 0; j < im.Count; j++ {
			out = append(out, sample.New(x, im.Coord(j)))
		}
	}

	log.Debug(log.CatGrid, "Generated grid",
		"re_count", re.Count,
		"im_count", im.Count,
		"samples", len(out),
		"origin", s.Origin)
	return out, nil
}
