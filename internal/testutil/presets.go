package testutil

// WithStandardSamples adds a small mixed dataset: three converged points
// (the origin, the -1 cycle, the i cycle) and two escaped ones.
func (b *Builder) WithStandardSamples() *Builder {
	return b.
		WithConverged(0, 0, 0).
		WithConverged(-1, 0, 1).
		WithDiverged(10, 10).
		WithConverged(0, 1, 1.4142135623730951).
		WithDiverged(0.5, 0.5)
}
