// Package config provides configuration types, defaults, and persistence for mandelgrid.
package config

import (
	"fmt"
	"math"

	"github.com/zjrosen/mandelgrid/internal/engine"
	"github.com/zjrosen/mandelgrid/internal/export"
	"github.com/zjrosen/mandelgrid/internal/grid"
	"github.com/zjrosen/mandelgrid/internal/partition"
	"github.com/zjrosen/mandelgrid/internal/tracing"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "config.yaml"

// Config holds all configuration options for a run.
type Config struct {
	Grid       GridConfig    `mapstructure:"grid" yaml:"grid" toml:"grid"`
	Iterations int           `mapstructure:"iterations" yaml:"iterations" toml:"iterations"`
	Bound      float64       `mapstructure:"bound" yaml:"bound" toml:"bound"`       // escape radius
	Threads    int           `mapstructure:"threads" yaml:"threads" toml:"threads"` // worker goroutines
	BatchSize  int           `mapstructure:"batch_size" yaml:"batch_size" toml:"batch_size"`
	Output     OutputConfig  `mapstructure:"output" yaml:"output" toml:"output"`
	Tracing    TracingConfig `mapstructure:"tracing" yaml:"tracing" toml:"tracing"`
}

// GridConfig is the sampled rectangle of the complex plane.
type GridConfig struct {
	ReMin  float64 `mapstructure:"re_min" yaml:"re_min" toml:"re_min"`
	ReMax  float64 `mapstructure:"re_max" yaml:"re_max" toml:"re_max"`
	ImMin  float64 `mapstructure:"im_min" yaml:"im_min" toml:"im_min"`
	ImMax  float64 `mapstructure:"im_max" yaml:"im_max" toml:"im_max"`
	Delta  float64 `mapstructure:"delta" yaml:"delta" toml:"delta"`
	Origin string  `mapstructure:"origin" yaml:"origin" toml:"origin"` // "shifted" (default) or "inclusive"
}

// OutputConfig selects where and how the dataset is written.
type OutputConfig struct {
	Path   string `mapstructure:"path" yaml:"path" toml:"path"`
	Format string `mapstructure:"format" yaml:"format" toml:"format"` // csv, jsonl or sqlite
}

// TracingConfig holds OpenTelemetry options.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled" yaml:"enabled" toml:"enabled"`
	Exporter     string  `mapstructure:"exporter" yaml:"exporter" toml:"exporter"` // none, file, stdout, otlp
	FilePath     string  `mapstructure:"file_path" yaml:"file_path" toml:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate" yaml:"sample_rate" toml:"sample_rate"`
}

// Defaults returns the configuration used when no file exists.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	return Config{
		Grid: GridConfig{
			ReMin:  -1.45,
			ReMax:  0.45,
			ImMin:  -0.9,
			ImMax:  0.9,
			Delta:  0.0005,
			Origin: string(grid.OriginShifted),
		},
		Iterations: 200,
		Bound:      2.0,
		Threads:    1,
		BatchSize:  engine.DefaultBatchSize,
		Output: OutputConfig{
			Path:   "mandelbrot.csv",
			Format: string(export.FormatCSV),
		},
		Tracing: TracingConfig{
			Enabled:      tc.Enabled,
			Exporter:     tc.Exporter,
			FilePath:     tc.FilePath,
			OTLPEndpoint: tc.OTLPEndpoint,
			SampleRate:   tc.SampleRate,
		},
	}
}

// GridSpec converts the grid section.
func (c Config) GridSpec() grid.Spec {
	return grid.Spec{
		ReMin:  c.Grid.ReMin,
		ReMax:  c.Grid.ReMax,
		ImMin:  c.Grid.ImMin,
		ImMax:  c.Grid.ImMax,
		Delta:  c.Grid.Delta,
		Origin: grid.Origin(c.Grid.Origin),
	}
}

// Params returns the engine parameters described by c.
func (c Config) Params() engine.Params {
	return engine.Params{
		Grid:          c.GridSpec(),
		MaxIterations: c.Iterations,
		EscapeRadius:  c.Bound,
		Workers:       c.Threads,
		BatchSize:     c.BatchSize,
	}
}

// ToTracing converts the tracing section.
func (t TracingConfig) ToTracing() tracing.Config {
	return tracing.Config{
		Enabled:      t.Enabled,
		Exporter:     t.Exporter,
		FilePath:     t.FilePath,
		OTLPEndpoint: t.OTLPEndpoint,
		SampleRate:   t.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	}
}

// Validate checks every section and returns the first error found.
func (c Config) Validate() error {
	if err := ValidateGrid(c.Grid); err != nil {
		return err
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if !(c.Bound > 0) || math.IsInf(c.Bound, 0) {
		return fmt.Errorf("bound must be a finite positive number, got %v", c.Bound)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if err := partition.Check(c.GridSpec().Count(), c.Threads); err != nil {
		return fmt.Errorf("threads: %w", err)
	}
	if err := ValidateOutput(c.Output); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// ValidateGrid checks the grid section.
func ValidateGrid(g GridConfig) error {
	spec := Config{Grid: g}.GridSpec()
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	return nil
}

// ValidateOutput checks the output section.
func ValidateOutput(o OutputConfig) error {
	if o.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if _, err := export.ParseFormat(o.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}
