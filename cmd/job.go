package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/mandelgrid/internal/cachemanager"
	"github.com/zjrosen/mandelgrid/internal/config"
	"github.com/zjrosen/mandelgrid/internal/engine"
	"github.com/zjrosen/mandelgrid/internal/export"
	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/tracing"
)

// consoleObserver prints the per-worker lines and the collection banner.
type consoleObserver struct {
	w        io.Writer
	reporter *engine.TerminalReporter
}

func (c *consoleObserver) Dispatched(id, _, size int) {
	fmt.Fprintf(c.w, "worker %d started, work: %d\n", id, size)
}

func (c *consoleObserver) Drained(int) {
	c.reporter.Finish()
	fmt.Fprintln(c.w, "---")
	fmt.Fprintln(c.w, "collecting results")
}

// loadConfig resolves the effective configuration: file (or persisted
// defaults) first, then command-line overrides.
func loadConfig(w io.Writer, opts *options, cmd *cobra.Command) (config.Config, error) {
	cfg, status, err := config.LoadOrInit(opts.configPath)
	switch status {
	case config.Invalid:
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	case config.Absent:
		fmt.Fprintf(w, "no config at %s, using defaults\n", opts.configPath)
	case config.Malformed:
		fmt.Fprintf(w, "config at %s is unusable, using defaults (previous file kept as %s.bak)\n", opts.configPath, opts.configPath)
	}
	if err != nil {
		fmt.Fprintf(w, "warning: could not write default config: %v\n", err)
	}

	if cmd != nil {
		flags := cmd.Flags()
		if flags.Changed("output") {
			cfg.Output.Path = opts.output
			if !flags.Changed("format") {
				cfg.Output.Format = string(export.FormatFromPath(opts.output))
			}
		}
		if flags.Changed("format") {
			cfg.Output.Format = opts.format
		}
		if flags.Changed("threads") {
			cfg.Threads = opts.threads
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runJob executes one full evaluation and export. When results is non-nil the
// previous result is exported again instead of being recomputed if the
// parameters still match; results holds at most that one entry.
func runJob(ctx context.Context, w io.Writer, opts *options, cmd *cobra.Command, results *cachemanager.Cache[*engine.Result]) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	cfg, err := loadConfig(w, opts, cmd)
	if err != nil {
		return err
	}

	provider, err := tracing.NewProvider(cfg.Tracing.ToTracing())
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if serr := provider.Shutdown(context.Background()); serr != nil {
			log.ErrorErr(log.CatTrace, "Tracer shutdown failed", serr)
		}
	}()

	exporter, err := export.New(cfg.Output.Format, cfg.Output.Path)
	if err != nil {
		return err
	}

	params := cfg.Params()
	res, cached := lookup(results, params)
	if cached {
		fmt.Fprintf(w, "parameters unchanged, reusing run %s\n", res.RunID)
	} else {
		reporter := engine.NewTerminalReporter(w)
		res, err = engine.Run(ctx, params,
			engine.WithReporter(reporter),
			engine.WithObserver(&consoleObserver{w: w, reporter: reporter}),
			engine.WithTracer(provider.Tracer()),
		)
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		if results != nil {
			// Only the latest result is kept.
			results.Flush()
			results.Set(params.Key(), res)
		}
	}

	fmt.Fprintln(w, "Exporting...")
	ctx, span := provider.Tracer().Start(ctx, tracing.SpanExport, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, res.RunID),
		attribute.String(tracing.AttrExportFormat, cfg.Output.Format),
		attribute.String(tracing.AttrExportPath, cfg.Output.Path),
		attribute.Int(tracing.AttrExportRows, len(res.Samples)),
	))
	err = exporter.Export(ctx, res.Samples)
	tracing.RecordError(span, err)
	span.End()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	elapsed := time.Since(start)
	fmt.Fprintf(w, "took: %dms\n", elapsed.Milliseconds())
	fmt.Fprintln(w, renderSummary(res, cfg))
	return nil
}

func lookup(results *cachemanager.Cache[*engine.Result], params engine.Params) (*engine.Result, bool) {
	if results == nil {
		return nil, false
	}
	return results.Get(params.Key())
}
