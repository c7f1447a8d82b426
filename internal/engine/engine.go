package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/mandelgrid/internal/grid"
	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/partition"
	"github.com/zjrosen/mandelgrid/internal/sample"
	"github.com/zjrosen/mandelgrid/internal/tracing"
)

// progressBufferPerWorker sizes the progress channel so workers rarely wait
// on the aggregator.
const progressBufferPerWorker = 16

// Observer is notified of run milestones. The CLI uses it for console output.
type Observer interface {
	// Dispatched is called once per worker before it starts.
	Dispatched(workerID, offset, size int)
	// Drained is called after every progress signal was consumed.
	Drained(total int)
}

type noopObserver struct{}

func (noopObserver) Dispatched(int, int, int) {}
func (noopObserver) Drained(int)              {}

// Result is the outcome of a successful run.
type Result struct {
	RunID     string
	Samples   []sample.Sample
	Workers   int
	Elapsed   time.Duration
	Converged int
	Diverged  int
}

type options struct {
	reporter Reporter
	tracer   trace.Tracer
	observer Observer
	eval     evalFunc
}

// Option configures Run.
type Option func(*options)

// WithReporter sets the progress reporter.
func WithReporter(r Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithTracer sets the tracer used for run and worker spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithObserver sets the milestone observer.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func withEval(fn evalFunc) Option {
	return func(o *options) { o.eval = fn }
}

// Run generates the grid, evaluates it across params.Workers goroutines and
// returns every finalized sample in generation order. Any worker failure or
// progress inconsistency fails the whole run; no partial results are returned.
func Run(ctx context.Context, params Params, opts ...Option) (*Result, error) {
	o := options{
		reporter: noopReporter{},
		tracer:   noop.NewTracerProvider().Tracer(tracing.DefaultServiceName),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	ctx, span := o.tracer.Start(ctx, tracing.SpanRun, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.Int(tracing.AttrRunWorkers, params.Workers),
		attribute.Int(tracing.AttrGridSamples, params.Grid.Count()),
		attribute.String(tracing.AttrGridOrigin, string(params.Grid.Origin)),
		attribute.Int(tracing.AttrMaxIterations, params.MaxIterations),
		attribute.Float64(tracing.AttrEscapeRadius, params.EscapeRadius),
	))
	defer span.End()

	log.Info(log.CatEngine, "Run starting",
		"runID", runID,
		"workers", params.Workers,
		"samples", params.Grid.Count(),
		"iterations", params.MaxIterations)

	samples, chunks, err := prepare(ctx, o.tracer, runID, params)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	out, err := evaluate(ctx, o, runID, params, chunks, len(samples))
	if err != nil {
		log.ErrorErr(log.CatEngine, "Run failed", err, "runID", runID)
		tracing.RecordError(span, err)
		return nil, err
	}

	res := &Result{
		RunID:   runID,
		Samples: out,
		Workers: params.Workers,
		Elapsed: time.Since(start),
	}
	for _, s := range out {
		if s.Outcome.Kind == sample.Converged {
			res.Converged++
		} else {
			res.Diverged++
		}
	}
	tracing.RecordError(span, nil)
	log.Info(log.CatEngine, "Run finished",
		"runID", runID,
		"converged", res.Converged,
		"diverged", res.Diverged,
		"elapsed", res.Elapsed)
	return res, nil
}

func prepare(ctx context.Context, tracer trace.Tracer, runID string, params Params) ([]sample.Sample, []partition.Chunk, error) {
	_, gen := tracer.Start(ctx, tracing.SpanGenerate, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.Int(tracing.AttrGridSamples, params.Grid.Count()),
	))
	samples, err := grid.Generate(params.Grid)
	tracing.RecordError(gen, err)
	gen.End()
	if err != nil {
		return nil, nil, fmt.Errorf("generate grid: %w", err)
	}

	_, part := tracer.Start(ctx, tracing.SpanPartition, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.Int(tracing.AttrPartitionChunks, params.Workers),
	))
	chunks, err := partition.Split(samples, params.Workers)
	tracing.RecordError(part, err)
	part.End()
	if err != nil {
		return nil, nil, fmt.Errorf("partition grid: %w", err)
	}
	return samples, chunks, nil
}

// evaluate fans the chunks out to workers and joins them. The progress
// channel is closed once every sender handle is released: one per worker and
// one held here until dispatch is complete.
func evaluate(ctx context.Context, o options, runID string, params Params, chunks []partition.Chunk, total int) ([]sample.Sample, error) {
	progress := make(chan int, len(chunks)*progressBufferPerWorker)
	coll := newCollector(ctx, len(chunks))

	var senders sync.WaitGroup
	senders.Add(1)
	for _, chunk := range chunks {
		w := newWorker(chunk, params, o.eval)
		senders.Add(1)
		o.observer.Dispatched(w.ID, chunk.Offset, w.Len())
		coll.Go(w.ID, func(ctx context.Context) ([]sample.Sample, error) {
			defer senders.Done()
			ctx, span := o.tracer.Start(ctx, tracing.SpanPrefixWorker+strconv.Itoa(w.ID), trace.WithAttributes(
				attribute.String(tracing.AttrRunID, runID),
				attribute.Int(tracing.AttrWorkerID, w.ID),
				attribute.Int(tracing.AttrChunkSize, w.Len()),
				attribute.Int(tracing.AttrChunkOffset, chunk.Offset),
			))
			defer span.End()

			log.Debug(log.CatEngine, "Worker started", "workerID", w.ID, "offset", chunk.Offset, "size", w.Len())
			out, err := w.Run(ctx, progress)
			if err != nil {
				span.AddEvent(tracing.EventWorkerFailed)
			}
			tracing.RecordError(span, err)
			return out, err
		})
	}
	go func() {
		senders.Wait()
		close(progress)
	}()
	senders.Done()

	agg := NewAggregator(total, o.reporter)
	drainErr := agg.Drain(progress)
	trace.SpanFromContext(ctx).AddEvent(tracing.EventProgressDrained, trace.WithAttributes(
		attribute.Int("total", agg.Done()),
		attribute.Int("signals", agg.Signals()),
	))
	o.observer.Drained(agg.Done())

	_, collect := o.tracer.Start(ctx, tracing.SpanCollect, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, runID),
		attribute.Int(tracing.AttrGridSamples, total),
	))
	defer collect.End()
	out, err := coll.Wait(total)
	if err != nil {
		tracing.RecordError(collect, err)
		return nil, err
	}
	if drainErr != nil {
		tracing.RecordError(collect, drainErr)
		return nil, drainErr
	}
	tracing.RecordError(collect, nil)
	return out, nil
}
