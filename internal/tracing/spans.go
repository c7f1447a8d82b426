package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	// Run attributes
	AttrRunID         = "run.id"
	AttrRunWorkers    = "run.workers"
	AttrGridSamples   = "grid.samples"
	AttrGridOrigin    = "grid.origin"
	AttrMaxIterations = "escape.max_iterations"
	AttrEscapeRadius  = "escape.radius"

	// Partition attributes
	AttrPartitionChunks = "partition.chunks"

	// Worker attributes
	AttrWorkerID    = "worker.id"
	AttrChunkSize   = "chunk.size"
	AttrChunkOffset = "chunk.offset"

	// Export attributes
	AttrExportFormat = "export.format"
	AttrExportPath   = "export.path"
	AttrExportRows   = "export.rows"

	// Error attributes
	AttrErrorMessage = "error.message"
)

// Span names.
const (
	SpanRun          = "run"
	SpanGenerate     = "grid.generate"
	SpanPartition    = "grid.partition"
	SpanPrefixWorker = "worker."
	SpanCollect      = "collect"
	SpanExport       = "export"
)

// Event names.
const (
	EventProgressDrained = "progress.drained"
	EventWorkerFailed    = "worker.failed"
)

// RecordError marks span as failed with err. A nil err marks it OK.
func RecordError(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
}
