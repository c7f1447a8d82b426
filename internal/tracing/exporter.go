package tracing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// FileExporter appends run spans to a JSONL file, one SpanRecord per line.
type FileExporter struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileExporter opens (or creates) path for appending.
// Parent directories are created automatically.
func NewFileExporter(path string) (*FileExporter, error) {
	cleanPath := filepath.Clean(path)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}

	file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600) // #nosec G304 -- path is cleaned above
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &FileExporter{file: file}, nil
}

// ExportSpans writes spans to the file in JSONL format.
func (e *FileExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return fmt.Errorf("trace exporter is shut down")
	}

	encoder := sonic.ConfigStd.NewEncoder(e.file)
	for _, span := range spans {
		if err := encoder.Encode(spanToRecord(span)); err != nil {
			return fmt.Errorf("encode span: %w", err)
		}
	}
	return nil
}

// Shutdown closes the file. It is safe to call more than once.
func (e *FileExporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file != nil {
		err := e.file.Close()
		e.file = nil
		return err
	}
	return nil
}

// SpanRecord is one line of the trace file. The run ID, worker index and
// sample count of a span are lifted to the top level; the remaining
// attributes are kept as they are.
type SpanRecord struct {
	RunID    string `json:"run_id,omitempty"`
	TraceID  string `json:"trace_id"`
	SpanID   string `json:"span_id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`

	// Worker is set on worker spans only; worker 0 is a valid index.
	Worker *int `json:"worker,omitempty"`
	// Offset is the position of the worker's first sample in the grid.
	Offset *int `json:"offset,omitempty"`
	// Samples is the grid size on run-level spans, the chunk size on worker
	// spans and the row count on the export span.
	Samples int `json:"samples,omitempty"`

	Start         string  `json:"start"`
	DurationMs    float64 `json:"duration_ms"`
	SamplesPerSec float64 `json:"samples_per_sec,omitempty"`
	Error         string  `json:"error,omitempty"`

	Attributes map[string]any `json:"attributes,omitempty"`
	Events     []EventRecord  `json:"events,omitempty"`
}

// EventRecord is a span event, timed relative to the span start.
type EventRecord struct {
	Name       string         `json:"name"`
	AtMs       float64        `json:"at_ms"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// sampleKeys are the attributes that carry a span's sample count.
var sampleKeys = map[attribute.Key]bool{
	AttrGridSamples: true,
	AttrChunkSize:   true,
	AttrExportRows:  true,
}

func spanToRecord(span sdktrace.ReadOnlySpan) SpanRecord {
	sc := span.SpanContext()
	r := SpanRecord{
		TraceID:    sc.TraceID().String(),
		SpanID:     sc.SpanID().String(),
		Name:       span.Name(),
		Start:      span.StartTime().Format(time.RFC3339Nano),
		DurationMs: millis(span.EndTime().Sub(span.StartTime())),
	}
	if span.Parent().IsValid() {
		r.ParentID = span.Parent().SpanID().String()
	}
	if st := span.Status(); st.Code == codes.Error {
		r.Error = st.Description
	}

	for _, kv := range span.Attributes() {
		switch {
		case kv.Key == AttrRunID:
			r.RunID = kv.Value.AsString()
		case kv.Key == AttrWorkerID:
			id := int(kv.Value.AsInt64())
			r.Worker = &id
		case kv.Key == AttrChunkOffset:
			off := int(kv.Value.AsInt64())
			r.Offset = &off
		case sampleKeys[kv.Key]:
			r.Samples = int(kv.Value.AsInt64())
		case kv.Key == AttrErrorMessage:
			// Reported through Error.
		default:
			if r.Attributes == nil {
				r.Attributes = make(map[string]any)
			}
			r.Attributes[string(kv.Key)] = kv.Value.AsInterface()
		}
	}
	if secs := span.EndTime().Sub(span.StartTime()).Seconds(); r.Worker != nil && r.Samples > 0 && secs > 0 {
		r.SamplesPerSec = float64(r.Samples) / secs
	}

	for _, evt := range span.Events() {
		if evt.Name == semconvExceptionEvent {
			continue
		}
		er := EventRecord{Name: evt.Name, AtMs: millis(evt.Time.Sub(span.StartTime()))}
		for _, kv := range evt.Attributes {
			if er.Attributes == nil {
				er.Attributes = make(map[string]any)
			}
			er.Attributes[string(kv.Key)] = kv.Value.AsInterface()
		}
		r.Events = append(r.Events, er)
	}
	return r
}

// semconvExceptionEvent is the event span.RecordError adds; its message is
// already in SpanRecord.Error.
const semconvExceptionEvent = "exception"

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
