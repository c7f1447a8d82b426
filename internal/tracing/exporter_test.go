package tracing

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func readRecords(t *testing.T, path string) []SpanRecord {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var records []SpanRecord
	decoder := json.NewDecoder(file)
	for {
		var record SpanRecord
		if err := decoder.Decode(&record); err != nil {
			break
		}
		records = append(records, record)
	}
	return records
}

func TestFileExporter_LiftsWorkerFields(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")

	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	start := time.Now()
	stub := tracetest.SpanStub{
		Name:      SpanPrefixWorker + "0",
		SpanKind:  trace.SpanKindInternal,
		StartTime: start,
		EndTime:   start.Add(100 * time.Millisecond),
		Status:    sdktrace.Status{Code: codes.Ok},
		Attributes: []attribute.KeyValue{
			attribute.String(AttrRunID, "run-abc"),
			attribute.Int(AttrWorkerID, 0),
			attribute.Int(AttrChunkSize, 2500),
			attribute.Int(AttrChunkOffset, 7500),
			attribute.String("extra", "kept"),
		},
	}

	require.NoError(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exporter.Shutdown(context.Background()))

	records := readRecords(t, tracePath)
	require.Len(t, records, 1)
	record := records[0]
	require.Equal(t, "worker.0", record.Name)
	require.Equal(t, "run-abc", record.RunID)
	require.NotNil(t, record.Worker, "worker 0 is still reported")
	require.Equal(t, 0, *record.Worker)
	require.NotNil(t, record.Offset)
	require.Equal(t, 7500, *record.Offset)
	require.Equal(t, 2500, record.Samples)
	require.InDelta(t, 100.0, record.DurationMs, 0.001)
	require.InDelta(t, 25000.0, record.SamplesPerSec, 1)
	require.Empty(t, record.Error)
	require.Equal(t, map[string]any{"extra": "kept"}, record.Attributes, "lifted keys are not repeated")
}

func TestFileExporter_RunSpanWithDrainEvent(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	start := time.Now()
	stub := tracetest.SpanStub{
		Name:      SpanRun,
		StartTime: start,
		EndTime:   start.Add(time.Second),
		Attributes: []attribute.KeyValue{
			attribute.String(AttrRunID, "run-xyz"),
			attribute.Int(AttrGridSamples, 30),
			attribute.Int(AttrRunWorkers, 3),
		},
		Events: []sdktrace.Event{{
			Name:       EventProgressDrained,
			Time:       start.Add(250 * time.Millisecond),
			Attributes: []attribute.KeyValue{attribute.Int("total", 30)},
		}},
	}
	require.NoError(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exporter.Shutdown(context.Background()))

	records := readRecords(t, tracePath)
	require.Len(t, records, 1)
	record := records[0]
	require.Equal(t, "run-xyz", record.RunID)
	require.Nil(t, record.Worker)
	require.Nil(t, record.Offset)
	require.Equal(t, 30, record.Samples)
	require.Zero(t, record.SamplesPerSec, "throughput is reported for workers only")
	require.EqualValues(t, 3, record.Attributes[AttrRunWorkers])
	require.Len(t, record.Events, 1)
	require.Equal(t, EventProgressDrained, record.Events[0].Name)
	require.InDelta(t, 250.0, record.Events[0].AtMs, 0.001)
	require.EqualValues(t, 30, record.Events[0].Attributes["total"])
}

func TestFileExporter_AppendsToExistingFile(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	require.NoError(t, os.WriteFile(tracePath, []byte(`{"name":"earlier"}`+"\n"), 0644))

	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	stub := tracetest.SpanStub{Name: SpanExport, StartTime: time.Now(), EndTime: time.Now()}
	require.NoError(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exporter.Shutdown(context.Background()))

	records := readRecords(t, tracePath)
	require.Len(t, records, 2)
	require.Equal(t, "earlier", records[0].Name)
	require.Equal(t, SpanExport, records[1].Name)
}

func TestFileExporter_ConcurrentWorkers(t *testing.T) {
	tracePath := filepath.Join(t.TempDir(), "traces.jsonl")
	exporter, err := NewFileExporter(tracePath)
	require.NoError(t, err)

	const workers, spansPerWorker = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < spansPerWorker; j++ {
				stub := tracetest.SpanStub{
					Name:       SpanPrefixWorker + "x",
					StartTime:  time.Now(),
					EndTime:    time.Now(),
					Attributes: []attribute.KeyValue{attribute.Int(AttrWorkerID, id)},
				}
				_ = exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()})
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, exporter.Shutdown(context.Background()))

	require.Len(t, readRecords(t, tracePath), workers*spansPerWorker)
}

func TestFileExporter_ShutdownIdempotentAndRejectsLateSpans(t *testing.T) {
	exporter, err := NewFileExporter(filepath.Join(t.TempDir(), "traces.jsonl"))
	require.NoError(t, err)

	require.NoError(t, exporter.Shutdown(context.Background()))
	require.NoError(t, exporter.Shutdown(context.Background()))

	stub := tracetest.SpanStub{Name: "late"}
	require.Error(t, exporter.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stub.Snapshot()}))
	require.NoError(t, exporter.ExportSpans(context.Background(), nil), "empty batch is always fine")
}

func TestSpanRecord_ErrorFromRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	_, span := tp.Tracer("test").Start(context.Background(), SpanCollect)
	RecordError(span, errors.New("progress mismatch"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	record := spanToRecord(ended[0])
	require.Equal(t, "progress mismatch", record.Error)
	require.Empty(t, record.Events, "exception event folded into Error")
	require.NotContains(t, record.Attributes, AttrErrorMessage)
}
