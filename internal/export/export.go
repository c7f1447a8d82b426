// Package export writes finalized samples to a dataset file.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/sample"
)

// Format names a dataset encoding.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSONL  Format = "jsonl"
	FormatSQLite Format = "sqlite"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrPendingSample     = errors.New("cannot export a pending sample")
)

// Exporter writes a complete sample sequence.
type Exporter interface {
	Export(ctx context.Context, samples []sample.Sample) error
}

// Formats returns every supported format.
func Formats() []Format {
	return []Format{FormatCSV, FormatJSONL, FormatSQLite}
}

// ParseFormat resolves a format name. An empty name means csv.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSONL, "json", "ndjson":
		return FormatJSONL, nil
	case FormatSQLite, "sqlite3", "db":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedFormat, name, FormatList())
}

// FormatList joins the supported format names for messages and help text.
func FormatList() string {
	names := make([]string, 0, len(Formats()))
	for _, f := range Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// FormatFromPath guesses the format from a file extension, falling back to csv.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite
	}
	return FormatCSV
}

// New returns the exporter for format writing to path. An empty format is
// inferred from the path extension.
func New(format, path string) (Exporter, error) {
	if path == "" {
		return nil, errors.New("export path is empty")
	}
	f := FormatFromPath(path)
	if format != "" {
		var err error
		if f, err = ParseFormat(format); err != nil {
			return nil, err
		}
	}
	log.Debug(log.CatExport, "Exporter selected", "format", f, "path", path)
	switch f {
	case FormatJSONL:
		return &JSONLExporter{Path: path}, nil
	case FormatSQLite:
		return &SQLiteExporter{Path: path}, nil
	default:
		return &CSVExporter{Path: path}, nil
	}
}

// value returns the exported value and whether it is defined.
func value(s sample.Sample) (float64, bool, error) {
	switch s.Outcome.Kind {
	case sample.Converged:
		return s.Outcome.Magnitude, true, nil
	case sample.Diverged:
		return 0, false, nil
	}
	return 0, false, fmt.Errorf("%w: %v", ErrPendingSample, s.Position)
}

// createFile opens path for writing, creating its parent directory.
func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, nil
}
