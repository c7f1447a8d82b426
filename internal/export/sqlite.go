package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/mandelgrid/internal/log"
	"github.com/zjrosen/mandelgrid/internal/sample"
)

// Schema is the table layout of a sqlite dataset.
const Schema = `
CREATE TABLE samples (
	id INTEGER PRIMARY KEY,
	re REAL NOT NULL,
	im REAL NOT NULL,
	value REAL,
	diverged INTEGER NOT NULL CHECK (diverged IN (0, 1)),
	CHECK ((diverged = 1) = (value IS NULL))
);
`

// SQLiteExporter writes samples into a fresh database file, one row per
// sample in generation order.
type SQLiteExporter struct {
	Path string
}

// Export replaces e.Path with a new database holding samples. All rows are
// inserted in a single transaction.
func (e *SQLiteExporter) Export(ctx context.Context, samples []sample.Sample) (err error) {
	if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing previous dataset: %w", err)
	}
	// Create the file (and its directory) so the driver opens a real path.
	f, err := createFile(e.Path)
	if err != nil {
		return err
	}
	_ = f.Close()

	db, err := sql.Open("sqlite3", "file:"+e.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing database: %w", cerr)
		}
	}()

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (id, re, im, value, diverged) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range samples {
		v, ok, err := value(s)
		if err != nil {
			return err
		}
		var val sql.NullFloat64
		diverged := 1
		if ok {
			val = sql.NullFloat64{Float64: v, Valid: true}
			diverged = 0
		}
		if _, err := stmt.ExecContext(ctx, i, s.Re(), s.Im(), val, diverged); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	log.Info(log.CatExport, "SQLite written", "path", e.Path, "rows", len(samples))
	return nil
}
