// Package testutil provides test fixtures for samples and exported datasets.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"
)

// DatasetRow is one row read back from a sqlite dataset.
type DatasetRow struct {
	Re       float64
	Im       float64
	Value    sql.NullFloat64
	Diverged bool
}

// OpenDataset opens an exported sqlite dataset read-only. The database is
// closed when the test ends.
func OpenDataset(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ReadDataset returns every row of the samples table in id order.
func ReadDataset(t *testing.T, db *sql.DB) []DatasetRow {
	t.Helper()
	rows, err := db.Query(`SELECT re, im, value, diverged FROM samples ORDER BY id`)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var out []DatasetRow
	for rows.Next() {
		var r DatasetRow
		require.NoError(t, rows.Scan(&r.Re, &r.Im, &r.Value, &r.Diverged))
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}
