// Package sqlite writes normalized records to an embedded SQLite database
// through the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// Writer implements port.Writer. Destination.Location is the database file;
// connections are opened on first use and kept until Close.
type Writer struct {
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

var _ port.Writer = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{dbs: make(map[string]*sql.DB)}
}

func (w *Writer) open(path string) (*sql.DB, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if db, ok := w.dbs[path]; ok {
		return db, nil
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	// One writer connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)
	w.dbs[path] = db
	return db, nil
}

// TableName maps namespace and table onto a single SQLite table name. SQLite
// schemas are attached databases, so a namespace becomes a name prefix.
func TableName(dest port.Destination) string {
	if dest.Namespace == "" || dest.Namespace == "main" {
		return dest.Table
	}
	return dest.Namespace + "_" + dest.Table
}

// Write creates the table if needed, deletes rows in the record's partitions
// and inserts the record, all in one transaction.
func (w *Writer) Write(ctx context.Context, rec domain.Record, dest port.Destination) error {
	partitions, err := port.Partitions(rec, dest.PartitionBy)
	if err != nil {
		return err
	}
	db, err := w.open(dest.Location)
	if err != nil {
		return err
	}

	table := quoteIdent(TableName(dest))
	if _, err := db.ExecContext(ctx, createTableSQL(table, rec)); err != nil {
		return fmt.Errorf("creating table %s: %w", table, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(partitions) > 0 {
		conds := make([]string, len(dest.PartitionBy))
		for i, col := range dest.PartitionBy {
			conds[i] = quoteIdent(col) + " IS ?"
		}
		del := "DELETE FROM " + table + " WHERE " + strings.Join(conds, " AND ")
		for _, p := range partitions {
			if _, err := tx.ExecContext(ctx, del, sqliteValues(p)...); err != nil {
				return fmt.Errorf("deleting partition %v: %w", p, err)
			}
		}
	}

	cols := make([]string, len(rec.Columns))
	for i, c := range rec.Columns {
		cols[i] = quoteIdent(c)
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(cols)), ",")
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+table+" ("+strings.Join(cols, ",")+") VALUES ("+ph+")")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range rec.Rows {
		if _, err := stmt.ExecContext(ctx, sqliteValues(row)...); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// Drop removes the destination table.
func (w *Writer) Drop(ctx context.Context, dest port.Destination) error {
	db, err := w.open(dest.Location)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(TableName(dest))); err != nil {
		return fmt.Errorf("dropping %s: %w", TableName(dest), err)
	}
	return nil
}

// Close closes every database opened by the writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var firstErr error
	for path, db := range w.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing %s: %w", path, err)
		}
		delete(w.dbs, path)
	}
	return firstErr
}

func createTableSQL(table string, rec domain.Record) string {
	defs := make([]string, len(rec.Columns))
	for i, c := range rec.Columns {
		var dtype domain.DType
		if i < len(rec.Types) {
			dtype = rec.Types[i]
		}
		defs[i] = strings.TrimSpace(quoteIdent(c) + " " + columnType(dtype))
	}
	return "CREATE TABLE IF NOT EXISTS " + table + " (" + strings.Join(defs, ", ") + ")"
}

func columnType(d domain.DType) string {
	switch d {
	case domain.DTypeInt64, domain.DTypeBool:
		return "INTEGER"
	case domain.DTypeFloat64:
		return "REAL"
	case domain.DTypeString, domain.DTypeDatetime:
		return "TEXT"
	default:
		return ""
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func sqliteValues(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		out[i] = sqliteValue(v)
	}
	return out
}

func sqliteValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case bool:
		if t {
			return 1
		}
		return 0
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t
	}
}
