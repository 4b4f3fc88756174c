package postgres

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// DefaultNamespace is used when a destination has no namespace.
const DefaultNamespace = "public"

// Writer implements port.Writer. Destination.Location is a connection
// string; when empty the writer's default database URL is used. Pools are
// opened on first use and closed by Close.
type Writer struct {
	defaultURL string
	opts       PoolOptions
	shared     *pgxpool.Pool

	mu    sync.Mutex
	pools map[string]*pgxpool.Pool
}

var _ port.Writer = (*Writer)(nil)

func NewWriter(defaultURL string, opts PoolOptions) *Writer {
	return &Writer{
		defaultURL: defaultURL,
		opts:       opts,
		pools:      make(map[string]*pgxpool.Pool),
	}
}

// NewWriterWithPool writes every destination through pool. The caller
// keeps ownership of the pool.
func NewWriterWithPool(pool *pgxpool.Pool) *Writer {
	return &Writer{shared: pool, pools: make(map[string]*pgxpool.Pool)}
}

func (w *Writer) pool(ctx context.Context, location string) (*pgxpool.Pool, error) {
	if w.shared != nil {
		return w.shared, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	url := location
	if url == "" {
		url = w.defaultURL
	}
	if url == "" {
		return nil, fmt.Errorf("postgres writer: no database URL for destination")
	}
	if p, ok := w.pools[url]; ok {
		return p, nil
	}
	p, err := NewPool(ctx, url, w.opts)
	if err != nil {
		return nil, err
	}
	w.pools[url] = p
	return p, nil
}

func tableIdent(dest port.Destination) pgx.Identifier {
	ns := dest.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return pgx.Identifier{ns, dest.Table}
}

// Write creates the schema and table when absent, then deletes the record's
// partitions and copies the rows in, in one transaction.
func (w *Writer) Write(ctx context.Context, rec domain.Record, dest port.Destination) error {
	partitions, err := port.Partitions(rec, dest.PartitionBy)
	if err != nil {
		return err
	}
	pool, err := w.pool(ctx, dest.Location)
	if err != nil {
		return err
	}

	ident := tableIdent(dest)
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{ident[0]}.Sanitize()); err != nil {
		return fmt.Errorf("creating schema %s: %w", ident[0], err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(ident, rec)); err != nil {
		return fmt.Errorf("creating table %s: %w", ident.Sanitize(), err)
	}

	if len(partitions) > 0 {
		idx := domain.Table{Columns: rec.Columns}.ColumnIndex()
		conds := make([]string, len(dest.PartitionBy))
		partTypes := make([]domain.DType, len(dest.PartitionBy))
		for i, col := range dest.PartitionBy {
			conds[i] = fmt.Sprintf("%s IS NOT DISTINCT FROM $%d", pgx.Identifier{col}.Sanitize(), i+1)
			partTypes[i] = typeAt(rec.Types, idx[col])
		}
		del := "DELETE FROM " + ident.Sanitize() + " WHERE " + strings.Join(conds, " AND ")
		for _, p := range partitions {
			if _, err := tx.Exec(ctx, del, pgValues(p, partTypes)...); err != nil {
				return fmt.Errorf("deleting partition %v: %w", p, err)
			}
		}
	}

	rows := make([][]any, len(rec.Rows))
	for i, row := range rec.Rows {
		rows[i] = pgValues(row, rec.Types)
	}
	if _, err := tx.CopyFrom(ctx, ident, rec.Columns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copying into %s: %w", ident.Sanitize(), err)
	}
	return tx.Commit(ctx)
}

// Drop removes the destination table.
func (w *Writer) Drop(ctx context.Context, dest port.Destination) error {
	pool, err := w.pool(ctx, dest.Location)
	if err != nil {
		return err
	}
	ident := tableIdent(dest)
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+ident.Sanitize()); err != nil {
		return fmt.Errorf("dropping %s: %w", ident.Sanitize(), err)
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, p := range w.pools {
		p.Close()
		delete(w.pools, key)
	}
	return nil
}

func createTableSQL(ident pgx.Identifier, rec domain.Record) string {
	defs := make([]string, len(rec.Columns))
	for i, c := range rec.Columns {
		defs[i] = pgx.Identifier{c}.Sanitize() + " " + columnType(typeAt(rec.Types, i))
	}
	return "CREATE TABLE IF NOT EXISTS " + ident.Sanitize() + " (" + strings.Join(defs, ", ") + ")"
}

func typeAt(types []domain.DType, i int) domain.DType {
	if i < len(types) {
		return types[i]
	}
	return ""
}

func columnType(d domain.DType) string {
	switch d {
	case domain.DTypeInt64:
		return "BIGINT"
	case domain.DTypeFloat64:
		return "DOUBLE PRECISION"
	case domain.DTypeBool:
		return "BOOLEAN"
	case domain.DTypeDatetime:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// pgValues prepares a row for the wire. Columns without a concrete type are
// TEXT, so their values are sent as text.
func pgValues(row []any, types []domain.DType) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		if columnType(typeAt(types, i)) == "TEXT" {
			out[i] = textValue(v)
			continue
		}
		out[i] = v
	}
	return out
}

func textValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}
