package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// Writer implements port.Writer with one CSV file per destination at
// <Location>/<FileName>.csv.
type Writer struct{}

var _ port.Writer = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{}
}

func targetPath(dest port.Destination) string {
	name := dest.FileName
	if name == "" {
		name = dest.Table
	}
	return filepath.Join(dest.Location, name+".csv")
}

// Write upserts rec: existing rows whose partition values match one of the
// record's partitions are replaced. The file is rewritten through a
// temporary file so a failed write leaves the previous content in place.
func (w *Writer) Write(ctx context.Context, rec domain.Record, dest port.Destination) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	partitions, err := port.Partitions(rec, dest.PartitionBy)
	if err != nil {
		return err
	}

	target := targetPath(dest)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}

	kept, err := keptRows(target, rec.Columns, dest.PartitionBy, partitions)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".sheetmatch-*.csv")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	cw := csv.NewWriter(tmp)
	if err := cw.Write(rec.Columns); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing header: %w", err)
	}
	if err := cw.WriteAll(kept); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing rows: %w", err)
	}
	for _, row := range rec.Rows {
		if err := cw.Write(formatRow(row)); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("writing rows: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replacing %s: %w", target, err)
	}
	return nil
}

// keptRows reads the existing file and returns the rows outside the given
// partitions. A missing file has no rows; a file with a different header is
// an error.
func keptRows(target string, columns, partitionBy []string, partitions [][]any) ([][]string, error) {
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", target, err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if !slices.Equal(records[0], columns) {
		return nil, fmt.Errorf("%s has columns %v, record has %v", target, records[0], columns)
	}

	pos := make([]int, len(partitionBy))
	for i, col := range partitionBy {
		pos[i] = slices.Index(columns, col)
	}
	replaced := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		replaced[tupleKey(formatRow(p))] = struct{}{}
	}

	var kept [][]string
	for _, row := range records[1:] {
		tuple := make([]string, len(pos))
		for i, p := range pos {
			tuple[i] = row[p]
		}
		if _, ok := replaced[tupleKey(tuple)]; ok {
			continue
		}
		kept = append(kept, row)
	}
	return kept, nil
}

func tupleKey(values []string) string {
	return fmt.Sprintf("%q", values)
}

// Drop removes the destination file if it exists.
func (w *Writer) Drop(_ context.Context, dest port.Destination) error {
	if err := os.Remove(targetPath(dest)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", targetPath(dest), err)
	}
	return nil
}

func (w *Writer) Close() error { return nil }

func formatRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = formatCell(v)
	}
	return out
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
