package port

import (
	"context"
	"fmt"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

// Destination tells a writer where a record goes. Flat-file writers use
// Location as a directory and FileName as the file stem; database writers use
// Location as the database (file path, DSN database or Mongo database) and
// Namespace + Table as the table or collection.
type Destination struct {
	Location    string
	FileName    string
	Namespace   string
	Table       string
	PartitionBy []string
}

func (d Destination) String() string {
	if d.Table == "" {
		return fmt.Sprintf("%s/%s", d.Location, d.FileName)
	}
	if d.Namespace == "" {
		return fmt.Sprintf("%s:%s", d.Location, d.Table)
	}
	return fmt.Sprintf("%s:%s.%s", d.Location, d.Namespace, d.Table)
}

// Writer persists normalized records. Write creates the destination when it
// does not exist and replaces any rows that share the record's partition
// values, so re-running a source file does not duplicate rows.
type Writer interface {
	Write(ctx context.Context, rec domain.Record, dest Destination) error
	Drop(ctx context.Context, dest Destination) error
	Close() error
}

// Partitions returns the distinct tuples of partition column values found in
// rec, in first-seen order. Writers delete each tuple before inserting.
func Partitions(rec domain.Record, partitionBy []string) ([][]any, error) {
	idx := domain.Table{Columns: rec.Columns}.ColumnIndex()
	pos := make([]int, len(partitionBy))
	for i, col := range partitionBy {
		p, ok := idx[col]
		if !ok {
			return nil, fmt.Errorf("partition column %q not in record", col)
		}
		pos[i] = p
	}

	var out [][]any
	seen := make(map[string]struct{})
	for _, row := range rec.Rows {
		tuple := make([]any, len(pos))
		for i, p := range pos {
			if p < len(row) {
				tuple[i] = row[p]
			}
		}
		key := fmt.Sprintf("%#v", tuple)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tuple)
	}
	return out, nil
}
