// Package csvfile reads and writes comma-separated files.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// Loader implements port.Loader. A CSV file holds one sheet, named after
// the file without its extension.
type Loader struct{}

var _ port.Loader = (*Loader)(nil)

func NewLoader() *Loader {
	return &Loader{}
}

// SheetName returns the sheet name a CSV file is loaded under.
func SheetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *Loader) Load(ctx context.Context, path string, sheets []string) ([]port.LoadedSheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := SheetName(path)
	if len(sheets) == 0 {
		sheets = []string{name}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	table, readErr := readTable(f)

	out := make([]port.LoadedSheet, 0, len(sheets))
	for _, s := range sheets {
		switch {
		case s != name:
			out = append(out, port.LoadedSheet{Name: s, Err: fmt.Errorf("%w: %q: csv file %s has only sheet %q", domain.ErrWorksheetUnreadable, s, path, name)})
		case readErr != nil:
			out = append(out, port.LoadedSheet{Name: s, Err: fmt.Errorf("%w: %q: %v", domain.ErrWorksheetUnreadable, s, readErr)})
		default:
			out = append(out, port.LoadedSheet{Name: s, Table: table})
		}
	}
	return out, nil
}

// readTable parses CSV with a header row. Rows may be ragged; empty fields
// become nil.
func readTable(r io.Reader) (domain.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{Columns: []string{}}, nil
	}
	if err != nil {
		return domain.Table{}, err
	}

	var records [][]string
	width := len(header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, err
		}
		width = max(width, len(rec))
		records = append(records, rec)
	}

	table := domain.Table{
		Columns: domain.NormalizeHeader(header, width),
		Rows:    make([][]any, 0, len(records)),
	}
	for _, rec := range records {
		row := make([]any, width)
		for i, v := range rec {
			if v != "" {
				row[i] = v
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
