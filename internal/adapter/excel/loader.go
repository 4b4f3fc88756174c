package excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pavestack/sheetmatch/internal/core/port"
)

// Loader implements port.Loader for workbooks.
type Loader struct{}

var _ port.Loader = (*Loader)(nil)

func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the named sheets, or every sheet when sheets is empty. A sheet
// that is missing or cannot be parsed is returned with Err set.
func (l *Loader) Load(ctx context.Context, path string, sheets []string) ([]port.LoadedSheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if len(sheets) == 0 {
		sheets = f.GetSheetList()
	}

	out := make([]port.LoadedSheet, 0, len(sheets))
	for _, name := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := readTable(f, name)
		out = append(out, port.LoadedSheet{Name: name, Table: table, Err: err})
	}
	return out, nil
}
