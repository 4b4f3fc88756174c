// Package excel reads workbooks with excelize. It implements port.Profiler
// and port.Loader.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

// readTable parses a worksheet into a table. The first row is the header;
// empty cells become nil. Raw cell values are kept so that numbers are not
// rounded by the cell's number format.
func readTable(f *excelize.File, sheet string) (domain.Table, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: %q: %v", domain.ErrWorksheetUnreadable, sheet, err)
	}
	if len(rows) == 0 {
		return domain.Table{Columns: []string{}}, nil
	}

	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}

	table := domain.Table{
		Columns: domain.NormalizeHeader(rows[0], width),
		Rows:    make([][]any, 0, len(rows)-1),
	}
	for _, r := range rows[1:] {
		row := make([]any, width)
		for i, cell := range r {
			if cell != "" {
				row[i] = cell
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
