package excel

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

const (
	sampleStride = 10
	sampleLimit  = 100
)

// Profiler implements port.Profiler for .xlsx workbooks.
type Profiler struct{}

var _ port.Profiler = (*Profiler)(nil)

// NewProfiler creates a workbook profiler.
func NewProfiler() *Profiler {
	return &Profiler{}
}

// Profile reads every worksheet of the workbook at path. Sheets that fail to
// parse carry an error in their profile and do not stop the others.
func (p *Profiler) Profile(ctx context.Context, path string) (*port.FileProfile, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	fp := &port.FileProfile{
		Path:       path,
		Name:       filepath.Base(path),
		ChartParts: countCharts(f),
	}
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fp.Sheets = append(fp.Sheets, profileSheet(f, name))
	}
	return fp, nil
}

func profileSheet(f *excelize.File, name string) port.SheetProfile {
	sp := port.SheetProfile{Name: name}

	table, err := readTable(f, name)
	if err != nil {
		sp.Error = err.Error()
		return sp
	}

	sp.Columns = table.Columns
	sp.NumRows = len(table.Rows)
	sp.NumColumns = len(table.Columns)
	sp.MissingPct = missingFractions(table)
	sp.Sample = sampleRows(table)
	sp.FormulaColumns = formulaColumns(f, name, len(table.Rows)+1, len(table.Columns))
	sp.ContainsFormulas = len(sp.FormulaColumns) > 0
	sp.Table = &table
	return sp
}

// missingFractions returns, per column, the share of rows with no value,
// rounded to four decimals.
func missingFractions(table domain.Table) map[string]float64 {
	out := make(map[string]float64, len(table.Columns))
	if len(table.Rows) == 0 {
		for _, col := range table.Columns {
			out[col] = 0
		}
		return out
	}
	for i, col := range table.Columns {
		missing := 0
		for _, row := range table.Rows {
			if row[i] == nil {
				missing++
			}
		}
		ratio := float64(missing) / float64(len(table.Rows))
		out[col] = math.Round(ratio*10000) / 10000
	}
	return out
}

// sampleRows picks rows 0, 10, 20 ... 90 as strings, nulls as "".
func sampleRows(table domain.Table) []map[string]string {
	var out []map[string]string
	for i := 0; i < len(table.Rows) && i < sampleLimit; i += sampleStride {
		rec := make(map[string]string, len(table.Columns))
		for j, col := range table.Columns {
			if v := table.Rows[i][j]; v != nil {
				rec[col] = fmt.Sprint(v)
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// formulaColumns maps a column letter to the first formula found in it.
func formulaColumns(f *excelize.File, sheet string, rows, cols int) map[string]string {
	found := map[string]string{}
	for c := 1; c <= cols; c++ {
		letter, err := excelize.ColumnNumberToName(c)
		if err != nil {
			continue
		}
		for r := 1; r <= rows; r++ {
			formula, err := f.GetCellFormula(sheet, letter+fmt.Sprint(r))
			if err != nil || formula == "" {
				continue
			}
			found[letter] = "=" + formula
			break
		}
	}
	if len(found) == 0 {
		return nil
	}
	return found
}

// countCharts counts chart parts in the package. excelize does not expose
// the chart-to-sheet relation, so charts are counted per workbook.
func countCharts(f *excelize.File) int {
	n := 0
	f.Pkg.Range(func(key, _ any) bool {
		name, ok := key.(string)
		if ok && strings.HasPrefix(name, "xl/charts/chart") && strings.HasSuffix(name, ".xml") {
			n++
		}
		return true
	})
	return n
}
