package port

import (
	"context"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

// SheetProfile describes one worksheet as found on disk. Error is set when
// the sheet could not be read; the other fields are then empty.
type SheetProfile struct {
	Name             string              `json:"name"`
	Columns          []string            `json:"columns"`
	NumRows          int                 `json:"num_rows"`
	NumColumns       int                 `json:"num_columns"`
	MissingPct       map[string]float64  `json:"missing_values_percentage,omitempty"`
	Sample           []map[string]string `json:"sample_data,omitempty"`
	ContainsFormulas bool                `json:"contains_formulas"`
	FormulaColumns   map[string]string   `json:"columns_with_formulas,omitempty"`
	Error            string              `json:"error,omitempty"`

	// Table carries the parsed rows for callers that go on to normalize the
	// sheet. It is never serialized.
	Table *domain.Table `json:"-"`
}

// Readable reports whether the sheet was parsed successfully.
func (p SheetProfile) Readable() bool {
	return p.Error == ""
}

// FileProfile describes every worksheet of one workbook. Error is set when
// the workbook itself could not be opened.
type FileProfile struct {
	Path       string         `json:"filepath"`
	Name       string         `json:"file_name"`
	ChartParts int            `json:"chart_parts"`
	Sheets     []SheetProfile `json:"sheets"`
	Error      string         `json:"error,omitempty"`
}

// Worksheets converts the readable sheets into worksheet descriptors.
func (p *FileProfile) Worksheets() []domain.Worksheet {
	out := make([]domain.Worksheet, 0, len(p.Sheets))
	for _, s := range p.Sheets {
		if !s.Readable() {
			continue
		}
		out = append(out, domain.Worksheet{
			FilePath:  p.Path,
			FileName:  p.Name,
			SheetName: s.Name,
			Columns:   s.Columns,
			Table:     s.Table,
		})
	}
	return out
}

// Profiler inspects a workbook. A workbook that cannot be opened returns an
// error; a single unreadable sheet is reported through SheetProfile.Error.
type Profiler interface {
	Profile(ctx context.Context, path string) (*FileProfile, error)
}
