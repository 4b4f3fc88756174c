package domain

import "time"

// Provenance columns appended to every normalized record.
const (
	ColumnSourceFilePath  = "source_filepath"
	ColumnSourceSheetName = "source_sheetname"
	ColumnCreatedTime     = "created_time"
)

// ProvenanceColumns lists the trailing metadata columns in output order.
var ProvenanceColumns = []string{ColumnSourceFilePath, ColumnSourceSheetName, ColumnCreatedTime}

// Provenance identifies where a record came from.
type Provenance struct {
	FilePath  string
	SheetName string
	CreatedAt time.Time
}

// Record is a worksheet projected onto a schema. Columns are the schema columns
// in schema order followed by ProvenanceColumns. Types is set once the record
// has been validated against a record schema.
type Record struct {
	Schema  string
	Columns []string
	Types   []DType
	Rows    [][]any
}

// Len returns the number of rows.
func (r Record) Len() int {
	return len(r.Rows)
}

// Column returns the values of the named column.
func (r Record) Column(name string) ([]any, bool) {
	return Table{Columns: r.Columns, Rows: r.Rows}.Column(name)
}

// Normalize projects table onto schemaColumns. Columns absent from the table
// are filled with nil in every row and reported in missing. Columns not in the
// schema are dropped. Row count is preserved.
func Normalize(table Table, schemaColumns []string, src Provenance) (rec Record, missing []string) {
	idx := table.ColumnIndex()

	positions := make([]int, len(schemaColumns))
	for i, col := range schemaColumns {
		p, ok := idx[col]
		if !ok {
			p = -1
			missing = append(missing, col)
		}
		positions[i] = p
	}

	columns := make([]string, 0, len(schemaColumns)+len(ProvenanceColumns))
	columns = append(columns, schemaColumns...)
	columns = append(columns, ProvenanceColumns...)

	rows := make([][]any, len(table.Rows))
	for r, srcRow := range table.Rows {
		row := make([]any, len(columns))
		for i, p := range positions {
			if p >= 0 && p < len(srcRow) {
				row[i] = srcRow[p]
			}
		}
		n := len(schemaColumns)
		row[n] = src.FilePath
		row[n+1] = src.SheetName
		row[n+2] = src.CreatedAt
		rows[r] = row
	}

	return Record{Columns: columns, Rows: rows}, missing
}
