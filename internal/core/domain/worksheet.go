package domain

// Table is row-oriented tabular data. A nil cell is a null value.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ColumnIndex maps column names to positions. The first of any duplicate
// names wins.
func (t Table) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, ok := idx[c]; !ok {
			idx[c] = i
		}
	}
	return idx
}

// Column returns every value of the named column, or false if the table has no
// such column. Short rows yield nil.
func (t Table) Column(name string) ([]any, bool) {
	i, ok := t.ColumnIndex()[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(t.Rows))
	for r, row := range t.Rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out, true
}

// Worksheet identifies one sheet of one file together with its observed
// columns. Table is only populated when the caller needs the payload.
type Worksheet struct {
	FilePath  string
	FileName  string
	SheetName string
	Columns   []string
	Table     *Table
}

// SheetSet is a set of sheet names.
type SheetSet map[string]struct{}

// NewSheetSet builds a set from names.
func NewSheetSet(names ...string) SheetSet {
	s := make(SheetSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set. A nil set contains nothing.
func (s SheetSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}
