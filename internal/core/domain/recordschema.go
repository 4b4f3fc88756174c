package domain

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DType is a column data type in a record schema. Names follow the dataframe
// schema files the pipeline reads and writes.
type DType string

const (
	DTypeInt64    DType = "int64"
	DTypeFloat64  DType = "float64"
	DTypeString   DType = "str"
	DTypeBool     DType = "bool"
	DTypeDatetime DType = "datetime64[ns]"
	DTypeObject   DType = "object"
)

// Valid reports whether d is a known dtype.
func (d DType) Valid() bool {
	switch d {
	case DTypeInt64, DTypeFloat64, DTypeString, DTypeBool, DTypeDatetime, DTypeObject:
		return true
	}
	return false
}

// ColumnSpec constrains one column of a record.
type ColumnSpec struct {
	Name     string
	DType    DType
	Nullable bool
}

// RecordSchema is the conformance check applied to normalized records before
// they are written.
type RecordSchema struct {
	Name    string
	Columns []ColumnSpec
}

// ColumnNames returns every column name in schema order.
func (rs RecordSchema) ColumnNames() []string {
	names := make([]string, len(rs.Columns))
	for i, c := range rs.Columns {
		names[i] = c.Name
	}
	return names
}

// DataColumns returns the schema columns without the provenance columns, in
// schema order. These are the columns a worksheet is normalized onto.
func (rs RecordSchema) DataColumns() []string {
	var names []string
	for _, c := range rs.Columns {
		if isProvenance(c.Name) {
			continue
		}
		names = append(names, c.Name)
	}
	return names
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ValidateRecord checks rec against rs and returns a copy with every value
// converted to its column's dtype. Empty strings count as null. Columns of rec
// that rs does not mention pass through unchanged.
func ValidateRecord(rec Record, rs RecordSchema) (Record, error) {
	idx := Table{Columns: rec.Columns}.ColumnIndex()

	specs := make([]*ColumnSpec, len(rec.Columns))
	for i := range rs.Columns {
		spec := &rs.Columns[i]
		if !spec.DType.Valid() {
			return Record{}, &ValidationError{Schema: rs.Name, Reason: fmt.Sprintf("column %q has unknown dtype %q", spec.Name, spec.DType)}
		}
		p, ok := idx[spec.Name]
		if !ok {
			return Record{}, &ValidationError{Schema: rs.Name, Reason: fmt.Sprintf("column %q missing from record", spec.Name)}
		}
		specs[p] = spec
	}

	out := Record{
		Schema:  rec.Schema,
		Columns: rec.Columns,
		Types:   make([]DType, len(rec.Columns)),
		Rows:    make([][]any, len(rec.Rows)),
	}
	for i, spec := range specs {
		out.Types[i] = DTypeObject
		if spec != nil {
			out.Types[i] = spec.DType
		}
	}

	for r, row := range rec.Rows {
		converted := make([]any, len(rec.Columns))
		for i, spec := range specs {
			var v any
			if i < len(row) {
				v = row[i]
			}
			if spec == nil {
				converted[i] = v
				continue
			}
			if isNull(v) {
				if !spec.Nullable {
					return Record{}, &ValidationError{Schema: rs.Name, Reason: fmt.Sprintf("column %q row %d: null value in non-nullable column", spec.Name, r)}
				}
				continue
			}
			cv, err := Coerce(v, spec.DType)
			if err != nil {
				return Record{}, &ValidationError{Schema: rs.Name, Reason: fmt.Sprintf("column %q row %d: %v", spec.Name, r, err)}
			}
			converted[i] = cv
		}
		out.Rows[r] = converted
	}

	return out, nil
}

// Coerce converts v to the Go representation of dtype: int64, float64,
// string, bool or time.Time. Object values are returned unchanged.
func Coerce(v any, dtype DType) (any, error) {
	switch dtype {
	case DTypeInt64:
		return toInt64(v)
	case DTypeFloat64:
		return toFloat64(v)
	case DTypeBool:
		return toBool(v)
	case DTypeDatetime:
		return toTime(v)
	case DTypeString:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339Nano), nil
		}
		return fmt.Sprint(v), nil
	default:
		return v, nil
	}
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, fmt.Errorf("cannot convert %q to int64", x)
		}
		return int64(f), nil
	}
	return 0, fmt.Errorf("cannot convert %T to int64", v)
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float64", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot convert %T to float64", v)
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		if b, ok := parseBoolWord(x); ok {
			return b, nil
		}
		return false, fmt.Errorf("cannot convert %q to bool", x)
	}
	return false, fmt.Errorf("cannot convert %T to bool", v)
}

func toTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot convert %q to datetime", x)
	}
	return time.Time{}, fmt.Errorf("cannot convert %T to datetime", v)
}

func parseBoolWord(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func isNull(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func isProvenance(name string) bool {
	return slices.Contains(ProvenanceColumns, name)
}

// InferColumnTypes guesses a dtype for every column of an example table from
// its non-null values, trying int64, float64, bool and then str. Columns with
// no values are object.
func InferColumnTypes(table Table) map[string]DType {
	types := make(map[string]DType, len(table.Columns))
	for _, col := range table.Columns {
		values, _ := table.Column(col)
		types[col] = inferDType(values)
	}
	return types
}

func inferDType(values []any) DType {
	candidates := []DType{DTypeInt64, DTypeFloat64, DTypeBool}
	seen := false
	for _, v := range values {
		if isNull(v) {
			continue
		}
		seen = true
		kept := candidates[:0]
		for _, d := range candidates {
			if _, err := Coerce(v, d); err == nil {
				kept = append(kept, d)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			return DTypeString
		}
	}
	if !seen {
		return DTypeObject
	}
	return candidates[0]
}

// BuildRecordSchema turns a catalogue schema into a record schema using
// inferred types. Data columns are nullable because normalization fills
// absent columns with null. Provenance columns are always present.
func BuildRecordSchema(s Schema, types map[string]DType) RecordSchema {
	rs := RecordSchema{Name: s.Name}
	for _, col := range s.Columns {
		dtype, ok := types[col]
		if !ok {
			dtype = DTypeObject
		}
		rs.Columns = append(rs.Columns, ColumnSpec{Name: col, DType: dtype, Nullable: true})
	}
	rs.Columns = append(rs.Columns,
		ColumnSpec{Name: ColumnSourceFilePath, DType: DTypeString},
		ColumnSpec{Name: ColumnSourceSheetName, DType: DTypeString},
		ColumnSpec{Name: ColumnCreatedTime, DType: DTypeDatetime},
	)
	return rs
}
