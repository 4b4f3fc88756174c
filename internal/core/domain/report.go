package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
)

// MatchEntry locates one matched worksheet. Additional is meaningful only for
// extended and partial matches.
type MatchEntry struct {
	FilePath   string
	SheetName  string
	Additional int
	Ratio      float64
	Kind       MatchKind
}

// MarshalJSON writes exact entries as [filepath, sheet, ratio] and the rest as
// [filepath, sheet, additional, ratio].
func (e MatchEntry) MarshalJSON() ([]byte, error) {
	if e.Kind == MatchExact {
		return json.Marshal([]any{e.FilePath, e.SheetName, e.Ratio})
	}
	return json.Marshal([]any{e.FilePath, e.SheetName, e.Additional, e.Ratio})
}

func (e *MatchEntry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 && len(parts) != 4 {
		return fmt.Errorf("match entry: expected 3 or 4 fields, got %d", len(parts))
	}
	if err := json.Unmarshal(parts[0], &e.FilePath); err != nil {
		return fmt.Errorf("match entry filepath: %w", err)
	}
	if err := json.Unmarshal(parts[1], &e.SheetName); err != nil {
		return fmt.Errorf("match entry sheet: %w", err)
	}
	last := parts[len(parts)-1]
	if len(parts) == 4 {
		if err := json.Unmarshal(parts[2], &e.Additional); err != nil {
			return fmt.Errorf("match entry additional: %w", err)
		}
	}
	if err := json.Unmarshal(last, &e.Ratio); err != nil {
		return fmt.Errorf("match entry ratio: %w", err)
	}
	return nil
}

// MatchGroup holds the worksheets claimed by one schema, in traversal order.
type MatchGroup struct {
	Schema  string
	Entries []MatchEntry
}

// SheetGroup holds sheet names under a file key.
type SheetGroup struct {
	Key    string
	Sheets []string
}

// SheetError records a worksheet that could not be read.
type SheetError struct {
	FilePath  string `json:"filepath"`
	SheetName string `json:"sheet"`
	Err       string `json:"error"`
}

// SheetRef names one worksheet of one file.
type SheetRef struct {
	FilePath  string `json:"filepath"`
	SheetName string `json:"sheet"`
}

// Report is the categorization of a corpus. Every worksheet lands in exactly
// one group, or in Errors when it could not be read. Group keys are sorted.
type Report struct {
	Exact      []MatchGroup
	Extended   []MatchGroup
	Partial    []MatchGroup
	NoMatch    []SheetGroup // keyed by file name
	OutOfScope []SheetGroup // keyed by file path
	Errors     []SheetError
}

// Count returns the number of worksheets placed in the five groups.
func (r *Report) Count() int {
	n := 0
	for _, groups := range [][]MatchGroup{r.Exact, r.Extended, r.Partial} {
		for _, g := range groups {
			n += len(g.Entries)
		}
	}
	for _, groups := range [][]SheetGroup{r.NoMatch, r.OutOfScope} {
		for _, g := range groups {
			n += len(g.Sheets)
		}
	}
	return n
}

// Candidates lists the worksheets an ingest run for schema should read: its
// exact matches followed by its extended matches.
func (r *Report) Candidates(schema string) []SheetRef {
	var refs []SheetRef
	for _, groups := range [][]MatchGroup{r.Exact, r.Extended} {
		for _, g := range groups {
			if g.Schema != schema {
				continue
			}
			for _, e := range g.Entries {
				refs = append(refs, SheetRef{FilePath: e.FilePath, SheetName: e.SheetName})
			}
		}
	}
	return refs
}

// Example returns the first exact match of schema, used as the reference sheet
// for type inference.
func (r *Report) Example(schema string) (SheetRef, bool) {
	for _, g := range r.Exact {
		if g.Schema == schema && len(g.Entries) > 0 {
			e := g.Entries[0]
			return SheetRef{FilePath: e.FilePath, SheetName: e.SheetName}, true
		}
	}
	return SheetRef{}, false
}

// KindCounts returns how many worksheets fell in each group.
func (r *Report) KindCounts() map[string]int {
	counts := map[string]int{}
	for name, groups := range map[string][]MatchGroup{"exact": r.Exact, "extended": r.Extended, "partial": r.Partial} {
		for _, g := range groups {
			counts[name] += len(g.Entries)
		}
	}
	for _, g := range r.NoMatch {
		counts["none"] += len(g.Sheets)
	}
	for _, g := range r.OutOfScope {
		counts["out_of_scope"] += len(g.Sheets)
	}
	counts["errors"] = len(r.Errors)
	return counts
}

// ReportBuilder accumulates resolutions into an ordered list per key. Keys
// are sorted once, by Build.
type ReportBuilder struct {
	exact    keyedList[MatchEntry]
	extended keyedList[MatchEntry]
	partial  keyedList[MatchEntry]
	noMatch  keyedList[string]
	outScope keyedList[string]
	errors   []SheetError
}

// NewReportBuilder returns an empty builder.
func NewReportBuilder() *ReportBuilder {
	return &ReportBuilder{}
}

// Add files one resolved worksheet.
func (b *ReportBuilder) Add(ws Worksheet, res Resolution) {
	if res.OutOfScope {
		b.outScope.add(ws.FilePath, ws.SheetName)
		return
	}

	v := res.Verdict
	entry := MatchEntry{
		FilePath:   ws.FilePath,
		SheetName:  ws.SheetName,
		Additional: v.Additional,
		Ratio:      v.Ratio,
		Kind:       v.Kind,
	}
	switch v.Kind {
	case MatchExact:
		b.exact.add(v.Schema, entry)
	case MatchExtended:
		b.extended.add(v.Schema, entry)
	case MatchPartial:
		b.partial.add(v.Schema, entry)
	default:
		b.noMatch.add(fileKey(ws), ws.SheetName)
	}
}

// AddError records a worksheet that could not be read.
func (b *ReportBuilder) AddError(filePath, sheet string, err error) {
	b.errors = append(b.errors, SheetError{FilePath: filePath, SheetName: sheet, Err: err.Error()})
}

// Merge appends every group of r, keeping r's entry order.
func (b *ReportBuilder) Merge(r *Report) {
	for _, g := range r.Exact {
		b.exact.add(g.Schema, g.Entries...)
	}
	for _, g := range r.Extended {
		b.extended.add(g.Schema, g.Entries...)
	}
	for _, g := range r.Partial {
		b.partial.add(g.Schema, g.Entries...)
	}
	for _, g := range r.NoMatch {
		b.noMatch.add(g.Key, g.Sheets...)
	}
	for _, g := range r.OutOfScope {
		b.outScope.add(g.Key, g.Sheets...)
	}
	b.errors = append(b.errors, r.Errors...)
}

// Build returns the report with every group sorted by key.
func (b *ReportBuilder) Build() *Report {
	r := &Report{Errors: slices.Clone(b.errors)}
	for _, key := range b.exact.sortedKeys() {
		r.Exact = append(r.Exact, MatchGroup{Schema: key, Entries: slices.Clone(b.exact.items[key])})
	}
	for _, key := range b.extended.sortedKeys() {
		r.Extended = append(r.Extended, MatchGroup{Schema: key, Entries: slices.Clone(b.extended.items[key])})
	}
	for _, key := range b.partial.sortedKeys() {
		r.Partial = append(r.Partial, MatchGroup{Schema: key, Entries: slices.Clone(b.partial.items[key])})
	}
	for _, key := range b.noMatch.sortedKeys() {
		r.NoMatch = append(r.NoMatch, SheetGroup{Key: key, Sheets: slices.Clone(b.noMatch.items[key])})
	}
	for _, key := range b.outScope.sortedKeys() {
		r.OutOfScope = append(r.OutOfScope, SheetGroup{Key: key, Sheets: slices.Clone(b.outScope.items[key])})
	}
	return r
}

// Categorize resolves every worksheet of the corpus in order.
func Categorize(corpus []Worksheet, cat *Catalogue, outOfScope SheetSet) *Report {
	b := NewReportBuilder()
	for _, ws := range corpus {
		b.Add(ws, Resolve(ws, cat, outOfScope))
	}
	return b.Build()
}

// MergeReports combines partial reports. Entries under the same key keep the
// order of the arguments.
func MergeReports(parts ...*Report) *Report {
	b := NewReportBuilder()
	for _, p := range parts {
		if p != nil {
			b.Merge(p)
		}
	}
	return b.Build()
}

func fileKey(ws Worksheet) string {
	if ws.FileName != "" {
		return ws.FileName
	}
	return filepath.Base(ws.FilePath)
}

type keyedList[T any] struct {
	keys  []string
	items map[string][]T
}

func (l *keyedList[T]) add(key string, vals ...T) {
	if l.items == nil {
		l.items = make(map[string][]T)
	}
	if _, ok := l.items[key]; !ok {
		l.keys = append(l.keys, key)
	}
	l.items[key] = append(l.items[key], vals...)
}

func (l *keyedList[T]) sortedKeys() []string {
	keys := slices.Clone(l.keys)
	slices.Sort(keys)
	return keys
}

// MarshalJSON writes the five groups as key-sorted objects.
func (r *Report) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	sections := []struct {
		name  string
		write func(*bytes.Buffer) error
	}{
		{"exact_match_groups", func(b *bytes.Buffer) error { return writeMatchGroups(b, r.Exact) }},
		{"extended_match_groups", func(b *bytes.Buffer) error { return writeMatchGroups(b, r.Extended) }},
		{"partial_match_groups", func(b *bytes.Buffer) error { return writeMatchGroups(b, r.Partial) }},
		{"no_match_sheets", func(b *bytes.Buffer) error { return writeSheetGroups(b, r.NoMatch) }},
		{"out_scope_sheets", func(b *bytes.Buffer) error { return writeSheetGroups(b, r.OutOfScope) }},
	}
	for i, s := range sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", s.name)
		if err := s.write(&buf); err != nil {
			return nil, err
		}
	}

	if len(r.Errors) > 0 {
		errs, err := json.Marshal(r.Errors)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"errors":`)
		buf.Write(errs)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMatchGroups(buf *bytes.Buffer, groups []MatchGroup) error {
	buf.WriteByte('{')
	for i, g := range groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(buf, g.Schema, g.Entries); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeSheetGroups(buf *bytes.Buffer, groups []SheetGroup) error {
	buf.WriteByte('{')
	for i, g := range groups {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(buf, g.Key, g.Sheets); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeKeyValue(buf *bytes.Buffer, key string, value any) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

type reportDocument struct {
	Exact      map[string][]MatchEntry `json:"exact_match_groups"`
	Extended   map[string][]MatchEntry `json:"extended_match_groups"`
	Partial    map[string][]MatchEntry `json:"partial_match_groups"`
	NoMatch    map[string][]string     `json:"no_match_sheets"`
	OutOfScope map[string][]string     `json:"out_scope_sheets"`
	Errors     []SheetError            `json:"errors"`
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var doc reportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	b := NewReportBuilder()
	addMatches(&b.exact, doc.Exact, MatchExact)
	addMatches(&b.extended, doc.Extended, MatchExtended)
	addMatches(&b.partial, doc.Partial, MatchPartial)
	for key, sheets := range doc.NoMatch {
		b.noMatch.add(key, sheets...)
	}
	for key, sheets := range doc.OutOfScope {
		b.outScope.add(key, sheets...)
	}
	b.errors = doc.Errors

	*r = *b.Build()
	return nil
}

func addMatches(l *keyedList[MatchEntry], groups map[string][]MatchEntry, kind MatchKind) {
	for key, entries := range groups {
		for i := range entries {
			entries[i].Kind = kind
		}
		l.add(key, entries...)
	}
}
