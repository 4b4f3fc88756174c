package catalogue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

func TestParseJSON_KeepsOrder(t *testing.T) {
	t.Parallel()

	cat, err := ParseJSON([]byte(`{"Zeta": ["A", "B"], "Alpha": ["C"], "Empty": []}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Alpha", "Empty"}, cat.Names())

	s, err := cat.Lookup("Zeta")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Columns)
}

func TestParseYAML_KeepsOrder(t *testing.T) {
	t.Parallel()

	cat, err := ParseYAML([]byte("Zeta: [A, B]\nAlpha:\n  - C\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Zeta", "Alpha"}, cat.Names())
}

func TestParse_Groups(t *testing.T) {
	t.Parallel()

	yamlDoc := `
groups:
  - name: Schema 1
    base: {name: Base Schema 1, columns: [Scan, MP]}
    variations:
      - {name: Variation 1A, columns: [User Mark]}
`
	jsonDoc := `{"groups": [{"name": "Schema 1", "base": {"name": "Base Schema 1", "columns": ["Scan", "MP"]},
		"variations": [{"name": "Variation 1A", "columns": ["User Mark"]}]}]}`

	for name, parse := range map[string]func() (*domain.Catalogue, error){
		"yaml": func() (*domain.Catalogue, error) { return ParseYAML([]byte(yamlDoc)) },
		"json": func() (*domain.Catalogue, error) { return ParseJSON([]byte(jsonDoc)) },
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cat, err := parse()
			require.NoError(t, err)
			assert.Equal(t, []string{"Base Schema 1", "Variation 1A"}, cat.Names())
			v, err := cat.Lookup("Variation 1A")
			require.NoError(t, err)
			assert.Equal(t, []string{"Scan", "MP", "User Mark"}, v.Columns)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		parse func([]byte) (*domain.Catalogue, error)
		data  string
	}{
		{"json array", ParseJSON, `["A"]`},
		{"json non-list value", ParseJSON, `{"S": "A"}`},
		{"json duplicate name", ParseJSON, `{"S": ["A"], "S": ["B"]}`},
		{"yaml scalar", ParseYAML, `just text`},
		{"yaml non-list value", ParseYAML, "S: {a: b}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.parse([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	cat, err := domain.Flatten(domain.PavementGroups())
	require.NoError(t, err)

	for _, name := range []string{"pavement.json", "pavement.yaml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "nested", name)
			require.NoError(t, Save(path, cat))

			got, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cat.Schemas(), got.Schemas())
		})
	}
}

func TestEncodeJSON_Layout(t *testing.T) {
	t.Parallel()

	cat, err := domain.NewCatalogue(domain.Schema{Name: "S", Columns: []string{"A"}})
	require.NoError(t, err)

	data, err := EncodeJSON(cat)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"S\": [\n        \"A\"\n    ]\n}\n", string(data))
}

func TestSaveGroups(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "gpr.yaml")
	require.NoError(t, SaveGroups(path, domain.GPRGroups()))

	cat, err := Load(path)
	require.NoError(t, err)
	want, err := domain.Flatten(domain.GPRGroups())
	require.NoError(t, err)
	assert.Equal(t, want.Schemas(), cat.Schemas())
}

func TestRecordSchema_RoundTrip(t *testing.T) {
	t.Parallel()

	rs := domain.BuildRecordSchema(
		domain.Schema{Name: "Base Schema 1", Columns: []string{"Scan", "Lat(°)", "Layer 1 Name"}},
		map[string]domain.DType{"Scan": domain.DTypeInt64, "Lat(°)": domain.DTypeFloat64},
	)

	dir := t.TempDir()
	path, err := SaveRecordSchema(dir, rs)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Base_Schema_1.yaml"), path)

	got, err := LoadRecordSchema(path)
	require.NoError(t, err)
	assert.Equal(t, rs, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "schema_type: dataframe")
}

func TestParseRecordSchema_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseRecordSchema([]byte("name: S\ncolumns:\n  A: {dtype: decimal}\n"))
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = ParseRecordSchema([]byte("name: S\ncolumns: [A]\n"))
	require.Error(t, err)

	_, err = ParseRecordSchema([]byte("schema_type: series\nname: S\ncolumns: {}\n"))
	require.Error(t, err)
}

func TestReport_SaveLoad(t *testing.T) {
	t.Parallel()

	b := domain.NewReportBuilder()
	b.Add(domain.Worksheet{FilePath: "/d/a.xlsx", FileName: "a.xlsx", SheetName: "S1"},
		domain.Resolution{Verdict: domain.Verdict{Kind: domain.MatchExact, Schema: "Base Schema 1", Ratio: 1}})
	b.Add(domain.Worksheet{FilePath: "/d/a.xlsx", FileName: "a.xlsx", SheetName: "Notes"}, domain.Resolution{})
	report := b.Build()

	path := filepath.Join(t.TempDir(), "categorized.json")
	require.NoError(t, SaveReport(path, report))

	got, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, report.Candidates("Base Schema 1"), got.Candidates("Base Schema 1"))
	assert.Equal(t, report.KindCounts(), got.KindCounts())
}
