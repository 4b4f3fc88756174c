package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCatalogue(t *testing.T, schemas ...Schema) *Catalogue {
	t.Helper()
	cat, err := NewCatalogue(schemas...)
	require.NoError(t, err)
	return cat
}

func TestResolve(t *testing.T) {
	t.Parallel()

	cat := mustCatalogue(t,
		Schema{Name: "Empty"},
		Schema{Name: "S1", Columns: []string{"A", "B", "C", "D"}},
		Schema{Name: "S2", Columns: []string{"A", "B"}},
		Schema{Name: "S3", Columns: []string{"A", "B", "C"}},
	)

	tests := []struct {
		name    string
		columns []string
		kind    MatchKind
		schema  string
	}{
		{"exact later schema wins over earlier partial", []string{"A", "B", "C"}, MatchExact, "S3"},
		{"first extended kept", []string{"A", "B", "X"}, MatchExtended, "S2"},
		{"partial found first is kept over later extended", []string{"A", "B", "C", "E"}, MatchPartial, "S1"},
		{"no match", []string{"X", "Y"}, MatchNone, ""},
		{"placeholders filtered before matching", []string{"A", "Unnamed: 1", "2.0-3.0", "B"}, MatchExact, "S2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := Resolve(Worksheet{SheetName: "Lane 1", Columns: tt.columns}, cat, nil)
			assert.False(t, res.OutOfScope)
			assert.Equal(t, tt.kind, res.Verdict.Kind)
			assert.Equal(t, tt.schema, res.Verdict.Schema)
		})
	}
}

func TestResolve_FirstPartialBeatsLaterExtended(t *testing.T) {
	t.Parallel()

	// S1 yields partial (3 of 4), S2 yields extended. The earlier verdict stays.
	cat := mustCatalogue(t,
		Schema{Name: "S1", Columns: []string{"A", "B", "C", "Z"}},
		Schema{Name: "S2", Columns: []string{"A", "B"}},
	)
	res := Resolve(Worksheet{Columns: []string{"A", "B", "C"}}, cat, nil)
	assert.Equal(t, MatchPartial, res.Verdict.Kind)
	assert.Equal(t, "S1", res.Verdict.Schema)
	assert.InDelta(t, 0.75, res.Verdict.Ratio, 1e-9)
}

func TestResolve_OutOfScopeSkipsCatalogue(t *testing.T) {
	t.Parallel()

	cat := mustCatalogue(t, Schema{Name: "S1", Columns: []string{"A"}})
	res := Resolve(Worksheet{SheetName: "Chart1", Columns: []string{"A"}}, cat, NewSheetSet("Chart1", "Stats"))
	assert.True(t, res.OutOfScope)
	assert.False(t, res.Verdict.Matched())
}

func TestResolve_OnlyEmptySchemas(t *testing.T) {
	t.Parallel()

	cat := mustCatalogue(t, Schema{Name: "Empty"})
	res := Resolve(Worksheet{Columns: nil}, cat, nil)
	assert.Equal(t, MatchNone, res.Verdict.Kind)
}
