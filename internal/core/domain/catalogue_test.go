package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalogue_RejectsDuplicateNames(t *testing.T) {
	t.Parallel()

	_, err := NewCatalogue(
		Schema{Name: "S1", Columns: []string{"A"}},
		Schema{Name: "S1", Columns: []string{"B"}},
	)
	require.ErrorIs(t, err, ErrDuplicateSchema)
}

func TestCatalogue_Lookup(t *testing.T) {
	t.Parallel()

	cat, err := NewCatalogue(Schema{Name: "S1", Columns: []string{"A", "B", "A"}})
	require.NoError(t, err)

	s, err := cat.Lookup("S1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Columns)

	_, err = cat.Lookup("missing")
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestCatalogue_EmptySchemas(t *testing.T) {
	t.Parallel()

	cat, err := NewCatalogue(
		Schema{Name: "S1", Columns: []string{"A"}},
		Schema{Name: "Empty"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Empty"}, cat.EmptySchemas())
	assert.Equal(t, []string{"S1", "Empty"}, cat.Names())
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	cat, err := Flatten([]SchemaGroup{{
		Name: "Schema 1",
		Base: Schema{Name: "Base Schema 1", Columns: []string{"A", "B"}},
		Variations: []Schema{
			{Name: "Variation 1A", Columns: []string{"C"}},
			{Name: "Variation 1B", Columns: []string{"B", "D"}},
		},
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"Base Schema 1", "Variation 1A", "Variation 1B"}, cat.Names())

	v1a, err := cat.Lookup("Variation 1A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, v1a.Columns)

	v1b, err := cat.Lookup("Variation 1B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "D"}, v1b.Columns)
}

func TestFlatten_MissingBase(t *testing.T) {
	t.Parallel()

	_, err := Flatten([]SchemaGroup{{Name: "Broken", Variations: []Schema{{Name: "V", Columns: []string{"A"}}}}})
	assert.Error(t, err)
}

func TestFlatten_BuiltinCatalogues(t *testing.T) {
	t.Parallel()

	gpr, err := Flatten(GPRGroups())
	require.NoError(t, err)
	assert.Equal(t, 3, gpr.Len())

	pavement, err := Flatten(PavementGroups())
	require.NoError(t, err)
	assert.Equal(t, 20, pavement.Len())
	assert.Equal(t, "Base Schema 1", pavement.Names()[0])

	_, ok := BuiltinGroups("seismic")
	assert.False(t, ok)
}

func TestInferCatalogue_FirstSeenOrder(t *testing.T) {
	t.Parallel()

	cat := InferCatalogue([][]string{
		{"Scan", "MP"},
		{"Scan", "MP", "Lat"},
		{"MP", "Scan"},
		{"Unnamed: 0", "1.1-2.1"},
		{"Lat", "Long"},
	})

	assert.Equal(t, []string{"Base Schema 1", "Variation 1", "Variation 2"}, cat.Names())
	s, err := cat.Lookup("Variation 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lat", "Long"}, s.Columns)
}

func TestInferCatalogue_Deterministic(t *testing.T) {
	t.Parallel()

	corpus := [][]string{{"A"}, {"B"}, {"C"}, {"A"}, {"D", "E"}}
	first := InferCatalogue(corpus)
	for range 20 {
		assert.Equal(t, first.Schemas(), InferCatalogue(corpus).Schemas())
	}
}
