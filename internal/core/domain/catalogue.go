package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Schema is a named set of required columns. Column order is the order
// normalized records are written in.
type Schema struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
}

// Empty reports whether the schema has no required columns. Empty schemas are
// skipped during matching.
func (s Schema) Empty() bool {
	return len(s.Columns) == 0
}

// Catalogue is an ordered collection of schemas with unique names. Order
// decides ties during resolution: earlier schemas win. A catalogue is not
// modified after construction and is safe for concurrent reads.
type Catalogue struct {
	schemas []Schema
	index   map[string]int
}

// NewCatalogue builds a catalogue from schemas in priority order. Duplicate
// column names inside a schema are collapsed, keeping the first occurrence.
func NewCatalogue(schemas ...Schema) (*Catalogue, error) {
	c := &Catalogue{
		schemas: make([]Schema, 0, len(schemas)),
		index:   make(map[string]int, len(schemas)),
	}
	for _, s := range schemas {
		if _, dup := c.index[s.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSchema, s.Name)
		}
		c.index[s.Name] = len(c.schemas)
		c.schemas = append(c.schemas, Schema{Name: s.Name, Columns: dedupe(s.Columns)})
	}
	return c, nil
}

// Schemas returns the schemas in priority order.
func (c *Catalogue) Schemas() []Schema {
	return slices.Clone(c.schemas)
}

// Names returns schema names in priority order.
func (c *Catalogue) Names() []string {
	names := make([]string, len(c.schemas))
	for i, s := range c.schemas {
		names[i] = s.Name
	}
	return names
}

// Len returns the number of schemas.
func (c *Catalogue) Len() int {
	return len(c.schemas)
}

// Lookup returns the schema registered under name.
func (c *Catalogue) Lookup(name string) (Schema, error) {
	i, ok := c.index[name]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	return c.schemas[i], nil
}

// EmptySchemas lists the names of schemas that take no part in matching.
func (c *Catalogue) EmptySchemas() []string {
	var names []string
	for _, s := range c.schemas {
		if s.Empty() {
			names = append(names, s.Name)
		}
	}
	return names
}

// SchemaGroup is the composite form of a catalogue entry: a base schema plus
// variations that each add columns to it.
type SchemaGroup struct {
	Name       string   `json:"name" yaml:"name"`
	Base       Schema   `json:"base" yaml:"base"`
	Variations []Schema `json:"variations,omitempty" yaml:"variations,omitempty"`
}

// Flatten resolves composite groups into a catalogue. Each base is listed
// before its variations; a variation requires the base columns followed by
// its own.
func Flatten(groups []SchemaGroup) (*Catalogue, error) {
	var schemas []Schema
	for _, g := range groups {
		if g.Base.Name == "" {
			return nil, fmt.Errorf("schema group %q has no base schema", g.Name)
		}
		schemas = append(schemas, g.Base)
		for _, v := range g.Variations {
			cols := make([]string, 0, len(g.Base.Columns)+len(v.Columns))
			cols = append(cols, g.Base.Columns...)
			cols = append(cols, v.Columns...)
			schemas = append(schemas, Schema{Name: v.Name, Columns: cols})
		}
	}
	return NewCatalogue(schemas...)
}

// InferCatalogue derives a catalogue from observed column lists. Each distinct
// column set becomes a schema, numbered in the order it is first seen: the
// first is "Base Schema 1", the rest "Variation 1", "Variation 2", and so on.
// Columns are filtered before comparison.
func InferCatalogue(observed [][]string) *Catalogue {
	seen := make(map[string]struct{})
	var schemas []Schema

	for _, cols := range observed {
		filtered := dedupe(FilterColumns(cols))
		if len(filtered) == 0 {
			continue
		}
		key := setKey(filtered)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		name := "Base Schema 1"
		if len(schemas) > 0 {
			name = fmt.Sprintf("Variation %d", len(schemas))
		}
		schemas = append(schemas, Schema{Name: name, Columns: filtered})
	}

	// Generated names are unique.
	c, _ := NewCatalogue(schemas...)
	return c
}

func dedupe(cols []string) []string {
	out := make([]string, 0, len(cols))
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func setKey(cols []string) string {
	sorted := slices.Clone(cols)
	slices.Sort(sorted)
	return strings.Join(sorted, "\x00")
}
