// Package catalogue reads and writes catalogue, record schema and report
// files. Catalogues are mappings of schema name to column list in JSON or
// YAML; document order is the catalogue's priority order.
package catalogue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

// groupsKey marks the composite form: a list of base schemas with their
// variations, flattened on load.
const groupsKey = "groups"

// Load reads a catalogue file. The format follows the extension: .json,
// otherwise YAML.
func Load(path string) (*domain.Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalogue file: %w", err)
	}
	var cat *domain.Catalogue
	if isJSON(path) {
		cat, err = ParseJSON(data)
	} else {
		cat, err = ParseYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("loading catalogue %s: %w", path, err)
	}
	return cat, nil
}

// Save writes cat in the format given by the extension.
func Save(path string, cat *domain.Catalogue) error {
	var data []byte
	var err error
	if isJSON(path) {
		data, err = EncodeJSON(cat)
	} else {
		data, err = EncodeYAML(cat)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing catalogue file: %w", err)
	}
	return nil
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// ParseJSON decodes a JSON object of schema name to column list, keeping
// key order. An object holding only "groups" is read as the composite form.
func ParseJSON(data []byte) (*domain.Catalogue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing catalogue JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("parsing catalogue JSON: expected an object")
	}

	var schemas []domain.Schema
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing catalogue JSON: %w", err)
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing catalogue JSON: %w", err)
		}
		var cols []string
		if err := json.Unmarshal(raw, &cols); err == nil {
			schemas = append(schemas, domain.Schema{Name: name, Columns: cols})
			continue
		}
		if name == groupsKey && len(schemas) == 0 {
			var groups []domain.SchemaGroup
			if err := json.Unmarshal(raw, &groups); err != nil {
				return nil, fmt.Errorf("parsing schema groups: %w", err)
			}
			if dec.More() {
				return nil, errors.New("parsing catalogue JSON: groups must be the only key")
			}
			return domain.Flatten(groups)
		}
		return nil, fmt.Errorf("parsing catalogue JSON: schema %q: expected a list of column names", name)
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing catalogue JSON: %w", err)
	}
	return domain.NewCatalogue(schemas...)
}

// ParseYAML decodes a YAML mapping of schema name to column list, keeping
// key order. A mapping holding only "groups" is read as the composite form.
func ParseYAML(data []byte) (*domain.Catalogue, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalogue YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return domain.NewCatalogue()
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New("parsing catalogue YAML: expected a mapping")
	}

	if len(root.Content) == 2 && root.Content[0].Value == groupsKey && root.Content[1].Kind == yaml.SequenceNode {
		var groups []domain.SchemaGroup
		if err := root.Content[1].Decode(&groups); err != nil {
			return nil, fmt.Errorf("parsing schema groups: %w", err)
		}
		return domain.Flatten(groups)
	}

	schemas := make([]domain.Schema, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		var cols []string
		if err := root.Content[i+1].Decode(&cols); err != nil {
			return nil, fmt.Errorf("parsing catalogue YAML: schema %q: %w", name, err)
		}
		schemas = append(schemas, domain.Schema{Name: name, Columns: cols})
	}
	return domain.NewCatalogue(schemas...)
}

// EncodeJSON renders cat as an indented JSON object in catalogue order.
func EncodeJSON(cat *domain.Catalogue) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, s := range cat.Schemas() {
		if i > 0 {
			buf.WriteString(",")
		}
		name, err := json.Marshal(s.Name)
		if err != nil {
			return nil, err
		}
		cols := s.Columns
		if cols == nil {
			cols = []string{}
		}
		colsJSON, err := json.Marshal(cols)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteString(":")
		buf.Write(colsJSON)
	}
	buf.WriteString("}")

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		return nil, fmt.Errorf("encoding catalogue JSON: %w", err)
	}
	out.WriteString("\n")
	return out.Bytes(), nil
}

// EncodeYAML renders cat as a YAML mapping in catalogue order.
func EncodeYAML(cat *domain.Catalogue) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, s := range cat.Schemas() {
		cols := &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range s.Columns {
			cols.Content = append(cols.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c})
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.Name},
			cols,
		)
	}
	data, err := yaml.Marshal(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}})
	if err != nil {
		return nil, fmt.Errorf("encoding catalogue YAML: %w", err)
	}
	return data, nil
}

// SaveGroups writes composite groups in the YAML groups form.
func SaveGroups(path string, groups []domain.SchemaGroup) error {
	data, err := yaml.Marshal(map[string][]domain.SchemaGroup{groupsKey: groups})
	if err != nil {
		return fmt.Errorf("encoding schema groups: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing schema groups: %w", err)
	}
	return nil
}
