package catalogue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

// recordSchemaDoc is the on-disk layout of a record schema, compatible with
// pandera's DataFrameSchema YAML.
type recordSchemaDoc struct {
	SchemaType string    `yaml:"schema_type"`
	Name       string    `yaml:"name"`
	Columns    yaml.Node `yaml:"columns"`
	Coerce     bool      `yaml:"coerce"`
	Strict     bool      `yaml:"strict"`
}

type columnDoc struct {
	DType    string `yaml:"dtype"`
	Nullable bool   `yaml:"nullable"`
	Required *bool  `yaml:"required,omitempty"`
}

// RecordSchemaFileName returns the file name a schema is exported under:
// spaces become underscores.
func RecordSchemaFileName(name string) string {
	return strings.ReplaceAll(name, " ", "_") + ".yaml"
}

// LoadRecordSchema reads a record schema YAML file.
func LoadRecordSchema(path string) (domain.RecordSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RecordSchema{}, fmt.Errorf("reading record schema: %w", err)
	}
	rs, err := ParseRecordSchema(data)
	if err != nil {
		return domain.RecordSchema{}, fmt.Errorf("loading record schema %s: %w", path, err)
	}
	return rs, nil
}

// ParseRecordSchema decodes record schema YAML, keeping column order.
func ParseRecordSchema(data []byte) (domain.RecordSchema, error) {
	var doc recordSchemaDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.RecordSchema{}, fmt.Errorf("parsing record schema YAML: %w", err)
	}
	if doc.SchemaType != "" && doc.SchemaType != "dataframe" {
		return domain.RecordSchema{}, fmt.Errorf("unsupported schema_type %q", doc.SchemaType)
	}
	if doc.Columns.Kind != yaml.MappingNode {
		return domain.RecordSchema{}, fmt.Errorf("record schema %q: columns must be a mapping", doc.Name)
	}

	rs := domain.RecordSchema{Name: doc.Name}
	for i := 0; i+1 < len(doc.Columns.Content); i += 2 {
		name := doc.Columns.Content[i].Value
		var col columnDoc
		if err := doc.Columns.Content[i+1].Decode(&col); err != nil {
			return domain.RecordSchema{}, fmt.Errorf("record schema %q: column %q: %w", doc.Name, name, err)
		}
		dtype := domain.DType(col.DType)
		if col.DType == "" {
			dtype = domain.DTypeObject
		}
		if !dtype.Valid() {
			return domain.RecordSchema{}, &domain.ValidationError{Schema: doc.Name, Reason: fmt.Sprintf("column %q: unknown dtype %q", name, col.DType)}
		}
		rs.Columns = append(rs.Columns, domain.ColumnSpec{Name: name, DType: dtype, Nullable: col.Nullable})
	}
	return rs, nil
}

// EncodeRecordSchema renders rs as YAML.
func EncodeRecordSchema(rs domain.RecordSchema) ([]byte, error) {
	cols := &yaml.Node{Kind: yaml.MappingNode}
	required := true
	for _, c := range rs.Columns {
		var body yaml.Node
		if err := body.Encode(columnDoc{DType: string(c.DType), Nullable: c.Nullable, Required: &required}); err != nil {
			return nil, fmt.Errorf("encoding column %q: %w", c.Name, err)
		}
		cols.Content = append(cols.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name},
			&body,
		)
	}

	doc := recordSchemaDoc{
		SchemaType: "dataframe",
		Name:       rs.Name,
		Columns:    *cols,
		Coerce:     true,
	}
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encoding record schema YAML: %w", err)
	}
	return data, nil
}

// SaveRecordSchema writes rs under dir and returns the file path.
func SaveRecordSchema(dir string, rs domain.RecordSchema) (string, error) {
	data, err := EncodeRecordSchema(rs)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, RecordSchemaFileName(rs.Name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing record schema: %w", err)
	}
	return path, nil
}
