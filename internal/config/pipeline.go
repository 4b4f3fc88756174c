package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

// Pipeline describes one ingest run: which workbooks and sheets to load,
// which schema to normalize them into and where to write the records.
type Pipeline struct {
	Name        string            `yaml:"name" validate:"required"`
	Version     string            `yaml:"version,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
	SourceFiles []SourceFile      `yaml:"source_files" validate:"required,min=1,dive"`
	Target      Target            `yaml:"target"`
}

// SourceFile is a single workbook (or CSV file) to load.
type SourceFile struct {
	FileName     string       `yaml:"file_name" validate:"required"`
	FileType     string       `yaml:"file_type" validate:"required"`
	Path         string       `yaml:"path" validate:"required"`
	LoaderConfig LoaderConfig `yaml:"loader_config,omitempty"`
}

type LoaderConfig struct {
	TabNames []string `yaml:"tab_names,omitempty"`
}

type Target struct {
	Type         string       `yaml:"type" validate:"required"`
	WriterConfig WriterConfig `yaml:"writer_config"`
	Schema       SchemaRef    `yaml:"schema"`
}

type WriterConfig struct {
	Destination     string     `yaml:"destination" validate:"required"`
	Namespace       string     `yaml:"namespace,omitempty"`
	TableName       string     `yaml:"table_name,omitempty"`
	TableNamePrefix string     `yaml:"table_name_prefix,omitempty"`
	PartitionBy     StringList `yaml:"partition_by,omitempty"`
}

// SchemaRef points at the target schema: either a record schema file, or a
// schema name looked up in a catalogue file.
type SchemaRef struct {
	Path      string `yaml:"path,omitempty" validate:"required_without=Name"`
	Name      string `yaml:"name,omitempty"`
	Catalogue string `yaml:"catalogue,omitempty" validate:"required_with=Name"`
}

// StringList accepts either a scalar or a sequence in YAML.
//
//	partition_by: source_filepath
//	partition_by: [source_filepath, source_sheetname]
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value == "" {
			*l = nil
			return nil
		}
		*l = StringList{value.Value}
		return nil
	}
	var items []string
	if err := value.Decode(&items); err != nil {
		return fmt.Errorf("decoding string list: %w", err)
	}
	*l = items
	return nil
}

// TableName returns the destination table (or file) name for the pipeline:
// the writer's table_name, else the pipeline name, with the prefix applied.
func (p *Pipeline) TableName() string {
	name := p.Target.WriterConfig.TableName
	if name == "" {
		name = p.Name
	}
	return p.Target.WriterConfig.TableNamePrefix + name
}

// PartitionBy returns the configured partition columns, defaulting to the
// provenance columns.
func (p *Pipeline) PartitionBy() []string {
	if len(p.Target.WriterConfig.PartitionBy) > 0 {
		return p.Target.WriterConfig.PartitionBy
	}
	return []string{domain.ColumnSourceFilePath, domain.ColumnSourceSheetName}
}

var pipelineValidator = newPipelineValidator()

func newPipelineValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// LoadPipeline reads and validates a pipeline YAML file. Relative source and
// schema paths are resolved against the file's directory.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline file: %w", err)
	}

	p, err := ParsePipeline(data)
	if err != nil {
		return nil, err
	}
	p.resolvePaths(filepath.Dir(path))
	return p, nil
}

// ParsePipeline decodes and validates pipeline YAML.
func ParsePipeline(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing pipeline YAML: %w", err)
	}
	if err := ValidatePipeline(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ValidatePipeline runs struct validation and reports every failing field.
func ValidatePipeline(p *Pipeline) error {
	err := pipelineValidator.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating pipeline: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("validating pipeline: %s", strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Pipeline.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "required_without":
		return fmt.Sprintf("%s is required when %s is not set", field, strings.ToLower(fe.Param()))
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, strings.ToLower(fe.Param()))
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

func (p *Pipeline) resolvePaths(base string) {
	abs := func(s string) string {
		if s == "" || filepath.IsAbs(s) {
			return s
		}
		return filepath.Join(base, s)
	}
	for i := range p.SourceFiles {
		p.SourceFiles[i].Path = abs(p.SourceFiles[i].Path)
	}
	p.Target.Schema.Path = abs(p.Target.Schema.Path)
	p.Target.Schema.Catalogue = abs(p.Target.Schema.Catalogue)
}

// WritePipeline persists p as YAML.
func WritePipeline(path string, p *Pipeline) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding pipeline YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing pipeline file: %w", err)
	}
	return nil
}

// PipelineFromReport builds a pipeline that ingests every exact and extended
// match of schema found in the report. Each workbook becomes one source file
// with its matched sheets as tab names, in report order.
func PipelineFromReport(report *domain.Report, schema, name string, target Target) (*Pipeline, error) {
	refs := report.Candidates(schema)
	if len(refs) == 0 {
		return nil, fmt.Errorf("no exact or extended matches for schema %q: %w", schema, domain.ErrSchemaNotFound)
	}

	p := &Pipeline{Name: name, Version: "1.0", Target: target}
	index := make(map[string]int)
	for _, ref := range refs {
		i, ok := index[ref.FilePath]
		if !ok {
			i = len(p.SourceFiles)
			index[ref.FilePath] = i
			p.SourceFiles = append(p.SourceFiles, SourceFile{
				FileName: filepath.Base(ref.FilePath),
				FileType: FileTypeFor(ref.FilePath),
				Path:     ref.FilePath,
			})
		}
		tabs := &p.SourceFiles[i].LoaderConfig.TabNames
		*tabs = append(*tabs, ref.SheetName)
	}

	if err := ValidatePipeline(p); err != nil {
		return nil, err
	}
	return p, nil
}

// FileTypeFor maps a file extension to a loader tag.
func FileTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "csv"
	default:
		return "excel"
	}
}
