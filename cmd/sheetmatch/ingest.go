package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/catalogue"
	"github.com/pavestack/sheetmatch/internal/adapter/postgres"
	"github.com/pavestack/sheetmatch/internal/adapter/registry"
	"github.com/pavestack/sheetmatch/internal/config"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
	"github.com/pavestack/sheetmatch/internal/core/service"
)

func newIngestCmd(a *app) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "ingest PIPELINE",
		Short: "Load, normalize, validate and write the worksheets a pipeline names",
		Long: `Ingest runs a pipeline file. Every listed sheet is projected onto the
target schema, with missing columns filled with nulls and provenance columns
appended, validated against the record schema and written to the target.

Rows already written for the same partition values are replaced. With
--overwrite the whole destination is dropped first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.LoadPipeline(args[0])
			if err != nil {
				return err
			}
			rs, err := resolveRecordSchema(p.Target.Schema)
			if err != nil {
				return err
			}

			writer, err := registry.Writer(p.Target.Type, a.writerOptions())
			if err != nil {
				return err
			}
			defer writer.Close()

			auditor, err := a.auditor()
			if err != nil {
				return err
			}
			defer auditor.Close()

			svc := service.NewIngestService(registry.Loader, writer, auditor, a.logger, a.tracer, a.inst)
			summary, err := svc.Run(cmd.Context(), ingestRequest(p, rs, overwrite))
			if err != nil {
				return err
			}

			renderIngestSummary(cmd.OutOrStdout(), summary)
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d worksheets failed", summary.Failed, len(summary.Sheets))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "drop the destination before writing")
	return cmd
}

func (a *app) writerOptions() registry.Options {
	return registry.Options{
		DatabaseURL: a.cfg.DatabaseURL,
		MongoURI:    a.cfg.MongoURI,
		Pool: postgres.PoolOptions{
			MaxConns:        a.cfg.PoolMaxConns,
			MinConns:        a.cfg.PoolMinConns,
			MaxConnLifetime: a.cfg.PoolMaxConnLifetime,
		},
	}
}

// resolveRecordSchema loads the record schema a pipeline targets. A schema
// named in a catalogue gets object-typed, nullable data columns.
func resolveRecordSchema(ref config.SchemaRef) (domain.RecordSchema, error) {
	if ref.Path != "" {
		return catalogue.LoadRecordSchema(ref.Path)
	}
	if ref.Name == "" || ref.Catalogue == "" {
		return domain.RecordSchema{}, errors.New("target schema needs a path, or a name and a catalogue")
	}
	c, err := catalogue.Load(ref.Catalogue)
	if err != nil {
		return domain.RecordSchema{}, err
	}
	s, err := c.Lookup(ref.Name)
	if err != nil {
		return domain.RecordSchema{}, err
	}
	return domain.BuildRecordSchema(s, nil), nil
}

func ingestRequest(p *config.Pipeline, rs domain.RecordSchema, overwrite bool) service.IngestRequest {
	sources := make([]service.IngestSource, len(p.SourceFiles))
	for i, sf := range p.SourceFiles {
		sources[i] = service.IngestSource{
			Path:     sf.Path,
			FileType: sf.FileType,
			Sheets:   sf.LoaderConfig.TabNames,
		}
	}
	wc := p.Target.WriterConfig
	return service.IngestRequest{
		Pipeline: p.Name,
		Sources:  sources,
		Schema:   rs,
		Destination: port.Destination{
			Location:    wc.Destination,
			FileName:    p.TableName(),
			Namespace:   wc.Namespace,
			Table:       p.TableName(),
			PartitionBy: p.PartitionBy(),
		},
		Overwrite: overwrite,
	}
}
