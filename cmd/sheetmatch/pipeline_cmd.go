package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/catalogue"
	"github.com/pavestack/sheetmatch/internal/config"
)

func newPipelineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Create and check ingest pipeline files",
	}
	cmd.AddCommand(newPipelineFromReportCmd(a), newPipelineValidateCmd(a))
	return cmd
}

func newPipelineFromReportCmd(a *app) *cobra.Command {
	var (
		report       string
		schema       string
		name         string
		output       string
		target       config.Target
		partitionBy  []string
		recordSchema string
		catFile      string
	)

	cmd := &cobra.Command{
		Use:   "from-report",
		Short: "Write a pipeline ingesting every exact and extended match of a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := catalogue.LoadReport(report)
			if err != nil {
				return err
			}

			switch {
			case recordSchema != "":
				target.Schema = config.SchemaRef{Path: recordSchema}
			case catFile != "":
				target.Schema = config.SchemaRef{Name: schema, Catalogue: catFile}
			default:
				return errors.New("one of --record-schema or --catalogue is required")
			}
			target.WriterConfig.PartitionBy = partitionBy
			if name == "" {
				name = schema
			}

			p, err := config.PipelineFromReport(r, schema, name, target)
			if err != nil {
				return err
			}
			if err := config.WritePipeline(output, p); err != nil {
				return err
			}
			a.logger.Info("pipeline written",
				slog.String("schema.name", schema),
				slog.Int("source_files", len(p.SourceFiles)),
				slog.String("file", output),
			)
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&report, "report", "", "categorization report file")
	f.StringVar(&schema, "schema", "", "schema whose matches are ingested")
	f.StringVar(&name, "name", "", "pipeline name (default: schema name)")
	f.StringVarP(&output, "output", "o", "pipeline.yaml", "pipeline file to write")
	f.StringVar(&target.Type, "target", "sqlite", "writer type: csv, sqlite, postgres or mongo")
	f.StringVar(&target.WriterConfig.Destination, "destination", "", "output directory, database file, URL or database name")
	f.StringVar(&target.WriterConfig.Namespace, "namespace", "", "schema or database namespace of the target table")
	f.StringVar(&target.WriterConfig.TableName, "table", "", "target table name (default: pipeline name)")
	f.StringSliceVar(&partitionBy, "partition-by", nil, "columns whose values identify replaceable rows")
	f.StringVar(&recordSchema, "record-schema", "", "record schema file used for validation")
	f.StringVar(&catFile, "catalogue", "", "catalogue file the schema is looked up in")
	for _, req := range []string{"report", "schema", "destination"} {
		_ = cmd.MarkFlagRequired(req)
	}
	cmd.MarkFlagsMutuallyExclusive("record-schema", "catalogue")
	return cmd
}

func newPipelineValidateCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate PIPELINE",
		Short: "Check a pipeline file and the record schema it points at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.LoadPipeline(args[0])
			if err != nil {
				return err
			}
			rs, err := resolveRecordSchema(p.Target.Schema)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d source files, schema %q (%d columns), target %s\n",
				p.Name, len(p.SourceFiles), rs.Name, len(rs.Columns), p.Target.Type)
			return nil
		},
	}
}
