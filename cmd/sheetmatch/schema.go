package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/catalogue"
	"github.com/pavestack/sheetmatch/internal/adapter/registry"
	"github.com/pavestack/sheetmatch/internal/config"
	"github.com/pavestack/sheetmatch/internal/core/domain"
)

func newSchemaCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with record schemas",
	}
	cmd.AddCommand(newSchemaExportCmd(a))
	return cmd
}

func newSchemaExportCmd(a *app) *cobra.Command {
	var (
		cat     catalogueFlags
		report  string
		output  string
		schemas []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Infer column types from example sheets and write one record schema per catalogue schema",
		Long: `Export takes the first exact match of each schema from a categorization
report, loads that sheet, infers a dtype per column and writes a record
schema file named after the schema. Schemas without an exact match are
skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cat.load()
			if err != nil {
				return err
			}
			r, err := catalogue.LoadReport(report)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range c.Schemas() {
				if len(schemas) > 0 && !slices.Contains(schemas, s.Name) {
					continue
				}
				if s.Empty() {
					continue
				}
				ref, ok := r.Example(s.Name)
				if !ok {
					a.logger.Warn("no exact match to infer types from", slog.String("schema.name", s.Name))
					continue
				}

				loader, err := registry.Loader(config.FileTypeFor(ref.FilePath))
				if err != nil {
					return err
				}
				sheets, err := loader.Load(cmd.Context(), ref.FilePath, []string{ref.SheetName})
				if err != nil {
					return fmt.Errorf("loading example for %q: %w", s.Name, err)
				}
				if len(sheets) == 0 || sheets[0].Err != nil {
					a.logger.Warn("example sheet unreadable",
						slog.String("schema.name", s.Name),
						slog.String("file.path", ref.FilePath),
						slog.String("sheet.name", ref.SheetName),
					)
					continue
				}

				rs := domain.BuildRecordSchema(s, domain.InferColumnTypes(sheets[0].Table))
				path, err := catalogue.SaveRecordSchema(output, rs)
				if err != nil {
					return err
				}
				a.logger.Info("record schema written",
					slog.String("schema.name", s.Name),
					slog.String("example", ref.FilePath+"#"+ref.SheetName),
					slog.String("file", path),
				)
				fmt.Fprintln(out, path)
			}
			return nil
		},
	}

	cat.register(cmd)
	cmd.Flags().StringVar(&report, "report", "", "categorization report file")
	cmd.Flags().StringVarP(&output, "output", "o", "schemas", "directory receiving record schema files")
	cmd.Flags().StringSliceVar(&schemas, "schema", nil, "only export these schemas (repeatable)")
	_ = cmd.MarkFlagRequired("report")
	return cmd
}
