package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/catalogue"
	"github.com/pavestack/sheetmatch/internal/adapter/excel"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
	"github.com/pavestack/sheetmatch/internal/core/service"
)

func newCatalogueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogue",
		Short: "Build, infer and inspect schema catalogues",
	}
	cmd.AddCommand(
		newCatalogueBuildCmd(a),
		newCatalogueInferCmd(a),
		newCatalogueShowCmd(a),
	)
	return cmd
}

func newCatalogueBuildCmd(a *app) *cobra.Command {
	var (
		surveyDomain string
		output       string
		groups       bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write a built-in catalogue to a file",
		Long: `Build flattens a built-in composite catalogue (base schemas and their
variations) into a flat catalogue file. With --groups the composite form is
written instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			gs, ok := domain.BuiltinGroups(surveyDomain)
			if !ok {
				return fmt.Errorf("unknown built-in catalogue %q (want gpr or pavement)", surveyDomain)
			}
			if groups {
				if err := catalogue.SaveGroups(output, gs); err != nil {
					return err
				}
			} else {
				c, err := domain.Flatten(gs)
				if err != nil {
					return err
				}
				if err := catalogue.Save(output, c); err != nil {
					return err
				}
			}
			a.logger.Info("catalogue written", slog.String("domain", surveyDomain), slog.String("file", output))
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&surveyDomain, "domain", "", "built-in catalogue: gpr or pavement")
	cmd.Flags().StringVarP(&output, "output", "o", "", "catalogue file (.json or .yaml)")
	cmd.Flags().BoolVar(&groups, "groups", false, "write the composite base/variation form")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newCatalogueInferCmd(a *app) *cobra.Command {
	var (
		profiles string
		output   string
		exclude  []string
	)

	cmd := &cobra.Command{
		Use:   "infer [WORKBOOK|DIR]...",
		Short: "Derive a catalogue from the distinct column sets found in workbooks",
		Long: `Infer collects the header of every readable worksheet, drops placeholder
columns and numbers each distinct column set in the order it is first seen:
"Base Schema 1", then "Variation 1", "Variation 2" and so on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fps []*port.FileProfile
			switch {
			case profiles != "":
				var err error
				if fps, err = service.LoadProfiles(profiles); err != nil {
					return err
				}
			case len(args) > 0:
				paths, err := expandInputs(args, exclude)
				if err != nil {
					return err
				}
				svc := service.NewProfileService(excel.NewProfiler(), a.cfg.Workers, a.logger, a.tracer)
				if fps, err = svc.ProfileFiles(cmd.Context(), paths); err != nil {
					return err
				}
			default:
				return errors.New("no workbooks given")
			}

			var observed [][]string
			for _, fp := range fps {
				for _, ws := range fp.Worksheets() {
					observed = append(observed, ws.Columns)
				}
			}
			c := domain.InferCatalogue(observed)
			if err := catalogue.Save(output, c); err != nil {
				return err
			}
			a.logger.Info("catalogue inferred",
				slog.Int("sheets", len(observed)),
				slog.Int("schemas", c.Len()),
				slog.String("file", output),
			)
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&profiles, "profiles", "", "read stored profiles from this directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "catalogue file (.json or .yaml)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "sub-directory names to skip")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newCatalogueShowCmd(_ *app) *cobra.Command {
	var cat catalogueFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the schemas of a catalogue in priority order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := cat.load()
			if err != nil {
				return err
			}
			renderCatalogue(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cat.register(cmd)
	return cmd
}
