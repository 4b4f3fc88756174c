package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/catalogue"
	"github.com/pavestack/sheetmatch/internal/adapter/excel"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/service"
)

func newCategorizeCmd(a *app) *cobra.Command {
	var (
		cat      catalogueFlags
		profiles string
		output   string
		exclude  []string
	)

	cmd := &cobra.Command{
		Use:   "categorize [WORKBOOK|DIR]...",
		Short: "Sort every worksheet into exact, extended, partial, no match or out of scope",
		Long: `Categorize resolves each worksheet against the catalogue. Workbooks are
read directly, or previously written profiles are used with --profiles.

The report is written as JSON to --output, or to stdout when no output
file is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cat.load()
			if err != nil {
				return err
			}
			svc := service.NewCategorizeService(excel.NewProfiler(), a.outOfScope(), a.cfg.Workers, a.logger, a.tracer, a.inst)

			var report *domain.Report
			switch {
			case profiles != "" && len(args) > 0:
				return errors.New("pass either workbooks or --profiles, not both")
			case profiles != "":
				fps, err := service.LoadProfiles(profiles)
				if err != nil {
					return err
				}
				report, err = svc.CategorizeProfiles(cmd.Context(), c, fps)
				if err != nil {
					return err
				}
			case len(args) > 0:
				paths, err := expandInputs(args, exclude)
				if err != nil {
					return err
				}
				report, err = svc.Categorize(cmd.Context(), c, paths)
				if err != nil {
					return err
				}
			default:
				return errors.New("no workbooks given")
			}

			if output == "" {
				data, err := json.MarshalIndent(report, "", "    ")
				if err != nil {
					return fmt.Errorf("encoding report: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := catalogue.SaveReport(output, report); err != nil {
				return err
			}
			renderReportSummary(cmd.OutOrStdout(), report, output)
			return nil
		},
	}

	cat.register(cmd)
	cmd.Flags().StringVar(&profiles, "profiles", "", "categorize stored profiles from this directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default: stdout)")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "sub-directory names to skip")
	return cmd
}
