package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/excel"
	"github.com/pavestack/sheetmatch/internal/core/service"
	"github.com/pavestack/sheetmatch/internal/scan"
)

func newProfileCmd(a *app) *cobra.Command {
	var (
		output  string
		exclude []string
		pending bool
	)

	cmd := &cobra.Command{
		Use:   "profile INPUT_DIR",
		Short: "Profile every workbook in a directory and write one JSON profile per workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputDir := args[0]

			var books []scan.Workbook
			var err error
			if pending {
				books, err = scan.Pending(inputDir, output, exclude)
			} else {
				books, err = scan.FindWorkbooks(inputDir, exclude)
			}
			if err != nil {
				return err
			}
			if len(books) == 0 {
				a.logger.Info("nothing to profile", slog.String("dir", inputDir))
				return nil
			}

			svc := service.NewProfileService(excel.NewProfiler(), a.cfg.Workers, a.logger, a.tracer)
			profiles, err := svc.ProfileFiles(cmd.Context(), scan.Paths(books))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(output, 0o755); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}
			written, err := svc.WriteProfiles(inputDir, output, profiles)
			if err != nil {
				return err
			}

			renderProfileSummary(cmd.OutOrStdout(), profiles, output)
			a.logger.Info("profiles written", slog.Int("count", len(written)), slog.String("dir", output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "profiles", "directory receiving profile JSON files")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "sub-directory names to skip")
	cmd.Flags().BoolVar(&pending, "pending", false, "only profile workbooks without an existing profile")
	return cmd
}
