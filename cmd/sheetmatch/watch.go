package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/catalogue"
	"github.com/pavestack/sheetmatch/internal/adapter/excel"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/service"
	"github.com/pavestack/sheetmatch/internal/scan"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		output   string
		exclude  []string
		interval time.Duration
		cat      catalogueFlags
		report   string
	)

	cmd := &cobra.Command{
		Use:   "watch INPUT_DIR",
		Short: "Profile new workbooks as they appear in a directory",
		Long: `Watch scans the input directory every interval and profiles each workbook
that has no profile yet. With --report and a catalogue, every stored profile
is categorized again after new workbooks were profiled.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputDir := args[0]

			var c *domain.Catalogue
			if report != "" {
				var err error
				if c, err = cat.load(); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(output, 0o755); err != nil {
				return fmt.Errorf("creating output dir: %w", err)
			}

			profiler := excel.NewProfiler()
			profileSvc := service.NewProfileService(profiler, a.cfg.Workers, a.logger, a.tracer)
			categorizeSvc := service.NewCategorizeService(profiler, a.outOfScope(), a.cfg.Workers, a.logger, a.tracer, a.inst)

			a.logger.Info("watching for workbooks",
				slog.String("dir", inputDir),
				slog.Duration("interval", interval),
			)
			return scan.Watch(cmd.Context(), interval, func(ctx context.Context) error {
				books, err := scan.Pending(inputDir, output, exclude)
				if err != nil {
					return err
				}
				if len(books) == 0 {
					a.logger.Debug("no pending workbooks")
					return nil
				}

				profiles, err := profileSvc.ProfileFiles(ctx, scan.Paths(books))
				if err != nil {
					return err
				}
				if _, err := profileSvc.WriteProfiles(inputDir, output, profiles); err != nil {
					return err
				}
				a.logger.Info("workbooks profiled", slog.Int("count", len(profiles)))

				if c == nil {
					return nil
				}
				all, err := service.LoadProfiles(output)
				if err != nil {
					return err
				}
				r, err := categorizeSvc.CategorizeProfiles(ctx, c, all)
				if err != nil {
					return err
				}
				if err := catalogue.SaveReport(report, r); err != nil {
					return err
				}
				a.logger.Info("report updated", slog.String("file", report), slog.Int("sheets", r.Count()))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "profiles", "directory receiving profile JSON files")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "sub-directory names to skip")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between scans")
	cmd.Flags().StringVar(&report, "report", "", "rewrite this categorization report after each scan")
	cat.register(cmd)
	cmd.PreRunE = func(*cobra.Command, []string) error {
		if report != "" && cat.path == "" && cat.domain == "" {
			return errors.New("--report needs --catalogue or --domain")
		}
		return nil
	}
	return cmd
}
