package main

import (
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/excel"
	"github.com/pavestack/sheetmatch/internal/adapter/mcp"
	"github.com/pavestack/sheetmatch/internal/adapter/postgres"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/service"
)

func newServeCmd(a *app) *cobra.Command {
	var cat catalogueFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalogue and ingested records as MCP tools over stdio",
		Long: `Serve starts an MCP server on stdin/stdout with the tools list_schemas,
match_columns and categorize_files. When a database URL is configured,
query_records runs read-only SQL over records ingested into PostgreSQL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := cat.load()
			if err != nil {
				return err
			}

			tools := mcp.Tools{
				Catalogue:  c,
				OutOfScope: a.outOfScope(),
				Categorize: service.NewCategorizeService(excel.NewProfiler(), a.outOfScope(), a.cfg.Workers, a.logger, a.tracer, a.inst),
			}

			if a.cfg.DatabaseURL != "" {
				pool, err := postgres.NewPool(ctx, a.cfg.DatabaseURL, a.writerOptions().Pool)
				if err != nil {
					return fmt.Errorf("connecting to database: %w", err)
				}
				defer pool.Close()
				a.logger.Info("database pool connected", slog.String("db.system", "postgresql"))

				executor := postgres.NewExecutor(pool, a.cfg.MaxRows, a.cfg.QueryTimeout)
				tools.Query = service.NewQueryService(domain.NewQueryValidator(), executor, a.logger, a.tracer)
			}

			server := mcp.NewServer(version, tools, a.logger, a.tracer, a.inst)
			stdio := mcpserver.NewStdioServer(server)

			a.logger.Info("serving MCP over stdio",
				slog.Int("schemas", c.Len()),
				slog.Bool("query_records", tools.Query != nil),
			)
			if err := stdio.Listen(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("stdio server: %w", err)
			}
			a.logger.Info("shutdown complete")
			return nil
		},
	}
	cat.register(cmd)
	return cmd
}
