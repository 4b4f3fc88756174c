package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"

	"github.com/pavestack/sheetmatch/internal/audit"
	"github.com/pavestack/sheetmatch/internal/config"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
	"github.com/pavestack/sheetmatch/internal/telemetry"
)

// app carries what every subcommand needs once flags and environment have
// been read.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	provider *telemetry.Provider
	tracer   trace.Tracer
	inst     port.Instrumentation
}

// overridesFromFlags turns explicitly set persistent flags into config
// overrides. Flags left at their defaults do not mask the environment.
func overridesFromFlags(fs *pflag.FlagSet) (config.Overrides, error) {
	var o config.Overrides
	str := func(name string) (*string, error) {
		if !fs.Changed(name) {
			return nil, nil
		}
		v, err := fs.GetString(name)
		return &v, err
	}
	num := func(name string) (*int, error) {
		if !fs.Changed(name) {
			return nil, nil
		}
		v, err := fs.GetInt(name)
		return &v, err
	}

	var err error
	if o.LogLevel, err = str("log-level"); err != nil {
		return o, err
	}
	if o.Workers, err = num("workers"); err != nil {
		return o, err
	}
	if o.OutOfScopeSheets, err = fs.GetStringSlice("out-of-scope"); err != nil {
		return o, err
	}
	if o.AuditLog, err = str("audit-log"); err != nil {
		return o, err
	}
	if o.OTelEnabled, err = fs.GetBool("otel"); err != nil {
		return o, err
	}
	if o.DatabaseURL, err = str("database-url"); err != nil {
		return o, err
	}
	if o.MongoURI, err = str("mongo-uri"); err != nil {
		return o, err
	}
	if o.MaxRows, err = num("max-rows"); err != nil {
		return o, err
	}
	return o, nil
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sheetmatch",
		Short: "Categorize spreadsheet worksheets against known schemas and ingest them",
		Long: `sheetmatch profiles field-survey workbooks, sorts every worksheet into
exact, extended, partial or no match against a catalogue of schemas, and
ingests matched sheets into a normalized record store.

Settings are read from SHEETMATCH_* environment variables; flags override them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			o, err := overridesFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			return a.setup(cmd, o)
		},
	}

	pf := root.PersistentFlags()
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Int("workers", 4, "workbooks processed in parallel")
	pf.StringSlice("out-of-scope", nil, "worksheet names never matched (repeatable)")
	pf.String("audit-log", "", "NDJSON file receiving one line per ingested worksheet")
	pf.Bool("otel", false, "export traces and metrics over OTLP")
	pf.String("database-url", "", "PostgreSQL URL for the postgres writer and query_records")
	pf.String("mongo-uri", "", "MongoDB URI for the mongo writer")
	pf.Int("max-rows", 100, "row limit for query_records")

	root.AddCommand(
		newProfileCmd(a),
		newCategorizeCmd(a),
		newCatalogueCmd(a),
		newSchemaCmd(a),
		newPipelineCmd(a),
		newIngestCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger and telemetry. Logs go
// to stderr; stdout carries command output and the MCP stdio transport.
func (a *app) setup(cmd *cobra.Command, o config.Overrides) error {
	cfg, err := config.Load(o)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.logger = newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	a.tracer = telemetry.NoopTracer()
	a.inst = telemetry.NoopInstruments()

	if cfg.OTelEnabled {
		provider, err := telemetry.Init(cmd.Context(), "sheetmatch", version, cmd.Name())
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		a.provider = provider
		a.tracer = provider.Tracer()
		a.inst = telemetry.NewInstruments()
		a.logger.Info("telemetry enabled", slog.String("command", cmd.Name()))
	}

	a.logger.Debug("config loaded",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.Int("workers", cfg.Workers),
		slog.Any("out_of_scope", cfg.OutOfScopeSheets),
	)
	return nil
}

func (a *app) shutdown() {
	if a.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.provider.Shutdown(ctx); err != nil && a.logger != nil {
		a.logger.Error("telemetry shutdown", slog.String("error", err.Error()))
	}
}

func (a *app) outOfScope() domain.SheetSet {
	return domain.NewSheetSet(a.cfg.OutOfScopeSheets...)
}

func (a *app) auditor() (port.IngestAuditor, error) {
	if a.cfg.AuditLog == "" {
		return audit.NoopAuditor{}, nil
	}
	aud, err := audit.NewFileAuditor(a.cfg.AuditLog)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	a.logger.Info("ingest audit log enabled", slog.String("file", a.cfg.AuditLog))
	return aud, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
