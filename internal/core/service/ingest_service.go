package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// LoaderFactory resolves a source type tag to a loader.
type LoaderFactory func(tag string) (port.Loader, error)

// IngestSource is one source file and the sheets to read from it. No sheets
// means all of them.
type IngestSource struct {
	Path     string
	FileType string
	Sheets   []string
}

// IngestRequest is a fully resolved pipeline run.
type IngestRequest struct {
	Pipeline    string
	Sources     []IngestSource
	Schema      domain.RecordSchema
	Destination port.Destination
	Overwrite   bool
}

// SheetOutcome is the result of ingesting one worksheet.
type SheetOutcome struct {
	FilePath  string
	SheetName string
	Outcome   string
	Rows      int
	Missing   []string
	Err       error
}

// IngestSummary totals a run.
type IngestSummary struct {
	RunID    string
	Sheets   []SheetOutcome
	Written  int
	Rejected int
	Failed   int
	Rows     int
}

func (s *IngestSummary) add(o SheetOutcome) {
	s.Sheets = append(s.Sheets, o)
	switch o.Outcome {
	case port.OutcomeWritten:
		s.Written++
		s.Rows += o.Rows
	case port.OutcomeRejected:
		s.Rejected++
	case port.OutcomeFailed:
		s.Failed++
	}
}

// IngestService loads source sheets, normalizes them onto a record schema,
// validates and writes them. Per-sheet problems are audited and the run goes
// on; setup problems abort it before anything is written.
type IngestService struct {
	loaders LoaderFactory
	writer  port.Writer
	auditor port.IngestAuditor
	logger  *slog.Logger
	tracer  trace.Tracer
	inst    port.Instrumentation
	now     func() time.Time
}

func NewIngestService(loaders LoaderFactory, writer port.Writer, auditor port.IngestAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *IngestService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &IngestService{
		loaders: loaders,
		writer:  writer,
		auditor: auditor,
		logger:  logger,
		tracer:  tracer,
		inst:    inst,
		now:     time.Now,
	}
}

// Run executes req. It fails fast on an unknown source type or an empty
// record schema, and on cancellation; everything else is reported per sheet
// in the summary.
func (s *IngestService) Run(ctx context.Context, req IngestRequest) (*IngestSummary, error) {
	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "IngestService.Run",
		trace.WithAttributes(
			attribute.String("sheetmatch.run_id", runID),
			attribute.String("sheetmatch.pipeline", req.Pipeline),
			attribute.String("schema.name", req.Schema.Name),
			attribute.String("sheetmatch.destination", req.Destination.String()),
		),
	)
	defer span.End()

	fail := func(err error) (*IngestSummary, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if len(req.Schema.DataColumns()) == 0 {
		return fail(&domain.ValidationError{Schema: req.Schema.Name, Reason: "record schema has no data columns"})
	}
	loaders := make([]port.Loader, len(req.Sources))
	for i, src := range req.Sources {
		l, err := s.loaders(src.FileType)
		if err != nil {
			return fail(fmt.Errorf("source %s: %w", src.Path, err))
		}
		loaders[i] = l
	}

	if req.Overwrite {
		if err := s.writer.Drop(ctx, req.Destination); err != nil {
			return fail(fmt.Errorf("dropping destination %s: %w", req.Destination, err))
		}
		s.logger.InfoContext(ctx, "destination dropped", slog.String("destination", req.Destination.String()))
	}

	summary := &IngestSummary{RunID: runID}
	for i, src := range req.Sources {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		sheets, err := loaders[i].Load(ctx, src.Path, src.Sheets)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fail(ctxErr)
			}
			s.logger.ErrorContext(ctx, "source unreadable",
				slog.String("file.path", src.Path),
				slog.String("error", err.Error()),
			)
			summary.add(s.audit(ctx, runID, req, SheetOutcome{FilePath: src.Path, Outcome: port.OutcomeFailed, Err: err}, 0))
			continue
		}

		for _, sheet := range sheets {
			if err := ctx.Err(); err != nil {
				return fail(err)
			}
			summary.add(s.ingestSheet(ctx, runID, req, src.Path, sheet))
		}
	}

	span.SetAttributes(
		attribute.Int("sheetmatch.sheets.written", summary.Written),
		attribute.Int("sheetmatch.sheets.rejected", summary.Rejected),
		attribute.Int("sheetmatch.sheets.failed", summary.Failed),
		attribute.Int("sheetmatch.rows.written", summary.Rows),
	)
	s.logger.InfoContext(ctx, "ingest finished",
		slog.String("run.id", runID),
		slog.String("pipeline", req.Pipeline),
		slog.Int("sheets.written", summary.Written),
		slog.Int("sheets.rejected", summary.Rejected),
		slog.Int("sheets.failed", summary.Failed),
		slog.Int("rows.written", summary.Rows),
	)
	return summary, nil
}

func (s *IngestService) ingestSheet(ctx context.Context, runID string, req IngestRequest, path string, sheet port.LoadedSheet) SheetOutcome {
	ctx, span := s.tracer.Start(ctx, "IngestService.ingestSheet",
		trace.WithAttributes(
			attribute.String("file.path", path),
			attribute.String("sheet.name", sheet.Name),
		),
	)
	defer span.End()

	start := time.Now()
	out := SheetOutcome{FilePath: path, SheetName: sheet.Name}

	if sheet.Err != nil {
		s.logger.WarnContext(ctx, "worksheet unreadable",
			slog.String("file.path", path),
			slog.String("sheet.name", sheet.Name),
			slog.String("error", sheet.Err.Error()),
		)
		out.Outcome, out.Err = port.OutcomeSkipped, sheet.Err
		return s.audit(ctx, runID, req, out, time.Since(start))
	}

	rec, missing := domain.Normalize(sheet.Table, req.Schema.DataColumns(), domain.Provenance{
		FilePath:  path,
		SheetName: sheet.Name,
		CreatedAt: s.now().UTC(),
	})
	rec.Schema = req.Schema.Name
	out.Missing = missing
	for _, col := range missing {
		s.logger.WarnContext(ctx, "column missing from source, filled with nulls",
			slog.String("file.path", path),
			slog.String("sheet.name", sheet.Name),
			slog.String("schema.name", req.Schema.Name),
			slog.String("column", col),
		)
	}

	validated, err := domain.ValidateRecord(rec, req.Schema)
	if err != nil {
		s.logger.WarnContext(ctx, "record rejected",
			slog.String("file.path", path),
			slog.String("sheet.name", sheet.Name),
			slog.String("schema.name", req.Schema.Name),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		out.Outcome, out.Err = port.OutcomeRejected, err
		return s.audit(ctx, runID, req, out, time.Since(start))
	}

	if err := s.writer.Write(ctx, validated, req.Destination); err != nil {
		s.logger.ErrorContext(ctx, "write failed",
			slog.String("file.path", path),
			slog.String("sheet.name", sheet.Name),
			slog.String("destination", req.Destination.String()),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		out.Outcome, out.Err = port.OutcomeFailed, err
		return s.audit(ctx, runID, req, out, time.Since(start))
	}

	out.Outcome, out.Rows = port.OutcomeWritten, validated.Len()
	s.inst.AddRowsWritten(ctx, int64(out.Rows))
	span.SetAttributes(attribute.Int("sheetmatch.rows", out.Rows))
	s.logger.InfoContext(ctx, "worksheet ingested",
		slog.String("file.path", path),
		slog.String("sheet.name", sheet.Name),
		slog.String("schema.name", req.Schema.Name),
		slog.Int("rows", out.Rows),
	)
	return s.audit(ctx, runID, req, out, time.Since(start))
}

func (s *IngestService) audit(ctx context.Context, runID string, req IngestRequest, out SheetOutcome, d time.Duration) SheetOutcome {
	ms := d.Milliseconds()
	s.inst.IncrementSheetsIngested(ctx, out.Outcome)
	s.inst.RecordIngestDuration(ctx, float64(ms))
	s.auditor.Record(ctx, port.AuditEntry{
		RunID:       runID,
		Pipeline:    req.Pipeline,
		FilePath:    out.FilePath,
		SheetName:   out.SheetName,
		Schema:      req.Schema.Name,
		Destination: req.Destination.String(),
		Outcome:     out.Outcome,
		Rows:        out.Rows,
		DurationMS:  ms,
		Err:         out.Err,
	})
	return out
}
