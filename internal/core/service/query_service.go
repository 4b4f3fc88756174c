package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pavestack/sheetmatch/internal/core/port"
)

type toolNameKey struct{}

// WithToolName returns a context carrying the MCP tool name for logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// QueryService answers read-only questions about ingested records: the
// statement is validated before it reaches the executor.
type QueryService struct {
	validator port.QueryValidator
	executor  port.QueryExecutor
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewQueryService(validator port.QueryValidator, executor port.QueryExecutor, logger *slog.Logger, tracer trace.Tracer) *QueryService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	return &QueryService{
		validator: validator,
		executor:  executor,
		logger:    logger,
		tracer:    tracer,
	}
}

// Execute validates the SQL statement and, if allowed, delegates to the executor.
func (s *QueryService) Execute(ctx context.Context, sql string) ([]map[string]any, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.Execute",
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	if err := s.validator.Validate(sql); err != nil {
		s.logger.WarnContext(ctx, "query validation rejected",
			slog.String("tool", toolNameFromCtx(ctx)),
			slog.String("db.statement", sql),
			slog.String("error.type", "validation_error"),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("validation: %w", err)
	}

	start := time.Now()
	results, err := s.executor.Execute(ctx, sql)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		s.logger.ErrorContext(ctx, "query failed",
			slog.String("tool", toolNameFromCtx(ctx)),
			slog.String("db.statement", sql),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return results, err
	}

	s.logger.InfoContext(ctx, "query executed",
		slog.String("tool", toolNameFromCtx(ctx)),
		slog.Int("db.response.rows", len(results)),
		slog.Int64("duration_ms", durationMS),
	)
	span.SetAttributes(attribute.Int("db.response.rows", len(results)))
	return results, nil
}
