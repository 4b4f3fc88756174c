package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// CategorizeService sorts the worksheets of many workbooks into a report.
// Files are profiled and resolved in parallel; each file yields its own
// partial report and the parts are merged in input order, so the result is
// the same as a sequential pass.
type CategorizeService struct {
	profiler   port.Profiler
	outOfScope domain.SheetSet
	workers    int
	logger     *slog.Logger
	tracer     trace.Tracer
	inst       port.Instrumentation
}

func NewCategorizeService(profiler port.Profiler, outOfScope domain.SheetSet, workers int, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *CategorizeService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &CategorizeService{
		profiler:   profiler,
		outOfScope: outOfScope,
		workers:    workers,
		logger:     logger,
		tracer:     tracer,
		inst:       inst,
	}
}

// Categorize profiles each workbook and resolves its worksheets against cat.
func (s *CategorizeService) Categorize(ctx context.Context, cat *domain.Catalogue, paths []string) (*domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "CategorizeService.Categorize",
		trace.WithAttributes(
			attribute.Int("sheetmatch.files", len(paths)),
			attribute.Int("sheetmatch.schemas", cat.Len()),
		),
	)
	defer span.End()

	s.logEmptySchemas(ctx, cat)

	parts := make([]*domain.Report, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp, err := s.profiler.Profile(gctx, path)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				fp = &port.FileProfile{Path: path, Error: err.Error()}
			}
			part, err := s.categorizeFile(gctx, cat, fp)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := domain.MergeReports(parts...)
	span.SetAttributes(attribute.Int("sheetmatch.sheets", report.Count()+len(report.Errors)))
	return report, nil
}

// CategorizeProfiles resolves previously stored profiles. No workbook is
// opened.
func (s *CategorizeService) CategorizeProfiles(ctx context.Context, cat *domain.Catalogue, profiles []*port.FileProfile) (*domain.Report, error) {
	ctx, span := s.tracer.Start(ctx, "CategorizeService.CategorizeProfiles",
		trace.WithAttributes(attribute.Int("sheetmatch.files", len(profiles))),
	)
	defer span.End()

	s.logEmptySchemas(ctx, cat)

	parts := make([]*domain.Report, 0, len(profiles))
	for _, fp := range profiles {
		part, err := s.categorizeFile(ctx, cat, fp)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		parts = append(parts, part)
	}
	return domain.MergeReports(parts...), nil
}

func (s *CategorizeService) categorizeFile(ctx context.Context, cat *domain.Catalogue, fp *port.FileProfile) (*domain.Report, error) {
	b := domain.NewReportBuilder()
	if fp.Error != "" {
		b.AddError(fp.Path, "", fmt.Errorf("%w: %s", domain.ErrWorksheetUnreadable, fp.Error))
		s.inst.IncrementSheetsCategorized(ctx, "error")
		return b.Build(), nil
	}

	for _, sheet := range fp.Sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !sheet.Readable() {
			s.logger.WarnContext(ctx, "worksheet unreadable",
				slog.String("file.path", fp.Path),
				slog.String("sheet.name", sheet.Name),
				slog.String("error", sheet.Error),
			)
			b.AddError(fp.Path, sheet.Name, errors.New(sheet.Error))
			s.inst.IncrementSheetsCategorized(ctx, "error")
			continue
		}

		ws := domain.Worksheet{
			FilePath:  fp.Path,
			FileName:  fp.Name,
			SheetName: sheet.Name,
			Columns:   sheet.Columns,
		}
		res := domain.Resolve(ws, cat, s.outOfScope)
		b.Add(ws, res)

		kind := res.Verdict.Kind.String()
		if res.OutOfScope {
			kind = "out_of_scope"
		}
		s.inst.IncrementSheetsCategorized(ctx, kind)
		s.logger.DebugContext(ctx, "worksheet categorized",
			slog.String("file.path", fp.Path),
			slog.String("sheet.name", sheet.Name),
			slog.String("match.kind", kind),
			slog.String("schema.name", res.Verdict.Schema),
			slog.Float64("match.ratio", res.Verdict.Ratio),
		)
	}
	return b.Build(), nil
}

func (s *CategorizeService) logEmptySchemas(ctx context.Context, cat *domain.Catalogue) {
	for _, name := range cat.EmptySchemas() {
		s.logger.DebugContext(ctx, "skipping empty schema", slog.String("schema.name", name))
	}
}
