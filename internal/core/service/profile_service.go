package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/pavestack/sheetmatch/internal/core/port"
)

// ProfileService profiles workbooks in parallel and persists the profiles.
type ProfileService struct {
	profiler port.Profiler
	workers  int
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewProfileService(profiler port.Profiler, workers int, logger *slog.Logger, tracer trace.Tracer) *ProfileService {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if workers <= 0 {
		workers = 1
	}
	return &ProfileService{profiler: profiler, workers: workers, logger: logger, tracer: tracer}
}

// ProfileFiles profiles every path, at most workers at a time. The result
// has one profile per path in input order; a workbook that cannot be opened
// yields a profile with Error set. Only cancellation aborts the run.
func (s *ProfileService) ProfileFiles(ctx context.Context, paths []string) ([]*port.FileProfile, error) {
	ctx, span := s.tracer.Start(ctx, "ProfileService.ProfileFiles",
		trace.WithAttributes(attribute.Int("sheetmatch.files", len(paths))),
	)
	defer span.End()

	out := make([]*port.FileProfile, len(paths))
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
				s.logger.WarnContext(gctx, "workbook unreadable",
					slog.String("file.path", path),
					slog.String("error", err.Error()),
				)
				fp = &port.FileProfile{Path: path, Name: filepath.Base(path), Error: err.Error()}
			}
			s.logger.DebugContext(gctx, "workbook profiled",
				slog.String("file.path", path),
				slog.Int("sheets", len(fp.Sheets)),
			)
			out[i] = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ProfilePath returns where the profile of workbook is stored: its path
// relative to inputDir, under outputDir, with a .json extension.
func ProfilePath(inputDir, outputDir, workbook string) string {
	rel, err := filepath.Rel(inputDir, workbook)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(workbook)
	}
	return filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".json")
}

// WriteProfiles stores one indented JSON document per profile and returns
// the written paths.
func (s *ProfileService) WriteProfiles(inputDir, outputDir string, profiles []*port.FileProfile) ([]string, error) {
	written := make([]string, 0, len(profiles))
	for _, fp := range profiles {
		target := ProfilePath(inputDir, outputDir, fp.Path)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
		}
		data, err := json.MarshalIndent(fp, "", "    ")
		if err != nil {
			return written, fmt.Errorf("encoding profile of %s: %w", fp.Path, err)
		}
		if err := os.WriteFile(target, append(data, '\n'), 0o644); err != nil {
			return written, fmt.Errorf("writing profile: %w", err)
		}
		written = append(written, target)
	}
	return written, nil
}

// LoadProfiles reads every profile JSON under dir, sorted by path. Loaded
// profiles carry columns but no row data.
func LoadProfiles(dir string) ([]*port.FileProfile, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	profiles := make([]*port.FileProfile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading profile: %w", err)
		}
		var fp port.FileProfile
		if err := json.Unmarshal(data, &fp); err != nil {
			return nil, fmt.Errorf("parsing profile %s: %w", p, err)
		}
		profiles = append(profiles, &fp)
	}
	return profiles, nil
}
