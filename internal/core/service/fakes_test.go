package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// --- fake Profiler ---

type fakeProfiler struct {
	profiles map[string]*port.FileProfile
	errs     map[string]error
}

func (f *fakeProfiler) Profile(ctx context.Context, path string) (*port.FileProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	fp, ok := f.profiles[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	return fp, nil
}

func sheet(name string, cols ...string) port.SheetProfile {
	return port.SheetProfile{Name: name, Columns: cols, NumColumns: len(cols)}
}

// --- fake Loader ---

type fakeLoader struct {
	sheets map[string][]port.LoadedSheet
	err    error
}

func (f *fakeLoader) Load(_ context.Context, path string, sheets []string) ([]port.LoadedSheet, error) {
	if f.err != nil {
		return nil, f.err
	}
	all, ok := f.sheets[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}
	if len(sheets) == 0 {
		return all, nil
	}
	var out []port.LoadedSheet
	for _, want := range sheets {
		for _, s := range all {
			if s.Name == want {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func loaderFactory(l port.Loader) LoaderFactory {
	return func(tag string) (port.Loader, error) {
		if tag != "excel" {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownTag, tag)
		}
		return l, nil
	}
}

// --- fake Writer ---

type fakeWriter struct {
	mu      sync.Mutex
	written []domain.Record
	dropped int
	failOn  string
	dropErr error
}

func (w *fakeWriter) Write(_ context.Context, rec domain.Record, _ port.Destination) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failOn != "" {
		sheets, _ := rec.Column(domain.ColumnSourceSheetName)
		if len(sheets) > 0 && sheets[0] == w.failOn {
			return errors.New("disk full")
		}
	}
	w.written = append(w.written, rec)
	return nil
}

func (w *fakeWriter) Drop(context.Context, port.Destination) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dropped++
	return w.dropErr
}

func (w *fakeWriter) Close() error { return nil }

// --- recording auditor ---

type recordingAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }

// --- counting instrumentation ---

type countingInstrumentation struct {
	port.NoopInstrumentation
	mu          sync.Mutex
	categorized map[string]int
	ingested    map[string]int
	rows        int64
}

func newCountingInstrumentation() *countingInstrumentation {
	return &countingInstrumentation{categorized: map[string]int{}, ingested: map[string]int{}}
}

func (c *countingInstrumentation) IncrementSheetsCategorized(_ context.Context, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categorized[kind]++
}

func (c *countingInstrumentation) IncrementSheetsIngested(_ context.Context, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ingested[outcome]++
}

func (c *countingInstrumentation) AddRowsWritten(_ context.Context, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows += n
}
