package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	IncrementSheetsCategorized(ctx context.Context, kind string)
	IncrementSheetsIngested(ctx context.Context, outcome string)
	AddRowsWritten(ctx context.Context, n int64)
	RecordIngestDuration(ctx context.Context, ms float64)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) IncrementSheetsCategorized(context.Context, string) {}
func (NoopInstrumentation) IncrementSheetsIngested(context.Context, string)    {}
func (NoopInstrumentation) AddRowsWritten(context.Context, int64)              {}
func (NoopInstrumentation) RecordIngestDuration(context.Context, float64)      {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)        {}
