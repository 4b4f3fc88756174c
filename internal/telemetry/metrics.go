package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/pavestack/sheetmatch"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	SheetsCategorized metric.Int64Counter
	SheetsIngested    metric.Int64Counter
	RowsWritten       metric.Int64Counter
	IngestDuration    metric.Float64Histogram
	ToolDuration      metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return NewInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return NewInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

// NewInstrumentsFromMeter creates the instruments on a specific meter.
func NewInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	sheetsCategorized, _ := meter.Int64Counter("sheetmatch.sheets.categorized",
		metric.WithDescription("Worksheets categorized, by match kind"),
	)
	sheetsIngested, _ := meter.Int64Counter("sheetmatch.sheets.ingested",
		metric.WithDescription("Worksheets processed by ingest runs, by outcome"),
	)
	rowsWritten, _ := meter.Int64Counter("sheetmatch.rows.written",
		metric.WithDescription("Normalized rows handed to writers"),
	)
	ingestDuration, _ := meter.Float64Histogram("sheetmatch.ingest.duration",
		metric.WithDescription("Per-worksheet ingest duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	toolDuration, _ := meter.Float64Histogram("sheetmatch.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		SheetsCategorized: sheetsCategorized,
		SheetsIngested:    sheetsIngested,
		RowsWritten:       rowsWritten,
		IngestDuration:    ingestDuration,
		ToolDuration:      toolDuration,
	}
}

func (i *Instruments) IncrementSheetsCategorized(ctx context.Context, kind string) {
	i.SheetsCategorized.Add(ctx, 1, metric.WithAttributes(attribute.String("match.kind", kind)))
}

func (i *Instruments) IncrementSheetsIngested(ctx context.Context, outcome string) {
	i.SheetsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("ingest.outcome", outcome)))
}

func (i *Instruments) AddRowsWritten(ctx context.Context, n int64) {
	i.RowsWritten.Add(ctx, n)
}

func (i *Instruments) RecordIngestDuration(ctx context.Context, ms float64) {
	i.IngestDuration.Record(ctx, ms)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
