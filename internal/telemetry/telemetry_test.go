package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pavestack/sheetmatch/internal/core/port"
)

var _ port.Instrumentation = (*Instruments)(nil)

func TestNoopTracer(t *testing.T) {
	tracer := NoopTracer()
	assert.NotNil(t, tracer)

	_, span := tracer.Start(context.Background(), "test")
	assert.NotNil(t, span)
	span.End()
}

func TestNoopInstruments(t *testing.T) {
	inst := NoopInstruments()
	require.NotNil(t, inst)

	// Should not panic.
	ctx := context.Background()
	inst.IncrementSheetsCategorized(ctx, "exact")
	inst.IncrementSheetsIngested(ctx, "written")
	inst.AddRowsWritten(ctx, 10)
	inst.RecordIngestDuration(ctx, 12.5)
	inst.RecordToolDuration(ctx, 3)
}

func TestProvider_Nil(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NotNil(t, p.Tracer())
}

func TestSpanRecording(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer("test")

	ctx := context.Background()
	_, span := tracer.Start(ctx, "CategorizeService.Categorize")
	span.SetAttributes(attribute.Int("sheetmatch.files", 3))
	span.End()

	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "CategorizeService.Categorize", spans[0].Name)
}

func TestInstruments_RecordToMeter(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	inst := NewInstrumentsFromMeter(mp.Meter("test"))

	ctx := context.Background()
	inst.IncrementSheetsCategorized(ctx, "exact")
	inst.IncrementSheetsCategorized(ctx, "partial")
	inst.AddRowsWritten(ctx, 42)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	sheets, ok := byName["sheetmatch.sheets.categorized"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sheets.DataPoints, 2)

	rows, ok := byName["sheetmatch.rows.written"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, rows.DataPoints, 1)
	assert.Equal(t, int64(42), rows.DataPoints[0].Value)
}
