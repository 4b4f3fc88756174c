package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

func gprRecordSchema() domain.RecordSchema {
	return domain.BuildRecordSchema(
		domain.Schema{Name: "GPR", Columns: []string{"Scan", "MP", "Layer 1 Name"}},
		map[string]domain.DType{"Scan": domain.DTypeInt64, "MP": domain.DTypeFloat64, "Layer 1 Name": domain.DTypeString},
	)
}

func gprLoader() *fakeLoader {
	return &fakeLoader{sheets: map[string][]port.LoadedSheet{
		"a.xlsx": {
			{Name: "Lane 1", Table: domain.Table{
				Columns: []string{"Scan", "MP", "Layer 1 Name", "Note"},
				Rows: [][]any{
					{"1", "10.5", "AC", "x"},
					{"2", "10.6", nil, "y"},
				},
			}},
			{Name: "Lane 2", Table: domain.Table{
				Columns: []string{"Scan", "MP"},
				Rows:    [][]any{{"3", "11"}},
			}},
			{Name: "Bad", Table: domain.Table{
				Columns: []string{"Scan", "MP", "Layer 1 Name"},
				Rows:    [][]any{{"three", "11", "AC"}},
			}},
			{Name: "Broken", Err: domain.ErrWorksheetUnreadable},
		},
	}}
}

func newTestIngestService(l port.Loader, w port.Writer, a port.IngestAuditor, inst port.Instrumentation) *IngestService {
	svc := NewIngestService(loaderFactory(l), w, a, testLogger(), nil, inst)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestIngestService_Run(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	aud := &recordingAuditor{}
	inst := newCountingInstrumentation()
	svc := newTestIngestService(gprLoader(), w, aud, inst)

	summary, err := svc.Run(context.Background(), IngestRequest{
		Pipeline:    "gpr-bronze",
		Sources:     []IngestSource{{Path: "a.xlsx", FileType: "excel"}},
		Schema:      gprRecordSchema(),
		Destination: port.Destination{Location: "out.db", Table: "gpr"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Written)
	assert.Equal(t, 1, summary.Rejected)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.Rows)
	require.Len(t, summary.Sheets, 4)

	assert.Equal(t, port.OutcomeWritten, summary.Sheets[0].Outcome)
	assert.Empty(t, summary.Sheets[0].Missing)
	assert.Equal(t, []string{"Layer 1 Name"}, summary.Sheets[1].Missing)
	assert.Equal(t, port.OutcomeRejected, summary.Sheets[2].Outcome)
	require.ErrorIs(t, summary.Sheets[2].Err, domain.ErrValidation)
	assert.Equal(t, port.OutcomeSkipped, summary.Sheets[3].Outcome)

	require.Len(t, w.written, 2)
	rec := w.written[0]
	assert.Equal(t, "GPR", rec.Schema)
	assert.Equal(t, []string{"Scan", "MP", "Layer 1 Name", domain.ColumnSourceFilePath, domain.ColumnSourceSheetName, domain.ColumnCreatedTime}, rec.Columns)
	assert.Equal(t, []any{int64(1), 10.5, "AC", "a.xlsx", "Lane 1", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}, rec.Rows[0])
	assert.Nil(t, rec.Rows[1][2])

	require.Len(t, aud.entries, 4)
	for _, e := range aud.entries {
		assert.Equal(t, summary.RunID, e.RunID)
		assert.Equal(t, "gpr-bronze", e.Pipeline)
		assert.Equal(t, "GPR", e.Schema)
	}
	assert.Equal(t, 2, aud.entries[0].Rows)

	assert.Equal(t, 2, inst.ingested[port.OutcomeWritten])
	assert.Equal(t, 1, inst.ingested[port.OutcomeRejected])
	assert.Equal(t, 1, inst.ingested[port.OutcomeSkipped])
	assert.Equal(t, int64(3), inst.rows)
}

func TestIngestService_SelectedSheetsAndOverwrite(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	svc := newTestIngestService(gprLoader(), w, &recordingAuditor{}, nil)

	summary, err := svc.Run(context.Background(), IngestRequest{
		Sources:   []IngestSource{{Path: "a.xlsx", FileType: "excel", Sheets: []string{"Lane 2"}}},
		Schema:    gprRecordSchema(),
		Overwrite: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, w.dropped)
	assert.Equal(t, 1, summary.Written)
	require.Len(t, w.written, 1)
	assert.Equal(t, "Lane 2", w.written[0].Rows[0][4])
}

func TestIngestService_WriteAndLoadFailures(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{failOn: "Lane 1"}
	aud := &recordingAuditor{}
	svc := NewIngestService(func(string) (port.Loader, error) {
		return gprLoader(), nil
	}, w, aud, testLogger(), nil, nil)

	summary, err := svc.Run(context.Background(), IngestRequest{
		Sources: []IngestSource{
			{Path: "missing.xlsx", FileType: "excel"},
			{Path: "a.xlsx", FileType: "excel", Sheets: []string{"Lane 1", "Lane 2"}},
		},
		Schema: gprRecordSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 1, summary.Written)

	assert.Equal(t, "missing.xlsx", summary.Sheets[0].FilePath)
	assert.Empty(t, summary.Sheets[0].SheetName)
	assert.Equal(t, port.OutcomeFailed, summary.Sheets[1].Outcome)
	assert.EqualError(t, summary.Sheets[1].Err, "disk full")
	assert.Len(t, aud.entries, 3)
}

func TestIngestService_FailsFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		req    IngestRequest
		dropEr error
		check  func(t *testing.T, err error)
	}{
		{
			name: "no data columns",
			req: IngestRequest{
				Sources: []IngestSource{{Path: "a.xlsx", FileType: "excel"}},
				Schema:  domain.BuildRecordSchema(domain.Schema{Name: "Empty"}, nil),
			},
			check: func(t *testing.T, err error) {
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "Empty", ve.Schema)
			},
		},
		{
			name: "unknown source type",
			req: IngestRequest{
				Sources: []IngestSource{{Path: "a.parquet", FileType: "parquet"}},
				Schema:  gprRecordSchema(),
			},
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, domain.ErrUnknownTag)
			},
		},
		{
			name: "drop fails",
			req: IngestRequest{
				Sources:   []IngestSource{{Path: "a.xlsx", FileType: "excel"}},
				Schema:    gprRecordSchema(),
				Overwrite: true,
			},
			dropEr: errors.New("permission denied"),
			check: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "permission denied")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := &fakeWriter{dropErr: tt.dropEr}
			aud := &recordingAuditor{}
			svc := newTestIngestService(gprLoader(), w, aud, nil)

			summary, err := svc.Run(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, summary)
			tt.check(t, err)
			assert.Empty(t, w.written)
			assert.Empty(t, aud.entries)
		})
	}
}

func TestIngestService_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestIngestService(gprLoader(), &fakeWriter{}, &recordingAuditor{}, nil)
	_, err := svc.Run(ctx, IngestRequest{
		Sources: []IngestSource{{Path: "a.xlsx", FileType: "excel"}},
		Schema:  gprRecordSchema(),
	})
	require.ErrorIs(t, err, context.Canceled)
}
