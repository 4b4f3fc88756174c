package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
	"github.com/pavestack/sheetmatch/internal/core/service"
)

func TestRenderIngestSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	renderIngestSummary(&buf, &service.IngestSummary{
		RunID: "run-1",
		Sheets: []service.SheetOutcome{
			{FilePath: "a.xlsx", SheetName: "Lane 1", Outcome: port.OutcomeWritten, Rows: 4, Missing: []string{"MP"}},
			{FilePath: "a.xlsx", SheetName: "Lane 2", Outcome: port.OutcomeRejected, Err: errors.New("column Scan: bad int")},
		},
		Written:  1,
		Rejected: 1,
		Rows:     4,
	})

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "null-filled: MP")
	assert.Contains(t, out, "column Scan: bad int")
	assert.Contains(t, out, "1 written, 1 rejected, 0 failed, 4 rows")
}

func TestRenderReportSummary(t *testing.T) {
	t.Parallel()

	r := &domain.Report{
		Exact: []domain.MatchGroup{{Schema: "GPR", Entries: []domain.MatchEntry{
			{FilePath: "a.xlsx", SheetName: "Lane 1", Ratio: 1, Kind: domain.MatchExact},
		}}},
		NoMatch: []domain.SheetGroup{{Key: "a.xlsx", Sheets: []string{"Notes"}}},
		Errors:  []domain.SheetError{{FilePath: "b.xlsx", Err: "zip: not a valid zip file"}},
	}

	var buf bytes.Buffer
	renderReportSummary(&buf, r, "report.json")

	out := buf.String()
	assert.Contains(t, out, "Categorization")
	assert.Contains(t, out, "GPR")
	assert.Contains(t, out, "unreadable: b.xlsx: zip: not a valid zip file")
	assert.Contains(t, out, "report written to report.json")
}

func TestRenderCatalogue_EmptySchema(t *testing.T) {
	t.Parallel()

	c, err := domain.NewCatalogue(
		domain.Schema{Name: "GPR", Columns: []string{"Scan", "MP"}},
		domain.Schema{Name: "Placeholder"},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	renderCatalogue(&buf, c)
	assert.Contains(t, buf.String(), "2 schemas")
	assert.Contains(t, buf.String(), "(empty, never matched)")
}
