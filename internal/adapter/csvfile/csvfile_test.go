package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lane_1.csv")
	require.NoError(t, os.WriteFile(path, []byte("Scan,,MP\n1,x,2.5\n2,,\n3,y,4,extra\n"), 0o644))

	tests := []struct {
		name    string
		sheets  []string
		wantErr bool
	}{
		{name: "default sheet", sheets: nil},
		{name: "named sheet", sheets: []string{"lane_1"}},
		{name: "unknown sheet", sheets: []string{"Lane 2"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sheets, err := NewLoader().Load(context.Background(), path, tt.sheets)
			require.NoError(t, err)
			require.Len(t, sheets, 1)
			if tt.wantErr {
				assert.ErrorIs(t, sheets[0].Err, domain.ErrWorksheetUnreadable)
				return
			}
			require.NoError(t, sheets[0].Err)
			assert.Equal(t, "lane_1", sheets[0].Name)
			assert.Equal(t, []string{"Scan", "Unnamed: 1", "MP", "Unnamed: 3"}, sheets[0].Table.Columns)
			assert.Equal(t, [][]any{
				{"1", "x", "2.5", nil},
				{"2", nil, nil, nil},
				{"3", "y", "4", "extra"},
			}, sheets[0].Table.Rows)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "none.csv"), nil)
	require.Error(t, err)
}

func record(file string, rows ...[]any) domain.Record {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := domain.Record{
		Schema:  "Base Schema 6",
		Columns: []string{"Scan", "MP", domain.ColumnSourceFilePath, domain.ColumnSourceSheetName, domain.ColumnCreatedTime},
	}
	for _, r := range rows {
		rec.Rows = append(rec.Rows, append(r, file, "Lane 1", created))
	}
	return rec
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestWriter_Upsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dest := port.Destination{
		Location:    filepath.Join(t.TempDir(), "out"),
		FileName:    "bronze",
		PartitionBy: []string{domain.ColumnSourceFilePath, domain.ColumnSourceSheetName},
	}
	w := NewWriter()
	defer func() { _ = w.Close() }()

	require.NoError(t, w.Write(ctx, record("/d/a.xlsx", []any{1, 0.5}, []any{2, nil}), dest))
	require.NoError(t, w.Write(ctx, record("/d/b.xlsx", []any{7, 1.25}), dest))

	path := filepath.Join(dest.Location, "bronze.csv")
	lines := readLines(t, path)
	require.Len(t, lines, 4)
	assert.Equal(t, "Scan,MP,source_filepath,source_sheetname,created_time", lines[0])
	assert.Equal(t, "1,0.5,/d/a.xlsx,Lane 1,2024-05-01T12:00:00Z", lines[1])
	assert.Equal(t, "2,,/d/a.xlsx,Lane 1,2024-05-01T12:00:00Z", lines[2])

	// Re-running a.xlsx replaces its rows and keeps b.xlsx.
	require.NoError(t, w.Write(ctx, record("/d/a.xlsx", []any{3, 9.0}), dest))
	lines = readLines(t, path)
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "7,1.25,/d/b.xlsx"))
	assert.True(t, strings.HasPrefix(lines[2], "3,9,/d/a.xlsx"))

	require.NoError(t, w.Drop(ctx, dest))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, w.Drop(ctx, dest))
}

func TestWriter_HeaderMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bronze.csv"), []byte("Other\n1\n"), 0o644))

	dest := port.Destination{Location: dir, FileName: "bronze", PartitionBy: []string{domain.ColumnSourceFilePath}}
	err := NewWriter().Write(context.Background(), record("/d/a.xlsx", []any{1, 2}), dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has columns")
}

func TestWriter_UnknownPartitionColumn(t *testing.T) {
	t.Parallel()

	dest := port.Destination{Location: t.TempDir(), FileName: "bronze", PartitionBy: []string{"Region"}}
	err := NewWriter().Write(context.Background(), record("/d/a.xlsx", []any{1, 2}), dest)
	require.Error(t, err)
}
