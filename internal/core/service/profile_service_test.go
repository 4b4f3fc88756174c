package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavestack/sheetmatch/internal/core/port"
)

func TestProfileService_ProfileFiles(t *testing.T) {
	t.Parallel()

	prof := &fakeProfiler{profiles: map[string]*port.FileProfile{
		"in/a.xlsx": {Path: "in/a.xlsx", Name: "a.xlsx", Sheets: []port.SheetProfile{sheet("S1", "Scan", "MP")}},
		"in/c.xlsx": {Path: "in/c.xlsx", Name: "c.xlsx", Sheets: []port.SheetProfile{sheet("S1", "Scan")}},
	}}
	svc := NewProfileService(prof, 2, testLogger(), nil)

	got, err := svc.ProfileFiles(context.Background(), []string{"in/a.xlsx", "in/b.xlsx", "in/c.xlsx"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "in/a.xlsx", got[0].Path)
	assert.Empty(t, got[0].Error)
	assert.Equal(t, "in/b.xlsx", got[1].Path)
	assert.Equal(t, "b.xlsx", got[1].Name)
	assert.Contains(t, got[1].Error, "no such file")
	assert.Equal(t, "in/c.xlsx", got[2].Path)
}

func TestProfileService_ProfileFiles_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewProfileService(&fakeProfiler{}, 1, testLogger(), nil)
	_, err := svc.ProfileFiles(ctx, []string{"in/a.xlsx"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProfilePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		workbook string
		want     string
	}{
		{"top level", "/data/in/survey.xlsx", "/data/out/survey.json"},
		{"nested", "/data/in/2023/I-80/survey.xls", "/data/out/2023/I-80/survey.json"},
		{"outside input dir", "/elsewhere/survey.xlsx", "/data/out/survey.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ProfilePath("/data/in", "/data/out", tt.workbook))
		})
	}
}

func TestProfileService_WriteAndLoadProfiles(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()
	profiles := []*port.FileProfile{
		{Path: filepath.Join(in, "b.xlsx"), Name: "b.xlsx", Sheets: []port.SheetProfile{sheet("Lane 1", "Scan", "MP")}},
		{Path: filepath.Join(in, "sub", "a.xlsx"), Name: "a.xlsx", ChartParts: 2},
	}

	svc := NewProfileService(&fakeProfiler{}, 1, testLogger(), nil)
	written, err := svc.WriteProfiles(in, out, profiles)
	require.NoError(t, err)
	require.Len(t, written, 2)
	assert.Equal(t, filepath.Join(out, "b.json"), written[0])
	assert.Equal(t, filepath.Join(out, "sub", "a.json"), written[1])

	data, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"file_name": "b.xlsx"`)

	loaded, err := LoadProfiles(out)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "b.xlsx", loaded[0].Name)
	assert.Equal(t, []string{"Scan", "MP"}, loaded[0].Sheets[0].Columns)
	assert.Equal(t, 2, loaded[1].ChartParts)
}

func TestLoadProfiles_BadJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte("{"), 0o644))

	_, err := LoadProfiles(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing profile")
}
