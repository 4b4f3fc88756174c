package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestFindWorkbooks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	touch(t, filepath.Join(dir, "new.xlsx"), base.Add(2*time.Hour))
	touch(t, filepath.Join(dir, "old.XLS"), base)
	touch(t, filepath.Join(dir, "b.xlsx"), base.Add(time.Hour))
	touch(t, filepath.Join(dir, "a.xlsx"), base.Add(time.Hour))
	touch(t, filepath.Join(dir, "sub", "nested.xlsx"), base.Add(3*time.Hour))
	touch(t, filepath.Join(dir, "archive", "skipped.xlsx"), base)
	touch(t, filepath.Join(dir, ".cache", "hidden.xlsx"), base)
	touch(t, filepath.Join(dir, "~$new.xlsx"), base)
	touch(t, filepath.Join(dir, "notes.csv"), base)

	books, err := FindWorkbooks(dir, []string{"archive"})
	require.NoError(t, err)

	var names []string
	for _, b := range books {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"old.XLS", "a.xlsx", "b.xlsx", "new.xlsx", "nested.xlsx"}, names)
	assert.Equal(t, filepath.Join(dir, "sub", "nested.xlsx"), books[4].Path)
	assert.Equal(t, int64(1), books[0].Size)
}

func TestFindWorkbooks_MissingDir(t *testing.T) {
	t.Parallel()

	_, err := FindWorkbooks(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestPending(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()
	now := time.Now()
	touch(t, filepath.Join(in, "done.xlsx"), now)
	touch(t, filepath.Join(in, "todo.xlsx"), now.Add(time.Second))
	touch(t, filepath.Join(in, "sub", "done.xlsx"), now.Add(2*time.Second))
	touch(t, filepath.Join(out, "done.json"), now)

	books, err := Pending(in, out, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(in, "todo.xlsx"),
		filepath.Join(in, "sub", "done.xlsx"),
	}, Paths(books))
}

func TestWatch(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	err := Watch(ctx, time.Millisecond, func(context.Context) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWatch_StopsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var calls atomic.Int32
	err := Watch(context.Background(), time.Hour, func(context.Context) error {
		calls.Add(1)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatch_InvalidInterval(t *testing.T) {
	t.Parallel()

	err := Watch(context.Background(), 0, func(context.Context) error { return nil })
	require.Error(t, err)
}
