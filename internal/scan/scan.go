// Package scan finds workbooks waiting to be profiled in an input directory.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pavestack/sheetmatch/internal/core/service"
)

// Workbook is a spreadsheet file found on disk.
type Workbook struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

var workbookExts = []string{".xlsx", ".xls"}

// FindWorkbooks walks dir and returns every .xlsx/.xls file, oldest first.
// Files with the same modification time are ordered by path. Directories
// whose name is listed in exclude are not entered, and neither are hidden
// ones.
func FindWorkbooks(dir string, exclude []string) ([]Workbook, error) {
	var books []Workbook
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (slices.Contains(exclude, d.Name()) || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(workbookExts, strings.ToLower(filepath.Ext(path))) {
			return nil
		}
		// Excel lock files.
		if strings.HasPrefix(d.Name(), "~$") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		books = append(books, Workbook{
			Path:    path,
			Name:    d.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	sort.SliceStable(books, func(i, j int) bool {
		if !books[i].ModTime.Equal(books[j].ModTime) {
			return books[i].ModTime.Before(books[j].ModTime)
		}
		return books[i].Path < books[j].Path
	})
	return books, nil
}

// Pending returns the workbooks under inputDir that have no profile under
// outputDir yet.
func Pending(inputDir, outputDir string, exclude []string) ([]Workbook, error) {
	books, err := FindWorkbooks(inputDir, exclude)
	if err != nil {
		return nil, err
	}
	pending := books[:0]
	for _, b := range books {
		_, err := os.Stat(service.ProfilePath(inputDir, outputDir, b.Path))
		switch {
		case err == nil:
			continue
		case errors.Is(err, fs.ErrNotExist):
			pending = append(pending, b)
		default:
			return nil, fmt.Errorf("checking profile of %s: %w", b.Path, err)
		}
	}
	return pending, nil
}

// Paths returns the paths of books in order.
func Paths(books []Workbook) []string {
	paths := make([]string, len(books))
	for i, b := range books {
		paths[i] = b.Path
	}
	return paths
}

// Watch calls fn immediately and then once per interval until ctx is done.
// It returns nil on cancellation and the first error fn returns otherwise.
func Watch(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
