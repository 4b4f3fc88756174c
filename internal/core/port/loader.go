package port

import (
	"context"

	"github.com/pavestack/sheetmatch/internal/core/domain"
)

// LoadedSheet is one requested sheet of a source file. Err is non-nil when
// the sheet could not be read and wraps domain.ErrWorksheetUnreadable.
type LoadedSheet struct {
	Name  string
	Table domain.Table
	Err   error
}

// Loader reads tabular sheets from a source file. An empty sheet list means
// every sheet in the file.
type Loader interface {
	Load(ctx context.Context, path string, sheets []string) ([]LoadedSheet, error)
}
