// Package registry maps pipeline type tags to loader and writer adapters.
// The set of tags is closed; an unknown tag is a configuration error.
package registry

import (
	"fmt"
	"slices"

	"github.com/pavestack/sheetmatch/internal/adapter/csvfile"
	"github.com/pavestack/sheetmatch/internal/adapter/excel"
	"github.com/pavestack/sheetmatch/internal/adapter/mongo"
	"github.com/pavestack/sheetmatch/internal/adapter/postgres"
	"github.com/pavestack/sheetmatch/internal/adapter/sqlite"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
)

// Options carries the connection settings writers need.
type Options struct {
	DatabaseURL string
	MongoURI    string
	Pool        postgres.PoolOptions
}

var loaders = map[string]func() port.Loader{
	"excel": func() port.Loader { return excel.NewLoader() },
	"csv":   func() port.Loader { return csvfile.NewLoader() },
}

var writers = map[string]func(Options) port.Writer{
	"csv":      func(Options) port.Writer { return csvfile.NewWriter() },
	"sqlite":   func(Options) port.Writer { return sqlite.NewWriter() },
	"postgres": func(o Options) port.Writer { return postgres.NewWriter(o.DatabaseURL, o.Pool) },
	"mongo":    func(o Options) port.Writer { return mongo.NewWriter(o.MongoURI) },
}

// Loader returns the loader registered under tag.
func Loader(tag string) (port.Loader, error) {
	newLoader, ok := loaders[tag]
	if !ok {
		return nil, fmt.Errorf("%w: loader %q (known: %v)", domain.ErrUnknownTag, tag, LoaderTags())
	}
	return newLoader(), nil
}

// Writer returns a new writer registered under tag. Writers connect lazily,
// so construction does not touch the network.
func Writer(tag string, opts Options) (port.Writer, error) {
	newWriter, ok := writers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: writer %q (known: %v)", domain.ErrUnknownTag, tag, WriterTags())
	}
	return newWriter(opts), nil
}

func LoaderTags() []string { return sortedKeys(loaders) }
func WriterTags() []string { return sortedKeys(writers) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
