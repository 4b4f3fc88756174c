package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavestack/sheetmatch/internal/adapter/catalogue"
	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/scan"
)

// catalogueFlags selects the schema catalogue: a file, or a built-in one.
type catalogueFlags struct {
	path   string
	domain string
}

func (f *catalogueFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "catalogue", "", "schema catalogue file (.json or .yaml)")
	cmd.Flags().StringVar(&f.domain, "domain", "", "built-in catalogue: gpr or pavement")
	cmd.MarkFlagsMutuallyExclusive("catalogue", "domain")
}

func (f *catalogueFlags) load() (*domain.Catalogue, error) {
	switch {
	case f.path != "":
		return catalogue.Load(f.path)
	case f.domain != "":
		groups, ok := domain.BuiltinGroups(f.domain)
		if !ok {
			return nil, fmt.Errorf("unknown built-in catalogue %q (want gpr or pavement)", f.domain)
		}
		return domain.Flatten(groups)
	}
	return nil, errors.New("one of --catalogue or --domain is required")
}

// expandInputs turns command arguments into workbook paths. Directories are
// scanned for workbooks; files are taken as given.
func expandInputs(args, exclude []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		books, err := scan.FindWorkbooks(arg, exclude)
		if err != nil {
			return nil, err
		}
		paths = append(paths, scan.Paths(books)...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no workbooks found in %s", strings.Join(args, ", "))
	}
	return paths, nil
}
