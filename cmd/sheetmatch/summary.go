package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pavestack/sheetmatch/internal/core/domain"
	"github.com/pavestack/sheetmatch/internal/core/port"
	"github.com/pavestack/sheetmatch/internal/core/service"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderProfileSummary(w io.Writer, profiles []*port.FileProfile, dir string) {
	sheets, unreadable, failed := 0, 0, 0
	for _, fp := range profiles {
		if fp.Error != "" {
			failed++
			continue
		}
		for _, s := range fp.Sheets {
			sheets++
			if !s.Readable() {
				unreadable++
			}
		}
	}

	fmt.Fprintln(w, titleStyle.Render("Profiles"))
	fmt.Fprintf(w, "%s workbooks, %s worksheets written to %s\n",
		okStyle.Render(strconv.Itoa(len(profiles)-failed)),
		okStyle.Render(strconv.Itoa(sheets)),
		dir,
	)
	if unreadable > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d worksheets could not be read", unreadable)))
	}
	if failed > 0 {
		fmt.Fprintln(w, errStyle.Render(fmt.Sprintf("%d workbooks could not be opened", failed)))
	}
}

// renderReportSummary prints per-group worksheet counts and the schemas with
// the most matches.
func renderReportSummary(w io.Writer, r *domain.Report, path string) {
	counts := r.KindCounts()

	fmt.Fprintln(w, titleStyle.Render("Categorization"))
	t := newTable("group", "worksheets")
	for _, kind := range []string{"exact", "extended", "partial", "none", "out_of_scope", "errors"} {
		t.Row(kind, strconv.Itoa(counts[kind]))
	}
	fmt.Fprintln(w, t.Render())

	if len(r.Exact)+len(r.Extended)+len(r.Partial) > 0 {
		bySchema := newTable("schema", "exact", "extended", "partial")
		for _, name := range matchedSchemas(r) {
			bySchema.Row(name,
				strconv.Itoa(groupSize(r.Exact, name)),
				strconv.Itoa(groupSize(r.Extended, name)),
				strconv.Itoa(groupSize(r.Partial, name)),
			)
		}
		fmt.Fprintln(w, bySchema.Render())
	}

	for _, e := range r.Errors {
		where := e.FilePath
		if e.SheetName != "" {
			where += " [" + e.SheetName + "]"
		}
		fmt.Fprintln(w, errStyle.Render("unreadable: "+where+": "+e.Err))
	}
	fmt.Fprintln(w, dimStyle.Render("report written to "+path))
}

func renderIngestSummary(w io.Writer, s *service.IngestSummary) {
	fmt.Fprintln(w, titleStyle.Render("Ingest ")+dimStyle.Render(s.RunID))

	t := newTable("file", "sheet", "outcome", "rows", "note")
	for _, o := range s.Sheets {
		note := ""
		switch {
		case o.Err != nil:
			note = o.Err.Error()
		case len(o.Missing) > 0:
			note = "null-filled: " + strings.Join(o.Missing, ", ")
		}
		t.Row(o.FilePath, o.SheetName, o.Outcome, strconv.Itoa(o.Rows), note)
	}
	fmt.Fprintln(w, t.Render())

	line := fmt.Sprintf("%d written, %d rejected, %d failed, %d rows",
		s.Written, s.Rejected, s.Failed, s.Rows)
	switch {
	case s.Failed > 0:
		line = errStyle.Render(line)
	case s.Rejected > 0:
		line = warnStyle.Render(line)
	default:
		line = okStyle.Render(line)
	}
	fmt.Fprintln(w, line)
}

func renderCatalogue(w io.Writer, c *domain.Catalogue) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d schemas", c.Len())))
	t := newTable("#", "schema", "columns")
	for i, s := range c.Schemas() {
		cols := strings.Join(s.Columns, ", ")
		if s.Empty() {
			cols = dimStyle.Render("(empty, never matched)")
		}
		t.Row(strconv.Itoa(i+1), s.Name, cols)
	}
	fmt.Fprintln(w, t.Render())
}

func matchedSchemas(r *domain.Report) []string {
	var names []string
	seen := map[string]bool{}
	for _, groups := range [][]domain.MatchGroup{r.Exact, r.Extended, r.Partial} {
		for _, g := range groups {
			if !seen[g.Schema] {
				seen[g.Schema] = true
				names = append(names, g.Schema)
			}
		}
	}
	return names
}

func groupSize(groups []domain.MatchGroup, schema string) int {
	for _, g := range groups {
		if g.Schema == schema {
			return len(g.Entries)
		}
	}
	return 0
}
