package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	placeholderPattern  = regexp.MustCompile(`^Unnamed`)
	numericRangePattern = regexp.MustCompile(`^\d+\.\d+-\d+\.\d+$`)
)

// IsPlaceholder reports whether a column label is an anonymous header such as
// "Unnamed: 3".
func IsPlaceholder(label string) bool {
	return placeholderPattern.MatchString(label)
}

// IsNumericRange reports whether a column label looks like "1.1-2.1".
func IsNumericRange(label string) bool {
	return numericRangePattern.MatchString(label)
}

// FilterColumns removes placeholder columns and the numeric-range labels that
// directly follow them. A numeric range after a genuine column is kept.
//
// The filter is single pass and only remembers whether the last kept-or-skipped
// label was a placeholder.
func FilterColumns(columns []string) []string {
	filtered := make([]string, 0, len(columns))
	afterPlaceholder := false

	for _, col := range columns {
		switch {
		case IsPlaceholder(col):
			afterPlaceholder = true
		case afterPlaceholder && IsNumericRange(col):
			// sub-range label of the preceding placeholder
		default:
			afterPlaceholder = false
			filtered = append(filtered, col)
		}
	}
	return filtered
}

// FilterLabels coerces arbitrary header values to text and filters them.
func FilterLabels(labels []any) []string {
	columns := make([]string, len(labels))
	for i, l := range labels {
		if l == nil {
			continue
		}
		columns[i] = fmt.Sprint(l)
	}
	return FilterColumns(columns)
}

// NormalizeHeader turns a raw header row into unique column labels of the
// given width. Blank cells become "Unnamed: <i>" and repeated labels get
// ".1", ".2" suffixes, so placeholder columns are recognisable by
// FilterColumns.
func NormalizeHeader(header []string, width int) []string {
	labels := make([]string, width)
	seen := make(map[string]int, width)
	for i := range width {
		label := ""
		if i < len(header) {
			label = strings.TrimSpace(header[i])
		}
		if label == "" {
			label = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[label]; dup {
			seen[label] = n + 1
			label = label + "." + strconv.Itoa(n+1)
		} else {
			seen[label] = 0
		}
		labels[i] = label
	}
	return labels
}
