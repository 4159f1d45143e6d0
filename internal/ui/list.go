package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/desertthunder/hsx/internal/formatter"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
	tbl "github.com/desertthunder/hsx/internal/table"
)

const (
	checkWidth     = 3
	minColumnWidth = 6
	maxColumnWidth = 32
)

// buildColumns sizes one column per field to its widest cell, plus a leading selection column.
func buildColumns(fields []string, page models.PageResult) []table.Column {
	cols := make([]table.Column, 0, len(fields)+1)
	cols = append(cols, table.Column{Title: "", Width: checkWidth})
	for _, f := range fields {
		w := len(f)
		for _, r := range page.Items {
			w = max(w, len([]rune(formatter.Cell(r, f))))
		}
		cols = append(cols, table.Column{Title: f, Width: min(max(w, minColumnWidth), maxColumnWidth)})
	}
	return cols
}

// buildRows renders the resident page, marking selected records.
func buildRows(fields []string, page models.PageResult, sel *tbl.Selection) []table.Row {
	rows := make([]table.Row, len(page.Items))
	for i, r := range page.Items {
		row := make(table.Row, 0, len(fields)+1)
		mark := "[ ]"
		if sel != nil && sel.Has(r.ID) {
			mark = "[x]"
		}
		row = append(row, mark)
		for _, f := range fields {
			row = append(row, formatter.Cell(r, f))
		}
		rows[i] = row
	}
	return rows
}

// describeQuery renders the active search, filters, date range and sort on one line.
func describeQuery(q models.QueryState) string {
	var parts []string
	if q.Search != "" {
		parts = append(parts, fmt.Sprintf("search %q", q.Search))
	}

	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, q.Filters[k]))
	}

	if d := q.DateRange; d != nil && !d.IsZero() {
		parts = append(parts, "dates "+formatRange(*d))
	}
	if s := q.Sort; s != nil && s.Key != "" {
		parts = append(parts, fmt.Sprintf("sort %s %s", s.Key, s.Direction))
	}

	if len(parts) == 0 {
		return "no filters"
	}
	return strings.Join(parts, " · ")
}

func formatRange(d models.DateRange) string {
	var start, end string
	if !d.Start.IsZero() {
		start = d.Start.Format("2006-01-02")
	}
	if !d.End.IsZero() {
		end = d.End.Format("2006-01-02")
	}
	return start + ".." + end
}

// parseFilter splits "key=value" input. An empty value clears the filter.
func parseFilter(input string) (key, value string, err error) {
	key, value, ok := strings.Cut(input, "=")
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: expected key=value, got %q", shared.ErrInvalidInput, input)
	}
	return key, value, nil
}

// parseDates reads "start..end" input; either side may be empty and blank input clears the range.
func parseDates(input string) (*models.DateRange, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}
	start, end, ok := strings.Cut(input, "..")
	if !ok {
		end = start
	}
	return models.ParseDateRange(start, end)
}
