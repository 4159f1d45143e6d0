// package formatter renders pages of records as tables, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/shared"
)

// Format names an output encoding.
type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the supported formats in help order.
var Formats = []Format{FormatTable, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat resolves a format name or file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "table", "text", "txt":
		return FormatTable, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
}

// Cell renders one field of a record for display.
//
// Timestamps are shortened to minutes; nested objects render by name.
func Cell(r models.Record, column string) string {
	if t, ok := r.Value(column).(time.Time); ok {
		return t.Format("2006-01-02 15:04")
	}
	return r.Text(column)
}

// Summary describes the position of a page, e.g. "page 2 of 3, 25 records".
func Summary(page models.PageResult) string {
	return fmt.Sprintf("page %d of %d, %d records", max(page.Page, 1), max(page.TotalPages, 1), page.Total)
}

// ExportToCSV writes a header row with the columns followed by one row per record
func ExportToCSV(records []models.Record, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = r.Text(c)
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a titled Markdown table with the page position underneath the heading
func ExportToMarkdown(title string, page models.PageResult, columns []string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Showing**: %s\n\n", Summary(page))

	if len(page.Items) == 0 {
		buf.WriteString("_No records._\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	buf.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, r := range page.Items {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = escapeMarkdown(Cell(r, c))
		}
		buf.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}

	return buf.Bytes(), nil
}

// ExportToText renders a bordered terminal table followed by the page position
func ExportToText(page models.PageResult, columns []string) ([]byte, error) {
	rows := make([][]string, len(page.Items))
	for i, r := range page.Items {
		rows[i] = make([]string, len(columns))
		for j, c := range columns {
			rows[i][j] = Cell(r, c)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(columns...).
		Rows(rows...)

	var buf bytes.Buffer
	buf.WriteString(t.Render())
	buf.WriteString("\n" + Summary(page) + "\n")
	return buf.Bytes(), nil
}

type jsonPage struct {
	Data       []models.Record `json:"data"`
	Pagination jsonPagination  `json:"pagination"`
}

type jsonPagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// ExportToJSON encodes the page in the admin API's list shape
func ExportToJSON(page models.PageResult, pretty bool) ([]byte, error) {
	items := page.Items
	if items == nil {
		items = []models.Record{}
	}
	v := jsonPage{
		Data: items,
		Pagination: jsonPagination{
			Page:        page.Page,
			Limit:       page.PageSize,
			Total:       page.Total,
			TotalPages:  page.TotalPages,
			HasNextPage: page.HasNext,
			HasPrevPage: page.HasPrev,
		},
	}

	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// Render encodes a page in the given format.
func Render(format Format, title string, page models.PageResult, columns []string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(page.Items, columns)
	case FormatMarkdown:
		return ExportToMarkdown(title, page, columns)
	case FormatJSON:
		data, err := ExportToJSON(page, true)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return ExportToText(page, columns)
	}
}

// Write renders a page to w.
func Write(w io.Writer, format Format, title string, page models.PageResult, columns []string) error {
	data, err := Render(format, title, page, columns)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteExport renders a page into a file, creating parent directories as needed.
//
// The format defaults to the file's extension when empty.
func WriteExport(path string, format Format, title string, page models.PageResult, columns []string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if format == "" {
		f, err := ParseFormat(filepath.Ext(path))
		if err != nil {
			return "", err
		}
		format = f
	}

	data, err := Render(format, title, page, columns)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
