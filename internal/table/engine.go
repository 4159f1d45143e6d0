package table

import (
	"slices"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/query"
)

// View is the derived, paginated state of a table.
type View struct {
	Items      []models.Record // Records on the requested page
	Filtered   int             // Records matching search, filters and date range
	Page       int
	PageSize   int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// IDs returns the identifiers visible on the page.
func (v View) IDs() []string {
	ids := make([]string, len(v.Items))
	for i, r := range v.Items {
		ids[i] = r.ID
	}
	return ids
}

// Engine filters, sorts and paginates resident records.
type Engine struct {
	Fields query.Fields
}

// NewEngine returns an engine searching the given fields.
func NewEngine(fields query.Fields) Engine {
	return Engine{Fields: fields}
}

// Filter returns the records matching the query's search, filters and date range, in source order.
func (e Engine) Filter(records []models.Record, q models.QueryState) []models.Record {
	pred := query.For(q, e.Fields)
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a sorted copy. A nil sort keeps source order.
func (e Engine) Sort(records []models.Record, s *models.Sort) []models.Record {
	out := slices.Clone(records)
	if s == nil || s.Key == "" {
		return out
	}
	key := *s
	slices.SortStableFunc(out, func(a, b models.Record) int {
		return query.CompareField(a, b, key)
	})
	return out
}

// View applies filtering, sorting and finally pagination.
//
// The requested page is not clamped: pages past the end produce an empty view.
func (e Engine) View(records []models.Record, q models.QueryState) View {
	size := q.PageSize
	if size <= 0 {
		size = models.DefaultPageSize
	}
	page := max(q.Page, 1)

	sorted := e.Sort(e.Filter(records, q), q.Sort)
	totalPages := models.TotalPages(len(sorted), size)

	return View{
		Items:      Paginate(sorted, page, size),
		Filtered:   len(sorted),
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// Table is the stateful model behind a list screen over resident records.
type Table struct {
	engine    Engine
	source    []models.Record
	query     models.QueryState
	selection *Selection
}

// New returns an empty table.
func New(engine Engine, pageSize int) *Table {
	return &Table{
		engine:    engine,
		query:     models.NewQueryState(pageSize),
		selection: NewSelection(),
	}
}

// Source returns the resident records.
func (t *Table) Source() []models.Record { return t.source }

// Query returns the current query snapshot.
func (t *Table) Query() models.QueryState { return t.query }

// Selection returns the table's selection.
func (t *Table) Selection() *Selection { return t.selection }

// SetSource replaces the resident records.
//
// The selection is cleared when the identifier set changes (e.g. after a delete) and the current
// page is clamped to the new page count.
func (t *Table) SetSource(records []models.Record) {
	if !sameIDs(t.source, records) {
		t.selection.Clear()
	}
	t.source = records
	t.query = t.query.WithPage(ClampPage(t.query.Page, t.totalPages()))
}

// Replace swaps the resident records without touching the selection, for changes merged into
// the records already shown.
func (t *Table) Replace(records []models.Record) {
	t.source = records
	t.query = t.query.WithPage(ClampPage(t.query.Page, t.totalPages()))
}

// SetQuery replaces the whole query snapshot.
func (t *Table) SetQuery(q models.QueryState) {
	if q.PageSize <= 0 {
		q.PageSize = t.query.PageSize
	}
	t.query = q
}

// SetSearch replaces the search term and returns to the first page.
func (t *Table) SetSearch(term string) { t.query = t.query.WithSearch(term) }

// SetFilter sets a column filter and returns to the first page.
func (t *Table) SetFilter(field, value string) { t.query = t.query.WithFilter(field, value) }

// SetDateRange replaces the date range and returns to the first page.
func (t *Table) SetDateRange(d *models.DateRange) { t.query = t.query.WithDateRange(d) }

// SetSort orders by a single key.
func (t *Table) SetSort(key string, dir models.Direction) { t.query = t.query.WithSort(key, dir) }

// ToggleSort sorts ascending by a new key, or flips the direction of the current key.
func (t *Table) ToggleSort(key string) {
	dir := models.Ascending
	if s := t.query.Sort; s != nil && s.Key == key && s.Direction == models.Ascending {
		dir = models.Descending
	}
	t.SetSort(key, dir)
}

// SetPageSize changes the page size and returns to the first page.
func (t *Table) SetPageSize(size int) { t.query = t.query.WithPageSize(size) }

// SetPage navigates to a page, clamped to the available pages.
func (t *Table) SetPage(page int) {
	t.query = t.query.WithPage(ClampPage(page, t.totalPages()))
}

// Next moves to the following page when there is one.
func (t *Table) Next() { t.SetPage(t.query.Page + 1) }

// Prev moves to the preceding page when there is one.
func (t *Table) Prev() { t.SetPage(t.query.Page - 1) }

// View derives the visible page.
func (t *Table) View() View {
	return t.engine.View(t.source, t.query)
}

// ToggleRow flips the selection of one record.
func (t *Table) ToggleRow(id string) bool { return t.selection.Toggle(id) }

// ToggleAll complements the selection of the visible page.
func (t *Table) ToggleAll() { t.selection.ToggleAll(t.View().IDs()) }

func (t *Table) totalPages() int {
	return models.TotalPages(len(t.engine.Filter(t.source, t.query)), t.query.PageSize)
}

func sameIDs(a, b []models.Record) bool {
	return models.PageResult{Items: a}.SameIDs(models.PageResult{Items: b})
}
