package models

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts asc/desc (any case); anything else is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Descending
	}
	return Ascending
}

// Sort is a single-key ordering.
type Sort struct {
	Key       string
	Direction Direction
}

// DateRange is an inclusive range over a record's creation time. Zero bounds are open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (d DateRange) IsZero() bool {
	return d.Start.IsZero() && d.End.IsZero()
}

// Contains reports whether t falls within the set bounds.
func (d DateRange) Contains(t time.Time) bool {
	if d.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !d.Start.IsZero() && t.Before(d.Start) {
		return false
	}
	if !d.End.IsZero() && t.After(d.End) {
		return false
	}
	return true
}

const dateLayout = "2006-01-02"

// ParseDateRange parses startDate/endDate parameters.
//
// Both accept RFC 3339 timestamps or plain dates; a plain end date covers the whole day.
// Returns nil when both are empty.
func ParseDateRange(start, end string) (*DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}

	var d DateRange
	if start != "" {
		t, _, err := parseBound(start)
		if err != nil {
			return nil, fmt.Errorf("invalid startDate %q: %w", start, err)
		}
		d.Start = t
	}
	if end != "" {
		t, dateOnly, err := parseBound(end)
		if err != nil {
			return nil, fmt.Errorf("invalid endDate %q: %w", end, err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		d.End = t
	}
	return &d, nil
}

func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}

// QueryState describes the requested page of a collection.
//
// Values are immutable: the With* methods return modified copies. Every change other than
// explicit page navigation resets Page to 1.
type QueryState struct {
	Search    string
	Filters   map[string]string
	DateRange *DateRange
	Sort      *Sort
	Page      int
	PageSize  int
}

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 10

// NewQueryState returns the first page with the given size.
func NewQueryState(pageSize int) QueryState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return QueryState{Page: 1, PageSize: pageSize}
}

// WithSearch replaces the free-text search term.
func (q QueryState) WithSearch(term string) QueryState {
	q.Search = term
	q.Page = 1
	return q
}

// WithFilter sets a column filter; an empty value removes it.
func (q QueryState) WithFilter(key, value string) QueryState {
	filters := maps.Clone(q.Filters)
	if filters == nil {
		filters = map[string]string{}
	}
	if value == "" {
		delete(filters, key)
	} else {
		filters[key] = value
	}
	if len(filters) == 0 {
		filters = nil
	}
	q.Filters = filters
	q.Page = 1
	return q
}

// WithDateRange replaces the date range; nil or zero clears it.
func (q QueryState) WithDateRange(d *DateRange) QueryState {
	if d != nil && d.IsZero() {
		d = nil
	}
	if d != nil {
		c := *d
		d = &c
	}
	q.DateRange = d
	q.Page = 1
	return q
}

// WithSort replaces the ordering; an empty key clears it.
func (q QueryState) WithSort(key string, dir Direction) QueryState {
	if key == "" {
		q.Sort = nil
	} else {
		q.Sort = &Sort{Key: key, Direction: dir}
	}
	q.Page = 1
	return q
}

// WithPage navigates to a page. Values below 1 become 1.
func (q QueryState) WithPage(page int) QueryState {
	q.Page = max(page, 1)
	return q
}

// WithPageSize changes the page size and returns to the first page.
func (q QueryState) WithPageSize(size int) QueryState {
	if size <= 0 {
		size = DefaultPageSize
	}
	q.PageSize = size
	q.Page = 1
	return q
}

// Equal reports whether two snapshots request the same page.
func (q QueryState) Equal(o QueryState) bool {
	if q.Search != o.Search || q.Page != o.Page || q.PageSize != o.PageSize {
		return false
	}
	if len(q.Filters) != len(o.Filters) || !maps.Equal(q.Filters, o.Filters) {
		return false
	}
	if (q.Sort == nil) != (o.Sort == nil) || (q.Sort != nil && *q.Sort != *o.Sort) {
		return false
	}
	if (q.DateRange == nil) != (o.DateRange == nil) {
		return false
	}
	if q.DateRange != nil && !(q.DateRange.Start.Equal(o.DateRange.Start) && q.DateRange.End.Equal(o.DateRange.End)) {
		return false
	}
	return true
}

// Key renders the snapshot canonically; equal states produce equal keys.
func (q QueryState) Key() string {
	return q.Values().Encode()
}

// reserved query parameters that cannot be used as filter keys
var reservedParams = []string{"page", "limit", "search", "startDate", "endDate", "sortBy", "sortOrder"}

// Values encodes the state as REST query parameters.
func (q QueryState) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(max(q.Page, 1)))
	v.Set("limit", strconv.Itoa(q.PageSize))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.DateRange != nil {
		if !q.DateRange.Start.IsZero() {
			v.Set("startDate", q.DateRange.Start.Format(time.RFC3339Nano))
		}
		if !q.DateRange.End.IsZero() {
			v.Set("endDate", q.DateRange.End.Format(time.RFC3339Nano))
		}
	}
	if q.Sort != nil {
		v.Set("sortBy", q.Sort.Key)
		v.Set("sortOrder", q.Sort.Direction.String())
	}
	for _, k := range slices.Sorted(maps.Keys(q.Filters)) {
		v.Set(k, q.Filters[k])
	}
	return v
}

// ParseQueryState decodes REST query parameters. Unknown parameters become column filters.
func ParseQueryState(v url.Values, defaultPageSize int) (QueryState, error) {
	q := NewQueryState(defaultPageSize)

	if s := v.Get("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("invalid page %q: %w", s, err)
		}
		q.Page = max(page, 1)
	}
	if s := v.Get("limit"); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil || size <= 0 {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		q.PageSize = size
	}

	q.Search = v.Get("search")

	d, err := ParseDateRange(v.Get("startDate"), v.Get("endDate"))
	if err != nil {
		return q, err
	}
	q.DateRange = d

	if key := v.Get("sortBy"); key != "" {
		q.Sort = &Sort{Key: key, Direction: ParseDirection(v.Get("sortOrder"))}
	}

	for k, vals := range v {
		if slices.Contains(reservedParams, k) || len(vals) == 0 || vals[0] == "" {
			continue
		}
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		q.Filters[k] = vals[0]
	}

	return q, nil
}
