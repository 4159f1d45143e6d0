package query

import (
	"strconv"
	"strings"

	"github.com/desertthunder/hsx/internal/models"
	"golang.org/x/text/cases"
)

// DefaultDateField is the field compared against a date range when none is configured.
const DefaultDateField = "createdAt"

// Fields describes how the records of one resource are searched.
type Fields struct {
	Search []string // Fields matched by the free-text term; empty means every top-level field
	Date   string   // Field compared against the date range
}

// DateField returns the configured date field or [DefaultDateField].
func (f Fields) DateField() string {
	if f.Date == "" {
		return DefaultDateField
	}
	return f.Date
}

// Predicate is a filter bound to one query snapshot.
type Predicate func(models.Record) bool

// For binds a query snapshot. The snapshot is copied by value; later changes to the caller's
// state do not affect the returned predicate.
func For(q models.QueryState, f Fields) Predicate {
	return func(r models.Record) bool { return Matches(r, q, f) }
}

// Matches reports whether a record is visible under the query's search, filters and date range.
// Sorting and pagination do not affect membership.
func Matches(r models.Record, q models.QueryState, f Fields) bool {
	return MatchSearch(r, q.Search, f.Search) &&
		MatchFilters(r, q.Filters) &&
		MatchDate(r, q.DateRange, f.DateField())
}

// MatchSearch reports whether any of the fields contains the term.
func MatchSearch(r models.Record, term string, fields []string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	needle := Fold(term)

	if len(fields) == 0 {
		for k := range r.Fields {
			if strings.Contains(Fold(r.Text(k)), needle) {
				return true
			}
		}
		return false
	}

	for _, field := range fields {
		if strings.Contains(Fold(r.Text(field)), needle) {
			return true
		}
	}
	return false
}

// MatchFilters reports whether the record satisfies every column filter.
func MatchFilters(r models.Record, filters map[string]string) bool {
	for field, value := range filters {
		if !MatchFilter(r, field, value) {
			return false
		}
	}
	return true
}

// MatchFilter applies a single column filter. Empty values match everything.
func MatchFilter(r models.Record, field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	if field == "isActive" {
		if active, err := strconv.ParseBool(value); err == nil {
			return r.Status == models.StatusFromBool(active)
		}
	}
	if field == "status" || field == "isActive" {
		return MatchStatus(r, value)
	}
	return strings.Contains(Fold(r.Text(field)), Fold(value))
}

// MatchStatus reconciles a status filter value with the record's canonical state.
//
// Values naming an activity state compare the canonical [models.Status]; anything else must equal
// the record's raw status label (fold-case).
func MatchStatus(r models.Record, value string) bool {
	switch want := models.ParseStatus(value); want {
	case models.StatusActive, models.StatusInactive:
		return r.Status == want
	}
	return r.StatusLabel != "" && Fold(strings.TrimSpace(r.StatusLabel)) == Fold(value)
}

// MatchDate reports whether the record's date falls inside the range.
// Records without a date only pass when the range is unset.
func MatchDate(r models.Record, d *models.DateRange, field string) bool {
	if d == nil || d.IsZero() {
		return true
	}
	t, ok := r.Time(field)
	if !ok {
		return false
	}
	return d.Contains(t)
}

// Fold returns the case-folded form of s for caseless comparison.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// FieldsOf returns the search configuration of a resource.
func FieldsOf(r models.Resource) Fields {
	return Fields{Search: r.SearchFields, Date: r.DateField}
}
