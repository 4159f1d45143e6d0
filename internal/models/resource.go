package models

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Resource describes one collection of the admin API and how its list screen behaves.
type Resource struct {
	Name         string            `toml:"name"`
	Path         string            `toml:"path"`          // REST path; defaults to /<name>
	Topic        string            `toml:"topic"`         // Push room topic; empty disables live updates
	SearchFields []string          `toml:"search_fields"` // Fields matched by the search term
	DateField    string            `toml:"date_field"`    // Field compared against the date range
	TextFilters  []string          `toml:"text_filters"`  // Filters typed as free text (debounced)
	Columns      []string          `toml:"columns"`       // Columns shown by the table renderers
	Events       map[string]string `toml:"events"`        // Inbound event name to created/updated
}

// APIPath returns the REST path of the collection.
func (r Resource) APIPath() string {
	if r.Path != "" {
		return "/" + strings.TrimLeft(r.Path, "/")
	}
	return "/" + r.Name
}

// IsTextFilter reports whether a filter key is edited as free text.
func (r Resource) IsTextFilter(key string) bool {
	return slices.Contains(r.TextFilters, key)
}

// EventKinds parses the configured event bindings.
func (r Resource) EventKinds() (map[string]EventKind, error) {
	out := make(map[string]EventKind, len(r.Events))
	for _, name := range slices.Sorted(maps.Keys(r.Events)) {
		kind, err := ParseEventKind(r.Events[name])
		if err != nil {
			return nil, fmt.Errorf("resource %s, event %s: %w", r.Name, name, err)
		}
		out[name] = kind
	}
	return out, nil
}

// DisplayColumns returns the configured columns, or id and status followed by the search fields.
func (r Resource) DisplayColumns() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	cols := []string{"id"}
	for _, f := range r.SearchFields {
		if !slices.Contains(cols, f) {
			cols = append(cols, f)
		}
	}
	return append(cols, "status")
}
