package merge

import (
	"slices"

	"github.com/desertthunder/hsx/internal/models"
	"github.com/desertthunder/hsx/internal/query"
)

// Outcome describes what a reconciliation did to the page.
type Outcome int

const (
	Inserted  Outcome = iota // Record prepended, total incremented
	Replaced                 // Resident record updated in place
	Duplicate                // Created event for a resident id; ignored
	Filtered                 // Record does not match the query; ignored
	Invalid                  // Event without a record identifier; ignored
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	case Duplicate:
		return "duplicate"
	case Filtered:
		return "filtered"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Changed reports whether the page was modified.
func (o Outcome) Changed() bool {
	return o == Inserted || o == Replaced
}

// Reconcile applies one event to the page under the query snapshot and returns the new page.
//
// The input page is never modified.
func Reconcile(page models.PageResult, ev models.LiveEvent, q models.QueryState, fields query.Fields) (models.PageResult, Outcome) {
	rec := ev.Record
	if rec.ID == "" {
		return page, Invalid
	}

	idx := page.IndexOf(rec.ID)

	switch ev.Kind {
	case models.Updated:
		if idx >= 0 {
			items := slices.Clone(page.Items)
			items[idx] = items[idx].Merge(rec)
			page.Items = items
			return page, Replaced
		}
	default:
		if idx >= 0 {
			return page, Duplicate
		}
	}

	if !query.Matches(rec, q, fields) {
		return page, Filtered
	}
	return insert(page, rec, capacity(page, q)), Inserted
}

// insert prepends rec, drops records beyond the page size and counts the new record.
func insert(page models.PageResult, rec models.Record, size int) models.PageResult {
	items := make([]models.Record, 0, min(len(page.Items)+1, size))
	items = append(items, rec)
	for _, r := range page.Items {
		if len(items) == size {
			break
		}
		items = append(items, r)
	}

	page.Items = items
	page.Total++
	page.PageSize = size
	return page.Normalize()
}

func capacity(page models.PageResult, q models.QueryState) int {
	switch {
	case page.PageSize > 0 && q.PageSize > 0:
		return min(page.PageSize, q.PageSize)
	case q.PageSize > 0:
		return q.PageSize
	case page.PageSize > 0:
		return page.PageSize
	default:
		return models.DefaultPageSize
	}
}
