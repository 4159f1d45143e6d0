package models

// PageResult is one page of a server-paginated collection.
//
// Invariants: len(Items) <= PageSize, Total >= len(Items), TotalPages = ceil(Total/PageSize).
type PageResult struct {
	Items      []Record
	Total      int
	Page       int
	PageSize   int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// NewPageResult builds a page and derives the pagination metadata.
func NewPageResult(items []Record, total, page, pageSize int) PageResult {
	return PageResult{Items: items, Total: total, Page: page, PageSize: pageSize}.Normalize()
}

// EmptyPage is the page shown before the first fetch and after a transport failure.
func EmptyPage(q QueryState) PageResult {
	return NewPageResult(nil, 0, q.Page, q.PageSize)
}

// TotalPages returns ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// Normalize enforces the page invariants and recomputes the derived fields.
func (p PageResult) Normalize() PageResult {
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	p.Page = max(p.Page, 1)
	if len(p.Items) > p.PageSize {
		p.Items = p.Items[:p.PageSize]
	}
	p.Total = max(p.Total, len(p.Items))
	p.TotalPages = TotalPages(p.Total, p.PageSize)
	p.HasNext = p.Page < p.TotalPages
	p.HasPrev = p.Page > 1
	return p
}

// IDs returns the identifiers of the resident records in order.
func (p PageResult) IDs() []string {
	ids := make([]string, len(p.Items))
	for i, r := range p.Items {
		ids[i] = r.ID
	}
	return ids
}

// IndexOf returns the position of the record with the given id, or -1.
func (p PageResult) IndexOf(id string) int {
	for i, r := range p.Items {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// SameIDs reports whether two pages hold the same identifier set.
func (p PageResult) SameIDs(o PageResult) bool {
	if len(p.Items) != len(o.Items) {
		return false
	}
	seen := make(map[string]struct{}, len(p.Items))
	for _, r := range p.Items {
		seen[r.ID] = struct{}{}
	}
	for _, r := range o.Items {
		if _, ok := seen[r.ID]; !ok {
			return false
		}
	}
	return true
}
