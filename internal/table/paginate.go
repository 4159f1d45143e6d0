package table

// Paginate returns items[(page-1)*size : page*size].
//
// Pages past the end yield an empty slice; pages below 1 are treated as the first page.
func Paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		return []T{}
	}
	page = max(page, 1)

	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

// ClampPage limits a page number to [1, totalPages]. An empty collection has one (empty) page.
func ClampPage(page, totalPages int) int {
	totalPages = max(totalPages, 1)
	return min(max(page, 1), totalPages)
}
