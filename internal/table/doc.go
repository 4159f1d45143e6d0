// Package table implements the client-side collection engine used by every list screen.
//
// [Engine] derives a paginated [View] from records already resident in memory: it applies the
// search, column filters and date range of a [models.QueryState] through [query.Matches], sorts by a
// single key and slices the requested page last. [Table] wraps an engine with the mutable screen
// state (source records, current query and [Selection]) and enforces the navigation rules: page
// size changes return to the first page, navigation is clamped to the available pages, and the
// selection is dropped when the source identifier set changes.
//
// [Selection] is the multi-select set used for bulk operations. Select-all always acts on the
// identifiers visible on the current page, never on the whole filtered set.
package table
