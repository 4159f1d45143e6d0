// Package merge reconciles pushed record events into a resident server page.
//
// [Reconcile] is a pure function over the current page, one event and the current query. It keeps
// three invariants no matter how events interleave with fetches:
//
//   - de-duplication: an identifier appears at most once in the page
//   - capacity: the page never holds more than PageSize records
//   - filter membership: only records matching [query.Matches] are ever inserted
//
// Totals move only when a record is inserted. Updates replace records in place; an update for an
// absent record that matches the query is inserted (insert-on-miss). An update that makes a
// resident record stop matching leaves it in place until the next fetch.
package merge
