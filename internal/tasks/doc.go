// Package tasks runs list views over server-paginated collections with live updates.
//
// # Event Loop
//
// All state of a [Collection] belongs to one goroutine. Work arriving from elsewhere (fetch
// completions, pushed events, debounce expiries, bulk results) is posted to it through a
// [Poster]. Headless commands run a [Loop]; the TUI wraps the bubbletea program's Send in a
// [PostFunc] so the program's update loop is the owner.
//
// # Fetching
//
// Every query change increments the collection's generation and issues one request. A completion
// is applied only when its generation is still current, so a slow response for an old query can
// never overwrite a newer one. Search and free-text filters wait for a quiet period
// ([DefaultDebounce]); every other change fetches immediately and resets to page 1.
//
// Failures are classified:
//   - [services.ServerError] : the server message is shown and the resident page is kept
//   - anything else : the page is replaced by an empty one with a "could not load" notice
//
// # Live Updates
//
// A mounted collection joins its resource room on the shared [Bridge] and subscribes to the
// configured events. Each event is reconciled into the resident page with [merge.Reconcile]
// against the query current at that moment. After a reconnect the page is refetched, since
// events emitted while disconnected are lost.
//
// # Bulk Actions
//
// [Collection.Bulk] sends the action for the whole selection through a [BulkRunner] (batched,
// rate limited with golang.org/x/time/rate, errors combined with multierr), then clears the
// selection and refetches the current page.
//
// # Progress Reporting
//
// The optional progress channel receives a [ProgressUpdate] for each state change. Sends use
// select with default so reporting never blocks the loop.
package tasks
