// Package query evaluates a [models.QueryState] against individual records.
//
// [Matches] is the filter predicate shared by the client-side table engine, the live merge
// engine and the sandbox backend. It is a pure function of the record, the query snapshot and
// the static per-resource [Fields], so it can be re-evaluated safely whenever an event arrives.
//
// # Matching rules
//
//   - Search: fold-case substring over the configured search fields; any field may match.
//   - Filters: fold-case substring per field, except status/isActive which compare the
//     canonical [models.Status] (free-text labels that name no state must match exactly).
//   - Date range: inclusive bounds over the configured date field (createdAt by default).
//
// [Compare] provides the natural ordering used for single-key sorting.
package query
