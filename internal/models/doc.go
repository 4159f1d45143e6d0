// Package models defines the data model shared by every list screen of the admin client.
//
// The package contains two categories of types:
//
// 1. Records: opaque entities returned by the admin API
//   - [Record] : decoded entity with a stable identifier and a canonical [Status]
//   - [Status] : tagged Active/Inactive representation of the isActive/status fields
//
// 2. Collection state: descriptions of what is requested and what is resident
//   - [QueryState] : immutable description of the requested page (search, filters, date range, sort, paging)
//   - [PageResult] : one page of records plus pagination metadata
//   - [LiveEvent] : a pushed Created/Updated notification carrying a full or partial [Record]
//
// Records are normalized once at the boundary ([DecodeRecord]) so that filtering,
// sorting and merging never inspect raw isActive/status values again.
package models
