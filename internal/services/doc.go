// Package services implements the admin REST API client behind the [Fetcher] and [Actor] interfaces.
//
// # Fetching
//
// [APIService.FetchPage] encodes a [models.QueryState] as query parameters and decodes the
// {success, data, pagination} envelope into a [models.PageResult]. Records are normalized on
// decode (identifier, canonical status, creation time).
//
// The fetcher is stateless. Ordering of concurrent requests is the caller's concern: the list
// controller in tasks tags each request with a generation and drops stale completions.
//
// # Authentication
//
// [NewHTTPClient] wraps a static API token in an [oauth2.StaticTokenSource] so every request
// carries an Authorization header. [AuthHeader] produces the same header for the websocket dialer.
//
// # Error Handling
//
// Failures are split by where they happened:
//   - [*NetworkError] : no HTTP response (refused, timed out, body read failed); wraps [shared.ErrNetwork]
//   - [*ServerError] : non-2xx status or success=false; Message is the server text verbatim and wraps [shared.ErrServer]
package services
