// Package server provides the sandbox admin backend: HTTP routing and middleware, the REST
// collections and the websocket push hub.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method patterns on an [http.ServeMux].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
//
// # Sandbox
//
// [Sandbox] serves every configured resource from a [Store] (the SQLite record repository in
// production). Listing applies the same predicate and pagination code the client uses, so the
// sandbox answers a query exactly as the engine would over the full collection.
//
// # Push Hub
//
// [Hub] accepts websocket clients on /ws. Clients send join-<topic>-room and leave-<topic>-room
// frames; the sandbox broadcasts record changes as {"event", "data"} frames to the matching room.
package server
