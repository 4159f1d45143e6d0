// Package live implements the push channel that keeps list views current.
//
// # Connection
//
// A [ConnectionManager] owns at most one websocket connection. It is created once per process
// and injected into every view; views never close it. The first [ConnectionManager.Join] or
// [ConnectionManager.Subscribe] dials the configured URL. After a drop the manager reconnects
// with exponential backoff (cenkalti/backoff) between MinBackoff and MaxBackoff.
//
// Events emitted by the server while the connection is down are lost. Views recover by
// refetching, not by replay.
//
// # Wire Format
//
// Every message is a JSON [Frame] {"event": name, "data": payload}. Clients send
// join-<topic>-room and leave-<topic>-room; the server pushes [EventNewActivity],
// [EventCustomerStatusUpdate] and [EventCustomerUpdate].
//
// # Rooms
//
// Joins are reference counted per topic. Joins requested while disconnected are recorded and
// sent on every transition to [Connected], so a reconnect restores membership.
//
// # Ordering
//
// A single reader goroutine dispatches frames in arrival order. Handlers run on that goroutine
// and are expected to hand work off (the list controller posts to its event loop).
package live
