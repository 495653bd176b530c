// Package ws streams host events to WebSocket clients.
//
// Every connection subscribes to the host event bus for its lifetime. A
// client that reads too slowly loses events instead of stalling the bus.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Sent once after the upgrade, carries the subscriber id
//   - event: One host event (runtime started/exited/crashed, surface bound/lost, context invalidated)
//   - pong: Reply to ping
//
// Example Usage:
//
//	handler := ws.NewHandler(h.Bus(), metrics, logger)
//	router.GET("/ws/events", handler.HandleConnection)
package ws
