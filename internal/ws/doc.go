// Package ws provides WebSocket streaming against device nodes.
//
// Each connection opens one handle on a device and closes it when the socket
// goes away. The backing queue is shared, so frames written on one socket are
// readable on any other handle of the same device.
//
// Message Types (Client → Server):
//   - binary frame: write the frame payload as one message
//   - read: dequeue the oldest message
//   - stats: request a device stats snapshot
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - binary frame: one dequeued message, verbatim
//   - written: write accepted, with byte count
//   - would_block: read attempted on an empty queue
//   - stats: device stats snapshot
//   - pong: ping reply
//   - error: operation failed, with errno when the device reported one
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, logger, metrics)
//	router.GET("/devices/:name/stream", handler.HandleConnection)
package ws
