// Package main is the entry point for chardevd.
//
// chardevd hosts character-device nodes backed by bounded, non-blocking
// message queues and exposes them over HTTP and WebSocket. Every opener of a
// node shares the same queue, like processes sharing /dev/chardev.
//
// The daemon provides:
//   - REST API for writing, reading, and managing device nodes
//   - WebSocket streaming of device I/O
//   - Prometheus metrics
//   - Rate limiting and graceful shutdown
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./chardevd -port 8000 -device chardev
//
//	# Development mode (colored logs, debug level)
//	./chardevd -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
