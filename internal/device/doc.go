// Package device implements character-device nodes backed by bounded message
// queues.
//
// A Device is the userspace analog of a /dev node: it owns one shared queue
// for its whole lifetime, and any number of handles may be open against it at
// once. Handles are cheap capability tokens; they carry an ID for logging but
// no private buffering, so every opener observes the same queue state.
//
// The Manager plays the role of module load/unload: it registers and removes
// named devices and resolves opens. Tearing a device down discards its unread
// messages.
//
// Handle read/write errors carry the errno a real driver would report:
//   - EINVAL: write payload exceeds the per-message limit
//   - EBUSY: queue already holds the maximum number of messages
//   - EAGAIN: read on an empty queue (never an end-of-stream)
package device
