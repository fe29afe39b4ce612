// Package queue implements the bounded message queue backing a character device.
//
// The queue is a fixed-capacity ring of variable-length binary messages with
// strict FIFO ordering and non-blocking semantics. Every open handle of a
// device shares one queue instance; there is no per-handle buffering.
//
// Semantics:
//   - Messages are opaque byte sequences up to MaxMessageLen bytes, preserved
//     verbatim (embedded NUL bytes and invalid encodings included)
//   - Enqueue and dequeue never block: a full queue reports ErrFull, an empty
//     queue reports ErrWouldBlock
//   - A rejected enqueue never mutates the queue; admission is all-or-nothing
//   - A zero-length enqueue is a successful no-op, matching write(2) semantics
//     for a zero-length buffer
//
// Example Usage:
//
//	q := queue.New()
//	n, err := q.Enqueue([]byte("Hello, World!"))
//	msg, err := q.Dequeue()
package queue
