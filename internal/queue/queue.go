package queue

import (
	"errors"
	"sync"
)

const (
	// MaxMessageLen is the largest message the queue admits, in bytes.
	MaxMessageLen = 4096

	// MaxQueueLen is the number of messages the queue holds at capacity.
	MaxQueueLen = 1000
)

var (
	ErrTooLarge   = errors.New("message exceeds maximum length")
	ErrFull       = errors.New("queue is at capacity")
	ErrWouldBlock = errors.New("queue is empty")
)

// Queue is a bounded FIFO of binary messages shared by all device handles.
//
// A single mutex covers the full validate-then-mutate sequence of each
// operation, so concurrent callers observe every message as fully present or
// fully absent and length changes by exactly one per successful operation.
type Queue struct {
	mu         sync.Mutex
	messages   [][]byte
	head       int
	count      int
	maxLen     int
	maxMsgSize int

	// Lifetime counters for the stats surface
	enqueued uint64
	dequeued uint64
}

// Option customizes queue construction.
type Option func(*Queue)

// WithCapacity overrides the maximum number of queued messages.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxLen = n
		}
	}
}

// WithMaxMessageLen overrides the per-message size limit.
func WithMaxMessageLen(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxMsgSize = n
		}
	}
}

// New creates an empty queue with the default limits.
func New(opts ...Option) *Queue {
	q := &Queue{
		maxLen:     MaxQueueLen,
		maxMsgSize: MaxMessageLen,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.messages = make([][]byte, q.maxLen)
	return q
}

// Enqueue validates p and appends a copy of it as one message at the tail.
//
// It returns the number of bytes accepted, which is len(p) on success. A
// zero-length p succeeds without enqueueing anything. Validation happens
// before any mutation: a rejected call leaves the queue untouched.
func (q *Queue) Enqueue(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(p) > q.maxMsgSize {
		return 0, ErrTooLarge
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == q.maxLen {
		return 0, ErrFull
	}

	msg := make([]byte, len(p))
	copy(msg, p)

	tail := (q.head + q.count) % q.maxLen
	q.messages[tail] = msg
	q.count++
	q.enqueued++

	return len(p), nil
}

// Dequeue removes and returns the oldest message.
//
// The returned bytes are the queue's own copy; ownership transfers to the
// caller. An empty queue reports ErrWouldBlock, never an end-of-stream.
func (q *Queue) Dequeue() ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil, ErrWouldBlock
	}

	msg := q.messages[q.head]
	q.messages[q.head] = nil
	q.head = (q.head + 1) % q.maxLen
	q.count--
	q.dequeued++

	return msg, nil
}

// Len returns the number of messages currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed message capacity.
func (q *Queue) Cap() int {
	return q.maxLen
}

// MaxMessage returns the per-message size limit.
func (q *Queue) MaxMessage() int {
	return q.maxMsgSize
}

// Stats is a point-in-time snapshot of queue state.
type Stats struct {
	Depth      int    `json:"depth"`
	Capacity   int    `json:"capacity"`
	MaxMessage int    `json:"max_message"`
	Enqueued   uint64 `json:"enqueued"`
	Dequeued   uint64 `json:"dequeued"`
}

// Stats returns a consistent snapshot of the queue counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Depth:      q.count,
		Capacity:   q.maxLen,
		MaxMessage: q.maxMsgSize,
		Enqueued:   q.enqueued,
		Dequeued:   q.dequeued,
	}
}

// Reset discards all queued messages. Used on device teardown.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.messages {
		q.messages[i] = nil
	}
	q.head = 0
	q.count = 0
}
