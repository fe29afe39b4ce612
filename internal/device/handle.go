package device

import (
	"errors"
	"sync/atomic"

	"github.com/chardev/chardevd/internal/shared/id"
)

var (
	ErrDeviceClosed = errors.New("device has been torn down")
	ErrHandleClosed = errors.New("handle is closed")
)

// Handle is an open descriptor against a device. It holds identity only; all
// data lives in the device's shared queue.
type Handle struct {
	id     id.HandleID
	device *Device
	closed atomic.Bool
}

// ID returns the handle identifier.
func (h *Handle) ID() id.HandleID { return h.id }

// Device returns the device this handle was opened against.
func (h *Handle) Device() *Device { return h.device }

// Write admits p as one message, exactly like write(2) against the node.
//
// It returns len(p) on success. Oversize payloads fail with EINVAL and a full
// queue fails with EBUSY; in both cases nothing is consumed and the queue is
// unchanged. A zero-length p returns (0, nil) without enqueueing.
func (h *Handle) Write(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrHandleClosed
	}
	if h.device.closed() {
		return 0, ErrDeviceClosed
	}
	return h.device.enqueue(p)
}

// Read fills p with the oldest queued message, exactly like read(2).
//
// Each call consumes at most one whole message; a message is never split
// across calls. If the message is longer than p the excess is dropped, as a
// driver copying min(len, msg) would. An empty queue fails with EAGAIN,
// never io.EOF.
func (h *Handle) Read(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrHandleClosed
	}
	if h.device.closed() {
		return 0, ErrDeviceClosed
	}
	msg, err := h.device.dequeue()
	if err != nil {
		return 0, err
	}
	return copy(p, msg), nil
}

// ReadMessage returns the oldest queued message without a caller buffer.
// Used by the HTTP and WebSocket surfaces where truncation makes no sense.
func (h *Handle) ReadMessage() ([]byte, error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	if h.device.closed() {
		return nil, ErrDeviceClosed
	}
	return h.device.dequeue()
}

// Close releases the handle. The shared queue is untouched; messages written
// through this handle remain readable by every other opener.
func (h *Handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return ErrHandleClosed
	}
	h.device.releaseHandle(h)
	return nil
}
