package device

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/infrastructure/monitoring"
	"github.com/chardev/chardevd/internal/queue"
	"github.com/chardev/chardevd/internal/shared/id"
)

// Device is a named character-device node backed by one shared message queue.
//
// The queue lives as long as the device: opens and closes by any number of
// handles never create, drain, or duplicate it.
type Device struct {
	name    string
	queue   *queue.Queue
	created time.Time
	logger  *logging.Logger
	metrics *monitoring.Metrics

	opens  atomic.Int64 // handles opened over the device lifetime
	active atomic.Int64 // handles currently open

	mu   sync.Mutex
	dead bool
}

// New creates a device node with an empty queue.
func New(name string, logger *logging.Logger, opts ...queue.Option) *Device {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Device{
		name:    name,
		queue:   queue.New(opts...),
		created: time.Now(),
		logger:  logger,
	}
}

// WithMetrics attaches a metrics collector.
func (d *Device) WithMetrics(m *monitoring.Metrics) *Device {
	d.metrics = m
	return d
}

// Name returns the device node name.
func (d *Device) Name() string { return d.name }

// Queue exposes the backing queue to in-process collaborators (stats, ws).
func (d *Device) Queue() *queue.Queue { return d.queue }

// Open returns a new handle to the shared queue. Handles are cheap; opening
// allocates no buffering.
func (d *Device) Open() (*Handle, error) {
	d.mu.Lock()
	if d.dead {
		d.mu.Unlock()
		return nil, ErrDeviceClosed
	}
	d.mu.Unlock()

	h := &Handle{
		id:     id.NewHandleID(),
		device: d,
	}
	d.opens.Add(1)
	d.active.Add(1)
	if d.metrics != nil {
		d.metrics.HandlesActive.Inc()
	}
	d.logger.Debug("handle opened",
		zap.String("device", d.name),
		zap.String("handle", h.id.String()),
	)
	return h, nil
}

// enqueue validates and admits one message, recording the outcome.
func (d *Device) enqueue(p []byte) (int, error) {
	n, err := d.queue.Enqueue(p)
	if d.metrics != nil {
		d.metrics.RecordWrite(d.name, err, d.queue.Len())
		if err == nil && n > 0 {
			d.metrics.ObserveMessageSize(d.name, n)
		}
	}
	if err != nil {
		return 0, wrapErrno(err)
	}
	return n, nil
}

// dequeue removes the oldest message, recording the outcome.
func (d *Device) dequeue() ([]byte, error) {
	msg, err := d.queue.Dequeue()
	if d.metrics != nil {
		d.metrics.RecordRead(d.name, err, d.queue.Len())
	}
	if err != nil {
		return nil, wrapErrno(err)
	}
	return msg, nil
}

// Stats describes a device and its queue at a point in time.
type Stats struct {
	Name        string      `json:"name"`
	CreatedAt   time.Time   `json:"created_at"`
	OpensTotal  int64       `json:"opens_total"`
	OpenHandles int64       `json:"open_handles"`
	Queue       queue.Stats `json:"queue"`
}

// Stats returns a snapshot of the device counters.
func (d *Device) Stats() Stats {
	return Stats{
		Name:        d.name,
		CreatedAt:   d.created,
		OpensTotal:  d.opens.Load(),
		OpenHandles: d.active.Load(),
		Queue:       d.queue.Stats(),
	}
}

// teardown marks the device dead and discards unread messages. Existing
// handles fail with ErrDeviceClosed afterwards.
func (d *Device) teardown() {
	d.mu.Lock()
	d.dead = true
	d.mu.Unlock()
	d.queue.Reset()
	d.logger.Info("device torn down",
		zap.String("device", d.name),
		zap.Int64("handles_open", d.active.Load()),
	)
}

// closed reports whether the device has been torn down.
func (d *Device) closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dead
}

func (d *Device) releaseHandle(h *Handle) {
	d.active.Add(-1)
	if d.metrics != nil {
		d.metrics.HandlesActive.Dec()
	}
	d.logger.Debug("handle closed",
		zap.String("device", d.name),
		zap.String("handle", h.id.String()),
	)
}
