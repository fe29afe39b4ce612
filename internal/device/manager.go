package device

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/infrastructure/monitoring"
	"github.com/chardev/chardevd/internal/queue"
)

var (
	ErrDeviceExists   = errors.New("device already registered")
	ErrDeviceNotFound = errors.New("device not found")
)

// Manager owns the device table, the analog of the kernel's chrdev registry.
// Registering a device is mknod; removing it is module unload, which discards
// every unread message.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*entry
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

type entry struct {
	id     string
	device *Device
}

// NewManager creates an empty device table.
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Manager{
		devices: make(map[string]*entry),
		logger:  logger,
	}
}

// WithMetrics attaches a metrics collector, propagated to new devices.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Register creates a device node under name.
func (m *Manager) Register(name string, opts ...queue.Option) (*Device, error) {
	if name == "" {
		return nil, fmt.Errorf("device name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDeviceExists, name)
	}

	dev := New(name, m.logger, opts...)
	if m.metrics != nil {
		dev = dev.WithMetrics(m.metrics)
		m.metrics.DevicesActive.Inc()
	}
	m.devices[name] = &entry{
		id:     uuid.New().String(),
		device: dev,
	}

	m.logger.Info("device registered",
		zap.String("device", name),
		zap.Int("capacity", dev.queue.Cap()),
		zap.Int("max_message", dev.queue.MaxMessage()),
	)
	return dev, nil
}

// Unregister tears a device down and removes it from the table. All unread
// messages are discarded; open handles start failing with ErrDeviceClosed.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	e, ok := m.devices[name]
	if ok {
		delete(m.devices, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}

	e.device.teardown()
	if m.metrics != nil {
		m.metrics.DevicesActive.Dec()
	}
	return nil
}

// Get returns the device registered under name.
func (m *Manager) Get(name string) (*Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.devices[name]
	if !ok {
		return nil, false
	}
	return e.device, true
}

// Open resolves name and opens a handle against it.
func (m *Manager) Open(name string) (*Handle, error) {
	dev, ok := m.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	return dev.Open()
}

// List returns the stats of every registered device, sorted by name.
func (m *Manager) List() []Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]Stats, 0, len(m.devices))
	for _, e := range m.devices {
		stats = append(stats, e.device.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Close tears down every registered device.
func (m *Manager) Close() {
	m.mu.Lock()
	devices := m.devices
	m.devices = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range devices {
		e.device.teardown()
		if m.metrics != nil {
			m.metrics.DevicesActive.Dec()
		}
	}
}
