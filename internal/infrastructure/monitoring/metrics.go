package monitoring

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/chardev/chardevd/internal/queue"
)

// Write/read outcome labels.
const (
	OutcomeAccepted   = "accepted"
	OutcomeTooLarge   = "too_large"
	OutcomeBusy       = "busy"
	OutcomeOK         = "ok"
	OutcomeWouldBlock = "would_block"
	OutcomeError      = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Device metrics
	WritesTotal   *prometheus.CounterVec
	ReadsTotal    *prometheus.CounterVec
	MessageSize   *prometheus.HistogramVec
	QueueDepth    *prometheus.GaugeVec
	DevicesActive prometheus.Gauge
	HandlesActive prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chardevd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chardevd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chardevd_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{64, 256, 1024, 4096, 16384, 65536},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chardevd_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{64, 256, 1024, 4096, 16384, 65536},
			},
			[]string{"method", "path"},
		),

		// Device metrics
		WritesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chardevd_device_writes_total",
				Help: "Total number of device writes by outcome",
			},
			[]string{"device", "outcome"},
		),
		ReadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chardevd_device_reads_total",
				Help: "Total number of device reads by outcome",
			},
			[]string{"device", "outcome"},
		),
		MessageSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chardevd_device_message_size_bytes",
				Help:    "Size of accepted messages in bytes",
				Buckets: []float64{16, 64, 256, 1024, 2048, 4096},
			},
			[]string{"device"},
		),
		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chardevd_queue_depth",
				Help: "Number of messages currently queued per device",
			},
			[]string{"device"},
		),
		DevicesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chardevd_devices_active",
				Help: "Number of registered devices",
			},
		),
		HandlesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chardevd_handles_active",
				Help: "Number of open device handles",
			},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chardevd_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chardevd_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "chardevd_uptime_seconds",
				Help: "Daemon uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RecordWrite records a device write outcome and the resulting queue depth
func (m *Metrics) RecordWrite(device string, err error, depth int) {
	m.WritesTotal.WithLabelValues(device, writeOutcome(err)).Inc()
	m.QueueDepth.WithLabelValues(device).Set(float64(depth))
}

// RecordRead records a device read outcome and the resulting queue depth
func (m *Metrics) RecordRead(device string, err error, depth int) {
	m.ReadsTotal.WithLabelValues(device, readOutcome(err)).Inc()
	m.QueueDepth.WithLabelValues(device).Set(float64(depth))
}

// ObserveMessageSize records the size of an accepted message
func (m *Metrics) ObserveMessageSize(device string, size int) {
	m.MessageSize.WithLabelValues(device).Observe(float64(size))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

func writeOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeAccepted
	case errors.Is(err, queue.ErrTooLarge):
		return OutcomeTooLarge
	case errors.Is(err, queue.ErrFull):
		return OutcomeBusy
	default:
		return OutcomeError
	}
}

func readOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, queue.ErrWouldBlock):
		return OutcomeWouldBlock
	default:
		return OutcomeError
	}
}
