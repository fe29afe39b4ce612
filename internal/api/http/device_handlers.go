package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/chardev/chardevd/internal/device"
	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/queue"
)

// Handlers exposes the device table over HTTP.
//
// Write and read bodies are raw octet streams so arbitrary bytes round-trip
// untouched; only control responses are JSON.
type Handlers struct {
	manager *device.Manager
	logger  *logging.Logger
}

// NewHandlers creates HTTP handlers over a device manager.
func NewHandlers(manager *device.Manager, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Handlers{
		manager: manager,
		logger:  logger,
	}
}

// RegisterRoutes wires the device endpoints onto the router.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/devices", h.ListDevices)
	r.POST("/devices", h.CreateDevice)
	r.DELETE("/devices/:name", h.RemoveDevice)
	r.POST("/devices/:name/write", h.WriteDevice)
	r.GET("/devices/:name/read", h.ReadDevice)
	r.GET("/devices/:name/stats", h.DeviceStats)
}

// ListDevices returns stats for every registered device
func (h *Handlers) ListDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"devices": h.manager.List(),
	})
}

// CreateDevice registers a new device node (mknod analog)
func (h *Handlers) CreateDevice(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	dev, err := h.manager.Register(req.Name)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, device.ErrDeviceExists) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"device":  dev.Stats(),
	})
}

// RemoveDevice tears a device down, discarding unread messages
func (h *Handlers) RemoveDevice(c *gin.Context) {
	name := c.Param("name")
	if err := h.manager.Unregister(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device":  name,
	})
}

// WriteDevice enqueues the raw request body as one message
func (h *Handlers) WriteDevice(c *gin.Context) {
	handle, err := h.manager.Open(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	defer handle.Close()

	// One extra byte so an oversize payload is detected without buffering
	// an unbounded body.
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, queue.MaxMessageLen+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "failed to read body: " + err.Error(),
		})
		return
	}

	n, err := handle.Write(body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"bytes":   n,
	})
}

// ReadDevice dequeues the oldest message and returns its raw bytes.
// An empty queue yields 204 No Content, the EAGAIN analog; it is never
// an end-of-stream.
func (h *Handlers) ReadDevice(c *gin.Context) {
	handle, err := h.manager.Open(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	defer handle.Close()

	msg, err := handle.ReadMessage()
	if err != nil {
		if errors.Is(err, queue.ErrWouldBlock) {
			c.Header("X-Chardev-Errno", errnoName(err))
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", msg)
}

// DeviceStats returns a snapshot of device and queue counters
func (h *Handlers) DeviceStats(c *gin.Context) {
	dev, ok := h.manager.Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   device.ErrDeviceNotFound.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   dev.Stats(),
	})
}

// writeError maps enqueue failures onto HTTP, preserving the EINVAL/EBUSY
// distinction the device reports.
func (h *Handlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
			"errno":   errnoName(err),
		})
	case errors.Is(err, queue.ErrFull):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   err.Error(),
			"errno":   errnoName(err),
		})
	default:
		h.logger.Error("device write failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	}
}

func errnoName(err error) string {
	return unix.ErrnoName(device.Errno(err))
}
