package ws

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/chardev/chardevd/internal/device"
	"github.com/chardev/chardevd/internal/infrastructure/logging"
	"github.com/chardev/chardevd/internal/infrastructure/monitoring"
	"github.com/chardev/chardevd/internal/queue"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  queue.MaxMessageLen,
	WriteBufferSize: queue.MaxMessageLen,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS enforcement happens at the HTTP layer
	},
}

// Message is a JSON control frame exchanged with clients. Device payloads
// travel as binary frames, never inside JSON, so raw bytes survive verbatim.
type Message struct {
	Type  string `json:"type"`
	Bytes int    `json:"bytes,omitempty"`
	Errno string `json:"errno,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler manages WebSocket connections against the device table
type Handler struct {
	manager *device.Manager
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *device.Manager, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Handler{
		manager: manager,
		logger:  logger,
		metrics: metrics,
	}
}

// HandleConnection upgrades the request and services device I/O frames until
// the client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	name := c.Param("name")
	handle, err := h.manager.Open(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}
	defer handle.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	h.logger.Debug("websocket stream opened",
		zap.String("device", name),
		zap.String("handle", handle.ID().String()),
	)

	for {
		frameType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		switch frameType {
		case websocket.BinaryMessage:
			h.handleWrite(conn, handle, payload)
		case websocket.TextMessage:
			var msg Message
			if err := json.Unmarshal(payload, &msg); err != nil {
				h.sendError(conn, "malformed control frame", nil)
				continue
			}
			h.handleControl(conn, handle, msg)
		}
	}
}

func (h *Handler) handleControl(conn *websocket.Conn, handle *device.Handle, msg Message) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage("in", msg.Type)
	}

	switch msg.Type {
	case "read":
		h.handleRead(conn, handle)
	case "stats":
		h.sendStats(conn, handle.Device())
	case "ping":
		h.send(conn, Message{Type: "pong"})
	default:
		h.sendError(conn, "unknown message type", nil)
	}
}

func (h *Handler) handleWrite(conn *websocket.Conn, handle *device.Handle, payload []byte) {
	n, err := handle.Write(payload)
	if err != nil {
		h.sendError(conn, err.Error(), err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWSMessage("in", "write")
	}
	h.send(conn, Message{Type: "written", Bytes: n})
}

func (h *Handler) handleRead(conn *websocket.Conn, handle *device.Handle) {
	msg, err := handle.ReadMessage()
	if err != nil {
		if errors.Is(err, queue.ErrWouldBlock) {
			h.send(conn, Message{Type: "would_block", Errno: errnoName(err)})
			return
		}
		h.sendError(conn, err.Error(), err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", "read")
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
		h.logger.Debug("websocket write error", zap.Error(err))
	}
}

func (h *Handler) send(conn *websocket.Conn, msg Message) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", msg.Type)
	}
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug("websocket send error", zap.Error(err))
	}
}

func (h *Handler) sendStats(conn *websocket.Conn, dev *device.Device) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", "stats")
	}
	err := conn.WriteJSON(map[string]interface{}{
		"type":  "stats",
		"stats": dev.Stats(),
	})
	if err != nil {
		h.logger.Debug("websocket send error", zap.Error(err))
	}
}

func (h *Handler) sendError(conn *websocket.Conn, text string, cause error) {
	msg := Message{Type: "error", Error: text}
	if cause != nil {
		msg.Errno = errnoName(cause)
	}
	h.send(conn, msg)
}

func errnoName(err error) string {
	return unix.ErrnoName(device.Errno(err))
}
