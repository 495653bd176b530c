package ws

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/hostshell"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
	maxMessage   = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: localOrigin,
}

// localOrigin accepts clients without an Origin header and pages served
// from the device itself
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return u.Host == r.Host
}

// clientMessage is what a client may send
type clientMessage struct {
	Type string `json:"type"`
}

// Handler streams host events over WebSocket connections
type Handler struct {
	bus     *hostshell.Bus
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(bus *hostshell.Bus, metrics *monitoring.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{bus: bus, metrics: metrics, logger: logger}
}

// HandleConnection upgrades the request and streams events until either
// side goes away
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	subID, events := h.bus.Subscribe(ctx)
	log := h.logger.With(zap.String("subscriber", subID))
	log.Debug("Event stream opened")
	defer log.Debug("Event stream closed")

	if err := h.send(conn, map[string]any{
		"type":       "system",
		"message":    "connected",
		"subscriber": subID,
	}); err != nil {
		return
	}

	pings := make(chan struct{}, 1)
	go h.readLoop(conn, pings, cancel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-events:
			if !ok {
				h.close(conn, websocket.CloseGoingAway, "event bus closed")
				return
			}
			if err := h.send(conn, map[string]any{"type": "event", "event": e}); err != nil {
				log.Debug("Event write failed", zap.Error(err))
				return
			}
		case <-pings:
			if err := h.send(conn, map[string]any{"type": "pong"}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readLoop handles client messages. It cancels the stream once the client
// disconnects.
func (h *Handler) readLoop(conn *websocket.Conn, pings chan<- struct{}, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(maxMessage)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg clientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Handler) close(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
}
