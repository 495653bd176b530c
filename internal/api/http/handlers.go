package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/host"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// maxLayoutBytes bounds an uploaded control layout
const maxLayoutBytes = 1 << 20

// Backend is the part of the host the control API drives
type Backend interface {
	Accepting() bool
	Status() host.Status
	ListSessions() []runtime.SessionInfo
	StopSession(ctx context.Context, sessionID string) (runtime.Status, error)
	SessionOutput(sessionID string) ([]byte, error)
	ControlLayout() *input.Layout
	ApplyLayout(l *input.Layout) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	backend Backend
	metrics *monitoring.Metrics
	tracker *HandlerMetrics
	logger  *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(backend Backend, metrics *monitoring.Metrics, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		backend: backend,
		metrics: metrics,
		tracker: NewHandlerMetrics(metrics),
		logger:  logger,
	}
}

// Health reports liveness and whether the runtime is still accepting calls
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"accepting": h.backend.Accepting(),
	})
}

// Status returns a snapshot of every subsystem
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.Status())
}

// Metrics returns the JSON metrics snapshot
func (h *Handlers) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// ListSessions lists tracked runtime sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	sessions := h.backend.ListSessions()
	if sessions == nil {
		sessions = []runtime.SessionInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// StopSession kills a runtime session and waits for it to exit
func (h *Handlers) StopSession(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	done := h.tracker.Track("stop_session")
	st, err := h.backend.StopSession(c.Request.Context(), sessionID)
	done(err)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, runtime.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Session stopped via API", zap.String("session_id", sessionID), zap.String("status", st.String()))
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"status":     st.String(),
	})
}

// GetLayout returns the active control layout, as YAML with ?format=yaml
func (h *Handlers) GetLayout(c *gin.Context) {
	l := h.backend.ControlLayout()
	if c.Query("format") != "yaml" {
		c.JSON(http.StatusOK, l)
		return
	}
	data, err := yaml.Marshal(l)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/yaml", data)
}

// PutLayout validates and applies a control layout given as JSON or YAML
func (h *Handlers) PutLayout(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxLayoutBytes))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "layout too large"})
		return
	}
	l, err := input.ParseLayout(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	done := h.tracker.Track("apply_layout")
	err = h.backend.ApplyLayout(l)
	done(err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"elements": len(l.Elements),
	})
}
