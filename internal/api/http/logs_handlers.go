package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
	"github.com/gin-gonic/gin"
)

const (
	defaultOutputLines = 100
	maxOutputLines     = 2000
)

// SessionOutput returns the last lines of a session's console output.
// ?lines=N picks how many, capped at maxOutputLines.
func (h *Handlers) SessionOutput(c *gin.Context) {
	sessionID := c.Param("id")
	if !id.IsValid(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	n := defaultOutputLines
	if v := c.Query("lines"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lines must be a positive integer"})
			return
		}
		n = min(parsed, maxOutputLines)
	}

	out, err := h.backend.SessionOutput(sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, runtime.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", tail(out, n))
}

// tail returns the last n lines of out
func tail(out []byte, n int) []byte {
	out = bytes.TrimRight(out, "\n")
	if len(out) == 0 {
		return nil
	}
	lines := bytes.Split(out, []byte("\n"))
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return append(bytes.Join(lines, []byte("\n")), '\n')
}
