package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GriffinCanCode/zomdroid/bridge/internal/host"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/input"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/runtime"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/shared/id"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Accepting() bool     { return m.Called().Bool(0) }
func (m *mockBackend) Status() host.Status { return m.Called().Get(0).(host.Status) }
func (m *mockBackend) ListSessions() []runtime.SessionInfo {
	return m.Called().Get(0).([]runtime.SessionInfo)
}
func (m *mockBackend) StopSession(ctx context.Context, sessionID string) (runtime.Status, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(runtime.Status), args.Error(1)
}
func (m *mockBackend) SessionOutput(sessionID string) ([]byte, error) {
	args := m.Called(sessionID)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}
func (m *mockBackend) ControlLayout() *input.Layout { return m.Called().Get(0).(*input.Layout) }
func (m *mockBackend) ApplyLayout(l *input.Layout) error {
	return m.Called(l).Error(0)
}

func router(b Backend) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandlers(b, nil, nil)
	r := gin.New()
	r.POST("/sessions/:id/stop", h.StopSession)
	r.GET("/sessions/:id/output", h.SessionOutput)
	r.GET("/metrics", h.Metrics)
	return r
}

func TestStopSessionReportsStatus(t *testing.T) {
	b := new(mockBackend)
	sid := id.NewSessionID().String()
	b.On("StopSession", mock.Anything, sid).
		Return(runtime.Status{State: runtime.StateExited, Signal: "SIGKILL"}, nil)

	w := httptest.NewRecorder()
	router(b).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/"+sid+"/stop", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "stopped by SIGKILL")
	b.AssertExpectations(t)
}

func TestSessionOutputTail(t *testing.T) {
	b := new(mockBackend)
	sid := id.NewSessionID().String()
	b.On("SessionOutput", sid).Return([]byte("one\ntwo\nthree\n"), nil)
	r := router(b)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/"+sid+"/output?lines=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "two\nthree\n", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/"+sid+"/output?lines=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsWithoutCollector(t *testing.T) {
	w := httptest.NewRecorder()
	router(new(mockBackend)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "libraries_loaded")
}

func TestTail(t *testing.T) {
	assert.Nil(t, tail(nil, 3))
	assert.Equal(t, "a\n", string(tail([]byte("a"), 3)))
	assert.Equal(t, "b\nc\n", string(tail([]byte("a\nb\nc\n\n"), 2)))
}
