package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func TestCORS(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{
			name:           "local origin",
			method:         "GET",
			origin:         "http://localhost",
			wantStatus:     http.StatusOK,
			wantCORSHeader: true,
		},
		{
			name:           "preflight",
			method:         "OPTIONS",
			origin:         "http://127.0.0.1",
			wantStatus:     http.StatusNoContent,
			wantCORSHeader: true,
		},
		{
			name:           "foreign origin",
			method:         "GET",
			origin:         "https://evil.test",
			wantStatus:     http.StatusForbidden,
			wantCORSHeader: false,
		},
		{
			name:           "no origin header",
			method:         "GET",
			wantStatus:     http.StatusOK,
			wantCORSHeader: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == "OPTIONS" {
				req.Header.Set("Access-Control-Request-Method", "GET")
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.NotContains(t, cfg.AllowOrigins, "*")
	assert.Contains(t, cfg.AllowMethods, "PUT")
	assert.Contains(t, cfg.AllowHeaders, "X-Trace-ID")
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func serve(router *gin.Engine, remote string) int {
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(router, "192.168.1.1:1234"), "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "192.168.1.1:1234"))
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, serve(router, "192.168.1.1:1234"))
	assert.Equal(t, http.StatusOK, serve(router, "192.168.1.2:1234"))
	assert.Equal(t, http.StatusTooManyRequests, serve(router, "192.168.1.1:1234"))
}

func TestRateLimitDisabled(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{}))
	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, serve(router, "192.168.1.1:1234"))
	}
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter(RateLimit(DefaultRateLimitConfig()))
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}
}
