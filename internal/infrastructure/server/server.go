package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/zomdroid/bridge/internal/api/http"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/api/middleware"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/host"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/logging"
	"github.com/GriffinCanCode/zomdroid/bridge/internal/ws"
)

// Server wraps the control API HTTP server
type Server struct {
	router  *gin.Engine
	http    *http.Server
	host    *host.Host
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer
}

// NewServer builds the control API over h. gatherer backs /metrics and may
// be nil when metrics are not registered.
func NewServer(cfg *config.Config, h *host.Host, gatherer prometheus.Gatherer) *Server {
	logger := h.Logger().Named(logging.API)
	metrics := h.Metrics()
	tracer := tracing.New("api", logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.API.RequestsPerSecond > 0 {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.API.RequestsPerSecond),
			zap.Int("burst", cfg.API.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.API.RequestsPerSecond,
			Burst:             cfg.API.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(h, metrics, logger)
	wsHandler := ws.NewHandler(h.Bus(), metrics, logger)

	router.GET("/healthz", handlers.Health)

	api := router.Group("/api")
	api.GET("/status", handlers.Status)
	api.GET("/metrics", handlers.Metrics)
	api.GET("/sessions", handlers.ListSessions)
	api.POST("/sessions/:id/stop", handlers.StopSession)
	api.GET("/sessions/:id/output", handlers.SessionOutput)
	api.GET("/layout", handlers.GetLayout)
	api.PUT("/layout", handlers.PutLayout)

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	router.GET("/ws/events", wsHandler.HandleConnection)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.API.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		host:    h,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until Shutdown
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting control API", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
// Event streams are hijacked connections and end when the host bus closes.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down control API")
	err := s.http.Shutdown(ctx)
	s.tracer.Close()
	return err
}
