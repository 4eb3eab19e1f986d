// Package server wires the HTTP surface: routes, middleware, and the
// request-response tracing bridge.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/agusmakmun/vmwebsocket/internal/cache"
	"github.com/agusmakmun/vmwebsocket/internal/config"
	"github.com/agusmakmun/vmwebsocket/internal/logging"
	"github.com/agusmakmun/vmwebsocket/internal/middleware"
	"github.com/agusmakmun/vmwebsocket/internal/monitoring"
	"github.com/agusmakmun/vmwebsocket/internal/terminal"
	"github.com/agusmakmun/vmwebsocket/internal/ws"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router   *gin.Engine
	http     *http.Server
	store    cache.Store
	sessions *terminal.Manager
	metrics  *monitoring.Metrics
	logger   *logging.Logger
}

// New assembles the server. The cache store arrives already wrapped by the
// caller, which decides whether tracing applies.
func New(cfg *config.Config, store cache.Store, logger *logging.Logger) *Server {
	return NewWithMetrics(cfg, store, logger, monitoring.NewMetrics())
}

// NewWithMetrics assembles the server around an existing metrics set. Tests
// pass metrics bound to their own registry.
func NewWithMetrics(cfg *config.Config, store cache.Store, logger *logging.Logger, metrics *monitoring.Metrics) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	sessions := terminal.NewManager(cfg.Terminal.Backend, terminal.SSHConfig{
		Hostname: cfg.Terminal.Hostname,
		Username: cfg.Terminal.Username,
		KeyPath:  cfg.Terminal.KeyPath,
		Port:     cfg.Terminal.SSHPort,
		Timeout:  cfg.Terminal.Timeout,
	})

	// The framework instrumentation opens the request span and keeps it
	// active for the request's full lifetime; TraceparentHeader reflects it
	// back to the browser.
	router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	router.Use(middleware.TraceparentHeader())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}
	router.Use(monitoring.Middleware(metrics))

	s := &Server{
		router:   router,
		store:    store,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}

	wsHandler := ws.NewHandler(sessions, metrics, logger, cfg.Terminal.Shell)

	router.GET("/", s.TerminalView)
	router.GET("/health-check/", s.HealthCheckView)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/terminal/", wsHandler.HandleConnection)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Run serves until the listener fails or Close is called.
func (s *Server) Run() error {
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close drains the HTTP server and terminates every live terminal session.
func (s *Server) Close(ctx context.Context) error {
	s.sessions.CloseAll(ctx)
	return s.http.Shutdown(ctx)
}

// Router exposes the underlying engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
