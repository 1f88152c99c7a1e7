package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aiagents/internal/core"
)

// DefaultBodySizeLimit is the maximum request body size when none is configured.
const DefaultBodySizeLimit int64 = 1 << 20

// APIPrefix is the versioned mount point mirroring the root routes.
const APIPrefix = "/api/v1"

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	Logger *slog.Logger

	MetricsEnabled  bool                // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string              // HTTP path for metrics endpoint (default: /metrics)
	MetricsGatherer prometheus.Gatherer // Source of exposed metrics (default: prometheus.DefaultGatherer)

	BodySizeLimit int64 // Max request body size in bytes (default: 1MB)

	// RequireChatAPIKey rejects POST /chat without X-API-Key. When false the
	// request runs as service.AnonymousKey.
	RequireChatAPIKey bool

	// RateLimit throttles API routes per client IP; zero RequestsPerSecond disables it.
	RateLimit RateLimitConfig

	// Version is reported by /health.
	Version string
	// SystemProbe reports host resources for /health (default: gopsutil).
	SystemProbe SystemProbe

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates a new HTTP server
func New(svc core.Service, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler(logger)
	// Client IPs come from the connection only; forwarding headers are client-controlled.
	e.IPExtractor = echo.ExtractIPDirect()
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	handler := NewHandler(svc, HandlerConfig{
		Logger:      logger,
		Version:     cfg.Version,
		SystemProbe: cfg.SystemProbe,
	})

	// Global middleware stack (order matters)
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, requestID string) {
			ctx := core.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
	}))
	e.Use(RequestLogger(logger))
	e.Use(middleware.Recover())

	bodySizeLimit := DefaultBodySizeLimit
	if cfg.BodySizeLimit > 0 {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodySizeLimit, 10)))

	// Public routes
	e.GET("/", handler.Root)
	e.GET("/health", handler.Health)
	if cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean("/" + cfg.MetricsEndpoint)
		}
		gatherer := cfg.MetricsGatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API routes, served at the root and under APIPrefix
	var apiMiddleware []echo.MiddlewareFunc
	if cfg.RateLimit.RequestsPerSecond > 0 {
		rl := cfg.RateLimit
		if rl.Logger == nil {
			rl.Logger = logger
		}
		apiMiddleware = append(apiMiddleware, RateLimitMiddleware(rl))
	}
	var chatMiddleware []echo.MiddlewareFunc
	if cfg.RequireChatAPIKey {
		chatMiddleware = append(chatMiddleware, RequireAPIKey(logger))
	}
	for _, g := range []*echo.Group{e.Group("", apiMiddleware...), e.Group(APIPrefix, apiMiddleware...)} {
		g.POST("/chat", handler.Chat, chatMiddleware...)
		g.GET("/models", handler.ListModels)
		g.GET("/models/:modelName", handler.GetModelInfo)
		g.POST("/validate-message", handler.ValidateMessage)
		g.POST("/validate-key", handler.ValidateKey)
	}

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
