// Package app provides the main application struct for centralized dependency management
// and lifecycle control of the AI agents server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"aiagents/config"
	"aiagents/internal/decorators"
	"aiagents/internal/modeldata"
	"aiagents/internal/observability"
	"aiagents/internal/server"
	"aiagents/internal/service"
	"aiagents/internal/version"
)

// App represents the main application with all its dependencies.
// It provides centralized lifecycle management for all components.
type App struct {
	config  *config.Config
	logger  *slog.Logger
	catalog *modeldata.Catalog
	service *service.AIService
	server  *server.Server

	shutdownMu sync.Mutex
	shutdown   bool
}

// Config holds the configuration options for creating an App.
type Config struct {
	// AppConfig holds the loaded application configuration.
	AppConfig *config.Config

	// Logger receives application and request logs (default: slog.Default()).
	Logger *slog.Logger

	// Registry receives the operation metrics and backs the metrics endpoint.
	// Nil uses the Prometheus default registry.
	Registry *prometheus.Registry
}

// New creates a new App with all dependencies initialized.
// The caller must call Shutdown to release resources.
func New(cfg Config) (*App, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("app config is required")
	}
	appCfg := cfg.AppConfig

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := modeldata.Embedded()
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		registerer, gatherer = cfg.Registry, cfg.Registry
	}

	svcCfg := service.DefaultConfig()
	svcCfg.Retry = decorators.RetryPolicy{
		MaxAttempts: appCfg.Service.RetryMaxAttempts,
		Delay:       appCfg.Service.RetryDelay,
	}
	svcCfg.ModelInfoTTL = appCfg.Service.ModelInfoCacheTTL
	svcCfg.SimulateLatency = appCfg.Service.SimulateLatency
	svcCfg.Logger = logger
	if appCfg.Metrics.Enabled {
		svcCfg.Hooks = observability.NewPrometheusHooks(registerer)
	}

	app := &App{
		config:  appCfg,
		logger:  logger,
		catalog: catalog,
		service: service.New(catalog, svcCfg),
	}

	app.server = server.New(app.service, &server.Config{
		Logger:            logger,
		MetricsEnabled:    appCfg.Metrics.Enabled,
		MetricsEndpoint:   appCfg.Metrics.Endpoint,
		MetricsGatherer:   gatherer,
		BodySizeLimit:     appCfg.HTTP.BodySizeLimit,
		RequireChatAPIKey: appCfg.HTTP.RequireChatAPIKey,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: appCfg.HTTP.RateLimitRPS,
			Burst:             appCfg.HTTP.RateLimitBurst,
		},
		Version: version.Version,
	})

	app.logStartupInfo()
	return app, nil
}

// Service returns the AI service.
func (a *App) Service() *service.AIService {
	return a.service
}

// Handler returns the HTTP handler serving every route.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server on the given address.
// This is a blocking call that returns when the server stops.
func (a *App) Start(addr string) error {
	if a.server == nil {
		return fmt.Errorf("server is not initialized")
	}
	a.logger.Info("starting server", "address", addr)
	if err := a.server.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			a.logger.Info("server stopped gracefully")
			return nil
		}
		return fmt.Errorf("server failed to start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, honoring the passed context
// timeout/cancellation.
//
// Shutdown is idempotent and safe for repeated calls; after the first call, subsequent calls are no-ops.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownMu.Lock()
	if a.shutdown {
		a.shutdownMu.Unlock()
		return nil
	}
	a.shutdown = true
	a.shutdownMu.Unlock()

	a.logger.Info("shutting down application...")

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Error("server shutdown error", "error", err)
			return fmt.Errorf("server shutdown: %w", err)
		}
	}

	stats := a.service.ModelInfoCacheStats()
	a.logger.Info("application shutdown complete",
		"model_info_cache_entries", stats.Entries,
		"model_info_cache_hits", stats.Hits,
		"model_info_cache_misses", stats.Misses,
	)
	return nil
}

// logStartupInfo logs the application configuration on startup.
func (a *App) logStartupInfo() {
	cfg := a.config

	a.logger.Info("model catalog loaded", "models", a.catalog.IDs())

	if cfg.Metrics.Enabled {
		a.logger.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		a.logger.Info("prometheus metrics disabled")
	}

	if cfg.HTTP.RateLimitRPS > 0 {
		a.logger.Info("rate limiting enabled", "rps", cfg.HTTP.RateLimitRPS, "burst", cfg.HTTP.RateLimitBurst)
	}

	if !cfg.HTTP.RequireChatAPIKey {
		a.logger.Warn("chat requests without X-API-Key run as the anonymous caller",
			"recommendation", "set CHAT_REQUIRE_API_KEY=true to reject them")
	}

	a.logger.Info("service configured",
		"retry_max_attempts", cfg.Service.RetryMaxAttempts,
		"retry_delay", cfg.Service.RetryDelay,
		"model_info_cache_ttl", cfg.Service.ModelInfoCacheTTL,
		"simulate_latency", cfg.Service.SimulateLatency,
	)
}
