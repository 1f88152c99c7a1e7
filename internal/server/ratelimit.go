package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"aiagents/internal/core"
)

const (
	// DefaultRateLimitBurst is used when RateLimitConfig.Burst is not positive.
	DefaultRateLimitBurst = 10

	// limiterIdleTTL is how long a client's limiter survives without requests.
	limiterIdleTTL = 10 * time.Minute
)

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	Logger            *slog.Logger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one limiter per client IP. The X-API-Key header is
// not used: keys are only format-checked, so a client could rotate them to get
// a fresh bucket on every request. Idle limiters are swept on access.
type clientLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}
	return &clientLimiters{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
	}
}

func (l *clientLimiters) get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}

	entry, ok := l.limiters[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep drops limiters idle for longer than idleTTL. Callers hold mu.
func (l *clientLimiters) sweep(now time.Time) {
	for client, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= l.idleTTL {
			delete(l.limiters, client)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *clientLimiters) allow(client string) bool {
	return l.get(client).Allow()
}

// RateLimitMiddleware rejects clients that exceed their request budget with
// RATE_LIMIT_EXCEEDED (429).
func RateLimitMiddleware(cfg RateLimitConfig) echo.MiddlewareFunc {
	return rateLimitMiddleware(cfg, newClientLimiters(cfg.RequestsPerSecond, cfg.Burst))
}

func rateLimitMiddleware(cfg RateLimitConfig, limiters *clientLimiters) echo.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiters.allow(c.RealIP()) {
				ctx := c.Request().Context()
				logger.WarnContext(ctx, "rate limit exceeded",
					append(core.LogAttrs(ctx), "path", c.Request().URL.Path, "client_ip", c.RealIP())...)
				return handleError(c, logger, core.NewRateLimitError(""))
			}
			return next(c)
		}
	}
}
