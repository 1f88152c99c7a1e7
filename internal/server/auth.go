package server

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"aiagents/internal/core"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-API-Key"

// apiKey returns the trimmed X-API-Key header value.
func apiKey(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(APIKeyHeader))
}

// RequireAPIKey creates an Echo middleware that rejects requests without an
// X-API-Key header. Format and revocation checks stay with the service.
func RequireAPIKey(logger *slog.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey(c) == "" {
				return handleError(c, logger, core.NewInvalidAPIKeyError("missing "+APIKeyHeader+" header", nil))
			}
			return next(c)
		}
	}
}
