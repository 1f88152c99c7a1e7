// Package server provides HTTP handlers and server setup for the AI agents API.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"aiagents/internal/core"
	"aiagents/internal/service"
)

// Envelope is the standard body of listing and validation endpoints.
type Envelope struct {
	Content   string         `json:"content"`
	Success   bool           `json:"success"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ModelInfoResponse is the body of GET /models/{modelName}.
type ModelInfoResponse struct {
	Success bool           `json:"success"`
	Data    core.ModelInfo `json:"data"`
}

// KeyValidationResponse is the body of POST /validate-key.
type KeyValidationResponse struct {
	Valid     bool    `json:"valid"`
	Message   string  `json:"message"`
	Timestamp float64 `json:"timestamp"`
}

// HandlerConfig holds the handler dependencies besides the service.
type HandlerConfig struct {
	Logger      *slog.Logger
	Version     string
	SystemProbe SystemProbe
	Now         func() time.Time
}

// Handler holds the HTTP handlers
type Handler struct {
	svc       core.Service
	logger    *slog.Logger
	version   string
	probe     SystemProbe
	validator *requestValidator
	now       func() time.Time
}

// NewHandler creates a new handler with the given service
func NewHandler(svc core.Service, cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SystemProbe == nil {
		cfg.SystemProbe = hostProbe{diskPath: "/"}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Handler{
		svc:       svc,
		logger:    cfg.Logger,
		version:   cfg.Version,
		probe:     cfg.SystemProbe,
		validator: newRequestValidator(),
		now:       cfg.Now,
	}
}

// Root handles GET /
func (h *Handler) Root(c echo.Context) error {
	h.logger.InfoContext(c.Request().Context(), "root endpoint accessed")
	return c.JSON(http.StatusOK, map[string]string{"message": "Welcome to the AI agents API!"})
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: h.now().UTC(),
		System:    h.probe.Snapshot(c.Request().Context()),
	})
}

// Chat handles POST /chat. Requests without X-API-Key run as
// service.AnonymousKey unless RequireAPIKey guards the route.
func (h *Handler) Chat(c echo.Context) error {
	key := apiKey(c)
	if key == "" {
		key = service.AnonymousKey
	}

	// Decoded directly rather than through c.Bind so type errors keep their
	// field path for the 422 details.
	var req core.ChatRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return handleError(c, h.logger, decodeError(err))
	}
	if err := h.validator.Validate(&req); err != nil {
		return handleError(c, h.logger, validationDetails("body", err))
	}
	req.Normalize(h.now())

	resp, err := h.svc.GenerateResponse(c.Request().Context(), &req, key)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ListModels handles GET /models
func (h *Handler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, Envelope{
		Content:   "Available models",
		Success:   true,
		Timestamp: h.now().UTC(),
		Metadata:  map[string]any{"models": h.svc.ListModels()},
	})
}

// ValidateMessage handles POST /validate-message?content=...
func (h *Handler) ValidateMessage(c echo.Context) error {
	content := c.QueryParam("content")
	if utf8.RuneCountInString(content) < 1 {
		return handleError(c, h.logger, newFieldError("query -> content", "ensure this value has at least 1 characters", content))
	}

	result := h.svc.ValidateMessage(content)
	envelope := Envelope{
		Content:   "Message validated successfully",
		Success:   true,
		Timestamp: h.now().UTC(),
	}
	if result.IsValid {
		envelope.Metadata = map[string]any{
			"is_valid":         true,
			"tokens_estimated": result.TokensEstimated,
			"word_count":       result.WordCount,
			"character_count":  result.CharacterCount,
			"message":          result.Message,
		}
	} else {
		h.logger.WarnContext(c.Request().Context(), "message validation failed",
			append(core.LogAttrs(c.Request().Context()), "error", result.Error)...)
		envelope.Content = "Validation error"
		envelope.Metadata = map[string]any{
			"is_valid": false,
			"error":    result.Error,
		}
	}
	return c.JSON(http.StatusOK, envelope)
}

// GetModelInfo handles GET /models/:modelName
func (h *Handler) GetModelInfo(c echo.Context) error {
	info, err := h.svc.GetModelInfo(c.Request().Context(), c.Param("modelName"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, ModelInfoResponse{Success: true, Data: info})
}

// ValidateKey handles POST /validate-key
func (h *Handler) ValidateKey(c echo.Context) error {
	key := apiKey(c)
	if key == "" {
		return handleError(c, h.logger, core.NewInvalidAPIKeyError("missing "+APIKeyHeader+" header", nil))
	}

	valid, err := h.svc.ValidateAPIAccess(c.Request().Context(), key)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, KeyValidationResponse{
		Valid:     valid,
		Message:   "API key is valid",
		Timestamp: float64(h.now().UnixNano()) / float64(time.Second),
	})
}
