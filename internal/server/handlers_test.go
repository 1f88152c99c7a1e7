package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"aiagents/internal/core"
	"aiagents/internal/service"
)

// mockService implements core.Service for testing
type mockService struct {
	response   *core.ChatResponse
	modelInfo  core.ModelInfo
	models     []core.ModelSummary
	validation core.MessageValidation
	valid      bool
	err        error

	lastRequest *core.ChatRequest
	lastKey     string
	lastModel   string
}

func (m *mockService) GenerateResponse(_ context.Context, req *core.ChatRequest, apiKey string) (*core.ChatResponse, error) {
	m.lastRequest = req
	m.lastKey = apiKey
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockService) GetModelInfo(_ context.Context, modelName string) (core.ModelInfo, error) {
	m.lastModel = modelName
	if m.err != nil {
		return core.ModelInfo{}, m.err
	}
	return m.modelInfo, nil
}

func (m *mockService) ValidateAPIAccess(_ context.Context, apiKey string) (bool, error) {
	m.lastKey = apiKey
	if m.err != nil {
		return false, m.err
	}
	return m.valid, nil
}

func (m *mockService) ListModels() []core.ModelSummary {
	return m.models
}

func (m *mockService) ValidateMessage(string) core.MessageValidation {
	return m.validation
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(svc core.Service) *Handler {
	return NewHandler(svc, HandlerConfig{
		Version: "test",
		SystemProbe: SystemProbeFunc(func(context.Context) SystemSnapshot {
			return SystemSnapshot{}
		}),
		Now: func() time.Time { return fixedNow },
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in %s", rec.Body.String())
	}
	code, _ := errBody["code"].(string)
	return code
}

func TestChat(t *testing.T) {
	mock := &mockService{
		response: &core.ChatResponse{
			Response:       "Hello!",
			ModelUsed:      "gpt-4o",
			TokensUsed:     3,
			ProcessingTime: 1.2,
			Timestamp:      fixedNow,
		},
	}

	e := echo.New()
	handler := newTestHandler(mock)

	reqBody := `{"model": "gpt-4o", "messages": [{"role": "user", "content": "  Hi there  "}]}`
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(APIKeyHeader, "sk-test-0123456789abcdef")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Chat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"model_used":"gpt-4o"`) {
		t.Errorf("response missing model_used: %s", rec.Body.String())
	}

	if mock.lastKey != "sk-test-0123456789abcdef" {
		t.Errorf("expected api key to be forwarded, got %q", mock.lastKey)
	}
	if got := mock.lastRequest.Messages[0].Content; got != "Hi there" {
		t.Errorf("expected trimmed content, got %q", got)
	}
	if mock.lastRequest.Messages[0].Timestamp != fixedNow {
		t.Errorf("expected message timestamp to be stamped")
	}
	if mock.lastRequest.Temperature == nil || *mock.lastRequest.Temperature != core.DefaultTemperature {
		t.Errorf("expected default temperature, got %v", mock.lastRequest.Temperature)
	}
}

func TestChat_AnonymousWithoutKey(t *testing.T) {
	mock := &mockService{response: &core.ChatResponse{ModelUsed: "gpt-4o"}}

	e := echo.New()
	handler := newTestHandler(mock)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Chat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if mock.lastKey != service.AnonymousKey {
		t.Errorf("expected anonymous key, got %q", mock.lastKey)
	}
}

func TestChat_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "missing model",
			body:      `{"messages":[{"role":"user","content":"hi"}]}`,
			wantField: "body -> model",
		},
		{
			name:      "empty messages",
			body:      `{"model":"gpt-4o","messages":[]}`,
			wantField: "body -> messages",
		},
		{
			name:      "blank content",
			body:      `{"model":"gpt-4o","messages":[{"role":"user","content":"   "}]}`,
			wantField: "body -> messages -> 0 -> content",
		},
		{
			name:      "content too long",
			body:      `{"model":"gpt-4o","messages":[{"role":"user","content":"` + strings.Repeat("a", 10001) + `"}]}`,
			wantField: "body -> messages -> 0 -> content",
		},
		{
			name:      "unknown role",
			body:      `{"model":"gpt-4o","messages":[{"role":"robot","content":"hi"}]}`,
			wantField: "body -> messages -> 0 -> role",
		},
		{
			name:      "temperature out of range",
			body:      `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"temperature":1.5}`,
			wantField: "body -> temperature",
		},
		{
			name:      "max_tokens out of range",
			body:      `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"max_tokens":4001}`,
			wantField: "body -> max_tokens",
		},
		{
			name:      "wrong type",
			body:      `{"model":42,"messages":[{"role":"user","content":"hi"}]}`,
			wantField: "body -> model",
		},
		{
			name:      "malformed json",
			body:      `{"model":`,
			wantField: "body",
		},
		{
			name:      "empty body",
			body:      ``,
			wantField: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockService{}
			e := echo.New()
			handler := newTestHandler(mock)

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.Chat(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d: %s", rec.Code, rec.Body.String())
			}
			if mock.lastRequest != nil {
				t.Error("service must not be called for invalid requests")
			}

			body := decodeBody(t, rec)
			errBody := body["error"].(map[string]interface{})
			if errBody["code"] != CodeValidationError {
				t.Errorf("expected code %s, got %v", CodeValidationError, errBody["code"])
			}
			details := errBody["details"].([]interface{})
			if len(details) == 0 {
				t.Fatal("expected at least one detail")
			}
			first := details[0].(map[string]interface{})
			if first["field"] != tt.wantField {
				t.Errorf("expected field %q, got %v", tt.wantField, first["field"])
			}
			if body["timestamp"] == nil {
				t.Error("expected timestamp in error envelope")
			}
		})
	}
}

func TestChat_DomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid key", core.NewInvalidAPIKeyError("", nil), http.StatusUnauthorized, "INVALID_API_KEY"},
		{"model not found", core.NewModelNotFoundError("gpt-9"), http.StatusNotFound, "MODEL_NOT_FOUND"},
		{"token limit", core.NewTokenLimitExceededError(9000, 8000), http.StatusRequestEntityTooLarge, "TOKEN_LIMIT_EXCEEDED"},
		{"rate limit", core.NewRateLimitError(""), http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			handler := newTestHandler(&mockService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler.Chat(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := errorCode(t, rec); got != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, got)
			}
		})
	}
}

func TestChat_InternalErrorIsGeneric(t *testing.T) {
	e := echo.New()
	handler := newTestHandler(&mockService{err: context.Canceled})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Chat(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(rec.Body.String(), "canceled") {
		t.Errorf("internal error details leaked: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), internalErrorMessage) {
		t.Errorf("expected generic message, got %s", rec.Body.String())
	}
}

func TestListModels(t *testing.T) {
	mock := &mockService{
		models: []core.ModelSummary{
			{Name: "gpt-4o", DisplayName: "Gpt 4o", RecommendedFor: "quick conversations and simple tasks"},
		},
	}

	e := echo.New()
	handler := newTestHandler(mock)

	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.ListModels(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}
	models := body["metadata"].(map[string]interface{})["models"].([]interface{})
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	if models[0].(map[string]interface{})["recommended_for"] != "quick conversations and simple tasks" {
		t.Errorf("unexpected model entry: %v", models[0])
	}
}

func TestValidateMessage(t *testing.T) {
	t.Run("valid content", func(t *testing.T) {
		mock := &mockService{validation: core.MessageValidation{
			IsValid: true, TokensEstimated: 2, WordCount: 2, CharacterCount: 11, Message: "message is valid",
		}}
		e := echo.New()
		handler := newTestHandler(mock)

		req := httptest.NewRequest(http.MethodPost, "/validate-message?content="+url.QueryEscape("hello world"), nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ValidateMessage(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		metadata := decodeBody(t, rec)["metadata"].(map[string]interface{})
		if metadata["is_valid"] != true || metadata["character_count"] != float64(11) {
			t.Errorf("unexpected metadata: %v", metadata)
		}
	})

	t.Run("invalid content reports error with 200", func(t *testing.T) {
		mock := &mockService{validation: core.MessageValidation{IsValid: false, Error: core.ErrEmptyContent.Error()}}
		e := echo.New()
		handler := newTestHandler(mock)

		req := httptest.NewRequest(http.MethodPost, "/validate-message?content=%20%20", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ValidateMessage(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		metadata := decodeBody(t, rec)["metadata"].(map[string]interface{})
		if metadata["is_valid"] != false || metadata["error"] != core.ErrEmptyContent.Error() {
			t.Errorf("unexpected metadata: %v", metadata)
		}
	})

	t.Run("missing content", func(t *testing.T) {
		e := echo.New()
		handler := newTestHandler(&mockService{})

		req := httptest.NewRequest(http.MethodPost, "/validate-message", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ValidateMessage(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status 422, got %d", rec.Code)
		}
	})
}

func TestGetModelInfo(t *testing.T) {
	mock := &mockService{modelInfo: core.ModelInfo{Name: "gemini-2-5-flash", MaxTokens: 32000, Status: "available"}}

	e := echo.New()
	handler := newTestHandler(mock)

	req := httptest.NewRequest(http.MethodGet, "/models/gemini", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("modelName")
	c.SetParamValues("gemini")

	if err := handler.GetModelInfo(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastModel != "gemini" {
		t.Errorf("expected model name to be forwarded, got %q", mock.lastModel)
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Errorf("expected success=true")
	}
	if body["data"].(map[string]interface{})["max_tokens"] != float64(32000) {
		t.Errorf("unexpected data: %v", body["data"])
	}
}

func TestValidateKey(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		mock := &mockService{valid: true}
		e := echo.New()
		handler := newTestHandler(mock)

		req := httptest.NewRequest(http.MethodPost, "/validate-key", nil)
		req.Header.Set(APIKeyHeader, "sk-test-0123456789abcdef")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ValidateKey(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var resp KeyValidationResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if !resp.Valid {
			t.Error("expected valid=true")
		}
		if resp.Timestamp != float64(fixedNow.Unix()) {
			t.Errorf("expected unix timestamp, got %v", resp.Timestamp)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		mock := &mockService{valid: true}
		e := echo.New()
		handler := newTestHandler(mock)

		req := httptest.NewRequest(http.MethodPost, "/validate-key", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		if err := handler.ValidateKey(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
		if mock.lastKey != "" {
			t.Error("service must not be called without a key")
		}
	})
}

func TestHealth(t *testing.T) {
	cpu := 12.5
	e := echo.New()
	handler := NewHandler(&mockService{}, HandlerConfig{
		Version: "1.2.3",
		SystemProbe: SystemProbeFunc(func(context.Context) SystemSnapshot {
			return SystemSnapshot{CPUPercent: &cpu}
		}),
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Health(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" || body["version"] != "1.2.3" {
		t.Errorf("unexpected body: %v", body)
	}
	system := body["system"].(map[string]interface{})
	if system["cpu_percent"] != 12.5 {
		t.Errorf("expected cpu_percent, got %v", system)
	}
	if _, ok := system["memory_percent"]; ok {
		t.Error("unavailable readings must be omitted")
	}
}
