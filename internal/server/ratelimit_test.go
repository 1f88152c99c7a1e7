package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func rateLimitedCall(srv *Server, remoteAddr, key string) int {
	req := httptest.NewRequest(http.MethodGet, "/models", nil)
	req.RemoteAddr = remoteAddr
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitMiddleware(t *testing.T) {
	srv := newTestServer(t, &Config{RateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}})

	assert.Equal(t, http.StatusOK, rateLimitedCall(srv, "10.0.0.1:4000", ""))
	assert.Equal(t, http.StatusOK, rateLimitedCall(srv, "10.0.0.1:4001", ""))
	assert.Equal(t, http.StatusTooManyRequests, rateLimitedCall(srv, "10.0.0.1:4002", ""))

	// Budgets are per client IP.
	assert.Equal(t, http.StatusOK, rateLimitedCall(srv, "10.0.0.2:4000", ""))
}

func TestRateLimitMiddleware_RotatingKeysShareBudget(t *testing.T) {
	srv := newTestServer(t, &Config{RateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}})

	var codes []int
	for i := 0; i < 4; i++ {
		key := fmt.Sprintf("sk-rotating-key-%04d-0123456789", i)
		codes = append(codes, rateLimitedCall(srv, "10.0.0.9:5000", key))
	}

	assert.Equal(t, []int{
		http.StatusOK, http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}, codes)
}

func TestRateLimitMiddleware_IgnoresForwardingHeaders(t *testing.T) {
	srv := newTestServer(t, &Config{RateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}})

	call := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/models", nil)
		req.RemoteAddr = "10.0.0.3:6000"
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("203.0.113.2"))
}

func TestRateLimitMiddleware_ResponseBody(t *testing.T) {
	srv := newTestServer(t, &Config{RateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, APIPrefix+"/models", nil))
		if i == 1 {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, rec))
		}
	}
}

func TestRateLimitMiddleware_PublicRoutesUnaffected(t *testing.T) {
	srv := newTestServer(t, &Config{RateLimit: RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}})

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientLimiters_DefaultBurst(t *testing.T) {
	l := newClientLimiters(1, 0)
	assert.Equal(t, DefaultRateLimitBurst, l.get("a").Burst())
	assert.Same(t, l.get("a"), l.get("a"))
}

func TestClientLimiters_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newClientLimiters(1, 1)
	l.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		l.get(fmt.Sprintf("10.1.0.%d", i))
	}
	assert.Equal(t, 100, l.size())

	now = now.Add(5 * time.Minute)
	l.get("10.2.0.1")
	assert.Equal(t, 101, l.size(), "clients seen within the idle window are kept")

	now = now.Add(limiterIdleTTL)
	l.get("10.2.0.2")
	assert.Equal(t, 1, l.size())
}
