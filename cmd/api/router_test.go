package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitprice/internal/calculator"
	"github.com/noah-isme/unitprice/internal/config"
	"github.com/noah-isme/unitprice/internal/health"
	"github.com/noah-isme/unitprice/internal/ratelimit"
)

func testRouter(t *testing.T, env map[string]string) http.Handler {
	t.Helper()
	cfg, err := config.LoadForTests(env)
	require.NoError(t, err)
	svc := calculator.NewService(calculator.ServiceConfig{Logger: zerolog.Nop()})
	return newRouter(routerConfig{
		Config:     cfg,
		Logger:     zerolog.Nop(),
		Calculator: calculator.NewHandler(calculator.HandlerConfig{Service: svc}),
		Limiter:    ratelimit.NewMemoryLimiter(),
		Health:     health.Handler{},
	})
}

func TestRouterCalculate(t *testing.T) {
	router := testRouter(t, map[string]string{"CALC_RATE_LIMIT_MAX": "100"})

	body := `{"baseQuantity":1,"baseUnit":"kg","basePrice":42,"desiredValue":50,"desiredUnit":"g"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"amount":2.1`)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "100", rec.Header().Get("X-RateLimit-Limit"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/presets/example2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/presets/example2/calculate?format=html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "48 piece (4 dozen)")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRateLimitsCalculations(t *testing.T) {
	router := testRouter(t, map[string]string{"CALC_RATE_LIMIT_MAX": "2", "CALC_RATE_LIMIT_WINDOW": "1m"})

	url := "/api/v1/calculate?baseQty=1&baseUnit=kg&basePrice=42&desiredValue=50&desiredUnit=g"
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")

	// lookups are not limited
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/units", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	router := testRouter(t, map[string]string{"CALC_RATE_LIMIT_MAX": "2", "CALC_RATE_LIMIT_WINDOW": "1m"})

	url := "/api/v1/calculate?baseQty=1&baseUnit=kg&basePrice=42&desiredValue=50&desiredUnit=g"
	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.RemoteAddr = "198.51.100.20:5000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, send("203.0.113.1"))
	require.Equal(t, http.StatusOK, send("203.0.113.2"))
	require.Equal(t, http.StatusTooManyRequests, send("203.0.113.3"))
}

func TestRouterRateLimitKeysOnClientBehindTrustedProxy(t *testing.T) {
	router := testRouter(t, map[string]string{
		"CALC_RATE_LIMIT_MAX":    "1",
		"CALC_RATE_LIMIT_WINDOW": "1m",
		"TRUSTED_PROXIES":        "10.0.0.0/8",
	})

	url := "/api/v1/calculate?baseQty=1&baseUnit=kg&basePrice=42&desiredValue=50&desiredUnit=g"
	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		req.RemoteAddr = "10.0.0.5:5000"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusOK, send("203.0.113.1"))
	require.Equal(t, http.StatusOK, send("203.0.113.2"))
	// a prepended hop does not change the client the proxy saw
	require.Equal(t, http.StatusTooManyRequests, send("192.0.2.99, 203.0.113.1"))
}

func TestRouterBodyLimit(t *testing.T) {
	router := testRouter(t, map[string]string{"HTTP_BODY_LIMIT_BYTES": "16"})

	body := `{"baseQuantity":1,"baseUnit":"kg","basePrice":42,"desiredValue":50,"desiredUnit":"g"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/calculate", strings.NewReader(body)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
