package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"phpayroll/internal/domain/auth"
	"phpayroll/internal/platform/config"
	"phpayroll/internal/platform/metrics"
	audithandler "phpayroll/internal/transport/http/handlers/audit"
	holidayshandler "phpayroll/internal/transport/http/handlers/holidays"
	loanshandler "phpayroll/internal/transport/http/handlers/loans"
	payrollhandler "phpayroll/internal/transport/http/handlers/payroll"
	reportshandler "phpayroll/internal/transport/http/handlers/reports"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func testRouter(t *testing.T, ready Pinger) http.Handler {
	t.Helper()
	cfg := config.Config{
		JWTSecret:          "test-secret",
		Environment:        "test",
		MaxBodyBytes:       1 << 20,
		MaxUploadBytes:     4 << 20,
		RateLimitPerMinute: 100,
		MetricsEnabled:     true,
	}
	handlers := Handlers{
		Payroll:  payrollhandler.NewHandler(nil, nil, nil),
		Reports:  reportshandler.NewHandler(nil, nil, nil),
		Loans:    loanshandler.NewHandler(nil, nil),
		Holidays: holidayshandler.NewHandler(nil),
		Audit:    audithandler.NewHandler(nil),
	}
	return NewRouter(cfg, zap.NewNop(), metrics.New(), ready, handlers)
}

func TestHealthAndReadiness(t *testing.T) {
	router := testRouter(t, pinger{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", rec.Code)
	}

	router = testRouter(t, pinger{err: errors.New("down")})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	router := testRouter(t, pinger{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payroll/settings", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	token, err := auth.GenerateToken("other-secret", auth.Claims{UserID: "u1", OrgID: "org-1"}, time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payroll/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign token, got %d", rec.Code)
	}
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	router := testRouter(t, pinger{})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "requestsTotal") {
		t.Fatalf("expected metrics snapshot, got %s", rec.Body.String())
	}
}
