package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/api/internal/config"
	"github.com/medbook/api/internal/platform/db"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:            "test",
		JWTSecret:      strings.Repeat("s", 32),
		JWTTTL:         time.Hour,
		CORSOrigins:    []string{"http://localhost:5173"},
		RateLimitRPS:   5,
		RateLimitBurst: 10,
		RequestTimeout: 5 * time.Second,
		OpenAIModel:    "gpt-3.5-turbo",
	}
}

// newTestApp wires the router without a database. Only routes that never
// reach a repository can be exercised.
func newTestApp() *app {
	return newApp(testConfig(), zerolog.Nop(), nil)
}

func serve(a *app, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router().ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health(t *testing.T) {
	rec := serve(newTestApp(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestRouter_Metrics(t *testing.T) {
	a := newTestApp()
	serve(a, httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Error("expected request counter in exposition")
	}
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	a := newTestApp()
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/appointments/my"},
		{http.MethodPost, "/api/appointments/book"},
		{http.MethodGet, "/api/appointments/available-slots"},
		{http.MethodGet, "/api/admin/analytics"},
	} {
		rec := serve(a, httptest.NewRequest(r.method, r.path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", r.method, r.path, rec.Code)
		}
	}
}

func TestRouter_AdminRoutesNeedAdminRole(t *testing.T) {
	a := newTestApp()
	token, err := a.issuer.Issue(uuid.New(), "doctor", "House")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/analytics", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	if rec := serve(a, req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestRouter_RecommendIsPublic(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/ai/recommend-doctor/", strings.NewReader(`{"symptoms":"skin rash"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(newTestApp(), req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"method":"rule-based"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestPrintStatus(t *testing.T) {
	applied := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	printStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "init", Applied: true, AppliedAt: &applied},
		{Version: 2, Name: "indexes"},
	})
	out := buf.String()
	if !strings.Contains(out, "applied    2030-01-02 03:04:05") {
		t.Errorf("expected applied row, got:\n%s", out)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("expected pending row, got:\n%s", out)
	}
}

func TestNewLogger_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", &buf)
	logger.Info().Msg("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
