package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper_PublicPaths(t *testing.T) {
	paths := []string{
		"/health",
		"/health/db",
		"/metrics",
		"/api/auth/register",
		"/api/auth/login",
		"/api/doctors",
		"/api/ai/recommend-doctor",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath(path)

			if !AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return true for %s", path)
			}
		})
	}
}

func TestAuthSkipper_ProtectedPaths(t *testing.T) {
	paths := []string{
		"/api/appointments/book",
		"/api/appointments/my",
		"/api/appointments/:id/cancel",
		"/api/admin/doctors",
		"/api/admin/analytics",
		"/",
		"/health/extra",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetPath(path)

			if AuthSkipper(c) {
				t.Errorf("expected AuthSkipper to return false for %s", path)
			}
		})
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/api/auth/login") {
		t.Error("expected login to be public")
	}
	if IsPublicPath("/api/admin/analytics") {
		t.Error("expected analytics to be protected")
	}
}
