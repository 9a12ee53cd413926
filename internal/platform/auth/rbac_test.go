package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func roleContext(role string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithPrincipal(req.Context(), Principal{ID: uuid.New(), Role: role}))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := roleContext("doctor")

	err := RequireRole("doctor", "patient")(okHandler)(c)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c, _ := roleContext("patient")
	expectStatus(t, RequireRole("doctor")(okHandler)(c), http.StatusForbidden)
}

func TestRequireRole_AdminHasNoBypass(t *testing.T) {
	c, _ := roleContext("admin")
	expectStatus(t, RequireRole("patient")(okHandler)(c), http.StatusForbidden)
}

func TestRequireRole_NoPrincipal(t *testing.T) {
	c, _ := roleContext("")
	expectStatus(t, RequireRole("admin")(okHandler)(c), http.StatusForbidden)
}
