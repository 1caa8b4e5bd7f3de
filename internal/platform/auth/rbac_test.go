package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithUser(req *http.Request, uid string, roles ...string) *http.Request {
	ctx := req.Context()
	ctx = context.WithValue(ctx, UserIDKey, uid)
	ctx = context.WithValue(ctx, UserRolesKey, roles)
	return req.WithContext(ctx)
}

func TestRequireRole_Allows(t *testing.T) {
	e := echo.New()
	req := contextWithUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1", RoleCaretaker)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireRole(RoleCaretaker)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_AdminOverride(t *testing.T) {
	e := echo.New()
	req := contextWithUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1", RoleAdmin)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireRole(RolePatient)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("expected admin to pass patient check, got %v", err)
	}
}

func TestRequireRole_Denies(t *testing.T) {
	e := echo.New()
	req := contextWithUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1", RolePatient)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequireRole(RoleCaretaker)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireSelfOrRole_Self(t *testing.T) {
	e := echo.New()
	req := contextWithUser(httptest.NewRequest(http.MethodGet, "/", nil), "patient-1", RolePatient)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patientId")
	c.SetParamValues("patient-1")

	h := RequireSelfOrRole("patientId", RoleCaretaker)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("expected self access to pass, got %v", err)
	}
}

func TestRequireSelfOrRole_OtherPatientDenied(t *testing.T) {
	e := echo.New()
	req := contextWithUser(httptest.NewRequest(http.MethodGet, "/", nil), "patient-2", RolePatient)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patientId")
	c.SetParamValues("patient-1")

	h := RequireSelfOrRole("patientId", RoleCaretaker)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-patient access, got %v", err)
	}
}

func TestRequireSelfOrRole_CaretakerAllowed(t *testing.T) {
	e := echo.New()
	req := contextWithUser(httptest.NewRequest(http.MethodGet, "/", nil), "caretaker-1", RoleCaretaker)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patientId")
	c.SetParamValues("patient-1")

	h := RequireSelfOrRole("patientId", RoleCaretaker)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("expected caretaker role to pass, got %v", err)
	}
}
