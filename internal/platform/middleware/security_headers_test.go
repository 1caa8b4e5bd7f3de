package middleware

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders_SetsFullHeaderSet(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/api/v1/patients/u1/vitals/current")

	h := SecurityHeaders()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for header, want := range securityHeaders {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("header %s: got %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("vitals responses must not be cacheable")
	}
}

func TestSecurityHeaders_PresentOnErrorResponses(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/api/v1/patients/u1/alerts")

	h := SecurityHeaders()(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("headers must be applied before the handler errors out")
	}
}
