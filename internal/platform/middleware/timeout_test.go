package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRequestTimeout_FastHandlerPasses(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients/u1/vitals/current")

	h := RequestTimeout(5 * time.Second)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("expected a deadline on the request context")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_SlowHandlerGets504(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients/u1/vitals/history")

	h := RequestTimeout(50 * time.Millisecond)(func(c echo.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return c.NoContent(http.StatusOK)
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	})

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", httpErr.Code)
	}
}

func TestRequestTimeout_ExemptsWebSocketPath(t *testing.T) {
	for _, path := range []string{"/ws", "/api/v1/ws"} {
		c, _ := newTestContext(http.MethodGet, path)

		ran := false
		h := RequestTimeout(50 * time.Millisecond)(func(c echo.Context) error {
			ran = true
			if _, ok := c.Request().Context().Deadline(); ok {
				t.Errorf("%s: websocket upgrade must not carry a deadline", path)
			}
			return c.NoContent(http.StatusOK)
		})

		if err := h(c); err != nil {
			t.Fatalf("%s: unexpected error: %v", path, err)
		}
		if !ran {
			t.Errorf("%s: handler should run", path)
		}
	}
}

func TestRequestTimeout_PropagatesHandlerError(t *testing.T) {
	c, _ := newTestContext(http.MethodGet, "/api/v1/patients/u1/alerts/a1")

	h := RequestTimeout(5 * time.Second)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "no such alert")
	})

	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}
