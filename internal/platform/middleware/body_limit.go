package middleware

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const defaultBodyLimit = 1 << 20

var errBodyTooLarge = echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")

// BodyLimit caps the request body size. Snapshots carrying a full ECG
// waveform window are the largest payloads this API accepts, so one limit
// covers every endpoint. Sizes read like "1M" or "512K"; a bare number is
// bytes. Requests with a declared Content-Length over the cap are rejected
// up front; the rest are enforced while the handler reads.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return errBodyTooLarge
			}
			req.Body = &cappedBody{inner: req.Body, left: maxBytes}
			return next(c)
		}
	}
}

// cappedBody fails the read once more than left bytes have been consumed.
type cappedBody struct {
	inner io.ReadCloser
	left  int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.left < 0 {
		return 0, errBodyTooLarge
	}
	// Read one byte past the cap so overflow is detectable.
	if max := b.left + 1; int64(len(p)) > max {
		p = p[:max]
	}
	n, err := b.inner.Read(p)
	b.left -= int64(n)
	if b.left < 0 {
		return 0, errBodyTooLarge
	}
	return n, err
}

func (b *cappedBody) Close() error { return b.inner.Close() }

func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return defaultBodyLimit
	}

	var mult int64 = 1
	for _, suffix := range []struct {
		text string
		mult int64
	}{
		{"GB", 1 << 30}, {"G", 1 << 30},
		{"MB", 1 << 20}, {"M", 1 << 20},
		{"KB", 1 << 10}, {"K", 1 << 10},
	} {
		if rest, ok := strings.CutSuffix(s, suffix.text); ok {
			s, mult = rest, suffix.mult
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return defaultBodyLimit
	}
	return n * mult
}
