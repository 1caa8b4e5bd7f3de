package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the pool snapshot reported by the database health endpoint.
type PoolStats struct {
	TotalConns    int32  `json:"totalConns"`
	IdleConns     int32  `json:"idleConns"`
	AcquiredConns int32  `json:"acquiredConns"`
	MaxConns      int32  `json:"maxConns"`
	AcquireCount  int64  `json:"acquireCount"`
	AcquireWait   string `json:"acquireWait"`
}

type healthReport struct {
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Pool   PoolStats `json:"pool"`
}

func snapshotStats(pool *pgxpool.Pool) PoolStats {
	st := pool.Stat()
	return PoolStats{
		TotalConns:    st.TotalConns(),
		IdleConns:     st.IdleConns(),
		AcquiredConns: st.AcquiredConns(),
		MaxConns:      st.MaxConns(),
		AcquireCount:  st.AcquireCount(),
		AcquireWait:   st.AcquireDuration().String(),
	}
}

// buildHealthReport maps a ping result and pool snapshot to the response
// body and HTTP status.
func buildHealthReport(pingErr error, stats PoolStats) (int, healthReport) {
	if pingErr != nil {
		return http.StatusServiceUnavailable, healthReport{
			Status: "unhealthy",
			Error:  pingErr.Error(),
			Pool:   stats,
		}
	}
	return http.StatusOK, healthReport{Status: "healthy", Pool: stats}
}

// HealthHandler pings the database with a short deadline and reports pool
// statistics. Mounted unauthenticated so load balancers can probe it.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		code, report := buildHealthReport(pool.Ping(ctx), snapshotStats(pool))
		return c.JSON(code, report)
	}
}
