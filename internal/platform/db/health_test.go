package db

import (
	"errors"
	"net/http"
	"testing"
)

func TestBuildHealthReport_Healthy(t *testing.T) {
	stats := PoolStats{TotalConns: 8, IdleConns: 6, AcquiredConns: 2, MaxConns: 20}

	code, report := buildHealthReport(nil, stats)

	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if report.Status != "healthy" {
		t.Errorf("expected healthy status, got %q", report.Status)
	}
	if report.Error != "" {
		t.Errorf("expected no error field, got %q", report.Error)
	}
	if report.Pool.TotalConns != 8 {
		t.Errorf("pool stats not carried through: %+v", report.Pool)
	}
}

func TestBuildHealthReport_PingFailure(t *testing.T) {
	code, report := buildHealthReport(errors.New("connection refused"), PoolStats{})

	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if report.Status != "unhealthy" {
		t.Errorf("expected unhealthy status, got %q", report.Status)
	}
	if report.Error != "connection refused" {
		t.Errorf("expected ping error in body, got %q", report.Error)
	}
}
