package vitals

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestGenerateECGWaveform(t *testing.T) {
	data := GenerateECGWaveform(50)
	if len(data) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(data))
	}

	// R-peaks sit well above the baseline even with noise.
	for i, v := range data {
		if i%10 == 5 {
			if v < 1.2 {
				t.Errorf("sample %d should be an R-peak, got %f", i, v)
			}
		} else if v > 1.0 {
			t.Errorf("baseline sample %d too high: %f", i, v)
		}
	}

	if got := GenerateECGWaveform(0); len(got) != waveformSamples {
		t.Errorf("zero length should default to %d samples, got %d", waveformSamples, len(got))
	}
}

func TestGenerateSnapshot_WithinRanges(t *testing.T) {
	for i := 0; i < 100; i++ {
		s := GenerateSnapshot()
		if err := s.Validate(); err != nil {
			t.Fatalf("generated snapshot invalid: %v", err)
		}
		if s.Timestamp == 0 {
			t.Fatal("generated snapshot missing timestamp")
		}
		if s.HeartRate < 60 || s.HeartRate > 100 {
			t.Errorf("heart rate out of range: %d", s.HeartRate)
		}
		if s.OxygenSaturation < 92 || s.OxygenSaturation > 100 {
			t.Errorf("oxygen saturation out of range: %d", s.OxygenSaturation)
		}
		if s.Temperature < 36.0 || s.Temperature > 37.5 {
			t.Errorf("temperature out of range: %f", s.Temperature)
		}
		if s.ECGMetrics == nil || len(s.ECGData) != waveformSamples {
			t.Error("generated snapshot missing waveform or metrics")
		}
	}
}

func TestSimulator_EmitsPerPatient(t *testing.T) {
	f := newFixture()
	sim := NewSimulator(f.svc, []string{"p1", "p2"}, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx) }()

	// The first emission happens immediately; wait for it, then stop.
	deadline := time.After(2 * time.Second)
	for {
		if f.repo.historyLen("p1") > 0 && f.repo.historyLen("p2") > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for simulated readings")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if f.repo.historyLen("p1") == 0 || f.repo.historyLen("p2") == 0 {
		t.Error("expected at least one reading per patient")
	}
}
