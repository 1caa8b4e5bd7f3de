package vitals

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// waveformSamples is the length of a generated ECG window.
const waveformSamples = 50

// GenerateECGWaveform produces a crude PQRST-shaped window: a baseline with
// an R-peak every tenth sample and additive noise. Demo data only; it has no
// physiological fidelity beyond looking right on a chart.
func GenerateECGWaveform(n int) []float64 {
	if n <= 0 {
		n = waveformSamples
	}
	data := make([]float64, n)
	for i := range data {
		v := 0.8
		if i%10 == 5 {
			v += 0.6
		}
		v += (rand.Float64() - 0.5) * 0.1
		data[i] = v
	}
	return data
}

// GenerateSnapshot produces a plausible random reading with every metric
// drawn from a hand-picked healthy-adjacent range.
func GenerateSnapshot() *Snapshot {
	return &Snapshot{
		Timestamp: time.Now().UnixMilli(),
		HeartRate: 60 + rand.Intn(41),
		BloodPressure: BloodPressure{
			Systolic:  100 + rand.Intn(41),
			Diastolic: 60 + rand.Intn(31),
		},
		OxygenSaturation: 92 + rand.Intn(9),
		Temperature:      36.0 + rand.Float64()*1.5,
		ECGData:          GenerateECGWaveform(waveformSamples),
		ECGMetrics: &ECGMetrics{
			HRVSDNN:       20 + rand.Float64()*50,
			HRVRMSSD:      15 + rand.Float64()*45,
			RRInterval:    600 + rand.Float64()*400,
			QRSWidth:      70 + rand.Float64()*40,
			PRInterval:    120 + rand.Float64()*80,
			QTInterval:    350 + rand.Float64()*90,
			STDeviation:   -0.5 + rand.Float64(),
			SignalQuality: 0.7 + rand.Float64()*0.3,
		},
	}
}

// Simulator feeds generated readings through the full ingest path on a
// fixed interval, standing in for a fleet of ESP32 devices during demos and
// local development.
type Simulator struct {
	svc      *Service
	patients []string
	interval time.Duration
	logger   zerolog.Logger
}

// NewSimulator creates a simulator for the given patient ids.
func NewSimulator(svc *Service, patients []string, interval time.Duration, logger zerolog.Logger) *Simulator {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Simulator{
		svc:      svc,
		patients: patients,
		interval: interval,
		logger:   logger.With().Str("component", "simulator").Logger(),
	}
}

// Run emits one reading per patient per tick until the context is
// cancelled. Each patient gets an immediate first reading so dashboards are
// not empty for a full interval.
func (s *Simulator) Run(ctx context.Context) error {
	s.logger.Info().
		Int("patients", len(s.patients)).
		Dur("interval", s.interval).
		Msg("simulator started")

	s.emit(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("simulator stopped")
			return ctx.Err()
		case <-ticker.C:
			s.emit(ctx)
		}
	}
}

func (s *Simulator) emit(ctx context.Context) {
	for _, patientID := range s.patients {
		if _, err := s.svc.RecordSnapshot(ctx, patientID, GenerateSnapshot(), ""); err != nil {
			s.logger.Error().Err(err).Str("patient_id", patientID).Msg("simulated reading failed")
		}
	}
}
