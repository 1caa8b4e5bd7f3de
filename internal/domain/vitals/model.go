package vitals

import (
	"errors"
	"fmt"
)

// MaxHistory caps how many history entries a single read returns, newest
// first.
const MaxHistory = 100

// ErrNoSnapshot is returned when a patient has no current reading yet. An
// empty current slot is an expected state for new patients, not a fault.
var ErrNoSnapshot = errors.New("no current snapshot")

// ErrNoThresholds is returned by the repository when a patient has no
// threshold row; the service self-heals it with defaults.
var ErrNoThresholds = errors.New("no thresholds configured")

// BloodPressure is a systolic/diastolic pair in mmHg.
type BloodPressure struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// ECGMetrics are derived waveform metrics. Interval and width fields are in
// milliseconds, STDeviation in millivolts, SignalQuality in [0,1].
type ECGMetrics struct {
	HRVSDNN       float64 `json:"HRV_SDNN"`
	HRVRMSSD      float64 `json:"HRV_RMSSD"`
	RRInterval    float64 `json:"RR_interval"`
	QRSWidth      float64 `json:"QRS_width"`
	PRInterval    float64 `json:"PR_interval"`
	QTInterval    float64 `json:"QT_interval"`
	STDeviation   float64 `json:"ST_deviation"`
	SignalQuality float64 `json:"signal_quality"`
}

// Snapshot is one point-in-time set of vital-sign readings. Timestamp is
// milliseconds since epoch. The current slot holds the latest snapshot,
// overwritten in place; every snapshot is also appended to history.
type Snapshot struct {
	Timestamp        int64       `json:"timestamp"`
	HeartRate        int         `json:"heartRate"`
	BloodPressure    BloodPressure `json:"bloodPressure"`
	OxygenSaturation int         `json:"oxygenSaturation"`
	Temperature      float64     `json:"temperature"`
	ECGData          []float64   `json:"ecgData,omitempty"`
	ECGMetrics       *ECGMetrics `json:"ecgMetrics,omitempty"`
}

// Validate checks the snapshot invariants. The timestamp may be zero; the
// service stamps it at ingest.
func (s *Snapshot) Validate() error {
	if s.HeartRate < 0 {
		return fmt.Errorf("heart rate must be non-negative")
	}
	if s.BloodPressure.Systolic < 0 || s.BloodPressure.Diastolic < 0 {
		return fmt.Errorf("blood pressure must be non-negative")
	}
	if s.OxygenSaturation < 0 || s.OxygenSaturation > 100 {
		return fmt.Errorf("oxygen saturation must be between 0 and 100")
	}
	if m := s.ECGMetrics; m != nil {
		if m.SignalQuality < 0 || m.SignalQuality > 1 {
			return fmt.Errorf("signal quality must be between 0 and 1")
		}
		for name, v := range map[string]float64{
			"HRV_SDNN":    m.HRVSDNN,
			"HRV_RMSSD":   m.HRVRMSSD,
			"RR_interval": m.RRInterval,
			"QRS_width":   m.QRSWidth,
			"PR_interval": m.PRInterval,
			"QT_interval": m.QTInterval,
		} {
			if v < 0 {
				return fmt.Errorf("%s must be non-negative", name)
			}
		}
	}
	return nil
}

// Thresholds are per-patient configurable alerting bounds. Blood pressure
// carries a full pair for each direction.
type Thresholds struct {
	HeartRateHigh        int           `json:"heartRateHigh"`
	HeartRateLow         int           `json:"heartRateLow"`
	BloodPressureHigh    BloodPressure `json:"bloodPressureHigh"`
	BloodPressureLow     BloodPressure `json:"bloodPressureLow"`
	OxygenSaturationLow  int           `json:"oxygenSaturationLow"`
	TemperatureHigh      float64       `json:"temperatureHigh"`
	TemperatureLow       float64       `json:"temperatureLow"`
}

// DefaultThresholds are applied when a patient has no stored set yet.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HeartRateHigh:       100,
		HeartRateLow:        60,
		BloodPressureHigh:   BloodPressure{Systolic: 140, Diastolic: 90},
		BloodPressureLow:    BloodPressure{Systolic: 90, Diastolic: 60},
		OxygenSaturationLow: 92,
		TemperatureHigh:     37.8,
		TemperatureLow:      35.5,
	}
}

// Validate enforces low < high for every paired bound. This is the editing
// boundary; the store does not validate.
func (t Thresholds) Validate() error {
	if t.HeartRateLow >= t.HeartRateHigh {
		return fmt.Errorf("heart rate low bound must be below high bound")
	}
	if t.BloodPressureLow.Systolic >= t.BloodPressureHigh.Systolic {
		return fmt.Errorf("systolic low bound must be below high bound")
	}
	if t.BloodPressureLow.Diastolic >= t.BloodPressureHigh.Diastolic {
		return fmt.Errorf("diastolic low bound must be below high bound")
	}
	if t.TemperatureLow >= t.TemperatureHigh {
		return fmt.Errorf("temperature low bound must be below high bound")
	}
	if t.OxygenSaturationLow <= 0 || t.OxygenSaturationLow > 100 {
		return fmt.Errorf("oxygen saturation bound must be between 1 and 100")
	}
	return nil
}

// Flags is the result of evaluating a snapshot against thresholds, one
// boolean per monitored channel.
type Flags struct {
	HeartRateHigh       bool `json:"heartRateHigh"`
	HeartRateLow        bool `json:"heartRateLow"`
	BloodPressureHigh   bool `json:"bloodPressureHigh"`
	BloodPressureLow    bool `json:"bloodPressureLow"`
	OxygenSaturationLow bool `json:"oxygenSaturationLow"`
	TemperatureHigh     bool `json:"temperatureHigh"`
	TemperatureLow      bool `json:"temperatureLow"`
}

// Any reports whether at least one channel breached.
func (f Flags) Any() bool {
	return f.HeartRateHigh || f.HeartRateLow ||
		f.BloodPressureHigh || f.BloodPressureLow ||
		f.OxygenSaturationLow || f.TemperatureHigh || f.TemperatureLow
}
