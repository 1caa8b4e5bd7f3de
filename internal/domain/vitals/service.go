package vitals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/S-tej/LDPS/internal/domain/devices"
	"github.com/S-tej/LDPS/internal/platform/db"
	"github.com/S-tej/LDPS/internal/platform/websocket"
)

// AlertSink receives threshold breaches detected at ingest. Implemented by
// the alerts service.
type AlertSink interface {
	TriggerVitalsAlert(ctx context.Context, patientID, alertType, message, vitalSign string, value float64) error
}

// DeviceToucher records ingest heartbeats on the device registry.
// Implemented by the devices service.
type DeviceToucher interface {
	Touch(ctx context.Context, deviceID string, r devices.Reading) error
}

// Service implements vitals ingest, reads, and threshold management.
type Service struct {
	repo         Repository
	alertSink    AlertSink
	deviceTouch  DeviceToucher
	publisher    websocket.EventPublisher
	logger       zerolog.Logger
	historyLimit int
	runTx        func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService creates a new vitals service. alertSink, deviceTouch, and
// publisher may be nil; the corresponding side effect is then skipped. When
// pool is nil (tests) the ingest writes run without a transaction.
func NewService(
	repo Repository,
	pool *pgxpool.Pool,
	alertSink AlertSink,
	deviceTouch DeviceToucher,
	publisher websocket.EventPublisher,
	logger zerolog.Logger,
) *Service {
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	if pool != nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	}
	return &Service{
		repo:         repo,
		alertSink:    alertSink,
		deviceTouch:  deviceTouch,
		publisher:    publisher,
		logger:       logger.With().Str("component", "vitals").Logger(),
		historyLimit: MaxHistory,
		runTx:        runTx,
	}
}

// RecordSnapshot ingests one reading: it validates the snapshot, writes the
// current slot and the history entry in one transaction, publishes a live
// event, evaluates thresholds, and raises alerts for breached channels.
// deviceID may be empty; when set, the device's heartbeat fields are
// updated best-effort.
func (s *Service) RecordSnapshot(ctx context.Context, patientID string, snap *Snapshot, deviceID string) (*Snapshot, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot is required")
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if snap.Timestamp == 0 {
		snap.Timestamp = time.Now().UnixMilli()
	}

	// Readings from ECG-only firmware carry a waveform but no heart rate.
	if snap.HeartRate == 0 && len(snap.ECGData) > 0 {
		snap.HeartRate = EstimateHeartRate(snap.ECGData, ecgSampleRateHz)
	}

	err := s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.SaveCurrent(ctx, patientID, snap); err != nil {
			return err
		}
		return s.repo.AppendHistory(ctx, patientID, snap)
	})
	if err != nil {
		return nil, err
	}

	s.publishSnapshot(ctx, patientID, snap)

	thresholds, err := s.GetThresholds(ctx, patientID)
	if err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patientID).
			Msg("threshold load failed, using defaults for evaluation")
		thresholds = DefaultThresholds()
	}
	if flags := Evaluate(snap, thresholds); flags.Any() {
		s.raiseAlerts(ctx, patientID, snap, flags)
	}

	if deviceID != "" && s.deviceTouch != nil {
		reading := devices.Reading{
			HeartRate:        snap.HeartRate,
			Temperature:      snap.Temperature,
			OxygenSaturation: snap.OxygenSaturation,
		}
		if err := s.deviceTouch.Touch(ctx, deviceID, reading); err != nil {
			s.logger.Warn().Err(err).Str("device_id", deviceID).Msg("device heartbeat failed")
		}
	}

	return snap, nil
}

// CurrentSnapshot returns the patient's latest reading, or ErrNoSnapshot.
func (s *Service) CurrentSnapshot(ctx context.Context, patientID string) (*Snapshot, error) {
	return s.repo.GetCurrent(ctx, patientID)
}

// History returns up to limit history entries, newest first. The limit is
// clamped to MaxHistory; zero or negative means the full cap.
func (s *Service) History(ctx context.Context, patientID string, limit int) ([]*Snapshot, error) {
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	return s.repo.History(ctx, patientID, limit)
}

// GetThresholds returns the patient's threshold set, creating and returning
// the defaults on first use.
func (s *Service) GetThresholds(ctx context.Context, patientID string) (Thresholds, error) {
	t, err := s.repo.GetThresholds(ctx, patientID)
	if err == nil {
		return t, nil
	}
	if err != ErrNoThresholds {
		return Thresholds{}, err
	}

	defaults := DefaultThresholds()
	if err := s.repo.SaveThresholds(ctx, patientID, defaults); err != nil {
		return Thresholds{}, fmt.Errorf("initialize default thresholds: %w", err)
	}
	return defaults, nil
}

// UpdateThresholds validates and fully overwrites the patient's threshold
// set.
func (s *Service) UpdateThresholds(ctx context.Context, patientID string, t Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.repo.SaveThresholds(ctx, patientID, t); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", patientID).Msg("thresholds updated")
	return nil
}

func (s *Service) publishSnapshot(ctx context.Context, patientID string, snap *Snapshot) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn().Err(err).Msg("marshal snapshot event")
		return
	}
	ev := websocket.Event{
		Type:      "vitals.updated",
		Topic:     websocket.VitalsTopic(patientID),
		Timestamp: time.Now().UTC(),
		Data:      payload,
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("topic", ev.Topic).Msg("websocket publish failed")
	}
}

type breach struct {
	alertType string
	message   string
	vitalSign string
	value     float64
}

// raiseAlerts forwards each breached channel to the alert sink. The reading
// is already persisted, so a failed trigger is logged rather than returned.
func (s *Service) raiseAlerts(ctx context.Context, patientID string, snap *Snapshot, flags Flags) {
	if s.alertSink == nil {
		return
	}

	var breaches []breach
	if flags.HeartRateHigh {
		breaches = append(breaches, breach{
			alertType: "critical",
			message:   fmt.Sprintf("Elevated heart rate: %d bpm", snap.HeartRate),
			vitalSign: "heartRate",
			value:     float64(snap.HeartRate),
		})
	}
	if flags.HeartRateLow {
		breaches = append(breaches, breach{
			alertType: "critical",
			message:   fmt.Sprintf("Low heart rate: %d bpm", snap.HeartRate),
			vitalSign: "heartRate",
			value:     float64(snap.HeartRate),
		})
	}
	if flags.BloodPressureHigh {
		breaches = append(breaches, breach{
			alertType: "critical",
			message: fmt.Sprintf("High blood pressure: %d/%d mmHg",
				snap.BloodPressure.Systolic, snap.BloodPressure.Diastolic),
			vitalSign: "bloodPressure",
			value:     float64(snap.BloodPressure.Systolic),
		})
	}
	if flags.BloodPressureLow {
		breaches = append(breaches, breach{
			alertType: "warning",
			message: fmt.Sprintf("Low blood pressure: %d/%d mmHg",
				snap.BloodPressure.Systolic, snap.BloodPressure.Diastolic),
			vitalSign: "bloodPressure",
			value:     float64(snap.BloodPressure.Systolic),
		})
	}
	if flags.OxygenSaturationLow {
		breaches = append(breaches, breach{
			alertType: "critical",
			message:   fmt.Sprintf("Low oxygen saturation: %d%%", snap.OxygenSaturation),
			vitalSign: "oxygenSaturation",
			value:     float64(snap.OxygenSaturation),
		})
	}
	if flags.TemperatureHigh {
		breaches = append(breaches, breach{
			alertType: "warning",
			message:   fmt.Sprintf("High temperature: %.1f°C", snap.Temperature),
			vitalSign: "temperature",
			value:     snap.Temperature,
		})
	}
	if flags.TemperatureLow {
		breaches = append(breaches, breach{
			alertType: "warning",
			message:   fmt.Sprintf("Low temperature: %.1f°C", snap.Temperature),
			vitalSign: "temperature",
			value:     snap.Temperature,
		})
	}

	for _, b := range breaches {
		err := s.alertSink.TriggerVitalsAlert(ctx, patientID, b.alertType, b.message, b.vitalSign, b.value)
		if err != nil {
			s.logger.Error().Err(err).
				Str("patient_id", patientID).
				Str("vital_sign", b.vitalSign).
				Msg("alert trigger failed")
		}
	}
}
