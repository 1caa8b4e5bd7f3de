package vitals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/S-tej/LDPS/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RepoPG is the PostgreSQL implementation of Repository.
type RepoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG creates a new PostgreSQL vitals repository.
func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const snapshotCols = `taken_at, heart_rate, systolic, diastolic,
	oxygen_saturation, temperature, ecg_data, ecg_metrics`

func scanSnapshot(row pgx.Row) (*Snapshot, error) {
	var s Snapshot
	var metrics []byte
	err := row.Scan(
		&s.Timestamp, &s.HeartRate, &s.BloodPressure.Systolic,
		&s.BloodPressure.Diastolic, &s.OxygenSaturation, &s.Temperature,
		&s.ECGData, &metrics,
	)
	if err != nil {
		return nil, err
	}
	if len(metrics) > 0 {
		s.ECGMetrics = &ECGMetrics{}
		if err := json.Unmarshal(metrics, s.ECGMetrics); err != nil {
			return nil, fmt.Errorf("decode ecg metrics: %w", err)
		}
	}
	return &s, nil
}

func encodeMetrics(s *Snapshot) ([]byte, error) {
	if s.ECGMetrics == nil {
		return nil, nil
	}
	return json.Marshal(s.ECGMetrics)
}

func (r *RepoPG) SaveCurrent(ctx context.Context, patientID string, s *Snapshot) error {
	metrics, err := encodeMetrics(s)
	if err != nil {
		return fmt.Errorf("encode ecg metrics: %w", err)
	}

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals_current (patient_id, taken_at, heart_rate, systolic,
			diastolic, oxygen_saturation, temperature, ecg_data, ecg_metrics, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (patient_id) DO UPDATE SET
			taken_at = EXCLUDED.taken_at,
			heart_rate = EXCLUDED.heart_rate,
			systolic = EXCLUDED.systolic,
			diastolic = EXCLUDED.diastolic,
			oxygen_saturation = EXCLUDED.oxygen_saturation,
			temperature = EXCLUDED.temperature,
			ecg_data = EXCLUDED.ecg_data,
			ecg_metrics = EXCLUDED.ecg_metrics,
			updated_at = now()`,
		patientID, s.Timestamp, s.HeartRate, s.BloodPressure.Systolic,
		s.BloodPressure.Diastolic, s.OxygenSaturation, s.Temperature,
		s.ECGData, metrics,
	)
	if err != nil {
		return fmt.Errorf("save current snapshot: %w", err)
	}
	return nil
}

func (r *RepoPG) GetCurrent(ctx context.Context, patientID string) (*Snapshot, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+snapshotCols+` FROM vitals_current WHERE patient_id = $1`, patientID)

	s, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get current snapshot: %w", err)
	}
	return s, nil
}

func (r *RepoPG) AppendHistory(ctx context.Context, patientID string, s *Snapshot) error {
	metrics, err := encodeMetrics(s)
	if err != nil {
		return fmt.Errorf("encode ecg metrics: %w", err)
	}

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO vitals_history (id, patient_id, taken_at, heart_rate, systolic,
			diastolic, oxygen_saturation, temperature, ecg_data, ecg_metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New(), patientID, s.Timestamp, s.HeartRate, s.BloodPressure.Systolic,
		s.BloodPressure.Diastolic, s.OxygenSaturation, s.Temperature,
		s.ECGData, metrics,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (r *RepoPG) History(ctx context.Context, patientID string, limit int) ([]*Snapshot, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+snapshotCols+` FROM vitals_history
		 WHERE patient_id = $1 ORDER BY taken_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []*Snapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

func (r *RepoPG) GetThresholds(ctx context.Context, patientID string) (Thresholds, error) {
	var t Thresholds
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT hr_high, hr_low, bp_high_systolic, bp_high_diastolic,
			bp_low_systolic, bp_low_diastolic, spo2_low, temp_high, temp_low
		FROM thresholds WHERE patient_id = $1`, patientID).Scan(
		&t.HeartRateHigh, &t.HeartRateLow,
		&t.BloodPressureHigh.Systolic, &t.BloodPressureHigh.Diastolic,
		&t.BloodPressureLow.Systolic, &t.BloodPressureLow.Diastolic,
		&t.OxygenSaturationLow, &t.TemperatureHigh, &t.TemperatureLow,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Thresholds{}, ErrNoThresholds
	}
	if err != nil {
		return Thresholds{}, fmt.Errorf("get thresholds: %w", err)
	}
	return t, nil
}

func (r *RepoPG) SaveThresholds(ctx context.Context, patientID string, t Thresholds) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO thresholds (patient_id, hr_high, hr_low, bp_high_systolic,
			bp_high_diastolic, bp_low_systolic, bp_low_diastolic, spo2_low,
			temp_high, temp_low, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (patient_id) DO UPDATE SET
			hr_high = EXCLUDED.hr_high,
			hr_low = EXCLUDED.hr_low,
			bp_high_systolic = EXCLUDED.bp_high_systolic,
			bp_high_diastolic = EXCLUDED.bp_high_diastolic,
			bp_low_systolic = EXCLUDED.bp_low_systolic,
			bp_low_diastolic = EXCLUDED.bp_low_diastolic,
			spo2_low = EXCLUDED.spo2_low,
			temp_high = EXCLUDED.temp_high,
			temp_low = EXCLUDED.temp_low,
			updated_at = now()`,
		patientID, t.HeartRateHigh, t.HeartRateLow,
		t.BloodPressureHigh.Systolic, t.BloodPressureHigh.Diastolic,
		t.BloodPressureLow.Systolic, t.BloodPressureLow.Diastolic,
		t.OxygenSaturationLow, t.TemperatureHigh, t.TemperatureLow,
	)
	if err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}
