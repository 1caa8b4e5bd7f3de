package alerts

import (
	"context"
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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// ---------------------------------------------------------------------------
// Alerts
// ---------------------------------------------------------------------------

// AlertRepoPG is the PostgreSQL implementation of AlertRepository.
type AlertRepoPG struct {
	pool *pgxpool.Pool
}

// NewAlertRepoPG creates a new PostgreSQL alert repository.
func NewAlertRepoPG(pool *pgxpool.Pool) *AlertRepoPG {
	return &AlertRepoPG{pool: pool}
}

const alertCols = `id, patient_id, taken_at, type, message, acknowledged,
	vital_sign, value, created_at`

func scanAlert(row pgx.Row) (*Alert, error) {
	var a Alert
	err := row.Scan(
		&a.ID, &a.PatientID, &a.Timestamp, &a.Type, &a.Message,
		&a.Acknowledged, &a.VitalSign, &a.Value, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AlertRepoPG) Create(ctx context.Context, a *Alert) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO alerts (id, patient_id, taken_at, type, message, acknowledged, vital_sign, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.PatientID, a.Timestamp, a.Type, a.Message, a.Acknowledged,
		a.VitalSign, a.Value,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepoPG) Get(ctx context.Context, patientID string, id uuid.UUID) (*Alert, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+alertCols+` FROM alerts WHERE patient_id = $1 AND id = $2`,
		patientID, id)

	a, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (r *AlertRepoPG) Acknowledge(ctx context.Context, patientID string, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE alerts SET acknowledged = true WHERE patient_id = $1 AND id = $2`,
		patientID, id)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepoPG) Delete(ctx context.Context, patientID string, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM alerts WHERE patient_id = $1 AND id = $2`,
		patientID, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *AlertRepoPG) ListByPatient(ctx context.Context, patientID string, limit int) ([]*Alert, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+alertCols+` FROM alerts
		 WHERE patient_id = $1 ORDER BY taken_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// ---------------------------------------------------------------------------
// Caretaker notifications
// ---------------------------------------------------------------------------

// NotificationRepoPG is the PostgreSQL implementation of NotificationRepository.
type NotificationRepoPG struct {
	pool *pgxpool.Pool
}

// NewNotificationRepoPG creates a new PostgreSQL notification repository.
func NewNotificationRepoPG(pool *pgxpool.Pool) *NotificationRepoPG {
	return &NotificationRepoPG{pool: pool}
}

const notificationCols = `id, caretaker_id, patient_id, alert_type, message,
	read, taken_at, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.Caretaker, &n.PatientID, &n.AlertType, &n.Message,
		&n.Read, &n.Timestamp, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepoPG) Create(ctx context.Context, n *Notification) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO caretaker_notifications (id, caretaker_id, patient_id, alert_type, message, read, taken_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.Caretaker, n.PatientID, n.AlertType, n.Message, n.Read, n.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *NotificationRepoPG) ListByCaretaker(ctx context.Context, caretakerID string, limit int) ([]*Notification, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+notificationCols+` FROM caretaker_notifications
		 WHERE caretaker_id = $1 ORDER BY taken_at DESC LIMIT $2`,
		caretakerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepoPG) MarkRead(ctx context.Context, caretakerID string, id uuid.UUID) error {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE caretaker_notifications SET read = true WHERE caretaker_id = $1 AND id = $2`,
		caretakerID, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
