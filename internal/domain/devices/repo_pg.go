package devices

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

// RepoPG is the PostgreSQL implementation of Repository.
type RepoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG creates a new PostgreSQL device repository.
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

const deviceCols = `id, device_id, name, assigned, assigned_to, user_id,
	assigned_at, last_active, heart_rate, temperature, oxygen_saturation, created_at`

func scanDevice(row pgx.Row) (*Device, error) {
	var d Device
	err := row.Scan(
		&d.ID, &d.DeviceID, &d.Name, &d.Assigned, &d.AssignedTo, &d.UserID,
		&d.AssignedAt, &d.LastActive, &d.HeartRate, &d.Temperature,
		&d.OxygenSaturation, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *RepoPG) Create(ctx context.Context, d *Device) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO devices (id, device_id, name, assigned, assigned_to)
		VALUES ($1, $2, $3, $4, $5)`,
		d.ID, d.DeviceID, d.Name, d.Assigned, d.AssignedTo,
	)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return nil
}

func (r *RepoPG) Get(ctx context.Context, id uuid.UUID) (*Device, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE id = $1`, id)

	d, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}
	return d, nil
}

func (r *RepoPG) GetByDeviceID(ctx context.Context, deviceID string) (*Device, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE device_id = $1`, deviceID)

	d, err := scanDevice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get device by hardware id: %w", err)
	}
	return d, nil
}

func (r *RepoPG) Update(ctx context.Context, d *Device) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE devices SET
			name = $2, assigned = $3, assigned_to = $4, user_id = $5,
			assigned_at = $6
		WHERE id = $1`,
		d.ID, d.Name, d.Assigned, d.AssignedTo, d.UserID, d.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("update device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *RepoPG) ListAvailable(ctx context.Context) ([]*Device, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE NOT assigned ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list available devices: %w", err)
	}
	defer rows.Close()
	return collectDevices(rows)
}

func (r *RepoPG) ListByUser(ctx context.Context, userID string) ([]*Device, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+deviceCols+` FROM devices WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices by user: %w", err)
	}
	defer rows.Close()
	return collectDevices(rows)
}

func collectDevices(rows pgx.Rows) ([]*Device, error) {
	devices := []*Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func (r *RepoPG) Touch(ctx context.Context, deviceID string, reading Reading) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE devices SET
			last_active = now(), heart_rate = $2, temperature = $3,
			oxygen_saturation = $4
		WHERE device_id = $1`,
		deviceID, reading.HeartRate, reading.Temperature, reading.OxygenSaturation,
	)
	if err != nil {
		return fmt.Errorf("touch device: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}
