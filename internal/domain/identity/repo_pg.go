package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/S-tej/LDPS/internal/platform/db"
)

// queryable abstracts a pgx pool, connection, or transaction.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RepoPG is the PostgreSQL implementation of Repository.
type RepoPG struct {
	pool *pgxpool.Pool
}

// NewRepoPG creates a new PostgreSQL profile repository.
func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

// conn returns the transaction or connection bound to the context, falling
// back to the pool.
func (r *RepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const profileCols = `uid, display_name, email, phone_number, age, gender,
	medical_conditions, medications, emergency_contacts,
	is_patient, is_caretaker, caretakers, patients, created_at, updated_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	var contacts []byte
	err := row.Scan(
		&p.UID, &p.DisplayName, &p.Email, &p.PhoneNumber, &p.Age, &p.Gender,
		&p.MedicalConditions, &p.Medications, &contacts,
		&p.IsPatient, &p.IsCaretaker, &p.Caretakers, &p.Patients,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &p.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("decode emergency contacts: %w", err)
		}
	}
	p.Normalize()
	return &p, nil
}

func (r *RepoPG) Create(ctx context.Context, p *Profile) error {
	contacts, err := json.Marshal(p.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("encode emergency contacts: %w", err)
	}

	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO profiles (uid, display_name, email, phone_number, age, gender,
			medical_conditions, medications, emergency_contacts,
			is_patient, is_caretaker, caretakers, patients)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.UID, p.DisplayName, p.Email, p.PhoneNumber, p.Age, p.Gender,
		p.MedicalConditions, p.Medications, contacts,
		p.IsPatient, p.IsCaretaker, p.Caretakers, p.Patients,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *RepoPG) Get(ctx context.Context, uid string) (*Profile, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE uid = $1`, uid)

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (r *RepoPG) Update(ctx context.Context, p *Profile) error {
	contacts, err := json.Marshal(p.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("encode emergency contacts: %w", err)
	}

	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles SET
			display_name = $2, email = $3, phone_number = $4, age = $5,
			gender = $6, medical_conditions = $7, medications = $8,
			emergency_contacts = $9, is_patient = $10, is_caretaker = $11,
			updated_at = now()
		WHERE uid = $1`,
		p.UID, p.DisplayName, p.Email, p.PhoneNumber, p.Age, p.Gender,
		p.MedicalConditions, p.Medications, contacts,
		p.IsPatient, p.IsCaretaker,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *RepoPG) FindByPhone(ctx context.Context, phone string) (*Profile, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE phone_number = $1 LIMIT 1`, phone)

	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile by phone: %w", err)
	}
	return p, nil
}

func (r *RepoPG) AddCaretaker(ctx context.Context, patientID, caretakerID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles
		SET caretakers = array_append(caretakers, $2), updated_at = now()
		WHERE uid = $1 AND NOT ($2 = ANY(caretakers))`,
		patientID, caretakerID,
	)
	if err != nil {
		return fmt.Errorf("add caretaker link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyLinked
	}
	return nil
}

func (r *RepoPG) RemoveCaretaker(ctx context.Context, patientID, caretakerID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles
		SET caretakers = array_remove(caretakers, $2), updated_at = now()
		WHERE uid = $1 AND $2 = ANY(caretakers)`,
		patientID, caretakerID,
	)
	if err != nil {
		return fmt.Errorf("remove caretaker link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotLinked
	}
	return nil
}

func (r *RepoPG) AddPatient(ctx context.Context, caretakerID, patientID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles
		SET patients = array_append(patients, $2), updated_at = now()
		WHERE uid = $1 AND NOT ($2 = ANY(patients))`,
		caretakerID, patientID,
	)
	if err != nil {
		return fmt.Errorf("add patient link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyLinked
	}
	return nil
}

func (r *RepoPG) RemovePatient(ctx context.Context, caretakerID, patientID string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE profiles
		SET patients = array_remove(patients, $2), updated_at = now()
		WHERE uid = $1 AND $2 = ANY(patients)`,
		caretakerID, patientID,
	)
	if err != nil {
		return fmt.Errorf("remove patient link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotLinked
	}
	return nil
}

func (r *RepoPG) ListByUIDs(ctx context.Context, uids []string) ([]*Profile, error) {
	if len(uids) == 0 {
		return []*Profile{}, nil
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+profileCols+` FROM profiles WHERE uid = ANY($1) ORDER BY display_name`, uids)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
