package identity

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/S-tej/LDPS/internal/platform/db"
	"github.com/S-tej/LDPS/internal/platform/notification"
)

// Service implements profile and caretaker-link business logic.
type Service struct {
	repo     Repository
	notifier *notification.NotificationManager
	logger   zerolog.Logger
	runTx    func(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewService creates a new identity service. The notifier may be nil, in
// which case link notifications are skipped. When pool is nil (tests) the
// transactional link operations run without a transaction.
func NewService(repo Repository, pool *pgxpool.Pool, notifier *notification.NotificationManager, logger zerolog.Logger) *Service {
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	}
	if pool != nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		}
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With().Str("component", "identity").Logger(),
		runTx:    runTx,
	}
}

// CreateProfile validates and stores a new profile.
func (s *Service) CreateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	if p.UID == "" {
		return nil, fmt.Errorf("uid is required")
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return nil, fmt.Errorf("display name is required")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return nil, fmt.Errorf("invalid email address: %w", err)
		}
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return nil, fmt.Errorf("age out of range")
	}
	if !p.IsPatient && !p.IsCaretaker {
		p.IsPatient = true
	}
	p.Normalize()

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().Str("uid", p.UID).Bool("is_caretaker", p.IsCaretaker).Msg("profile created")
	return p, nil
}

// GetProfile returns the profile for a uid, or ErrProfileNotFound.
func (s *Service) GetProfile(ctx context.Context, uid string) (*Profile, error) {
	return s.repo.Get(ctx, uid)
}

// UpdateProfile overwrites the mutable fields of an existing profile. Link
// lists are managed only through LinkCaretaker/UnlinkCaretaker and are not
// touched here.
func (s *Service) UpdateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	if p.UID == "" {
		return nil, fmt.Errorf("uid is required")
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return nil, fmt.Errorf("display name is required")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return nil, fmt.Errorf("invalid email address: %w", err)
		}
	}
	p.Normalize()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, p.UID)
}

// FindCaretakerByPhone looks up a caretaker profile by exact phone number.
// Profiles that exist but are not caretakers are reported as not found so
// the endpoint does not leak patient phone numbers.
func (s *Service) FindCaretakerByPhone(ctx context.Context, phone string) (*Profile, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	p, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !p.IsCaretaker {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// LinkCaretaker links a caretaker to a patient, updating both profiles in a
// single transaction. A duplicate link is rejected.
func (s *Service) LinkCaretaker(ctx context.Context, patientID, caretakerID string) error {
	if patientID == caretakerID {
		return fmt.Errorf("cannot link a profile to itself")
	}

	patient, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return fmt.Errorf("patient: %w", err)
	}
	caretaker, err := s.repo.Get(ctx, caretakerID)
	if err != nil {
		return fmt.Errorf("caretaker: %w", err)
	}
	if !caretaker.IsCaretaker {
		return ErrNotCaretaker
	}
	if patient.HasCaretaker(caretakerID) {
		return ErrAlreadyLinked
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.AddCaretaker(ctx, patientID, caretakerID); err != nil {
			return err
		}
		return s.repo.AddPatient(ctx, caretakerID, patientID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Str("caretaker_id", caretakerID).
		Msg("caretaker linked")

	if s.notifier != nil && caretaker.Email != "" {
		data := map[string]string{"patient_name": patient.DisplayName}
		if _, err := s.notifier.SendFromTemplate(ctx, "caretaker-linked", data, caretaker.Email); err != nil {
			s.logger.Warn().Err(err).Str("caretaker_id", caretakerID).Msg("link notification failed")
		}
	}
	return nil
}

// UnlinkCaretaker removes the link in both directions in one transaction.
func (s *Service) UnlinkCaretaker(ctx context.Context, patientID, caretakerID string) error {
	patient, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return fmt.Errorf("patient: %w", err)
	}
	if !patient.HasCaretaker(caretakerID) {
		return ErrNotLinked
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.repo.RemoveCaretaker(ctx, patientID, caretakerID); err != nil {
			return err
		}
		return s.repo.RemovePatient(ctx, caretakerID, patientID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Str("caretaker_id", caretakerID).
		Msg("caretaker unlinked")
	return nil
}

// ListCaretakers returns resolved profiles for every caretaker linked to the
// patient.
func (s *Service) ListCaretakers(ctx context.Context, patientID string) ([]*Profile, error) {
	patient, err := s.repo.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByUIDs(ctx, patient.Caretakers)
}
