package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service implements device registry business logic.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new device service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "devices").Logger(),
	}
}

// Register adds a new device to the registry. The hardware id must be
// unique.
func (s *Service) Register(ctx context.Context, deviceID, name string) (*Device, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("device name is required")
	}

	if _, err := s.repo.GetByDeviceID(ctx, deviceID); err == nil {
		return nil, ErrDeviceExists
	} else if !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	d := &Device{
		ID:       uuid.New(),
		DeviceID: deviceID,
		Name:     name,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info().Str("device_id", deviceID).Msg("device registered")
	return d, nil
}

// Get returns a device by its store id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Device, error) {
	return s.repo.Get(ctx, id)
}

// ListAvailable returns unassigned devices.
func (s *Service) ListAvailable(ctx context.Context) ([]*Device, error) {
	return s.repo.ListAvailable(ctx)
}

// ListByUser returns the devices assigned to a user. A user may hold more
// than one device.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]*Device, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Assign binds a device to a user.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, userID, email string) (*Device, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Assigned {
		return nil, ErrDeviceAssigned
	}

	now := time.Now().UTC()
	d.Assigned = true
	d.AssignedTo = email
	d.UserID = &userID
	d.AssignedAt = &now

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("device_id", d.DeviceID).
		Str("user_id", userID).
		Msg("device assigned")
	return d, nil
}

// Unassign releases a device back to the available pool.
func (s *Service) Unassign(ctx context.Context, id uuid.UUID) (*Device, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d.Assigned = false
	d.AssignedTo = ""
	d.UserID = nil
	d.AssignedAt = nil

	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info().Str("device_id", d.DeviceID).Msg("device unassigned")
	return d, nil
}

// Touch records an ingest heartbeat: last-active time plus quick-reference
// vitals. Called from the ingest path, so an unknown hardware id is logged
// by the caller rather than failing the reading.
func (s *Service) Touch(ctx context.Context, deviceID string, reading Reading) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	return s.repo.Touch(ctx, deviceID, reading)
}
