package devices

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence interface for the device registry.
type Repository interface {
	Create(ctx context.Context, d *Device) error
	Get(ctx context.Context, id uuid.UUID) (*Device, error)
	GetByDeviceID(ctx context.Context, deviceID string) (*Device, error)
	Update(ctx context.Context, d *Device) error
	ListAvailable(ctx context.Context) ([]*Device, error)
	ListByUser(ctx context.Context, userID string) ([]*Device, error)
	Touch(ctx context.Context, deviceID string, r Reading) error
}
