package devices

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrDeviceNotFound is returned when a device lookup matches nothing.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceAssigned is returned when assigning a device that already has
	// an owner.
	ErrDeviceAssigned = errors.New("device already assigned")

	// ErrDeviceExists is returned when registering a hardware id twice.
	ErrDeviceExists = errors.New("device already registered")
)

// Device is a registered ESP32 sensor unit. DeviceID is the hardware
// identifier the firmware sends with each reading; ID is the store-assigned
// key. The quick-reference vitals fields mirror the last reading the device
// pushed so fleet views do not have to join against patient history.
type Device struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	DeviceID         string     `db:"device_id" json:"deviceId"`
	Name             string     `db:"name" json:"name"`
	Assigned         bool       `db:"assigned" json:"assigned"`
	AssignedTo       string     `db:"assigned_to" json:"assignedTo"`
	UserID           *string    `db:"user_id" json:"userId,omitempty"`
	AssignedAt       *time.Time `db:"assigned_at" json:"assignedAt,omitempty"`
	LastActive       *time.Time `db:"last_active" json:"lastActive,omitempty"`
	HeartRate        *int       `db:"heart_rate" json:"heartRate,omitempty"`
	Temperature      *float64   `db:"temperature" json:"temperature,omitempty"`
	OxygenSaturation *int       `db:"oxygen_saturation" json:"oxygenSaturation,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
}

// Reading is the quick-reference vitals payload recorded by Touch.
type Reading struct {
	HeartRate        int     `json:"heartRate"`
	Temperature      float64 `json:"temperature"`
	OxygenSaturation int     `json:"oxygenSaturation"`
}
