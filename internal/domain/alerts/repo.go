package alerts

import (
	"context"

	"github.com/google/uuid"
)

// AlertRepository is the persistence interface for alert records.
type AlertRepository interface {
	Create(ctx context.Context, a *Alert) error
	Get(ctx context.Context, patientID string, id uuid.UUID) (*Alert, error)
	// Acknowledge flips the acknowledged flag, leaving every other field
	// untouched.
	Acknowledge(ctx context.Context, patientID string, id uuid.UUID) error
	Delete(ctx context.Context, patientID string, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID string, limit int) ([]*Alert, error)
}

// NotificationRepository is the persistence interface for caretaker fan-out
// records.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByCaretaker(ctx context.Context, caretakerID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, caretakerID string, id uuid.UUID) error
}
