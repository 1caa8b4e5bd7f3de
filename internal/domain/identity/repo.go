package identity

import "context"

// Repository is the persistence interface for profiles and caretaker links.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, uid string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	FindByPhone(ctx context.Context, phone string) (*Profile, error)

	// Link mutations operate on one direction each; the service composes the
	// two directions inside a transaction.
	AddCaretaker(ctx context.Context, patientID, caretakerID string) error
	RemoveCaretaker(ctx context.Context, patientID, caretakerID string) error
	AddPatient(ctx context.Context, caretakerID, patientID string) error
	RemovePatient(ctx context.Context, caretakerID, patientID string) error

	ListByUIDs(ctx context.Context, uids []string) ([]*Profile, error)
}
