package vitals

import "context"

// Repository is the persistence interface for the current slot, history,
// and thresholds.
type Repository interface {
	// SaveCurrent overwrites the patient's current-slot snapshot.
	SaveCurrent(ctx context.Context, patientID string, s *Snapshot) error
	GetCurrent(ctx context.Context, patientID string) (*Snapshot, error)

	// AppendHistory adds an immutable history entry.
	AppendHistory(ctx context.Context, patientID string, s *Snapshot) error
	// History returns up to limit entries, newest first.
	History(ctx context.Context, patientID string, limit int) ([]*Snapshot, error)

	GetThresholds(ctx context.Context, patientID string) (Thresholds, error)
	// SaveThresholds fully overwrites the patient's threshold set.
	SaveThresholds(ctx context.Context, patientID string, t Thresholds) error
}
