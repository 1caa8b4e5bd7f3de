package alerts

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Alert types. Threshold evaluation produces critical/warning/info;
// emergency is reserved for the patient-initiated panic flow and is never
// derived from a reading.
const (
	TypeCritical  = "critical"
	TypeWarning   = "warning"
	TypeInfo      = "info"
	TypeEmergency = "emergency"
)

// DefaultEmergencyMessage is persisted when an emergency is triggered with
// an empty message.
const DefaultEmergencyMessage = "Emergency assistance requested!"

// MaxAlerts caps how many alerts a single list call returns, newest first.
const MaxAlerts = 50

var (
	// ErrAlertNotFound is returned when an alert id does not exist for the
	// patient.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrNotificationNotFound is returned when a notification id does not
	// exist for the caretaker.
	ErrNotificationNotFound = errors.New("notification not found")
)

// Alert is a persisted threshold breach or manual emergency trigger.
// Timestamp is milliseconds since epoch, matching the reading that caused
// it. VitalSign and Value tag the breached channel when threshold-derived.
type Alert struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    string    `db:"patient_id" json:"patientId"`
	Timestamp    int64     `db:"taken_at" json:"timestamp"`
	Type         string    `db:"type" json:"type"`
	Message      string    `db:"message" json:"message"`
	Acknowledged bool      `db:"acknowledged" json:"acknowledged"`
	VitalSign    *string   `db:"vital_sign" json:"vitalSign,omitempty"`
	Value        *float64  `db:"value" json:"value,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Notification is the fan-out record written for each linked caretaker when
// an alert is created.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Caretaker string    `db:"caretaker_id" json:"caretakerId"`
	PatientID string    `db:"patient_id" json:"patientId"`
	AlertType string    `db:"alert_type" json:"alertType"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	Timestamp int64     `db:"taken_at" json:"timestamp"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Input is the caller-supplied part of an alert; the service stamps the
// rest.
type Input struct {
	Type      string   `json:"type"`
	Message   string   `json:"message"`
	VitalSign *string  `json:"vitalSign,omitempty"`
	Value     *float64 `json:"value,omitempty"`
}

// ValidType reports whether t is one of the four alert types.
func ValidType(t string) bool {
	switch t {
	case TypeCritical, TypeWarning, TypeInfo, TypeEmergency:
		return true
	}
	return false
}
