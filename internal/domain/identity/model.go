package identity

import (
	"errors"
	"time"
)

var (
	// ErrProfileNotFound is returned when no profile exists for a uid.
	// An absent profile is an expected state for first-time users, not a
	// server fault; handlers map it to 404.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrAlreadyLinked is returned when a caretaker link already exists.
	ErrAlreadyLinked = errors.New("caretaker already linked")

	// ErrNotLinked is returned when unlinking a caretaker that is not linked.
	ErrNotLinked = errors.New("caretaker not linked")

	// ErrNotCaretaker is returned when a link target is not a caretaker profile.
	ErrNotCaretaker = errors.New("profile is not a caretaker")
)

// EmergencyContact is a manually entered contact on a patient profile.
// Contacts that are also registered caretakers carry IsCaretaker=true so
// clients can offer a one-tap link action.
type EmergencyContact struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	PhoneNumber  string `json:"phoneNumber"`
	IsCaretaker  bool   `json:"isCaretaker"`
}

// Profile is the identity and medical metadata record for a user. The UID is
// the subject claim of the user's token, not a store-assigned id. Caretakers
// and Patients hold the two directions of the caretaker link; both sides are
// always updated together.
type Profile struct {
	UID               string             `db:"uid" json:"uid"`
	DisplayName       string             `db:"display_name" json:"displayName"`
	Email             string             `db:"email" json:"email"`
	PhoneNumber       string             `db:"phone_number" json:"phoneNumber"`
	Age               *int               `db:"age" json:"age,omitempty"`
	Gender            *string            `db:"gender" json:"gender,omitempty"`
	MedicalConditions []string           `db:"medical_conditions" json:"medicalConditions"`
	Medications       []string           `db:"medications" json:"medications"`
	EmergencyContacts []EmergencyContact `db:"emergency_contacts" json:"emergencyContacts"`
	IsPatient         bool               `db:"is_patient" json:"isPatient"`
	IsCaretaker       bool               `db:"is_caretaker" json:"isCaretaker"`
	Caretakers        []string           `db:"caretakers" json:"caretakers"`
	Patients          []string           `db:"patients" json:"patients"`
	CreatedAt         time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updatedAt"`
}

// HasCaretaker reports whether the given caretaker uid is linked.
func (p *Profile) HasCaretaker(caretakerID string) bool {
	for _, id := range p.Caretakers {
		if id == caretakerID {
			return true
		}
	}
	return false
}

// Normalize ensures slice fields are non-nil so JSON responses render empty
// arrays instead of null, matching what clients expect.
func (p *Profile) Normalize() {
	if p.MedicalConditions == nil {
		p.MedicalConditions = []string{}
	}
	if p.Medications == nil {
		p.Medications = []string{}
	}
	if p.EmergencyContacts == nil {
		p.EmergencyContacts = []EmergencyContact{}
	}
	if p.Caretakers == nil {
		p.Caretakers = []string{}
	}
	if p.Patients == nil {
		p.Patients = []string{}
	}
}
