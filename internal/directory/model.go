// Package directory holds the clinic roster: the doctors patients can be
// booked with and the patients known to the clinic.
package directory

import "errors"

var (
	// ErrDoctorNotFound is returned when no doctor matches the lookup.
	ErrDoctorNotFound = errors.New("directory: doctor not found")
	// ErrPatientNotFound is returned when no patient matches the lookup.
	ErrPatientNotFound = errors.New("directory: patient not found")
)

// Doctor is a bookable practitioner.
type Doctor struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
}

// Patient is a person appointments are booked for.
type Patient struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
