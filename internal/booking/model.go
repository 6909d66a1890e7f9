// Package booking turns an agreed slot into a persisted appointment. The
// write path flips availability rows conditionally inside one transaction so
// two sessions can never book the same slot.
package booking

import "errors"

var (
	// ErrSlotConflict is returned when the requested slot was booked by
	// someone else between the availability check and the write.
	ErrSlotConflict = errors.New("booking: slot already booked")
	// ErrMissingFields is returned when the request lacks patient, doctor,
	// date or start time.
	ErrMissingFields = errors.New("booking: patient, doctor, date and start time are required")
	// ErrAppointmentNotFound is returned by lookups that match nothing.
	ErrAppointmentNotFound = errors.New("booking: appointment not found")
)

// Appointment statuses.
const (
	StatusScheduled   = "Scheduled"
	StatusRescheduled = "Rescheduled"
	StatusCompleted   = "Completed"
	StatusCancelled   = "Cancelled"
)

// Request carries everything needed to book.
type Request struct {
	PatientID int64  `json:"patient_id"`
	DoctorID  int64  `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Symptoms  string `json:"symptoms,omitempty"`
}

// Appointment is a booked visit.
type Appointment struct {
	ID        int64  `json:"id"`
	PatientID int64  `json:"patient_id"`
	DoctorID  int64  `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Symptoms  string `json:"symptoms,omitempty"`
	Status    string `json:"status"`
}

// DeliveryCounts tallies confirmed notification deliveries per channel.
type DeliveryCounts struct {
	Email    int `json:"email"`
	Calendar int `json:"calendar"`
	WhatsApp int `json:"whatsapp"`
}

// Add accumulates another tally into c.
func (c *DeliveryCounts) Add(other DeliveryCounts) {
	c.Email += other.Email
	c.Calendar += other.Calendar
	c.WhatsApp += other.WhatsApp
}

// RescheduleResult summarizes a bulk day move.
type RescheduleResult struct {
	Moved         int            `json:"moved"`
	Failed        int            `json:"failed"`
	Notifications DeliveryCounts `json:"notifications"`
	IDs           []int64        `json:"appointment_ids,omitempty"`
}
