// Package availability exposes doctors' open slots and the period and
// exact-time filtering the conversational flow applies to them. Dates travel
// as YYYY-MM-DD strings and times as 24-hour HH:MM so values compare and sort
// lexically.
package availability

// Slot is one bookable window in a doctor's calendar.
type Slot struct {
	ID        int64  `json:"id"`
	DoctorID  int64  `json:"doctor_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsBooked  bool   `json:"is_booked,omitempty"`
}

// DaySlots groups a doctor's open slots for a single day, used when
// presenting alternatives across the forward window.
type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Period buckets for fuzzy time preferences.
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
)
