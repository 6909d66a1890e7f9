// Package agent runs the slot-filling dialogue that drives scheduling: it
// parses each utterance with an LLM oracle plus deterministic fallbacks,
// merges what it learned into the session state, and routes the turn to
// listing, clarification, an availability check, or a booking.
package agent

// Intents the dialogue recognizes.
const (
	IntentBook  = "book_appointment"
	IntentCheck = "check_availability"
	IntentList  = "list_doctors"
)

// State is everything the dialogue has learned across a session. All fields
// are canonical: dates YYYY-MM-DD, times HH:MM, names as stored in the
// roster. Zero values mean "not yet known".
type State struct {
	Intent       string `json:"intent,omitempty"`
	PatientName  string `json:"patient_name,omitempty"`
	PatientEmail string `json:"patient_email,omitempty"`
	PatientID    int64  `json:"patient_id,omitempty"`
	DoctorName   string `json:"doctor_name,omitempty"`
	DoctorID     int64  `json:"doctor_id,omitempty"`
	Date         string `json:"date,omitempty"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	Period       string `json:"period,omitempty"`
	Symptoms     string `json:"symptoms,omitempty"`
}

// Patch is one turn's worth of newly extracted fields. Zero-valued fields are
// "nothing learned" and leave the state untouched; set fields overwrite.
type Patch struct {
	Intent       string
	PatientName  string
	PatientEmail string
	PatientID    int64
	DoctorName   string
	DoctorID     int64
	Date         string
	StartTime    string
	EndTime      string
	Period       string
	Symptoms     string
}

// Apply merges the patch into a copy of the state and returns it. Merging is
// overwrite-only, so information gathered in earlier turns survives unless
// this turn replaces it.
func (p Patch) Apply(s State) State {
	if p.Intent != "" {
		s.Intent = p.Intent
	}
	if p.PatientName != "" {
		s.PatientName = p.PatientName
	}
	if p.PatientEmail != "" {
		s.PatientEmail = p.PatientEmail
	}
	if p.PatientID != 0 {
		s.PatientID = p.PatientID
	}
	if p.DoctorName != "" {
		s.DoctorName = p.DoctorName
	}
	if p.DoctorID != 0 {
		s.DoctorID = p.DoctorID
	}
	if p.Date != "" {
		s.Date = p.Date
	}
	if p.StartTime != "" {
		s.StartTime = p.StartTime
	}
	if p.EndTime != "" {
		s.EndTime = p.EndTime
	}
	if p.Period != "" {
		s.Period = p.Period
	}
	if p.Symptoms != "" {
		s.Symptoms = p.Symptoms
	}
	return s
}

// HasDoctor reports whether any doctor reference is known, resolved or not.
func (s State) HasDoctor() bool {
	return s.DoctorID != 0 || s.DoctorName != ""
}
