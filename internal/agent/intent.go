package agent

import (
	"context"
	"strings"
	"time"

	"github.com/clinicdesk/scheduler-ai/internal/normalize"
)

const extractionSystem = `You read one message from a patient talking to a clinic's scheduling assistant.
Reply with a single JSON object and nothing else:
{"intent": "book_appointment" | "check_availability" | "list_doctors" | "",
 "patient_name": "", "patient_email": "", "doctor_name": "", "date": "", "time": "", "symptoms": ""}
Copy names, dates and times exactly as the patient wrote them. Use "" for anything the message does not mention.`

// parseUtterance consults the oracle for structured fields and normalizes
// them. The returned status labels the consultation for metrics; on any
// failure the patch is empty and the caller falls back to keyword parsing.
func parseUtterance(ctx context.Context, oracle Oracle, message string, today time.Time) (Patch, string) {
	if oracle == nil {
		return Patch{}, OracleSkipped
	}

	raw, err := oracle.Infer(ctx, extractionSystem, message)
	if err != nil {
		return Patch{}, classifyOracleErr(err)
	}
	obj, ok := extractObject(raw)
	if !ok {
		return Patch{}, OracleMalformed
	}

	patch := Patch{
		PatientName:  str(obj, "patient_name", "patient"),
		PatientEmail: str(obj, "patient_email", "email"),
		DoctorName:   str(obj, "doctor_name", "doctor"),
		Symptoms:     str(obj, "symptoms"),
	}

	switch intent := strings.ToLower(str(obj, "intent")); intent {
	case IntentBook, IntentCheck, IntentList:
		patch.Intent = intent
	}

	if raw := str(obj, "date"); raw != "" {
		if date, ok := normalize.Date(raw, today); ok {
			patch.Date = date
		}
	}
	if raw := str(obj, "time"); raw != "" {
		if clock, ok := normalize.Time(raw); ok {
			patch.StartTime = clock
		} else {
			patch.Period = periodKeyword(raw)
		}
	}
	if patch.Period == "" {
		patch.Period = periodKeyword(message)
	}

	return patch, OracleOK
}

// keywordPatch extracts what it can from the bare message when the oracle is
// unavailable or returned garbage.
func keywordPatch(message string, today time.Time) Patch {
	patch := Patch{Period: periodKeyword(message)}

	lower := strings.ToLower(message)
	for _, word := range []string{"today", "tomorrow"} {
		if strings.Contains(lower, word) {
			if date, ok := normalize.Date(word, today); ok {
				patch.Date = date
			}
		}
	}
	return patch
}

// fallbackIntent decides the intent from keywords when neither the oracle
// nor earlier turns produced one. Booking words win, a known doctor implies
// an availability check, and with nothing else the patient is browsing.
func fallbackIntent(message string, state State) string {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "book") || strings.Contains(lower, "confirm") {
		return IntentBook
	}
	if state.HasDoctor() {
		return IntentCheck
	}
	return IntentList
}

func periodKeyword(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "morning"):
		return "morning"
	case strings.Contains(lower, "afternoon"):
		return "afternoon"
	case strings.Contains(lower, "evening") || strings.Contains(lower, "night"):
		return "evening"
	}
	return ""
}
