package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchApplyOverwritesOnlySetFields(t *testing.T) {
	state := State{
		Intent:     IntentCheck,
		DoctorName: "Dr. John Smith",
		DoctorID:   1,
		Date:       "2025-09-01",
	}

	merged := Patch{Date: "2025-09-02", StartTime: "15:00"}.Apply(state)

	assert.Equal(t, "2025-09-02", merged.Date)
	assert.Equal(t, "15:00", merged.StartTime)
	// Untouched fields survive.
	assert.Equal(t, "Dr. John Smith", merged.DoctorName)
	assert.Equal(t, int64(1), merged.DoctorID)
	assert.Equal(t, IntentCheck, merged.Intent)
}

func TestPatchApplyEmptyIsNoop(t *testing.T) {
	state := State{DoctorID: 1, Date: "2025-09-01", StartTime: "15:00"}
	assert.Equal(t, state, Patch{}.Apply(state))
}

func TestExtractObject(t *testing.T) {
	cases := []string{
		`{"intent": "book_appointment"}`,
		"Here you go:\n```json\n{\"intent\": \"book_appointment\"}\n```",
		"Sure! The extraction is {\"intent\": \"book_appointment\"} as requested.",
		"{\"intent\": \"book_appointment\",}",
		"{\n  // the patient wants to book\n  \"intent\": \"book_appointment\"\n}",
	}
	for _, in := range cases {
		obj, ok := extractObject(in)
		require.True(t, ok, "input %q", in)
		assert.Equal(t, "book_appointment", obj["intent"], "input %q", in)
	}
}

func TestExtractObjectBracesInsideStrings(t *testing.T) {
	obj, ok := extractObject(`prefix {"note": "use {curly} braces", "id": 3} suffix`)
	require.True(t, ok)
	assert.Equal(t, "use {curly} braces", obj["note"])
}

func TestExtractObjectFailure(t *testing.T) {
	for _, in := range []string{"", "no json here", "{broken"} {
		_, ok := extractObject(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestStrSkipsNullPlaceholders(t *testing.T) {
	obj := map[string]any{"doctor_name": "null", "doctor": "Dr. Smith"}
	assert.Equal(t, "Dr. Smith", str(obj, "doctor_name", "doctor"))
	assert.Equal(t, "", str(obj, "missing"))
}

func TestNumAcceptsDigitStrings(t *testing.T) {
	obj := map[string]any{"id": "42", "doctor_id": float64(7)}
	assert.Equal(t, int64(42), num(obj, "id"))
	assert.Equal(t, int64(7), num(obj, "doctor_id"))
	assert.Equal(t, int64(0), num(obj, "missing"))
}

func TestHeuristicsNextWeek(t *testing.T) {
	// Wednesday 2025-08-27; next Monday is 2025-09-01.
	today := time.Date(2025, time.August, 27, 10, 0, 0, 0, time.UTC)

	state := applyHeuristics(State{DoctorID: 1, DoctorName: "Dr. Smith"}, "sometime next week please", today)
	assert.Equal(t, "2025-09-01", state.Date)

	// A Monday rolls to the following Monday, never today.
	monday := time.Date(2025, time.September, 1, 9, 0, 0, 0, time.UTC)
	state = applyHeuristics(State{}, "next week", monday)
	assert.Equal(t, "2025-09-08", state.Date)
}

func TestHeuristicsNextWeekKeepsLaterDate(t *testing.T) {
	today := time.Date(2025, time.August, 27, 0, 0, 0, 0, time.UTC)
	state := applyHeuristics(State{Date: "2025-09-15"}, "next week", today)
	assert.Equal(t, "2025-09-15", state.Date)
}

func TestHeuristicsPastDateOverride(t *testing.T) {
	today := time.Date(2025, time.August, 27, 0, 0, 0, 0, time.UTC)

	state := applyHeuristics(State{Date: "2024-08-28"}, "tomorrow at 3", today)
	assert.Equal(t, "2025-08-28", state.Date)

	state = applyHeuristics(State{Date: "2024-08-28"}, "today at 3", today)
	assert.Equal(t, "2025-08-27", state.Date)

	// No relative cue: the stale date is left for the caller to question.
	state = applyHeuristics(State{Date: "2024-08-28"}, "at 3pm", today)
	assert.Equal(t, "2024-08-28", state.Date)
}

func TestHeuristicsDerivesEndTime(t *testing.T) {
	today := time.Date(2025, time.August, 27, 0, 0, 0, 0, time.UTC)
	state := applyHeuristics(State{StartTime: "15:00"}, "", today)
	assert.Equal(t, "15:30", state.EndTime)

	state = applyHeuristics(State{StartTime: "15:00", EndTime: "16:00"}, "", today)
	assert.Equal(t, "16:00", state.EndTime)
}

func TestFallbackIntent(t *testing.T) {
	assert.Equal(t, IntentBook, fallbackIntent("please book it", State{}))
	assert.Equal(t, IntentBook, fallbackIntent("yes, confirm", State{}))
	assert.Equal(t, IntentCheck, fallbackIntent("is she free tomorrow?", State{DoctorID: 2}))
	assert.Equal(t, IntentList, fallbackIntent("hello", State{}))
}

func TestPeriodKeyword(t *testing.T) {
	assert.Equal(t, "morning", periodKeyword("Tomorrow Morning please"))
	assert.Equal(t, "evening", periodKeyword("any night slot"))
	assert.Equal(t, "", periodKeyword("at 3pm"))
}

func TestCleanDoctorRef(t *testing.T) {
	assert.Equal(t, "smith", cleanDoctorRef("Dr. Smith"))
	assert.Equal(t, "smith", cleanDoctorRef("dr smith"))
	assert.Equal(t, "smith", cleanDoctorRef("Doctor Smith"))
	assert.Equal(t, "smith", cleanDoctorRef("smith"))
}
