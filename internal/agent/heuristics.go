package agent

import (
	"strings"
	"time"

	"github.com/clinicdesk/scheduler-ai/internal/normalize"
)

// applyHeuristics fixes up the merged state with deterministic rules that run
// after every parse, in a fixed order so their interactions are predictable.
func applyHeuristics(state State, message string, today time.Time) State {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	lower := strings.ToLower(message)

	// A relative word in the message overrides a parsed date that landed in
	// the past, which happens when the oracle anchors "tomorrow" to its own
	// training date.
	if state.Date != "" && state.Date < today.Format(normalize.ISODate) {
		switch {
		case strings.Contains(lower, "tomorrow"):
			state.Date = today.AddDate(0, 0, 1).Format(normalize.ISODate)
		case strings.Contains(lower, "today"):
			state.Date = today.Format(normalize.ISODate)
		}
	}

	// "next week" means the coming Monday. It overrides the date unless the
	// patient already named a specific later day.
	if strings.Contains(lower, "next week") {
		monday := nextMonday(today).Format(normalize.ISODate)
		if state.Date == "" || state.Date < monday {
			state.Date = monday
		}
	}

	if state.StartTime != "" && state.EndTime == "" {
		if end, ok := normalize.AddMinutes(state.StartTime, 30); ok {
			state.EndTime = end
		}
	}

	if state.Intent == "" {
		state.Intent = fallbackIntent(message, state)
	}
	return state
}

// nextMonday returns the Monday after today; a Monday today still yields the
// following one.
func nextMonday(today time.Time) time.Time {
	days := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return today.AddDate(0, 0, days)
}
