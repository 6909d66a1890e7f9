package availability

import (
	"strings"

	"github.com/clinicdesk/scheduler-ai/internal/normalize"
)

// PeriodOf buckets an HH:MM start time: before 12:00 is morning, 12:00 to
// 16:59 is afternoon, 17:00 onward is evening. Unparseable times return "".
func PeriodOf(startTime string) string {
	h := normalize.Hour(startTime)
	switch {
	case h < 0:
		return ""
	case h < 12:
		return PeriodMorning
	case h < 17:
		return PeriodAfternoon
	default:
		return PeriodEvening
	}
}

// MatchesPeriod reports whether a start time falls in the requested period.
// An empty or unrecognized period matches everything.
func MatchesPeriod(startTime, period string) bool {
	period = strings.ToLower(strings.TrimSpace(period))
	switch period {
	case PeriodMorning, PeriodAfternoon, PeriodEvening:
		return PeriodOf(startTime) == period
	default:
		return true
	}
}

// Filter narrows open slots to a preference. An exact time takes precedence
// over a period; with neither set the input is returned unchanged.
func Filter(slots []Slot, exactTime, period string) []Slot {
	if exactTime != "" {
		var out []Slot
		for _, s := range slots {
			if normalize.TrimSeconds(s.StartTime) == exactTime {
				out = append(out, s)
			}
		}
		return out
	}
	if period == "" {
		return slots
	}
	var out []Slot
	for _, s := range slots {
		if MatchesPeriod(s.StartTime, period) {
			out = append(out, s)
		}
	}
	return out
}
