package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockRE     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)?$`)
	canonicalRE = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Time parses a free-text time expression and returns it as 24-hour HH:MM.
// Accepts "3", "3pm", "3 PM", "10:15am", "14:30"; case and internal spaces are
// ignored. Canonical HH:MM input passes through unchanged. Returns ("", false)
// when nothing matches.
func Time(text string) (string, bool) {
	t := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "")
	if t == "" {
		return "", false
	}

	if m := clockRE.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		if hour > 23 || minute > 59 {
			return "", false
		}
		switch m[3] {
		case "pm":
			if hour < 12 {
				hour += 12
			}
		case "am":
			if hour == 12 {
				hour = 0
			}
		}
		return fmt.Sprintf("%02d:%02d", hour, minute), true
	}

	if canonicalRE.MatchString(t) {
		return t, true
	}
	return "", false
}

// AddMinutes shifts a canonical HH:MM clock value forward. The bool reports
// whether the input parsed.
func AddMinutes(clock string, minutes int) (string, bool) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", false
	}
	return t.Add(time.Duration(minutes) * time.Minute).Format("15:04"), true
}

// Hour extracts the hour component from HH:MM or HH:MM:SS. Returns -1 when the
// value does not start with a parseable hour.
func Hour(clock string) int {
	parts := strings.SplitN(clock, ":", 2)
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return -1
	}
	return h
}

// TrimSeconds reduces HH:MM:SS to HH:MM; other values pass through.
func TrimSeconds(clock string) string {
	if len(clock) == 8 && strings.Count(clock, ":") == 2 {
		return clock[:5]
	}
	return clock
}
