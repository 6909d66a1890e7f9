// Package reports answers staff questions about the appointment book:
// counts, busiest days, symptom tallies and schedules for a given day. A
// small rule set interprets the question; the numbers always come straight
// from SQL, never from a model.
package reports

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clinicdesk/scheduler-ai/internal/normalize"
)

// Question kinds.
const (
	KindCount      = "count_appointments"
	KindTimes      = "list_times"
	KindSymptom    = "count_symptom"
	KindBusiestDay = "busiest_day"
)

// Query is an interpreted staff question.
type Query struct {
	Kind     string
	Date     string // single-day questions
	FromDate string // range questions, inclusive
	ToDate   string
	Keyword  string // symptom questions
}

var (
	lastDaysRE = regexp.MustCompile(`last\s+(\d+)\s+days?`)
	symptomRE  = regexp.MustCompile(`(?:with|complaining of|reporting|symptom[s]?\s*(?:of)?)\s+([a-z ]+?)(?:\?|$|\s+(?:on|in|last|this))`)
	weekdays   = map[string]time.Weekday{
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
		"sunday":    time.Sunday,
	}
)

// Interpret classifies a staff question. ok is false when no rule matched.
func Interpret(question string, today time.Time) (Query, bool) {
	lower := strings.ToLower(strings.TrimSpace(question))
	if lower == "" {
		return Query{}, false
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	q := Query{}

	switch {
	case strings.Contains(lower, "busiest"):
		q.Kind = KindBusiestDay
	case symptomRE.MatchString(lower):
		q.Kind = KindSymptom
		q.Keyword = strings.TrimSpace(symptomRE.FindStringSubmatch(lower)[1])
	case strings.Contains(lower, "what time") || strings.Contains(lower, "which time") || strings.Contains(lower, "schedule"):
		q.Kind = KindTimes
	case strings.Contains(lower, "how many") || strings.Contains(lower, "count") || strings.Contains(lower, "number of"):
		q.Kind = KindCount
	default:
		return Query{}, false
	}

	if m := lastDaysRE.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		// "Last 7 days" spans seven days ending today, so look back six.
		q.FromDate = today.AddDate(0, 0, -(n - 1)).Format(normalize.ISODate)
		q.ToDate = today.Format(normalize.ISODate)
		return q, true
	}

	if date, ok := questionDate(lower, today); ok {
		q.Date = date
	}

	if q.Kind == KindTimes && q.Date == "" {
		q.Date = today.Format(normalize.ISODate)
	}
	return q, true
}

// questionDate finds a day reference: relative words, a weekday name (the
// most recent past occurrence, since reports look backward), or anything the
// date normalizer accepts.
func questionDate(lower string, today time.Time) (string, bool) {
	switch {
	case strings.Contains(lower, "yesterday"):
		return today.AddDate(0, 0, -1).Format(normalize.ISODate), true
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1).Format(normalize.ISODate), true
	case strings.Contains(lower, "today"):
		return today.Format(normalize.ISODate), true
	}

	for name, weekday := range weekdays {
		if !strings.Contains(lower, name) {
			continue
		}
		days := (int(today.Weekday()) - int(weekday) + 7) % 7
		if days == 0 {
			days = 7
		}
		return today.AddDate(0, 0, -days).Format(normalize.ISODate), true
	}

	for _, token := range strings.Fields(lower) {
		token = strings.Trim(token, "?.,!")
		if len(token) < 8 {
			continue
		}
		if date, ok := normalize.Date(token, today); ok {
			return date, true
		}
	}
	return "", false
}
