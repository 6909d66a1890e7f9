// Package normalize converts free-text date and time expressions into the
// canonical forms used everywhere else in the scheduler: dates as YYYY-MM-DD
// and times as 24-hour HH:MM. All functions are pure; callers inject "today"
// so behavior is deterministic in tests.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the canonical date layout.
const ISODate = "2006-01-02"

var (
	ordinalSuffixRE = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)
	bareDayRE       = regexp.MustCompile(`^\d{1,2}$`)
)

// dateLayouts are the natural formats accepted after ISO, today/tomorrow and
// bare ordinal days have been ruled out. Layouts without a year assume the
// current year.
var dateLayouts = []string{
	"2 January 2006",
	"January 2 2006",
	"2 January",
	"January 2",
	"02-01-2006",
	"02/01/2006",
}

// Date parses a free-text date expression and returns it as YYYY-MM-DD.
// Recognized inputs: ISO dates, "today"/"tomorrow", ordinal day-of-month
// ("26th" resolves to the nearest future occurrence of that day, rolling into
// the next month when the day has already passed; days above 28 are clamped to
// 28 so the roll can never produce an invalid month date), and a fixed set of
// natural formats. Returns ("", false) when nothing matches.
func Date(text string, today time.Time) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return "", false
	}

	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	switch s {
	case "today", "todays":
		return today.Format(ISODate), true
	}
	if strings.Contains(s, "tomorrow") {
		return today.AddDate(0, 0, 1).Format(ISODate), true
	}

	if d, err := time.Parse(ISODate, s); err == nil {
		return d.Format(ISODate), true
	}

	s = ordinalSuffixRE.ReplaceAllString(s, "$1")

	if bareDayRE.MatchString(s) {
		day, err := strconv.Atoi(s)
		if err == nil && day >= 1 && day <= 31 {
			if day > 28 {
				day = 28
			}
			cand := time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, time.UTC)
			if cand.Before(today) {
				cand = time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
			}
			return cand.Format(ISODate), true
		}
	}

	for _, layout := range dateLayouts {
		in := s
		if strings.Contains(layout, "January") {
			in = titleWords(s)
		}
		d, err := time.Parse(layout, in)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			d = time.Date(today.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		}
		return d.Format(ISODate), true
	}

	return "", false
}

// titleWords uppercases the first letter of each space-separated word so month
// names match time.Parse's "January" layout token.
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
