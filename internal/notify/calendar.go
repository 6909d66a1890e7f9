package notify

import (
	"context"

	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// CalendarSender places an appointment on an external calendar.
type CalendarSender interface {
	AddEvent(ctx context.Context, event CalendarEvent) error
}

// CalendarEvent is a minimal calendar entry.
type CalendarEvent struct {
	Title     string
	Date      string
	StartTime string
	EndTime   string
	Attendee  string
}

// StubCalendarSender records invites in the log until a real calendar
// integration lands.
type StubCalendarSender struct {
	logger *logging.Logger
}

// NewStubCalendarSender creates the logging stub.
func NewStubCalendarSender(logger *logging.Logger) *StubCalendarSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubCalendarSender{logger: logger}
}

// AddEvent logs the invite without sending it anywhere.
func (s *StubCalendarSender) AddEvent(ctx context.Context, event CalendarEvent) error {
	s.logger.Info("stub calendar: would add event",
		"title", event.Title,
		"date", event.Date,
		"start_time", event.StartTime,
		"attendee", event.Attendee,
	)
	return nil
}

var _ CalendarSender = (*StubCalendarSender)(nil)
