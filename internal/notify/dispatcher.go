package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/clinicdesk/scheduler-ai/internal/booking"
	"github.com/clinicdesk/scheduler-ai/internal/directory"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// Notification channels.
const (
	ChannelEmail    = "email"
	ChannelCalendar = "calendar"
	ChannelWhatsApp = "whatsapp"
)

// Job is one channel delivery. Jobs are JSON-serializable so they can ride
// the queue.
type Job struct {
	Channel       string `json:"channel"`
	Recipient     string `json:"recipient"`
	RecipientName string `json:"recipient_name,omitempty"`
	Subject       string `json:"subject,omitempty"`
	Body          string `json:"body"`
	Date          string `json:"date,omitempty"`
	StartTime     string `json:"start_time,omitempty"`
	EndTime       string `json:"end_time,omitempty"`
}

// Dispatcher fans appointment events out to the configured channels. Every
// delivery is best effort: a channel failure is logged and counted, never
// propagated to the booking path.
type Dispatcher struct {
	email    EmailSender
	calendar CalendarSender
	whatsapp *WhatsAppSender
	roster   directory.Repository
	queue    queueClient
	logger   *logging.Logger

	// OnResult is an optional hook for metrics, called once per delivery
	// attempt with the channel name and whether it succeeded.
	OnResult func(channel string, ok bool)
}

// NewDispatcher wires the dispatcher. Any sender may be nil; nil channels are
// skipped. When queue is non-nil, jobs are enqueued for the worker instead of
// delivered inline.
func NewDispatcher(roster directory.Repository, email EmailSender, calendar CalendarSender, whatsapp *WhatsAppSender, queue queueClient, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		email:    email,
		calendar: calendar,
		whatsapp: whatsapp,
		roster:   roster,
		queue:    queue,
		logger:   logger.Component("notify"),
	}
}

// Dispatch delivers one job on its channel.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) error {
	switch job.Channel {
	case ChannelEmail:
		if d.email == nil {
			return fmt.Errorf("notify: email channel not configured")
		}
		return d.email.Send(ctx, EmailMessage{
			To:      job.Recipient,
			ToName:  job.RecipientName,
			Subject: job.Subject,
			Body:    job.Body,
		})
	case ChannelCalendar:
		if d.calendar == nil {
			return fmt.Errorf("notify: calendar channel not configured")
		}
		return d.calendar.AddEvent(ctx, CalendarEvent{
			Title:     job.Subject,
			Date:      job.Date,
			StartTime: job.StartTime,
			EndTime:   job.EndTime,
			Attendee:  job.Recipient,
		})
	case ChannelWhatsApp:
		if d.whatsapp == nil {
			return fmt.Errorf("notify: whatsapp channel not configured")
		}
		return d.whatsapp.Send(ctx, job.Recipient, job.Body)
	default:
		return fmt.Errorf("notify: unknown channel %q", job.Channel)
	}
}

// DispatchJSON decodes a queued job and delivers it.
func (d *Dispatcher) DispatchJSON(ctx context.Context, data []byte) error {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("notify: decode job: %w", err)
	}
	return d.Dispatch(ctx, job)
}

// AppointmentBooked sends confirmations for a new appointment and reports
// how many deliveries landed per channel.
func (d *Dispatcher) AppointmentBooked(ctx context.Context, appt booking.Appointment) booking.DeliveryCounts {
	return d.fanOut(ctx, appt, "Appointment confirmed",
		"Your appointment with %s is confirmed for %s at %s.")
}

// AppointmentRescheduled tells the patient their visit moved.
func (d *Dispatcher) AppointmentRescheduled(ctx context.Context, appt booking.Appointment, oldDate string) booking.DeliveryCounts {
	return d.fanOut(ctx, appt, "Appointment rescheduled",
		"Your appointment with %s has been moved to %s at %s.")
}

func (d *Dispatcher) fanOut(ctx context.Context, appt booking.Appointment, subject, bodyFormat string) booking.DeliveryCounts {
	var counts booking.DeliveryCounts
	patient, err := d.roster.GetPatient(ctx, appt.PatientID)
	if err != nil {
		d.logger.Warn("notification skipped, patient lookup failed", "patient_id", appt.PatientID, "error", err)
		return counts
	}
	doctorName := "your doctor"
	if doctor, err := d.roster.GetDoctor(ctx, appt.DoctorID); err == nil {
		doctorName = doctor.Name
	}

	body := fmt.Sprintf(bodyFormat, doctorName, appt.Date, appt.StartTime)

	var jobs []Job
	if patient.Email != "" {
		jobs = append(jobs,
			Job{
				Channel:       ChannelEmail,
				Recipient:     patient.Email,
				RecipientName: patient.Name,
				Subject:       subject,
				Body:          body,
			},
			Job{
				Channel:   ChannelCalendar,
				Recipient: patient.Email,
				Subject:   fmt.Sprintf("Appointment with %s", doctorName),
				Date:      appt.Date,
				StartTime: appt.StartTime,
				EndTime:   appt.EndTime,
			},
		)
	}
	if patient.Phone != "" {
		jobs = append(jobs, Job{
			Channel:   ChannelWhatsApp,
			Recipient: patient.Phone,
			Body:      body,
		})
	}

	for _, job := range jobs {
		if !d.deliver(ctx, job) {
			continue
		}
		switch job.Channel {
		case ChannelEmail:
			counts.Email++
		case ChannelCalendar:
			counts.Calendar++
		case ChannelWhatsApp:
			counts.WhatsApp++
		}
	}
	return counts
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) bool {
	if d.queue != nil {
		data, err := json.Marshal(job)
		if err == nil {
			err = d.queue.Send(ctx, string(data))
		}
		if err != nil {
			d.logger.Error("notification enqueue failed", "channel", job.Channel, "error", err)
			d.report(job.Channel, false)
			return false
		}
		d.report(job.Channel, true)
		return true
	}

	if err := d.Dispatch(ctx, job); err != nil {
		d.logger.Error("notification delivery failed", "channel", job.Channel, "error", err)
		d.report(job.Channel, false)
		return false
	}
	d.report(job.Channel, true)
	return true
}

func (d *Dispatcher) report(channel string, ok bool) {
	if d.OnResult != nil {
		d.OnResult(channel, ok)
	}
}

var _ booking.Notifier = (*Dispatcher)(nil)
