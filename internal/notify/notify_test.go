package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/scheduler-ai/internal/booking"
	"github.com/clinicdesk/scheduler-ai/internal/directory"
)

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func testRoster() *directory.InMemoryRepository {
	roster := directory.NewInMemoryRepository()
	roster.AddDoctor(directory.Doctor{ID: 1, Name: "Dr. John Smith", Specialization: "Cardiology"})
	roster.AddPatient(directory.Patient{ID: 7, Name: "Alice Brown", Email: "alice@example.com", Phone: "+15550001111"})
	return roster
}

func sampleAppointment() booking.Appointment {
	return booking.Appointment{
		ID:        101,
		PatientID: 7,
		DoctorID:  1,
		Date:      "2025-09-01",
		StartTime: "15:00",
		EndTime:   "15:30",
		Status:    booking.StatusScheduled,
	}
}

func TestDispatcherFansOutBooked(t *testing.T) {
	email := &fakeEmailSender{}
	var results []string
	d := NewDispatcher(testRoster(), email, NewStubCalendarSender(nil), nil, nil, nil)
	d.OnResult = func(channel string, ok bool) {
		if ok {
			results = append(results, channel)
		}
	}

	counts := d.AppointmentBooked(context.Background(), sampleAppointment())

	require.Len(t, email.sent, 1)
	assert.Equal(t, "alice@example.com", email.sent[0].To)
	assert.Contains(t, email.sent[0].Body, "Dr. John Smith")
	assert.Contains(t, email.sent[0].Body, "2025-09-01")

	// WhatsApp is unconfigured, so it fails; email and calendar succeed.
	assert.ElementsMatch(t, []string{ChannelEmail, ChannelCalendar}, results)
	assert.Equal(t, booking.DeliveryCounts{Email: 1, Calendar: 1}, counts)
}

func TestDispatcherChannelFailureIsIsolated(t *testing.T) {
	email := &fakeEmailSender{err: context.DeadlineExceeded}
	var failed, succeeded []string
	d := NewDispatcher(testRoster(), email, NewStubCalendarSender(nil), nil, nil, nil)
	d.OnResult = func(channel string, ok bool) {
		if ok {
			succeeded = append(succeeded, channel)
		} else {
			failed = append(failed, channel)
		}
	}

	// Must not panic or propagate the email error.
	counts := d.AppointmentBooked(context.Background(), sampleAppointment())
	assert.Contains(t, failed, ChannelEmail)
	assert.Contains(t, succeeded, ChannelCalendar)
	assert.Equal(t, booking.DeliveryCounts{Calendar: 1}, counts)
}

func TestDispatcherEnqueuesWhenQueueConfigured(t *testing.T) {
	queue := NewMemoryQueue(8)
	d := NewDispatcher(testRoster(), &fakeEmailSender{}, NewStubCalendarSender(nil), nil, queue, nil)

	d.AppointmentBooked(context.Background(), sampleAppointment())

	messages, err := queue.Receive(context.Background(), 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, messages)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(messages[0].Body), &job))
	assert.Equal(t, ChannelEmail, job.Channel)
	assert.Equal(t, "alice@example.com", job.Recipient)
}

func TestWorkerDrainsQueue(t *testing.T) {
	queue := NewMemoryQueue(8)
	email := &fakeEmailSender{}
	dispatcher := NewDispatcher(testRoster(), email, NewStubCalendarSender(nil), nil, nil, nil)

	job, _ := json.Marshal(Job{Channel: ChannelEmail, Recipient: "alice@example.com", Subject: "hi", Body: "hello"})
	require.NoError(t, queue.Send(context.Background(), string(job)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		NewWorker(queue, dispatcher, nil).Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		email.mu.Lock()
		defer email.mu.Unlock()
		return len(email.sent) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestWhatsAppTruncatesAndSends(t *testing.T) {
	var bodies []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(data, &payload)
		bodies = append(bodies, payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWhatsAppSender(WhatsAppConfig{
		Token:         "token",
		PhoneNumberID: "12345",
		BaseURL:       server.URL,
	}, nil)
	require.NotNil(t, sender)

	long := strings.Repeat("x", 1500)
	require.NoError(t, sender.Send(context.Background(), "+15550001111", long))

	require.Len(t, bodies, 1)
	text := bodies[0]["text"].(map[string]any)
	assert.Len(t, text["body"], 1000)
}

func TestWhatsAppFallsBackToTemplate(t *testing.T) {
	var types []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var payload map[string]any
		_ = json.Unmarshal(data, &payload)
		kind, _ := payload["type"].(string)
		types = append(types, kind)
		if kind == "text" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWhatsAppSender(WhatsAppConfig{
		Token:         "token",
		PhoneNumberID: "12345",
		TemplateName:  "appointment_update",
		BaseURL:       server.URL,
	}, nil)

	require.NoError(t, sender.Send(context.Background(), "+15550001111", "hello"))
	assert.Equal(t, []string{"text", "template"}, types)
}

func TestWhatsAppSenderRequiresCredentials(t *testing.T) {
	assert.Nil(t, NewWhatsAppSender(WhatsAppConfig{}, nil))
}
