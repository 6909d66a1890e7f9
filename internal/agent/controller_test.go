package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/scheduler-ai/internal/availability"
	"github.com/clinicdesk/scheduler-ai/internal/booking"
	"github.com/clinicdesk/scheduler-ai/internal/directory"
)

// scriptedOracle returns canned responses in order.
type scriptedOracle struct {
	responses []string
	calls     int
	err       error
}

func (o *scriptedOracle) Infer(ctx context.Context, system, prompt string) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	if o.calls >= len(o.responses) {
		return "{}", nil
	}
	resp := o.responses[o.calls]
	o.calls++
	return resp, nil
}

// fakeSlots serves slots from memory, keyed by doctor and date.
type fakeSlots struct {
	open map[string][]availability.Slot
}

func slotKey(doctorID int64, date string) string {
	return fmt.Sprintf("%d|%s", doctorID, date)
}

func (f *fakeSlots) ListOpen(ctx context.Context, doctorID int64, date string) ([]availability.Slot, error) {
	return f.open[slotKey(doctorID, date)], nil
}

func (f *fakeSlots) ForwardWindow(ctx context.Context, doctorID int64, fromDate string, days int) ([]availability.DaySlots, error) {
	var out []availability.DaySlots
	for date, slots := range f.open {
		var d string
		var id int64
		fmt.Sscanf(date, "%d|%s", &id, &d)
		if id == doctorID && d >= fromDate {
			out = append(out, availability.DaySlots{Date: d, Slots: slots})
		}
	}
	return out, nil
}

func (f *fakeSlots) EarliestOpen(ctx context.Context, doctorID int64, fromDate string) (*availability.Slot, error) {
	var best *availability.Slot
	for key, slots := range f.open {
		var d string
		var id int64
		fmt.Sscanf(key, "%d|%s", &id, &d)
		if id != doctorID || d < fromDate || len(slots) == 0 {
			continue
		}
		s := slots[0]
		if best == nil || s.Date < best.Date || (s.Date == best.Date && s.StartTime < best.StartTime) {
			best = &s
		}
	}
	return best, nil
}

// fakeBooker records requests and can simulate conflicts.
type fakeBooker struct {
	booked []booking.Request
	err    error
	nextID int64
}

func (f *fakeBooker) Book(ctx context.Context, req booking.Request) (*booking.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.booked = append(f.booked, req)
	f.nextID++
	return &booking.Appointment{
		ID:        100 + f.nextID,
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   "15:30",
		Status:    booking.StatusScheduled,
	}, nil
}

func fixedToday() time.Time {
	// Wednesday.
	return time.Date(2025, time.August, 27, 10, 0, 0, 0, time.UTC)
}

func newTestController(oracle Oracle, slots *fakeSlots, booker *fakeBooker) *Controller {
	roster := directory.NewInMemoryRepository()
	roster.AddDoctor(directory.Doctor{ID: 1, Name: "Dr. John Smith", Specialization: "Cardiology"})
	roster.AddDoctor(directory.Doctor{ID: 2, Name: "Dr. Sarah Johnson", Specialization: "Dermatology"})
	roster.AddPatient(directory.Patient{ID: 7, Name: "Alice Brown", Email: "alice@example.com"})

	if slots == nil {
		slots = &fakeSlots{open: map[string][]availability.Slot{}}
	}
	if booker == nil {
		booker = &fakeBooker{}
	}
	return NewController(roster, slots, booker, oracle, nil).WithClock(fixedToday)
}

func TestTurnExactSlotBooksImmediately(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "book_appointment", "doctor_name": "Dr. Smith", "patient_name": "Alice Brown", "date": "tomorrow", "time": "3 PM"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-28"): {
			{ID: 11, DoctorID: 1, Date: "2025-08-28", StartTime: "15:00", EndTime: "15:30"},
		},
	}}
	booker := &fakeBooker{}
	controller := newTestController(oracle, slots, booker)

	turn, err := controller.HandleTurn(context.Background(), "Book the 3 PM slot with Dr. Smith tomorrow, this is Alice Brown", State{})
	require.NoError(t, err)

	require.NotNil(t, turn.Booked)
	assert.Contains(t, turn.Reply, "Confirmation")
	require.Len(t, booker.booked, 1)
	assert.Equal(t, int64(7), booker.booked[0].PatientID)
	assert.Equal(t, int64(1), booker.booked[0].DoctorID)
	assert.Equal(t, "2025-08-28", booker.booked[0].Date)
	assert.Equal(t, "15:00", booker.booked[0].StartTime)
	// Canonical roster names were adopted.
	assert.Equal(t, "Dr. John Smith", turn.State.DoctorName)
	assert.Equal(t, "Alice Brown", turn.State.PatientName)
}

func TestTurnMissingDateClarifies(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "check_availability", "doctor_name": "Dr. Smith"}`,
	}}
	controller := newTestController(oracle, nil, nil)

	turn, err := controller.HandleTurn(context.Background(), "I'd like to see Dr. Smith", State{})
	require.NoError(t, err)

	assert.True(t, turn.NeedInfo)
	assert.Equal(t, []string{"date"}, turn.Missing)
	// Learned fields persist for the next turn.
	assert.Equal(t, int64(1), turn.State.DoctorID)
}

func TestMultiTurnFillsSlotsIncrementally(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "check_availability", "doctor_name": "Dr. Smith"}`,
		`{"date": "tomorrow", "time": "morning"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-28"): {
			{ID: 11, DoctorID: 1, Date: "2025-08-28", StartTime: "09:00", EndTime: "09:30"},
			{ID: 12, DoctorID: 1, Date: "2025-08-28", StartTime: "15:00", EndTime: "15:30"},
		},
	}}
	controller := newTestController(oracle, slots, nil)

	turn, err := controller.HandleTurn(context.Background(), "I'd like to see Dr. Smith", State{})
	require.NoError(t, err)
	require.True(t, turn.NeedInfo)

	turn, err = controller.HandleTurn(context.Background(), "tomorrow morning", turn.State)
	require.NoError(t, err)

	assert.False(t, turn.NeedInfo)
	require.NotNil(t, turn.UI)
	assert.Equal(t, UIResults, turn.UI.Type)
	// Morning filter excludes the 15:00 slot.
	require.Len(t, turn.UI.Slots, 1)
	assert.Equal(t, "09:00", turn.UI.Slots[0].StartTime)
	assert.Equal(t, "2025-08-28", turn.State.Date)
}

func TestTurnNoMatchOffersAlternatives(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "check_availability", "doctor_name": "Dr. Smith", "date": "tomorrow", "time": "8am"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-30"): {
			{ID: 20, DoctorID: 1, Date: "2025-08-30", StartTime: "10:00", EndTime: "10:30"},
		},
	}}
	controller := newTestController(oracle, slots, nil)

	turn, err := controller.HandleTurn(context.Background(), "Can I see Dr. Smith tomorrow at 8am?", State{})
	require.NoError(t, err)

	require.NotNil(t, turn.UI)
	assert.Equal(t, UIAlternatives, turn.UI.Type)
	assert.Contains(t, turn.Reply, "2025-08-30")
	// The unavailable requested time was dropped so it cannot book later.
	assert.Empty(t, turn.State.StartTime)
}

func TestTurnListsDoctorsWithoutDoctorReference(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "list_doctors"}`,
	}}
	controller := newTestController(oracle, nil, nil)

	turn, err := controller.HandleTurn(context.Background(), "What doctors do you have?", State{})
	require.NoError(t, err)

	require.NotNil(t, turn.UI)
	assert.Equal(t, UIDoctors, turn.UI.Type)
	assert.Len(t, turn.UI.Doctors, 2)
	assert.Contains(t, turn.Reply, "Dr. Sarah Johnson")
}

func TestTurnListWithoutDateShowsTodaysOpenings(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "list_doctors"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-27"): {
			{ID: 30, DoctorID: 1, Date: "2025-08-27", StartTime: "09:00", EndTime: "09:30"},
		},
	}}
	controller := newTestController(oracle, slots, nil)

	turn, err := controller.HandleTurn(context.Background(), "What doctors do you have?", State{})
	require.NoError(t, err)

	// A bare listing request defaults to today's calendar.
	assert.Equal(t, "2025-08-27", turn.State.Date)
	assert.Contains(t, turn.Reply, "09:00")
	require.NotNil(t, turn.UI)
	assert.Equal(t, UIResults, turn.UI.Type)
	require.Len(t, turn.UI.Slots, 1)
	assert.Equal(t, "09:00", turn.UI.Slots[0].StartTime)
}

func TestTurnUnknownDoctorShowsRoster(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "check_availability", "doctor_name": "Dr. Strange", "date": "tomorrow"}`,
		`{"id": 0}`,
	}}
	controller := newTestController(oracle, nil, nil)

	turn, err := controller.HandleTurn(context.Background(), "Is Dr. Strange free tomorrow?", State{})
	require.NoError(t, err)

	assert.True(t, turn.NeedInfo)
	assert.Equal(t, []string{"doctor name"}, turn.Missing)
	assert.Contains(t, turn.Reply, "Dr. Strange")
	assert.Contains(t, turn.Reply, "Dr. John Smith")
	assert.Empty(t, turn.State.DoctorName)
}

func TestTurnBookingConflictOffersAlternatives(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "book_appointment", "doctor_name": "Dr. Smith", "patient_name": "Alice Brown", "date": "tomorrow", "time": "3 PM"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-28"): {
			{ID: 11, DoctorID: 1, Date: "2025-08-28", StartTime: "15:00", EndTime: "15:30"},
		},
		slotKey(1, "2025-08-29"): {
			{ID: 12, DoctorID: 1, Date: "2025-08-29", StartTime: "09:00", EndTime: "09:30"},
		},
	}}
	booker := &fakeBooker{err: booking.ErrSlotConflict}
	controller := newTestController(oracle, slots, booker)

	turn, err := controller.HandleTurn(context.Background(), "Book 3 PM with Dr. Smith tomorrow, Alice Brown here", State{})
	require.NoError(t, err)

	assert.Nil(t, turn.Booked)
	assert.Contains(t, turn.Reply, "just taken")
	assert.Contains(t, turn.Reply, "2025-08-29")
}

func TestTurnBookingWithoutPatientAsksForName(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "book_appointment", "doctor_name": "Dr. Smith", "date": "tomorrow", "time": "3 PM"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-28"): {
			{ID: 11, DoctorID: 1, Date: "2025-08-28", StartTime: "15:00", EndTime: "15:30"},
		},
	}}
	controller := newTestController(oracle, slots, nil)

	turn, err := controller.HandleTurn(context.Background(), "Book 3 PM with Dr. Smith tomorrow", State{})
	require.NoError(t, err)

	assert.True(t, turn.NeedInfo)
	assert.Equal(t, []string{"patient name"}, turn.Missing)
	// The pinned slot stays in state for the follow-up turn.
	assert.Equal(t, "15:00", turn.State.StartTime)
}

func TestTurnOracleFailureFallsBackToKeywords(t *testing.T) {
	oracle := &scriptedOracle{err: context.DeadlineExceeded}
	controller := newTestController(oracle, nil, nil)

	var statuses []string
	controller.OnOracle = func(status string) { statuses = append(statuses, status) }

	turn, err := controller.HandleTurn(context.Background(), "hello there", State{})
	require.NoError(t, err)

	assert.Equal(t, []string{OracleTimeout}, statuses)
	require.NotNil(t, turn.UI)
	assert.Equal(t, UIDoctors, turn.UI.Type)
}

func TestTurnMalformedOracleOutputFallsBack(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{"I am sorry, I cannot help with that."}}
	controller := newTestController(oracle, nil, nil)

	var statuses []string
	controller.OnOracle = func(status string) { statuses = append(statuses, status) }

	turn, err := controller.HandleTurn(context.Background(), "anything open tomorrow morning?", State{})
	require.NoError(t, err)

	assert.Equal(t, []string{OracleMalformed}, statuses)
	// Keyword fallback still understood the date and routed to browsing.
	assert.Equal(t, "2025-08-28", turn.State.Date)
}

func TestResolverOracleChooser(t *testing.T) {
	roster := directory.NewInMemoryRepository()
	roster.AddDoctor(directory.Doctor{ID: 1, Name: "Dr. John Smith", Specialization: "Cardiology"})
	roster.AddDoctor(directory.Doctor{ID: 2, Name: "Dr. Sarah Johnson", Specialization: "Dermatology"})

	oracle := &scriptedOracle{responses: []string{`{"id": 2}`}}
	resolver := NewResolver(roster, oracle)

	doctor, err := resolver.ResolveDoctor(context.Background(), "the skin doctor")
	require.NoError(t, err)
	assert.Equal(t, int64(2), doctor.ID)
}

func TestResolverRejectsOutOfRosterPick(t *testing.T) {
	roster := directory.NewInMemoryRepository()
	roster.AddDoctor(directory.Doctor{ID: 1, Name: "Dr. John Smith", Specialization: "Cardiology"})

	oracle := &scriptedOracle{responses: []string{`{"id": 99}`}}
	resolver := NewResolver(roster, oracle)

	_, err := resolver.ResolveDoctor(context.Background(), "someone else entirely")
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
}

func TestTurnMetricsHook(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{`{"intent": "list_doctors"}`}}
	controller := newTestController(oracle, nil, nil)

	var intents, outcomes []string
	controller.OnTurn = func(intent, outcome string) {
		intents = append(intents, intent)
		outcomes = append(outcomes, outcome)
	}
	var latencies []float64
	controller.OnLatency = func(intent string, seconds float64) {
		assert.Equal(t, IntentList, intent)
		latencies = append(latencies, seconds)
	}

	_, err := controller.HandleTurn(context.Background(), "who do you have?", State{})
	require.NoError(t, err)
	assert.Equal(t, []string{IntentList}, intents)
	assert.Equal(t, []string{"list"}, outcomes)
	require.Len(t, latencies, 1)
	assert.GreaterOrEqual(t, latencies[0], 0.0)
}

func TestResolverMatchesPatientByEmail(t *testing.T) {
	roster := directory.NewInMemoryRepository()
	roster.AddPatient(directory.Patient{ID: 7, Name: "Alice Brown", Email: "alice@example.com"})
	resolver := NewResolver(roster, nil)

	patient, err := resolver.ResolvePatient(context.Background(), "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(7), patient.ID)
}

func TestTurnResolvesPatientFromEmail(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "book_appointment", "doctor_name": "Dr. Smith", "patient_email": "alice@example.com", "date": "tomorrow", "time": "3 PM"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-28"): {
			{ID: 11, DoctorID: 1, Date: "2025-08-28", StartTime: "15:00", EndTime: "15:30"},
		},
	}}
	booker := &fakeBooker{}
	controller := newTestController(oracle, slots, booker)

	turn, err := controller.HandleTurn(context.Background(), "Book Dr. Smith tomorrow 3 PM for alice@example.com", State{})
	require.NoError(t, err)

	require.Len(t, booker.booked, 1)
	assert.Equal(t, int64(7), booker.booked[0].PatientID)
	assert.Equal(t, "Alice Brown", turn.State.PatientName)
	assert.Equal(t, "alice@example.com", turn.State.PatientEmail)
}
