package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/clinicdesk/scheduler-ai/internal/availability"
	"github.com/clinicdesk/scheduler-ai/internal/booking"
	"github.com/clinicdesk/scheduler-ai/internal/directory"
	"github.com/clinicdesk/scheduler-ai/internal/normalize"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

var tracer = otel.Tracer("agent")

// alternativeWindowDays is how far past the requested date the agent looks
// for replacement slots.
const alternativeWindowDays = 7

// AvailabilityFinder is the slice of the availability store the controller
// uses.
type AvailabilityFinder interface {
	ListOpen(ctx context.Context, doctorID int64, date string) ([]availability.Slot, error)
	ForwardWindow(ctx context.Context, doctorID int64, fromDate string, days int) ([]availability.DaySlots, error)
	EarliestOpen(ctx context.Context, doctorID int64, fromDate string) (*availability.Slot, error)
}

// Booker commits an agreed slot.
type Booker interface {
	Book(ctx context.Context, req booking.Request) (*booking.Appointment, error)
}

// UI payload kinds rendered by the web client.
const (
	UIDoctors      = "doctors"
	UIResults      = "results"
	UIAlternatives = "alternatives"
	UISelected     = "selected"
)

// UIPayload is structured data accompanying a reply so the client can render
// pickers instead of making the patient type times back.
type UIPayload struct {
	Type         string                  `json:"type"`
	Doctors      []directory.Doctor      `json:"doctors,omitempty"`
	Slots        []availability.Slot     `json:"slots,omitempty"`
	Alternatives []availability.DaySlots `json:"alternatives,omitempty"`
	Selected     *availability.Slot      `json:"selected,omitempty"`
}

// Turn is the outcome of one exchange.
type Turn struct {
	Reply    string               `json:"reply"`
	State    State                `json:"state"`
	NeedInfo bool                 `json:"need_info,omitempty"`
	Missing  []string             `json:"missing,omitempty"`
	UI       *UIPayload           `json:"ui,omitempty"`
	Booked   *booking.Appointment `json:"appointment,omitempty"`
}

// Controller drives the scheduling dialogue.
type Controller struct {
	roster   directory.Repository
	slots    AvailabilityFinder
	booker   Booker
	resolver *Resolver
	oracle   Oracle
	logger   *logging.Logger
	now      func() time.Time

	// OnTurn, OnOracle and OnLatency are optional metrics hooks.
	OnTurn    func(intent, outcome string)
	OnOracle  func(status string)
	OnLatency func(intent string, seconds float64)
}

// NewController wires the dialogue controller. oracle may be nil, in which
// case every turn runs on keyword parsing alone.
func NewController(roster directory.Repository, slots AvailabilityFinder, booker Booker, oracle Oracle, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		roster:   roster,
		slots:    slots,
		booker:   booker,
		resolver: NewResolver(roster, oracle),
		oracle:   oracle,
		logger:   logger.Component("agent"),
		now:      time.Now,
	}
}

// WithClock fixes the controller's notion of "today". Tests use it; callers
// in production leave the default.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// HandleTurn processes one patient message against the session state and
// returns the reply, the updated state and any UI payload.
func (c *Controller) HandleTurn(ctx context.Context, message string, state State) (*Turn, error) {
	ctx, span := tracer.Start(ctx, "Controller.HandleTurn")
	defer span.End()

	defer func(start time.Time) {
		if c.OnLatency == nil {
			return
		}
		intent := state.Intent
		if intent == "" {
			intent = "unknown"
		}
		c.OnLatency(intent, time.Since(start).Seconds())
	}(time.Now())

	today := c.now()

	patch, status := parseUtterance(ctx, c.oracle, message, today)
	if c.OnOracle != nil {
		c.OnOracle(status)
	}
	if status != OracleOK {
		patch = keywordPatch(message, today)
	}
	state = patch.Apply(state)

	if turn := c.resolveReferences(ctx, &state); turn != nil {
		c.report(state.Intent, "clarify")
		return turn, nil
	}

	state = applyHeuristics(state, message, today)

	// Browsing: an explicit listing request, or an availability question
	// with no doctor to pin it to. A bare listing request means today.
	if state.Intent == IntentList || (state.Intent == IntentCheck && !state.HasDoctor()) {
		if state.Date == "" {
			state.Date = today.Format(normalize.ISODate)
		}
		turn, err := c.listDoctors(ctx, state)
		c.report(state.Intent, "list")
		return turn, err
	}

	if missing := missingFields(state); len(missing) > 0 {
		c.report(state.Intent, "clarify")
		return clarify(state, missing), nil
	}

	turn, outcome, err := c.checkAvailability(ctx, state)
	if err != nil {
		c.report(state.Intent, "error")
		return nil, err
	}
	state = turn.State

	// The confirmation prompt itself says "book", so a turn that pinned an
	// exact slot books in the same exchange.
	if wantsBooking(turn.Reply) && state.StartTime != "" && outcome == "selected" {
		bookTurn, bookOutcome, err := c.book(ctx, state)
		if err != nil {
			c.report(state.Intent, "error")
			return nil, err
		}
		c.report(state.Intent, bookOutcome)
		return bookTurn, nil
	}

	c.report(state.Intent, outcome)
	return turn, nil
}

// resolveReferences pins free-text names to roster rows, adopting canonical
// names. A doctor reference that matches nobody returns a clarifying turn.
func (c *Controller) resolveReferences(ctx context.Context, state *State) *Turn {
	if state.DoctorName != "" && state.DoctorID == 0 {
		doctor, err := c.resolver.ResolveDoctor(ctx, state.DoctorName)
		if err != nil {
			if errors.Is(err, directory.ErrDoctorNotFound) {
				turn := c.unknownDoctor(ctx, *state)
				return turn
			}
			c.logger.Error("doctor resolution failed", "ref", state.DoctorName, "error", err)
			return nil
		}
		state.DoctorID = doctor.ID
		state.DoctorName = doctor.Name
	}

	if state.PatientID == 0 {
		ref := state.PatientEmail
		if ref == "" {
			ref = state.PatientName
		}
		if ref != "" {
			patient, err := c.resolver.ResolvePatient(ctx, ref)
			if err == nil {
				state.PatientID = patient.ID
				state.PatientName = patient.Name
				if patient.Email != "" {
					state.PatientEmail = patient.Email
				}
			}
		}
	}
	return nil
}

func (c *Controller) unknownDoctor(ctx context.Context, state State) *Turn {
	doctors, err := c.roster.ListDoctors(ctx)
	if err != nil {
		doctors = nil
	}
	ref := state.DoctorName
	state.DoctorName = ""

	var b strings.Builder
	fmt.Fprintf(&b, "I couldn't find a doctor matching %q.", ref)
	if len(doctors) > 0 {
		b.WriteString(" Our doctors are:\n")
		b.WriteString(doctorLines(doctors))
	}
	return &Turn{
		Reply:    b.String(),
		State:    state,
		NeedInfo: true,
		Missing:  []string{"doctor name"},
		UI:       &UIPayload{Type: UIDoctors, Doctors: doctors},
	}
}

// listDoctors answers a browsing turn. With a date in hand it also shows
// each doctor's openings that day, falling back to their next opening.
func (c *Controller) listDoctors(ctx context.Context, state State) (*Turn, error) {
	doctors, err := c.roster.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Here are our doctors:\n")
	b.WriteString(doctorLines(doctors))

	ui := &UIPayload{Type: UIDoctors, Doctors: doctors}

	if state.Date != "" {
		var allSlots []availability.Slot
		for _, doctor := range doctors {
			open, err := c.slots.ListOpen(ctx, doctor.ID, state.Date)
			if err != nil {
				return nil, err
			}
			open = availability.Filter(open, "", state.Period)
			if len(open) > 0 {
				fmt.Fprintf(&b, "%s on %s: %s\n", doctor.Name, state.Date, slotTimes(open))
				allSlots = append(allSlots, open...)
				continue
			}
			if earliest := c.earliestMatching(ctx, doctor.ID, state); earliest != nil {
				fmt.Fprintf(&b, "%s: next opening %s at %s\n", doctor.Name, earliest.Date, earliest.StartTime)
				allSlots = append(allSlots, *earliest)
			}
		}
		if len(allSlots) > 0 {
			ui = &UIPayload{Type: UIResults, Doctors: doctors, Slots: allSlots}
		}
	}
	b.WriteString("Who would you like to see?")

	return &Turn{Reply: b.String(), State: state, UI: ui}, nil
}

// earliestMatching finds a doctor's next opening. With a period in play it
// scans the forward window for the first slot in that period; otherwise the
// plain earliest slot wins.
func (c *Controller) earliestMatching(ctx context.Context, doctorID int64, state State) *availability.Slot {
	if state.Period == "" {
		earliest, err := c.slots.EarliestOpen(ctx, doctorID, state.Date)
		if err != nil {
			return nil
		}
		return earliest
	}

	window, err := c.slots.ForwardWindow(ctx, doctorID, state.Date, alternativeWindowDays)
	if err != nil {
		return nil
	}
	for _, day := range window {
		if matched := availability.Filter(day.Slots, "", state.Period); len(matched) > 0 {
			slot := matched[0]
			return &slot
		}
	}
	return nil
}

// checkAvailability answers a pinned doctor-and-date question. The outcome
// label distinguishes an exact slot ("selected") from open lists and
// alternatives.
func (c *Controller) checkAvailability(ctx context.Context, state State) (*Turn, string, error) {
	open, err := c.slots.ListOpen(ctx, state.DoctorID, state.Date)
	if err != nil {
		return nil, "", err
	}
	matched := availability.Filter(open, state.StartTime, state.Period)

	if state.StartTime != "" && len(matched) > 0 {
		slot := matched[0]
		state.StartTime = normalize.TrimSeconds(slot.StartTime)
		state.EndTime = normalize.TrimSeconds(slot.EndTime)
		reply := fmt.Sprintf("%s is available on %s at %s. Say 'book' to confirm.",
			state.DoctorName, slot.Date, state.StartTime)
		return &Turn{
			Reply: reply,
			State: state,
			UI:    &UIPayload{Type: UISelected, Selected: &slot},
		}, "selected", nil
	}

	if len(matched) > 0 {
		reply := fmt.Sprintf("%s is available on %s at: %s. Which time works for you?",
			state.DoctorName, state.Date, slotTimes(matched))
		return &Turn{
			Reply: reply,
			State: state,
			UI:    &UIPayload{Type: UIResults, Slots: matched},
		}, "results", nil
	}

	return c.alternatives(ctx, state)
}

func (c *Controller) alternatives(ctx context.Context, state State) (*Turn, string, error) {
	window, err := c.slots.ForwardWindow(ctx, state.DoctorID, state.Date, alternativeWindowDays)
	if err != nil {
		return nil, "", err
	}

	// The requested time is gone; stop carrying it.
	state.StartTime = ""
	state.EndTime = ""

	var b strings.Builder
	fmt.Fprintf(&b, "%s has nothing open matching that on %s.", state.DoctorName, state.Date)
	if len(window) == 0 {
		b.WriteString(" I found no openings in the following week either. Would another doctor work?")
		return &Turn{Reply: b.String(), State: state, UI: &UIPayload{Type: UIAlternatives}}, "alternatives", nil
	}

	b.WriteString(" Nearest openings:\n")
	for _, day := range window {
		fmt.Fprintf(&b, "%s: %s\n", day.Date, slotTimes(day.Slots))
	}
	b.WriteString("Would any of these work?")
	return &Turn{
		Reply: b.String(),
		State: state,
		UI:    &UIPayload{Type: UIAlternatives, Alternatives: window},
	}, "alternatives", nil
}

// book commits the pinned slot. A missing patient identity turns into a
// clarification rather than an error.
func (c *Controller) book(ctx context.Context, state State) (*Turn, string, error) {
	if state.PatientID == 0 {
		turn := clarify(state, []string{"patient name"})
		turn.Reply = "I can book that. What's the patient's name?"
		return turn, "clarify", nil
	}

	appt, err := c.booker.Book(ctx, booking.Request{
		PatientID: state.PatientID,
		DoctorID:  state.DoctorID,
		Date:      state.Date,
		StartTime: state.StartTime,
		Symptoms:  state.Symptoms,
	})
	if err != nil {
		if errors.Is(err, booking.ErrSlotConflict) {
			c.logger.Warn("slot conflict at booking time",
				"doctor_id", state.DoctorID, "date", state.Date, "start_time", state.StartTime)
			turn, _, err := c.alternatives(ctx, state)
			if err != nil {
				return nil, "", err
			}
			turn.Reply = "That slot was just taken. " + turn.Reply
			return turn, "conflict", nil
		}
		return nil, "", err
	}

	state.EndTime = appt.EndTime
	reply := fmt.Sprintf("Your appointment with %s on %s at %s is booked. Confirmation #%d.",
		state.DoctorName, appt.Date, appt.StartTime, appt.ID)
	return &Turn{
		Reply:  reply,
		State:  state,
		Booked: appt,
		UI: &UIPayload{Type: UISelected, Selected: &availability.Slot{
			DoctorID:  appt.DoctorID,
			Date:      appt.Date,
			StartTime: appt.StartTime,
			EndTime:   appt.EndTime,
		}},
	}, "booked", nil
}

func missingFields(state State) []string {
	var missing []string
	if !state.HasDoctor() {
		missing = append(missing, "doctor name")
	}
	if state.Date == "" {
		missing = append(missing, "date")
	}
	return missing
}

func clarify(state State, missing []string) *Turn {
	return &Turn{
		Reply:    fmt.Sprintf("I need a bit more to help: please tell me the %s.", strings.Join(missing, " and ")),
		State:    state,
		NeedInfo: true,
		Missing:  missing,
	}
}

// wantsBooking checks the text the agent just emitted for an affirmation
// cue.
func wantsBooking(reply string) bool {
	lower := strings.ToLower(reply)
	return strings.Contains(lower, "book") || strings.Contains(lower, "yes")
}

func (c *Controller) report(intent, outcome string) {
	if intent == "" {
		intent = "unknown"
	}
	if c.OnTurn != nil {
		c.OnTurn(intent, outcome)
	}
}

func doctorLines(doctors []directory.Doctor) string {
	var b strings.Builder
	for _, d := range doctors {
		fmt.Fprintf(&b, "- %s (%s)\n", d.Name, d.Specialization)
	}
	return b.String()
}

func slotTimes(slots []availability.Slot) string {
	times := make([]string, 0, len(slots))
	for _, s := range slots {
		times = append(times, normalize.TrimSeconds(s.StartTime))
	}
	return strings.Join(times, ", ")
}
