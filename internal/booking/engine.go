package booking

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/clinicdesk/scheduler-ai/internal/normalize"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

var tracer = otel.Tracer("booking")

// DB is the subset of pgxpool.Pool the engine uses. pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Notifier is told about confirmed bookings and reports how many deliveries
// landed on each channel. Delivery is best effort and never fails the
// booking.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt Appointment) DeliveryCounts
	AppointmentRescheduled(ctx context.Context, appt Appointment, oldDate string) DeliveryCounts
}

// Engine books and reschedules appointments.
type Engine struct {
	db       DB
	notifier Notifier
	logger   *logging.Logger

	// OnBooking is an optional hook for metrics, called once per Book call
	// with the outcome ("booked", "conflict", "rejected" or "error").
	OnBooking func(result string)
}

// NewEngine wires the engine. notifier may be nil.
func NewEngine(db DB, notifier Notifier, logger *logging.Logger) *Engine {
	if db == nil {
		panic("booking: db required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{db: db, notifier: notifier, logger: logger.Component("booking")}
}

// Book reserves one or two contiguous 30-minute slots and records the
// appointment, all in one transaction. New patients get a 60-minute first
// visit; returning patients get 30 minutes.
func (e *Engine) Book(ctx context.Context, req Request) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "Engine.Book")
	defer span.End()

	outcome := "error"
	defer func() {
		if e.OnBooking != nil {
			e.OnBooking(outcome)
		}
	}()

	if req.PatientID == 0 || req.DoctorID == 0 || req.Date == "" || req.StartTime == "" {
		outcome = "rejected"
		return nil, ErrMissingFields
	}

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var returning bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE patient_id = $1)`,
		req.PatientID,
	).Scan(&returning); err != nil {
		return nil, fmt.Errorf("booking: patient history: %w", err)
	}

	duration := 60
	if returning {
		duration = 30
	}

	starts := []string{req.StartTime}
	if duration == 60 {
		second, ok := normalize.AddMinutes(req.StartTime, 30)
		if !ok {
			return nil, fmt.Errorf("booking: bad start time %q", req.StartTime)
		}
		starts = append(starts, second)
	}

	for _, start := range starts {
		tag, err := tx.Exec(ctx, `
			UPDATE doctor_availability
			SET is_booked = TRUE
			WHERE doctor_id = $1 AND available_date = $2 AND start_time = $3 AND is_booked = FALSE
		`, req.DoctorID, req.Date, start)
		if err != nil {
			return nil, fmt.Errorf("booking: reserve slot: %w", err)
		}
		if tag.RowsAffected() == 0 {
			outcome = "conflict"
			return nil, ErrSlotConflict
		}
	}

	endTime, _ := normalize.AddMinutes(req.StartTime, duration)
	appt := Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   endTime,
		Symptoms:  req.Symptoms,
		Status:    StatusScheduled,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, appointment_date, start_time, end_time, symptoms, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, appt.PatientID, appt.DoctorID, appt.Date, appt.StartTime, appt.EndTime, appt.Symptoms, appt.Status,
	).Scan(&appt.ID); err != nil {
		return nil, fmt.Errorf("booking: insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("booking: commit: %w", err)
	}
	outcome = "booked"

	e.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"patient_id", appt.PatientID,
		"date", appt.Date,
		"start_time", appt.StartTime,
		"duration_min", duration,
	)

	if e.notifier != nil {
		e.notifier.AppointmentBooked(ctx, appt)
	}
	return &appt, nil
}

// ListForDoctorDay returns a doctor's appointments for one day.
func (e *Engine) ListForDoctorDay(ctx context.Context, doctorID int64, date string) ([]Appointment, error) {
	rows, err := e.db.Query(ctx, `
		SELECT id, patient_id, doctor_id,
		       to_char(appointment_date, 'YYYY-MM-DD'),
		       to_char(start_time, 'HH24:MI'),
		       to_char(end_time, 'HH24:MI'),
		       COALESCE(symptoms, ''), status
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status <> $3
		ORDER BY start_time
	`, doctorID, date, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("booking: list appointments: %w", err)
	}
	defer rows.Close()

	var appts []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.StartTime, &a.EndTime, &a.Symptoms, &a.Status); err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}
