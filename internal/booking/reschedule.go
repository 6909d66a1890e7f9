package booking

import (
	"context"
	"fmt"

	"github.com/clinicdesk/scheduler-ai/internal/normalize"
)

// RescheduleDay moves every non-cancelled appointment a doctor has on one day
// to the same times on another day. Each appointment moves in its own
// transaction so one conflict does not strand the rest of the day.
func (e *Engine) RescheduleDay(ctx context.Context, doctorID int64, fromDate, toDate string) (*RescheduleResult, error) {
	ctx, span := tracer.Start(ctx, "Engine.RescheduleDay")
	defer span.End()

	if doctorID == 0 || fromDate == "" || toDate == "" {
		return nil, ErrMissingFields
	}

	appts, err := e.ListForDoctorDay(ctx, doctorID, fromDate)
	if err != nil {
		return nil, err
	}

	result := &RescheduleResult{}
	for _, appt := range appts {
		if err := e.moveAppointment(ctx, appt, toDate); err != nil {
			e.logger.Warn("reschedule failed",
				"appointment_id", appt.ID,
				"to_date", toDate,
				"error", err,
			)
			result.Failed++
			continue
		}
		result.Moved++
		result.IDs = append(result.IDs, appt.ID)

		if e.notifier != nil {
			moved := appt
			moved.Date = toDate
			moved.Status = StatusRescheduled
			result.Notifications.Add(e.notifier.AppointmentRescheduled(ctx, moved, fromDate))
		}
	}
	return result, nil
}

// moveAppointment frees the old calendar rows, claims matching rows on the
// target day (creating them when the doctor has no calendar there yet) and
// repoints the appointment.
func (e *Engine) moveAppointment(ctx context.Context, appt Appointment, toDate string) error {
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("booking: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE doctor_availability
		SET is_booked = FALSE
		WHERE doctor_id = $1 AND available_date = $2
		  AND start_time >= $3 AND start_time < $4
	`, appt.DoctorID, appt.Date, appt.StartTime, appt.EndTime); err != nil {
		return fmt.Errorf("booking: free old slots: %w", err)
	}

	for start := appt.StartTime; start < appt.EndTime; {
		end, ok := normalize.AddMinutes(start, 30)
		if !ok {
			return fmt.Errorf("booking: bad time %q", start)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO doctor_availability (doctor_id, available_date, start_time, end_time, is_booked)
			VALUES ($1, $2, $3, $4, FALSE)
			ON CONFLICT (doctor_id, available_date, start_time) DO NOTHING
		`, appt.DoctorID, toDate, start, end); err != nil {
			return fmt.Errorf("booking: create target slot: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			UPDATE doctor_availability
			SET is_booked = TRUE
			WHERE doctor_id = $1 AND available_date = $2 AND start_time = $3 AND is_booked = FALSE
		`, appt.DoctorID, toDate, start)
		if err != nil {
			return fmt.Errorf("booking: claim target slot: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrSlotConflict
		}
		start = end
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $1, status = $2
		WHERE id = $3
	`, toDate, StatusRescheduled, appt.ID); err != nil {
		return fmt.Errorf("booking: update appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("booking: commit: %w", err)
	}
	return nil
}
