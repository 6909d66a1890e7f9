package availability

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// PgxPool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads doctor availability from Postgres. Dates and times are
// canonicalized in SQL so the rest of the code never touches time zones.
type Store struct {
	pool   PgxPool
	tracer trace.Tracer
}

// NewStore initializes a store backed by pgxpool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &Store{
		pool:   pool,
		tracer: otel.Tracer("availability"),
	}
}

const slotColumns = `
	id, doctor_id,
	to_char(available_date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'),
	to_char(end_time, 'HH24:MI'),
	is_booked
`

func scanSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()
	var slots []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.ID, &s.DoctorID, &s.Date, &s.StartTime, &s.EndTime, &s.IsBooked); err != nil {
			return nil, fmt.Errorf("availability: scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ListOpen returns a doctor's unbooked slots for one day, earliest first.
func (s *Store) ListOpen(ctx context.Context, doctorID int64, date string) ([]Slot, error) {
	ctx, span := s.tracer.Start(ctx, "Store.ListOpen")
	defer span.End()

	query := `
		SELECT ` + slotColumns + `
		FROM doctor_availability
		WHERE doctor_id = $1 AND available_date = $2 AND is_booked = FALSE
		ORDER BY start_time
	`
	rows, err := s.pool.Query(ctx, query, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("availability: list open: %w", err)
	}
	return scanSlots(rows)
}

// ForwardWindow returns a doctor's unbooked slots over the given number of
// days starting at the given date, grouped by day in ascending order.
func (s *Store) ForwardWindow(ctx context.Context, doctorID int64, fromDate string, days int) ([]DaySlots, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM doctor_availability
		WHERE doctor_id = $1
		  AND available_date >= $2
		  AND available_date < $2::date + $3
		  AND is_booked = FALSE
		ORDER BY available_date, start_time
	`
	rows, err := s.pool.Query(ctx, query, doctorID, fromDate, days)
	if err != nil {
		return nil, fmt.Errorf("availability: forward window: %w", err)
	}
	slots, err := scanSlots(rows)
	if err != nil {
		return nil, err
	}

	var out []DaySlots
	for _, slot := range slots {
		if len(out) == 0 || out[len(out)-1].Date != slot.Date {
			out = append(out, DaySlots{Date: slot.Date})
		}
		out[len(out)-1].Slots = append(out[len(out)-1].Slots, slot)
	}
	return out, nil
}

// EarliestOpen returns the doctor's first unbooked slot on or after a date,
// or nil when the calendar is empty.
func (s *Store) EarliestOpen(ctx context.Context, doctorID int64, fromDate string) (*Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM doctor_availability
		WHERE doctor_id = $1 AND available_date >= $2 AND is_booked = FALSE
		ORDER BY available_date, start_time
		LIMIT 1
	`
	var slot Slot
	err := s.pool.QueryRow(ctx, query, doctorID, fromDate).
		Scan(&slot.ID, &slot.DoctorID, &slot.Date, &slot.StartTime, &slot.EndTime, &slot.IsBooked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("availability: earliest open: %w", err)
	}
	return &slot, nil
}

// Seed inserts an open slot, ignoring duplicates on the calendar's unique
// constraint. Used by the seeding command and day rescheduling.
func (s *Store) Seed(ctx context.Context, doctorID int64, date, startTime, endTime string) error {
	query := `
		INSERT INTO doctor_availability (doctor_id, available_date, start_time, end_time, is_booked)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (doctor_id, available_date, start_time) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, query, doctorID, date, startTime, endTime); err != nil {
		return fmt.Errorf("availability: seed slot: %w", err)
	}
	return nil
}
