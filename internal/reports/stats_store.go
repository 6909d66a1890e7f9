package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StatsStore runs the aggregate queries behind staff reports.
type StatsStore struct {
	pool PgxPool
}

// NewStatsStore initializes the store.
func NewStatsStore(pool PgxPool) *StatsStore {
	if pool == nil {
		panic("reports: pgx pool required")
	}
	return &StatsStore{pool: pool}
}

// CountOnDate counts non-cancelled appointments on one day.
func (s *StatsStore) CountOnDate(ctx context.Context, date string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE appointment_date = $1 AND status <> 'Cancelled'
	`, date).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reports: count on date: %w", err)
	}
	return count, nil
}

// CountRange counts non-cancelled appointments between two days inclusive.
func (s *StatsStore) CountRange(ctx context.Context, fromDate, toDate string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2 AND status <> 'Cancelled'
	`, fromDate, toDate).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reports: count range: %w", err)
	}
	return count, nil
}

// TimesOnDate lists appointment start times for a day, earliest first.
func (s *StatsStore) TimesOnDate(ctx context.Context, date string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT to_char(start_time, 'HH24:MI') FROM appointments
		WHERE appointment_date = $1 AND status <> 'Cancelled'
		ORDER BY start_time
	`, date)
	if err != nil {
		return nil, fmt.Errorf("reports: times on date: %w", err)
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("reports: scan time: %w", err)
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

// BusiestDay returns the date with the most non-cancelled appointments and
// its count. Empty date means an empty book.
func (s *StatsStore) BusiestDay(ctx context.Context) (string, int, error) {
	var date string
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT to_char(appointment_date, 'YYYY-MM-DD'), COUNT(*) AS n
		FROM appointments
		WHERE status <> 'Cancelled'
		GROUP BY appointment_date
		ORDER BY n DESC, appointment_date
		LIMIT 1
	`).Scan(&date, &count)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("reports: busiest day: %w", err)
	}
	return date, count, nil
}

// CountSymptom counts appointments whose symptoms mention a keyword,
// optionally bounded to a date range.
func (s *StatsStore) CountSymptom(ctx context.Context, keyword, fromDate, toDate string) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE symptoms ILIKE '%' || $1 || '%' AND status <> 'Cancelled'
	`
	args := []any{keyword}
	if fromDate != "" && toDate != "" {
		query += ` AND appointment_date BETWEEN $2 AND $3`
		args = append(args, fromDate, toDate)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("reports: count symptom: %w", err)
	}
	return count, nil
}
