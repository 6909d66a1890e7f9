package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the slice of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository reads the roster from Postgres.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("directory: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	query := `
		SELECT id, name, specialization, COALESCE(email, ''), COALESCE(phone, '')
		FROM doctors
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("directory: list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization, &d.Email, &d.Phone); err != nil {
			return nil, fmt.Errorf("directory: scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	return doctors, rows.Err()
}

func (r *PostgresRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, '')
		FROM patients
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("directory: list patients: %w", err)
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone); err != nil {
			return nil, fmt.Errorf("directory: scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, rows.Err()
}

func (r *PostgresRepository) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	query := `
		SELECT id, name, specialization, COALESCE(email, ''), COALESCE(phone, '')
		FROM doctors
		WHERE id = $1
	`
	var d Doctor
	if err := r.pool.QueryRow(ctx, query, id).Scan(&d.ID, &d.Name, &d.Specialization, &d.Email, &d.Phone); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("directory: get doctor: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, '')
		FROM patients
		WHERE id = $1
	`
	var p Patient
	if err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Email, &p.Phone); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("directory: get patient: %w", err)
	}
	return &p, nil
}

// FindDoctorByName matches a case-insensitive name substring; the lowest ID
// wins when several doctors match.
func (r *PostgresRepository) FindDoctorByName(ctx context.Context, name string) (*Doctor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrDoctorNotFound
	}
	query := `
		SELECT id, name, specialization, COALESCE(email, ''), COALESCE(phone, '')
		FROM doctors
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT 1
	`
	var d Doctor
	if err := r.pool.QueryRow(ctx, query, name).Scan(&d.ID, &d.Name, &d.Specialization, &d.Email, &d.Phone); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("directory: find doctor: %w", err)
	}
	return &d, nil
}

func (r *PostgresRepository) FindPatientByName(ctx context.Context, name string) (*Patient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrPatientNotFound
	}
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, '')
		FROM patients
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT 1
	`
	var p Patient
	if err := r.pool.QueryRow(ctx, query, name).Scan(&p.ID, &p.Name, &p.Email, &p.Phone); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("directory: find patient: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) FindPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	query := `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, '')
		FROM patients
		WHERE LOWER(email) = LOWER($1)
	`
	var p Patient
	if err := r.pool.QueryRow(ctx, query, strings.TrimSpace(email)).Scan(&p.ID, &p.Name, &p.Email, &p.Phone); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("directory: find patient by email: %w", err)
	}
	return &p, nil
}

var _ Repository = (*PostgresRepository)(nil)
