package directory

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRoster() *InMemoryRepository {
	repo := NewInMemoryRepository()
	repo.AddDoctor(Doctor{ID: 1, Name: "Dr. John Smith", Specialization: "Cardiology", Email: "john@clinic.test"})
	repo.AddDoctor(Doctor{ID: 2, Name: "Dr. Sarah Johnson", Specialization: "Dermatology"})
	repo.AddPatient(Patient{ID: 10, Name: "Alice Brown", Email: "alice@example.com"})
	repo.AddPatient(Patient{ID: 11, Name: "Bob Gray", Email: "bob@example.com"})
	return repo
}

func TestInMemoryFindDoctorByName(t *testing.T) {
	repo := seededRoster()
	ctx := context.Background()

	d, err := repo.FindDoctorByName(ctx, "smith")
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)

	d, err = repo.FindDoctorByName(ctx, "Sarah Johnson")
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.ID)

	_, err = repo.FindDoctorByName(ctx, "nobody")
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = repo.FindDoctorByName(ctx, "  ")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestInMemoryFindDoctorLowestIDWins(t *testing.T) {
	repo := seededRoster()
	// Both doctors match "dr"; the lower ID is returned every time.
	for i := 0; i < 3; i++ {
		d, err := repo.FindDoctorByName(context.Background(), "dr")
		require.NoError(t, err)
		assert.Equal(t, int64(1), d.ID)
	}
}

func TestInMemoryPatients(t *testing.T) {
	repo := seededRoster()
	ctx := context.Background()

	p, err := repo.FindPatientByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.ID)

	p, err = repo.FindPatientByEmail(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)

	_, err = repo.GetPatient(ctx, 999)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestInMemoryListOrdering(t *testing.T) {
	repo := seededRoster()
	doctors, err := repo.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, int64(1), doctors[0].ID)
	assert.Equal(t, int64(2), doctors[1].ID)
}

func TestPostgresListDoctors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, specialization").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialization", "email", "phone"}).
			AddRow(int64(1), "Dr. John Smith", "Cardiology", "john@clinic.test", "").
			AddRow(int64(2), "Dr. Sarah Johnson", "Dermatology", "", ""))

	repo := NewPostgresRepository(mock)
	doctors, err := repo.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, doctors, 2)
	assert.Equal(t, "Dr. Sarah Johnson", doctors[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFindDoctorByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name, specialization").
		WithArgs("smith").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialization", "email", "phone"}).
			AddRow(int64(1), "Dr. John Smith", "Cardiology", "", ""))

	repo := NewPostgresRepository(mock)
	d, err := repo.FindDoctorByName(context.Background(), "smith")
	require.NoError(t, err)
	assert.Equal(t, "Dr. John Smith", d.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetPatientNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, name").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "phone"}))

	repo := NewPostgresRepository(mock)
	_, err = repo.GetPatient(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}
