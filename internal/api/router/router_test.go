package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/scheduler-ai/internal/booking"
	"github.com/clinicdesk/scheduler-ai/internal/directory"
	"github.com/clinicdesk/scheduler-ai/internal/http/handlers"
)

const testSecret = "router-test-secret"

func adminToken(t *testing.T) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "staff",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func testRouter(t *testing.T, mock pgxmock.PgxPoolIface) http.Handler {
	t.Helper()
	roster := directory.NewInMemoryRepository()
	roster.AddDoctor(directory.Doctor{ID: 1, Name: "Dr. John Smith", Specialization: "Cardiology"})

	return New(&Config{
		DirectoryHandler: handlers.NewDirectoryHandler(roster, nil),
		BookingHandler:   handlers.NewBookingHandler(booking.NewEngine(mock, nil, nil), nil),
		AdminAuthSecret:  testSecret,
	})
}

func TestHealthRoute(t *testing.T) {
	r := New(&Config{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDoctorsRoute(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := testRouter(t, mock)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/doctors", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dr. John Smith")
}

func TestAdminRouteRequiresToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := testRouter(t, mock)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reschedule-day", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRouteWithToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, patient_id, doctor_id").
		WithArgs(int64(1), "2025-09-01", booking.StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient_id", "doctor_id", "date", "start", "end", "symptoms", "status"}))

	body, _ := json.Marshal(map[string]any{
		"doctor_id": 1,
		"from_date": "2025-09-01",
		"to_date":   "2025-09-02",
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/reschedule-day", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+adminToken(t))

	r := testRouter(t, mock)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnknownRoute(t *testing.T) {
	r := New(&Config{})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
