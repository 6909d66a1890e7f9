package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/scheduler-ai/internal/availability"
)

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestChatAssignsSessionAndPersistsState(t *testing.T) {
	oracle := &scriptedOracle{responses: []string{
		`{"intent": "check_availability", "doctor_name": "Dr. Smith"}`,
		`{"date": "tomorrow"}`,
	}}
	slots := &fakeSlots{open: map[string][]availability.Slot{
		slotKey(1, "2025-08-28"): {
			{ID: 11, DoctorID: 1, Date: "2025-08-28", StartTime: "09:00", EndTime: "09:30"},
		},
	}}
	controller := newTestController(oracle, slots, nil)
	sessions := NewMemorySessionStore()
	handler := NewHandler(controller, sessions, nil)

	rec := postJSON(t, handler.Chat, ChatRequest{Message: "I'd like to see Dr. Smith"})
	require.Equal(t, http.StatusOK, rec.Code)

	var first ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.NotEmpty(t, first.SessionID)
	assert.True(t, first.NeedInfo)

	// Second turn rides the stored session; no client-side state is sent.
	rec = postJSON(t, handler.Chat, ChatRequest{SessionID: first.SessionID, Message: "tomorrow"})
	require.Equal(t, http.StatusOK, rec.Code)

	var second ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, "2025-08-28", second.State.Date)
	assert.Equal(t, int64(1), second.State.DoctorID)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	controller := newTestController(&scriptedOracle{}, nil, nil)
	handler := NewHandler(controller, NewMemorySessionStore(), nil)

	rec := postJSON(t, handler.Chat, ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetClearsSession(t *testing.T) {
	controller := newTestController(&scriptedOracle{}, nil, nil)
	sessions := NewMemorySessionStore()
	handler := NewHandler(controller, sessions, nil)

	require.NoError(t, sessions.Save(context.Background(), "s1", State{DoctorID: 1}))

	rec := postJSON(t, handler.Reset, ChatRequest{SessionID: "s1"})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := sessions.Load(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResetRequiresSessionID(t *testing.T) {
	controller := newTestController(&scriptedOracle{}, nil, nil)
	handler := NewHandler(controller, NewMemorySessionStore(), nil)

	rec := postJSON(t, handler.Reset, ChatRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
