package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicdesk/scheduler-ai/internal/booking"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// BookingHandler serves the direct booking endpoint and staff operations.
type BookingHandler struct {
	engine *booking.Engine
	logger *logging.Logger
}

// NewBookingHandler wires the booking endpoints.
func NewBookingHandler(engine *booking.Engine, logger *logging.Logger) *BookingHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{engine: engine, logger: logger.Component("booking_api")}
}

// Book handles POST /book, the non-conversational booking path.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.engine.Book(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrMissingFields):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, booking.ErrSlotConflict):
			respondError(w, http.StatusConflict, "slot already booked")
		default:
			h.logger.Error("booking failed", "error", err)
			respondError(w, http.StatusInternalServerError, "could not book appointment")
		}
		return
	}
	respondJSON(w, http.StatusCreated, appt)
}

type rescheduleDayRequest struct {
	DoctorID int64  `json:"doctor_id"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

// RescheduleDay handles POST /admin/reschedule-day, moving a doctor's whole
// day.
func (h *BookingHandler) RescheduleDay(w http.ResponseWriter, r *http.Request) {
	var req rescheduleDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.engine.RescheduleDay(r.Context(), req.DoctorID, req.FromDate, req.ToDate)
	if err != nil {
		if errors.Is(err, booking.ErrMissingFields) {
			respondError(w, http.StatusBadRequest, "doctor_id, from_date and to_date are required")
			return
		}
		h.logger.Error("day reschedule failed", "doctor_id", req.DoctorID, "error", err)
		respondError(w, http.StatusInternalServerError, "could not reschedule day")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
