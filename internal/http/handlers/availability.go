package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinicdesk/scheduler-ai/internal/availability"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// AvailabilityHandler serves open calendar slots.
type AvailabilityHandler struct {
	store  *availability.Store
	logger *logging.Logger
}

// NewAvailabilityHandler wires the availability endpoints.
func NewAvailabilityHandler(store *availability.Store, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{store: store, logger: logger.Component("availability")}
}

func doctorIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "doctorID"), 10, 64)
	return id, err == nil && id > 0
}

// OpenSlots handles GET /availability/{doctorID}/{date}. Optional query
// parameters time and period narrow the result.
func (h *AvailabilityHandler) OpenSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := doctorIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	date := chi.URLParam(r, "date")

	slots, err := h.store.ListOpen(r.Context(), doctorID, date)
	if err != nil {
		h.logger.Error("list open slots failed", "doctor_id", doctorID, "date", date, "error", err)
		respondError(w, http.StatusInternalServerError, "could not load availability")
		return
	}
	slots = availability.Filter(slots, r.URL.Query().Get("time"), r.URL.Query().Get("period"))

	respondJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"date":      date,
		"slots":     slots,
	})
}

// NextDays handles GET /availability/{doctorID}/{date}/next, the forward
// window used for alternatives.
func (h *AvailabilityHandler) NextDays(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := doctorIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	date := chi.URLParam(r, "date")

	days := 7
	if v, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && v > 0 && v <= 31 {
		days = v
	}

	window, err := h.store.ForwardWindow(r.Context(), doctorID, date, days)
	if err != nil {
		h.logger.Error("forward window failed", "doctor_id", doctorID, "date", date, "error", err)
		respondError(w, http.StatusInternalServerError, "could not load availability")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"after":     date,
		"days":      window,
	})
}
