package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/clinicdesk/scheduler-ai/internal/export"
	"github.com/clinicdesk/scheduler-ai/internal/reports"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// ReportsHandler serves staff report questions, their history and CSV
// exports.
type ReportsHandler struct {
	service  *reports.Service
	stats    *reports.StatsStore
	history  *reports.HistoryStore
	exporter *export.Exporter
	logger   *logging.Logger
}

// NewReportsHandler wires the report endpoints. stats, history and exporter
// may be nil when those features are off.
func NewReportsHandler(service *reports.Service, stats *reports.StatsStore, history *reports.HistoryStore, exporter *export.Exporter, logger *logging.Logger) *ReportsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportsHandler{service: service, stats: stats, history: history, exporter: exporter, logger: logger.Component("reports_api")}
}

type reportRequest struct {
	Question string `json:"question"`
	ToPhone  string `json:"to_phone,omitempty"`
}

// Ask handles POST /report.
func (h *ReportsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		respondError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.service.Answer(r.Context(), req.Question, req.ToPhone)
	if err != nil {
		h.logger.Warn("report question not answered", "question", req.Question, "error", err)
		respondError(w, http.StatusUnprocessableEntity, "could not interpret that question")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

// History handles GET /report/history.
func (h *ReportsHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusNotFound, "history not enabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("history fetch failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// AppointmentCount handles GET /stats/appointments. A single date or a
// from/to pair selects the window.
func (h *ReportsHandler) AppointmentCount(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		respondError(w, http.StatusNotFound, "stats not enabled")
		return
	}
	q := r.URL.Query()
	date, from, to := q.Get("date"), q.Get("from"), q.Get("to")

	var (
		count int
		err   error
	)
	switch {
	case date != "":
		count, err = h.stats.CountOnDate(r.Context(), date)
	case from != "" && to != "":
		count, err = h.stats.CountRange(r.Context(), from, to)
	default:
		respondError(w, http.StatusBadRequest, "date or from/to is required")
		return
	}
	if err != nil {
		h.logger.Error("appointment count failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not count appointments")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"count": count})
}

// BusiestDay handles GET /stats/busiest-day.
func (h *ReportsHandler) BusiestDay(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		respondError(w, http.StatusNotFound, "stats not enabled")
		return
	}
	date, count, err := h.stats.BusiestDay(r.Context())
	if err != nil {
		h.logger.Error("busiest day failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not compute busiest day")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"date": date, "count": count})
}

type exportRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

// Export handles POST /admin/export, dumping appointments to S3.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		respondError(w, http.StatusNotFound, "export not enabled")
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FromDate == "" || req.ToDate == "" {
		respondError(w, http.StatusBadRequest, "from_date and to_date are required")
		return
	}

	key, err := h.exporter.Appointments(r.Context(), req.FromDate, req.ToDate)
	if err != nil {
		h.logger.Error("export failed", "error", err)
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"key": key})
}
