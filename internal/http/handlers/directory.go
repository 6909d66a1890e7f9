package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicdesk/scheduler-ai/internal/directory"
	"github.com/clinicdesk/scheduler-ai/pkg/logging"
)

// DirectoryHandler serves the clinic roster.
type DirectoryHandler struct {
	roster directory.Repository
	logger *logging.Logger
}

// NewDirectoryHandler wires the roster endpoints.
func NewDirectoryHandler(roster directory.Repository, logger *logging.Logger) *DirectoryHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectoryHandler{roster: roster, logger: logger.Component("directory")}
}

// ListDoctors handles GET /doctors.
func (h *DirectoryHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.roster.ListDoctors(r.Context())
	if err != nil {
		h.logger.Error("list doctors failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list doctors")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

// ListPatients handles GET /patients.
func (h *DirectoryHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.roster.ListPatients(r.Context())
	if err != nil {
		h.logger.Error("list patients failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not list patients")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

// DoctorByName handles GET /doctors/by-name/{name}.
func (h *DirectoryHandler) DoctorByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	doctor, err := h.roster.FindDoctorByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			respondError(w, http.StatusNotFound, "doctor not found")
			return
		}
		h.logger.Error("doctor lookup failed", "name", name, "error", err)
		respondError(w, http.StatusInternalServerError, "could not look up doctor")
		return
	}
	respondJSON(w, http.StatusOK, doctor)
}

// PatientByEmail handles GET /patients/by-email/{email}.
func (h *DirectoryHandler) PatientByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	patient, err := h.roster.FindPatientByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, directory.ErrPatientNotFound) {
			respondError(w, http.StatusNotFound, "patient not found")
			return
		}
		h.logger.Error("patient lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not look up patient")
		return
	}
	respondJSON(w, http.StatusOK, patient)
}
