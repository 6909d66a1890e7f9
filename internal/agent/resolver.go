package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinicdesk/scheduler-ai/internal/directory"
)

const chooserSystem = `You match a person's reference to one entry in a roster.
Reply with a single JSON object {"id": <number>} naming the best match, or {"id": 0} if none fits.`

// Resolver turns free-text name references into roster records. Substring
// matching handles the common case; the oracle breaks ties only when the
// direct lookup finds nothing, so resolution works with the oracle down.
type Resolver struct {
	roster directory.Repository
	oracle Oracle
}

// NewResolver wires a resolver. oracle may be nil.
func NewResolver(roster directory.Repository, oracle Oracle) *Resolver {
	return &Resolver{roster: roster, oracle: oracle}
}

// cleanDoctorRef strips honorifics so "Dr. Smith", "dr smith" and "doctor
// smith" all match the same roster row.
func cleanDoctorRef(ref string) string {
	lower := strings.ToLower(strings.TrimSpace(ref))
	for _, prefix := range []string{"dr.", "dr ", "doctor "} {
		if strings.HasPrefix(lower, prefix) {
			lower = strings.TrimSpace(lower[len(prefix):])
		}
	}
	return lower
}

// ResolveDoctor maps a doctor reference to a roster entry.
func (r *Resolver) ResolveDoctor(ctx context.Context, ref string) (*directory.Doctor, error) {
	cleaned := cleanDoctorRef(ref)
	if cleaned == "" {
		return nil, directory.ErrDoctorNotFound
	}

	if doctor, err := r.roster.FindDoctorByName(ctx, cleaned); err == nil {
		return doctor, nil
	}

	doctors, err := r.roster.ListDoctors(ctx)
	if err != nil {
		return nil, err
	}
	if id := r.choose(ctx, ref, doctorCandidates(doctors)); id != 0 {
		return r.roster.GetDoctor(ctx, id)
	}
	return nil, directory.ErrDoctorNotFound
}

// ResolvePatient maps a patient reference to a roster entry. A reference
// containing "@" is looked up as an email address first.
func (r *Resolver) ResolvePatient(ctx context.Context, ref string) (*directory.Patient, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, directory.ErrPatientNotFound
	}

	if strings.Contains(ref, "@") {
		if patient, err := r.roster.FindPatientByEmail(ctx, strings.ToLower(ref)); err == nil {
			return patient, nil
		}
	}
	if patient, err := r.roster.FindPatientByName(ctx, ref); err == nil {
		return patient, nil
	}

	patients, err := r.roster.ListPatients(ctx)
	if err != nil {
		return nil, err
	}
	if id := r.choose(ctx, ref, patientCandidates(patients)); id != 0 {
		return r.roster.GetPatient(ctx, id)
	}
	return nil, directory.ErrPatientNotFound
}

type candidate struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func doctorCandidates(doctors []directory.Doctor) []candidate {
	out := make([]candidate, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, candidate{ID: d.ID, Name: d.Name})
	}
	return out
}

func patientCandidates(patients []directory.Patient) []candidate {
	out := make([]candidate, 0, len(patients))
	for _, p := range patients {
		out = append(out, candidate{ID: p.ID, Name: p.Name})
	}
	return out
}

// choose asks the oracle to pick a candidate ID, returning 0 when the oracle
// is absent, fails, or picks something not in the list.
func (r *Resolver) choose(ctx context.Context, ref string, candidates []candidate) int64 {
	if r.oracle == nil || len(candidates) == 0 {
		return 0
	}

	roster, err := json.Marshal(candidates)
	if err != nil {
		return 0
	}
	prompt := fmt.Sprintf("Reference: %q\nRoster: %s", ref, roster)

	raw, err := r.oracle.Infer(ctx, chooserSystem, prompt)
	if err != nil {
		return 0
	}
	obj, ok := extractObject(raw)
	if !ok {
		return 0
	}

	id := num(obj, "id", "doctor_id", "patient_id")
	for _, c := range candidates {
		if c.ID == id {
			return id
		}
	}
	return 0
}
