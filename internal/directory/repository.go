package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Repository provides read access to the clinic roster.
type Repository interface {
	ListDoctors(ctx context.Context) ([]Doctor, error)
	ListPatients(ctx context.Context) ([]Patient, error)
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	FindDoctorByName(ctx context.Context, name string) (*Doctor, error)
	FindPatientByName(ctx context.Context, name string) (*Patient, error)
	FindPatientByEmail(ctx context.Context, email string) (*Patient, error)
}

// InMemoryRepository is a map-backed Repository for tests and local demos.
type InMemoryRepository struct {
	mu       sync.RWMutex
	doctors  map[int64]Doctor
	patients map[int64]Patient
}

// NewInMemoryRepository creates an empty in-memory roster.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		doctors:  make(map[int64]Doctor),
		patients: make(map[int64]Patient),
	}
}

// AddDoctor registers a doctor, replacing any existing entry with the same ID.
func (r *InMemoryRepository) AddDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doctors[d.ID] = d
}

// AddPatient registers a patient, replacing any existing entry with the same ID.
func (r *InMemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *InMemoryRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) ListPatients(ctx context.Context) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.doctors[id]; ok {
		return &d, nil
	}
	return nil, ErrDoctorNotFound
}

func (r *InMemoryRepository) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.patients[id]; ok {
		return &p, nil
	}
	return nil, ErrPatientNotFound
}

// FindDoctorByName matches case-insensitively on a name substring, returning
// the lowest-ID match so repeated lookups are stable.
func (r *InMemoryRepository) FindDoctorByName(ctx context.Context, name string) (*Doctor, error) {
	doctors, _ := r.ListDoctors(ctx)
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrDoctorNotFound
	}
	for _, d := range doctors {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			doc := d
			return &doc, nil
		}
	}
	return nil, ErrDoctorNotFound
}

// FindPatientByName matches case-insensitively on a name substring.
func (r *InMemoryRepository) FindPatientByName(ctx context.Context, name string) (*Patient, error) {
	patients, _ := r.ListPatients(ctx)
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrPatientNotFound
	}
	for _, p := range patients {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			pat := p
			return &pat, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *InMemoryRepository) FindPatientByEmail(ctx context.Context, email string) (*Patient, error) {
	patients, _ := r.ListPatients(ctx)
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, p := range patients {
		if strings.EqualFold(p.Email, needle) {
			pat := p
			return &pat, nil
		}
	}
	return nil, ErrPatientNotFound
}

var _ Repository = (*InMemoryRepository)(nil)
