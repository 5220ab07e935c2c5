package directory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ClinicRepository defines the interface for clinic storage.
type ClinicRepository interface {
	List(ctx context.Context) ([]*Clinic, error)
	GetByID(ctx context.Context, id string) (*Clinic, error)
	Create(ctx context.Context, clinic *Clinic) error
	Update(ctx context.Context, clinic *Clinic) error
	Delete(ctx context.Context, id string) error
}

// DoctorRepository defines the interface for doctor storage.
type DoctorRepository interface {
	List(ctx context.Context) ([]*Doctor, error)
	GetByID(ctx context.Context, id string) (*Doctor, error)
	GetByUserID(ctx context.Context, userID string) (*Doctor, error)
	Create(ctx context.Context, doctor *Doctor) error
	UpdateSlots(ctx context.Context, doctorID string, slots []time.Time) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// InMemoryClinicRepository is a ClinicRepository backed by a map.
type InMemoryClinicRepository struct {
	mu      sync.RWMutex
	clinics map[string]*Clinic
}

// NewInMemoryClinicRepository creates an empty in-memory clinic repository.
func NewInMemoryClinicRepository() *InMemoryClinicRepository {
	return &InMemoryClinicRepository{clinics: make(map[string]*Clinic)}
}

func (r *InMemoryClinicRepository) List(ctx context.Context) ([]*Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Clinic, 0, len(r.clinics))
	for _, c := range r.clinics {
		cloned := *c
		out = append(out, &cloned)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryClinicRepository) GetByID(ctx context.Context, id string) (*Clinic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	cloned := *c
	return &cloned, nil
}

func (r *InMemoryClinicRepository) Create(ctx context.Context, clinic *Clinic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.clinics {
		if strings.EqualFold(existing.Name, clinic.Name) &&
			strings.EqualFold(existing.Location, clinic.Location) {
			return ErrClinicExists
		}
	}
	if clinic.ID == "" {
		clinic.ID = uuid.NewString()
	}
	clinic.CreatedAt = time.Now().UTC()
	cloned := *clinic
	r.clinics[clinic.ID] = &cloned
	return nil
}

func (r *InMemoryClinicRepository) Update(ctx context.Context, clinic *Clinic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.clinics[clinic.ID]
	if !ok {
		return ErrClinicNotFound
	}
	stored.Name = clinic.Name
	stored.Location = clinic.Location
	clinic.CreatedAt = stored.CreatedAt
	return nil
}

func (r *InMemoryClinicRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clinics[id]; !ok {
		return ErrClinicNotFound
	}
	delete(r.clinics, id)
	return nil
}

// InMemoryDoctorRepository is a DoctorRepository backed by a map. It joins
// clinic projections through the clinic repository when one is provided.
type InMemoryDoctorRepository struct {
	mu      sync.RWMutex
	doctors map[string]*Doctor
	clinics ClinicRepository
}

// NewInMemoryDoctorRepository creates an empty in-memory doctor repository.
func NewInMemoryDoctorRepository(clinics ClinicRepository) *InMemoryDoctorRepository {
	return &InMemoryDoctorRepository{
		doctors: make(map[string]*Doctor),
		clinics: clinics,
	}
}

func (r *InMemoryDoctorRepository) List(ctx context.Context) ([]*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		out = append(out, r.withClinic(ctx, d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *InMemoryDoctorRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return r.withClinic(ctx, d), nil
}

func (r *InMemoryDoctorRepository) GetByUserID(ctx context.Context, userID string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.doctors {
		if d.UserID == userID {
			return r.withClinic(ctx, d), nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (r *InMemoryDoctorRepository) Create(ctx context.Context, doctor *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.doctors {
		if existing.UserID != "" && existing.UserID == doctor.UserID {
			return ErrDoctorExists
		}
	}
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doctor.CreatedAt = now
	doctor.UpdatedAt = now
	doctor.IsActive = true
	cloned := *doctor
	r.doctors[doctor.ID] = &cloned
	return nil
}

func (r *InMemoryDoctorRepository) UpdateSlots(ctx context.Context, doctorID string, slots []time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[doctorID]
	if !ok {
		return ErrDoctorNotFound
	}
	d.AvailableSlots = append([]time.Time(nil), slots...)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemoryDoctorRepository) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.doctors {
		if d.UserID == userID {
			delete(r.doctors, id)
			return nil
		}
	}
	return ErrDoctorNotFound
}

func (r *InMemoryDoctorRepository) withClinic(ctx context.Context, d *Doctor) *Doctor {
	cloned := *d
	if d.ClinicID != "" && r.clinics != nil {
		if c, err := r.clinics.GetByID(ctx, d.ClinicID); err == nil {
			cloned.Clinic = c
		}
	}
	return &cloned
}
