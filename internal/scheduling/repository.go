package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for appointment storage. Insert must be
// atomic with respect to the active-slot uniqueness check: two concurrent
// inserts for the same (doctor, slot) may not both succeed.
type Repository interface {
	Insert(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID, statusFilter string) ([]*Appointment, error)
	// SlotsInWindow returns slots of non-cancelled appointments for the
	// doctor within [from, to).
	SlotsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]time.Time, error)
	UpdateStatus(ctx context.Context, id, status string) (*Appointment, error)
}

// InMemoryRepository is a Repository backed by a map, used in tests. The
// mutex makes the conflict check and insert a single atomic step, mirroring
// what the partial unique index provides in Postgres.
type InMemoryRepository struct {
	mu    sync.RWMutex
	appts map[string]*Appointment
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{appts: make(map[string]*Appointment)}
}

func (r *InMemoryRepository) Insert(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appts {
		if existing.DoctorID == appt.DoctorID && existing.Slot.Equal(appt.Slot) &&
			existing.Status != StatusCancelled {
			return ErrSlotTaken
		}
	}
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	cloned := *appt
	r.appts[appt.ID] = &cloned
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *appt
	return &cloned, nil
}

func (r *InMemoryRepository) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Appointment{}
	for _, appt := range r.appts {
		if appt.PatientID == patientID {
			cloned := *appt
			out = append(out, &cloned)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Before(out[j].Slot) })
	return out, nil
}

func (r *InMemoryRepository) ListByDoctor(ctx context.Context, doctorID, statusFilter string) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*Appointment{}
	for _, appt := range r.appts {
		if appt.DoctorID != doctorID {
			continue
		}
		if !matchesStatus(appt.Status, statusFilter) {
			continue
		}
		cloned := *appt
		out = append(out, &cloned)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Before(out[j].Slot) })
	return out, nil
}

func (r *InMemoryRepository) SlotsInWindow(ctx context.Context, doctorID string, from, to time.Time) ([]time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []time.Time{}
	for _, appt := range r.appts {
		if appt.DoctorID != doctorID || appt.Status == StatusCancelled {
			continue
		}
		if appt.Slot.Before(from) || !appt.Slot.Before(to) {
			continue
		}
		out = append(out, appt.Slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id, status string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	if appt.Status == StatusCancelled && status != StatusCancelled {
		for _, other := range r.appts {
			if other.ID != appt.ID && other.DoctorID == appt.DoctorID &&
				other.Slot.Equal(appt.Slot) && other.Status != StatusCancelled {
				return nil, ErrSlotTaken
			}
		}
	}
	appt.Status = status
	appt.UpdatedAt = time.Now().UTC()
	cloned := *appt
	return &cloned, nil
}

func matchesStatus(status, filter string) bool {
	switch filter {
	case "", "all":
		return true
	case "active":
		return status != StatusCancelled
	default:
		return status == filter
	}
}
