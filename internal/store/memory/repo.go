package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/store"
)

// Repo is an in-memory AppointmentRepository for tests, seeding, and
// database-less development mode. Safe for concurrent use.
type Repo struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]domain.Appointment
	seq   int64
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[uuid.UUID]domain.Appointment)}
}

func (r *Repo) FindByDay(ctx context.Context, day time.Time, resources domain.ResourceSet) ([]domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	day = domain.DateOnly(day)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Appointment, 0, 8)
	for _, a := range r.byID {
		if !a.Day.Equal(day) {
			continue
		}
		if !resources.Empty() && !a.Resources().Intersects(resources) {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartMinute != out[j].StartMinute {
			return out[i].StartMinute < out[j].StartMinute
		}
		return out[i].SequenceNumber < out[j].SequenceNumber
	})

	return out, nil
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Appointment{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (r *Repo) Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Appointment{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}

	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now

	r.seq++
	appt.SequenceNumber = r.seq
	appt.Day = domain.DateOnly(appt.Day)

	r.byID[appt.ID] = appt
	return appt, nil
}

func (r *Repo) Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Appointment{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[appt.ID]; !ok {
		return domain.Appointment{}, store.ErrNotFound
	}

	appt.UpdatedAt = time.Now().UTC()
	appt.Day = domain.DateOnly(appt.Day)
	r.byID[appt.ID] = appt
	return appt, nil
}

// All returns every stored appointment, ordered by sequence number.
func (r *Repo) All() []domain.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Appointment, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out
}
