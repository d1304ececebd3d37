package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
)

// AppointmentRepository is the persistence boundary of the scheduling core.
// Implementations must tolerate concurrent callers; the scheduling service
// serializes conflicting writes through its resource-day locker, and the
// postgres implementation additionally holds advisory locks inside its write
// transactions.
type AppointmentRepository interface {
	// FindByDay returns every appointment on the given calendar day whose
	// resource set intersects resources. An empty resource set matches the
	// whole day. No status filtering happens here; the ledger applies the
	// active-set predicate.
	FindByDay(ctx context.Context, day time.Time, resources domain.ResourceSet) ([]domain.Appointment, error)

	FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// Insert persists a new appointment, assigning its ID (if unset) and its
	// monotonic sequence number.
	Insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)

	// Update rewrites an existing appointment by ID.
	Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}
