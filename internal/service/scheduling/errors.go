package scheduling

import (
	"fmt"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
)

// ValidationError means the caller sent malformed input. Never retried; the
// caller fixes the request.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ConflictError means the operation would double-book a resource. Carries
// every clashing appointment so callers can report all of them.
type ConflictError struct {
	ConflictingIDs []uuid.UUID
}

func (e *ConflictError) Error() string {
	if len(e.ConflictingIDs) == 0 {
		return "appointment conflicts with an existing booking"
	}
	return fmt.Sprintf("appointment conflicts with %d existing booking(s)", len(e.ConflictingIDs))
}

// InvalidStateError means the requested transition or modification is not
// permitted from the appointment's current status.
type InvalidStateError struct {
	Current   domain.Status
	Attempted string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s an appointment in status %q", e.Attempted, e.Current)
}

// UnavailableError means the repository or lock could not be reached in time.
// Retryable by the caller with backoff; the core never retries on its own,
// since re-running a check-then-act sequence without the lock held would
// reintroduce the race. A failed check is never treated as "no conflict".
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("scheduling backend unavailable during %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}
