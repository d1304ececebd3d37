package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/store"
)

// Proposed is the interval/resource pair a booking request wants to occupy.
type Proposed struct {
	Interval  domain.TimeInterval
	Resources domain.ResourceSet
}

type ConflictResult struct {
	HasConflict    bool
	ConflictingIDs []uuid.UUID
}

// CommittedInterval is one ledger entry: a time range held by an active
// appointment on a shared resource.
type CommittedInterval struct {
	Interval      domain.TimeInterval
	AppointmentID uuid.UUID
}

// Checker composes the interval model with the resource ledger to decide
// whether a proposed interval may be granted. Read-only; safe for concurrent
// use.
type Checker struct {
	repo    store.AppointmentRepository
	timeout time.Duration
}

func NewChecker(repo store.AppointmentRepository, repoTimeout time.Duration) *Checker {
	return &Checker{repo: repo, timeout: repoTimeout}
}

// CommittedIntervals lists the intervals held on the given day by active
// appointments whose resources intersect the given set. excludeID drops the
// appointment being modified so it cannot conflict with itself.
func (c *Checker) CommittedIntervals(ctx context.Context, day time.Time, resources domain.ResourceSet, excludeID uuid.UUID) ([]CommittedInterval, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	appts, err := c.repo.FindByDay(ctx, day, resources)
	if err != nil {
		return nil, &UnavailableError{Op: "ledger query", Err: err}
	}

	out := make([]CommittedInterval, 0, len(appts))
	for _, a := range appts {
		if a.ID == excludeID {
			continue
		}
		if !a.Status.Active() {
			continue
		}
		if !a.Resources().Intersects(resources) {
			continue
		}
		out = append(out, CommittedInterval{Interval: a.Interval(), AppointmentID: a.ID})
	}
	return out, nil
}

// CheckConflict reports every active appointment whose interval overlaps the
// proposal on a shared resource. An empty resource set cannot conflict: with
// no doctor or room assigned there is nothing to contend for.
func (c *Checker) CheckConflict(ctx context.Context, proposed Proposed, excludeID uuid.UUID) (ConflictResult, error) {
	if proposed.Interval.EndMinute <= proposed.Interval.StartMinute {
		return ConflictResult{}, validationError("interval end must be after start")
	}
	if proposed.Resources.Empty() {
		return ConflictResult{}, nil
	}

	committed, err := c.CommittedIntervals(ctx, proposed.Interval.Day, proposed.Resources, excludeID)
	if err != nil {
		return ConflictResult{}, err
	}

	var ids []uuid.UUID
	for _, ci := range committed {
		if proposed.Interval.Overlaps(ci.Interval) {
			ids = append(ids, ci.AppointmentID)
		}
	}

	return ConflictResult{HasConflict: len(ids) > 0, ConflictingIDs: ids}, nil
}

func (c *Checker) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// IsRetryable reports whether the error is transient (backend unavailable or
// the resource lock briefly held elsewhere) and worth retrying with backoff.
func IsRetryable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
