package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/lock"
	"clinicops/backend/internal/store"
)

type Config struct {
	// RepoTimeout bounds every repository call. Expiry surfaces as
	// UnavailableError; no scheduling call blocks indefinitely.
	RepoTimeout time.Duration
}

// Service owns the appointment lifecycle. Every create and modify runs its
// conflict check and its write while holding the resource-day locks, so two
// concurrent requests for the same doctor or room cannot both pass the check.
// Status transitions only release resources or leave the interval untouched,
// so they run without the lock.
type Service struct {
	repo    store.AppointmentRepository
	locker  lock.Locker
	checker *Checker
	cfg     Config
}

func NewService(repo store.AppointmentRepository, locker lock.Locker, cfg Config) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		checker: NewChecker(repo, cfg.RepoTimeout),
		cfg:     cfg,
	}
}

// Checker exposes the read-only conflict checker backed by the same
// repository, for availability queries.
func (s *Service) Checker() *Checker {
	return s.checker
}

type CreateInput struct {
	PatientRef string
	Day        time.Time
	StartClock string
	EndClock   string
	DoctorID   string
	RoomID     string
	Channel    domain.Channel
	Services   []domain.ServiceItem
}

// Create books a new appointment after a conflict check under the
// resource-day locks. Online bookings start pending; staff-entered walk-in
// and phone bookings start confirmed. Both are in the active set, so the
// no-double-booking guarantee is identical either way.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if strings.TrimSpace(in.PatientRef) == "" {
		return domain.Appointment{}, validationError("patient_ref is required")
	}
	if !in.Channel.Valid() {
		return domain.Appointment{}, validationError("channel must be walk-in, phone, or online")
	}

	interval, err := domain.NewInterval(in.Day, in.StartClock, in.EndClock)
	if err != nil {
		return domain.Appointment{}, validationError(err.Error())
	}

	resources := domain.ResourceSet{DoctorID: strings.TrimSpace(in.DoctorID), RoomID: strings.TrimSpace(in.RoomID)}

	status := domain.StatusConfirmed
	if in.Channel == domain.ChannelOnline {
		status = domain.StatusPending
	}

	var out domain.Appointment
	err = s.withResourceLocks(ctx, resources, interval.Day, func(ctx context.Context) error {
		result, err := s.checker.CheckConflict(ctx, Proposed{Interval: interval, Resources: resources}, uuid.Nil)
		if err != nil {
			return err
		}
		if result.HasConflict {
			return &ConflictError{ConflictingIDs: result.ConflictingIDs}
		}

		appt := domain.Appointment{
			PatientRef:  strings.TrimSpace(in.PatientRef),
			DoctorID:    resources.DoctorID,
			RoomID:      resources.RoomID,
			Day:         interval.Day,
			StartMinute: interval.StartMinute,
			EndMinute:   interval.EndMinute,
			Status:      status,
			Channel:     in.Channel,
			Services:    in.Services,
		}

		created, err := s.insert(ctx, appt)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

type ModifyInput struct {
	Day        *time.Time
	StartClock *string
	EndClock   *string
	DoctorID   *string // empty string clears the assignment
	RoomID     *string
	Services   []domain.ServiceItem // nil leaves services unchanged
}

// Modify changes the time, resources, or services of a pending or confirmed
// appointment. The conflict check runs against the new interval and
// resources, excluding the appointment itself; on conflict the original is
// left untouched.
func (s *Service) Modify(ctx context.Context, id uuid.UUID, in ModifyInput) (domain.Appointment, error) {
	current, err := s.findByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	if current.Status != domain.StatusPending && current.Status != domain.StatusConfirmed {
		return domain.Appointment{}, &InvalidStateError{Current: current.Status, Attempted: "modify"}
	}

	updated := current
	if in.Day != nil {
		updated.Day = domain.DateOnly(*in.Day)
	}
	if in.StartClock != nil {
		m, err := domain.ParseClock(*in.StartClock)
		if err != nil {
			return domain.Appointment{}, validationError(err.Error())
		}
		updated.StartMinute = m
	}
	if in.EndClock != nil {
		m, err := domain.ParseClock(*in.EndClock)
		if err != nil {
			return domain.Appointment{}, validationError(err.Error())
		}
		updated.EndMinute = m
	}
	if in.DoctorID != nil {
		updated.DoctorID = strings.TrimSpace(*in.DoctorID)
	}
	if in.RoomID != nil {
		updated.RoomID = strings.TrimSpace(*in.RoomID)
	}
	if in.Services != nil {
		updated.Services = in.Services
	}

	if updated.EndMinute <= updated.StartMinute {
		return domain.Appointment{}, validationError("interval end must be after start")
	}

	// Lock the union of old and new resource-days: the write both vacates the
	// old slot and claims the new one.
	keys := resourceLockKeys(current.Resources(), current.Day)
	keys = append(keys, resourceLockKeys(updated.Resources(), updated.Day)...)

	var out domain.Appointment
	err = s.locker.WithLock(ctx, keys, func(ctx context.Context) error {
		result, err := s.checker.CheckConflict(ctx, Proposed{Interval: updated.Interval(), Resources: updated.Resources()}, id)
		if err != nil {
			return err
		}
		if result.HasConflict {
			return &ConflictError{ConflictingIDs: result.ConflictingIDs}
		}

		saved, err := s.update(ctx, updated)
		if err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.Appointment{}, s.mapLockErr(err)
	}
	return out, nil
}

// CheckIn moves a pending or confirmed appointment to checked-in, recording
// the moment and the operator.
func (s *Service) CheckIn(ctx context.Context, id uuid.UUID, operator string) (domain.Appointment, error) {
	appt, err := s.findByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	if appt.Status != domain.StatusPending && appt.Status != domain.StatusConfirmed {
		return domain.Appointment{}, &InvalidStateError{Current: appt.Status, Attempted: "check in"}
	}

	now := time.Now().UTC()
	appt.Status = domain.StatusCheckedIn
	appt.CheckedInAt = &now
	appt.CheckedInBy = strings.TrimSpace(operator)

	return s.update(ctx, appt)
}

// Start moves a checked-in appointment to in-progress.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.findByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	if appt.Status != domain.StatusCheckedIn {
		return domain.Appointment{}, &InvalidStateError{Current: appt.Status, Attempted: "start"}
	}

	now := time.Now().UTC()
	appt.Status = domain.StatusInProgress
	appt.StartedAt = &now

	return s.update(ctx, appt)
}

// Complete moves an in-progress appointment to completed. Terminal.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.findByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	if appt.Status != domain.StatusInProgress {
		return domain.Appointment{}, &InvalidStateError{Current: appt.Status, Attempted: "complete"}
	}

	now := time.Now().UTC()
	appt.Status = domain.StatusCompleted
	appt.CompletedAt = &now

	return s.update(ctx, appt)
}

// Cancel moves any non-terminal appointment to cancelled. Idempotent:
// cancelling an already-cancelled appointment returns the current state
// unchanged. A reason is mandatory.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, operator, reason string) (domain.Appointment, error) {
	appt, err := s.findByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	if appt.Status == domain.StatusCancelled {
		return appt, nil
	}
	if appt.Status.Terminal() {
		return domain.Appointment{}, &InvalidStateError{Current: appt.Status, Attempted: "cancel"}
	}
	if strings.TrimSpace(reason) == "" {
		return domain.Appointment{}, validationError("cancellation reason is required")
	}

	now := time.Now().UTC()
	appt.Status = domain.StatusCancelled
	appt.CancelledAt = &now
	appt.CancelledBy = strings.TrimSpace(operator)
	appt.CancellationReason = strings.TrimSpace(reason)

	return s.update(ctx, appt)
}

// MarkNoShow moves any non-terminal appointment to no-show. Terminal; no
// reason required.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	appt, err := s.findByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	if appt.Status.Terminal() {
		return domain.Appointment{}, &InvalidStateError{Current: appt.Status, Attempted: "mark no-show"}
	}

	now := time.Now().UTC()
	appt.Status = domain.StatusNoShow
	appt.CancelledAt = &now

	return s.update(ctx, appt)
}

// Get returns a single appointment by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.findByID(ctx, id)
}

// ListDay returns the appointments on a day, optionally narrowed to resources.
func (s *Service) ListDay(ctx context.Context, day time.Time, resources domain.ResourceSet) ([]domain.Appointment, error) {
	ctx, cancel := s.withRepoTimeout(ctx)
	defer cancel()

	appts, err := s.repo.FindByDay(ctx, day, resources)
	if err != nil {
		return nil, &UnavailableError{Op: "list", Err: err}
	}
	return appts, nil
}

func (s *Service) withResourceLocks(ctx context.Context, resources domain.ResourceSet, day time.Time, fn func(ctx context.Context) error) error {
	err := s.locker.WithLock(ctx, resourceLockKeys(resources, day), fn)
	return s.mapLockErr(err)
}

func (s *Service) mapLockErr(err error) error {
	if errors.Is(err, lock.ErrNotAcquired) {
		return &UnavailableError{Op: "lock acquisition", Err: err}
	}
	return err
}

func resourceLockKeys(resources domain.ResourceSet, day time.Time) []string {
	ids := resources.IDs()
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, lock.ResourceDayKey(id, day))
	}
	return keys
}

func (s *Service) findByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	ctx, cancel := s.withRepoTimeout(ctx)
	defer cancel()

	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, err
		}
		return domain.Appointment{}, &UnavailableError{Op: "load appointment", Err: err}
	}
	return appt, nil
}

func (s *Service) insert(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	ctx, cancel := s.withRepoTimeout(ctx)
	defer cancel()

	created, err := s.repo.Insert(ctx, appt)
	if err != nil {
		// The storage-level exclusion constraint is the backstop; hitting it
		// means something bypassed the locker.
		if errors.Is(err, store.ErrConflict) {
			return domain.Appointment{}, &ConflictError{}
		}
		return domain.Appointment{}, &UnavailableError{Op: "insert appointment", Err: err}
	}
	return created, nil
}

func (s *Service) update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	ctx, cancel := s.withRepoTimeout(ctx)
	defer cancel()

	saved, err := s.repo.Update(ctx, appt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Appointment{}, err
		}
		if errors.Is(err, store.ErrConflict) {
			return domain.Appointment{}, &ConflictError{}
		}
		return domain.Appointment{}, &UnavailableError{Op: "update appointment", Err: err}
	}
	return saved, nil
}

func (s *Service) withRepoTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RepoTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.RepoTimeout)
}
