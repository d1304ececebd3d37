package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
)

// recurrenceHorizon bounds how far out a series may book, keeping expansion
// and its per-occurrence conflict checks to a sane volume.
const recurrenceHorizon = 180 * 24 * time.Hour

// RecurrenceRule describes a repeating booking. It carries no identity of its
// own; expansion turns it into ordinary appointments, each with its own
// lifecycle.
type RecurrenceRule struct {
	Frequency  domain.RecurrenceFrequency
	StartDate  time.Time
	EndDate    time.Time
	StartClock string
	EndClock   string
	PatientRef string
	DoctorID   string
	RoomID     string
	Channel    domain.Channel
	Services   []domain.ServiceItem
}

type OutcomeStatus string

const (
	OutcomeCreated OutcomeStatus = "created"
	OutcomeSkipped OutcomeStatus = "skipped"
)

// Outcome reports what happened to one computed occurrence.
type Outcome struct {
	Date           time.Time
	Status         OutcomeStatus
	AppointmentID  uuid.UUID
	ConflictingIDs []uuid.UUID
}

// ExpandRecurring steps the rule from StartDate to EndDate and creates one
// appointment per occurrence. Occurrences that conflict are skipped, not
// fatal: the caller gets a full per-occurrence report and decides whether
// partial creation is acceptable. Infrastructure failures do abort, since
// continuing would leave the report unreliable.
func (s *Service) ExpandRecurring(ctx context.Context, rule RecurrenceRule) ([]Outcome, error) {
	if !rule.Frequency.Valid() {
		return nil, validationError("frequency must be daily, weekly, or monthly")
	}
	if rule.StartDate.IsZero() || rule.EndDate.IsZero() {
		return nil, validationError("start_date and end_date are required")
	}
	if domain.DateOnly(rule.EndDate).Sub(domain.DateOnly(rule.StartDate)) > recurrenceHorizon {
		return nil, validationError("end_date must be within 180 days of start_date")
	}

	dates, err := domain.OccurrenceDates(rule.Frequency, rule.StartDate, rule.EndDate)
	if err != nil {
		return nil, validationError(err.Error())
	}

	out := make([]Outcome, 0, len(dates))
	for _, date := range dates {
		appt, err := s.Create(ctx, CreateInput{
			PatientRef: rule.PatientRef,
			Day:        date,
			StartClock: rule.StartClock,
			EndClock:   rule.EndClock,
			DoctorID:   rule.DoctorID,
			RoomID:     rule.RoomID,
			Channel:    rule.Channel,
			Services:   rule.Services,
		})
		if err != nil {
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				out = append(out, Outcome{
					Date:           date,
					Status:         OutcomeSkipped,
					ConflictingIDs: conflict.ConflictingIDs,
				})
				continue
			}
			return out, err
		}

		out = append(out, Outcome{
			Date:          date,
			Status:        OutcomeCreated,
			AppointmentID: appt.ID,
		})
	}

	return out, nil
}
