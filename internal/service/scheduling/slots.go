package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
)

// OperatingHours is the clinic's bookable window on a day, in whole hours.
type OperatingHours struct {
	StartHour int
	EndHour   int
}

// AvailabilitySlot is a derived, never-persisted view of one candidate slot.
// Recomputed in full on every query; caching it across mutations would break
// the no-double-booking display guarantee.
type AvailabilitySlot struct {
	Interval  domain.TimeInterval
	Available bool
}

// GenerateSlots enumerates consecutive slotMinutes-sized intervals inside
// operating hours and marks each available unless the conflict checker finds
// a clash for the given resources. A final partial slot that does not fit
// entirely within the window is omitted.
//
// An empty resource set means clinic-wide availability: with no doctor or
// room to contend for, every slot comes back available. Callers wanting a
// meaningful answer must pass at least one resource.
func (c *Checker) GenerateSlots(ctx context.Context, day time.Time, hours OperatingHours, slotMinutes int, resources domain.ResourceSet) ([]AvailabilitySlot, error) {
	if slotMinutes <= 0 {
		return nil, validationError("slot duration must be positive")
	}
	if hours.StartHour < 0 || hours.EndHour > 24 || hours.EndHour <= hours.StartHour {
		return nil, validationError("operating hours must satisfy 0 <= start < end <= 24")
	}

	day = domain.DateOnly(day)

	// One ledger fetch covers every candidate; the per-slot test is the same
	// overlap predicate CheckConflict applies.
	var committed []CommittedInterval
	if !resources.Empty() {
		var err error
		committed, err = c.CommittedIntervals(ctx, day, resources, uuid.Nil)
		if err != nil {
			return nil, err
		}
	}

	windowStart := hours.StartHour * 60
	windowEnd := hours.EndHour * 60

	out := make([]AvailabilitySlot, 0, (windowEnd-windowStart)/slotMinutes)
	for start := windowStart; start+slotMinutes <= windowEnd; start += slotMinutes {
		candidate := domain.TimeInterval{Day: day, StartMinute: start, EndMinute: start + slotMinutes}

		available := true
		for _, ci := range committed {
			if candidate.Overlaps(ci.Interval) {
				available = false
				break
			}
		}

		out = append(out, AvailabilitySlot{Interval: candidate, Available: available})
	}

	return out, nil
}
