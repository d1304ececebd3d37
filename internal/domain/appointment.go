package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked-in"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

// Active reports whether the status counts toward conflict detection.
// Completed appointments stay in the active set: a past booking still holds
// its slot in the ledger, only cancellations and no-shows release it.
func (s Status) Active() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type Channel string

const (
	ChannelWalkIn Channel = "walk-in"
	ChannelPhone  Channel = "phone"
	ChannelOnline Channel = "online"
)

func (c Channel) Valid() bool {
	return c == ChannelWalkIn || c == ChannelPhone || c == ChannelOnline
}

// ResourceSet is the set of exclusive resources an appointment occupies.
// Empty fields mean the axis is unassigned and can never conflict.
type ResourceSet struct {
	DoctorID string
	RoomID   string
}

// IDs returns the non-empty resource identifiers.
func (r ResourceSet) IDs() []string {
	ids := make([]string, 0, 2)
	if r.DoctorID != "" {
		ids = append(ids, r.DoctorID)
	}
	if r.RoomID != "" {
		ids = append(ids, r.RoomID)
	}
	return ids
}

// Intersects reports whether the two sets share any non-empty identifier.
// Resource-kind-agnostic: a shared identifier on either axis is enough.
func (r ResourceSet) Intersects(other ResourceSet) bool {
	for _, a := range r.IDs() {
		for _, b := range other.IDs() {
			if a == b {
				return true
			}
		}
	}
	return false
}

func (r ResourceSet) Empty() bool {
	return r.DoctorID == "" && r.RoomID == ""
}

// ServiceItem is an opaque requested-service entry. The conflict logic never
// interprets it.
type ServiceItem struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Price           int64  `json:"price,omitempty"`
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	SequenceNumber int64     `bun:"sequence_number,notnull"`
	PatientRef     string    `bun:"patient_ref,notnull"`

	DoctorID string `bun:"doctor_id,nullzero"`
	RoomID   string `bun:"room_id,nullzero"`

	Day         time.Time `bun:"day,notnull"`
	StartMinute int       `bun:"start_minute,notnull"`
	EndMinute   int       `bun:"end_minute,notnull"`

	Status   Status        `bun:"status,notnull"`
	Channel  Channel       `bun:"channel,notnull"`
	Services []ServiceItem `bun:"services,type:jsonb"`

	CancellationReason string `bun:"cancellation_reason"`
	CheckedInBy        string `bun:"checked_in_by"`
	CancelledBy        string `bun:"cancelled_by"`

	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
	CheckedInAt *time.Time `bun:"checked_in_at"`
	StartedAt   *time.Time `bun:"started_at"`
	CompletedAt *time.Time `bun:"completed_at"`
	CancelledAt *time.Time `bun:"cancelled_at"`
}

func (a *Appointment) Interval() TimeInterval {
	return TimeInterval{Day: a.Day, StartMinute: a.StartMinute, EndMinute: a.EndMinute}
}

func (a *Appointment) Resources() ResourceSet {
	return ResourceSet{DoctorID: a.DoctorID, RoomID: a.RoomID}
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
