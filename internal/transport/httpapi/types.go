package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/service/scheduling"
)

type CreateAppointmentRequest struct {
	PatientRef string               `json:"patient_ref"`
	Date       string               `json:"date"`
	Start      string               `json:"start"`
	End        string               `json:"end"`
	DoctorID   string               `json:"doctor_id,omitempty"`
	RoomID     string               `json:"room_id,omitempty"`
	Channel    string               `json:"channel"`
	Services   []domain.ServiceItem `json:"services,omitempty"`
}

type ModifyAppointmentRequest struct {
	Date     *string              `json:"date,omitempty"`
	Start    *string              `json:"start,omitempty"`
	End      *string              `json:"end,omitempty"`
	DoctorID *string              `json:"doctor_id,omitempty"`
	RoomID   *string              `json:"room_id,omitempty"`
	Services []domain.ServiceItem `json:"services,omitempty"`
}

type CheckInRequest struct {
	Operator string `json:"operator"`
}

type CancelRequest struct {
	Operator string `json:"operator"`
	Reason   string `json:"reason"`
}

type RecurringRequest struct {
	PatientRef string               `json:"patient_ref"`
	Frequency  string               `json:"frequency"`
	StartDate  string               `json:"start_date"`
	EndDate    string               `json:"end_date"`
	Start      string               `json:"start"`
	End        string               `json:"end"`
	DoctorID   string               `json:"doctor_id,omitempty"`
	RoomID     string               `json:"room_id,omitempty"`
	Channel    string               `json:"channel"`
	Services   []domain.ServiceItem `json:"services,omitempty"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID            `json:"id"`
	SequenceNumber     int64                `json:"sequence_number"`
	PatientRef         string               `json:"patient_ref"`
	DoctorID           string               `json:"doctor_id,omitempty"`
	RoomID             string               `json:"room_id,omitempty"`
	Date               string               `json:"date"`
	Start              string               `json:"start"`
	End                string               `json:"end"`
	Status             string               `json:"status"`
	Channel            string               `json:"channel"`
	Services           []domain.ServiceItem `json:"services,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CheckedInBy        string               `json:"checked_in_by,omitempty"`
	CancelledBy        string               `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	CheckedInAt        *time.Time           `json:"checked_in_at,omitempty"`
	StartedAt          *time.Time           `json:"started_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CancelledAt        *time.Time           `json:"cancelled_at,omitempty"`
}

type AvailabilityResponse struct {
	Available      bool        `json:"available"`
	ConflictingIDs []uuid.UUID `json:"conflicting_ids,omitempty"`
}

type SlotResponse struct {
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

type RecurringOutcomeResponse struct {
	Date           string      `json:"date"`
	Status         string      `json:"status"`
	AppointmentID  *uuid.UUID  `json:"appointment_id,omitempty"`
	ConflictingIDs []uuid.UUID `json:"conflicting_ids,omitempty"`
}

type RecurringResponse struct {
	Created  int                        `json:"created"`
	Skipped  int                        `json:"skipped"`
	Outcomes []RecurringOutcomeResponse `json:"outcomes"`
}

type ErrorResponse struct {
	Error          string      `json:"error"`
	Details        string      `json:"details,omitempty"`
	ConflictingIDs []uuid.UUID `json:"conflicting_ids,omitempty"`
}

func toAppointmentResponse(a domain.Appointment) AppointmentResponse {
	iv := a.Interval()
	return AppointmentResponse{
		ID:                 a.ID,
		SequenceNumber:     a.SequenceNumber,
		PatientRef:         a.PatientRef,
		DoctorID:           a.DoctorID,
		RoomID:             a.RoomID,
		Date:               a.Day.Format(time.DateOnly),
		Start:              iv.StartClock(),
		End:                iv.EndClock(),
		Status:             string(a.Status),
		Channel:            string(a.Channel),
		Services:           a.Services,
		CancellationReason: a.CancellationReason,
		CheckedInBy:        a.CheckedInBy,
		CancelledBy:        a.CancelledBy,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
		CheckedInAt:        a.CheckedInAt,
		StartedAt:          a.StartedAt,
		CompletedAt:        a.CompletedAt,
		CancelledAt:        a.CancelledAt,
	}
}

func toRecurringResponse(outcomes []scheduling.Outcome) RecurringResponse {
	resp := RecurringResponse{Outcomes: make([]RecurringOutcomeResponse, 0, len(outcomes))}
	for _, o := range outcomes {
		or := RecurringOutcomeResponse{
			Date:           o.Date.Format(time.DateOnly),
			Status:         string(o.Status),
			ConflictingIDs: o.ConflictingIDs,
		}
		switch o.Status {
		case scheduling.OutcomeCreated:
			id := o.AppointmentID
			or.AppointmentID = &id
			resp.Created++
		case scheduling.OutcomeSkipped:
			resp.Skipped++
		}
		resp.Outcomes = append(resp.Outcomes, or)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
