package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/service/scheduling"
	"clinicops/backend/internal/store"
)

type schedulingService interface {
	Create(ctx context.Context, in scheduling.CreateInput) (domain.Appointment, error)
	Modify(ctx context.Context, id uuid.UUID, in scheduling.ModifyInput) (domain.Appointment, error)
	CheckIn(ctx context.Context, id uuid.UUID, operator string) (domain.Appointment, error)
	Start(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, operator, reason string) (domain.Appointment, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListDay(ctx context.Context, day time.Time, resources domain.ResourceSet) ([]domain.Appointment, error)
	ExpandRecurring(ctx context.Context, rule scheduling.RecurrenceRule) ([]scheduling.Outcome, error)
	Checker() *scheduling.Checker
}

// Server exposes the scheduling service over HTTP.
type Server struct {
	svc   schedulingService
	hours scheduling.OperatingHours
	log   *slog.Logger
}

func NewServer(svc schedulingService, hours scheduling.OperatingHours, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:   svc,
		hours: hours,
		log:   log.With(slog.String("component", "httpapi")),
	}
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	day, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}

	appt, err := s.svc.Create(r.Context(), scheduling.CreateInput{
		PatientRef: req.PatientRef,
		Day:        day,
		StartClock: req.Start,
		EndClock:   req.End,
		DoctorID:   req.DoctorID,
		RoomID:     req.RoomID,
		Channel:    domain.Channel(req.Channel),
		Services:   req.Services,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (s *Server) modifyAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req ModifyAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	in := scheduling.ModifyInput{
		StartClock: req.Start,
		EndClock:   req.End,
		DoctorID:   req.DoctorID,
		RoomID:     req.RoomID,
		Services:   req.Services,
	}
	if req.Date != nil {
		day, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		in.Day = &day
	}

	appt, err := s.svc.Modify(r.Context(), id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	appt, err := s.svc.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	day, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be YYYY-MM-DD")
		return
	}

	resources := domain.ResourceSet{
		DoctorID: r.URL.Query().Get("doctor_id"),
		RoomID:   r.URL.Query().Get("room_id"),
	}

	appts, err := s.svc.ListDay(r.Context(), day, resources)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := s.svc.CheckIn(r.Context(), id, req.Operator)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) startAppointment(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Start)
}

func (s *Server) completeAppointment(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.Complete)
}

func (s *Server) markNoShow(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.svc.MarkNoShow)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID) (domain.Appointment, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	appt, err := fn(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := s.svc.Cancel(r.Context(), id, req.Operator, req.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (s *Server) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	day, err := parseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be YYYY-MM-DD")
		return
	}

	interval, err := domain.NewInterval(day, q.Get("start"), q.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_interval", err.Error())
		return
	}

	resources := domain.ResourceSet{DoctorID: q.Get("doctor_id"), RoomID: q.Get("room_id")}

	var excludeID uuid.UUID
	if raw := q.Get("exclude_id"); raw != "" {
		excludeID, err = uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_exclude_id", "exclude_id must be a valid UUID")
			return
		}
	}

	result, err := s.svc.Checker().CheckConflict(r.Context(), scheduling.Proposed{Interval: interval, Resources: resources}, excludeID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Available:      !result.HasConflict,
		ConflictingIDs: result.ConflictingIDs,
	})
}

func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	day, err := parseDate(q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter must be YYYY-MM-DD")
		return
	}

	slotMinutes := 30
	if raw := q.Get("slot_minutes"); raw != "" {
		slotMinutes, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_minutes", "slot_minutes must be an integer")
			return
		}
	}

	resources := domain.ResourceSet{DoctorID: q.Get("doctor_id"), RoomID: q.Get("room_id")}

	slots, err := s.svc.Checker().GenerateSlots(r.Context(), day, s.hours, slotMinutes, resources)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	out := make([]SlotResponse, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotResponse{
			Date:      slot.Interval.Day.Format(time.DateOnly),
			Start:     slot.Interval.StartClock(),
			End:       slot.Interval.EndClock(),
			Available: slot.Available,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createRecurring(w http.ResponseWriter, r *http.Request) {
	var req RecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
		return
	}

	outcomes, err := s.svc.ExpandRecurring(r.Context(), scheduling.RecurrenceRule{
		Frequency:  domain.RecurrenceFrequency(req.Frequency),
		StartDate:  startDate,
		EndDate:    endDate,
		StartClock: req.Start,
		EndClock:   req.End,
		PatientRef: req.PatientRef,
		DoctorID:   req.DoctorID,
		RoomID:     req.RoomID,
		Channel:    domain.Channel(req.Channel),
		Services:   req.Services,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecurringResponse(outcomes))
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Conflicts carry the clashing appointment IDs so clients can offer
// alternatives without a second round trip.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr *scheduling.ValidationError
		cErr *scheduling.ConflictError
		sErr *scheduling.InvalidStateError
		uErr *scheduling.UnavailableError
	)

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "validation_failed", vErr.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", "no appointment with that id")
	case errors.As(err, &cErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:          "booking_conflict",
			Details:        cErr.Error(),
			ConflictingIDs: cErr.ConflictingIDs,
		})
	case errors.As(err, &sErr):
		writeError(w, http.StatusConflict, "invalid_state", sErr.Error())
	case errors.As(err, &uErr):
		s.log.Error("backend unavailable", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "temporarily_unavailable", "please retry shortly")
	default:
		s.log.Error("unhandled error", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(time.DateOnly, raw)
}
