package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinicops/backend/internal/lock"
	"clinicops/backend/internal/service/scheduling"
	"clinicops/backend/internal/store/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	svc := scheduling.NewService(memory.NewRepo(), lock.NewKeyedMutex(), scheduling.Config{RepoTimeout: 5 * time.Second})
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	server := NewServer(svc, scheduling.OperatingHours{StartHour: 9, EndHour: 20}, log)
	return NewRouter(server, NewHealthHandler(nil, nil, "test"), log)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func createReq(date, start, end, doctor, room string) CreateAppointmentRequest {
	return CreateAppointmentRequest{
		PatientRef: "patient-1",
		Date:       date,
		Start:      start,
		End:        end,
		DoctorID:   doctor,
		RoomID:     room,
		Channel:    "walk-in",
	}
}

func mustCreate(t *testing.T, router http.Handler, req CreateAppointmentRequest) AppointmentResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/appointments", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[AppointmentResponse](t, rec)
}

func TestCreateAppointment(t *testing.T) {
	router := newTestRouter(t)

	appt := mustCreate(t, router, createReq("2026-03-02", "10:00", "11:00", "d1", "r1"))
	if appt.Status != "confirmed" {
		t.Fatalf("status = %q, want confirmed", appt.Status)
	}
	if appt.Date != "2026-03-02" || appt.Start != "10:00" || appt.End != "11:00" {
		t.Fatalf("interval = %s %s-%s", appt.Date, appt.Start, appt.End)
	}
	if appt.SequenceNumber == 0 {
		t.Fatalf("sequence number not assigned")
	}
}

func TestCreateAppointment_BadRequests(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name string
		req  CreateAppointmentRequest
	}{
		{name: "bad date", req: createReq("02-03-2026", "10:00", "11:00", "d1", "")},
		{name: "bad clock", req: createReq("2026-03-02", "10am", "11:00", "d1", "")},
		{name: "inverted", req: createReq("2026-03-02", "11:00", "10:00", "d1", "")},
		{name: "bad channel", req: func() CreateAppointmentRequest {
			r := createReq("2026-03-02", "10:00", "11:00", "d1", "")
			r.Channel = "carrier-pigeon"
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/appointments", tt.req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateAppointment_ConflictCarriesIDs(t *testing.T) {
	router := newTestRouter(t)

	first := mustCreate(t, router, createReq("2026-03-02", "10:00", "11:00", "d1", ""))

	rec := doJSON(t, router, http.MethodPost, "/appointments", createReq("2026-03-02", "10:30", "11:30", "d1", ""))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body %s)", rec.Code, rec.Body.String())
	}
	errResp := decodeBody[ErrorResponse](t, rec)
	if errResp.Error != "booking_conflict" {
		t.Fatalf("error code = %q, want booking_conflict", errResp.Error)
	}
	if len(errResp.ConflictingIDs) != 1 || errResp.ConflictingIDs[0] != first.ID {
		t.Fatalf("conflicting ids = %v, want [%s]", errResp.ConflictingIDs, first.ID)
	}
}

func TestGetAppointment_NotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/appointments/0193b3a1-0000-7000-8000-000000000000", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/appointments/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	appt := mustCreate(t, router, createReq("2026-03-02", "10:00", "11:00", "d1", "r1"))
	base := fmt.Sprintf("/appointments/%s", appt.ID)

	rec := doJSON(t, router, http.MethodPost, base+"/check-in", CheckInRequest{Operator: "op-3"})
	if rec.Code != http.StatusOK {
		t.Fatalf("check-in status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[AppointmentResponse](t, rec); got.Status != "checked-in" || got.CheckedInBy != "op-3" {
		t.Fatalf("after check-in: %+v", got)
	}

	rec = doJSON(t, router, http.MethodPost, base+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, base+"/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[AppointmentResponse](t, rec); got.Status != "completed" || got.CompletedAt == nil {
		t.Fatalf("after complete: %+v", got)
	}

	// Completed is terminal.
	rec = doJSON(t, router, http.MethodPost, base+"/cancel", CancelRequest{Operator: "op-3", Reason: "late"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("cancel-after-complete status = %d, want 409", rec.Code)
	}
	if errResp := decodeBody[ErrorResponse](t, rec); errResp.Error != "invalid_state" {
		t.Fatalf("error code = %q, want invalid_state", errResp.Error)
	}
}

func TestModifyAppointmentOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	appt := mustCreate(t, router, createReq("2026-03-02", "10:00", "11:00", "d1", "r1"))

	start, end := "13:00", "14:00"
	rec := doJSON(t, router, http.MethodPut, fmt.Sprintf("/appointments/%s", appt.ID), ModifyAppointmentRequest{Start: &start, End: &end})
	if rec.Code != http.StatusOK {
		t.Fatalf("modify status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[AppointmentResponse](t, rec)
	if got.Start != "13:00" || got.End != "14:00" {
		t.Fatalf("modified interval = %s-%s, want 13:00-14:00", got.Start, got.End)
	}
}

func TestListAppointmentsByDay(t *testing.T) {
	router := newTestRouter(t)

	mustCreate(t, router, createReq("2026-03-02", "09:00", "10:00", "d1", ""))
	mustCreate(t, router, createReq("2026-03-02", "10:00", "11:00", "d2", ""))
	mustCreate(t, router, createReq("2026-03-03", "09:00", "10:00", "d1", ""))

	rec := doJSON(t, router, http.MethodGet, "/appointments?date=2026-03-02", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if got := decodeBody[[]AppointmentResponse](t, rec); len(got) != 2 {
		t.Fatalf("list returned %d appointments, want 2", len(got))
	}

	rec = doJSON(t, router, http.MethodGet, "/appointments?date=2026-03-02&doctor_id=d1", nil)
	if got := decodeBody[[]AppointmentResponse](t, rec); len(got) != 1 {
		t.Fatalf("filtered list returned %d appointments, want 1", len(got))
	}
}

func TestAvailabilityCheckEndpoint(t *testing.T) {
	router := newTestRouter(t)

	appt := mustCreate(t, router, createReq("2026-03-02", "10:00", "11:00", "d1", ""))

	rec := doJSON(t, router, http.MethodGet, "/availability/check?date=2026-03-02&start=10:30&end=11:30&doctor_id=d1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[AvailabilityResponse](t, rec)
	if got.Available {
		t.Fatalf("expected unavailable, got %+v", got)
	}
	if len(got.ConflictingIDs) != 1 || got.ConflictingIDs[0] != appt.ID {
		t.Fatalf("conflicting ids = %v, want [%s]", got.ConflictingIDs, appt.ID)
	}

	rec = doJSON(t, router, http.MethodGet, "/availability/check?date=2026-03-02&start=11:00&end=12:00&doctor_id=d1", nil)
	if got := decodeBody[AvailabilityResponse](t, rec); !got.Available {
		t.Fatalf("back-to-back slot reported unavailable")
	}
}

func TestSlotsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	mustCreate(t, router, createReq("2026-03-02", "12:00", "13:00", "d1", ""))

	rec := doJSON(t, router, http.MethodGet, "/availability/slots?date=2026-03-02&slot_minutes=60&doctor_id=d1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	slots := decodeBody[[]SlotResponse](t, rec)
	if len(slots) != 11 {
		t.Fatalf("slot count = %d, want 11", len(slots))
	}
	for _, slot := range slots {
		wantAvailable := slot.Start != "12:00"
		if slot.Available != wantAvailable {
			t.Fatalf("slot %s available = %v, want %v", slot.Start, slot.Available, wantAvailable)
		}
	}
}

func TestRecurringEndpoint(t *testing.T) {
	router := newTestRouter(t)

	// Occurrence three of four collides with this booking.
	mustCreate(t, router, createReq("2026-03-16", "10:00", "11:00", "d1", ""))

	rec := doJSON(t, router, http.MethodPost, "/appointments/recurring", RecurringRequest{
		PatientRef: "patient-9",
		Frequency:  "weekly",
		StartDate:  "2026-03-02",
		EndDate:    "2026-03-23",
		Start:      "10:00",
		End:        "11:00",
		DoctorID:   "d1",
		Channel:    "phone",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	got := decodeBody[RecurringResponse](t, rec)
	if got.Created != 3 || got.Skipped != 1 {
		t.Fatalf("created/skipped = %d/%d, want 3/1", got.Created, got.Skipped)
	}
	if len(got.Outcomes) != 4 {
		t.Fatalf("outcomes = %d, want 4", len(got.Outcomes))
	}
	if got.Outcomes[2].Status != "skipped" || len(got.Outcomes[2].ConflictingIDs) != 1 {
		t.Fatalf("outcome 2 = %+v, want skipped with one conflicting id", got.Outcomes[2])
	}
}

func TestRequestIDEcho(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Fatalf("X-Request-ID = %q, want req-42", got)
	}

	// Generated when absent.
	rec = doJSON(t, router, http.MethodGet, "/health/live", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("X-Request-ID not generated")
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health/live", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("liveness status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/health/ready", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readiness status = %d, body %s", rec.Code, rec.Body.String())
	}
	ready := decodeBody[ReadinessResponse](t, rec)
	if ready.Dependencies["postgres"] != "memory" {
		t.Fatalf("dependencies = %v, want postgres=memory", ready.Dependencies)
	}
}
