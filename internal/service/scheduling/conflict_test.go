package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"clinicops/backend/internal/domain"
	"clinicops/backend/internal/store/memory"
)

func seedAppointment(t *testing.T, repo *memory.Repo, day time.Time, start, end string, doctor, room string, status domain.Status) domain.Appointment {
	t.Helper()

	interval, err := domain.NewInterval(day, start, end)
	if err != nil {
		t.Fatalf("NewInterval(%s, %s): %v", start, end, err)
	}
	appt, err := repo.Insert(context.Background(), domain.Appointment{
		PatientRef:  "seed",
		DoctorID:    doctor,
		RoomID:      room,
		Day:         interval.Day,
		StartMinute: interval.StartMinute,
		EndMinute:   interval.EndMinute,
		Status:      status,
		Channel:     domain.ChannelPhone,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return appt
}

func TestCheckConflict_EmptyResourcesSkipsLedger(t *testing.T) {
	repo := &funcRepo{
		findByDayFn: func(ctx context.Context, day time.Time, resources domain.ResourceSet) ([]domain.Appointment, error) {
			t.Fatal("ledger queried for an empty resource set")
			return nil, nil
		},
	}
	checker := NewChecker(repo, time.Second)

	interval, _ := domain.NewIntervalMinutes(testDay, 600, 660)
	result, err := checker.CheckConflict(context.Background(), Proposed{Interval: interval}, uuid.Nil)
	if err != nil {
		t.Fatalf("CheckConflict error: %v", err)
	}
	if result.HasConflict {
		t.Fatalf("empty resource set reported a conflict: %+v", result)
	}
}

func TestCheckConflict_StatusesInActiveSet(t *testing.T) {
	tests := []struct {
		status       domain.Status
		wantConflict bool
	}{
		{status: domain.StatusPending, wantConflict: true},
		{status: domain.StatusConfirmed, wantConflict: true},
		{status: domain.StatusCheckedIn, wantConflict: true},
		{status: domain.StatusInProgress, wantConflict: true},
		{status: domain.StatusCompleted, wantConflict: true},
		{status: domain.StatusCancelled, wantConflict: false},
		{status: domain.StatusNoShow, wantConflict: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			repo := memory.NewRepo()
			seedAppointment(t, repo, testDay, "10:00", "11:00", "d1", "", tt.status)
			checker := NewChecker(repo, time.Second)

			interval, _ := domain.NewIntervalMinutes(testDay, 630, 690)
			result, err := checker.CheckConflict(context.Background(), Proposed{
				Interval:  interval,
				Resources: domain.ResourceSet{DoctorID: "d1"},
			}, uuid.Nil)
			if err != nil {
				t.Fatalf("CheckConflict error: %v", err)
			}
			if result.HasConflict != tt.wantConflict {
				t.Fatalf("HasConflict = %v, want %v", result.HasConflict, tt.wantConflict)
			}
		})
	}
}

func TestCheckConflict_DisjointResourcesDoNotClash(t *testing.T) {
	repo := memory.NewRepo()
	seedAppointment(t, repo, testDay, "10:00", "11:00", "d1", "r1", domain.StatusConfirmed)
	checker := NewChecker(repo, time.Second)

	interval, _ := domain.NewIntervalMinutes(testDay, 600, 660)
	result, err := checker.CheckConflict(context.Background(), Proposed{
		Interval:  interval,
		Resources: domain.ResourceSet{DoctorID: "d2", RoomID: "r2"},
	}, uuid.Nil)
	if err != nil {
		t.Fatalf("CheckConflict error: %v", err)
	}
	if result.HasConflict {
		t.Fatalf("disjoint resources reported a conflict: %+v", result)
	}
}

func TestCheckConflict_ExcludeIDDropsSelf(t *testing.T) {
	repo := memory.NewRepo()
	appt := seedAppointment(t, repo, testDay, "10:00", "11:00", "d1", "", domain.StatusConfirmed)
	checker := NewChecker(repo, time.Second)

	interval, _ := domain.NewIntervalMinutes(testDay, 615, 675)
	result, err := checker.CheckConflict(context.Background(), Proposed{
		Interval:  interval,
		Resources: domain.ResourceSet{DoctorID: "d1"},
	}, appt.ID)
	if err != nil {
		t.Fatalf("CheckConflict error: %v", err)
	}
	if result.HasConflict {
		t.Fatalf("appointment conflicted with itself: %+v", result)
	}
}

func TestCheckConflict_ReturnsEveryClash(t *testing.T) {
	repo := memory.NewRepo()
	a := seedAppointment(t, repo, testDay, "09:00", "10:00", "d1", "", domain.StatusConfirmed)
	b := seedAppointment(t, repo, testDay, "09:30", "10:30", "", "r1", domain.StatusPending)
	c := seedAppointment(t, repo, testDay, "10:00", "11:00", "d1", "r1", domain.StatusCheckedIn)
	seedAppointment(t, repo, testDay, "12:00", "13:00", "d1", "r1", domain.StatusConfirmed)
	checker := NewChecker(repo, time.Second)

	interval, _ := domain.NewIntervalMinutes(testDay, 570, 630) // 09:30-10:30
	result, err := checker.CheckConflict(context.Background(), Proposed{
		Interval:  interval,
		Resources: domain.ResourceSet{DoctorID: "d1", RoomID: "r1"},
	}, uuid.Nil)
	if err != nil {
		t.Fatalf("CheckConflict error: %v", err)
	}

	want := map[uuid.UUID]bool{a.ID: true, b.ID: true, c.ID: true}
	if len(result.ConflictingIDs) != len(want) {
		t.Fatalf("conflicting ids = %v, want 3 of %v", result.ConflictingIDs, want)
	}
	for _, id := range result.ConflictingIDs {
		if !want[id] {
			t.Fatalf("unexpected conflicting id %s", id)
		}
	}
}

func TestCheckConflict_RepoFailureIsUnavailable(t *testing.T) {
	repoErr := errors.New("backend down")
	repo := &funcRepo{
		findByDayFn: func(ctx context.Context, day time.Time, resources domain.ResourceSet) ([]domain.Appointment, error) {
			return nil, repoErr
		},
	}
	checker := NewChecker(repo, time.Second)

	interval, _ := domain.NewIntervalMinutes(testDay, 600, 660)
	_, err := checker.CheckConflict(context.Background(), Proposed{
		Interval:  interval,
		Resources: domain.ResourceSet{DoctorID: "d1"},
	}, uuid.Nil)

	var uErr *UnavailableError
	if !errors.As(err, &uErr) {
		t.Fatalf("error = %v, want *UnavailableError", err)
	}
	if !IsRetryable(err) {
		t.Fatalf("IsRetryable(%v) = false, want true", err)
	}
}
