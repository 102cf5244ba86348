package services

import (
	"errors"
	"testing"
	"time"

	"classplanner_go/models"
	"classplanner_go/utils"
)

func mustDate(t *testing.T, s string) utils.Date {
	t.Helper()
	d, err := utils.ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestComputeEndDateProjection(t *testing.T) {
	start := mustDate(t, "2025-01-01") // Wednesday
	weekdays := []time.Weekday{time.Monday, time.Wednesday, time.Friday}

	end, err := ComputeEndDate(start, weekdays, 6, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Wed 1, Fri 3, Mon 6, Wed 8, Fri 10, Mon 13.
	if exp := mustDate(t, "2025-01-13"); end != exp {
		t.Fatalf("expected %s, got %s", exp, end)
	}
}

func TestComputeEndDateMatchesProjector(t *testing.T) {
	// With no holidays the projection-mode end date for the full curriculum
	// equals the projected date of the very last session.
	start := mustDate(t, "2025-03-05") // Wednesday
	weekdays := []time.Weekday{time.Tuesday, time.Wednesday, time.Saturday}
	phaseCount, sessionsPerPhase := 3, 4

	end, err := ComputeEndDate(start, weekdays, phaseCount*sessionsPerPhase, nil, nil)
	if err != nil {
		t.Fatalf("ComputeEndDate: %v", err)
	}

	last, err := ProjectSessionDate(start, weekdays, phaseCount, sessionsPerPhase, sessionsPerPhase)
	if err != nil {
		t.Fatalf("ProjectSessionDate: %v", err)
	}

	if end != last {
		t.Fatalf("end date %s disagrees with projected last session %s", end, last)
	}
}

func TestComputeEndDateHolidaysConsumeNoSlot(t *testing.T) {
	start := mustDate(t, "2025-01-06") // Monday
	weekdays := []time.Weekday{time.Monday}

	plain, err := ComputeEndDate(start, weekdays, 3, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp := mustDate(t, "2025-01-20"); plain != exp {
		t.Fatalf("expected %s, got %s", exp, plain)
	}

	// A holiday on the second Monday pushes the end out one full week.
	holidays := map[utils.Date]bool{mustDate(t, "2025-01-13"): true}
	shifted, err := ComputeEndDate(start, weekdays, 3, holidays, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp := mustDate(t, "2025-01-27"); shifted != exp {
		t.Fatalf("expected %s, got %s", exp, shifted)
	}
}

func TestComputeEndDateActualSessionsAuthoritative(t *testing.T) {
	moved := mustDate(t, "2025-04-22").Time()
	sessions := []models.ClassSession{
		{PhaseNumber: 1, PhaseSessionNumber: 1, ScheduledDate: mustDate(t, "2025-04-01").Time(), Status: SessionStatusCompleted},
		{PhaseNumber: 1, PhaseSessionNumber: 2, ScheduledDate: mustDate(t, "2025-04-08").Time(), Status: SessionStatusScheduled},
		// Rescheduled sessions count at their target date.
		{PhaseNumber: 1, PhaseSessionNumber: 3, ScheduledDate: mustDate(t, "2025-04-15").Time(), Status: SessionStatusRescheduled, MovedToDate: &moved},
		// Cancelled sessions are ignored even when latest.
		{PhaseNumber: 1, PhaseSessionNumber: 4, ScheduledDate: mustDate(t, "2025-04-29").Time(), Status: SessionStatusCancelled},
	}

	end, err := ComputeEndDate(utils.Date{}, nil, 0, nil, sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp := mustDate(t, "2025-04-22"); end != exp {
		t.Fatalf("expected %s, got %s", exp, end)
	}
}

func TestComputeEndDateIndeterminate(t *testing.T) {
	start := mustDate(t, "2025-01-01")

	tests := []struct {
		name     string
		weekdays []time.Weekday
		total    int
	}{
		{name: "no weekdays", weekdays: nil, total: 10},
		{name: "zero sessions", weekdays: []time.Weekday{time.Monday}, total: 0},
		{name: "negative sessions", weekdays: []time.Weekday{time.Monday}, total: -3},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeEndDate(start, tc.weekdays, tc.total, nil, nil)
			if !errors.Is(err, ErrIndeterminateEndDate) {
				t.Fatalf("expected ErrIndeterminateEndDate, got %v", err)
			}
		})
	}
}

func TestComputeEndDateAllSessionsCancelledFallsBack(t *testing.T) {
	sessions := []models.ClassSession{
		{ScheduledDate: mustDate(t, "2025-04-01").Time(), Status: SessionStatusCancelled},
	}

	start := mustDate(t, "2025-01-06") // Monday
	end, err := ComputeEndDate(start, []time.Weekday{time.Monday}, 2, nil, sessions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp := mustDate(t, "2025-01-13"); end != exp {
		t.Fatalf("expected projection fallback %s, got %s", exp, end)
	}
}
