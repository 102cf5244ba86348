package services

import (
	"testing"
	"time"
)

func TestFindConflictsOverlapWindow(t *testing.T) {
	// Room 5 booked Monday 09:00-10:00; candidate Monday 09:30-10:30.
	bookings := []ResourceBooking{
		{ResourceID: 5, OwningClassID: 11, OwningClassName: "Phonics A", Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 10 * 60},
	}
	candidate := []ScheduleSlot{
		{Weekday: time.Monday, StartMinute: 9*60 + 30, EndMinute: 10*60 + 30},
	}

	conflicts := FindConflicts(candidate, bookings, nil)
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly one conflict, got %d", len(conflicts))
	}

	c := conflicts[0]
	if c.OverlapStartMinute != 9*60+30 || c.OverlapEndMinute != 10*60 {
		t.Fatalf("expected overlap 09:30-10:00, got %s-%s",
			FormatMinuteOfDay(c.OverlapStartMinute), FormatMinuteOfDay(c.OverlapEndMinute))
	}
	if c.OwningClassID != 11 || c.ResourceID != 5 {
		t.Fatalf("conflict misattributed: %+v", c)
	}
}

func TestFindConflictsAdjacencyIsNotConflict(t *testing.T) {
	bookings := []ResourceBooking{
		{ResourceID: 2, OwningClassID: 7, Weekday: time.Wednesday, StartMinute: 10 * 60, EndMinute: 11 * 60},
	}
	candidate := []ScheduleSlot{
		// Ends exactly when the existing booking starts.
		{Weekday: time.Wednesday, StartMinute: 9 * 60, EndMinute: 10 * 60},
		// Starts exactly when the existing booking ends.
		{Weekday: time.Wednesday, StartMinute: 11 * 60, EndMinute: 12 * 60},
	}

	if conflicts := FindConflicts(candidate, bookings, nil); len(conflicts) != 0 {
		t.Fatalf("adjacent slots must not conflict, got %d conflicts", len(conflicts))
	}
}

func TestFindConflictsDifferentWeekday(t *testing.T) {
	bookings := []ResourceBooking{
		{ResourceID: 2, OwningClassID: 7, Weekday: time.Tuesday, StartMinute: 9 * 60, EndMinute: 10 * 60},
	}
	candidate := []ScheduleSlot{
		{Weekday: time.Thursday, StartMinute: 9 * 60, EndMinute: 10 * 60},
	}

	if conflicts := FindConflicts(candidate, bookings, nil); len(conflicts) != 0 {
		t.Fatalf("different weekdays must not conflict")
	}
}

func TestFindConflictsSymmetry(t *testing.T) {
	aSlots := []ScheduleSlot{{Weekday: time.Friday, StartMinute: 14 * 60, EndMinute: 16 * 60}}
	bSlots := []ScheduleSlot{{Weekday: time.Friday, StartMinute: 15 * 60, EndMinute: 17 * 60}}

	aBookings := []ResourceBooking{{ResourceID: 1, OwningClassID: 100, Weekday: time.Friday, StartMinute: 14 * 60, EndMinute: 16 * 60}}
	bBookings := []ResourceBooking{{ResourceID: 1, OwningClassID: 200, Weekday: time.Friday, StartMinute: 15 * 60, EndMinute: 17 * 60}}

	aAgainstB := FindConflicts(aSlots, bBookings, map[uint]bool{100: true})
	bAgainstA := FindConflicts(bSlots, aBookings, map[uint]bool{200: true})

	if len(aAgainstB) != len(bAgainstA) {
		t.Fatalf("overlap is symmetric but got %d vs %d conflicts", len(aAgainstB), len(bAgainstA))
	}
	if len(aAgainstB) != 1 {
		t.Fatalf("expected one conflict each way, got %d", len(aAgainstB))
	}
	if aAgainstB[0].OverlapStartMinute != bAgainstA[0].OverlapStartMinute ||
		aAgainstB[0].OverlapEndMinute != bAgainstA[0].OverlapEndMinute {
		t.Fatalf("overlap windows disagree: %+v vs %+v", aAgainstB[0], bAgainstA[0])
	}
}

func TestFindConflictsExcludesClasses(t *testing.T) {
	bookings := []ResourceBooking{
		{ResourceID: 3, OwningClassID: 21, Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 10 * 60},
		{ResourceID: 3, OwningClassID: 22, Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 10 * 60},
		{ResourceID: 3, OwningClassID: 23, Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 10 * 60},
	}
	candidate := []ScheduleSlot{{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 10 * 60}}

	// Excluding merge participants 21 and 22 leaves only class 23.
	conflicts := FindConflicts(candidate, bookings, map[uint]bool{21: true, 22: true})
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict after exclusion, got %d", len(conflicts))
	}
	if conflicts[0].OwningClassID != 23 {
		t.Fatalf("expected class 23, got %d", conflicts[0].OwningClassID)
	}
}

func TestFindConflictsReportsEveryPair(t *testing.T) {
	bookings := []ResourceBooking{
		{ResourceID: 4, OwningClassID: 31, Weekday: time.Tuesday, StartMinute: 8 * 60, EndMinute: 12 * 60},
	}
	candidate := []ScheduleSlot{
		{Weekday: time.Tuesday, StartMinute: 9 * 60, EndMinute: 10 * 60},
		{Weekday: time.Tuesday, StartMinute: 11 * 60, EndMinute: 13 * 60},
	}

	conflicts := FindConflicts(candidate, bookings, nil)
	if len(conflicts) != 2 {
		t.Fatalf("expected both candidate slots to be reported, got %d", len(conflicts))
	}
}
