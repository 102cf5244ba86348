package services

import (
	"fmt"
	"time"
)

// ResourceBooking is one recurring claim on a resource (a room or a teacher),
// derived from the active class schedules. Bookings are computed on demand
// and never persisted.
type ResourceBooking struct {
	ResourceID      uint         `json:"resource_id"`
	OwningClassID   uint         `json:"owning_class_id"`
	OwningClassName string       `json:"owning_class_name"`
	Weekday         time.Weekday `json:"weekday"`
	StartMinute     int          `json:"start_minute"`
	EndMinute       int          `json:"end_minute"`
}

// Conflict reports one overlapping pair: the candidate slot, the existing
// booking it collides with, and the shared time window.
type Conflict struct {
	ResourceID           uint         `json:"resource_id"`
	Weekday              time.Weekday `json:"weekday"`
	OwningClassID        uint         `json:"owning_class_id"`
	OwningClassName      string       `json:"owning_class_name"`
	CandidateStartMinute int          `json:"candidate_start_minute"`
	CandidateEndMinute   int          `json:"candidate_end_minute"`
	ExistingStartMinute  int          `json:"existing_start_minute"`
	ExistingEndMinute    int          `json:"existing_end_minute"`
	OverlapStartMinute   int          `json:"overlap_start_minute"`
	OverlapEndMinute     int          `json:"overlap_end_minute"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %s-%s with class #%d (%s)",
		c.Weekday,
		FormatMinuteOfDay(c.OverlapStartMinute),
		FormatMinuteOfDay(c.OverlapEndMinute),
		c.OwningClassID,
		c.OwningClassName)
}

// FindConflicts reports every overlap between the candidate slots and the
// existing bookings of one resource, skipping bookings owned by any class in
// excludeClassIDs (the class itself for in-place edits, all participants
// during a merge).
//
// Intervals are half-open: a slot ending exactly when another starts is not
// a conflict. The detector is purely advisory; callers decide whether a
// non-empty result blocks the save.
func FindConflicts(candidateSlots []ScheduleSlot, bookings []ResourceBooking, excludeClassIDs map[uint]bool) []Conflict {
	var conflicts []Conflict
	for _, candidate := range candidateSlots {
		for _, booking := range bookings {
			if excludeClassIDs[booking.OwningClassID] {
				continue
			}
			if booking.Weekday != candidate.Weekday {
				continue
			}
			if candidate.StartMinute < booking.EndMinute && booking.StartMinute < candidate.EndMinute {
				conflicts = append(conflicts, Conflict{
					ResourceID:           booking.ResourceID,
					Weekday:              candidate.Weekday,
					OwningClassID:        booking.OwningClassID,
					OwningClassName:      booking.OwningClassName,
					CandidateStartMinute: candidate.StartMinute,
					CandidateEndMinute:   candidate.EndMinute,
					ExistingStartMinute:  booking.StartMinute,
					ExistingEndMinute:    booking.EndMinute,
					OverlapStartMinute:   maxMinute(candidate.StartMinute, booking.StartMinute),
					OverlapEndMinute:     minMinute(candidate.EndMinute, booking.EndMinute),
				})
			}
		}
	}
	return conflicts
}

func maxMinute(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minMinute(a, b int) int {
	if a < b {
		return a
	}
	return b
}
