package services

import (
	"time"

	"classplanner_go/models"
	"classplanner_go/utils"
)

// Session status values, matching the enum on models.ClassSession.
const (
	SessionStatusScheduled   = "scheduled"
	SessionStatusCompleted   = "completed"
	SessionStatusCancelled   = "cancelled"
	SessionStatusRescheduled = "rescheduled"
)

// ActualSessionDate returns the date a session effectively happens on:
// the rescheduled target when one exists, otherwise the scheduled date.
func ActualSessionDate(session models.ClassSession) utils.Date {
	if session.MovedToDate != nil {
		return utils.DateOf(*session.MovedToDate)
	}
	return utils.DateOf(session.ScheduledDate)
}

// ComputeEndDate determines when a class finishes.
//
// When persisted sessions are supplied, they are authoritative: cancelled
// sessions are dropped and the maximum actual date of the rest is returned.
// Otherwise the end date is projected by walking forward from the start date
// and counting enabled weekdays that are not holidays; a holiday consumes no
// session slot and does not shift the weekly pattern.
//
// Returns ErrIndeterminateEndDate when no projection is possible (empty
// weekday set, non-positive session count); callers must fall back to manual
// input rather than guess.
func ComputeEndDate(start utils.Date, weekdays []time.Weekday, totalSessions int, holidays map[utils.Date]bool, actualSessions []models.ClassSession) (utils.Date, error) {
	var last utils.Date
	for _, session := range actualSessions {
		if session.Status == SessionStatusCancelled {
			continue
		}
		date := ActualSessionDate(session)
		if last.IsZero() || date.After(last) {
			last = date
		}
	}
	if !last.IsZero() {
		return last, nil
	}

	// Projection mode.
	cycle, err := normalizeWeekdays(weekdays)
	if err != nil {
		return utils.Date{}, ErrIndeterminateEndDate
	}
	if totalSessions <= 0 || start.IsZero() {
		return utils.Date{}, ErrIndeterminateEndDate
	}

	counted := 0
	date := start
	for day := 0; ; day++ {
		if day > maxGenerateDays {
			return utils.Date{}, ErrIndeterminateEndDate
		}
		if containsWeekday(cycle, date.Weekday()) && !holidays[date] {
			counted++
			if counted == totalSessions {
				return date, nil
			}
		}
		date = date.AddDays(1)
	}
}
