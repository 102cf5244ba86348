package services

import (
	"time"

	"classplanner_go/models"
	"classplanner_go/utils"
)

// HolidayLookup returns the holiday set covering the inclusive date range.
// Implementations back onto HolidayService; they may return an empty set when
// the feed is unavailable so schedule operations degrade instead of failing.
type HolidayLookup func(start, end utils.Date) map[utils.Date]bool

// NoHolidays is the lookup that reports no holidays at all.
func NoHolidays(start, end utils.Date) map[utils.Date]bool {
	return map[utils.Date]bool{}
}

// The span of a schedule is not known until it is projected, and projecting
// it needs the holidays: skipped holidays push the real end date past any
// holiday-free estimate. The windowed variants below run the projection
// against a provisional window and widen it until the result fits inside the
// fetched years, so no session can land on a holiday the window never saw.

// GenerateSessionsWindowed projects the full session calendar with holiday
// data covering the whole projected span.
func GenerateSessionsWindowed(lookup HolidayLookup, start utils.Date, slots []ScheduleSlot, phaseCount, sessionsPerPhase int) ([]PlannedSession, error) {
	planned, err := GenerateSessions(start, slots, phaseCount, sessionsPerPhase, nil)
	if err != nil {
		return nil, err
	}
	end := planned[len(planned)-1].Date

	for {
		holidays := lookup(start, end)
		planned, err = GenerateSessions(start, slots, phaseCount, sessionsPerPhase, holidays)
		if err != nil {
			return nil, err
		}
		last := planned[len(planned)-1].Date
		if last.Year <= end.Year {
			return planned, nil
		}
		end = last
	}
}

// ComputeEndDateWindowed determines when a class finishes, fetching holidays
// for the full projected span. Persisted sessions remain authoritative and
// need no holiday data at all.
func ComputeEndDateWindowed(lookup HolidayLookup, start utils.Date, weekdays []time.Weekday, totalSessions int, actualSessions []models.ClassSession) (utils.Date, error) {
	end, err := ComputeEndDate(start, weekdays, totalSessions, nil, actualSessions)
	if err != nil {
		return utils.Date{}, err
	}

	for {
		holidays := lookup(start, end)
		next, err := ComputeEndDate(start, weekdays, totalSessions, holidays, actualSessions)
		if err != nil {
			return utils.Date{}, err
		}
		if next.Year <= end.Year {
			return next, nil
		}
		end = next
	}
}

// BuildSuspensionPlanWindowed builds a suspension plan with holiday data
// covering the whole makeup chain. The window starts at the class's current
// span; when appended makeups run past its last fetched year it widens and
// the plan is rebuilt, so a makeup crossing into a new year still skips that
// year's holidays.
func BuildSuspensionPlanWindowed(lookup HolidayLookup, class models.Class, sessions []models.ClassSession, suspendIDs []uint, reason, strategy string, manual []ManualMakeup) (*SuspensionPlan, error) {
	start := utils.DateOf(class.StartDate)
	end := start
	for _, session := range sessions {
		if session.Status == SessionStatusCancelled {
			continue
		}
		if date := ActualSessionDate(session); date.After(end) {
			end = date
		}
	}

	for {
		plan, err := BuildSuspensionPlan(class, sessions, suspendIDs, reason, strategy, manual, lookup(start, end))
		if err != nil {
			return nil, err
		}
		last := end
		for _, makeup := range plan.Makeups {
			if makeup.Date.After(last) {
				last = makeup.Date
			}
		}
		if last.Year <= end.Year {
			return plan, nil
		}
		end = last
	}
}
