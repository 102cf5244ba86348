package services

import (
	"fmt"
	"sort"
	"time"

	"classplanner_go/utils"
)

// ScheduleSlot is one weekly recurring meeting time expressed in
// minutes-since-midnight, the unit all engine time math runs in.
type ScheduleSlot struct {
	Weekday     time.Weekday `json:"weekday"`
	StartMinute int          `json:"start_minute"`
	EndMinute   int          `json:"end_minute"`
}

// PlannedSession is one projected calendar meeting, produced by the
// generators and consumed by the commit paths.
type PlannedSession struct {
	PhaseNumber        int        `json:"phase_number"`
	PhaseSessionNumber int        `json:"phase_session_number"`
	Date               utils.Date `json:"date"`
	StartMinute        int        `json:"start_minute"`
	EndMinute          int        `json:"end_minute"`
	ShiftedByHoliday   bool       `json:"shifted_by_holiday,omitempty"`
}

// MinuteOfDay parses an "HH:MM" clock string into minutes since midnight.
func MinuteOfDay(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinuteOfDay renders minutes since midnight as "HH:MM".
func FormatMinuteOfDay(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// normalizeWeekdays returns the enabled weekdays sorted in canonical order
// (Sunday=0 .. Saturday=6) with duplicates removed.
func normalizeWeekdays(weekdays []time.Weekday) ([]time.Weekday, error) {
	if len(weekdays) == 0 {
		return nil, NewValidationError("weekdays", "at least one enabled weekday is required")
	}
	seen := make(map[time.Weekday]bool, len(weekdays))
	out := make([]time.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, NewValidationError("weekdays", "invalid weekday %d", wd)
		}
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// ValidateSlots checks the slot invariants: at least one slot, at most one
// slot per weekday, start before end.
func ValidateSlots(slots []ScheduleSlot) error {
	if len(slots) == 0 {
		return NewValidationError("slots", "at least one schedule slot is required")
	}
	byWeekday := make(map[time.Weekday]bool, len(slots))
	for _, slot := range slots {
		if slot.Weekday < time.Sunday || slot.Weekday > time.Saturday {
			return NewValidationError("slots", "invalid weekday %d", slot.Weekday)
		}
		if byWeekday[slot.Weekday] {
			return NewValidationError("slots", "duplicate slot for %s", slot.Weekday)
		}
		byWeekday[slot.Weekday] = true
		if slot.StartMinute < 0 || slot.EndMinute > 24*60 {
			return NewValidationError("slots", "slot time out of range on %s", slot.Weekday)
		}
		if slot.StartMinute >= slot.EndMinute {
			return NewValidationError("slots", "start time must be before end time on %s", slot.Weekday)
		}
	}
	return nil
}

// SlotWeekdays extracts the enabled weekday set from a slot list.
func SlotWeekdays(slots []ScheduleSlot) []time.Weekday {
	weekdays := make([]time.Weekday, 0, len(slots))
	for _, slot := range slots {
		weekdays = append(weekdays, slot.Weekday)
	}
	return weekdays
}

// ProjectSessionDate returns the calendar date of session
// (phaseNumber, sessionInPhase) for a class recurring on the given weekdays.
//
// The overall 0-based index of the session selects a position in the sorted
// weekday cycle plus a whole-week offset. If the start date's weekday is not
// enabled, the anchor advances to the next enabled weekday before indexing
// begins; the start date itself is never session one in that case.
func ProjectSessionDate(start utils.Date, weekdays []time.Weekday, phaseNumber, sessionInPhase, sessionsPerPhase int) (utils.Date, error) {
	cycle, err := normalizeWeekdays(weekdays)
	if err != nil {
		return utils.Date{}, err
	}
	if start.IsZero() {
		return utils.Date{}, NewValidationError("start_date", "start date is required")
	}
	if phaseNumber < 1 {
		return utils.Date{}, NewValidationError("phase_number", "must be at least 1")
	}
	if sessionsPerPhase < 1 {
		return utils.Date{}, NewValidationError("sessions_per_phase", "must be at least 1")
	}
	if sessionInPhase < 1 || sessionInPhase > sessionsPerPhase {
		return utils.Date{}, NewValidationError("session_in_phase", "must be between 1 and %d", sessionsPerPhase)
	}

	overall := (phaseNumber-1)*sessionsPerPhase + sessionInPhase - 1
	cycleLen := len(cycle)
	cyclePos := overall % cycleLen
	weekOffset := overall / cycleLen

	// Anchor on the first enabled date at or after the start date.
	base := start
	for i := 0; i < 7; i++ {
		if containsWeekday(cycle, base.Weekday()) {
			break
		}
		base = base.AddDays(1)
	}

	basePos := 0
	for i, wd := range cycle {
		if wd == base.Weekday() {
			basePos = i
			break
		}
	}

	// Walk the enabled-weekday cycle forward from the anchor position,
	// wrapping across week boundaries, then add whole weeks.
	date := base
	pos := basePos
	for step := 0; step < cyclePos; step++ {
		next := (pos + 1) % cycleLen
		gap := (int(cycle[next]) - int(cycle[pos]) + 7) % 7
		if gap == 0 {
			gap = 7
		}
		date = date.AddDays(gap)
		pos = next
	}

	return date.AddDays(weekOffset * 7), nil
}

// maxGenerateDays bounds the calendar walk so a holiday set covering every
// future enabled day cannot loop forever.
const maxGenerateDays = 3660

// GenerateSessions projects the complete session calendar for a curriculum of
// phaseCount x sessionsPerPhase meetings. Days whose date is in the holiday
// set are skipped without consuming a session slot, so every later session
// shifts forward; no session ever lands on a holiday.
func GenerateSessions(start utils.Date, slots []ScheduleSlot, phaseCount, sessionsPerPhase int, holidays map[utils.Date]bool) ([]PlannedSession, error) {
	if err := ValidateSlots(slots); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, NewValidationError("start_date", "start date is required")
	}
	if phaseCount < 1 {
		return nil, NewValidationError("phase_count", "must be at least 1")
	}
	if sessionsPerPhase < 1 {
		return nil, NewValidationError("sessions_per_phase", "must be at least 1")
	}

	slotByWeekday := make(map[time.Weekday]ScheduleSlot, len(slots))
	for _, slot := range slots {
		slotByWeekday[slot.Weekday] = slot
	}

	total := phaseCount * sessionsPerPhase
	sessions := make([]PlannedSession, 0, total)
	date := start
	shifted := false
	for day := 0; len(sessions) < total; day++ {
		if day > maxGenerateDays {
			return nil, NewValidationError("holidays", "could not place %d sessions within %d days", total, maxGenerateDays)
		}
		slot, enabled := slotByWeekday[date.Weekday()]
		if enabled {
			if holidays[date] {
				// Holiday consumes no slot; the remaining sessions shift.
				shifted = true
			} else {
				index := len(sessions)
				sessions = append(sessions, PlannedSession{
					PhaseNumber:        index/sessionsPerPhase + 1,
					PhaseSessionNumber: index%sessionsPerPhase + 1,
					Date:               date,
					StartMinute:        slot.StartMinute,
					EndMinute:          slot.EndMinute,
					ShiftedByHoliday:   shifted,
				})
			}
		}
		date = date.AddDays(1)
	}

	return sessions, nil
}

func containsWeekday(weekdays []time.Weekday, wd time.Weekday) bool {
	for _, candidate := range weekdays {
		if candidate == wd {
			return true
		}
	}
	return false
}
