package services

import (
	"testing"
	"time"

	"classplanner_go/models"
	"classplanner_go/utils"
)

// suspensionFixture is a two-phase class meeting Monday and Wednesday
// 09:00-10:30 from 2025-01-06 (a Monday).
func suspensionFixture() (models.Class, []models.ClassSession) {
	class := models.Class{
		BaseModel:              models.BaseModel{ID: 1},
		ClassName:              "Grammar B1",
		Status:                 ClassStatusActive,
		PhaseCount:             2,
		SessionsPerPhase:       3,
		SessionDurationMinutes: 90,
		StartDate:              utils.NewDate(2025, time.January, 6).Time(),
	}

	dates := []utils.Date{
		utils.NewDate(2025, time.January, 6),
		utils.NewDate(2025, time.January, 8),
		utils.NewDate(2025, time.January, 13),
		utils.NewDate(2025, time.January, 15),
		utils.NewDate(2025, time.January, 20),
		utils.NewDate(2025, time.January, 22),
	}

	sessions := make([]models.ClassSession, 0, len(dates))
	for i, date := range dates {
		sessions = append(sessions, models.ClassSession{
			BaseModel:          models.BaseModel{ID: uint(i + 1)},
			ClassID:            1,
			PhaseNumber:        i/3 + 1,
			PhaseSessionNumber: i%3 + 1,
			ScheduledDate:      date.Time(),
			StartTime:          "09:00",
			EndTime:            "10:30",
			Status:             SessionStatusScheduled,
			AssignedTeacherID:  9,
		})
	}
	return class, sessions
}

func TestBuildSuspensionPlanValidation(t *testing.T) {
	class, sessions := suspensionFixture()

	tests := []struct {
		name     string
		ids      []uint
		reason   string
		strategy string
	}{
		{name: "empty selection", ids: nil, reason: "typhoon", strategy: MakeupStrategyAddToLastPhase},
		{name: "empty reason", ids: []uint{1}, reason: "", strategy: MakeupStrategyAddToLastPhase},
		{name: "unknown strategy", ids: []uint{1}, reason: "typhoon", strategy: "swap"},
		{name: "mixed phases", ids: []uint{3, 4}, reason: "typhoon", strategy: MakeupStrategyAddToLastPhase},
		{name: "unknown session", ids: []uint{99}, reason: "typhoon", strategy: MakeupStrategyAddToLastPhase},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildSuspensionPlan(class, sessions, tc.ids, tc.reason, tc.strategy, nil, nil)
			if err == nil {
				t.Fatalf("expected error")
			}
			if _, ok := AsValidationError(err); !ok {
				t.Fatalf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestBuildSuspensionPlanRejectsAlreadyCancelled(t *testing.T) {
	class, sessions := suspensionFixture()
	sessions[0].Status = SessionStatusCancelled

	_, err := BuildSuspensionPlan(class, sessions, []uint{1}, "typhoon", MakeupStrategyAddToLastPhase, nil, nil)
	if err == nil {
		t.Fatalf("expected already-cancelled session to be rejected")
	}
}

func TestBuildSuspensionPlanAddToLastPhase(t *testing.T) {
	class, sessions := suspensionFixture()

	// Suspend the Monday 2025-01-20 session of phase two.
	plan, err := BuildSuspensionPlan(class, sessions, []uint{5}, "typhoon", MakeupStrategyAddToLastPhase, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(plan.Makeups) != 1 {
		t.Fatalf("expected one makeup, got %d", len(plan.Makeups))
	}
	makeup := plan.Makeups[0]

	// Appended after the last phase index, never reusing a session number.
	if makeup.PhaseNumber != 2 || makeup.PhaseSessionNumber != 4 {
		t.Fatalf("expected phase 2 session 4, got %d/%d", makeup.PhaseNumber, makeup.PhaseSessionNumber)
	}
	// Same weekday as the suspended session, first Monday after the current tail (2025-01-22).
	if exp := utils.NewDate(2025, time.January, 27); makeup.Date != exp {
		t.Fatalf("expected makeup on %s, got %s", exp, makeup.Date)
	}
	if makeup.StartMinute != 9*60 || makeup.EndMinute != 10*60+30 {
		t.Fatalf("makeup should inherit the suspended session's times, got %s-%s",
			FormatMinuteOfDay(makeup.StartMinute), FormatMinuteOfDay(makeup.EndMinute))
	}
	if makeup.ForSessionID != 5 || makeup.AssignedTeacherID != 9 {
		t.Fatalf("makeup misattributed: %+v", makeup)
	}

	if plan.NewEndDate == nil || !plan.NewEndDate.Equal(utils.NewDate(2025, time.January, 27)) {
		t.Fatalf("expected end date extension to 2025-01-27, got %v", plan.NewEndDate)
	}
}

func TestBuildSuspensionPlanAddToLastPhaseSkipsHolidays(t *testing.T) {
	class, sessions := suspensionFixture()
	holidays := map[utils.Date]bool{
		utils.NewDate(2025, time.January, 27): true,
	}

	plan, err := BuildSuspensionPlan(class, sessions, []uint{5}, "typhoon", MakeupStrategyAddToLastPhase, nil, holidays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp := utils.NewDate(2025, time.February, 3); plan.Makeups[0].Date != exp {
		t.Fatalf("expected makeup to roll past the holiday to %s, got %s", exp, plan.Makeups[0].Date)
	}
}

func TestBuildSuspensionPlanManual(t *testing.T) {
	class, sessions := suspensionFixture()

	// Suspend the Wednesday 2025-01-08 session; makeup Friday the 10th at 14:00.
	manual := []ManualMakeup{
		{SessionID: 2, Date: utils.NewDate(2025, time.January, 10), StartMinute: 14 * 60},
	}
	plan, err := BuildSuspensionPlan(class, sessions, []uint{2}, "flood", MakeupStrategyManual, manual, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	makeup := plan.Makeups[0]
	if makeup.PhaseNumber != 1 || makeup.PhaseSessionNumber != 4 {
		t.Fatalf("expected phase 1 session 4, got %d/%d", makeup.PhaseNumber, makeup.PhaseSessionNumber)
	}
	// End time preserves the original session's 90-minute duration.
	if makeup.StartMinute != 14*60 || makeup.EndMinute != 15*60+30 {
		t.Fatalf("expected 14:00-15:30, got %s-%s",
			FormatMinuteOfDay(makeup.StartMinute), FormatMinuteOfDay(makeup.EndMinute))
	}

	// A makeup that does not push past the existing last session leaves the
	// end date alone.
	if plan.NewEndDate != nil {
		t.Fatalf("expected no end-date change, got %v", plan.NewEndDate)
	}
}

func TestBuildSuspensionPlanManualOutsidePhaseRange(t *testing.T) {
	class, sessions := suspensionFixture()

	// Phase one runs 2025-01-06 through 2025-01-13; the 20th is phase two territory.
	manual := []ManualMakeup{
		{SessionID: 2, Date: utils.NewDate(2025, time.January, 20), StartMinute: 9 * 60},
	}
	_, err := BuildSuspensionPlan(class, sessions, []uint{2}, "flood", MakeupStrategyManual, manual, nil)
	if err == nil {
		t.Fatalf("expected out-of-range makeup date to be rejected")
	}
	if _, ok := AsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestBuildSuspensionPlanManualMissingEntry(t *testing.T) {
	class, sessions := suspensionFixture()

	_, err := BuildSuspensionPlan(class, sessions, []uint{2}, "flood", MakeupStrategyManual, nil, nil)
	if err == nil {
		t.Fatalf("expected missing manual makeup to be rejected")
	}
}

func TestBuildSuspensionPlanMultipleAutoMakeupsChain(t *testing.T) {
	class, sessions := suspensionFixture()

	// Suspending both phase-two Monday and Wednesday sessions appends two
	// makeups on consecutive matching weekdays after the tail.
	plan, err := BuildSuspensionPlan(class, sessions, []uint{5, 6}, "typhoon", MakeupStrategyAddToLastPhase, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Makeups) != 2 {
		t.Fatalf("expected two makeups, got %d", len(plan.Makeups))
	}

	first, second := plan.Makeups[0], plan.Makeups[1]
	if exp := utils.NewDate(2025, time.January, 27); first.Date != exp {
		t.Fatalf("first makeup expected %s, got %s", exp, first.Date)
	}
	if exp := utils.NewDate(2025, time.January, 29); second.Date != exp {
		t.Fatalf("second makeup expected %s, got %s", exp, second.Date)
	}
	if first.PhaseSessionNumber != 4 || second.PhaseSessionNumber != 5 {
		t.Fatalf("session numbers must advance: %d then %d", first.PhaseSessionNumber, second.PhaseSessionNumber)
	}
}
