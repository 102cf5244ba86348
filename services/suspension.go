package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"classplanner_go/database"
	"classplanner_go/models"
	"classplanner_go/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Makeup strategies for a suspension.
const (
	MakeupStrategyAddToLastPhase = "add_to_last_phase"
	MakeupStrategyManual         = "manual"
)

// ManualMakeup is the admin-supplied replacement slot for one suspended
// session. The end time is never taken from here: it is derived from the
// original session's duration.
type ManualMakeup struct {
	SessionID   uint       `json:"session_id"`
	Date        utils.Date `json:"date"`
	StartMinute int        `json:"start_minute"`
}

// PlannedMakeup is one replacement session the plan will create.
type PlannedMakeup struct {
	ForSessionID       uint       `json:"for_session_id"`
	PhaseNumber        int        `json:"phase_number"`
	PhaseSessionNumber int        `json:"phase_session_number"`
	Date               utils.Date `json:"date"`
	StartMinute        int        `json:"start_minute"`
	EndMinute          int        `json:"end_minute"`
	AssignedTeacherID  uint       `json:"assigned_teacher_id"`
}

// SuspensionPlan is the fully validated output of the suspension workflow,
// ready to be previewed or committed. Building a plan has no side effects;
// an abandoned plan leaves nothing behind.
type SuspensionPlan struct {
	ClassID          uint            `json:"class_id"`
	Reason           string          `json:"reason"`
	Strategy         string          `json:"strategy"`
	CancelSessionIDs []uint          `json:"cancel_session_ids"`
	Makeups          []PlannedMakeup `json:"makeups"`
	NewEndDate       *utils.Date     `json:"new_end_date,omitempty"`
}

// BuildSuspensionPlan validates a suspension request against the class's
// persisted sessions and produces the session mutations to apply.
//
// All suspended sessions must share one phase. With the manual strategy each
// suspended session needs a replacement date inside its phase's date range,
// and the replacement inherits the original session's duration. With the
// auto strategy one session per suspension is appended after the last
// phase/session index, inheriting the suspended session's weekday and times;
// session numbers are never reused.
func BuildSuspensionPlan(class models.Class, sessions []models.ClassSession, suspendIDs []uint, reason, strategy string, manual []ManualMakeup, holidays map[utils.Date]bool) (*SuspensionPlan, error) {
	if reason == "" {
		return nil, NewValidationError("reason", "a suspension reason is required")
	}
	if len(suspendIDs) == 0 {
		return nil, NewValidationError("session_ids", "select at least one session to suspend")
	}
	if strategy != MakeupStrategyAddToLastPhase && strategy != MakeupStrategyManual {
		return nil, NewValidationError("makeup_strategy", "unknown strategy %q", strategy)
	}

	byID := make(map[uint]models.ClassSession, len(sessions))
	for _, session := range sessions {
		byID[session.ID] = session
	}

	suspended := make([]models.ClassSession, 0, len(suspendIDs))
	phaseNumber := 0
	for _, id := range suspendIDs {
		session, ok := byID[id]
		if !ok || session.ClassID != class.ID {
			return nil, NewValidationError("session_ids", "session %d does not belong to class %d", id, class.ID)
		}
		if session.Status == SessionStatusCancelled {
			return nil, NewValidationError("session_ids", "session %d is already cancelled", id)
		}
		if phaseNumber == 0 {
			phaseNumber = session.PhaseNumber
		} else if session.PhaseNumber != phaseNumber {
			return nil, NewValidationError("session_ids", "all suspended sessions must belong to one phase")
		}
		suspended = append(suspended, session)
	}
	sort.Slice(suspended, func(i, j int) bool {
		return ActualSessionDate(suspended[i]).Before(ActualSessionDate(suspended[j]))
	})

	plan := &SuspensionPlan{
		ClassID:  class.ID,
		Reason:   reason,
		Strategy: strategy,
	}
	for _, session := range suspended {
		plan.CancelSessionIDs = append(plan.CancelSessionIDs, session.ID)
	}

	var err error
	switch strategy {
	case MakeupStrategyManual:
		plan.Makeups, err = planManualMakeups(sessions, suspended, manual)
	case MakeupStrategyAddToLastPhase:
		plan.Makeups, err = planAppendedMakeups(class, sessions, suspended, holidays)
	}
	if err != nil {
		return nil, err
	}

	if end := recomputePlanEndDate(sessions, plan); end != nil {
		plan.NewEndDate = end
	}
	return plan, nil
}

func planManualMakeups(all, suspended []models.ClassSession, manual []ManualMakeup) ([]PlannedMakeup, error) {
	bysession := make(map[uint]ManualMakeup, len(manual))
	for _, m := range manual {
		bysession[m.SessionID] = m
	}

	spans, err := BuildPhaseSpans(all)
	if err != nil {
		return nil, err
	}
	spanByPhase := make(map[int]PhaseSpan, len(spans))
	for _, span := range spans {
		spanByPhase[span.PhaseNumber] = span
	}

	nextNumber := nextSessionNumberInPhase(all, suspended[0].PhaseNumber)

	makeups := make([]PlannedMakeup, 0, len(suspended))
	for _, session := range suspended {
		m, ok := bysession[session.ID]
		if !ok {
			return nil, NewValidationError("makeups", "no makeup supplied for session %d", session.ID)
		}
		if m.Date.IsZero() {
			return nil, NewValidationError("makeups", "makeup date missing for session %d", session.ID)
		}

		span, ok := spanByPhase[session.PhaseNumber]
		if ok {
			if m.Date.Before(span.FirstSessionDate) || m.Date.After(span.LastSessionDate) {
				return nil, NewValidationError("makeups",
					"makeup date %s for session %d is outside phase %d (%s to %s)",
					m.Date, session.ID, session.PhaseNumber, span.FirstSessionDate, span.LastSessionDate)
			}
		}

		duration, err := sessionDurationMinutes(session)
		if err != nil {
			return nil, err
		}

		makeups = append(makeups, PlannedMakeup{
			ForSessionID:       session.ID,
			PhaseNumber:        session.PhaseNumber,
			PhaseSessionNumber: nextNumber,
			Date:               m.Date,
			StartMinute:        m.StartMinute,
			EndMinute:          m.StartMinute + duration,
			AssignedTeacherID:  session.AssignedTeacherID,
		})
		nextNumber++
	}
	return makeups, nil
}

func planAppendedMakeups(class models.Class, all, suspended []models.ClassSession, holidays map[utils.Date]bool) ([]PlannedMakeup, error) {
	lastPhase := class.PhaseCount
	nextNumber := nextSessionNumberInPhase(all, lastPhase)

	// The tail is the last surviving session date; appended makeups land
	// strictly after it.
	tail := utils.DateOf(class.StartDate)
	for _, session := range all {
		if session.Status == SessionStatusCancelled {
			continue
		}
		if date := ActualSessionDate(session); date.After(tail) {
			tail = date
		}
	}

	makeups := make([]PlannedMakeup, 0, len(suspended))
	for _, session := range suspended {
		weekday := utils.DateOf(session.ScheduledDate).Weekday()
		start, err := MinuteOfDay(session.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := MinuteOfDay(session.EndTime)
		if err != nil {
			return nil, err
		}

		date := nextWeekdayAfter(tail, weekday, holidays)
		if date.IsZero() {
			return nil, NewValidationError("holidays", "no available %s within the search window", weekday)
		}
		tail = date

		makeups = append(makeups, PlannedMakeup{
			ForSessionID:       session.ID,
			PhaseNumber:        lastPhase,
			PhaseSessionNumber: nextNumber,
			Date:               date,
			StartMinute:        start,
			EndMinute:          end,
			AssignedTeacherID:  session.AssignedTeacherID,
		})
		nextNumber++
	}
	return makeups, nil
}

// nextWeekdayAfter finds the first date strictly after from with the given
// weekday that is not a holiday.
func nextWeekdayAfter(from utils.Date, weekday time.Weekday, holidays map[utils.Date]bool) utils.Date {
	date := from.AddDays(1)
	for i := 0; i < maxGenerateDays; i++ {
		if date.Weekday() == weekday && !holidays[date] {
			return date
		}
		date = date.AddDays(1)
	}
	return utils.Date{}
}

func nextSessionNumberInPhase(sessions []models.ClassSession, phase int) int {
	next := 1
	for _, session := range sessions {
		if session.PhaseNumber == phase && session.PhaseSessionNumber >= next {
			next = session.PhaseSessionNumber + 1
		}
	}
	return next
}

func sessionDurationMinutes(session models.ClassSession) (int, error) {
	start, err := MinuteOfDay(session.StartTime)
	if err != nil {
		return 0, err
	}
	end, err := MinuteOfDay(session.EndTime)
	if err != nil {
		return 0, err
	}
	if end <= start {
		return 0, NewValidationError("sessions", "session %d has a non-positive duration", session.ID)
	}
	return end - start, nil
}

// recomputePlanEndDate applies the plan to the session set in memory and
// returns the resulting last date, or nil when it does not move.
func recomputePlanEndDate(sessions []models.ClassSession, plan *SuspensionPlan) *utils.Date {
	cancelled := make(map[uint]bool, len(plan.CancelSessionIDs))
	for _, id := range plan.CancelSessionIDs {
		cancelled[id] = true
	}

	var before, after utils.Date
	for _, session := range sessions {
		if session.Status == SessionStatusCancelled {
			continue
		}
		date := ActualSessionDate(session)
		if before.IsZero() || date.After(before) {
			before = date
		}
		if cancelled[session.ID] {
			continue
		}
		if after.IsZero() || date.After(after) {
			after = date
		}
	}
	for _, makeup := range plan.Makeups {
		if after.IsZero() || makeup.Date.After(after) {
			after = makeup.Date
		}
	}

	if after.IsZero() || after.Equal(before) {
		return nil
	}
	return &after
}

// SuspensionService commits suspension plans.
type SuspensionService struct {
	db *gorm.DB
}

func NewSuspensionService() *SuspensionService {
	return &SuspensionService{db: database.DB}
}

// Commit applies a plan atomically: suspended sessions become cancelled with
// the reason recorded, makeup sessions are created, the class end date is
// extended when needed, and an immutable Suspension record is written. Either
// everything lands or nothing does.
func (s *SuspensionService) Commit(plan *SuspensionPlan, userID uint) (*models.Suspension, error) {
	if plan == nil || len(plan.CancelSessionIDs) == 0 {
		return nil, NewValidationError("plan", "nothing to commit")
	}

	var record models.Suspension
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ClassSession{}).
			Where("id IN ? AND class_id = ? AND status <> ?", plan.CancelSessionIDs, plan.ClassID, SessionStatusCancelled).
			Updates(map[string]interface{}{
				"status":        SessionStatusCancelled,
				"cancel_reason": plan.Reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(plan.CancelSessionIDs)) {
			// Another commit raced us between plan and commit.
			return NewValidationError("session_ids", "sessions changed since the plan was built, rebuild the plan")
		}

		makeupIDs := make([]uint, 0, len(plan.Makeups))
		for _, makeup := range plan.Makeups {
			forID := makeup.ForSessionID
			session := models.ClassSession{
				ClassID:            plan.ClassID,
				PhaseNumber:        makeup.PhaseNumber,
				PhaseSessionNumber: makeup.PhaseSessionNumber,
				ScheduledDate:      makeup.Date.Time(),
				StartTime:          FormatMinuteOfDay(makeup.StartMinute),
				EndTime:            FormatMinuteOfDay(makeup.EndMinute),
				Status:             SessionStatusScheduled,
				AssignedTeacherID:  makeup.AssignedTeacherID,
				IsMakeup:           true,
				MakeupForSessionID: &forID,
			}
			if err := tx.Create(&session).Error; err != nil {
				return err
			}
			makeupIDs = append(makeupIDs, session.ID)
		}

		if plan.NewEndDate != nil {
			update := tx.Model(&models.Class{}).
				Where("id = ? AND end_date_manual = ?", plan.ClassID, false).
				Update("end_date", plan.NewEndDate.Time())
			if update.Error != nil {
				return update.Error
			}
		}

		affectedJSON, err := json.Marshal(plan.CancelSessionIDs)
		if err != nil {
			return err
		}
		makeupJSON, err := json.Marshal(makeupIDs)
		if err != nil {
			return err
		}

		record = models.Suspension{
			ClassID:            plan.ClassID,
			Reference:          uuid.NewString(),
			Reason:             plan.Reason,
			MakeupStrategy:     plan.Strategy,
			AffectedSessionIDs: affectedJSON,
			MakeupSessionIDs:   makeupJSON,
			CreatedByUserID:    userID,
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"class_id":  plan.ClassID,
		"reference": record.Reference,
		"suspended": len(plan.CancelSessionIDs),
		"makeups":   len(plan.Makeups),
		"strategy":  plan.Strategy,
	}).Info("Suspension committed")

	return &record, nil
}

// String gives plans a compact log form.
func (p *SuspensionPlan) String() string {
	return fmt.Sprintf("suspend %d sessions of class %d (%s)", len(p.CancelSessionIDs), p.ClassID, p.Strategy)
}
