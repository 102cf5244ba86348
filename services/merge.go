package services

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"classplanner_go/database"
	"classplanner_go/models"
	"classplanner_go/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Class status values, matching the enum on models.Class.
const (
	ClassStatusDraft     = "draft"
	ClassStatusActive    = "active"
	ClassStatusCompleted = "completed"
	ClassStatusMerged    = "merged"
	ClassStatusArchived  = "archived"
)

// SlotEdit is one manually adjusted weekly slot for a merged schedule. Only
// the start moves; the end is recomputed from the source schedule's per-day
// duration so edited slots never drift shorter or longer.
type SlotEdit struct {
	Weekday     time.Weekday `json:"weekday"`
	StartMinute int          `json:"start_minute"`
}

// ClassSnapshot is the full pre-merge state of one original class.
type ClassSnapshot struct {
	Class       models.Class          `json:"class"`
	Slots       []models.ClassSlot    `json:"slots"`
	Sessions    []models.ClassSession `json:"sessions"`
	Enrollments []models.Enrollment   `json:"enrollments"`
}

// MergeSnapshot is what MergeHistory.Snapshot holds.
type MergeSnapshot struct {
	Originals []ClassSnapshot `json:"originals"`
}

// MergeRequest describes one merge: which classes fold together, whose
// schedule the merged class adopts, and the merged metadata.
type MergeRequest struct {
	SourceClassIDs        []uint     `json:"source_class_ids"`
	ScheduleSourceClassID uint       `json:"schedule_source_class_id"`
	ManualSlots           []SlotEdit `json:"manual_slots,omitempty"`
	MergedName            string     `json:"merged_name"`
	RoomID                uint       `json:"room_id"`
	TeacherID             uint       `json:"teacher_id"`
	StartDate             utils.Date `json:"start_date"`
}

// ActivePhaseOfClass computes a class's current phase from its persisted
// sessions; 0 means the class has no live sessions yet (not started).
func ActivePhaseOfClass(class models.Class, today utils.Date) (int, error) {
	live := 0
	for _, session := range class.Sessions {
		if session.Status != SessionStatusCancelled {
			live++
		}
	}
	if live == 0 {
		return 0, nil
	}
	spans, err := BuildPhaseSpans(class.Sessions)
	if err != nil {
		return 0, err
	}
	return ResolveActivePhase(today, spans), nil
}

// CheckMergeEligibility decides whether candidate may merge with target:
// same active phase (or both not started), same level tag, both active, and
// never the target itself.
func CheckMergeEligibility(target, candidate models.Class, targetPhase, candidatePhase int) error {
	if candidate.ID == target.ID {
		return NewValidationError("class_id", "a class cannot merge with itself")
	}
	if target.Status != ClassStatusActive || candidate.Status != ClassStatusActive {
		return NewValidationError("status", "only active classes can merge")
	}
	if target.LevelTag != candidate.LevelTag {
		return NewValidationError("level_tag", "classes must share a level (%q vs %q)", target.LevelTag, candidate.LevelTag)
	}
	if targetPhase != candidatePhase {
		return NewValidationError("phase", "classes must be in the same phase (%d vs %d)", targetPhase, candidatePhase)
	}
	return nil
}

// ReconcileSlots builds the merged schedule's slot set. With no edits the
// source schedule is reused verbatim. Each edited slot keeps the source
// slot's duration on that weekday; for a weekday the source never met on,
// defaultDuration (the source curriculum's session length) applies.
func ReconcileSlots(source []ScheduleSlot, edits []SlotEdit, defaultDuration int) ([]ScheduleSlot, error) {
	if len(edits) == 0 {
		if err := ValidateSlots(source); err != nil {
			return nil, err
		}
		return source, nil
	}

	durationByWeekday := make(map[time.Weekday]int, len(source))
	for _, slot := range source {
		durationByWeekday[slot.Weekday] = slot.EndMinute - slot.StartMinute
	}

	slots := make([]ScheduleSlot, 0, len(edits))
	for _, edit := range edits {
		duration, ok := durationByWeekday[edit.Weekday]
		if !ok {
			if defaultDuration <= 0 {
				return nil, NewValidationError("manual_slots", "no duration known for %s", edit.Weekday)
			}
			duration = defaultDuration
		}
		slots = append(slots, ScheduleSlot{
			Weekday:     edit.Weekday,
			StartMinute: edit.StartMinute,
			EndMinute:   edit.StartMinute + duration,
		})
	}
	if err := ValidateSlots(slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// MergeEnrollments unions the participants' enrollment sets. Students in
// more than one source class keep their earliest enrollment timestamp and
// the union of their phase lists.
func MergeEnrollments(groups ...[]models.Enrollment) ([]models.Enrollment, error) {
	byStudent := make(map[uint]*models.Enrollment)
	order := make([]uint, 0)

	for _, group := range groups {
		for _, enrollment := range group {
			phases, err := decodePhases(enrollment.Phases)
			if err != nil {
				return nil, err
			}

			existing, ok := byStudent[enrollment.StudentID]
			if !ok {
				merged := models.Enrollment{
					StudentID:  enrollment.StudentID,
					EnrolledAt: enrollment.EnrolledAt,
					Status:     enrollment.Status,
				}
				merged.Phases, err = encodePhases(phases)
				if err != nil {
					return nil, err
				}
				byStudent[enrollment.StudentID] = &merged
				order = append(order, enrollment.StudentID)
				continue
			}

			if enrollment.EnrolledAt.Before(existing.EnrolledAt) {
				existing.EnrolledAt = enrollment.EnrolledAt
			}
			existingPhases, err := decodePhases(existing.Phases)
			if err != nil {
				return nil, err
			}
			existing.Phases, err = encodePhases(unionPhases(existingPhases, phases))
			if err != nil {
				return nil, err
			}
		}
	}

	merged := make([]models.Enrollment, 0, len(byStudent))
	for _, studentID := range order {
		merged = append(merged, *byStudent[studentID])
	}
	return merged, nil
}

func decodePhases(raw models.JSON) ([]int, error) {
	if raw.IsNull() {
		return nil, nil
	}
	var phases []int
	if err := json.Unmarshal(raw, &phases); err != nil {
		return nil, NewValidationError("phases", "corrupt phase list: %v", err)
	}
	return phases, nil
}

func encodePhases(phases []int) (models.JSON, error) {
	if len(phases) == 0 {
		return nil, nil
	}
	sort.Ints(phases)
	return json.Marshal(phases)
}

func unionPhases(a, b []int) []int {
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, phase := range append(a, b...) {
		if !seen[phase] {
			seen[phase] = true
			out = append(out, phase)
		}
	}
	return out
}

// MergeService coordinates class merges and their reversal.
type MergeService struct {
	db *gorm.DB
}

func NewMergeService() *MergeService {
	return &MergeService{db: database.DB}
}

// Candidates lists the classes eligible to merge with the given class.
func (s *MergeService) Candidates(classID uint, today utils.Date) ([]models.Class, error) {
	var target models.Class
	if err := s.db.Preload("Sessions").First(&target, classID).Error; err != nil {
		return nil, err
	}
	targetPhase, err := ActivePhaseOfClass(target, today)
	if err != nil {
		return nil, err
	}

	var others []models.Class
	if err := s.db.Preload("Sessions").
		Where("id <> ? AND status = ?", classID, ClassStatusActive).
		Find(&others).Error; err != nil {
		return nil, err
	}

	eligible := make([]models.Class, 0, len(others))
	for _, candidate := range others {
		candidatePhase, err := ActivePhaseOfClass(candidate, today)
		if err != nil {
			continue // a candidate with corrupt spans just drops out of the list
		}
		if CheckMergeEligibility(target, candidate, targetPhase, candidatePhase) == nil {
			eligible = append(eligible, candidate)
		}
	}
	return eligible, nil
}

// Commit performs the merge atomically: a new class is created with the
// reconciled schedule, regenerated sessions and the unioned enrollments; the
// originals are snapshotted into a MergeHistory record and destroyed.
// Conflicts are re-validated inside the transaction, on the transaction
// handle, so a racing edit cannot slip between check and write. The holiday
// lookup is consulted for whatever year range the merged schedule ends up
// spanning.
func (s *MergeService) Commit(req MergeRequest, holidays HolidayLookup, today utils.Date, userID uint) (*models.Class, *models.MergeHistory, error) {
	if len(req.SourceClassIDs) < 2 {
		return nil, nil, NewValidationError("source_class_ids", "a merge needs at least two classes")
	}
	if req.StartDate.IsZero() {
		return nil, nil, NewValidationError("start_date", "start date is required")
	}

	var sources []models.Class
	if err := s.db.Preload("Slots").Preload("Sessions").Preload("Enrollments").
		Where("id IN ?", req.SourceClassIDs).Find(&sources).Error; err != nil {
		return nil, nil, err
	}
	if len(sources) != len(req.SourceClassIDs) {
		return nil, nil, NewValidationError("source_class_ids", "one or more classes not found")
	}

	var scheduleSource *models.Class
	for i := range sources {
		if sources[i].ID == req.ScheduleSourceClassID {
			scheduleSource = &sources[i]
		}
	}
	if scheduleSource == nil {
		return nil, nil, NewValidationError("schedule_source_class_id", "schedule source must be one of the merged classes")
	}

	// Pairwise eligibility against the schedule source.
	basePhase, err := ActivePhaseOfClass(*scheduleSource, today)
	if err != nil {
		return nil, nil, err
	}
	for _, source := range sources {
		if source.ID == scheduleSource.ID {
			continue
		}
		phase, err := ActivePhaseOfClass(source, today)
		if err != nil {
			return nil, nil, err
		}
		if err := CheckMergeEligibility(*scheduleSource, source, basePhase, phase); err != nil {
			return nil, nil, err
		}
	}

	sourceSlots, err := ClassSlotsToScheduleSlots(scheduleSource.Slots)
	if err != nil {
		return nil, nil, err
	}
	slots, err := ReconcileSlots(sourceSlots, req.ManualSlots, scheduleSource.SessionDurationMinutes)
	if err != nil {
		return nil, nil, err
	}

	roomID := req.RoomID
	if roomID == 0 {
		roomID = scheduleSource.RoomID
	}
	teacherID := req.TeacherID
	if teacherID == 0 {
		teacherID = scheduleSource.DefaultTeacherID
	}

	// Advisory pre-check; re-run inside the transaction below.
	if err := CheckScheduleConflicts(s.db, slots, roomID, teacherID, req.SourceClassIDs); err != nil {
		return nil, nil, err
	}

	planned, err := GenerateSessionsWindowed(holidays, req.StartDate, slots, scheduleSource.PhaseCount, scheduleSource.SessionsPerPhase)
	if err != nil {
		return nil, nil, err
	}

	enrollmentGroups := make([][]models.Enrollment, 0, len(sources))
	for _, source := range sources {
		enrollmentGroups = append(enrollmentGroups, source.Enrollments)
	}
	enrollments, err := MergeEnrollments(enrollmentGroups...)
	if err != nil {
		return nil, nil, err
	}

	mergedName := strings.TrimSpace(req.MergedName)
	if mergedName == "" {
		names := make([]string, 0, len(sources))
		for _, source := range sources {
			names = append(names, source.ClassName)
		}
		mergedName = strings.Join(names, " + ")
	}

	teacherSet, err := combinedTeacherIDs(sources, teacherID)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := buildMergeSnapshot(sources)
	if err != nil {
		return nil, nil, err
	}

	var merged models.Class
	var history models.MergeHistory
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := CheckScheduleConflicts(tx, slots, roomID, teacherID, req.SourceClassIDs); err != nil {
			return err
		}

		endDate := planned[len(planned)-1].Date.Time()
		merged = models.Class{
			ClassName:              mergedName,
			LevelTag:               scheduleSource.LevelTag,
			RoomID:                 roomID,
			DefaultTeacherID:       teacherID,
			TeacherIDs:             teacherSet,
			Status:                 ClassStatusActive,
			PhaseCount:             scheduleSource.PhaseCount,
			SessionsPerPhase:       scheduleSource.SessionsPerPhase,
			SessionDurationMinutes: scheduleSource.SessionDurationMinutes,
			StartDate:              req.StartDate.Time(),
			EndDate:                &endDate,
		}
		if err := tx.Create(&merged).Error; err != nil {
			return err
		}

		for _, slot := range slots {
			record := models.ClassSlot{
				ClassID:   merged.ID,
				Weekday:   int(slot.Weekday),
				StartTime: FormatMinuteOfDay(slot.StartMinute),
				EndTime:   FormatMinuteOfDay(slot.EndMinute),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		for _, session := range planned {
			record := models.ClassSession{
				ClassID:            merged.ID,
				PhaseNumber:        session.PhaseNumber,
				PhaseSessionNumber: session.PhaseSessionNumber,
				ScheduledDate:      session.Date.Time(),
				StartTime:          FormatMinuteOfDay(session.StartMinute),
				EndTime:            FormatMinuteOfDay(session.EndMinute),
				Status:             SessionStatusScheduled,
				AssignedTeacherID:  teacherID,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		for _, enrollment := range enrollments {
			record := enrollment
			record.ID = 0
			record.ClassID = merged.ID
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		history = models.MergeHistory{
			MergedClassID:   merged.ID,
			Reference:       uuid.NewString(),
			Snapshot:        snapshot,
			CreatedByUserID: userID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		// Destroy the originals; the snapshot is their archive.
		return destroyClasses(tx, req.SourceClassIDs)
	})
	if err != nil {
		return nil, nil, err
	}

	logrus.WithFields(logrus.Fields{
		"merged_class_id": merged.ID,
		"reference":       history.Reference,
		"sources":         req.SourceClassIDs,
	}).Info("Classes merged")

	return &merged, &history, nil
}

// Undo reverses a merge while is_undone is still false. The restored
// schedules are conflict-checked against the current world (excluding only
// the merged class, which is being removed); any conflict with classes
// created since the merge refuses the undo and surfaces the full list. On
// success the originals come back bit-for-bit from the snapshot.
func (s *MergeService) Undo(historyID uint, userID uint) ([]uint, error) {
	var history models.MergeHistory
	if err := s.db.First(&history, historyID).Error; err != nil {
		return nil, err
	}
	if history.IsUndone {
		return nil, NewValidationError("merge_history_id", "merge %s has already been undone", history.Reference)
	}

	var snapshot MergeSnapshot
	if err := json.Unmarshal(history.Snapshot, &snapshot); err != nil {
		return nil, NewValidationError("snapshot", "corrupt merge snapshot: %v", err)
	}

	restoredIDs := make([]uint, 0, len(snapshot.Originals))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		exclude := []uint{history.MergedClassID}
		for _, original := range snapshot.Originals {
			slots, err := ClassSlotsToScheduleSlots(original.Slots)
			if err != nil {
				return err
			}
			if err := CheckScheduleConflicts(tx, slots, original.Class.RoomID, original.Class.DefaultTeacherID, exclude); err != nil {
				return err
			}
		}

		if err := destroyClasses(tx, []uint{history.MergedClassID}); err != nil {
			return err
		}

		for _, original := range snapshot.Originals {
			class := original.Class
			if err := tx.Create(&class).Error; err != nil {
				return err
			}
			for _, slot := range original.Slots {
				record := slot
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
			for _, session := range original.Sessions {
				record := session
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
			for _, enrollment := range original.Enrollments {
				record := enrollment
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			}
			restoredIDs = append(restoredIDs, class.ID)
		}

		now := time.Now()
		return tx.Model(&history).Updates(map[string]interface{}{
			"is_undone": true,
			"undone_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"reference": history.Reference,
		"restored":  restoredIDs,
	}).Info("Merge undone")

	return restoredIDs, nil
}

func buildMergeSnapshot(sources []models.Class) (models.JSON, error) {
	snapshot := MergeSnapshot{Originals: make([]ClassSnapshot, 0, len(sources))}
	for _, source := range sources {
		class := source
		class.Slots = nil
		class.Sessions = nil
		class.Enrollments = nil
		snapshot.Originals = append(snapshot.Originals, ClassSnapshot{
			Class:       class,
			Slots:       source.Slots,
			Sessions:    source.Sessions,
			Enrollments: source.Enrollments,
		})
	}
	return json.Marshal(snapshot)
}

func combinedTeacherIDs(sources []models.Class, primary uint) (models.JSON, error) {
	seen := map[uint]bool{}
	ids := []uint{}
	if primary != 0 {
		seen[primary] = true
		ids = append(ids, primary)
	}
	for _, source := range sources {
		if source.DefaultTeacherID != 0 && !seen[source.DefaultTeacherID] {
			seen[source.DefaultTeacherID] = true
			ids = append(ids, source.DefaultTeacherID)
		}
	}
	return json.Marshal(ids)
}

// destroyClasses removes classes and everything they own. Hard deletes: the
// merge snapshot is the archive, and freeing the primary keys is what lets
// an undo restore the originals under their old IDs.
func destroyClasses(tx *gorm.DB, classIDs []uint) error {
	if len(classIDs) == 0 {
		return nil
	}
	if err := tx.Unscoped().Where("class_id IN ?", classIDs).Delete(&models.ClassSession{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("class_id IN ?", classIDs).Delete(&models.ClassSlot{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("class_id IN ?", classIDs).Delete(&models.Enrollment{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("id IN ?", classIDs).Delete(&models.Class{}).Error
}
