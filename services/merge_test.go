package services

import (
	"encoding/json"
	"testing"
	"time"

	"classplanner_go/models"
	"classplanner_go/utils"
)

func TestCheckMergeEligibility(t *testing.T) {
	target := models.Class{BaseModel: models.BaseModel{ID: 1}, Status: ClassStatusActive, LevelTag: "B1"}

	tests := []struct {
		name           string
		candidate      models.Class
		targetPhase    int
		candidatePhase int
		wantErr        bool
	}{
		{
			name:      "same phase same level",
			candidate: models.Class{BaseModel: models.BaseModel{ID: 2}, Status: ClassStatusActive, LevelTag: "B1"},
		},
		{
			name:           "both unstarted",
			candidate:      models.Class{BaseModel: models.BaseModel{ID: 2}, Status: ClassStatusActive, LevelTag: "B1"},
			targetPhase:    0,
			candidatePhase: 0,
		},
		{
			name:      "self",
			candidate: target,
			wantErr:   true,
		},
		{
			name:      "different level",
			candidate: models.Class{BaseModel: models.BaseModel{ID: 2}, Status: ClassStatusActive, LevelTag: "A2"},
			wantErr:   true,
		},
		{
			name:           "different phase",
			candidate:      models.Class{BaseModel: models.BaseModel{ID: 2}, Status: ClassStatusActive, LevelTag: "B1"},
			targetPhase:    1,
			candidatePhase: 2,
			wantErr:        true,
		},
		{
			name:      "candidate not active",
			candidate: models.Class{BaseModel: models.BaseModel{ID: 2}, Status: ClassStatusDraft, LevelTag: "B1"},
			wantErr:   true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := CheckMergeEligibility(target, tc.candidate, tc.targetPhase, tc.candidatePhase)
			if tc.wantErr && err == nil {
				t.Fatalf("expected rejection")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestReconcileSlotsNoEditsReusesSource(t *testing.T) {
	source := []ScheduleSlot{
		{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 10 * 60},
		{Weekday: time.Thursday, StartMinute: 9 * 60, EndMinute: 10 * 60},
	}

	slots, err := ReconcileSlots(source, nil, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 2 || slots[0] != source[0] || slots[1] != source[1] {
		t.Fatalf("expected source slots verbatim, got %+v", slots)
	}
}

func TestReconcileSlotsEditKeepsSourceDuration(t *testing.T) {
	// Monday runs two hours in the source; moving its start must keep that.
	source := []ScheduleSlot{
		{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 11 * 60},
	}
	edits := []SlotEdit{
		{Weekday: time.Monday, StartMinute: 14 * 60},
	}

	slots, err := ReconcileSlots(source, edits, 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots[0].StartMinute != 14*60 || slots[0].EndMinute != 16*60 {
		t.Fatalf("expected 14:00-16:00, got %s-%s",
			FormatMinuteOfDay(slots[0].StartMinute), FormatMinuteOfDay(slots[0].EndMinute))
	}
}

func TestReconcileSlotsNewWeekdayUsesDefaultDuration(t *testing.T) {
	source := []ScheduleSlot{
		{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 11 * 60},
	}
	edits := []SlotEdit{
		{Weekday: time.Friday, StartMinute: 10 * 60},
	}

	slots, err := ReconcileSlots(source, edits, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slots[0].EndMinute != 11*60+30 {
		t.Fatalf("expected the 90-minute default, got end %s", FormatMinuteOfDay(slots[0].EndMinute))
	}

	// Without a usable default the edit cannot be resolved.
	if _, err := ReconcileSlots(source, edits, 0); err == nil {
		t.Fatalf("expected rejection without a default duration")
	}
}

func TestReconcileSlotsRejectsDuplicateWeekdayEdits(t *testing.T) {
	source := []ScheduleSlot{
		{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 10 * 60},
	}
	edits := []SlotEdit{
		{Weekday: time.Monday, StartMinute: 9 * 60},
		{Weekday: time.Monday, StartMinute: 13 * 60},
	}

	if _, err := ReconcileSlots(source, edits, 60); err == nil {
		t.Fatalf("expected duplicate weekday to be rejected")
	}
}

func TestMergeEnrollmentsDedupesByStudent(t *testing.T) {
	early := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	late := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	groupA := []models.Enrollment{
		{StudentID: 1, EnrolledAt: late, Phases: models.JSON(`[2]`), Status: "active"},
		{StudentID: 2, EnrolledAt: early, Phases: models.JSON(`[1]`), Status: "active"},
	}
	groupB := []models.Enrollment{
		{StudentID: 1, EnrolledAt: early, Phases: models.JSON(`[1,3]`), Status: "active"},
		{StudentID: 3, EnrolledAt: late, Phases: nil, Status: "active"},
	}

	merged, err := MergeEnrollments(groupA, groupB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 distinct students, got %d", len(merged))
	}

	// Student 1 appears in both classes: earliest timestamp, unioned phases.
	var student1 *models.Enrollment
	for i := range merged {
		if merged[i].StudentID == 1 {
			student1 = &merged[i]
		}
	}
	if student1 == nil {
		t.Fatalf("student 1 missing from merged set")
	}
	if !student1.EnrolledAt.Equal(early) {
		t.Fatalf("expected earliest enrollment %s, got %s", early, student1.EnrolledAt)
	}

	var phases []int
	if err := json.Unmarshal(student1.Phases, &phases); err != nil {
		t.Fatalf("bad phases payload: %v", err)
	}
	if len(phases) != 3 || phases[0] != 1 || phases[1] != 2 || phases[2] != 3 {
		t.Fatalf("expected sorted union [1 2 3], got %v", phases)
	}
}

func TestActivePhaseOfClass(t *testing.T) {
	today := utils.NewDate(2025, time.February, 10)

	unstarted := models.Class{}
	if phase, err := ActivePhaseOfClass(unstarted, today); err != nil || phase != 0 {
		t.Fatalf("expected phase 0 for a class with no sessions, got %d (%v)", phase, err)
	}

	allCancelled := models.Class{Sessions: []models.ClassSession{
		{PhaseNumber: 1, ScheduledDate: utils.NewDate(2025, time.January, 6).Time(), Status: SessionStatusCancelled},
	}}
	if phase, err := ActivePhaseOfClass(allCancelled, today); err != nil || phase != 0 {
		t.Fatalf("expected phase 0 when every session is cancelled, got %d (%v)", phase, err)
	}

	running := models.Class{Sessions: []models.ClassSession{
		{PhaseNumber: 1, ScheduledDate: utils.NewDate(2025, time.January, 6).Time(), Status: SessionStatusCompleted},
		{PhaseNumber: 1, ScheduledDate: utils.NewDate(2025, time.January, 27).Time(), Status: SessionStatusCompleted},
		{PhaseNumber: 2, ScheduledDate: utils.NewDate(2025, time.February, 3).Time(), Status: SessionStatusCompleted},
		{PhaseNumber: 2, ScheduledDate: utils.NewDate(2025, time.February, 24).Time(), Status: SessionStatusScheduled},
	}}
	if phase, err := ActivePhaseOfClass(running, today); err != nil || phase != 2 {
		t.Fatalf("expected phase 2, got %d (%v)", phase, err)
	}
}

func TestMergeSnapshotRoundTrip(t *testing.T) {
	sources := []models.Class{
		{
			BaseModel: models.BaseModel{ID: 10},
			ClassName: "Phonics A",
			LevelTag:  "A1",
			Slots: []models.ClassSlot{
				{BaseModel: models.BaseModel{ID: 100}, ClassID: 10, Weekday: int(time.Monday), StartTime: "09:00", EndTime: "10:00"},
			},
			Sessions: []models.ClassSession{
				{BaseModel: models.BaseModel{ID: 200}, ClassID: 10, PhaseNumber: 1, PhaseSessionNumber: 1,
					ScheduledDate: utils.NewDate(2025, time.January, 6).Time(), StartTime: "09:00", EndTime: "10:00", Status: SessionStatusCompleted},
			},
			Enrollments: []models.Enrollment{
				{BaseModel: models.BaseModel{ID: 300}, ClassID: 10, StudentID: 7},
			},
		},
		{
			BaseModel: models.BaseModel{ID: 11},
			ClassName: "Phonics B",
			LevelTag:  "A1",
		},
	}

	raw, err := buildMergeSnapshot(sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var snapshot MergeSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		t.Fatalf("snapshot does not round-trip: %v", err)
	}
	if len(snapshot.Originals) != 2 {
		t.Fatalf("expected 2 originals, got %d", len(snapshot.Originals))
	}

	first := snapshot.Originals[0]
	if first.Class.ID != 10 || first.Class.ClassName != "Phonics A" {
		t.Fatalf("class state lost: %+v", first.Class)
	}
	if len(first.Slots) != 1 || first.Slots[0].ID != 100 {
		t.Fatalf("slot state lost: %+v", first.Slots)
	}
	if len(first.Sessions) != 1 || first.Sessions[0].ID != 200 {
		t.Fatalf("session state lost: %+v", first.Sessions)
	}
	if len(first.Enrollments) != 1 || first.Enrollments[0].ID != 300 {
		t.Fatalf("enrollment state lost: %+v", first.Enrollments)
	}
	// Relations live beside the class in the snapshot, not nested inside it,
	// so the restore path can recreate them row by row.
	if first.Class.Slots != nil || first.Class.Sessions != nil || first.Class.Enrollments != nil {
		t.Fatalf("class in snapshot should not embed its relations")
	}
}
