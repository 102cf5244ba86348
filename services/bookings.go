package services

import (
	"time"

	"classplanner_go/models"

	"gorm.io/gorm"
)

// ExcludeSet converts a class-ID list into the set form FindConflicts takes.
func ExcludeSet(classIDs []uint) map[uint]bool {
	set := make(map[uint]bool, len(classIDs))
	for _, id := range classIDs {
		set[id] = true
	}
	return set
}

// ClassSlotsToScheduleSlots converts persisted slots into engine slots.
func ClassSlotsToScheduleSlots(slots []models.ClassSlot) ([]ScheduleSlot, error) {
	out := make([]ScheduleSlot, 0, len(slots))
	for _, slot := range slots {
		start, err := MinuteOfDay(slot.StartTime)
		if err != nil {
			return nil, NewValidationError("slots", "weekday %d: %v", slot.Weekday, err)
		}
		end, err := MinuteOfDay(slot.EndTime)
		if err != nil {
			return nil, NewValidationError("slots", "weekday %d: %v", slot.Weekday, err)
		}
		out = append(out, ScheduleSlot{
			Weekday:     time.Weekday(slot.Weekday),
			StartMinute: start,
			EndMinute:   end,
		})
	}
	return out, nil
}

type bookingRow struct {
	ResourceID uint   `gorm:"column:resource_id"`
	ClassID    uint   `gorm:"column:class_id"`
	ClassName  string `gorm:"column:class_name"`
	Weekday    int    `gorm:"column:weekday"`
	StartTime  string `gorm:"column:start_time"`
	EndTime    string `gorm:"column:end_time"`
}

func rowsToBookings(rows []bookingRow) ([]ResourceBooking, error) {
	bookings := make([]ResourceBooking, 0, len(rows))
	for _, row := range rows {
		start, err := MinuteOfDay(row.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := MinuteOfDay(row.EndTime)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, ResourceBooking{
			ResourceID:      row.ResourceID,
			OwningClassID:   row.ClassID,
			OwningClassName: row.ClassName,
			Weekday:         time.Weekday(row.Weekday),
			StartMinute:     start,
			EndMinute:       end,
		})
	}
	return bookings, nil
}

// GetRoomBookings derives the recurring bookings of one room from the slots
// of active classes. excludeClassIDs is always applied at the query so the
// caller never has to post-filter its own schedule back out. db may be a
// transaction handle; commit-time re-checks pass theirs so the validation
// sees the same state the commit writes against.
func GetRoomBookings(db *gorm.DB, roomID uint, excludeClassIDs []uint) ([]ResourceBooking, error) {
	if roomID == 0 {
		return nil, nil
	}

	var rows []bookingRow
	query := db.Table("class_slots").
		Select("classes.room_id AS resource_id, classes.id AS class_id, classes.class_name, class_slots.weekday, class_slots.start_time, class_slots.end_time").
		Joins("JOIN classes ON classes.id = class_slots.class_id").
		Where("classes.room_id = ?", roomID).
		Where("classes.status IN ?", []string{"draft", "active"}).
		Where("classes.deleted_at IS NULL AND class_slots.deleted_at IS NULL")
	if len(excludeClassIDs) > 0 {
		query = query.Where("classes.id NOT IN ?", excludeClassIDs)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	return rowsToBookings(rows)
}

// GetTeacherBookings derives the recurring bookings of the given teachers
// from the slots of active classes.
func GetTeacherBookings(db *gorm.DB, teacherIDs []uint, excludeClassIDs []uint) ([]ResourceBooking, error) {
	if len(teacherIDs) == 0 {
		return nil, nil
	}

	var rows []bookingRow
	query := db.Table("class_slots").
		Select("classes.default_teacher_id AS resource_id, classes.id AS class_id, classes.class_name, class_slots.weekday, class_slots.start_time, class_slots.end_time").
		Joins("JOIN classes ON classes.id = class_slots.class_id").
		Where("classes.default_teacher_id IN ?", teacherIDs).
		Where("classes.status IN ?", []string{"draft", "active"}).
		Where("classes.deleted_at IS NULL AND class_slots.deleted_at IS NULL")
	if len(excludeClassIDs) > 0 {
		query = query.Where("classes.id NOT IN ?", excludeClassIDs)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	return rowsToBookings(rows)
}

// CheckScheduleConflicts runs the detector against both the room and the
// teacher of a candidate schedule and returns a ConflictError when any
// overlap exists. Used before save, and re-run inside commit transactions on
// the transaction handle itself.
func CheckScheduleConflicts(db *gorm.DB, slots []ScheduleSlot, roomID, teacherID uint, excludeClassIDs []uint) error {
	exclude := ExcludeSet(excludeClassIDs)

	roomBookings, err := GetRoomBookings(db, roomID, excludeClassIDs)
	if err != nil {
		return err
	}
	if conflicts := FindConflicts(slots, roomBookings, exclude); len(conflicts) > 0 {
		return &ConflictError{Resource: "room", Conflicts: conflicts}
	}

	if teacherID != 0 {
		teacherBookings, err := GetTeacherBookings(db, []uint{teacherID}, excludeClassIDs)
		if err != nil {
			return err
		}
		if conflicts := FindConflicts(slots, teacherBookings, exclude); len(conflicts) > 0 {
			return &ConflictError{Resource: "teacher", Conflicts: conflicts}
		}
	}

	return nil
}
