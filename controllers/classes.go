package controllers

import (
	"encoding/json"
	"strconv"
	"time"

	"classplanner_go/database"
	"classplanner_go/middleware"
	"classplanner_go/models"
	"classplanner_go/services"
	"classplanner_go/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ClassController handles class lifecycle: drafting, schedule preview,
// finalization and end-date management.
type ClassController struct {
	holidays *services.HolidayService
}

func NewClassController() *ClassController {
	return &ClassController{holidays: services.NewHolidayService()}
}

// SlotInput is one weekly slot in request bodies ("09:00" times, weekday
// 0=Sunday through 6=Saturday).
type SlotInput struct {
	Weekday   int    `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// CreateClassRequest is the body for creating a draft class.
type CreateClassRequest struct {
	ClassName              string      `json:"class_name" validate:"required"`
	LevelTag               string      `json:"level_tag"`
	RoomID                 uint        `json:"room_id" validate:"required"`
	TeacherID              uint        `json:"teacher_id" validate:"required"`
	PhaseCount             int         `json:"phase_count" validate:"required,min=1"`
	SessionsPerPhase       int         `json:"sessions_per_phase" validate:"required,min=1"`
	SessionDurationMinutes int         `json:"session_duration_minutes"`
	StartDate              string      `json:"start_date" validate:"required"`
	Slots                  []SlotInput `json:"slots" validate:"required"`
	Notes                  string      `json:"notes"`
}

func slotInputsToScheduleSlots(inputs []SlotInput) ([]services.ScheduleSlot, error) {
	slots := make([]services.ScheduleSlot, 0, len(inputs))
	for _, input := range inputs {
		if input.Weekday < 0 || input.Weekday > 6 {
			return nil, services.NewValidationError("slots", "weekday %d out of range", input.Weekday)
		}
		start, err := services.MinuteOfDay(input.StartTime)
		if err != nil {
			return nil, services.NewValidationError("slots", "bad start time %q", input.StartTime)
		}
		end, err := services.MinuteOfDay(input.EndTime)
		if err != nil {
			return nil, services.NewValidationError("slots", "bad end time %q", input.EndTime)
		}
		slots = append(slots, services.ScheduleSlot{
			Weekday:     time.Weekday(input.Weekday),
			StartMinute: start,
			EndMinute:   end,
		})
	}
	return slots, nil
}

// GetClasses returns all classes with pagination
func (cc *ClassController) GetClasses(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	offset := (page - 1) * limit

	var classes []models.Class
	var total int64

	query := database.DB.Model(&models.Class{})

	if status := c.Query("status"); status != "" {
		if !utils.IsValidClassStatus(status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid class status filter",
			})
		}
		query = query.Where("status = ?", status)
	}
	if levelTag := c.Query("level_tag"); levelTag != "" {
		query = query.Where("level_tag = ?", levelTag)
	}
	if roomID := c.Query("room_id"); roomID != "" {
		query = query.Where("room_id = ?", roomID)
	}
	if teacherID := c.Query("teacher_id"); teacherID != "" {
		query = query.Where("default_teacher_id = ?", teacherID)
	}

	query.Count(&total)

	if err := query.Preload("Room").Preload("Teacher").Preload("Slots").
		Offset(offset).Limit(limit).Find(&classes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch classes",
		})
	}

	return c.JSON(fiber.Map{
		"classes": classes,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetClass returns one class with its schedule, sessions and the phase it is
// currently in.
func (cc *ClassController) GetClass(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	var class models.Class
	if err := database.DB.Preload("Room").Preload("Teacher").
		Preload("Slots").Preload("Sessions").Preload("Enrollments.Student").
		First(&class, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Class not found",
		})
	}

	activePhase, err := services.ActivePhaseOfClass(class, utils.DateOf(time.Now()))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"class":        class,
		"active_phase": activePhase,
	})
}

// CreateClass creates a draft class with its weekly slots. The schedule is
// conflict-checked immediately so a double-booked draft never exists.
func (cc *ClassController) CreateClass(c *fiber.Ctx) error {
	var req CreateClassRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	req.ClassName = utils.SanitizeString(req.ClassName)
	if req.ClassName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Class name is required",
		})
	}
	if req.PhaseCount < 1 || req.SessionsPerPhase < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Phase count and sessions per phase must be at least 1",
		})
	}

	startDate, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid start date, expected YYYY-MM-DD",
		})
	}

	slots, err := slotInputsToScheduleSlots(req.Slots)
	if err != nil {
		return respondServiceError(c, err)
	}
	if err := services.ValidateSlots(slots); err != nil {
		return respondServiceError(c, err)
	}

	var room models.Room
	if err := database.DB.First(&room, req.RoomID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Room not found",
		})
	}
	var teacher models.Teacher
	if err := database.DB.First(&teacher, req.TeacherID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Teacher not found",
		})
	}

	if err := services.CheckScheduleConflicts(database.DB, slots, req.RoomID, req.TeacherID, nil); err != nil {
		return respondServiceError(c, err)
	}

	duration := req.SessionDurationMinutes
	if duration == 0 {
		duration = slots[0].EndMinute - slots[0].StartMinute
	}

	class := models.Class{
		ClassName:              req.ClassName,
		LevelTag:               req.LevelTag,
		RoomID:                 req.RoomID,
		DefaultTeacherID:       req.TeacherID,
		Status:                 services.ClassStatusDraft,
		PhaseCount:             req.PhaseCount,
		SessionsPerPhase:       req.SessionsPerPhase,
		SessionDurationMinutes: duration,
		StartDate:              startDate.Time(),
		Notes:                  req.Notes,
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&class).Error; err != nil {
			return err
		}
		for _, slot := range slots {
			record := models.ClassSlot{
				ClassID:   class.ID,
				Weekday:   int(slot.Weekday),
				StartTime: services.FormatMinuteOfDay(slot.StartMinute),
				EndTime:   services.FormatMinuteOfDay(slot.EndMinute),
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create class",
		})
	}

	database.DB.Preload("Slots").First(&class, class.ID)

	middleware.LogActivity(c, "CREATE", "classes", class.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Class created successfully",
		"class":   class,
	})
}

// PreviewSchedule projects the full session plan for a schedule without
// persisting anything.
func (cc *ClassController) PreviewSchedule(c *fiber.Ctx) error {
	var req struct {
		StartDate        string      `json:"start_date"`
		PhaseCount       int         `json:"phase_count"`
		SessionsPerPhase int         `json:"sessions_per_phase"`
		Slots            []SlotInput `json:"slots"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	startDate, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid start date, expected YYYY-MM-DD",
		})
	}

	slots, err := slotInputsToScheduleSlots(req.Slots)
	if err != nil {
		return respondServiceError(c, err)
	}

	planned, err := services.GenerateSessionsWindowed(classHolidayLookup(cc.holidays), startDate, slots, req.PhaseCount, req.SessionsPerPhase)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"sessions": planned,
		"end_date": planned[len(planned)-1].Date,
		"total":    len(planned),
	})
}

// CheckConflicts runs the conflict detector for a candidate schedule.
func (cc *ClassController) CheckConflicts(c *fiber.Ctx) error {
	var req struct {
		RoomID          uint        `json:"room_id"`
		TeacherID       uint        `json:"teacher_id"`
		Slots           []SlotInput `json:"slots"`
		ExcludeClassIDs []uint      `json:"exclude_class_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	slots, err := slotInputsToScheduleSlots(req.Slots)
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := services.CheckScheduleConflicts(database.DB, slots, req.RoomID, req.TeacherID, req.ExcludeClassIDs); err != nil {
		if ce, ok := services.AsConflictError(err); ok {
			return c.JSON(fiber.Map{
				"has_conflicts": true,
				"resource":      ce.Resource,
				"conflicts":     ce.Conflicts,
			})
		}
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"has_conflicts": false,
	})
}

// FinalizeClass turns a draft into an active class: the schedule is
// conflict-checked one more time, the full session set is generated around
// holidays and the end date is fixed from the last session.
func (cc *ClassController) FinalizeClass(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	var class models.Class
	if err := database.DB.Preload("Slots").First(&class, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Class not found",
		})
	}

	if class.Status != services.ClassStatusDraft {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only draft classes can be finalized",
		})
	}

	slots, err := services.ClassSlotsToScheduleSlots(class.Slots)
	if err != nil {
		return respondServiceError(c, err)
	}

	startDate := utils.DateOf(class.StartDate)

	planned, err := services.GenerateSessionsWindowed(classHolidayLookup(cc.holidays), startDate, slots, class.PhaseCount, class.SessionsPerPhase)
	if err != nil {
		return respondServiceError(c, err)
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		// Re-check inside the transaction so a racing finalize cannot land
		// an overlapping schedule.
		if err := services.CheckScheduleConflicts(tx, slots, class.RoomID, class.DefaultTeacherID, []uint{class.ID}); err != nil {
			return err
		}

		for _, session := range planned {
			record := models.ClassSession{
				ClassID:            class.ID,
				PhaseNumber:        session.PhaseNumber,
				PhaseSessionNumber: session.PhaseSessionNumber,
				ScheduledDate:      session.Date.Time(),
				StartTime:          services.FormatMinuteOfDay(session.StartMinute),
				EndTime:            services.FormatMinuteOfDay(session.EndMinute),
				Status:             services.SessionStatusScheduled,
				AssignedTeacherID:  class.DefaultTeacherID,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		endDate := planned[len(planned)-1].Date.Time()
		return tx.Model(&class).Updates(map[string]interface{}{
			"status":   services.ClassStatusActive,
			"end_date": endDate,
		}).Error
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	database.DB.Preload("Slots").Preload("Sessions").First(&class, class.ID)

	middleware.LogActivity(c, "UPDATE", "classes", class.ID, fiber.Map{
		"action":   "finalize",
		"sessions": len(planned),
	})

	return c.JSON(fiber.Map{
		"message": "Class finalized successfully",
		"class":   class,
	})
}

// UpdateEndDate recomputes the derived end date, or overrides it manually.
// A manual override requires a note and sticks until cleared.
func (cc *ClassController) UpdateEndDate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	var class models.Class
	if err := database.DB.Preload("Slots").Preload("Sessions").First(&class, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Class not found",
		})
	}

	var req struct {
		Manual  bool   `json:"manual"`
		EndDate string `json:"end_date"`
		Note    string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Manual {
		if req.Note == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "A note is required for a manual end date",
			})
		}
		endDate, err := utils.ParseDate(req.EndDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid end date, expected YYYY-MM-DD",
			})
		}
		if err := database.DB.Model(&class).Updates(map[string]interface{}{
			"end_date":        endDate.Time(),
			"end_date_manual": true,
			"end_date_note":   req.Note,
		}).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to update end date",
			})
		}

		middleware.LogActivity(c, "UPDATE", "classes", class.ID, fiber.Map{
			"action":   "manual_end_date",
			"end_date": req.EndDate,
			"note":     req.Note,
		})

		return c.JSON(fiber.Map{
			"message":  "End date set manually",
			"end_date": endDate,
		})
	}

	slots, err := services.ClassSlotsToScheduleSlots(class.Slots)
	if err != nil {
		return respondServiceError(c, err)
	}

	startDate := utils.DateOf(class.StartDate)
	total := class.PhaseCount * class.SessionsPerPhase

	endDate, err := services.ComputeEndDateWindowed(classHolidayLookup(cc.holidays), startDate, services.SlotWeekdays(slots), total, class.Sessions)
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := database.DB.Model(&class).Updates(map[string]interface{}{
		"end_date":        endDate.Time(),
		"end_date_manual": false,
		"end_date_note":   "",
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update end date",
		})
	}

	middleware.LogActivity(c, "UPDATE", "classes", class.ID, fiber.Map{
		"action":   "recompute_end_date",
		"end_date": endDate.String(),
	})

	return c.JSON(fiber.Map{
		"message":  "End date recomputed",
		"end_date": endDate,
	})
}

// ArchiveClass archives a class that is no longer running
func (cc *ClassController) ArchiveClass(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	var class models.Class
	if err := database.DB.First(&class, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Class not found",
		})
	}

	if class.Status == services.ClassStatusMerged {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Merged classes cannot be archived",
		})
	}

	if err := database.DB.Model(&class).Update("status", services.ClassStatusArchived).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to archive class",
		})
	}

	middleware.LogActivity(c, "UPDATE", "classes", class.ID, fiber.Map{
		"action": "archive",
	})

	return c.JSON(fiber.Map{
		"message": "Class archived successfully",
	})
}

// EnrollStudent adds a student to a class
func (cc *ClassController) EnrollStudent(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	var class models.Class
	if err := database.DB.First(&class, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Class not found",
		})
	}

	var req struct {
		StudentID uint  `json:"student_id" validate:"required"`
		Phases    []int `json:"phases"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, req.StudentID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	var existing models.Enrollment
	if err := database.DB.Where("class_id = ? AND student_id = ?", id, req.StudentID).
		First(&existing).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Student is already enrolled in this class",
		})
	}

	enrollment := models.Enrollment{
		ClassID:    id,
		StudentID:  req.StudentID,
		EnrolledAt: time.Now(),
		Status:     "active",
	}
	if len(req.Phases) > 0 {
		if raw, err := json.Marshal(req.Phases); err == nil {
			enrollment.Phases = raw
		}
	}

	if err := database.DB.Create(&enrollment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to enroll student",
		})
	}

	middleware.LogActivity(c, "CREATE", "enrollments", enrollment.ID, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Student enrolled successfully",
		"enrollment": enrollment,
	})
}
