package controllers

import (
	"time"

	"classplanner_go/database"
	"classplanner_go/middleware"
	"classplanner_go/models"
	"classplanner_go/services"
	"classplanner_go/utils"

	"github.com/gofiber/fiber/v2"
)

type SessionController struct{}

// GetClassSessions returns a class's sessions, optionally filtered by phase
// or status.
func (sc *SessionController) GetClassSessions(c *fiber.Ctx) error {
	classID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	query := database.DB.Where("class_id = ?", classID)

	if phase := c.Query("phase"); phase != "" {
		query = query.Where("phase_number = ?", phase)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var sessions []models.ClassSession
	if err := query.Order("scheduled_date, start_time").Find(&sessions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sessions",
		})
	}

	return c.JSON(fiber.Map{
		"sessions": sessions,
		"total":    len(sessions),
	})
}

// CompleteSession marks a session completed
func (sc *SessionController) CompleteSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var session models.ClassSession
	if err := database.DB.First(&session, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	if session.Status == services.SessionStatusCancelled {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Cancelled sessions cannot be completed",
		})
	}

	if err := database.DB.Model(&session).Update("status", services.SessionStatusCompleted).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update session",
		})
	}

	middleware.LogActivity(c, "UPDATE", "sessions", session.ID, fiber.Map{
		"action": "complete",
	})

	return c.JSON(fiber.Map{
		"message": "Session marked completed",
	})
}

// RescheduleSession moves a single session to a new date. The session keeps
// its identity; only the target date changes.
func (sc *SessionController) RescheduleSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var session models.ClassSession
	if err := database.DB.First(&session, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	if session.Status == services.SessionStatusCancelled || session.Status == services.SessionStatusCompleted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Only scheduled sessions can be rescheduled",
		})
	}

	var req struct {
		Date string `json:"date" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	target, err := utils.ParseDate(req.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid date, expected YYYY-MM-DD",
		})
	}

	movedTo := target.Time()
	if err := database.DB.Model(&session).Updates(map[string]interface{}{
		"status":        services.SessionStatusRescheduled,
		"moved_to_date": movedTo,
	}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reschedule session",
		})
	}

	middleware.LogActivity(c, "UPDATE", "sessions", session.ID, fiber.Map{
		"action": "reschedule",
		"from":   utils.DateOf(session.ScheduledDate).String(),
		"to":     target.String(),
	})

	return c.JSON(fiber.Map{
		"message":       "Session rescheduled",
		"moved_to_date": target,
	})
}

// AssignSubstitute records a substitute teacher for one session
func (sc *SessionController) AssignSubstitute(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid session ID",
		})
	}

	var session models.ClassSession
	if err := database.DB.First(&session, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
		})
	}

	var req struct {
		TeacherID uint `json:"teacher_id" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var teacher models.Teacher
	if err := database.DB.First(&teacher, req.TeacherID).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Teacher not found",
		})
	}

	if err := database.DB.Model(&session).Update("substitute_teacher_id", req.TeacherID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to assign substitute",
		})
	}

	middleware.LogActivity(c, "UPDATE", "sessions", session.ID, fiber.Map{
		"action":     "substitute",
		"teacher_id": req.TeacherID,
	})

	return c.JSON(fiber.Map{
		"message": "Substitute assigned",
	})
}

// GetTodaySessions returns every session scheduled for today across classes
func (sc *SessionController) GetTodaySessions(c *fiber.Ctx) error {
	today := utils.DateOf(time.Now())

	var sessions []models.ClassSession
	if err := database.DB.Preload("Class").
		Where("(scheduled_date = ? AND status IN ?) OR (moved_to_date = ? AND status = ?)",
			today.Time(), []string{services.SessionStatusScheduled, services.SessionStatusCompleted},
			today.Time(), services.SessionStatusRescheduled).
		Order("start_time").Find(&sessions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sessions",
		})
	}

	return c.JSON(fiber.Map{
		"date":     today,
		"sessions": sessions,
		"total":    len(sessions),
	})
}
