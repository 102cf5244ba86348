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

// MergeController drives class merges: candidate discovery, the merge itself
// and its one-shot undo.
type MergeController struct {
	holidays *services.HolidayService
	merges   *services.MergeService
}

func NewMergeController() *MergeController {
	return &MergeController{
		holidays: services.NewHolidayService(),
		merges:   services.NewMergeService(),
	}
}

// MergeBody is the request body for committing a merge.
type MergeBody struct {
	SourceClassIDs        []uint              `json:"source_class_ids" validate:"required"`
	ScheduleSourceClassID uint                `json:"schedule_source_class_id" validate:"required"`
	ManualSlots           []services.SlotEdit `json:"manual_slots,omitempty"`
	MergedName            string              `json:"merged_name"`
	RoomID                uint                `json:"room_id"`
	TeacherID             uint                `json:"teacher_id"`
	StartDate             string              `json:"start_date" validate:"required"`
}

// GetMergeCandidates lists the classes eligible to merge with one class
func (mc *MergeController) GetMergeCandidates(c *fiber.Ctx) error {
	classID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	candidates, err := mc.merges.Candidates(classID, utils.DateOf(time.Now()))
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"candidates": candidates,
		"total":      len(candidates),
	})
}

// CommitMerge merges the given classes into a new one
func (mc *MergeController) CommitMerge(c *fiber.Ctx) error {
	var body MergeBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	startDate, err := utils.ParseDate(body.StartDate)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid start date, expected YYYY-MM-DD",
		})
	}

	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	req := services.MergeRequest{
		SourceClassIDs:        body.SourceClassIDs,
		ScheduleSourceClassID: body.ScheduleSourceClassID,
		ManualSlots:           body.ManualSlots,
		MergedName:            body.MergedName,
		RoomID:                body.RoomID,
		TeacherID:             body.TeacherID,
		StartDate:             startDate,
	}

	merged, history, err := mc.merges.Commit(req, classHolidayLookup(mc.holidays), utils.DateOf(time.Now()), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "merges", history.ID, fiber.Map{
		"merged_class_id": merged.ID,
		"reference":       history.Reference,
		"sources":         body.SourceClassIDs,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":      "Classes merged successfully",
		"merged_class": merged,
		"history": fiber.Map{
			"id":        history.ID,
			"reference": history.Reference,
		},
	})
}

// UndoMerge restores the original classes from a merge snapshot
func (mc *MergeController) UndoMerge(c *fiber.Ctx) error {
	historyID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid merge history ID",
		})
	}

	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	restoredIDs, err := mc.merges.Undo(historyID, user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "merges", historyID, fiber.Map{
		"action":   "undo",
		"restored": restoredIDs,
	})

	return c.JSON(fiber.Map{
		"message":            "Merge undone successfully",
		"restored_class_ids": restoredIDs,
	})
}

// GetMergeHistory lists merge records, newest first
func (mc *MergeController) GetMergeHistory(c *fiber.Ctx) error {
	var history []models.MergeHistory

	query := database.DB.Model(&models.MergeHistory{})
	if undone := c.Query("undone"); undone != "" {
		query = query.Where("is_undone = ?", undone == "true")
	}

	if err := query.Order("created_at DESC").Find(&history).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch merge history",
		})
	}

	return c.JSON(fiber.Map{
		"history": history,
		"total":   len(history),
	})
}
