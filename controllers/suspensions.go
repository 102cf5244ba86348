package controllers

import (
	"classplanner_go/database"
	"classplanner_go/middleware"
	"classplanner_go/models"
	"classplanner_go/services"

	"github.com/gofiber/fiber/v2"
)

// SuspensionController drives the two-step suspension workflow: build a plan
// (preview) and commit it.
type SuspensionController struct {
	holidays   *services.HolidayService
	suspension *services.SuspensionService
}

func NewSuspensionController() *SuspensionController {
	return &SuspensionController{
		holidays:   services.NewHolidayService(),
		suspension: services.NewSuspensionService(),
	}
}

// SuspensionRequest is the body for both preview and commit.
type SuspensionRequest struct {
	SessionIDs     []uint                  `json:"session_ids" validate:"required"`
	Reason         string                  `json:"reason" validate:"required"`
	MakeupStrategy string                  `json:"makeup_strategy" validate:"required"`
	Makeups        []services.ManualMakeup `json:"makeups,omitempty"`
}

func (sc *SuspensionController) buildPlan(c *fiber.Ctx, classID uint) (*services.SuspensionPlan, error) {
	var req SuspensionRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, services.NewValidationError("body", "invalid request body")
	}

	var class models.Class
	if err := database.DB.First(&class, classID).Error; err != nil {
		return nil, services.NewValidationError("class_id", "class %d not found", classID)
	}

	var sessions []models.ClassSession
	if err := database.DB.Where("class_id = ?", classID).Find(&sessions).Error; err != nil {
		return nil, err
	}

	return services.BuildSuspensionPlanWindowed(classHolidayLookup(sc.holidays), class, sessions, req.SessionIDs, req.Reason, req.MakeupStrategy, req.Makeups)
}

// PreviewSuspension returns the plan a suspension would apply, without
// touching anything.
func (sc *SuspensionController) PreviewSuspension(c *fiber.Ctx) error {
	classID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	plan, err := sc.buildPlan(c, classID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"plan": plan,
	})
}

// CommitSuspension builds and applies the plan atomically.
func (sc *SuspensionController) CommitSuspension(c *fiber.Ctx) error {
	classID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	plan, err := sc.buildPlan(c, classID)
	if err != nil {
		return respondServiceError(c, err)
	}

	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	record, err := sc.suspension.Commit(plan, user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "suspensions", record.ID, fiber.Map{
		"class_id":  classID,
		"reference": record.Reference,
		"suspended": len(plan.CancelSessionIDs),
		"strategy":  plan.Strategy,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Suspension committed successfully",
		"suspension": record,
		"plan":       plan,
	})
}

// GetClassSuspensions lists a class's suspension history
func (sc *SuspensionController) GetClassSuspensions(c *fiber.Ctx) error {
	classID, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid class ID",
		})
	}

	var suspensions []models.Suspension
	if err := database.DB.Where("class_id = ?", classID).
		Order("created_at DESC").Find(&suspensions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch suspensions",
		})
	}

	return c.JSON(fiber.Map{
		"suspensions": suspensions,
		"total":       len(suspensions),
	})
}
