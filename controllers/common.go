package controllers

import (
	"errors"
	"strconv"

	"classplanner_go/services"
	"classplanner_go/utils"

	"github.com/gofiber/fiber/v2"
)

// paramID parses the :id route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

// respondServiceError maps engine errors onto HTTP responses: validation
// failures are 400, double-bookings are 409 with the full conflict list, an
// indeterminate end date is 422 so the client knows to ask for a manual one.
func respondServiceError(c *fiber.Ctx, err error) error {
	if ve, ok := services.AsValidationError(err); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": ve.Message,
			"field": ve.Field,
		})
	}
	if ce, ok := services.AsConflictError(err); ok {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "Schedule conflict detected",
			"resource":  ce.Resource,
			"conflicts": ce.Conflicts,
		})
	}
	if errors.Is(err, services.ErrIndeterminateEndDate) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "End date cannot be computed from the schedule; set it manually",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal server error",
	})
}

// classHolidayLookup adapts the holiday service to the engine's span-sized
// lookup; the engine asks for exactly the date range its projection covers.
// A feed outage degrades to an empty set rather than blocking the operation.
func classHolidayLookup(holidaySvc *services.HolidayService) services.HolidayLookup {
	return func(start, end utils.Date) map[utils.Date]bool {
		holidays, err := holidaySvc.GetHolidaysForDates(start, end)
		if err != nil {
			return map[utils.Date]bool{}
		}
		return holidays
	}
}
