package location

import (
	"pawsewa/apperrors"
	"pawsewa/middleware"
	locationService "pawsewa/services/location"
	"pawsewa/types"
	locationTypes "pawsewa/types/location"

	"github.com/gofiber/fiber/v2"
)

type LocationController struct {
	location *locationService.LocationService
}

func NewLocationController(service *locationService.LocationService) *LocationController {
	return &LocationController{location: service}
}

// Update validates inside the service so pet owners get a 403 before any body check.
func (h *LocationController) Update(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	var req locationTypes.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	pos, err := h.location.Update(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Location updated", pos))
}

func (h *LocationController) Live(c *fiber.Ctx) error {
	list, err := h.location.ListLive(c.UserContext(), c.Query("role"))
	if err != nil {
		return err
	}
	return c.JSON(types.List(list))
}
