package care

import (
	"pawsewa/middleware"
	careService "pawsewa/services/care"
	"pawsewa/types"
	careTypes "pawsewa/types/care"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

type CareController struct {
	care *careService.CareService
}

func NewCareController(service *careService.CareService) *CareController {
	return &CareController{care: service}
}

// Store creates the request in pending_payment; it is confirmed once paid.
func (h *CareController) Store(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	var req careTypes.CreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	created, err := h.care.Create(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(types.Ok("Care request created. Complete payment to confirm.", created))
}

func (h *CareController) Mine(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	list, err := h.care.ListMine(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(types.List(list))
}
