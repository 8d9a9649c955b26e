package subscription

import (
	"pawsewa/apperrors"
	"pawsewa/middleware"
	subscriptionService "pawsewa/services/subscription"
	"pawsewa/types"
	subscriptionTypes "pawsewa/types/subscription"

	"github.com/gofiber/fiber/v2"
)

type SubscriptionController struct {
	subscriptions *subscriptionService.SubscriptionService
}

func NewSubscriptionController(service *subscriptionService.SubscriptionService) *SubscriptionController {
	return &SubscriptionController{subscriptions: service}
}

func (h *SubscriptionController) Plans(c *fiber.Ctx) error {
	return c.JSON(types.List(h.subscriptions.Plans()))
}

func (h *SubscriptionController) Mine(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	mine, err := h.subscriptions.Mine(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("", mine))
}

func (h *SubscriptionController) Initiate(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	var req subscriptionTypes.InitiateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("Invalid request body")
	}

	checkout, err := h.subscriptions.Initiate(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Subscription payment initiated", checkout))
}
