package notification

import (
	"pawsewa/middleware"
	notificationService "pawsewa/services/notification"
	"pawsewa/types"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	notifications *notificationService.NotificationService
}

func NewNotificationController(service *notificationService.NotificationService) *NotificationController {
	return &NotificationController{notifications: service}
}

func (h *NotificationController) Index(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	list, err := h.notifications.ListForUser(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(types.List(list))
}

func (h *NotificationController) MarkRead(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	n, err := h.notifications.MarkRead(c.UserContext(), actor.ID, id)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("Notification marked as read", n))
}

func (h *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	updated, err := h.notifications.MarkAllRead(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("All notifications marked as read", fiber.Map{"updated": updated}))
}
