package user

import (
	"pawsewa/middleware"
	authService "pawsewa/services/auth"
	"pawsewa/types"
	userTypes "pawsewa/types/user"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	auth *authService.AuthService
}

func NewUserController(service *authService.AuthService) *UserController {
	return &UserController{auth: service}
}

func (h *UserController) Profile(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	profile, err := h.auth.Profile(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(types.Ok("", profile))
}

// CreateStaff is the only way to create veterinarian, rider, provider and admin accounts.
func (h *UserController) CreateStaff(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	var req userTypes.CreateStaffRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.auth.CreateStaff(c.UserContext(), actor, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(types.Ok("Staff account created", profile))
}

func (h *UserController) ListStaff(c *fiber.Ctx) error {
	actor, _ := middleware.GetActor(c)
	staff, err := h.auth.ListStaff(c.UserContext(), actor, c.Query("role"))
	if err != nil {
		return err
	}
	return c.JSON(types.List(staff))
}
