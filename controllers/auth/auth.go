package auth

import (
	"time"

	authService "pawsewa/services/auth"
	"pawsewa/types"
	userTypes "pawsewa/types/user"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

const accessCookie = "access"

type AuthController struct {
	auth       *authService.AuthService
	production bool
}

func NewAuthController(service *authService.AuthService, production bool) *AuthController {
	return &AuthController{auth: service, production: production}
}

// setSecureCookie only marks the cookie Secure in production, where the API is behind HTTPS.
func (h *AuthController) setSecureCookie(c *fiber.Ctx, name, value string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		HTTPOnly: true,
		Secure:   h.production,
		SameSite: "Strict",
		MaxAge:   maxAge,
		Path:     "/",
	})
}

// Register creates a pet owner account. Staff accounts are created by admins.
func (h *AuthController) Register(c *fiber.Ctx) error {
	var req userTypes.RegisterRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	profile, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(types.Ok("Registration successful", profile))
}

func (h *AuthController) Login(c *fiber.Ctx) error {
	var req userTypes.LoginRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		return err
	}
	h.setSecureCookie(c, accessCookie, session.Token, int(time.Until(session.ExpiresAt).Seconds()))

	return c.JSON(types.ApiResponse{
		Success: true,
		Message: "Login successful",
		Token:   session.Token,
		Data:    session,
	})
}

func (h *AuthController) Logout(c *fiber.Ctx) error {
	h.setSecureCookie(c, accessCookie, "", -1)
	return c.JSON(types.Ok("Logged out", nil))
}
