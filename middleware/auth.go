package middleware

import (
	"context"
	"strings"

	"pawsewa/apperrors"
	"pawsewa/constants"
	"pawsewa/services/policy"

	"github.com/gofiber/fiber/v2"
)

// ActorKey is the fiber.Locals key holding the authenticated policy.Actor.
const ActorKey = "actor"

// ActorResolver turns a bearer token into an actor.
type ActorResolver interface {
	Resolve(ctx context.Context, token string) (policy.Actor, error)
}

// ExtractToken reads the bearer token from the Authorization header, falling back to the access cookie.
func ExtractToken(c *fiber.Ctx) (string, error) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return "", apperrors.Auth("Not authorized, invalid token format")
		}
		token := tokenParts[1]
		if token == "" || token == "undefined" || token == "null" {
			return "", apperrors.Auth("Not authorized, invalid token format")
		}
		return token, nil
	}
	if token := c.Cookies("access"); token != "" {
		return token, nil
	}
	return "", apperrors.Auth("Not authorized, no token")
}

// Authenticate resolves the caller and stores the actor in Locals.
func Authenticate(resolver ActorResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := ExtractToken(c)
		if err != nil {
			return err
		}
		actor, err := resolver.Resolve(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(ActorKey, actor)
		return c.Next()
	}
}

// RequirePermissions lets the request through when the actor holds at least one of the capabilities.
// It must run after Authenticate.
func RequirePermissions(capabilities ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := GetActor(c)
		if !ok {
			return apperrors.Auth("Not authorized, no token")
		}
		if !actor.HasAny(capabilities...) {
			return apperrors.Forbidden("Insufficient permissions")
		}
		return c.Next()
	}
}

// RequireAuthentication only requires a resolved actor.
func RequireAuthentication() fiber.Handler {
	return RequirePermissions(constants.CapAny)
}

// GetActor returns the actor stored by Authenticate.
func GetActor(c *fiber.Ctx) (policy.Actor, bool) {
	actor, ok := c.Locals(ActorKey).(policy.Actor)
	return actor, ok && actor.ID != 0
}
