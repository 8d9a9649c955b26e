package utils

import (
	"strconv"

	"pawsewa/apperrors"
	"pawsewa/types"

	"github.com/gofiber/fiber/v2"
)

// ParseBody decodes the request body into out and runs its validate tags.
func ParseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return types.Validate(out)
}

// ParamID reads a positive integer path parameter.
func ParamID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("Invalid %s", name)
	}
	return uint(id), nil
}
