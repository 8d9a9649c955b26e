package middleware

import (
	"errors"
	"fmt"

	"pawsewa/apperrors"
	"pawsewa/logger"
	"pawsewa/types"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler writes every error as {success:false,message}. Internal detail is only
// exposed outside production.
func ErrorHandler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		resp := types.ErrorResponse{Message: "Server error"}

		var appErr *apperrors.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			status = appErr.HTTPStatus()
			resp.Message = appErr.Message
			if appErr.Kind == apperrors.KindInternal {
				logger.ErrorStack(fmt.Sprintf("%s %s", c.Method(), c.Path()), err)
				if production {
					resp.Message = "Server error"
				} else if appErr.Err != nil {
					resp.Detail = appErr.Err.Error()
				}
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			resp.Message = fiberErr.Message
			if status == fiber.StatusNotFound {
				resp.Path = c.OriginalURL()
				resp.Message = "Not found - " + c.OriginalURL()
			}
		default:
			logger.ErrorStack(fmt.Sprintf("%s %s", c.Method(), c.Path()), err)
			if !production {
				resp.Detail = err.Error()
			}
		}
		return c.Status(status).JSON(resp)
	}
}
