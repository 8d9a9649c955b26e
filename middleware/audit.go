package middleware

import (
	"pawsewa/logger"
	"pawsewa/utils"

	"github.com/gofiber/fiber/v2"
)

// AuditLog records every state-changing request once the handler has produced a response.
func AuditLog(async *logger.AsyncLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if async == nil || c.Method() == fiber.MethodGet || c.Method() == fiber.MethodOptions {
			return err
		}
		if err != nil {
			// let the error handler write the envelope first
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				return herr
			}
			err = nil
		}
		var actorID *uint
		if actor, ok := GetActor(c); ok {
			id := actor.ID
			actorID = &id
		}
		async.Log(utils.CreateSanitizedLogEntry(c, actorID))
		return err
	}
}
