package middleware

import (
	"errors"
	"time"

	"pawsewa/apperrors"
	"pawsewa/metrics"

	"github.com/gofiber/fiber/v2"
)

// Metrics observes latency by route pattern so ids in paths do not become labels.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		m.ObserveHTTP(c.Method(), c.Route().Path, statusOf(c, err), time.Since(started))
		return err
	}
}

// statusOf predicts the status the error handler will write, since it runs after this middleware returns.
func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}
