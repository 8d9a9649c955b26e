package server

import (
	"context"
	"time"

	"pawsewa/logger"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthController struct {
	db      *gorm.DB
	name    string
	started time.Time
}

func NewHealthController(db *gorm.DB, name string) *HealthController {
	return &HealthController{db: db, name: name, started: time.Now()}
}

type healthResponse struct {
	Success  bool   `json:"success"`
	Service  string `json:"service"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Health reports 503 when the database does not answer a ping within two seconds.
func (h *HealthController) Health(c *fiber.Ctx) error {
	resp := healthResponse{
		Success:  true,
		Service:  h.name,
		Database: "up",
		Uptime:   time.Since(h.started).Round(time.Second).String(),
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		logger.Error("Health check database ping failed", err)
		resp.Success = false
		resp.Database = "down"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}
