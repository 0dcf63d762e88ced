package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Root godoc
// @Summary      Service banner
// @Tags         meta
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       / [get]
func Root(environment string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":     "Audio Recording API",
			"timestamp":   time.Now().UTC().Format(isoMillis),
			"environment": environment,
		})
	}
}

// HealthCheck godoc
// @Summary      Readiness probe (database ping)
// @Tags         meta
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  Response
// @Router       /health [get]
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "Database unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe godoc
// @Summary      Liveness probe
// @Tags         meta
// @Success      200
// @Router       /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
