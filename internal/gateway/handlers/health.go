package handlers

import (
	"field-overlay/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe проверяет, что приложение работает
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
	})
}

// ReadinessProbe готов, когда отвечают все upstream-сервисы.
func ReadinessProbe(upstreams ...*proxy.Upstream) fiber.Handler {
	return func(c fiber.Ctx) error {
		failed := fiber.Map{}
		for _, u := range upstreams {
			if err := u.Ping(); err != nil {
				failed[u.Base()] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":    "degraded",
				"upstreams": failed,
			})
		}
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	}
}

// StartupProbe проверяет, что приложение успешно запустилось
func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "started",
	})
}
