package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// CORS разрешает указанные источники; без аргументов разрешено всё (dev).
// Заголовки указателя и JSON-тела идут только через перечисленные методы.
func CORS(origins ...string) fiber.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: []string{"Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodPatch,
			fiber.MethodDelete, fiber.MethodOptions,
		},
	})
}
