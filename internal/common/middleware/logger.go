package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// ============================================================
// Logger Middleware
// ============================================================

// Logger логирует запросы с тегом сервиса, чтобы строки gateway, overlay
// и renderer различались в общем выводе.
func Logger(service string) fiber.Handler {
	return logger.New(logger.Config{
		Format:     "[${time}] [" + service + "] ${status} - ${latency} ${method} ${path}?${queryParams} | ${bytesReceived}b in, ${bytesSent}b out\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	})
}
