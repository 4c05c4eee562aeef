package main

import (
	"fmt"
	"log"
	"time"

	"field-overlay/internal/common/config"
	"field-overlay/internal/common/middleware"
	"field-overlay/internal/gateway/handlers"
	"field-overlay/internal/gateway/proxy"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// API Gateway
// ============================================================

func main() {
	cfg := config.Load()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "API Gateway",
	})

	overlay := proxy.New(cfg.OverlayURL, "/api/v1")
	renderer := proxy.New(cfg.RendererURL, "/api/v1")

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.CORS(cfg.CORSOrigins...))
	app.Use(middleware.Logger("gateway"))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", handlers.LivenessProbe)
	app.Get("/health/ready", handlers.ReadinessProbe(overlay, renderer))
	app.Get("/health/startup", handlers.StartupProbe)

	app.Get("/docs", handlers.SwaggerUI)
	app.Get("/docs/openapi.yaml", handlers.SwaggerSpec(cfg.OpenAPISpec))

	// ============================================================
	// API Routes
	// ============================================================

	api := app.Group("/api/v1")

	api.Get("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Field Overlay API v1",
			"status":  "ok",
		})
	})

	// Overlay Service
	api.All("/documents", overlay.Handler())
	api.All("/documents/*", overlay.Handler())
	api.All("/sessions", overlay.Handler())
	api.All("/sessions/*", overlay.Handler())

	// Renderer Service
	api.Post("/render", renderer.Handler())
	api.Post("/render.png", renderer.Handler())

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting API Gateway on %s (env: %s)", addr, cfg.Environment)
	log.Printf("Proxying overlay to %s, renderer to %s", cfg.OverlayURL, cfg.RendererURL)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
