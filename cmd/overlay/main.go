package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"field-overlay/internal/common/config"
	"field-overlay/internal/common/middleware"
	"field-overlay/internal/overlay/handlers"
	"field-overlay/internal/overlay/repository"
	"field-overlay/internal/overlay/service"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// ============================================================
// Overlay Service
// ============================================================

func main() {
	cfg := config.Load()
	if os.Getenv("PORT") == "" {
		cfg.Port = "3002"
	}

	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ladder, err := config.LoadLadder(cfg.LadderPath)
	if err != nil {
		log.Fatalf("renderer ladder: %v", err)
	}

	db, err := repository.OpenSQLite(cfg.OverlayDBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(context.Background(), cfg.MigrationsPath); err != nil {
		log.Fatalf("init db: %v", err)
	}

	sessions := service.NewManager(service.Options{
		Ladder:    ladder,
		NoticeTTL: cfg.NoticeTTL,
		Logger:    logger,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		AppName:      "Overlay Service",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.Logger("overlay"))

	// ============================================================
	// Health Check Routes
	// ============================================================

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c fiber.Ctx) error {
		if err := db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "db unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ready", "sessions": sessions.Len()})
	})

	// ============================================================
	// Overlay Routes
	// ============================================================

	handlers.Mount(app,
		handlers.NewDocumentHandler(repo),
		handlers.NewSessionHandler(repo, sessions),
	)

	// ============================================================
	// Server Start
	// ============================================================

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("starting overlay service", "addr", addr, "env", cfg.Environment, "stages", len(ladder))

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
