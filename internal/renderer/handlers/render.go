package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"

	"field-overlay/internal/renderer/mapper"
	"field-overlay/internal/renderer/models"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Render Handler
// ============================================================

// RenderSVG draws the fallback page described by the JSON body as SVG.
func RenderSVG(c fiber.Ctx) error {
	page, msg := decodePage(c)
	if page == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	svg, err := mapper.NewRenderer().Render(page)
	if err != nil {
		return renderError(c, err)
	}

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

// RenderPNG draws the fallback page described by the JSON body as PNG.
func RenderPNG(c fiber.Ctx) error {
	page, msg := decodePage(c)
	if page == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
	}

	var buf bytes.Buffer
	if err := mapper.NewRenderer().RenderPNG(page, &buf); err != nil {
		return renderError(c, err)
	}

	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}

// ============================================================
// Helpers
// ============================================================

// decodePage returns the page, or nil and the reason the body was rejected.
func decodePage(c fiber.Ctx) (*models.Page, string) {
	log.Printf("[RENDER] Received request, Content-Length: %d", len(c.Body()))

	if len(c.Body()) == 0 {
		return nil, "body required"
	}

	var page models.Page
	if err := json.Unmarshal(c.Body(), &page); err != nil {
		log.Printf("[RENDER] Decode error: %v", err)
		return nil, "invalid JSON payload"
	}
	return &page, ""
}

func renderError(c fiber.Ctx, err error) error {
	log.Printf("[RENDER] Render error: %v", err)
	status := fiber.StatusInternalServerError
	if errors.Is(err, models.ErrInvalidPage) {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
