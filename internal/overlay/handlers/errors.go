package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"field-overlay/internal/overlay/interaction"
	"field-overlay/internal/overlay/models"
	"field-overlay/internal/overlay/placement"
	"field-overlay/internal/overlay/repository"
	"field-overlay/internal/overlay/service"
	"field-overlay/internal/overlay/signers"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Error mapping
// ============================================================

func statusFor(err error) int {
	switch {
	case errors.Is(err, placement.ErrConflict),
		errors.Is(err, service.ErrRosterInvalid),
		errors.Is(err, interaction.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, signers.ErrUnknownSigner),
		errors.Is(err, interaction.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoTool),
		errors.Is(err, service.ErrToolNotAllowed),
		errors.Is(err, service.ErrNoSigner),
		errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrInvalidStep),
		errors.Is(err, models.ErrInvalidSigner),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[OVERLAY] internal error: %v", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c fiber.Ctx, msg string) error {
	return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": msg})
}

// decode reads the JSON body into v. An empty body is accepted when
// optional is set.
func decode(c fiber.Ctx, v any, optional bool) error {
	if len(c.Body()) == 0 {
		if optional {
			return nil
		}
		return errors.New("empty body")
	}
	if err := json.Unmarshal(c.Body(), v); err != nil {
		return errors.New("invalid json")
	}
	return nil
}
