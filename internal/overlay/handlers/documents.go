package handlers

import (
	"log"
	"net/http"

	"field-overlay/internal/overlay/repository"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Document Handler
// ============================================================

type DocumentHandler struct {
	repo *repository.Repository
}

func NewDocumentHandler(repo *repository.Repository) *DocumentHandler {
	return &DocumentHandler{repo: repo}
}

type registerRequest struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	PageCount int    `json:"page_count"`
}

// Register записывает документ по ссылке, без загрузки содержимого.
func (h *DocumentHandler) Register(c fiber.Ctx) error {
	var req registerRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}

	doc, err := h.repo.Register(c.Context(), req.Name, req.URL, req.PageCount)
	if err != nil {
		return fail(c, err)
	}
	log.Printf("[OVERLAY] document registered: %s (%d pages)", doc.ID, doc.PageCount)
	return c.Status(http.StatusCreated).JSON(doc)
}

func (h *DocumentHandler) Get(c fiber.Ctx) error {
	doc, err := h.repo.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(doc)
}

func (h *DocumentHandler) List(c fiber.Ctx) error {
	docs, err := h.repo.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs})
}
