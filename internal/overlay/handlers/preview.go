package handlers

import (
	"bytes"
	"strconv"

	"field-overlay/internal/overlay/service"
	"field-overlay/internal/renderer/mapper"
	rmodels "field-overlay/internal/renderer/models"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Fallback preview
// ============================================================

var fallback = mapper.NewRenderer()

// PreviewSVG отдаёт упрощённый предпросмотр страницы с полями.
func (h *SessionHandler) PreviewSVG(c fiber.Ctx) error {
	page, ok, err := h.previewPage(c)
	if !ok {
		return err
	}

	svg, err := fallback.Render(page)
	if err != nil {
		return fail(c, err)
	}
	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(svg)
}

func (h *SessionHandler) PreviewPNG(c fiber.Ctx) error {
	page, ok, err := h.previewPage(c)
	if !ok {
		return err
	}

	var buf bytes.Buffer
	if err := fallback.RenderPNG(page, &buf); err != nil {
		return fail(c, err)
	}
	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}

// previewPage builds the render input. When ok is false the response has
// already been written and err is what the handler should return.
func (h *SessionHandler) previewPage(c fiber.Ctx) (*rmodels.Page, bool, error) {
	s, found := h.session(c)
	if !found {
		return nil, false, notFound(c, "session not found")
	}
	n, err := strconv.Atoi(c.Params("page"))
	if err != nil || n < 1 {
		return nil, false, badRequest(c, "invalid page")
	}
	snap := s.Snapshot()
	if n > snap.Pages {
		return nil, false, notFound(c, "page out of range")
	}
	return pageFor(snap, s, h.documentName(c, s), n), true, nil
}

func pageFor(snap service.Snapshot, s *service.Session, name string, n int) *rmodels.Page {
	views := s.FieldsOnPage(n)
	boxes := make([]rmodels.Box, len(views))
	for i, v := range views {
		boxes[i] = rmodels.Box{
			ID:       v.ID,
			Kind:     string(v.Kind),
			X:        v.Position.X,
			Y:        v.Position.Y,
			Width:    v.Size.Width,
			Height:   v.Size.Height,
			Content:  v.Content,
			SignerID: v.SignerID,
			Locked:   v.Locked,
		}
	}
	return &rmodels.Page{
		DocumentID: snap.DocumentID,
		Name:       name,
		Page:       n,
		Pages:      snap.Pages,
		Scale:      snap.Scale,
		Fields:     boxes,
	}
}
