package handlers

import (
	"errors"
	"log"
	"net/http"
	"path"
	"strconv"

	"field-overlay/internal/overlay/geometry"
	"field-overlay/internal/overlay/interaction"
	"field-overlay/internal/overlay/models"
	"field-overlay/internal/overlay/placement"
	"field-overlay/internal/overlay/repository"
	"field-overlay/internal/overlay/service"
	"field-overlay/internal/overlay/store"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Session Handler
// ============================================================

type SessionHandler struct {
	repo     *repository.Repository
	sessions *service.Manager
}

func NewSessionHandler(repo *repository.Repository, sessions *service.Manager) *SessionHandler {
	return &SessionHandler{repo: repo, sessions: sessions}
}

type openRequest struct {
	DocumentID string `json:"document_id"`
	Mode       string `json:"mode"`
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p pointRequest) point() geometry.Point { return geometry.Point{X: p.X, Y: p.Y} }

type toolRequest struct {
	Kind *string `json:"kind"`
}

type pointerDownRequest struct {
	FieldID string  `json:"field_id"`
	Handle  string  `json:"handle"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type signerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type rendererRequest struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// Open начинает сессию редактирования для зарегистрированного документа.
func (h *SessionHandler) Open(c fiber.Ctx) error {
	var req openRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}
	if req.DocumentID == "" {
		return badRequest(c, "document_id required")
	}
	mode, err := service.ParseMode(req.Mode)
	if err != nil {
		return fail(c, err)
	}

	doc, err := h.repo.GetByID(c.Context(), req.DocumentID)
	if err != nil {
		return fail(c, err)
	}

	s, err := h.sessions.Open(doc.Handle(), mode)
	if err != nil {
		return fail(c, err)
	}
	log.Printf("[OVERLAY] session %s opened for %s (%s)", s.ID(), doc.ID, mode)
	return c.Status(http.StatusCreated).JSON(s.Snapshot())
}

func (h *SessionHandler) Get(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	return c.JSON(s.Snapshot())
}

func (h *SessionHandler) Close(c fiber.Ctx) error {
	if !h.sessions.Close(c.Params("id")) {
		return notFound(c, "session not found")
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Workflow
// ============================================================

func (h *SessionHandler) SetMode(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.SetMode(service.Mode(req.Mode)); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.Snapshot())
}

func (h *SessionHandler) SetStep(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req struct {
		Step string `json:"step"`
	}
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}
	if err := s.SetStep(service.Step(req.Step)); err != nil {
		return fail(c, err)
	}
	return c.JSON(s.Snapshot())
}

func (h *SessionHandler) Ready(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	rep := s.Validation()
	return c.JSON(fiber.Map{"ready": rep.AllValid, "validation": rep})
}

// Send завершает настройку. При неполном списке подписантов отдаёт 409 с отчётом.
func (h *SessionHandler) Send(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	rep, err := s.Send()
	if errors.Is(err, service.ErrRosterInvalid) {
		return c.Status(http.StatusConflict).JSON(fiber.Map{
			"error":      err.Error(),
			"validation": rep,
			"attention":  rep.FirstInvalid,
		})
	}
	if err != nil {
		return fail(c, err)
	}
	log.Printf("[OVERLAY] session %s sent", s.ID())
	return c.JSON(fiber.Map{"status": "sent", "validation": rep})
}

// ============================================================
// Tools & Fields
// ============================================================

func (h *SessionHandler) SelectTool(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req toolRequest
	if err := decode(c, &req, true); err != nil {
		return badRequest(c, err.Error())
	}

	var kind *models.Kind
	if req.Kind != nil && *req.Kind != "" {
		k, err := models.ParseKind(*req.Kind)
		if err != nil {
			return badRequest(c, err.Error())
		}
		kind = &k
	}
	if err := s.SelectTool(kind); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"tool": kind})
}

// Click ставит поле выбранного инструмента в точку экрана.
func (h *SessionHandler) Click(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req pointRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}

	f, err := s.Click(req.point())
	if errors.Is(err, placement.ErrConflict) {
		body := fiber.Map{"error": placement.ConflictMessage}
		if n, ok := s.Notice(); ok {
			body["notice"] = n
		}
		return c.Status(http.StatusConflict).JSON(body)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(f)
}

func (h *SessionHandler) FieldsOnPage(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	page, err := strconv.Atoi(c.Params("page"))
	if err != nil || page < 1 {
		return badRequest(c, "invalid page")
	}
	return c.JSON(fiber.Map{"page": page, "fields": s.FieldsOnPage(page)})
}

// UpdateField применяет частичное обновление. Неизвестное поле: 204 без ошибки.
func (h *SessionHandler) UpdateField(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var patch store.Patch
	if err := decode(c, &patch, false); err != nil {
		return badRequest(c, err.Error())
	}

	f, found, err := s.UpdateField(c.Params("fid"), patch)
	if err != nil {
		return fail(c, err)
	}
	if !found {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(f)
}

func (h *SessionHandler) NudgeField(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req pointRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}

	f, found, err := s.NudgeField(c.Params("fid"), req.point())
	if err != nil {
		return fail(c, err)
	}
	if !found {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(f)
}

// CopyToAllPages дублирует поле на все остальные страницы документа.
func (h *SessionHandler) CopyToAllPages(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	res, found, err := s.CopyToAllPages(c.Params("fid"))
	if err != nil {
		return fail(c, err)
	}
	if !found {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.Status(http.StatusCreated).JSON(res)
}

func (h *SessionHandler) DeleteField(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	if err := s.DeleteField(c.Params("fid")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Pointer
// ============================================================

func (h *SessionHandler) PointerDown(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req pointerDownRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}

	var handle interaction.Handle
	switch req.Handle {
	case "", "body":
		handle = interaction.Body
	case "resize":
		handle = interaction.ResizeHandle
	default:
		return badRequest(c, "handle must be body or resize")
	}

	if err := s.PointerDown(req.FieldID, handle, geometry.Point{X: req.X, Y: req.Y}); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"gesture": s.Snapshot().Gesture})
}

func (h *SessionHandler) PointerMove(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req pointRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}

	f, moved := s.PointerMove(req.point())
	if !moved {
		return c.SendStatus(http.StatusNoContent)
	}
	return c.JSON(f)
}

func (h *SessionHandler) PointerUp(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	s.PointerUp()
	return c.SendStatus(http.StatusNoContent)
}

// ============================================================
// Viewport
// ============================================================

func (h *SessionHandler) Zoom(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req struct {
		Direction string `json:"direction"`
	}
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}

	var scale float64
	switch req.Direction {
	case "in":
		scale = s.ZoomIn()
	case "out":
		scale = s.ZoomOut()
	default:
		return badRequest(c, "direction must be in or out")
	}
	return c.JSON(fiber.Map{"scale": scale})
}

func (h *SessionHandler) SetPage(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req struct {
		Page int `json:"page"`
	}
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(fiber.Map{"page": s.SetPage(req.Page)})
}

func (h *SessionHandler) SetViewport(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req struct {
		OriginX float64 `json:"origin_x"`
		OriginY float64 `json:"origin_y"`
	}
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}
	s.SetOrigin(geometry.Point{X: req.OriginX, Y: req.OriginY})
	return c.JSON(fiber.Map{"origin": geometry.Point{X: req.OriginX, Y: req.OriginY}})
}

// ============================================================
// Signers
// ============================================================

func (h *SessionHandler) AddSigner(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req signerRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}

	signer, err := s.AddSigner(req.Name, req.Email)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(signer)
}

func (h *SessionHandler) RemoveSigner(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	if err := s.RemoveSigner(c.Params("sid")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"currentSigner": s.CurrentSigner()})
}

func (h *SessionHandler) SelectSigner(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	if err := s.SelectSigner(c.Params("sid")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"currentSigner": s.CurrentSigner()})
}

func (h *SessionHandler) ClearSignerFields(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	n, err := s.ClearSignerFields(c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": n})
}

func (h *SessionHandler) SearchSigners(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	return c.JSON(fiber.Map{"signers": s.SearchSigners(c.Query("q"))})
}

// ============================================================
// Renderer
// ============================================================

func (h *SessionHandler) RendererLoaded(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req rendererRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}
	accepted := s.RendererLoaded(req.Stage)
	return c.JSON(fiber.Map{"accepted": accepted, "renderer": s.RendererStatus()})
}

func (h *SessionHandler) RendererFailed(c fiber.Ctx) error {
	s, ok := h.session(c)
	if !ok {
		return notFound(c, "session not found")
	}
	var req rendererRequest
	if err := decode(c, &req, false); err != nil {
		return badRequest(c, err.Error())
	}
	accepted := s.RendererFailed(req.Stage, req.Reason)
	return c.JSON(fiber.Map{"accepted": accepted, "renderer": s.RendererStatus()})
}

// ============================================================
// Helpers
// ============================================================

func (h *SessionHandler) session(c fiber.Ctx) (*service.Session, bool) {
	return h.sessions.Get(c.Params("id"))
}

// documentName looks up the registered name, falling back to the URL's
// last element.
func (h *SessionHandler) documentName(c fiber.Ctx, s *service.Session) string {
	doc := s.Document()
	if rec, err := h.repo.GetByID(c.Context(), doc.ID); err == nil && rec.Name != "" {
		return rec.Name
	}
	return path.Base(doc.URL)
}
