package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Routes
// ============================================================

// Mount registers the overlay API on r.
func Mount(r fiber.Router, docs *DocumentHandler, sessions *SessionHandler) {
	r.Post("/documents", docs.Register)
	r.Get("/documents", docs.List)
	r.Get("/documents/:id", docs.Get)

	r.Post("/sessions", sessions.Open)
	r.Get("/sessions/:id", sessions.Get)
	r.Delete("/sessions/:id", sessions.Close)
	r.Post("/sessions/:id/mode", sessions.SetMode)
	r.Post("/sessions/:id/step", sessions.SetStep)
	r.Get("/sessions/:id/ready", sessions.Ready)
	r.Post("/sessions/:id/send", sessions.Send)

	r.Post("/sessions/:id/tool", sessions.SelectTool)
	r.Post("/sessions/:id/click", sessions.Click)
	r.Get("/sessions/:id/pages/:page/fields", sessions.FieldsOnPage)
	r.Get("/sessions/:id/pages/:page/preview.svg", sessions.PreviewSVG)
	r.Get("/sessions/:id/pages/:page/preview.png", sessions.PreviewPNG)
	r.Patch("/sessions/:id/fields/:fid", sessions.UpdateField)
	r.Post("/sessions/:id/fields/:fid/nudge", sessions.NudgeField)
	r.Post("/sessions/:id/fields/:fid/copy-all", sessions.CopyToAllPages)
	r.Delete("/sessions/:id/fields/:fid", sessions.DeleteField)

	r.Post("/sessions/:id/pointer/down", sessions.PointerDown)
	r.Post("/sessions/:id/pointer/move", sessions.PointerMove)
	r.Post("/sessions/:id/pointer/up", sessions.PointerUp)

	r.Post("/sessions/:id/zoom", sessions.Zoom)
	r.Post("/sessions/:id/page", sessions.SetPage)
	r.Post("/sessions/:id/viewport", sessions.SetViewport)

	r.Get("/sessions/:id/signers", sessions.SearchSigners)
	r.Post("/sessions/:id/signers", sessions.AddSigner)
	r.Delete("/sessions/:id/signers/:sid", sessions.RemoveSigner)
	r.Post("/sessions/:id/signers/:sid/select", sessions.SelectSigner)
	r.Delete("/sessions/:id/signers/:sid/fields", sessions.ClearSignerFields)

	r.Post("/sessions/:id/renderer/loaded", sessions.RendererLoaded)
	r.Post("/sessions/:id/renderer/failed", sessions.RendererFailed)
}
