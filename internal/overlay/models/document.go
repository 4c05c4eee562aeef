package models

import "field-overlay/internal/overlay/renderer"

// ============================================================
// Document Model
// ============================================================

// Document is a registered, ready-to-render document. PageCount 0 means the
// page count is unknown.
type Document struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	PageCount int    `json:"page_count"`
	CreatedAt string `json:"created_at"`
}

// Handle is the view of the document the renderer ladder works with.
func (d Document) Handle() renderer.Document {
	return renderer.Document{ID: d.ID, URL: d.URL, Pages: d.PageCount}
}
