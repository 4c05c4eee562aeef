package mapper

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"field-overlay/internal/renderer/models"
)

// ============================================================
// Renderer
// ============================================================

const (
	PlaceholderTitle = "PDF Preview Unavailable"
	pageMargin       = 50.0
)

type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render builds the SVG fallback for one page. The viewBox stays in
// document units; only the outer size follows the zoom scale.
func (r *Renderer) Render(page *models.Page) (string, error) {
	if page == nil {
		return "", fmt.Errorf("page is nil")
	}
	if err := page.Normalize(); err != nil {
		return "", err
	}

	var elements []string
	elements = append(elements, r.renderBackground(page)...)
	elements = append(elements, r.renderCaption(page)...)
	elements = append(elements, r.renderFields(page)...)

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(page.Width*page.Scale), formatFloat(page.Height*page.Scale),
		formatFloat(page.Width), formatFloat(page.Height)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Element renderers
// ============================================================

func (r *Renderer) renderBackground(page *models.Page) []string {
	return []string{
		fmt.Sprintf(`<rect x="0" y="0" width="%s" height="%s" fill="#ffffff" />`,
			formatFloat(page.Width), formatFloat(page.Height)),
		fmt.Sprintf(`<rect x="%s" y="%s" width="%s" height="%s" fill="#f0f0f0" />`,
			formatFloat(pageMargin), formatFloat(pageMargin),
			formatFloat(page.Width-2*pageMargin), formatFloat(page.Height-2*pageMargin)),
	}
}

func (r *Renderer) renderCaption(page *models.Page) []string {
	cx, cy := page.Width/2, page.Height/2

	out := []string{
		textElement(cx, cy, 16, PlaceholderTitle),
	}
	if page.Name != "" {
		out = append(out, textElement(cx, cy+30, 14, page.Name))
	}
	out = append(out, textElement(cx, page.Height-pageMargin/2, 12, PageLabel(page)))
	return out
}

func (r *Renderer) renderFields(page *models.Page) []string {
	var out []string

	for _, b := range page.Fields {
		style := styleFor(b)
		dash := ""
		if b.Locked {
			dash = ` stroke-dasharray="6 4"`
		}
		out = append(out, fmt.Sprintf(`<rect id="%s" x="%s" y="%s" width="%s" height="%s" fill="%s" fill-opacity="0.15" stroke="%s"%s />`,
			html.EscapeString(b.ID), formatFloat(b.X), formatFloat(b.Y),
			formatFloat(b.Width), formatFloat(b.Height), style.hex, style.hex, dash))

		if label := FieldLabel(b); label != "" {
			out = append(out, fmt.Sprintf(`<text x="%s" y="%s" font-family="sans-serif" font-size="12" fill="%s">%s</text>`,
				formatFloat(b.X+4), formatFloat(b.Y+14), style.hex, html.EscapeString(label)))
		}
	}

	return out
}

// ============================================================
// Labels
// ============================================================

// PageLabel is the "Page N of M" footer.
func PageLabel(page *models.Page) string {
	return fmt.Sprintf("Page %d of %d", page.Page, page.Pages)
}

// FieldLabel is the text shown inside a field box.
func FieldLabel(b models.Box) string {
	switch b.Kind {
	case "", "checkbox":
		return ""
	case "text", "date":
		if b.Content != "" {
			return b.Content
		}
	}
	return strings.ToUpper(b.Kind[:1]) + b.Kind[1:]
}

// ============================================================
// Formatting helpers
// ============================================================

func textElement(x, y, size float64, text string) string {
	return fmt.Sprintf(`<text x="%s" y="%s" font-family="Arial, sans-serif" font-size="%s" fill="#666666" text-anchor="middle">%s</text>`,
		formatFloat(x), formatFloat(y), formatFloat(size), html.EscapeString(text))
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}
