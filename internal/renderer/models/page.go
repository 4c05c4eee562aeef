package models

import (
	"errors"
	"fmt"
	"math"
)

// ============================================================
// Page description
// ============================================================

const (
	DefaultWidth  = 800.0
	DefaultHeight = 1100.0
	MaxScale      = 2.0
	MinScale      = 0.5

	// MaxSide bounds the page canvas in document units.
	MaxSide = 10000.0
)

var ErrInvalidPage = errors.New("invalid page")

// Box is one field overlay drawn on top of the placeholder page.
type Box struct {
	ID       string  `json:"id"`
	Kind     string  `json:"type"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Content  string  `json:"content,omitempty"`
	SignerID string  `json:"signerId,omitempty"`
	Locked   bool    `json:"isLocked"`
}

// Page is the input of the fallback renderer: one page of a document whose
// real contents could not be displayed, plus the fields placed on it.
type Page struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	Page       int     `json:"page"`
	Pages      int     `json:"pages"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Scale      float64 `json:"scale"`
	Fields     []Box   `json:"fields"`
}

// Normalize fills defaults and rejects pages that cannot be drawn.
func (p *Page) Normalize() error {
	if p.Page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidPage, p.Page)
	}
	if p.Pages < p.Page {
		p.Pages = p.Page
	}
	if p.Width <= 0 {
		p.Width = DefaultWidth
	}
	if p.Height <= 0 {
		p.Height = DefaultHeight
	}
	if !finite(p.Width) || !finite(p.Height) || p.Width > MaxSide || p.Height > MaxSide {
		return fmt.Errorf("%w: page %gx%g exceeds %g", ErrInvalidPage, p.Width, p.Height, MaxSide)
	}
	if p.Scale <= 0 || math.IsNaN(p.Scale) || math.IsInf(p.Scale, 0) {
		p.Scale = 1
	}
	p.Scale = math.Min(MaxScale, math.Max(MinScale, p.Scale))

	for i, b := range p.Fields {
		if b.Width < 0 || b.Height < 0 {
			return fmt.Errorf("%w: field %s has negative size", ErrInvalidPage, b.ID)
		}
		if !finite(b.X) || !finite(b.Y) || !finite(b.Width) || !finite(b.Height) {
			return fmt.Errorf("%w: field %s has non-finite geometry", ErrInvalidPage, b.ID)
		}
		if b.Kind == "" {
			p.Fields[i].Kind = "text"
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
