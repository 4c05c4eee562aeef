package models

import (
	"fmt"

	"field-overlay/internal/overlay/geometry"

	"github.com/google/uuid"
)

// ============================================================
// Field Kinds
// ============================================================

type Kind string

const (
	KindText      Kind = "text"
	KindCheckbox  Kind = "checkbox"
	KindImage     Kind = "image"
	KindDate      Kind = "date"
	KindSignature Kind = "signature"
)

// ParseKind accepts the wire names plus "photo", which older clients send
// for image fields.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindCheckbox, KindImage, KindDate, KindSignature:
		return Kind(s), nil
	case "photo":
		return KindImage, nil
	}
	return "", fmt.Errorf("unknown field kind %q", s)
}

// DefaultSize is the size a freshly placed field gets.
func (k Kind) DefaultSize() geometry.Size {
	switch k {
	case KindSignature:
		return geometry.Size{Width: 200, Height: 80}
	case KindCheckbox:
		return geometry.Size{Width: geometry.CheckboxEdge, Height: geometry.CheckboxEdge}
	default:
		return geometry.Size{Width: 150, Height: 40}
	}
}

// DefaultContent is the placeholder content of a new field.
func (k Kind) DefaultContent() string {
	if k == KindText {
		return "Edit this text"
	}
	return ""
}

// ============================================================
// Field Model
// ============================================================

// Field is a placed overlay element. A non-empty SignerID makes it a
// signature field owned by that signer.
type Field struct {
	ID       string         `json:"id"`
	Kind     Kind           `json:"type"`
	Page     int            `json:"page"`
	Position geometry.Point `json:"position"`
	Size     geometry.Size  `json:"size"`
	Content  string         `json:"content,omitempty"`
	SignerID string         `json:"signerId,omitempty"`
}

func (f Field) IsSignatureField() bool { return f.SignerID != "" }

// Bounds returns the document-space box of the field.
func (f Field) Bounds() geometry.Rect {
	return geometry.Rect{Origin: f.Position, Size: f.Size}
}

// LockedFor reports whether f is read-only for an actor editing as current.
// Without a current signer every signature field is locked.
func LockedFor(f Field, current *Signer) bool {
	if !f.IsSignatureField() {
		return false
	}
	return current == nil || f.SignerID != current.ID
}

// NewField builds a field of kind k anchored at pos on page.
func NewField(k Kind, page int, pos geometry.Point) Field {
	return Field{
		ID:       NewFieldID(),
		Kind:     k,
		Page:     page,
		Position: pos,
		Size:     k.DefaultSize(),
		Content:  k.DefaultContent(),
	}
}

func NewFieldID() string  { return "field-" + uuid.NewString() }
func NewSignerID() string { return "signer-" + uuid.NewString() }

// ============================================================
// Field View
// ============================================================

// FieldView is a field as presented to one actor, with the derived lock.
type FieldView struct {
	Field
	Locked bool `json:"isLocked"`
}

func ViewFor(f Field, current *Signer) FieldView {
	return FieldView{Field: f, Locked: LockedFor(f, current)}
}
