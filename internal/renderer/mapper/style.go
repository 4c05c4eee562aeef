package mapper

import (
	"fmt"
	"image/color"

	"field-overlay/internal/renderer/models"
)

type fieldStyle struct {
	rgba color.RGBA
	hex  string
}

var (
	styleLocked    = newStyle(0x9c, 0xa3, 0xaf)
	styleSignature = newStyle(0xb4, 0x53, 0x09)
	styleDefault   = newStyle(0x25, 0x63, 0xeb)
)

func newStyle(r, g, b uint8) fieldStyle {
	return fieldStyle{
		rgba: color.RGBA{R: r, G: g, B: b, A: 0xff},
		hex:  fmt.Sprintf("#%02x%02x%02x", r, g, b),
	}
}

func styleFor(b models.Box) fieldStyle {
	switch {
	case b.Locked:
		return styleLocked
	case b.SignerID != "" || b.Kind == "signature":
		return styleSignature
	default:
		return styleDefault
	}
}
