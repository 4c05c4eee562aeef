package geometry

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// ============================================================
// Primitives
// ============================================================

// Point is a position in either screen or document space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in document space.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box in document space.
type Rect struct {
	Origin Point
	Size   Size
}

// Contains reports whether p lies inside r. Edges count as inside.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Origin.X && p.X <= r.Origin.X+r.Size.Width &&
		p.Y >= r.Origin.Y && p.Y <= r.Origin.Y+r.Size.Height
}

func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

func (p Point) vec() vec.Vec2 { return vec.Vec2{X: p.X, Y: p.Y} }

func fromVec(v vec.Vec2) Point { return Point{X: v.X, Y: v.Y} }

func apply(m matrix.Matrix, p Point) Point {
	x, y := m.Apply(p.X, p.Y)
	return Point{X: x, Y: y}
}

// ============================================================
// Zoom
// ============================================================

const (
	MinScale  = 0.5
	MaxScale  = 2.0
	ZoomStep  = 0.1
	unitScale = 1.0
)

// ClampScale keeps s inside [MinScale, MaxScale]. Non-finite or non-positive
// values collapse to 1.0 so the transform always stays invertible.
func ClampScale(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return unitScale
	}
	// round away float drift from repeated ±0.1 steps
	s = math.Round(s*1000) / 1000
	return math.Min(MaxScale, math.Max(MinScale, s))
}

func ZoomIn(s float64) float64  { return ClampScale(s + ZoomStep) }
func ZoomOut(s float64) float64 { return ClampScale(s - ZoomStep) }

// ============================================================
// Transform
// ============================================================

// Transform maps between pointer (screen) coordinates and document space for
// a container placed at Origin and zoomed by Scale.
type Transform struct {
	Origin Point
	Scale  float64
}

// NewTransform returns a transform with the scale clamped into range.
func NewTransform(origin Point, scale float64) Transform {
	return Transform{Origin: origin, Scale: ClampScale(scale)}
}

func (t Transform) scale() float64 {
	if t.Scale <= 0 {
		return unitScale
	}
	return t.Scale
}

func (t Transform) documentMatrix() matrix.Matrix {
	s := t.scale()
	return matrix.Matrix{1 / s, 0, 0, 1 / s, -t.Origin.X / s, -t.Origin.Y / s}
}

func (t Transform) screenMatrix() matrix.Matrix {
	s := t.scale()
	return matrix.Matrix{s, 0, 0, s, t.Origin.X, t.Origin.Y}
}

// ToDocumentSpace computes (p - Origin) / Scale.
func (t Transform) ToDocumentSpace(p Point) Point {
	return apply(t.documentMatrix(), p)
}

// ToScreenSpace computes p*Scale + Origin.
func (t Transform) ToScreenSpace(p Point) Point {
	return apply(t.screenMatrix(), p)
}

// DeltaToDocument converts a pointer displacement into a document-space
// displacement. Translation does not apply to deltas.
func (t Transform) DeltaToDocument(d Point) Point {
	return fromVec(d.vec().Mul(1 / t.scale()))
}

// ToDocumentSpace is the free-function form of Transform.ToDocumentSpace.
func ToDocumentSpace(p, origin Point, scale float64) Point {
	return Transform{Origin: origin, Scale: scale}.ToDocumentSpace(p)
}

// ToScreenSpace is the free-function form of Transform.ToScreenSpace.
func ToScreenSpace(p, origin Point, scale float64) Point {
	return Transform{Origin: origin, Scale: scale}.ToScreenSpace(p)
}

// ============================================================
// Size floor
// ============================================================

const (
	MinWidth     = 50.0
	MinHeight    = 30.0
	CheckboxEdge = 40.0

	// MaxSide caps either side of a field; no page is larger.
	MaxSide = 10000.0
)

// ClampSize enforces the minimum field size and the MaxSide ceiling. NaN
// collapses to the minimum.
func ClampSize(s Size) Size {
	if !(s.Width >= MinWidth) {
		s.Width = MinWidth
	}
	if !(s.Height >= MinHeight) {
		s.Height = MinHeight
	}
	s.Width = math.Min(s.Width, MaxSide)
	s.Height = math.Min(s.Height, MaxSide)
	return s
}
