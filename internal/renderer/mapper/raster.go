package mapper

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"field-overlay/internal/renderer/models"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	xdraw "golang.org/x/image/draw"
)

// ============================================================
// Raster
// ============================================================

var (
	colorWhite       = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	colorPlaceholder = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	colorCaption     = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
)

// Raster draws the page at document resolution and scales it to the zoom
// level.
func (r *Renderer) Raster(page *models.Page) (*image.RGBA, error) {
	if page == nil {
		return nil, fmt.Errorf("page is nil")
	}
	if err := page.Normalize(); err != nil {
		return nil, err
	}

	w, h := int(math.Ceil(page.Width)), int(math.Ceil(page.Height))
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	fillRect(img, img.Bounds(), colorWhite)
	m := int(pageMargin)
	fillRect(img, image.Rect(m, m, w-m, h-m), colorPlaceholder)

	face := basicfont.Face7x13
	drawCentered(img, face, w/2, h/2, PlaceholderTitle, colorCaption)
	if page.Name != "" {
		drawCentered(img, face, w/2, h/2+30, page.Name, colorCaption)
	}
	drawCentered(img, face, w/2, h-m/2, PageLabel(page), colorCaption)

	for _, b := range page.Fields {
		style := styleFor(b)
		rect := image.Rect(
			pixel(b.X), pixel(b.Y),
			pixel(b.X+b.Width), pixel(b.Y+b.Height),
		)
		tint := style.rgba
		tint.A = 0x26
		draw.Draw(img, rect.Intersect(img.Bounds()), &image.Uniform{C: tint}, image.Point{}, draw.Over)
		strokeRect(img, rect, style.rgba, b.Locked)

		if label := FieldLabel(b); label != "" {
			d := &font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(style.rgba),
				Face: face,
				Dot:  fixed.P(rect.Min.X+4, rect.Min.Y+face.Metrics().Ascent.Ceil()+2),
			}
			d.DrawString(label)
		}
	}

	if page.Scale == 1 {
		return img, nil
	}
	sw := int(math.Round(float64(w) * page.Scale))
	sh := int(math.Round(float64(h) * page.Scale))
	scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	return scaled, nil
}

// RenderPNG writes the raster as PNG.
func (r *Renderer) RenderPNG(page *models.Page, w io.Writer) error {
	img, err := r.Raster(page)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ============================================================
// Drawing helpers
// ============================================================

func fillRect(img *image.RGBA, rect image.Rectangle, c color.Color) {
	draw.Draw(img, rect, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

// pixel rounds a document coordinate, bounded well outside any canvas so
// huge values cannot overflow int.
func pixel(v float64) int {
	const bound = 4 * models.MaxSide
	return int(math.Round(math.Max(-bound, math.Min(bound, v))))
}

// strokeRect draws a one pixel outline, visiting only pixels inside the
// image. Dashed outlines skip every other run of four pixels.
func strokeRect(img *image.RGBA, rect image.Rectangle, c color.RGBA, dashed bool) {
	on := func(i int) bool { return !dashed || (i/4)%2 == 0 }
	b := img.Bounds()
	clip := rect.Intersect(b)
	if clip.Empty() {
		return
	}
	set := func(x, y int) {
		if (image.Point{X: x, Y: y}).In(b) {
			img.SetRGBA(x, y, c)
		}
	}
	for x := clip.Min.X; x < clip.Max.X; x++ {
		if on(x - rect.Min.X) {
			set(x, rect.Min.Y)
			set(x, rect.Max.Y-1)
		}
	}
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		if on(y - rect.Min.Y) {
			set(rect.Min.X, y)
			set(rect.Max.X-1, y)
		}
	}
}

func drawCentered(img *image.RGBA, face font.Face, cx, baseline int, text string, c color.Color) {
	tw := font.MeasureString(face, text).Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(cx-tw/2, baseline),
	}
	d.DrawString(text)
}
