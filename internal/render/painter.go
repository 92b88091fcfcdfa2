//go:build ebiten

package render

import (
	"github.com/hajimehoshi/ebiten/v2"

	"terragraph/internal/grid"
)

// GridPainter keeps one RGBA image in sync with a grid and draws it scaled.
type GridPainter struct {
	w, h int
	img  *ebiten.Image
	buf  []byte
}

// NewGridPainter allocates a painter for a grid of size w*h.
func NewGridPainter(w, h int) *GridPainter {
	gp := &GridPainter{}
	gp.resize(w, h)
	return gp
}

func (gp *GridPainter) resize(w, h int) {
	if w == gp.w && h == gp.h && gp.img != nil {
		return
	}
	gp.w, gp.h = max(w, 1), max(h, 1)
	gp.buf = make([]byte, 4*gp.w*gp.h)
	gp.img = ebiten.NewImage(gp.w, gp.h)
}

// SetIntensity uploads m through palette, resizing the image if needed.
func (gp *GridPainter) SetIntensity(m *grid.Intensity, palette Palette) {
	if m.Empty() {
		return
	}
	gp.resize(m.W, m.H)
	FillIntensityRGBA(gp.buf, m, palette)
	gp.img.WritePixels(gp.buf)
}

// SetVector uploads v as RGBA, resizing the image if needed.
func (gp *GridPainter) SetVector(v *grid.Vector, opaque bool) {
	if v.Empty() {
		return
	}
	gp.resize(v.W, v.H)
	FillVectorRGBA(gp.buf, v, opaque)
	gp.img.WritePixels(gp.buf)
}

// Draw paints the current image at (x, y) scaled to fit a side*side square.
func (gp *GridPainter) Draw(dst *ebiten.Image, x, y, side int) {
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(side)/float64(gp.w), float64(side)/float64(gp.h))
	op.GeoM.Translate(float64(x), float64(y))
	dst.DrawImage(gp.img, op)
}

// Size returns the dimensions of the underlying image.
func (gp *GridPainter) Size() (int, int) { return gp.w, gp.h }
