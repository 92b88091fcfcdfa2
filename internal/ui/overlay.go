//go:build ebiten

package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"
)

// Overlay draws a progress bar per running background job and a key hint
// line along the bottom of the view.
type Overlay struct {
	progress *Progress
	showHelp bool
	pixel    *ebiten.Image
}

// NewOverlay constructs an overlay reading from progress.
func NewOverlay(progress *Progress) *Overlay {
	o := &Overlay{progress: progress, showHelp: true}
	o.pixel = ebiten.NewImage(1, 1)
	o.pixel.Fill(color.White)
	return o
}

// Update toggles the key hints.
func (o *Overlay) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		o.showHelp = !o.showHelp
	}
}

// Draw renders the overlay into a w*h region of screen.
func (o *Overlay) Draw(screen *ebiten.Image, w, h int) {
	face := basicfont.Face7x13
	y := 8
	for _, job := range o.progress.Jobs() {
		o.fill(screen, 8, y, 160, 14, color.RGBA{R: 20, G: 20, B: 24, A: 200})
		o.fill(screen, 8, y, 160*job.Percent/100, 14, color.RGBA{R: 90, G: 150, B: 100, A: 230})
		text.Draw(screen, fmt.Sprintf("%s %d%%", job.Kind, job.Percent), face, 12, y+11, color.White)
		y += 18
	}
	if o.showHelp {
		hint := "tab: node  space: erode  r: render mode  l: light  s: reseed  h: help  q: quit"
		text.Draw(screen, hint, face, 8, h-8, color.RGBA{R: 220, G: 220, B: 230, A: 255})
	}
}

func (o *Overlay) fill(dst *ebiten.Image, x, y, w, h int, c color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(w), float64(h))
	op.GeoM.Translate(float64(x), float64(y))
	op.ColorScale.ScaleWithColor(c)
	dst.DrawImage(o.pixel, op)
}
