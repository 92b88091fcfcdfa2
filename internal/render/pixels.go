package render

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/grid"
)

// Palette maps a normalized intensity to a display color.
type Palette func(t float64) color.RGBA

// Grayscale renders intensities as shades of gray.
func Grayscale(t float64) color.RGBA {
	v := unit8(t)
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

var elevationStops = []struct {
	t   float64
	col color.RGBA
}{
	{0.0, color.RGBA{R: 40, G: 60, B: 120, A: 255}},
	{0.25, color.RGBA{R: 70, G: 105, B: 160, A: 255}},
	{0.5, color.RGBA{R: 90, G: 150, B: 100, A: 255}},
	{0.75, color.RGBA{R: 190, G: 160, B: 80, A: 255}},
	{1.0, color.RGBA{R: 240, G: 235, B: 215, A: 255}},
}

// Elevation renders intensities on a water to snow gradient.
func Elevation(t float64) color.RGBA {
	t = clamp01(t)
	for i := 1; i < len(elevationStops); i++ {
		curr := elevationStops[i]
		if t <= curr.t {
			prev := elevationStops[i-1]
			span := curr.t - prev.t
			var local float64
			if span > 0 {
				local = (t - prev.t) / span
			}
			return lerpRGBA(prev.col, curr.col, clamp01(local))
		}
	}
	return elevationStops[len(elevationStops)-1].col
}

// FillIntensityRGBA converts m into RGBA pixels in buf using palette. buf
// must hold 4*W*H bytes.
func FillIntensityRGBA(buf []byte, m *grid.Intensity, palette Palette) {
	if palette == nil {
		palette = Grayscale
	}
	for i, v := range m.Values() {
		base := i * 4
		if base+3 >= len(buf) {
			return
		}
		col := palette(v)
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}

// FillVectorRGBA converts v into RGBA pixels in buf, one component per
// channel. When opaque is set alpha is forced to 255 so that normal maps
// stay visible.
func FillVectorRGBA(buf []byte, v *grid.Vector, opaque bool) {
	for i, c := range v.Values() {
		base := i * 4
		if base+3 >= len(buf) {
			return
		}
		buf[base+0] = unit8(c[0])
		buf[base+1] = unit8(c[1])
		buf[base+2] = unit8(c[2])
		buf[base+3] = unit8(c[3])
		if opaque {
			buf[base+3] = 255
		}
	}
}

// IntensityPixels allocates and fills an RGBA buffer for m.
func IntensityPixels(m *grid.Intensity, palette Palette) []byte {
	if m.Empty() {
		return nil
	}
	buf := make([]byte, 4*m.W*m.H)
	FillIntensityRGBA(buf, m, palette)
	return buf
}

// VectorPixels allocates and fills an RGBA buffer for v.
func VectorPixels(v *grid.Vector, opaque bool) []byte {
	if v.Empty() {
		return nil
	}
	buf := make([]byte, 4*v.W*v.H)
	FillVectorRGBA(buf, v, opaque)
	return buf
}

// light is the unit direction light falls from, upper left and above.
var light = mgl64.Vec3{-1, -1, 1.5}.Normalize()

// Shade darkens an elevation color by the light falling on a normal-map
// cell, lit from the upper left.
func Shade(col color.RGBA, n mgl64.Vec4) color.RGBA {
	normal := mgl64.Vec3{n[0]*2 - 1, n[1]*2 - 1, n[2]*2 - 1}
	k := 0.35 + 0.65*clamp01(normal.Dot(light))
	return color.RGBA{
		R: uint8(math.Round(float64(col.R) * k)),
		G: uint8(math.Round(float64(col.G) * k)),
		B: uint8(math.Round(float64(col.B) * k)),
		A: col.A,
	}
}

func lerpRGBA(a, b color.RGBA, t float64) color.RGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}

func unit8(v float64) uint8 { return uint8(math.Round(clamp01(v) * 255)) }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
