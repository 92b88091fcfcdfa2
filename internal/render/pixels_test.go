package render

import (
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/grid"
)

func TestElevationEndpoints(t *testing.T) {
	if got := Elevation(-1); got != elevationStops[0].col {
		t.Fatalf("Elevation(-1) = %v", got)
	}
	if got := Elevation(2); got != elevationStops[len(elevationStops)-1].col {
		t.Fatalf("Elevation(2) = %v", got)
	}
	mid := Elevation(0.125)
	lo, hi := elevationStops[0].col, elevationStops[1].col
	if mid.R <= lo.R || mid.R >= hi.R {
		t.Fatalf("Elevation(0.125).R = %d, expected between %d and %d", mid.R, lo.R, hi.R)
	}
}

func TestFillIntensityRGBA(t *testing.T) {
	m := grid.FromValues(2, 1, []float64{0, 1})
	buf := IntensityPixels(m, nil)
	want := []byte{0, 0, 0, 255, 255, 255, 255, 255}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte %d = %d, expected %d", i, buf[i], want[i])
		}
	}
	if IntensityPixels(nil, nil) != nil {
		t.Fatalf("empty grid should produce no pixels")
	}
}

func TestFillVectorRGBA(t *testing.T) {
	v := grid.NewFilled(1, 1, mgl64.Vec4{0.5, 1, 2, 0})
	buf := VectorPixels(v, false)
	if buf[0] != 128 || buf[1] != 255 || buf[2] != 255 || buf[3] != 0 {
		t.Fatalf("pixels = %v", buf)
	}
	if buf := VectorPixels(v, true); buf[3] != 255 {
		t.Fatalf("opaque alpha = %d", buf[3])
	}
}

func TestShadeFlatNormal(t *testing.T) {
	col := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	lit := Shade(col, mgl64.Vec4{0.5, 0.5, 1, 1})
	if lit.R >= col.R || lit.R == 0 || lit.A != 255 {
		t.Fatalf("shaded flat color = %v", lit)
	}
}
