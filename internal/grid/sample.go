package grid

import "math"

// Bilinear samples m at the continuous position (x, y) by blending the four
// surrounding cells. Coordinates are clamped to [0, W-1]x[0, H-1].
func Bilinear(m *Intensity, x, y float64) float64 {
	if m.Empty() {
		return 0
	}
	x = clampf(x, 0, float64(m.W-1))
	y = clampf(y, 0, float64(m.H-1))
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := min(x0+1, m.W-1)
	y1 := min(y0+1, m.H-1)
	u := x - float64(x0)
	v := y - float64(y0)

	top := m.At(x0, y0)*(1-u) + m.At(x1, y0)*u
	bottom := m.At(x0, y1)*(1-u) + m.At(x1, y1)*u
	return top*(1-v) + bottom*v
}

// ClampedAt reads m at (x, y) with coordinates clamped to the nearest valid
// row and column instead of returning zero.
func ClampedAt(m *Intensity, x, y int) float64 {
	if m.Empty() {
		return 0
	}
	x = min(max(x, 0), m.W-1)
	y = min(max(y, 0), m.H-1)
	return m.At(x, y)
}

// Scaled resamples m to w*h with bilinear interpolation.
func Scaled(m *Intensity, w, h int) *Intensity {
	out := New[float64](w, h)
	if m.Empty() || out.Empty() {
		return out
	}
	sx := float64(m.W) / float64(w)
	sy := float64(m.H) / float64(h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			fy := (float64(y)+0.5)*sy - 0.5
			out.values[out.Index(x, y)] = Bilinear(m, fx, fy)
		}
	}
	return out
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
