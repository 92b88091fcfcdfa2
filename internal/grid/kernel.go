package grid

// Kernel3 is a symmetric 3x3 smoothing kernel described by its corner, edge
// and center weights.
type Kernel3 struct {
	Corner, Edge, Center float64
}

// SmoothKernel returns the kernel used by the smoothing node for strength v.
func SmoothKernel(v float64) Kernel3 {
	edge := v + 3
	return Kernel3{Corner: v, Edge: edge, Center: edge * 5}
}

// At returns the weighted average of the 3x3 neighborhood of (x, y).
// Neighbors outside the grid read as zero and their weight is dropped from
// the divisor: a border row or column removes Edge+2*Corner, and a corner
// cell adds one Corner back because it was removed twice.
func (k Kernel3) At(m *Intensity, x, y int) float64 {
	sum := k.Center*m.At(x, y) +
		k.Edge*(m.At(x-1, y)+m.At(x+1, y)+m.At(x, y-1)+m.At(x, y+1)) +
		k.Corner*(m.At(x-1, y-1)+m.At(x+1, y-1)+m.At(x-1, y+1)+m.At(x+1, y+1))

	div := k.Center + 4*k.Edge + 4*k.Corner
	line := k.Edge + 2*k.Corner
	xEdge := x <= 0 || x >= m.W-1
	yEdge := y <= 0 || y >= m.H-1
	if xEdge {
		div -= line
	}
	if yEdge {
		div -= line
	}
	if xEdge && yEdge {
		div += k.Corner
	}
	if div == 0 {
		return m.At(x, y)
	}
	return sum / div
}

// Smooth applies the kernel to every cell and returns a new grid.
func (k Kernel3) Smooth(m *Intensity) *Intensity {
	if m == nil {
		return New[float64](0, 0)
	}
	out := New[float64](m.W, m.H)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			out.values[out.Index(x, y)] = k.At(m, x, y)
		}
	}
	return out
}
