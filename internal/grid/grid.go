// Package grid holds the two payload containers that travel along graph edges:
// single-channel Intensity grids and four-channel Vector grids.
package grid

import "github.com/go-gl/mathgl/mgl64"

// Cell enumerates the value kinds a Grid may store.
type Cell interface {
	float64 | mgl64.Vec4
}

// Grid stores a 2D grid of cells in row-major order.
//
// Reads outside [0,W)x[0,H) yield the zero cell and writes outside it are
// rejected, so callers never need to bounds-check before sampling.
type Grid[T Cell] struct {
	W, H   int
	values []T
}

// Intensity is a single-channel grid, conventionally in [0,1].
type Intensity = Grid[float64]

// Vector is a four-channel grid used for color and normal data.
type Vector = Grid[mgl64.Vec4]

// New allocates a zero-filled grid. Negative dimensions are treated as zero.
func New[T Cell](w, h int) *Grid[T] {
	w, h = clampDims(w, h)
	return &Grid[T]{W: w, H: h, values: make([]T, w*h)}
}

// NewFilled allocates a grid with every cell set to v.
func NewFilled[T Cell](w, h int, v T) *Grid[T] {
	g := New[T](w, h)
	g.Fill(v)
	return g
}

// NewEmpty allocates a grid with capacity w*h and no values; cells are added
// with Append.
func NewEmpty[T Cell](w, h int) *Grid[T] {
	w, h = clampDims(w, h)
	return &Grid[T]{W: w, H: h, values: make([]T, 0, w*h)}
}

// FromValues copies values into a new w*h grid. Missing cells stay zero and
// extra values are dropped.
func FromValues[T Cell](w, h int, values []T) *Grid[T] {
	g := New[T](w, h)
	copy(g.values, values)
	return g
}

func clampDims(w, h int) (int, int) {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return w, h
}

// Index returns the linear slice index for coordinates (x, y).
func (g *Grid[T]) Index(x, y int) int { return y*g.W + x }

// InBounds reports whether (x, y) addresses a cell of the grid.
func (g *Grid[T]) InBounds(x, y int) bool {
	return g != nil && x >= 0 && y >= 0 && x < g.W && y < g.H
}

// At returns the cell at (x, y), or the zero cell when the coordinates are out
// of range or the cell has not been appended yet.
func (g *Grid[T]) At(x, y int) T {
	var zero T
	if !g.InBounds(x, y) {
		return zero
	}
	i := g.Index(x, y)
	if i >= len(g.values) {
		return zero
	}
	return g.values[i]
}

// Set writes v at (x, y) and reports whether the write happened.
func (g *Grid[T]) Set(x, y int, v T) bool {
	if !g.InBounds(x, y) {
		return false
	}
	i := g.Index(x, y)
	if i >= len(g.values) {
		return false
	}
	g.values[i] = v
	return true
}

// Append adds the next cell in row-major order. It reports false once the
// grid already holds W*H values.
func (g *Grid[T]) Append(v T) bool {
	if g == nil || len(g.values) >= g.W*g.H {
		return false
	}
	g.values = append(g.values, v)
	return true
}

// Values exposes the backing slice so callers can read/write cells directly.
func (g *Grid[T]) Values() []T {
	if g == nil {
		return nil
	}
	return g.values
}

// Len returns the number of cells currently stored.
func (g *Grid[T]) Len() int {
	if g == nil {
		return 0
	}
	return len(g.values)
}

// Complete reports whether every cell has been populated.
func (g *Grid[T]) Complete() bool {
	return g != nil && len(g.values) == g.W*g.H
}

// Empty reports whether the grid has no addressable cells.
func (g *Grid[T]) Empty() bool {
	return g == nil || g.W == 0 || g.H == 0
}

// Fill sets every cell to v, completing a partially appended grid.
func (g *Grid[T]) Fill(v T) {
	if g == nil {
		return
	}
	g.values = g.values[:cap(g.values)]
	for i := range g.values {
		g.values[i] = v
	}
}

// Clone returns a deep copy of the grid.
func (g *Grid[T]) Clone() *Grid[T] {
	if g == nil {
		return nil
	}
	out := &Grid[T]{W: g.W, H: g.H, values: make([]T, len(g.values), g.W*g.H)}
	copy(out.values, g.values)
	return out
}

// Equal reports whether both grids have the same dimensions and cells.
func (g *Grid[T]) Equal(o *Grid[T]) bool {
	if g == nil || o == nil {
		return g == o
	}
	if g.W != o.W || g.H != o.H || len(g.values) != len(o.values) {
		return false
	}
	for i := range g.values {
		if g.values[i] != o.values[i] {
			return false
		}
	}
	return true
}
