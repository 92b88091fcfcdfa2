package core

// Size describes the dimensions of a grid.
type Size struct {
	W int
	H int
}

// Square returns a Size with equal sides.
func Square(n int) Size { return Size{W: n, H: n} }

// Area returns W*H, or 0 for degenerate sizes.
func (s Size) Area() int {
	if s.W <= 0 || s.H <= 0 {
		return 0
	}
	return s.W * s.H
}
