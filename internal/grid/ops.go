package grid

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Op names an element-wise binary function.
type Op int

const (
	OpMix Op = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpMin
	OpMax
	OpPow
	// OpCross and OpNormalize only apply to vectors.
	OpCross
	OpNormalize
)

var opNames = [...]string{
	OpMix:       "mix",
	OpAdd:       "add",
	OpSubtract:  "subtract",
	OpMultiply:  "multiply",
	OpDivide:    "divide",
	OpMin:       "min",
	OpMax:       "max",
	OpPow:       "pow",
	OpCross:     "cross",
	OpNormalize: "normalize",
}

// ScalarOps lists the operations defined on intensities.
var ScalarOps = []Op{OpMix, OpAdd, OpSubtract, OpMultiply, OpDivide, OpMin, OpMax, OpPow}

// VectorOps lists the operations defined on vectors.
var VectorOps = []Op{OpMix, OpAdd, OpSubtract, OpMultiply, OpDivide, OpMin, OpMax, OpPow, OpCross, OpNormalize}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return "unknown"
	}
	return opNames[o]
}

// ParseOp resolves an operation by name.
func ParseOp(name string) (Op, bool) {
	for i, n := range opNames {
		if n == name {
			return Op(i), true
		}
	}
	return 0, false
}

// Scalar applies the operation to two intensities. Division by zero yields 0.
// Vector-only operations yield 0.
func (o Op) Scalar(a, b float64) float64 {
	switch o {
	case OpMix:
		return (a + b) / 2
	case OpAdd:
		return a + b
	case OpSubtract:
		return a - b
	case OpMultiply:
		return a * b
	case OpDivide:
		if b == 0 {
			return 0
		}
		return a / b
	case OpMin:
		return math.Min(a, b)
	case OpMax:
		return math.Max(a, b)
	case OpPow:
		return math.Pow(a, b)
	}
	return 0
}

// Vector applies the operation to two vectors. Arithmetic operations work per
// component; cross treats xyz as a 3-vector and forces w to 1; normalize
// ignores b.
func (o Op) Vector(a, b mgl64.Vec4) mgl64.Vec4 {
	switch o {
	case OpCross:
		c := a.Vec3().Cross(b.Vec3())
		return c.Vec4(1)
	case OpNormalize:
		return Normalize(a)
	}
	return mgl64.Vec4{
		o.Scalar(a[0], b[0]),
		o.Scalar(a[1], b[1]),
		o.Scalar(a[2], b[2]),
		o.Scalar(a[3], b[3]),
	}
}

// Normalize scales v to unit length. The zero vector is returned unchanged.
func Normalize(v mgl64.Vec4) mgl64.Vec4 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}

// Combine applies f to matching cells of a and b. The result has a's
// dimensions; cells missing from b read as zero.
func Combine[T Cell](a, b *Grid[T], f func(T, T) T) *Grid[T] {
	if a == nil {
		var zero T
		return TransformLeft(zero, b, f)
	}
	out := New[T](a.W, a.H)
	for y := 0; y < a.H; y++ {
		for x := 0; x < a.W; x++ {
			i := a.Index(x, y)
			out.values[i] = f(a.At(x, y), b.At(x, y))
		}
	}
	return out
}

// Transform applies f(cell, c) to every cell of a.
func Transform[T Cell](a *Grid[T], c T, f func(T, T) T) *Grid[T] {
	if a == nil {
		return New[T](0, 0)
	}
	out := New[T](a.W, a.H)
	for i, v := range a.values {
		out.values[i] = f(v, c)
	}
	return out
}

// TransformLeft applies f(c, cell) to every cell of b, keeping the constant as
// the left operand.
func TransformLeft[T Cell](c T, b *Grid[T], f func(T, T) T) *Grid[T] {
	if b == nil {
		return New[T](0, 0)
	}
	out := New[T](b.W, b.H)
	for i, v := range b.values {
		out.values[i] = f(c, v)
	}
	return out
}

// Filled combines two constants and broadcasts the result over a w*h grid.
func Filled[T Cell](w, h int, a, b T, f func(T, T) T) *Grid[T] {
	return NewFilled(w, h, f(a, b))
}

// Map converts every cell of a with f.
func Map[T, U Cell](a *Grid[T], f func(T) U) *Grid[U] {
	if a == nil {
		return New[U](0, 0)
	}
	out := New[U](a.W, a.H)
	for i, v := range a.values {
		out.values[i] = f(v)
	}
	return out
}
