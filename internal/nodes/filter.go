package nodes

import (
	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func init() {
	register("invert", newInvert)
	register("smooth", newSmooth)
	register("normalize", newNormalize)
	register("curve", newCurve)
}

// Invert maps v to 1-v.
type Invert struct {
	node.Base
}

func newInvert(env node.Env) node.Node {
	return &Invert{Base: node.NewBase("invert", env, ports(intensityPort("In")), ports(intensityPort("Out")))}
}

func (n *Invert) Compute() {
	in := n.IntensityIn(0)
	if in == nil {
		in = one()
	}
	n.Publish(0, node.IntensityValue(grid.TransformLeft(1.0, in, grid.OpSubtract.Scalar)))
}

// Smooth blurs a map with a 3x3 kernel whose centre dominates as strength
// grows.
type Smooth struct {
	node.Base
}

func newSmooth(env node.Env) node.Node {
	return &Smooth{Base: node.NewBase("smooth", env,
		ports(intensityPort("In")),
		ports(intensityPort("Out")),
		core.IntSpec("iterations", "Iterations", 1, 0, 64),
		core.FloatSpec("strength", "Strength", 1, 0, 100, 0.5),
	)}
}

func (n *Smooth) Compute() {
	in := n.IntensityIn(0)
	if in == nil {
		in = one()
	}
	k := grid.SmoothKernel(n.Params().Float("strength"))
	out := in.Clone()
	for i := 0; i < n.Params().Int("iterations"); i++ {
		out = k.Smooth(out)
	}
	n.Publish(0, node.IntensityValue(out))
}

// Normalize scales every vector to unit length.
type Normalize struct {
	node.Base
}

func newNormalize(env node.Env) node.Node {
	return &Normalize{Base: node.NewBase("normalize", env, ports(vectorPort("In")), ports(vectorPort("Out")))}
}

func (n *Normalize) Compute() {
	in := n.VectorIn(0)
	if in == nil {
		in = grid.NewFilled(1, 1, mgl64.Vec4{0, 0, 0, 1})
	}
	n.Publish(0, node.VectorValue(grid.Map(in, grid.Normalize)))
}

// Curve remaps intensities through a cubic bezier running from (0,0) to
// (1,1) with two movable control points.
type Curve struct {
	node.Base
}

func newCurve(env node.Env) node.Node {
	return &Curve{Base: node.NewBase("curve", env,
		ports(intensityPort("In")),
		ports(intensityPort("Out")),
		core.FloatSpec("p1x", "P1 x", 0.25, 0, 1, 0.05),
		core.FloatSpec("p1y", "P1 y", 0.25, -1, 2, 0.05),
		core.FloatSpec("p2x", "P2 x", 0.75, 0, 1, 0.05),
		core.FloatSpec("p2y", "P2 y", 0.75, -1, 2, 0.05),
	)}
}

// Bezier is a cubic curve anchored at (0,0) and (1,1).
type Bezier struct {
	P1, P2 mgl64.Vec2
}

func cubic(a, b, t float64) float64 {
	u := 1 - t
	return 3*u*u*t*a + 3*u*t*t*b + t*t*t
}

// ValueAt returns the curve's y for the given x in [0,1]. x is clamped; the
// x component is inverted by bisection, which assumes control x values in
// [0,1] so that x(t) is monotonic.
func (b Bezier) ValueAt(x float64) float64 {
	x = min(max(x, 0), 1)
	lo, hi := 0.0, 1.0
	for i := 0; i < 48; i++ {
		mid := (lo + hi) / 2
		if cubic(b.P1[0], b.P2[0], mid) < x {
			lo = mid
		} else {
			hi = mid
		}
	}
	return cubic(b.P1[1], b.P2[1], (lo+hi)/2)
}

func (n *Curve) Compute() {
	in := n.IntensityIn(0)
	if in == nil {
		in = one()
	}
	p := n.Params()
	b := Bezier{P1: mgl64.Vec2{p.Float("p1x"), p.Float("p1y")}, P2: mgl64.Vec2{p.Float("p2x"), p.Float("p2y")}}
	n.Publish(0, node.IntensityValue(grid.Map(in, b.ValueAt)))
}
