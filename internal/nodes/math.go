package nodes

import (
	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func init() {
	register("math", newMath)
	register("vector_math", newVectorMath)
	register("dot", newDot)
}

func opNames(ops []grid.Op) []string {
	names := make([]string, len(ops))
	for i, o := range ops {
		names[i] = o.String()
	}
	return names
}

// Math combines two intensity maps element-wise. An unconnected port reads
// its constant; with both unconnected the output fills the generation
// resolution.
type Math struct {
	node.Base
}

func newMath(env node.Env) node.Node {
	return &Math{Base: node.NewBase("math", env,
		ports(intensityPort("A"), intensityPort("B")),
		ports(intensityPort("Out")),
		core.UnboundedFloatSpec("val1", "Value A", 1, 0.05),
		core.UnboundedFloatSpec("val2", "Value B", 1, 0.05),
		core.EnumSpec("mode", "Mode", grid.OpMix.String(), opNames(grid.ScalarOps)...),
	)}
}

// UsesResolution reports whether the output is a constant fill.
func (n *Math) UsesResolution() bool { return !n.Connected(0) && !n.Connected(1) }

func (n *Math) Compute() {
	op, _ := grid.ParseOp(n.Params().Text("mode"))
	res := n.Resolution()
	p := n.Params()
	out := dispatch(n.IntensityIn(0), n.IntensityIn(1), p.Float("val1"), p.Float("val2"), res, res, op.Scalar)
	n.Publish(0, node.IntensityValue(out))
}

// VectorMath is Math over vector maps, including cross and normalize.
type VectorMath struct {
	node.Base
}

func newVectorMath(env node.Env) node.Node {
	ones := mgl64.Vec4{1, 1, 1, 1}
	return &VectorMath{Base: node.NewBase("vector_math", env,
		ports(vectorPort("A"), vectorPort("B")),
		ports(vectorPort("Out")),
		core.VectorSpec("val1", "Value A", ones),
		core.VectorSpec("val2", "Value B", ones),
		core.EnumSpec("mode", "Mode", grid.OpAdd.String(), opNames(grid.VectorOps)...),
	)}
}

func (n *VectorMath) UsesResolution() bool { return !n.Connected(0) && !n.Connected(1) }

func (n *VectorMath) Compute() {
	op, _ := grid.ParseOp(n.Params().Text("mode"))
	res := n.Resolution()
	p := n.Params()
	out := dispatch(n.VectorIn(0), n.VectorIn(1), p.Vector("val1"), p.Vector("val2"), res, res, op.Vector)
	n.Publish(0, node.VectorValue(out))
}

// Dot reduces two vector maps to the dot product of their xyz components.
// Its size follows the first connected input; constants alone give 1x1.
type Dot struct {
	node.Base
}

func newDot(env node.Env) node.Node {
	ones := mgl64.Vec4{1, 1, 1, 1}
	return &Dot{Base: node.NewBase("dot", env,
		ports(vectorPort("A"), vectorPort("B")),
		ports(intensityPort("Out")),
		core.VectorSpec("val1", "Value A", ones),
		core.VectorSpec("val2", "Value B", ones),
	)}
}

func dot3(a, b mgl64.Vec4) mgl64.Vec4 {
	d := a.Vec3().Dot(b.Vec3())
	return mgl64.Vec4{d, d, d, d}
}

func (n *Dot) Compute() {
	p := n.Params()
	v := dispatch(n.VectorIn(0), n.VectorIn(1), p.Vector("val1"), p.Vector("val2"), 1, 1, dot3)
	n.Publish(0, node.IntensityValue(grid.IntensityFromVector(v, grid.ChannelRed)))
}
