package nodes

import (
	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func init() {
	register("constant_value", newConstantValue)
	register("constant_vector", newConstantVector)
}

// ConstantValue fills the generation resolution with one intensity.
type ConstantValue struct {
	node.Base
}

func newConstantValue(env node.Env) node.Node {
	return &ConstantValue{Base: node.NewBase("constant_value", env, nil,
		ports(intensityPort("Out")),
		core.UnboundedFloatSpec("value", "Value", 0, 0.05),
	)}
}

func (n *ConstantValue) UsesResolution() bool { return true }

func (n *ConstantValue) Compute() {
	res := n.Resolution()
	n.Publish(0, node.IntensityValue(grid.NewFilled(res, res, n.Params().Float("value"))))
}

// ConstantVector fills the generation resolution with one vector.
type ConstantVector struct {
	node.Base
}

func newConstantVector(env node.Env) node.Node {
	return &ConstantVector{Base: node.NewBase("constant_vector", env, nil,
		ports(vectorPort("Out")),
		core.VectorSpec("value", "Value", mgl64.Vec4{}),
	)}
}

func (n *ConstantVector) UsesResolution() bool { return true }

func (n *ConstantVector) Compute() {
	res := n.Resolution()
	n.Publish(0, node.VectorValue(grid.NewFilled(res, res, n.Params().Vector("value"))))
}
