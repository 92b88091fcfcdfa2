package nodes

import (
	"context"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
	"terragraph/internal/normal"
	"terragraph/internal/worker"
)

func init() { register("output", newOutput) }

// Terminal is implemented by sink nodes that expose a finished height map
// and its normals.
type Terminal interface {
	Height() *grid.Intensity
	Normal() *grid.Vector
}

// Output is the graph's sink. It keeps the height it receives and derives
// the normal map in the background.
type Output struct {
	node.Base
	height  *grid.Intensity
	normal  *grid.Vector
	pending bool
}

func newOutput(env node.Env) node.Node {
	return &Output{Base: node.NewBase("output", env,
		ports(intensityPort("Height")),
		nil,
		core.FloatSpec("strength", "Normal strength", normal.DefaultStrength, 0, 200, 1),
	)}
}

func (n *Output) Compute() {
	in := n.IntensityIn(0)
	if in == nil {
		in = grid.New[float64](1, 1)
	}
	n.height = in
	n.pending = true
}

func (n *Output) Job() (worker.Job, bool) {
	if !n.pending {
		return nil, false
	}
	n.pending = false
	height, strength := n.height, n.Params().Float("strength")
	return func(ctx context.Context, progress func(int)) (any, error) {
		return normal.Generate(ctx, height, strength, progress)
	}, true
}

func (n *Output) Finish(result any) {
	if v, ok := result.(*grid.Vector); ok && v != nil {
		n.normal = v
	}
}

// Height returns the most recent height map.
func (n *Output) Height() *grid.Intensity { return n.height }

// Normal returns the normal map of the most recently completed job, which
// may lag Height while a job is running.
func (n *Output) Normal() *grid.Vector { return n.normal }
