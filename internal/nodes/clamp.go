package nodes

import (
	"math"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func init() { register("clamp", newClamp) }

// Clamp limits a map to [min, max] per cell, either hard or through a
// logistic curve scaled into the range. Bounds come from the min and max
// ports when connected and from the parameters otherwise.
type Clamp struct {
	node.Base
}

func newClamp(env node.Env) node.Node {
	return &Clamp{Base: node.NewBase("clamp", env,
		ports(intensityPort("Value"), intensityPort("Min"), intensityPort("Max")),
		ports(intensityPort("Out")),
		core.UnboundedFloatSpec("min", "Min", 0, 0.05),
		core.UnboundedFloatSpec("max", "Max", 1, 0.05),
		core.EnumSpec("mode", "Mode", "clamp", "clamp", "sigmoid"),
	)}
}

// Sigmoid returns e^v/(e^v+1) without overflowing for large |v|.
func Sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}

func (n *Clamp) Compute() {
	in := n.IntensityIn(0)
	if in == nil {
		in = one()
	}
	p := n.Params()
	loMap, hiMap := n.IntensityIn(1), n.IntensityIn(2)
	loConst, hiConst := p.Float("min"), p.Float("max")
	sigmoid := p.Text("mode") == "sigmoid"

	out := grid.New[float64](in.W, in.H)
	for y := 0; y < in.H; y++ {
		for x := 0; x < in.W; x++ {
			lo, hi := loConst, hiConst
			if loMap != nil {
				lo = loMap.At(x, y)
			}
			if hiMap != nil {
				hi = hiMap.At(x, y)
			}
			v := in.At(x, y)
			if sigmoid {
				v = Sigmoid(v)*(hi-lo) + lo
			} else {
				v = math.Max(math.Min(v, hi), lo)
			}
			out.Set(x, y, v)
		}
	}
	n.Publish(0, node.IntensityValue(out))
}
