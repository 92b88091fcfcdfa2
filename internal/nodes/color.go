package nodes

import (
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func init() {
	register("color_split", newColorSplit)
	register("color_combine", newColorCombine)
	register("vector_intensity", newVectorIntensity)
	register("intensity_vector", newIntensityVector)
	register("colorize", newColorize)
}

var rgba = [4]string{"R", "G", "B", "A"}

// ColorSplit separates a vector map into its four channels.
type ColorSplit struct {
	node.Base
}

func newColorSplit(env node.Env) node.Node {
	return &ColorSplit{Base: node.NewBase("color_split", env,
		ports(vectorPort("In")),
		ports(intensityPort("R"), intensityPort("G"), intensityPort("B"), intensityPort("A")),
	)}
}

func (n *ColorSplit) Compute() {
	in := n.VectorIn(0)
	if in == nil {
		in = grid.New[mgl64.Vec4](1, 1)
	}
	for i, c := range []grid.Channel{grid.ChannelRed, grid.ChannelGreen, grid.ChannelBlue, grid.ChannelAlpha} {
		n.Publish(i, node.IntensityValue(grid.IntensityFromVector(in, c)))
	}
}

// ColorCombine assembles a vector map from four channel maps. Unconnected
// channels read their constant; the size follows the first connected channel
// in R, G, B, A order, or 1x1 when none is.
type ColorCombine struct {
	node.Base
}

func newColorCombine(env node.Env) node.Node {
	specs := make([]core.ParamSpec, len(rgba))
	in := make([]node.Port, len(rgba))
	for i, c := range rgba {
		specs[i] = core.FloatSpec(strings.ToLower(c), c, 1, 0, 1, 0.05)
		in[i] = intensityPort(c)
	}
	return &ColorCombine{Base: node.NewBase("color_combine", env, in, ports(vectorPort("Out")), specs...)}
}

func (n *ColorCombine) Compute() {
	var chans [4]*grid.Intensity
	var consts [4]float64
	w, h := 1, 1
	sized := false
	for i, c := range rgba {
		chans[i] = n.IntensityIn(i)
		consts[i] = n.Params().Float(strings.ToLower(c))
		if chans[i] != nil && !sized {
			w, h = chans[i].W, chans[i].H
			sized = true
		}
	}
	out := grid.New[mgl64.Vec4](w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v mgl64.Vec4
			for i := range v {
				if chans[i] != nil {
					v[i] = chans[i].At(x, y)
				} else {
					v[i] = consts[i]
				}
			}
			out.Set(x, y, v)
		}
	}
	n.Publish(0, node.VectorValue(out))
}

// VectorIntensity collapses a vector map to one channel.
type VectorIntensity struct {
	node.Base
}

func newVectorIntensity(env node.Env) node.Node {
	return &VectorIntensity{Base: node.NewBase("vector_intensity", env,
		ports(vectorPort("In")),
		ports(intensityPort("Out")),
		core.EnumSpec("channel", "Channel", grid.ChannelAverage.String(), grid.ChannelNames()...),
	)}
}

func (n *VectorIntensity) Compute() {
	in := n.VectorIn(0)
	if in == nil {
		n.Publish(0, node.IntensityValue(one()))
		return
	}
	c, _ := grid.ParseChannel(n.Params().Text("channel"))
	n.Publish(0, node.IntensityValue(grid.IntensityFromVector(in, c)))
}

// IntensityVector lifts an intensity map into a vector map using a color and
// a blend mode.
type IntensityVector struct {
	node.Base
}

func newIntensityVector(env node.Env) node.Node {
	return &IntensityVector{Base: node.NewBase("intensity_vector", env,
		ports(intensityPort("In")),
		ports(vectorPort("Out")),
		core.VectorSpec("color", "Color", mgl64.Vec4{1, 1, 1, 1}),
		core.EnumSpec("mode", "Mode", grid.ModeApply.String(), grid.ColorModeNames()...),
	)}
}

func (n *IntensityVector) Compute() {
	in := n.IntensityIn(0)
	if in == nil {
		in = one()
	}
	mode, _ := grid.ParseColorMode(n.Params().Text("mode"))
	n.Publish(0, node.VectorValue(grid.VectorFromIntensity(in, n.Params().Vector("color"), mode)))
}

// Colorize maps intensities onto a gradient between two colors, blended in
// CIE L*a*b* space.
type Colorize struct {
	node.Base
}

func newColorize(env node.Env) node.Node {
	return &Colorize{Base: node.NewBase("colorize", env,
		ports(intensityPort("In")),
		ports(vectorPort("Out")),
		core.VectorSpec("low", "Low", mgl64.Vec4{0.11, 0.16, 0.09, 1}),
		core.VectorSpec("high", "High", mgl64.Vec4{0.93, 0.91, 0.86, 1}),
	)}
}

func toColorful(v mgl64.Vec4) colorful.Color { return colorful.Color{R: v[0], G: v[1], B: v[2]} }

// Gradient blends low to high at t in Lab space; alpha is interpolated
// linearly.
func Gradient(low, high mgl64.Vec4, t float64) mgl64.Vec4 {
	t = min(max(t, 0), 1)
	c := toColorful(low).BlendLab(toColorful(high), t).Clamped()
	return mgl64.Vec4{c.R, c.G, c.B, low[3] + (high[3]-low[3])*t}
}

func (n *Colorize) Compute() {
	in := n.IntensityIn(0)
	if in == nil {
		in = one()
	}
	low, high := n.Params().Vector("low"), n.Params().Vector("high")
	n.Publish(0, node.VectorValue(grid.Map(in, func(v float64) mgl64.Vec4 { return Gradient(low, high, v) })))
}
