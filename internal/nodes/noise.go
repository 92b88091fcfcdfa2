package nodes

import (
	"context"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"

	"terragraph/internal/core"
	"terragraph/internal/grid"
	"terragraph/internal/node"
	"terragraph/internal/worker"
)

func init() { register("noise", newNoise) }

// NoiseConfig describes a fractal noise field. Frequency counts base cycles
// across the map; the offset shifts the field in those same units.
type NoiseConfig struct {
	Basis       string
	Seed        int64
	Octaves     int
	Frequency   float64
	Persistence float64
	Lacunarity  float64
	Offset      mgl64.Vec2
}

// Sampler returns a 2-D noise function in roughly [-1,1] for the basis.
func (c NoiseConfig) Sampler() func(x, y float64) float64 {
	if c.Basis == "perlin" {
		p := perlin.NewPerlin(2, 2, 1, c.Seed)
		return p.Noise2D
	}
	return opensimplex.New(c.Seed).Eval2
}

// GenerateNoise fills a w*h grid with fractal noise remapped to [0,1]. ctx is
// checked once per row.
func GenerateNoise(ctx context.Context, c NoiseConfig, w, h int, progress func(int)) (*grid.Intensity, error) {
	sample := c.Sampler()
	out := grid.New[float64](w, h)
	octaves := max(c.Octaves, 1)
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			nx := float64(x)/float64(w)*c.Frequency + c.Offset[0]
			ny := float64(y)/float64(h)*c.Frequency + c.Offset[1]
			var sum, norm float64
			amp, freq := 1.0, 1.0
			for o := 0; o < octaves; o++ {
				sum += amp * sample(nx*freq, ny*freq)
				norm += amp
				amp *= c.Persistence
				freq *= c.Lacunarity
			}
			v := 0.0
			if norm != 0 {
				v = sum / norm
			}
			out.Set(x, y, min(max((v+1)/2, 0), 1))
		}
		if progress != nil {
			progress((y + 1) * 100 / h)
		}
	}
	return out, nil
}

// Noise produces a fractal noise height map in the background. Until the
// first job completes its output is a 1x1 grid at mid height.
type Noise struct {
	node.Base
	pending *NoiseConfig
}

func newNoise(env node.Env) node.Node {
	n := &Noise{Base: node.NewBase("noise", env, nil,
		ports(intensityPort("Out")),
		core.EnumSpec("basis", "Basis", "simplex", "simplex", "perlin"),
		core.IntSpec("seed", "Seed", 1, 0, 1<<30),
		core.IntSpec("octaves", "Octaves", 6, 1, 12),
		core.FloatSpec("frequency", "Frequency", 2.5, 0.1, 64, 0.1),
		core.FloatSpec("persistence", "Persistence", 0.5, 0, 1, 0.05),
		core.FloatSpec("lacunarity", "Lacunarity", 1.99, 1, 4, 0.01),
		core.VectorSpec("offset", "Offset", mgl64.Vec4{}),
	)}
	n.Publish(0, node.IntensityValue(grid.NewFilled(1, 1, 0.5)))
	return n
}

func (n *Noise) UsesResolution() bool { return true }

// Config captures the current parameters.
func (n *Noise) Config() NoiseConfig {
	p := n.Params()
	off := p.Vector("offset")
	return NoiseConfig{
		Basis:       p.Text("basis"),
		Seed:        int64(p.Int("seed")),
		Octaves:     p.Int("octaves"),
		Frequency:   p.Float("frequency"),
		Persistence: p.Float("persistence"),
		Lacunarity:  p.Float("lacunarity"),
		Offset:      mgl64.Vec2{off[0], off[1]},
	}
}

// Compute records the parameters for the next background job; the current
// output stays in place until Finish.
func (n *Noise) Compute() {
	c := n.Config()
	n.pending = &c
}

func (n *Noise) Job() (worker.Job, bool) {
	if n.pending == nil {
		return nil, false
	}
	c := *n.pending
	n.pending = nil
	res := n.Resolution()
	return func(ctx context.Context, progress func(int)) (any, error) {
		return GenerateNoise(ctx, c, res, res, progress)
	}, true
}

func (n *Noise) Finish(result any) {
	if m, ok := result.(*grid.Intensity); ok && m != nil {
		n.Publish(0, node.IntensityValue(m))
	}
}
