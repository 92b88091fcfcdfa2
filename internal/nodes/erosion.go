package nodes

import (
	"context"
	"time"

	"terragraph/internal/core"
	"terragraph/internal/erosion"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func init() { register("erosion", newErosion) }

// Erosion runs the droplet simulation over its input height. It passes the
// input through untouched until triggered, or on every recompute when
// auto_run is set. A finished run is held across parameter edits until the
// input height changes or the node is triggered again. Outputs are the
// eroded height, deposited sediment and removed material.
type Erosion struct {
	node.Base
	triggered bool
	state     erosion.State
	lastIn    *grid.Intensity
	held      *erosion.Result
}

func newErosion(env node.Env) node.Node {
	d := erosion.DefaultParams()
	return &Erosion{Base: node.NewBase("erosion", env,
		ports(intensityPort("Height")),
		ports(intensityPort("Height"), intensityPort("Sediment"), intensityPort("Erosion")),
		core.IntSpec("iterations", "Iterations", d.Iterations, 0, 5000000),
		core.IntSpec("max_drop_life", "Drop life", d.MaxDropLife, 1, 1000),
		core.FloatSpec("inertia", "Inertia", d.Inertia, 0, 1, 0.01),
		core.FloatSpec("capacity_factor", "Capacity", d.CapacityFactor, 0, 64, 0.5),
		core.FloatSpec("min_capacity", "Min capacity", d.MinCapacity, 0, 1, 0.005),
		core.FloatSpec("deposit_speed", "Deposit speed", d.DepositSpeed, 0, 1, 0.05),
		core.FloatSpec("erosion_speed", "Erosion speed", d.ErosionSpeed, 0, 1, 0.05),
		core.FloatSpec("evaporation", "Evaporation", d.Evaporation, 0, 1, 0.005),
		core.FloatSpec("gravity", "Gravity", d.Gravity, 0, 64, 0.5),
		core.IntSpec("erosion_radius", "Radius", d.Radius, 1, 16),
		core.IntSpec("seed", "Seed", int(d.Seed), 0, 1<<30),
		core.BoolSpec("auto_run", "Auto run", false),
	)}
}

// Trigger requests a simulation run on the next Compute.
func (n *Erosion) Trigger() { n.triggered = true }

// State reports whether the last Compute passed through or eroded.
func (n *Erosion) State() erosion.State { return n.state }

// SimParams maps the node parameters onto the simulation.
func (n *Erosion) SimParams() erosion.Params {
	p := n.Params()
	return erosion.Params{
		Iterations:     p.Int("iterations"),
		MaxDropLife:    p.Int("max_drop_life"),
		Inertia:        p.Float("inertia"),
		CapacityFactor: p.Float("capacity_factor"),
		MinCapacity:    p.Float("min_capacity"),
		DepositSpeed:   p.Float("deposit_speed"),
		ErosionSpeed:   p.Float("erosion_speed"),
		Evaporation:    p.Float("evaporation"),
		Gravity:        p.Float("gravity"),
		Radius:         p.Int("erosion_radius"),
		Seed:           int64(p.Int("seed")),
	}
}

func (n *Erosion) Compute() {
	bound := n.IntensityIn(0)
	fresh := bound != n.lastIn
	n.lastIn = bound
	in := bound
	if in == nil {
		in = one()
	}
	run := n.triggered || n.Params().Bool("auto_run")
	n.triggered = false
	if !run {
		if n.held != nil && !fresh {
			n.publish(n.held.Height, n.held.Sediment, n.held.Erosion)
			return
		}
		n.passThrough(in)
		return
	}

	sp := n.SimParams()
	start := time.Now()
	res, err := erosion.Erode(context.Background(), in, sp)
	if err != nil {
		core.Logger().Warn("erosion aborted", "err", err)
		n.passThrough(in)
		return
	}
	n.state = erosion.Done
	n.held = &res
	core.Logger().Info("erosion finished", "iterations", sp.Iterations, "w", in.W, "h", in.H, "elapsed", time.Since(start))
	n.publish(res.Height, res.Sediment, res.Erosion)
}

func (n *Erosion) passThrough(in *grid.Intensity) {
	n.state = erosion.Idle
	n.held = nil
	n.publish(in, grid.New[float64](in.W, in.H), grid.New[float64](in.W, in.H))
}

func (n *Erosion) publish(height, sediment, eroded *grid.Intensity) {
	n.Publish(0, node.IntensityValue(height))
	n.Publish(1, node.IntensityValue(sediment))
	n.Publish(2, node.IntensityValue(eroded))
}
