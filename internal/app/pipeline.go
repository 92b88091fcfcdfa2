package app

import (
	"context"
	"fmt"
	"strings"

	"terragraph/internal/core"
	"terragraph/internal/graph"
	"terragraph/internal/grid"
	"terragraph/internal/node"
	"terragraph/internal/nodes"
)

// Pipeline is the default terrain graph: noise feeding erosion feeding the
// output, with an optional clamp in front of the output.
type Pipeline struct {
	Engine *graph.Engine
	Env    node.Env

	Noise   graph.ID
	Erosion graph.ID
	Clamp   graph.ID
	Output  graph.ID
}

// NewEnv builds the services shared by every node from cfg.
func NewEnv(cfg Config) node.Env {
	settings := core.NewSettings(cfg.Preview, cfg.Render)
	settings.SetRenderMode(cfg.RenderMode)
	return node.Env{Settings: settings, Textures: core.NewTextureList(), Stencils: core.NewStencilList()}
}

// Build wires the default pipeline. Background jobs start immediately; call
// Settle or Run on the engine to collect them.
func Build(cfg Config) (*Pipeline, error) {
	env := NewEnv(cfg)
	e := graph.New(nodes.NewCatalog(env))
	p := &Pipeline{Engine: e, Env: env}

	kinds := []string{"noise", "erosion", "output"}
	ids := []*graph.ID{&p.Noise, &p.Erosion, &p.Output}
	if cfg.Clamp {
		kinds = []string{"noise", "erosion", "clamp", "output"}
		ids = []*graph.ID{&p.Noise, &p.Erosion, &p.Clamp, &p.Output}
	}
	for i, kind := range kinds {
		id, err := e.AddKind(kind)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("app: build pipeline: %w", err)
		}
		*ids[i] = id
	}

	params := []struct {
		id  graph.ID
		key string
		v   core.ParamValue
	}{
		{p.Noise, "basis", core.EnumValue(cfg.Noise)},
		{p.Noise, "seed", seedValue(cfg.Seed)},
		{p.Erosion, "iterations", core.IntValue(cfg.Iterations)},
		{p.Erosion, "seed", seedValue(cfg.Seed)},
		{p.Erosion, "auto_run", core.BoolValue(cfg.Erode)},
		{p.Output, "strength", core.FloatValue(cfg.Strength)},
	}
	for _, s := range params {
		if err := e.SetParameter(s.id, s.key, s.v); err != nil {
			e.Close()
			return nil, fmt.Errorf("app: build pipeline: %w", err)
		}
	}

	for i := 1; i < len(ids); i++ {
		if _, err := e.Connect(*ids[i-1], 0, *ids[i], 0); err != nil {
			e.Close()
			return nil, fmt.Errorf("app: build pipeline: %w", err)
		}
	}
	return p, nil
}

// seedValue folds a 64-bit seed into the range node seed parameters accept.
func seedValue(seed int64) core.ParamValue { return core.IntValue(int(seed & (1<<30 - 1))) }

// Terminal returns the output node.
func (p *Pipeline) Terminal() nodes.Terminal {
	n, _ := p.Engine.Node(p.Output)
	t, _ := n.(nodes.Terminal)
	return t
}

// Height and Normal return the latest published maps.
func (p *Pipeline) Height() *grid.Intensity { return p.Terminal().Height() }
func (p *Pipeline) Normal() *grid.Vector    { return p.Terminal().Normal() }

// Reseed changes the noise and erosion seeds.
func (p *Pipeline) Reseed(seed int64) error {
	s := seedValue(seed)
	if err := p.Engine.SetParameter(p.Noise, "seed", s); err != nil {
		return err
	}
	return p.Engine.SetParameter(p.Erosion, "seed", s)
}

// Erode runs the erosion node once on its current input.
func (p *Pipeline) Erode() error { return p.Engine.Trigger(p.Erosion) }

// Generate waits for every background job and returns the final maps.
func (p *Pipeline) Generate(ctx context.Context) (*grid.Intensity, *grid.Vector, error) {
	if err := p.Engine.Settle(ctx); err != nil {
		return nil, nil, err
	}
	return p.Height(), p.Normal(), nil
}

// node resolves a pipeline stage by kind.
func (p *Pipeline) node(kind string) (graph.ID, bool) {
	switch kind {
	case "noise":
		return p.Noise, true
	case "erosion":
		return p.Erosion, true
	case "clamp":
		return p.Clamp, p.Clamp != 0
	case "output":
		return p.Output, true
	}
	return 0, false
}

// Set applies an override of the form kind.key=value, for example
// noise.octaves=4.
func (p *Pipeline) Set(override string) error {
	target, value, ok := strings.Cut(override, "=")
	if !ok {
		return fmt.Errorf("app: override %q: want kind.key=value", override)
	}
	kind, key, ok := strings.Cut(target, ".")
	if !ok {
		return fmt.Errorf("app: override %q: want kind.key=value", override)
	}
	id, ok := p.node(kind)
	if !ok {
		return fmt.Errorf("app: override %q: no %s stage", override, kind)
	}
	return p.Engine.SetParameterString(id, key, value)
}

// Snapshot returns the parameters of every stage in pipeline order.
func (p *Pipeline) Snapshot() []core.ParameterSnapshot {
	var out []core.ParameterSnapshot
	for _, id := range p.Engine.Nodes() {
		n, _ := p.Engine.Node(id)
		out = append(out, n.Params().Snapshot(n.Kind()))
	}
	return out
}

// Close releases the engine.
func (p *Pipeline) Close() { p.Engine.Close() }
