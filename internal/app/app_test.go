package app

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"
)

func TestFromMapDefaults(t *testing.T) {
	c, err := FromMap(nil)
	if err != nil {
		t.Fatalf("FromMap(nil) error: %v", err)
	}
	if c != DefaultConfig() {
		t.Fatalf("FromMap(nil) = %+v, want defaults", c)
	}
}

func TestFromMapParses(t *testing.T) {
	c, err := FromMap(map[string]string{
		"preview":    "64",
		"seed":       "-7",
		"noise":      "perlin",
		"iterations": "0",
		"erode":      "false",
		"clamp":      "true",
		"strength":   "12.5",
		"out":        "/tmp/x",
	})
	if err != nil {
		t.Fatalf("FromMap error: %v", err)
	}
	if c.Preview != 64 || c.Seed != -7 || c.Noise != "perlin" || c.Iterations != 0 {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.Erode || !c.Clamp || c.Strength != 12.5 || c.Out != "/tmp/x" {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestFromMapCollectsErrors(t *testing.T) {
	c, err := FromMap(map[string]string{
		"preview": "-1",
		"noise":   "worley",
		"erode":   "maybe",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"preview", "noise", "erode"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
	def := DefaultConfig()
	if c.Preview != def.Preview || c.Noise != def.Noise || c.Erode != def.Erode {
		t.Fatalf("rejected values should keep defaults, got %+v", c)
	}
}

func TestBindFlags(t *testing.T) {
	c := NewConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.Bind(fs)
	if err := fs.Parse([]string{"-preview", "32", "-seed", "9", "-erode=false", "-v"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Preview != 32 || c.Seed != 9 || c.Erode || !c.Verbose {
		t.Fatalf("unexpected config %+v", *c)
	}
}

func smallConfig() Config {
	c := DefaultConfig()
	c.Preview = 16
	c.Render = 32
	c.Iterations = 200
	return c
}

func generate(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	h, n, err := p.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if h == nil || h.W != 16 || h.H != 16 {
		t.Fatalf("height map = %v, want 16x16", h)
	}
	if n == nil || n.W != 16 || n.H != 16 {
		t.Fatalf("normal map = %v, want 16x16", n)
	}
}

func TestPipelineGenerate(t *testing.T) {
	p, err := Build(smallConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()
	if len(p.Engine.Nodes()) != 3 || len(p.Engine.Edges()) != 2 {
		t.Fatalf("pipeline has %d nodes and %d edges", len(p.Engine.Nodes()), len(p.Engine.Edges()))
	}
	generate(t, p)
}

func TestPipelineWithClamp(t *testing.T) {
	cfg := smallConfig()
	cfg.Clamp = true
	p, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()
	if len(p.Engine.Nodes()) != 4 || len(p.Engine.Edges()) != 3 {
		t.Fatalf("pipeline has %d nodes and %d edges", len(p.Engine.Nodes()), len(p.Engine.Edges()))
	}
	generate(t, p)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if v := p.Height().At(x, y); v < 0 || v > 1 {
				t.Fatalf("height(%d,%d) = %v outside [0,1]", x, y, v)
			}
		}
	}
}

func TestPipelineReseedChangesHeight(t *testing.T) {
	cfg := smallConfig()
	cfg.Erode = false
	p, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()
	generate(t, p)
	before := p.Height().At(5, 5)

	if err := p.Reseed(cfg.Seed + 1); err != nil {
		t.Fatalf("Reseed: %v", err)
	}
	generate(t, p)
	if p.Height().At(5, 5) == before {
		t.Fatal("reseeding did not change the height map")
	}
}

func TestBuildRejectsUnknownNoise(t *testing.T) {
	cfg := smallConfig()
	cfg.Noise = "worley"
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected error for unknown noise basis")
	}
}

func TestNodeEditor(t *testing.T) {
	cfg := smallConfig()
	cfg.Erode = false
	p, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()

	ed := NodeEditor{Engine: p.Engine, ID: p.Noise}
	if !strings.HasPrefix(ed.Name(), "noise #") {
		t.Fatalf("Name() = %q", ed.Name())
	}
	if !ed.SetTextParameter("basis", "perlin") {
		t.Fatal("basis=perlin rejected")
	}
	if ed.SetTextParameter("basis", "worley") {
		t.Fatal("basis=worley accepted")
	}
	if !ed.SetIntParameter("octaves", 3) {
		t.Fatal("octaves=3 rejected")
	}
	if ed.SetFloatParameter("missing", 1) {
		t.Fatal("unknown key accepted")
	}
	snap := ed.Parameters()
	if v, ok := snap.Lookup("octaves"); !ok || v.Value != "3" {
		t.Fatalf("octaves snapshot = %+v, %v", v, ok)
	}
	if len(ed.ParameterControls()) == 0 {
		t.Fatal("noise node has no controls")
	}

	gone := NodeEditor{Engine: p.Engine, ID: 999}
	if gone.Name() != "" || gone.ParameterControls() != nil {
		t.Fatal("missing node should have no name or controls")
	}
}

func TestPipelineOverrides(t *testing.T) {
	cfg := smallConfig()
	cfg.Erode = false
	p, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()

	if err := p.Set("noise.octaves=3"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := p.Set("output.strength=10"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	for _, bad := range []string{"noise.octaves", "octaves=3", "clamp.min=0", "lake.depth=1", "noise.octaves=lots"} {
		if err := p.Set(bad); err == nil {
			t.Fatalf("Set(%q) succeeded", bad)
		}
	}

	snaps := p.Snapshot()
	if len(snaps) != 3 {
		t.Fatalf("Snapshot returned %d stages, want 3", len(snaps))
	}
	if v, ok := snaps[0].Lookup("octaves"); !ok || v.Value != "3" {
		t.Fatalf("noise octaves = %+v, %v", v, ok)
	}
	if v, ok := snaps[2].Lookup("strength"); !ok || v.Value != "10" {
		t.Fatalf("output strength = %+v, %v", v, ok)
	}
}
