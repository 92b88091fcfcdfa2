package nodes

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"terragraph/internal/core"
	"terragraph/internal/erosion"
	"terragraph/internal/grid"
	"terragraph/internal/node"
)

func testEnv() node.Env {
	return node.Env{Settings: core.NewSettings(8, 16), Textures: core.NewTextureList()}
}

func mustNew(t *testing.T, kind string) node.Node {
	t.Helper()
	n, err := NewCatalog(testEnv()).New(kind)
	if err != nil {
		t.Fatalf("new %s: %v", kind, err)
	}
	return n
}

func sameValue(a, b node.Value) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == node.TypeIntensity {
		return a.Intensity.Equal(b.Intensity)
	}
	return a.Vector.Equal(b.Vector)
}

func sample(p node.Port) node.Value {
	if p.Type == node.TypeIntensity {
		return node.IntensityValue(grid.FromValues(2, 2, []float64{0.1, 0.4, 0.7, 0.9}))
	}
	return node.VectorValue(grid.NewFilled(2, 2, mgl64.Vec4{0.2, 0.4, 0.6, 0.8}))
}

func TestCatalogHoldsEveryKind(t *testing.T) {
	want := []string{"math", "vector_math", "dot", "clamp", "color_split", "color_combine",
		"vector_intensity", "intensity_vector", "colorize", "constant_value", "constant_vector",
		"invert", "smooth", "normalize", "curve", "noise", "texture", "erosion", "output"}
	cat := NewCatalog(testEnv())
	got := map[string]bool{}
	for _, k := range cat.Kinds() {
		got[k] = true
	}
	for _, k := range want {
		if !got[k] {
			t.Fatalf("kind %q missing from catalog", k)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("catalog has %d kinds, expected %d", len(got), len(want))
	}
}

func TestDisconnectRestoresFreshOutput(t *testing.T) {
	cat := NewCatalog(testEnv())
	for _, kind := range cat.Kinds() {
		fresh, _ := cat.New(kind)
		fresh.Compute()
		for slot, port := range fresh.Inputs() {
			n, _ := cat.New(kind)
			node.SetInput(n, slot, sample(port))
			node.InputDisconnected(n, slot)
			for o := range fresh.Outputs() {
				if !sameValue(n.Output(o), fresh.Output(o)) {
					t.Fatalf("%s: output %d after disconnecting input %d differs from fresh node", kind, o, slot)
				}
			}
		}
	}
}

func TestMathDispatch(t *testing.T) {
	n := mustNew(t, "math")
	n.Compute()
	out := n.Output(0).Intensity
	if out.W != 8 || out.H != 8 || out.At(3, 3) != 1 {
		t.Fatalf("unconnected math = %dx%d %v, expected 8x8 of 1", out.W, out.H, out.At(3, 3))
	}
	if !n.(node.ResolutionUser).UsesResolution() {
		t.Fatalf("unconnected math should follow resolution")
	}

	if err := node.SetParameter(n, "mode", core.EnumValue("subtract")); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := node.SetParameter(n, "val1", core.FloatValue(5)); err != nil {
		t.Fatalf("set val1: %v", err)
	}
	node.SetInput(n, 1, node.IntensityValue(grid.NewFilled(2, 1, 2.0)))
	if got := n.Output(0).Intensity.At(1, 0); got != 3 {
		t.Fatalf("val1 - B = %v, expected 3", got)
	}
	node.SetInput(n, 0, node.IntensityValue(grid.NewFilled(2, 1, 7.0)))
	if got := n.Output(0).Intensity.At(0, 0); got != 5 {
		t.Fatalf("A - B = %v, expected 5", got)
	}
	node.InputDisconnected(n, 1)
	if got := n.Output(0).Intensity.At(0, 0); got != 6 {
		t.Fatalf("A - val2 = %v, expected 6", got)
	}
	if n.(node.ResolutionUser).UsesResolution() {
		t.Fatalf("connected math should not follow resolution")
	}
}

func TestVectorMathCross(t *testing.T) {
	n := mustNew(t, "vector_math")
	if err := n.Params().Set("mode", core.EnumValue("cross")); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	n.Params().Set("val1", core.Vec(1, 0, 0, 0))
	n.Params().Set("val2", core.Vec(0, 1, 0, 0))
	n.Compute()
	if got := n.Output(0).Vector.At(0, 0); got != (mgl64.Vec4{0, 0, 1, 1}) {
		t.Fatalf("x cross y = %v", got)
	}
}

func TestDotUsesXYZ(t *testing.T) {
	n := mustNew(t, "dot")
	n.Compute()
	if out := n.Output(0).Intensity; out.W != 1 || out.At(0, 0) != 3 {
		t.Fatalf("constant dot = %v, expected 1x1 of 3", out.Values())
	}
	node.SetInput(n, 0, node.VectorValue(grid.NewFilled(3, 2, mgl64.Vec4{1, 2, 3, 9})))
	out := n.Output(0).Intensity
	if out.W != 3 || out.H != 2 || out.At(2, 1) != 6 {
		t.Fatalf("dot = %dx%d %v, expected 3x2 of 6", out.W, out.H, out.At(2, 1))
	}
}

func TestClampBounds(t *testing.T) {
	n := mustNew(t, "clamp")
	n.Compute()
	if out := n.Output(0).Intensity; out.W != 1 || out.At(0, 0) != 1 {
		t.Fatalf("unconnected clamp = %v, expected 1x1 of 1", out.Values())
	}
	node.SetInput(n, 0, node.IntensityValue(grid.FromValues(3, 1, []float64{-1, 0.5, 2})))
	want := []float64{0, 0.5, 1}
	for i, w := range want {
		if got := n.Output(0).Intensity.At(i, 0); got != w {
			t.Fatalf("clamp cell %d = %v, expected %v", i, got, w)
		}
	}

	node.SetInput(n, 2, node.IntensityValue(grid.FromValues(3, 1, []float64{0.25, 0.25, 0.25})))
	if got := n.Output(0).Intensity.At(2, 0); got != 0.25 {
		t.Fatalf("per-cell max = %v, expected 0.25", got)
	}

	if err := node.SetParameter(n, "mode", core.EnumValue("sigmoid")); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	for i := 0; i < 3; i++ {
		if got := n.Output(0).Intensity.At(i, 0); got < 0 || got > 0.25 {
			t.Fatalf("sigmoid cell %d = %v outside [0, 0.25]", i, got)
		}
	}
}

func TestSigmoidIsStable(t *testing.T) {
	if got := Sigmoid(-1000); got != 0 || math.IsNaN(got) {
		t.Fatalf("Sigmoid(-1000) = %v", got)
	}
	if got := Sigmoid(1000); got != 1 {
		t.Fatalf("Sigmoid(1000) = %v", got)
	}
	if got := Sigmoid(0); got != 0.5 {
		t.Fatalf("Sigmoid(0) = %v", got)
	}
}

func TestColorCombineSizing(t *testing.T) {
	n := mustNew(t, "color_combine")
	n.Compute()
	if out := n.Output(0).Vector; out.W != 1 || out.H != 1 || out.At(0, 0) != (mgl64.Vec4{1, 1, 1, 1}) {
		t.Fatalf("constant combine = %v", out.Values())
	}
	node.SetInput(n, 3, node.IntensityValue(grid.NewFilled(5, 5, 0.5)))
	node.SetInput(n, 1, node.IntensityValue(grid.NewFilled(3, 2, 0.25)))
	out := n.Output(0).Vector
	if out.W != 3 || out.H != 2 {
		t.Fatalf("combine dims %dx%d, expected 3x2 from G", out.W, out.H)
	}
	if got := out.At(2, 1); got != (mgl64.Vec4{1, 0.25, 1, 0.5}) {
		t.Fatalf("combined cell = %v", got)
	}
}

func TestColorSplitRoundTrip(t *testing.T) {
	split := mustNew(t, "color_split")
	combine := mustNew(t, "color_combine")
	src := grid.NewFilled(2, 2, mgl64.Vec4{0.1, 0.2, 0.3, 0.4})
	node.SetInput(split, 0, node.VectorValue(src))
	for i := 0; i < 4; i++ {
		node.SetInput(combine, i, split.Output(i))
	}
	if !combine.Output(0).Vector.Equal(src) {
		t.Fatalf("split then combine = %v", combine.Output(0).Vector.Values())
	}
}

func TestCurveDiagonalIsIdentity(t *testing.T) {
	b := Bezier{P1: mgl64.Vec2{0.25, 0.25}, P2: mgl64.Vec2{0.75, 0.75}}
	for _, x := range []float64{0, 0.1, 0.5, 0.9, 1} {
		if got := b.ValueAt(x); math.Abs(got-x) > 1e-9 {
			t.Fatalf("ValueAt(%v) = %v", x, got)
		}
	}
}

func TestGradientEndpoints(t *testing.T) {
	low := mgl64.Vec4{0.1, 0.2, 0.3, 0.5}
	high := mgl64.Vec4{0.9, 0.8, 0.7, 1}
	for i, c := range []struct {
		t    float64
		want mgl64.Vec4
	}{{0, low}, {1, high}, {-3, low}, {4, high}} {
		got := Gradient(low, high, c.t)
		for j := range got {
			if math.Abs(got[j]-c.want[j]) > 1e-6 {
				t.Fatalf("case %d: Gradient = %v, expected %v", i, got, c.want)
			}
		}
	}
}

func TestInvertAndSmooth(t *testing.T) {
	inv := mustNew(t, "invert")
	node.SetInput(inv, 0, node.IntensityValue(grid.FromValues(2, 1, []float64{0.25, 1})))
	if got := inv.Output(0).Intensity.Values(); got[0] != 0.75 || got[1] != 0 {
		t.Fatalf("invert = %v", got)
	}
	smooth := mustNew(t, "smooth")
	node.SetInput(smooth, 0, node.IntensityValue(grid.NewFilled(4, 4, 0.6)))
	for _, v := range smooth.Output(0).Intensity.Values() {
		if math.Abs(v-0.6) > 1e-12 {
			t.Fatalf("smoothing a constant map changed it: %v", v)
		}
	}
}

func TestConstantsFollowResolution(t *testing.T) {
	env := testEnv()
	cat := NewCatalog(env)
	n, _ := cat.New("constant_value")
	node.SetParameter(n, "value", core.FloatValue(0.3))
	if out := n.Output(0).Intensity; out.W != 8 || out.At(7, 7) != 0.3 {
		t.Fatalf("constant = %dx%d", out.W, out.H)
	}
	env.Settings.SetRenderMode(true)
	n.Compute()
	if out := n.Output(0).Intensity; out.W != 16 || out.H != 16 {
		t.Fatalf("render-mode constant = %dx%d, expected 16x16", out.W, out.H)
	}
}

func TestNoiseJob(t *testing.T) {
	n := mustNew(t, "noise").(*Noise)
	if out := n.Output(0).Intensity; out.W != 1 || out.At(0, 0) != 0.5 {
		t.Fatalf("initial noise output = %v", out.Values())
	}
	if _, ok := n.Job(); ok {
		t.Fatalf("job available before Compute")
	}
	n.Compute()
	job, ok := n.Job()
	if !ok {
		t.Fatalf("no job after Compute")
	}
	res, err := job(context.Background(), nil)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	n.Finish(res)
	out := n.Output(0).Intensity
	if out.W != 8 || out.H != 8 {
		t.Fatalf("noise dims %dx%d", out.W, out.H)
	}
	flat := true
	for _, v := range out.Values() {
		if v < 0 || v > 1 {
			t.Fatalf("noise value %v outside [0,1]", v)
		}
		if v != out.At(0, 0) {
			flat = false
		}
	}
	if flat {
		t.Fatalf("noise output is flat")
	}

	again, _ := GenerateNoise(context.Background(), n.Config(), 8, 8, nil)
	if !again.Equal(out) {
		t.Fatalf("same seed produced different noise")
	}
	n.Params().Set("basis", core.EnumValue("perlin"))
	if _, err := GenerateNoise(context.Background(), n.Config(), 8, 8, nil); err != nil {
		t.Fatalf("perlin noise: %v", err)
	}
}

func TestTextureLookup(t *testing.T) {
	env := testEnv()
	n, _ := NewCatalog(env).New("texture")
	n.Compute()
	if out := n.Output(0).Vector; out.W != 1 || out.At(0, 0) != (mgl64.Vec4{}) {
		t.Fatalf("missing texture = %v", out.Values())
	}
	env.Textures.Generate("white", 4, 4)
	if err := node.SetParameter(n, "name", core.StringValue("white")); err != nil {
		t.Fatalf("set name: %v", err)
	}
	out := n.Output(0).Vector
	if out.W != 8 || out.H != 8 {
		t.Fatalf("texture dims %dx%d, expected 8x8", out.W, out.H)
	}
	for i, c := range out.At(5, 5) {
		if math.Abs(c-1) > 1e-3 {
			t.Fatalf("texture component %d = %v, expected 1", i, c)
		}
	}
}

func TestErosionTrigger(t *testing.T) {
	n := mustNew(t, "erosion").(*Erosion)
	height := grid.New[float64](16, 16)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			height.Set(x, y, float64(15-x)/15)
		}
	}
	node.SetInput(n, 0, node.IntensityValue(height))
	if !n.Output(0).Intensity.Equal(height) || n.State() != erosion.Idle {
		t.Fatalf("idle erosion should pass the height through")
	}
	n.Params().Set("iterations", core.IntValue(500))
	n.Trigger()
	n.Compute()
	if n.Output(0).Intensity.Equal(height) {
		t.Fatalf("triggered erosion left the height untouched")
	}
	eroded := 0.0
	for _, v := range n.Output(2).Intensity.Values() {
		eroded += v
	}
	if eroded <= 0 {
		t.Fatalf("erosion output is empty")
	}
	n.Compute()
	if n.Output(0).Intensity.Equal(height) || n.State() != erosion.Done {
		t.Fatalf("recompute without a new input dropped the eroded height")
	}
	node.SetInput(n, 0, node.IntensityValue(height.Clone()))
	if !n.Output(0).Intensity.Equal(height) || n.State() != erosion.Idle {
		t.Fatalf("trigger should reset after one run")
	}
}

func TestErosionHeldAcrossParameterEdits(t *testing.T) {
	n := mustNew(t, "erosion").(*Erosion)
	height := grid.New[float64](32, 32)
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			height.Set(x, y, float64(31-x)/31)
		}
	}
	node.SetInput(n, 0, node.IntensityValue(height))
	n.Params().Set("iterations", core.IntValue(2000))
	n.Trigger()
	n.Compute()
	eroded := n.Output(0).Intensity
	if eroded.Equal(height) {
		t.Fatalf("triggered erosion left the height untouched")
	}

	if err := node.SetParameter(n, "evaporation", core.FloatValue(0.02)); err != nil {
		t.Fatalf("SetParameter: %v", err)
	}
	if !n.Output(0).Intensity.Equal(eroded) || n.State() != erosion.Done {
		t.Fatalf("editing a knob discarded the eroded result")
	}
	removed := 0.0
	for _, v := range n.Output(2).Intensity.Values() {
		removed += v
	}
	if removed <= 0 {
		t.Fatalf("erosion output was cleared by a knob edit")
	}

	n.Trigger()
	n.Compute()
	if n.State() != erosion.Done || n.Output(0).Intensity.Equal(height) {
		t.Fatalf("re-trigger did not erode again")
	}
}

func TestOutputNormalJob(t *testing.T) {
	n := mustNew(t, "output").(*Output)
	node.SetInput(n, 0, node.IntensityValue(grid.FromValues(2, 2, []float64{1, 0, 0, 1})))
	job, ok := n.Job()
	if !ok {
		t.Fatalf("no normal job after Compute")
	}
	if n.Normal() != nil {
		t.Fatalf("normal published before the job finished")
	}
	res, err := job(context.Background(), nil)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	n.Finish(res)
	if n.Normal() == nil || n.Normal().W != 2 || n.Height().At(0, 0) != 1 {
		t.Fatalf("output did not publish height and normal")
	}
}
