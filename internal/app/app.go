//go:build ebiten

package app

import (
	"time"

	"terragraph/internal/core"
	"terragraph/internal/graph"
	"terragraph/internal/grid"
	"terragraph/internal/render"
	"terragraph/internal/ui"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const hudWidth = 260

// Game adapts a terrain pipeline to the ebiten.Game interface. The height
// map is drawn on the left with the elevation palette, hillshaded unless
// lighting is toggled off, and the normal map on the right.
type Game struct {
	pipeline *Pipeline
	progress *ui.Progress
	hud      *ui.HUD
	overlay  *ui.Overlay

	heightPainter *render.GridPainter
	normalPainter *render.GridPainter
	shade         *render.Hillshade
	lit           bool

	shownHeight *grid.Intensity
	shownNormal *grid.Vector

	selected int
	side     int
	seed     int64
}

// New constructs a Game for the pipeline. side is the on-screen size of each
// map in pixels.
func New(p *Pipeline, side int, seed int64) *Game {
	progress := ui.NewProgress()
	p.Engine.Observe(progress)
	g := &Game{
		pipeline:      p,
		progress:      progress,
		overlay:       ui.NewOverlay(progress),
		heightPainter: render.NewGridPainter(1, 1),
		normalPainter: render.NewGridPainter(1, 1),
		side:          side,
		seed:          seed,
	}
	g.hud = ui.NewHUD(g.editor(), hudWidth)
	if shade, err := render.NewHillshade(); err != nil {
		core.Logger().Warn("app: hillshade unavailable", "err", err)
	} else {
		g.shade, g.lit = shade, true
	}
	return g
}

func (g *Game) editor() NodeEditor {
	ids := g.pipeline.Engine.Nodes()
	if len(ids) == 0 {
		return NodeEditor{Engine: g.pipeline.Engine}
	}
	return NodeEditor{Engine: g.pipeline.Engine, ID: ids[g.selected%len(ids)]}
}

// Update handles per-frame logic and applies finished background work.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	e := g.pipeline.Engine
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.selected++
		g.hud.SetTarget(g.editor())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		if err := g.pipeline.Erode(); err != nil {
			core.Logger().Warn("app: erode", "err", err)
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		e.SetRenderMode(!e.Settings().RenderMode())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		g.lit = !g.lit
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyS) {
		g.seed = time.Now().UnixNano()
		if err := g.pipeline.Reseed(g.seed); err != nil {
			core.Logger().Warn("app: reseed", "err", err)
		}
	}

	e.Poll()
	g.hud.Update(2 * g.side)
	g.overlay.Update()
	return nil
}

// Draw renders both maps, the HUD and the progress overlay.
func (g *Game) Draw(screen *ebiten.Image) {
	if h := g.pipeline.Height(); h != nil && h != g.shownHeight {
		g.heightPainter.SetIntensity(h, render.Elevation)
		g.shownHeight = h
	}
	if n := g.pipeline.Normal(); n != nil && n != g.shownNormal {
		g.normalPainter.SetVector(n, true)
		g.shownNormal = n
	}
	if g.lit && g.shade != nil {
		g.shade.Draw(screen, g.heightPainter, g.normalPainter, 0, 0, g.side)
	} else {
		g.heightPainter.Draw(screen, 0, 0, g.side)
	}
	g.normalPainter.Draw(screen, g.side, 0, g.side)
	g.hud.Draw(screen, 2*g.side, g.side)
	g.overlay.Draw(screen, 2*g.side, g.side)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return 2*g.side + hudWidth, g.side
}

// Size returns the window size the game wants.
func (g *Game) Size() (int, int) { return g.Layout(0, 0) }

var _ graph.Observer = (*ui.Progress)(nil)
