// Package erosion implements droplet-based hydraulic erosion over a height
// grid (Mei et al. 2007, particle formulation).
package erosion

import (
	"context"
	"math"

	"terragraph/internal/core"
	"terragraph/internal/grid"
)

// Params tune the droplet simulation.
type Params struct {
	Iterations     int
	MaxDropLife    int
	Inertia        float64
	CapacityFactor float64
	MinCapacity    float64
	DepositSpeed   float64
	ErosionSpeed   float64
	Evaporation    float64
	Gravity        float64
	Radius         int
	Seed           int64
}

// DefaultParams returns a balanced parameter set.
func DefaultParams() Params {
	return Params{
		Iterations:     50000,
		MaxDropLife:    30,
		Inertia:        0.05,
		CapacityFactor: 4,
		MinCapacity:    0.01,
		DepositSpeed:   0.3,
		ErosionSpeed:   0.3,
		Evaporation:    0.01,
		Gravity:        4,
		Radius:         3,
		Seed:           1,
	}
}

// State is the lifecycle of a simulation run.
type State int

const (
	Idle State = iota
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Done:
		return "done"
	}
	return "unknown"
}

// Result holds the eroded height grid and the two informational grids.
type Result struct {
	Height   *grid.Intensity
	Sediment *grid.Intensity
	Erosion  *grid.Intensity
}

// depositKernel smooths freshly deposited material.
var depositKernel = grid.Kernel3{Corner: 0.5, Edge: 2, Center: 100}

// Simulation erodes a private copy of a height grid.
type Simulation struct {
	p     Params
	rng   *core.RNG
	state State

	height   *grid.Intensity
	sediment *grid.Intensity
	erosion  *grid.Intensity
	brush    []brushCell
}

type brushCell struct {
	dx, dy int
}

// New prepares a simulation over a copy of height.
func New(height *grid.Intensity, p Params) *Simulation {
	if height == nil {
		height = grid.New[float64](0, 0)
	}
	s := &Simulation{
		p:        p,
		rng:      core.NewRNG(p.Seed),
		height:   height.Clone(),
		sediment: grid.New[float64](height.W, height.H),
		erosion:  grid.New[float64](height.W, height.H),
	}
	if !s.height.Complete() {
		s.height = grid.FromValues(height.W, height.H, height.Values())
	}
	r := max(p.Radius, 1)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			s.brush = append(s.brush, brushCell{dx: dx, dy: dy})
		}
	}
	return s
}

// State reports where the simulation is in its lifecycle.
func (s *Simulation) State() State { return s.state }

// Result returns the current grids. They are owned by the simulation until it
// is discarded.
func (s *Simulation) Result() Result {
	return Result{Height: s.height, Sediment: s.sediment, Erosion: s.erosion}
}

// Run simulates Iterations droplets from random start positions. ctx is
// checked once per droplet; a cancelled run returns ctx.Err() and leaves the
// simulation Idle.
func (s *Simulation) Run(ctx context.Context, progress func(int)) (Result, error) {
	s.state = Running
	if s.height.Empty() {
		s.state = Done
		return s.Result(), nil
	}
	maxX := float64(s.height.W - 1)
	maxY := float64(s.height.H - 1)
	report := max(s.p.Iterations/100, 1)
	for i := 0; i < s.p.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			s.state = Idle
			return Result{}, err
		}
		s.Droplet(s.rng.Range(0, maxX), s.rng.Range(0, maxY))
		if progress != nil && i%report == 0 {
			progress(i * 100 / s.p.Iterations)
		}
	}
	if progress != nil {
		progress(100)
	}
	s.state = Done
	return s.Result(), nil
}

// Droplet simulates a single droplet starting at (x, y).
func (s *Simulation) Droplet(x, y float64) {
	p := s.p
	var dirX, dirY float64
	speed, water, sediment := 1.0, 1.0, 0.0

	for step := 0; step < p.MaxDropLife; step++ {
		h, gx, gy := s.heightAndGradient(x, y)

		dirX = dirX*p.Inertia - gx*(1-p.Inertia)
		dirY = dirY*p.Inertia - gy*(1-p.Inertia)
		l := math.Hypot(dirX, dirY)
		if l == 0 {
			return
		}
		dirX /= l
		dirY /= l

		nx, ny := x+dirX, y+dirY
		if nx < 0 || ny < 0 || nx > float64(s.height.W-1) || ny > float64(s.height.H-1) {
			return
		}

		delta := grid.Bilinear(s.height, nx, ny) - h
		capacity := math.Max(-delta*speed*water*p.CapacityFactor, p.MinCapacity)

		if sediment > capacity || delta > 0 || speed == 0 {
			var amount float64
			if delta > 0 {
				amount = math.Min(delta, sediment)
			} else {
				amount = math.Max(0, (sediment-capacity)*p.DepositSpeed)
			}
			sediment -= amount
			s.deposit(x, y, amount)
		} else {
			amount := math.Min((capacity-sediment)*p.ErosionSpeed, -delta)
			sediment += s.erode(x, y, amount)
		}

		speed = math.Sqrt(math.Max(0, speed*speed+delta*p.Gravity))
		water *= 1 - p.Evaporation
		x, y = nx, ny
	}
}

// heightAndGradient samples the bilinear height at (x, y) and its central
// difference gradient.
func (s *Simulation) heightAndGradient(x, y float64) (h, gx, gy float64) {
	h = grid.Bilinear(s.height, x, y)
	gx = (grid.Bilinear(s.height, x+1, y) - grid.Bilinear(s.height, x-1, y)) / 2
	gy = (grid.Bilinear(s.height, x, y+1) - grid.Bilinear(s.height, x, y-1)) / 2
	return h, gx, gy
}

// deposit splats amount onto the four cells around (x, y) and smooths the
// 3x3 block around the nearest cell.
func (s *Simulation) deposit(x, y, amount float64) {
	if amount == 0 {
		return
	}
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := min(x0+1, s.height.W-1)
	y1 := min(y0+1, s.height.H-1)
	u := x - float64(x0)
	v := y - float64(y0)

	s.add(x0, y0, amount*(1-u)*(1-v))
	s.add(x1, y0, amount*u*(1-v))
	s.add(x0, y1, amount*(1-u)*v)
	s.add(x1, y1, amount*u*v)

	cx := int(math.Round(x))
	cy := int(math.Round(y))
	var smoothed [9]float64
	for i := 0; i < 9; i++ {
		smoothed[i] = depositKernel.At(s.height, cx+i%3-1, cy+i/3-1)
	}
	for i := 0; i < 9; i++ {
		s.height.Set(cx+i%3-1, cy+i/3-1, smoothed[i])
	}
}

func (s *Simulation) add(x, y int, amount float64) {
	s.height.Set(x, y, s.height.At(x, y)+amount)
	s.sediment.Set(x, y, s.sediment.At(x, y)+amount)
}

// erode removes amount from a disk of cells around (x, y), weighting each by
// (r-d)/r, and returns the material removed. Heights are relative, so cells
// below zero erode like any other; the caller bounds amount by the drop.
func (s *Simulation) erode(x, y, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	r := float64(max(s.p.Radius, 1))
	cx := int(math.Round(x))
	cy := int(math.Round(y))

	type target struct {
		x, y int
		w    float64
	}
	targets := make([]target, 0, len(s.brush))
	total := 0.0
	for _, b := range s.brush {
		tx, ty := cx+b.dx, cy+b.dy
		if !s.height.InBounds(tx, ty) {
			continue
		}
		d := math.Hypot(float64(tx)-x, float64(ty)-y)
		if d >= r {
			continue
		}
		w := (r - d) / r
		targets = append(targets, target{x: tx, y: ty, w: w})
		total += w
	}
	if total == 0 {
		return 0
	}

	removed := 0.0
	for _, t := range targets {
		take := amount * t.w / total
		s.height.Set(t.x, t.y, s.height.At(t.x, t.y)-take)
		s.erosion.Set(t.x, t.y, s.erosion.At(t.x, t.y)+take)
		removed += take
	}
	return removed
}

// Erode runs a full simulation over a copy of height.
func Erode(ctx context.Context, height *grid.Intensity, p Params) (Result, error) {
	return New(height, p).Run(ctx, nil)
}
