// Package normal derives tangent-space normal maps from height grids.
package normal

import (
	"context"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"

	"terragraph/internal/grid"
)

// DefaultStrength scales heights before the Sobel pass.
const DefaultStrength = 25.0

var (
	sobelX = [3][3]float64{{-1, 0, 1}, {-2, 0, 2}, {-1, 0, 1}}
	sobelY = [3][3]float64{{-1, -2, -1}, {0, 0, 0}, {1, 2, 1}}
)

// Pixel computes the normal at (x, y). Neighbours outside the grid are read
// from the nearest edge cell. The result is remapped from [-1,1] to [0,1] with
// alpha 1; a flat neighbourhood yields (0.5, 0.5, 1, 1).
func Pixel(height *grid.Intensity, x, y int, strength float64) mgl64.Vec4 {
	var gx, gy float64
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			h := grid.ClampedAt(height, x+i, y+j) * strength
			gx += sobelX[j+1][i+1] * h
			gy += sobelY[j+1][i+1] * h
		}
	}
	n := mgl64.Vec3{-gx, -gy, math.Sqrt(gx*gx + gy*gy)}
	if l := n.Len(); l > 0 {
		n = n.Mul(1 / l)
	} else {
		n = mgl64.Vec3{0, 0, 1}
	}
	return mgl64.Vec4{(n[0] + 1) / 2, (n[1] + 1) / 2, (n[2] + 1) / 2, 1}
}

// Generate computes the normal map for height. Rows are split across
// goroutines; ctx is checked before every row. progress, when non-nil, is
// called with the percentage of rows completed and may be called concurrently.
func Generate(ctx context.Context, height *grid.Intensity, strength float64, progress func(int)) (*grid.Vector, error) {
	if height.Empty() {
		return grid.New[mgl64.Vec4](0, 0), nil
	}
	w, h := height.W, height.H
	out := grid.New[mgl64.Vec4](w, h)

	workers := min(runtime.GOMAXPROCS(0), h)
	band := (h + workers - 1) / workers
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < h; start += band {
		y0, y1 := start, min(start+band, h)
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				for x := 0; x < w; x++ {
					out.Set(x, y, Pixel(height, x, y, strength))
				}
				n := done.Add(1)
				if progress != nil {
					progress(int(n * 100 / int64(h)))
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
