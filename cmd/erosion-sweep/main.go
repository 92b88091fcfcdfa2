// Command erosion-sweep erodes one noise field under a grid of droplet
// parameters and ranks the outcomes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"terragraph/internal/erosion"
	"terragraph/internal/grid"
	"terragraph/internal/nodes"
)

type paramSet struct {
	inertia      float64
	capacity     float64
	depositSpeed float64
	erosionSpeed float64
	radius       int
}

func (p paramSet) String() string {
	return fmt.Sprintf("inertia=%.2f capacity=%.1f deposit=%.2f erode=%.2f radius=%d",
		p.inertia, p.capacity, p.depositSpeed, p.erosionSpeed, p.radius)
}

type scenarioResult struct {
	params    paramSet
	eroded    float64
	deposited float64
	meanDelta float64
	relief    float64
	elapsed   time.Duration
}

func main() {
	size := flag.Int("size", 128, "map size in cells")
	iterations := flag.Int("iterations", 20000, "droplets per scenario")
	seed := flag.Int64("seed", 1337, "noise and droplet seed")
	workers := flag.Int("workers", runtime.NumCPU(), "number of worker goroutines")
	top := flag.Int("top", 5, "results to print")
	flag.Parse()

	noise := nodes.NoiseConfig{Basis: "simplex", Seed: *seed, Octaves: 6, Frequency: 2.5, Persistence: 0.5, Lacunarity: 1.99}
	base, err := nodes.GenerateNoise(context.Background(), noise, *size, *size, nil)
	if err != nil {
		log.Fatal(err)
	}
	baseRelief := relief(base)

	var sets []paramSet
	for _, inertia := range []float64{0.05, 0.3} {
		for _, capacity := range []float64{2, 4, 8} {
			for _, deposit := range []float64{0.1, 0.3} {
				for _, erode := range []float64{0.1, 0.3, 0.6} {
					for _, radius := range []int{2, 3, 5} {
						sets = append(sets, paramSet{
							inertia:      inertia,
							capacity:     capacity,
							depositSpeed: deposit,
							erosionSpeed: erode,
							radius:       radius,
						})
					}
				}
			}
		}
	}

	fmt.Printf("Sweeping %d parameter sets (%d workers, %d droplets, %dx%d)\n", len(sets), *workers, *iterations, *size, *size)

	jobs := make(chan paramSet)
	results := make(chan scenarioResult)
	var wg sync.WaitGroup

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				res, err := runScenario(base, params, *iterations, *seed)
				if err != nil {
					log.Printf("%s: %v", params, err)
					continue
				}
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		for _, params := range sets {
			jobs <- params
		}
		close(jobs)
	}()

	start := time.Now()
	var all []scenarioResult
	for res := range results {
		all = append(all, res)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].eroded > all[j].eroded })
	elapsed := time.Since(start)

	fmt.Printf("\nBase relief %.3f. Top %d by material moved (elapsed %s):\n", baseRelief, *top, elapsed.Round(time.Millisecond))
	for i := 0; i < len(all) && i < *top; i++ {
		res := all[i]
		fmt.Printf("%2d) eroded=%.2f deposited=%.2f meanDelta=%.5f relief=%.3f took=%s params=%s\n",
			i+1, res.eroded, res.deposited, res.meanDelta, res.relief, res.elapsed.Round(time.Millisecond), res.params)
	}
}

func runScenario(base *grid.Intensity, params paramSet, iterations int, seed int64) (scenarioResult, error) {
	p := erosion.DefaultParams()
	p.Iterations = iterations
	p.Seed = seed
	p.Inertia = params.inertia
	p.CapacityFactor = params.capacity
	p.DepositSpeed = params.depositSpeed
	p.ErosionSpeed = params.erosionSpeed
	p.Radius = params.radius

	start := time.Now()
	res, err := erosion.Erode(context.Background(), base, p)
	if err != nil {
		return scenarioResult{}, err
	}

	var delta float64
	for y := 0; y < base.H; y++ {
		for x := 0; x < base.W; x++ {
			delta += math.Abs(res.Height.At(x, y) - base.At(x, y))
		}
	}
	return scenarioResult{
		params:    params,
		eroded:    sum(res.Erosion),
		deposited: sum(res.Sediment),
		meanDelta: delta / float64(base.W*base.H),
		relief:    relief(res.Height),
		elapsed:   time.Since(start),
	}, nil
}

func sum(m *grid.Intensity) float64 {
	total := 0.0
	for _, v := range m.Values() {
		total += v
	}
	return total
}

func relief(m *grid.Intensity) float64 {
	values := m.Values()
	if len(values) == 0 {
		return 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}
