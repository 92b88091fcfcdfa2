package app

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"terragraph/internal/core"
)

// Config represents the command-line parameters shared by the executables.
type Config struct {
	Preview    int
	Render     int
	RenderMode bool

	Seed       int64
	Noise      string
	Iterations int
	Erode      bool
	Clamp      bool
	Strength   float64

	Scale   int
	TPS     int
	Addr    string
	Out     string
	Verbose bool
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Preview:    core.DefaultPreviewResolution,
		Render:     core.DefaultRenderResolution,
		Seed:       42,
		Noise:      "simplex",
		Iterations: 50000,
		Erode:      true,
		Strength:   25,
		Scale:      2,
		TPS:        60,
		Addr:       ":8080",
		Out:        ".",
	}
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	c := DefaultConfig()
	return &c
}

// Bind attaches the configuration to the provided FlagSet.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.IntVar(&c.Preview, "preview", c.Preview, "preview resolution in cells")
	fs.IntVar(&c.Render, "render", c.Render, "render resolution in cells")
	fs.BoolVar(&c.RenderMode, "render-mode", c.RenderMode, "generate at render resolution")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "seed for noise and erosion")
	fs.StringVar(&c.Noise, "noise", c.Noise, "noise basis (simplex or perlin)")
	fs.IntVar(&c.Iterations, "iterations", c.Iterations, "erosion droplets")
	fs.BoolVar(&c.Erode, "erode", c.Erode, "run erosion once the noise is ready")
	fs.BoolVar(&c.Clamp, "clamp", c.Clamp, "clamp the eroded height to [0,1]")
	fs.Float64Var(&c.Strength, "strength", c.Strength, "normal map strength")
	fs.IntVar(&c.Scale, "scale", c.Scale, "pixel scale multiplier")
	fs.IntVar(&c.TPS, "tps", c.TPS, "ticks per second")
	fs.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fs.StringVar(&c.Out, "out", c.Out, "output directory")
	fs.BoolVar(&c.Verbose, "v", c.Verbose, "debug logging")
}

// FromMap populates a config from flag-style key/value pairs. Unknown keys
// are ignored; values that fail to parse keep their defaults and are
// reported together in the returned error.
func FromMap(cfg map[string]string) (Config, error) {
	c := DefaultConfig()
	var errs []error
	bad := func(key, v string, err error) {
		errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
	}
	positive := func(key string, dst *int) {
		v, ok := cfg[key]
		if !ok {
			return
		}
		parsed, err := strconv.Atoi(v)
		if err == nil && parsed <= 0 {
			err = errors.New("must be positive")
		}
		if err != nil {
			bad(key, v, err)
			return
		}
		*dst = parsed
	}
	boolean := func(key string, dst *bool) {
		v, ok := cfg[key]
		if !ok {
			return
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			bad(key, v, err)
			return
		}
		*dst = parsed
	}

	positive("preview", &c.Preview)
	positive("render", &c.Render)
	positive("scale", &c.Scale)
	positive("tps", &c.TPS)
	boolean("render_mode", &c.RenderMode)
	boolean("erode", &c.Erode)
	boolean("clamp", &c.Clamp)
	boolean("v", &c.Verbose)

	if v, ok := cfg["seed"]; ok {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Seed = parsed
		} else {
			bad("seed", v, err)
		}
	}
	if v, ok := cfg["iterations"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			c.Iterations = parsed
		} else {
			bad("iterations", v, errors.New("must be a non-negative integer"))
		}
	}
	if v, ok := cfg["strength"]; ok {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			c.Strength = parsed
		} else {
			bad("strength", v, errors.New("must be a non-negative number"))
		}
	}
	if v, ok := cfg["noise"]; ok {
		if v == "simplex" || v == "perlin" {
			c.Noise = v
		} else {
			bad("noise", v, errors.New("must be simplex or perlin"))
		}
	}
	if v, ok := cfg["addr"]; ok {
		c.Addr = v
	}
	if v, ok := cfg["out"]; ok {
		c.Out = v
	}
	return c, errors.Join(errs...)
}
