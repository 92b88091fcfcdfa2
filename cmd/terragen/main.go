// Command terragen generates a height map and its normal map without a
// window and writes them as PNG files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"terragraph/internal/app"
	"terragraph/internal/core"
	"terragraph/internal/grid"
)

type kvList []string

func (l *kvList) String() string {
	return strings.Join(*l, ",")
}

func (l *kvList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	timeout := flag.Duration("timeout", 10*time.Minute, "give up after this long")
	var overrides kvList
	flag.Var(&overrides, "set", "stage parameter in kind.key=value form (repeatable)")
	flag.Parse()

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	core.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pipeline, err := app.Build(*cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pipeline.Close()
	for _, kv := range overrides {
		if err := pipeline.Set(kv); err != nil {
			log.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	start := time.Now()
	height, normal, err := pipeline.Generate(ctx)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	core.Logger().Info("terrain ready", "size", height.W, "elapsed", time.Since(start).Round(time.Millisecond))

	if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
		log.Fatal(err)
	}
	if err := writePNG(filepath.Join(cfg.Out, "height.png"), func(f *os.File) error { return grid.EncodeIntensity(f, height) }); err != nil {
		log.Fatal(err)
	}
	if err := writePNG(filepath.Join(cfg.Out, "normal.png"), func(f *os.File) error { return grid.EncodeVector(f, normal) }); err != nil {
		log.Fatal(err)
	}

	for _, snap := range pipeline.Snapshot() {
		for _, g := range snap.Groups {
			fmt.Println(g.Name)
			for _, p := range g.Params {
				fmt.Printf("  %-14s %s\n", p.Key, p.Value)
			}
		}
	}
}

func writePNG(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
