//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"

	"terragraph/internal/app"
	"terragraph/internal/core"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	core.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	pipeline, err := app.Build(*cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pipeline.Close()

	side := cfg.Preview * cfg.Scale
	game := app.New(pipeline, side, cfg.Seed)
	w, h := game.Size()

	ebiten.SetWindowTitle("terragraph")
	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
