package main

import (
	"context"
	"flag"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

func main() {
	configFile := flag.String("config", "", "flock configuration (.json or .toml); defaults are used when empty")
	debug := flag.Bool("debug", false, "log every tick")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := flock.DefaultConfig()
	if *configFile != "" {
		cfg, err = flock.LoadConfig(*configFile)
		if err != nil {
			logger.Fatal("invalid configuration", zap.String("file", *configFile), zap.Error(err))
		}
	}

	ctx := context.Background()
	system, err := actor.NewActorSystem("FlockWorld",
		actor.WithLogger(golog.New(golog.InfoLevel, os.Stdout)),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		logger.Fatal("failed to create actor system", zap.Error(err))
	}
	if err := system.Start(ctx); err != nil {
		logger.Fatal("failed to start actor system", zap.Error(err))
	}
	defer func() { _ = system.Stop(ctx) }()

	game, err := simulation.NewGame(ctx, cfg, system, logger)
	if err != nil {
		logger.Fatal("failed to start the flock", zap.Error(err))
	}

	ebiten.SetWindowSize(simulation.ScreenWidth, simulation.ScreenHeight)
	ebiten.SetWindowTitle("Flock 3D")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(game); err != nil {
		logger.Error("game stopped", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if !debug {
		zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return zc.Build()
}
