// Command flockbench runs the same initial flock through every neighbor
// strategy without a window and compares timings and results.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/simulation"
)

type result struct {
	finder       string
	total        time.Duration
	stages       map[string]time.Duration
	meanNeighbor float64
	velocities   []geometry.Vector3D
	maxDeviation float64 // against the first finder run
}

func main() {
	configFile := flag.String("config", "", "flock configuration (.json or .toml)")
	ticks := flag.Int("ticks", 300, "ticks per strategy")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := flock.DefaultConfig()
	if *configFile != "" {
		if cfg, err = flock.LoadConfig(*configFile); err != nil {
			logger.Fatal("invalid configuration", zap.Error(err))
		}
	}

	results, err := run(context.Background(), cfg, *ticks, logger)
	if err != nil {
		logger.Fatal("benchmark failed", zap.Error(err))
	}
	for _, r := range results {
		fields := []zap.Field{
			zap.String("finder", r.finder),
			zap.Int("agents", cfg.Count),
			zap.Int("ticks", *ticks),
			zap.Duration("total", r.total),
			zap.Duration("perTick", r.total/time.Duration(max(*ticks, 1))),
			zap.Float64("meanNeighbors", r.meanNeighbor),
			zap.Float64("maxDeviation", r.maxDeviation),
		}
		for name, d := range r.stages {
			fields = append(fields, zap.Duration(name, d))
		}
		logger.Info("strategy done", fields...)
	}
}

// run advances a copy of one seeded population per strategy.
func run(ctx context.Context, cfg *flock.Config, ticks int, logger *zap.Logger) ([]result, error) {
	seed := uint64(cfg.Seed)
	initial := simulation.NewFlock(cfg.Capacity)
	if err := initial.Spawn(cfg.Count, cfg.Volume, cfg.Speed, rand.New(rand.NewPCG(seed, seed+1))); err != nil {
		return nil, err
	}

	var results []result
	for _, name := range []string{flock.FinderScan, flock.FinderOctree, flock.FinderKDTree} {
		finder, err := flock.NewNeighborFinder(name, cfg.Capacity, cfg.OctreeOptions()...)
		if err != nil {
			return nil, err
		}
		p, err := flock.NewPipeline(cfg.Capacity,
			flock.WithNeighborFinder(finder),
			flock.WithScheduler(cfg.Scheduler()),
			flock.WithLogger(logger.Named(name)),
		)
		if err != nil {
			return nil, err
		}

		f := clone(initial)
		r := result{finder: name, stages: map[string]time.Duration{}}
		start := time.Now()
		for k := 0; k < ticks; k++ {
			if err := p.Tick(ctx, f.Frame(cfg.DeltaTime, cfg.Params())); err != nil {
				return nil, fmt.Errorf("%s tick %d: %w", name, k, err)
			}
			f.Integrate(cfg.DeltaTime)
			for _, s := range p.Stats().Stages {
				r.stages[s.Name] += s.Duration
			}
		}
		r.total = time.Since(start)
		r.meanNeighbor = p.Stats().MeanNeighbors
		r.velocities = f.Velocities[:f.Count]
		if len(results) > 0 {
			r.maxDeviation = maxDeviation(results[0].velocities, r.velocities)
		}
		results = append(results, r)
	}
	return results, nil
}

func clone(f *simulation.Flock) *simulation.Flock {
	c := simulation.NewFlock(f.Capacity())
	copy(c.Positions, f.Positions)
	copy(c.Velocities, f.Velocities)
	c.Count = f.Count
	return c
}

func maxDeviation(a, b []geometry.Vector3D) float64 {
	worst := 0.0
	for i := range a {
		worst = max(worst, a[i].DistanceTo(b[i]))
	}
	return worst
}
