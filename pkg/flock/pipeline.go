package flock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/octree"
)

var (
	ErrInvalidCapacity      = errors.New("capacity must be positive")
	ErrCountExceedsCapacity = errors.New("agent count exceeds pipeline capacity")
	ErrBufferTooSmall       = errors.New("position or velocity buffer shorter than agent count")
)

// TickStats summarizes the last tick.
type TickStats struct {
	Tick          uint64
	Count         int
	Finder        string
	Neighbors     int64
	MeanNeighbors float64
	Stages        []StageReport
	Duration      time.Duration
}

// Pipeline runs the per-tick chain index build -> flocking force ->
// velocity apply. It owns the velocity-output buffer, sized to capacity and
// allocated once, and the neighbor finder's index storage.
//
// A Pipeline is not safe for concurrent Tick calls; one tick fully drains
// before the next starts.
type Pipeline struct {
	capacity  int
	output    []geometry.Vector3D
	finder    NeighborFinder
	scheduler Scheduler
	logger    *zap.Logger

	octreeOpts []octree.Option
	neighbors  atomic.Int64
	ticks      uint64
	stats      TickStats

	// throughput log, once per second
	lastLogTime   time.Time
	ticksSinceLog int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithNeighborFinder selects the neighbor discovery strategy. The default
// is an OctreeFinder.
func WithNeighborFinder(f NeighborFinder) Option {
	return func(p *Pipeline) { p.finder = f }
}

// WithScheduler sets batch size and worker count.
func WithScheduler(s Scheduler) Option {
	return func(p *Pipeline) { p.scheduler = s }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithOctreeOptions tunes the default octree finder. Ignored when a finder
// is given with WithNeighborFinder.
func WithOctreeOptions(opts ...octree.Option) Option {
	return func(p *Pipeline) { p.octreeOpts = append(p.octreeOpts, opts...) }
}

// NewPipeline allocates a pipeline able to handle up to capacity agents.
func NewPipeline(capacity int, opts ...Option) (*Pipeline, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	p := &Pipeline{
		capacity:    capacity,
		output:      make([]geometry.Vector3D, capacity),
		scheduler:   NewScheduler(DefaultBatchSize, 0),
		logger:      zap.NewNop(),
		lastLogTime: time.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.finder == nil {
		p.finder = NewOctreeFinder(capacity, p.octreeOpts...)
	}
	return p, nil
}

// Capacity returns the maximum agent count.
func (p *Pipeline) Capacity() int { return p.capacity }

// Finder returns the neighbor discovery strategy in use.
func (p *Pipeline) Finder() NeighborFinder { return p.finder }

// Stats returns a copy of the last tick's statistics.
func (p *Pipeline) Stats() TickStats {
	s := p.stats
	s.Stages = append([]StageReport(nil), p.stats.Stages...)
	return s
}

// Tick advances the velocities of agents [0, f.Count) by one step and
// writes them into f.Velocities. Positions are not touched. When ctx is
// already done the whole frame is skipped and velocities are unchanged.
func (p *Pipeline) Tick(ctx context.Context, f Frame) error {
	if f.Count > p.capacity {
		return fmt.Errorf("%w: %d > %d", ErrCountExceedsCapacity, f.Count, p.capacity)
	}
	if f.Count < 0 || len(f.Positions) < f.Count || len(f.Velocities) < f.Count {
		return fmt.Errorf("%w: count=%d positions=%d velocities=%d",
			ErrBufferTooSmall, f.Count, len(f.Positions), len(f.Velocities))
	}

	start := time.Now()
	p.neighbors.Store(0)

	stages := make([]Stage, 0, 3)
	if idx := p.finder.Prepare(f.Positions[:f.Count], f.Params.Volume); idx != nil {
		stages = append(stages, *idx)
	}
	stages = append(stages,
		forceStage(f, p.finder, p.output, &p.neighbors),
		applyStage(f, p.output),
	)

	reports, err := p.scheduler.Run(ctx, f.Count, stages...)
	if err != nil {
		p.logger.Warn("tick aborted", zap.Uint64("tick", p.ticks+1), zap.Error(err))
		return err
	}

	p.ticks++
	total := p.neighbors.Load()
	mean := 0.0
	if f.Count > 0 {
		mean = float64(total) / float64(f.Count)
	}
	p.stats = TickStats{
		Tick:          p.ticks,
		Count:         f.Count,
		Finder:        p.finder.Name(),
		Neighbors:     total,
		MeanNeighbors: mean,
		Stages:        reports,
		Duration:      time.Since(start),
	}

	p.logTick()
	return nil
}

func (p *Pipeline) logTick() {
	if ce := p.logger.Check(zap.DebugLevel, "tick"); ce != nil {
		fields := []zap.Field{
			zap.Uint64("tick", p.stats.Tick),
			zap.Int("count", p.stats.Count),
			zap.String("finder", p.stats.Finder),
			zap.Float64("meanNeighbors", p.stats.MeanNeighbors),
			zap.Duration("duration", p.stats.Duration),
		}
		for _, r := range p.stats.Stages {
			fields = append(fields, zap.Duration(r.Name, r.Duration))
		}
		ce.Write(fields...)
	}

	p.ticksSinceLog++
	if elapsed := time.Since(p.lastLogTime); elapsed >= time.Second {
		p.logger.Info("flock throughput",
			zap.Float64("ticksPerSec", float64(p.ticksSinceLog)/elapsed.Seconds()),
			zap.Int("count", p.stats.Count),
			zap.String("finder", p.stats.Finder),
			zap.Float64("meanNeighbors", p.stats.MeanNeighbors),
		)
		p.ticksSinceLog = 0
		p.lastLogTime = time.Now()
	}
}
