package simulation

import (
	"math/rand/v2"
	"time"

	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
)

// FlockActor owns the agent buffers and the pipeline. Every message is
// handled on the actor's goroutine, so a tick always drains before the next
// one or a tunables update is looked at.
type FlockActor struct {
	cfg      *flock.Config
	flock    *Flock
	pipeline *flock.Pipeline
	params   flock.Params
	rng      *rand.Rand
	logger   *zap.Logger

	// Communication with UI
	snapshotCh chan<- *Snapshot

	ticks   uint64
	skipped int

	// --- Benchmark Stats ---
	ticksSinceLog int
	lastLogTime   time.Time
}

// NewFlockActor creates the flock controller. cfg is copied; snapshotCh may
// be nil for a headless run.
func NewFlockActor(cfg *flock.Config, snapshotCh chan<- *Snapshot, logger *zap.Logger) *FlockActor {
	c := *cfg
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := uint64(c.Seed)
	return &FlockActor{
		cfg:         &c,
		params:      c.Params(),
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger:      logger,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (w *FlockActor) PreStart(ctx *actor.Context) error {
	if err := w.cfg.Validate(); err != nil {
		return err
	}
	w.flock = NewFlock(w.cfg.Capacity)
	return w.rebuildPipeline()
}

func (w *FlockActor) rebuildPipeline() error {
	finder, err := w.cfg.NeighborFinder()
	if err != nil {
		return err
	}
	p, err := flock.NewPipeline(w.cfg.Capacity,
		flock.WithNeighborFinder(finder),
		flock.WithScheduler(w.cfg.Scheduler()),
		flock.WithLogger(w.logger),
	)
	if err != nil {
		return err
	}
	w.pipeline = p
	return nil
}

func (w *FlockActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("flock started, spawning %d agents (%s neighbors)", w.cfg.Count, w.cfg.Neighbors)
		w.spawn(ctx)

	// The main simulation step, driven by the game loop
	case *durationpb.Duration:
		w.step(ctx, msg.AsDuration())

	// Slider updates from the UI
	case *structpb.Struct:
		w.applyTunables(ctx, msg)

	case *wrapperspb.StringValue:
		if msg.GetValue() != RespawnCommand {
			ctx.Unhandled()
			return
		}
		w.spawn(ctx)

	case *emptypb.Empty:
		reply, err := w.state().toStruct()
		if err != nil {
			ctx.Err(err)
			return
		}
		ctx.Response(reply)

	default:
		ctx.Unhandled()
	}
}

func (w *FlockActor) spawn(ctx *actor.ReceiveContext) {
	if err := w.flock.Spawn(w.cfg.Count, w.cfg.Volume, w.cfg.Speed, w.rng); err != nil {
		ctx.Logger().Errorf("spawn failed: %v", err)
	}
}

func (w *FlockActor) step(ctx *actor.ReceiveContext, d time.Duration) {
	dt := d.Seconds()
	if dt <= 0 {
		dt = w.cfg.DeltaTime
	}

	if err := w.pipeline.Tick(ctx.Context(), w.flock.Frame(dt, w.params)); err != nil {
		w.skipped++
		ctx.Logger().Warnf("tick %d skipped: %v", w.ticks+1, err)
		return
	}
	w.flock.Integrate(dt)
	w.ticks++

	w.logBenchmarks(ctx)
	w.pushSnapshot()
}

// applyTunables merges a partial config into the live one. Capacity is
// fixed for the life of the actor; anything else can change between ticks.
func (w *FlockActor) applyTunables(ctx *actor.ReceiveContext, msg *structpb.Struct) {
	doc := msg.AsMap()
	if _, ok := doc["capacity"]; ok {
		ctx.Logger().Warn("capacity cannot change on a running flock, update ignored")
		return
	}

	prev := *w.cfg
	if err := w.cfg.Merge(doc); err != nil {
		ctx.Logger().Warnf("tunables rejected: %v", err)
		return
	}
	w.params = w.cfg.Params()

	if w.cfg.Count != prev.Count {
		if err := w.flock.Resize(w.cfg.Count, w.cfg.Volume, w.cfg.Speed, w.rng); err != nil {
			ctx.Logger().Errorf("resize failed: %v", err)
		}
	}
	if w.cfg.Neighbors != prev.Neighbors || w.cfg.BatchSize != prev.BatchSize || w.cfg.Workers != prev.Workers ||
		w.cfg.OctreeLeafCapacity != prev.OctreeLeafCapacity || w.cfg.OctreeMaxDepth != prev.OctreeMaxDepth {
		if err := w.rebuildPipeline(); err != nil {
			ctx.Logger().Errorf("pipeline rebuild failed: %v", err)
			*w.cfg = prev
			w.params = prev.Params()
			return
		}
		ctx.Logger().Infof("pipeline now using %s neighbors", w.pipeline.Finder().Name())
	}
}

func (w *FlockActor) state() StateReply {
	stats := w.pipeline.Stats()
	return StateReply{
		Tick:          w.ticks,
		Count:         w.flock.Count,
		Finder:        w.pipeline.Finder().Name(),
		MeanNeighbors: stats.MeanNeighbors,
		Centroid:      w.flock.Centroid(),
	}
}

func (w *FlockActor) logBenchmarks(ctx *actor.ReceiveContext) {
	w.ticksSinceLog++
	if elapsed := time.Since(w.lastLogTime); elapsed >= time.Second {
		stats := w.pipeline.Stats()
		ctx.Logger().Infof("TICK RATE: %.1f/sec | agents: %d | mean neighbors: %.1f | skipped: %d",
			float64(w.ticksSinceLog)/elapsed.Seconds(), stats.Count, stats.MeanNeighbors, w.skipped)
		w.ticksSinceLog = 0
		w.lastLogTime = time.Now()
	}
}

func (w *FlockActor) pushSnapshot() {
	if w.snapshotCh == nil {
		return
	}
	select {
	case w.snapshotCh <- newSnapshot(w.ticks, w.flock, w.cfg.Volume, w.pipeline.Stats()):
	default:
		// UI busy, skip frame
	}
}

func (w *FlockActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("flock stopped after %d ticks", w.ticks)
	return nil
}
