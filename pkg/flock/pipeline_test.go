package flock

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

func testParams() Params {
	return Params{
		SeparationWeight: 1,
		AlignmentWeight:  1,
		CohesionWeight:   1,
		VisibleRadius:    2,
		SeparationRadius: 1,
		Speed:            2,
		Volume:           testVolume,
	}
}

func randomFrame(seed uint64, n int) Frame {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	return Frame{
		Positions:  randomPositions(rng, n, testVolume),
		Velocities: randomVelocities(rng, n, 2),
		Count:      n,
		DeltaTime:  1.0 / 60,
		Params:     testParams(),
	}
}

func cloneFrame(f Frame) Frame {
	f.Positions = append([]geometry.Vector3D(nil), f.Positions...)
	f.Velocities = append([]geometry.Vector3D(nil), f.Velocities...)
	return f
}

// advance integrates positions the way a host would between ticks.
func advance(f Frame) {
	for i := 0; i < f.Count; i++ {
		f.Positions[i] = f.Positions[i].Add(f.Velocities[i].Mul(f.DeltaTime))
	}
}

func runTicks(t *testing.T, p *Pipeline, f Frame, ticks int) {
	t.Helper()
	for k := 0; k < ticks; k++ {
		if err := p.Tick(context.Background(), f); err != nil {
			t.Fatalf("tick %d: %v", k, err)
		}
		advance(f)
	}
}

func TestNewPipeline_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -5} {
		if _, err := NewPipeline(c); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("NewPipeline(%d) error = %v, want ErrInvalidCapacity", c, err)
		}
	}
}

func TestPipeline_TickErrors(t *testing.T) {
	p, err := NewPipeline(10)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		frame Frame
		want  error
	}{
		{"count above capacity", randomFrame(1, 11), ErrCountExceedsCapacity},
		{"short velocities", Frame{Positions: make([]geometry.Vector3D, 5), Velocities: make([]geometry.Vector3D, 4), Count: 5}, ErrBufferTooSmall},
		{"negative count", Frame{Count: -1}, ErrBufferTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := p.Tick(context.Background(), tt.frame); !errors.Is(err, tt.want) {
				t.Errorf("Tick() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPipeline_FindersAgree(t *testing.T) {
	const n, ticks = 1000, 5
	base := randomFrame(42, n)

	var reference Frame
	for _, name := range []string{FinderScan, FinderOctree, FinderKDTree} {
		t.Run(name, func(t *testing.T) {
			finder, err := NewNeighborFinder(name, n)
			if err != nil {
				t.Fatal(err)
			}
			p, err := NewPipeline(n, WithNeighborFinder(finder), WithScheduler(NewScheduler(32, 4)))
			if err != nil {
				t.Fatal(err)
			}
			f := cloneFrame(base)
			runTicks(t, p, f, ticks)

			if name == FinderScan {
				reference = f
				return
			}
			for i := 0; i < n; i++ {
				if !f.Velocities[i].EqTol(reference.Velocities[i], 1e-6) {
					t.Fatalf("agent %d: velocity %v, scan gave %v", i, f.Velocities[i], reference.Velocities[i])
				}
			}
		})
	}
}

func TestPipeline_DeterministicAcrossWorkers(t *testing.T) {
	const n = 700
	base := randomFrame(3, n)

	var reference []geometry.Vector3D
	for _, s := range []Scheduler{{BatchSize: n, Workers: 1}, {BatchSize: 7, Workers: 8}, {BatchSize: 64, Workers: 3}} {
		p, err := NewPipeline(n, WithScheduler(s))
		if err != nil {
			t.Fatal(err)
		}
		f := cloneFrame(base)
		runTicks(t, p, f, 3)
		if reference == nil {
			reference = f.Velocities
			continue
		}
		for i := range reference {
			if !f.Velocities[i].Eq(reference[i]) {
				t.Fatalf("batch=%d workers=%d: agent %d differs: %v vs %v",
					s.BatchSize, s.Workers, i, f.Velocities[i], reference[i])
			}
		}
	}
}

func TestPipeline_OnlyActiveSlotsChange(t *testing.T) {
	const capacity, count = 50, 30
	f := randomFrame(9, capacity)
	f.Count = count
	before := append([]geometry.Vector3D(nil), f.Velocities...)
	positions := append([]geometry.Vector3D(nil), f.Positions...)

	p, err := NewPipeline(capacity)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Tick(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	for i := count; i < capacity; i++ {
		if !f.Velocities[i].Eq(before[i]) {
			t.Errorf("inactive slot %d changed", i)
		}
	}
	for i := range positions {
		if !f.Positions[i].Eq(positions[i]) {
			t.Fatalf("position %d was written", i)
		}
	}
}

func TestPipeline_SkippedTickLeavesVelocities(t *testing.T) {
	f := randomFrame(5, 100)
	before := append([]geometry.Vector3D(nil), f.Velocities...)
	p, _ := NewPipeline(100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Tick(ctx, f); !errors.Is(err, context.Canceled) {
		t.Fatalf("Tick() error = %v, want context.Canceled", err)
	}
	for i := range before {
		if !f.Velocities[i].Eq(before[i]) {
			t.Fatalf("velocity %d changed on a skipped tick", i)
		}
	}
}

func TestPipeline_EmptyFlock(t *testing.T) {
	p, _ := NewPipeline(4)
	if err := p.Tick(context.Background(), Frame{Params: testParams(), DeltaTime: 0.1}); err != nil {
		t.Fatalf("Tick() on empty flock error = %v", err)
	}
	if s := p.Stats(); s.Count != 0 || s.Neighbors != 0 || s.Tick != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestPipeline_FirstTickFromRest(t *testing.T) {
	// a host starting from zero velocities still gets every slot written
	f := randomFrame(8, 200)
	for i := range f.Velocities {
		f.Velocities[i] = geometry.Zero
	}
	p, _ := NewPipeline(200)
	if err := p.Tick(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	for i, v := range f.Velocities {
		if !v.IsFinite() {
			t.Fatalf("agent %d: non-finite velocity %v", i, v)
		}
	}
}

func TestPipeline_StatsAndLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	p, err := NewPipeline(100, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatal(err)
	}
	f := randomFrame(6, 100)
	if err := p.Tick(context.Background(), f); err != nil {
		t.Fatal(err)
	}

	s := p.Stats()
	if s.Tick != 1 || s.Count != 100 || s.Finder != FinderOctree {
		t.Errorf("Stats() = %+v", s)
	}
	wantStages := []string{"index-build", "flocking-force", "velocity-apply"}
	if len(s.Stages) != len(wantStages) {
		t.Fatalf("stages = %+v, want %v", s.Stages, wantStages)
	}
	for i, name := range wantStages {
		if s.Stages[i].Name != name {
			t.Errorf("stage %d = %q, want %q", i, s.Stages[i].Name, name)
		}
	}
	if got := logs.FilterMessage("tick").Len(); got != 1 {
		t.Errorf("%d debug tick entries, want 1", got)
	}
}

func TestPipeline_ScanHasNoIndexStage(t *testing.T) {
	p, _ := NewPipeline(10, WithNeighborFinder(NewExhaustiveFinder()))
	if err := p.Tick(context.Background(), randomFrame(2, 10)); err != nil {
		t.Fatal(err)
	}
	if st := p.Stats().Stages; len(st) != 2 || st[0].Name != "flocking-force" {
		t.Errorf("stages = %+v", st)
	}
}

func BenchmarkPipeline_Tick(b *testing.B) {
	for _, n := range []int{1000, 5000} {
		for _, name := range []string{FinderScan, FinderOctree, FinderKDTree} {
			if name == FinderScan && n > 1000 {
				continue
			}
			b.Run(fmt.Sprintf("%s/n=%d", name, n), func(b *testing.B) {
				finder, _ := NewNeighborFinder(name, n)
				p, _ := NewPipeline(n, WithNeighborFinder(finder))
				f := randomFrame(1, n)
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					_ = p.Tick(context.Background(), f)
				}
			})
		}
	}
}
