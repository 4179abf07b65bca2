package flock

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/octree"
)

var testVolume = geometry.NewBox(geometry.Zero, geometry.Vector3D{X: 15, Y: 10, Z: 10})

func randomPositions(rng *rand.Rand, n int, b geometry.Box) []geometry.Vector3D {
	lo, size := b.Min(), b.Size()
	out := make([]geometry.Vector3D, n)
	for i := range out {
		out[i] = geometry.Vector3D{
			X: lo.X + rng.Float64()*size.X,
			Y: lo.Y + rng.Float64()*size.Y,
			Z: lo.Z + rng.Float64()*size.Z,
		}
	}
	return out
}

func randomVelocities(rng *rand.Rand, n int, speed float64) []geometry.Vector3D {
	out := make([]geometry.Vector3D, n)
	for i := range out {
		out[i] = geometry.Vector3D{
			X: rng.Float64()*2 - 1,
			Y: rng.Float64()*2 - 1,
			Z: rng.Float64()*2 - 1,
		}.Normalize().Mul(speed)
	}
	return out
}

// prepareFinder runs the finder's index-build stage the way a tick does.
func prepareFinder(t *testing.T, f NeighborFinder, positions []geometry.Vector3D, bounds geometry.Box) {
	t.Helper()
	st := f.Prepare(positions, bounds)
	if st == nil {
		return
	}
	if _, err := NewScheduler(16, 4).Run(context.Background(), len(positions), *st); err != nil {
		t.Fatalf("index build failed: %v", err)
	}
}

func neighborsWithin(positions []geometry.Vector3D, i int, candidates []int, r float64) []int {
	var out []int
	for _, j := range candidates {
		if j != i && positions[i].DistanceSquaredTo(positions[j]) < r*r {
			out = append(out, j)
		}
	}
	slices.Sort(out)
	return out
}

func TestNeighborFinders_MatchBruteForce(t *testing.T) {
	const n = 1500
	rng := rand.New(rand.NewPCG(7, 11))
	positions := randomPositions(rng, n, testVolume)
	all := allOthers(n)

	finders := []NeighborFinder{
		NewExhaustiveFinder(),
		NewOctreeFinder(n),
		NewOctreeFinder(n, octree.WithLeafCapacity(1), octree.WithMaxDepth(4)),
		NewKDTreeFinder(n),
	}
	for _, radius := range []float64{0.5, 2, 7} {
		for _, f := range finders {
			prepareFinder(t, f, positions, testVolume)
			s := &Scratch{}
			for i := 0; i < n; i += 13 {
				want := neighborsWithin(positions, i, all, radius)
				got := neighborsWithin(positions, i, f.Candidates(i, positions[i], radius, s), radius)
				if !slices.Equal(got, want) {
					t.Fatalf("%s r=%v agent %d: got %d neighbors, want %d", f.Name(), radius, i, len(got), len(want))
				}
			}
		}
	}
}

func TestNeighborFinders_OutsideVolume(t *testing.T) {
	// agents escaped the volume are still found by every finder
	positions := []geometry.Vector3D{
		{X: 14.9},
		{X: 15.5},
		{X: 16.2},
		{Y: -30},
	}
	for _, name := range []string{FinderOctree, FinderScan, FinderKDTree} {
		f, err := NewNeighborFinder(name, len(positions))
		if err != nil {
			t.Fatal(err)
		}
		prepareFinder(t, f, positions, testVolume)
		got := neighborsWithin(positions, 1, f.Candidates(1, positions[1], 1, &Scratch{}), 1)
		if want := []int{0, 2}; !slices.Equal(got, want) {
			t.Errorf("%s: neighbors of 1 = %v, want %v", name, got, want)
		}
	}
}

func TestNeighborFinders_Empty(t *testing.T) {
	for _, name := range []string{FinderOctree, FinderScan, FinderKDTree} {
		f, err := NewNeighborFinder(name, 4)
		if err != nil {
			t.Fatal(err)
		}
		prepareFinder(t, f, nil, testVolume)
		if got := f.Candidates(0, geometry.Zero, 5, &Scratch{}); len(got) != 0 {
			t.Errorf("%s: candidates in empty flock = %v", name, got)
		}
	}
}

func TestNewNeighborFinder(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", FinderOctree, false},
		{FinderOctree, FinderOctree, false},
		{FinderScan, FinderScan, false},
		{FinderKDTree, FinderKDTree, false},
		{"grid", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewNeighborFinder(tt.name, 10)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownFinder) {
					t.Errorf("NewNeighborFinder(%q) error = %v, want ErrUnknownFinder", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewNeighborFinder(%q) unexpected error: %v", tt.name, err)
			}
			if f.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", f.Name(), tt.want)
			}
		})
	}
}

func TestOctreeFinder_RebuildsEveryTick(t *testing.T) {
	f := NewOctreeFinder(2)
	positions := []geometry.Vector3D{{X: -10}, {X: 10}}
	prepareFinder(t, f, positions, testVolume)
	if f.Tree().Len() != 2 {
		t.Fatalf("tree holds %d elements, want 2", f.Tree().Len())
	}

	positions[1] = geometry.Vector3D{X: -9.5}
	prepareFinder(t, f, positions, testVolume)
	got := neighborsWithin(positions, 0, f.Candidates(0, positions[0], 1, &Scratch{}), 1)
	if !slices.Equal(got, []int{1}) {
		t.Errorf("after move, neighbors = %v, want [1]", got)
	}
	if f.Tree().Len() != 2 {
		t.Errorf("tree holds %d elements after rebuild, want 2", f.Tree().Len())
	}
}
