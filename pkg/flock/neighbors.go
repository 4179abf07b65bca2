package flock

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/octree"
)

// Names accepted by NewNeighborFinder.
const (
	FinderOctree = "octree"
	FinderScan   = "scan"
	FinderKDTree = "kdtree"
)

var ErrUnknownFinder = errors.New("unknown neighbor finder")

// Scratch holds per-batch buffers, reused across the agents of one batch so
// neighbor discovery does not allocate per agent.
type Scratch struct {
	IDs   []int
	elems []octree.Element
}

var scratchPool = sync.Pool{
	New: func() any {
		return &Scratch{
			IDs:   make([]int, 0, 64),
			elems: make([]octree.Element, 0, 64),
		}
	},
}

func getScratch() *Scratch { return scratchPool.Get().(*Scratch) }

func putScratch(s *Scratch) {
	s.IDs = s.IDs[:0]
	s.elems = s.elems[:0]
	scratchPool.Put(s)
}

// NeighborFinder discovers candidate neighbors of an agent. Candidates may
// include agents farther than the radius and the agent itself; the force
// kernel filters them by exact distance.
type NeighborFinder interface {
	Name() string

	// Prepare is called once per tick, before any stage runs, with the
	// active positions. It returns the index-build stage, or nil when the
	// finder needs no index.
	Prepare(positions []geometry.Vector3D, bounds geometry.Box) *Stage

	// Candidates writes the candidate ids for an agent at p into s.IDs and
	// returns them. It is called concurrently from several batches once the
	// index-build stage has completed.
	Candidates(i int, p geometry.Vector3D, radius float64, s *Scratch) []int
}

// NewNeighborFinder builds the finder registered under name.
func NewNeighborFinder(name string, capacity int, opts ...octree.Option) (NeighborFinder, error) {
	switch name {
	case FinderOctree, "":
		return NewOctreeFinder(capacity, opts...), nil
	case FinderScan:
		return NewExhaustiveFinder(), nil
	case FinderKDTree:
		return NewKDTreeFinder(capacity), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFinder, name)
	}
}

// ---------------------------------------------------------------------
// Exhaustive scan
// ---------------------------------------------------------------------

// ExhaustiveFinder compares every agent against every other agent.
// O(n²) per tick but without any index maintenance, which wins for small
// populations.
type ExhaustiveFinder struct {
	count int
}

func NewExhaustiveFinder() *ExhaustiveFinder {
	return &ExhaustiveFinder{}
}

func (f *ExhaustiveFinder) Name() string { return FinderScan }

func (f *ExhaustiveFinder) Prepare(positions []geometry.Vector3D, _ geometry.Box) *Stage {
	f.count = len(positions)
	return nil
}

func (f *ExhaustiveFinder) Candidates(i int, _ geometry.Vector3D, _ float64, s *Scratch) []int {
	ids := s.IDs[:0]
	for j := 0; j < f.count; j++ {
		if j != i {
			ids = append(ids, j)
		}
	}
	s.IDs = ids
	return ids
}

// ---------------------------------------------------------------------
// Octree
// ---------------------------------------------------------------------

// OctreeFinder answers neighbor queries with a box range query against an
// octree rebuilt every tick.
type OctreeFinder struct {
	tree      *octree.Octree
	elements  []octree.Element
	positions []geometry.Vector3D
	bounds    geometry.Box
}

// NewOctreeFinder allocates the element buffer for capacity agents and the
// tree once; both are reused every tick.
func NewOctreeFinder(capacity int, opts ...octree.Option) *OctreeFinder {
	return &OctreeFinder{
		tree:     octree.New(geometry.Box{}, opts...),
		elements: make([]octree.Element, capacity),
	}
}

func (f *OctreeFinder) Name() string { return FinderOctree }

// Tree exposes the octree built by the last index-build stage.
func (f *OctreeFinder) Tree() *octree.Octree { return f.tree }

func (f *OctreeFinder) Prepare(positions []geometry.Vector3D, bounds geometry.Box) *Stage {
	f.positions = positions
	f.bounds = bounds
	if cap(f.elements) < len(positions) {
		f.elements = make([]octree.Element, len(positions))
	}
	f.elements = f.elements[:len(positions)]

	return &Stage{
		Name:   "index-build",
		Batch:  f.snapshot,
		Serial: f.insert,
	}
}

// snapshot fills the element slots [start, end); batches never overlap.
func (f *OctreeFinder) snapshot(start, end int) {
	for i := start; i < end; i++ {
		f.elements[i] = octree.Element{ID: i, Pos: f.positions[i]}
	}
}

// insert is the single-threaded bulk insert that follows the snapshot
// barrier.
func (f *OctreeFinder) insert() {
	f.tree.Reset(f.bounds)
	f.tree.InsertBatch(f.elements)
}

func (f *OctreeFinder) Candidates(_ int, p geometry.Vector3D, radius float64, s *Scratch) []int {
	s.elems = f.tree.RangeQuery(geometry.CubeAround(p, radius), s.elems[:0])
	ids := s.IDs[:0]
	for _, e := range s.elems {
		ids = append(ids, e.ID)
	}
	s.IDs = ids
	return ids
}
