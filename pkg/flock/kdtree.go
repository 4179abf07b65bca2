package flock

import (
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// kdPoint is an agent position carrying its slot index through the tree.
type kdPoint struct {
	pos r3.Vec
	id  int
}

func coord(v r3.Vec, d int) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

var _ kdtree.Comparable = kdPoint{}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	return coord(p.pos, int(d)) - coord(q.pos, int(d))
}

func (p kdPoint) Dims() int { return 3 }

// Distance is squared, as kdtree.Point's is.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.pos, c.(kdPoint).pos))
}

type kdPoints []kdPoint

var _ kdtree.Interface = kdPoints(nil)

func (p kdPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p kdPoints) Len() int                      { return len(p) }
func (p kdPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p kdPoints) Pivot(d kdtree.Dim) int {
	pl := kdPlane{dim: int(d), points: p}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// kdPlane orders points along one axis for median partitioning.
type kdPlane struct {
	dim    int
	points kdPoints
}

func (p kdPlane) Len() int { return len(p.points) }
func (p kdPlane) Less(i, j int) bool {
	return coord(p.points[i].pos, p.dim) < coord(p.points[j].pos, p.dim)
}
func (p kdPlane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.points = p.points[start:end]
	return p
}

// KDTreeFinder answers neighbor queries with a gonum k-d tree and a distance
// keeper. It is an independent reference path next to the octree, also
// selectable at runtime.
type KDTreeFinder struct {
	points    kdPoints
	positions []geometry.Vector3D
	tree      *kdtree.Tree
}

func NewKDTreeFinder(capacity int) *KDTreeFinder {
	return &KDTreeFinder{points: make(kdPoints, capacity)}
}

func (f *KDTreeFinder) Name() string { return FinderKDTree }

func (f *KDTreeFinder) Prepare(positions []geometry.Vector3D, _ geometry.Box) *Stage {
	f.positions = positions
	if cap(f.points) < len(positions) {
		f.points = make(kdPoints, len(positions))
	}
	f.points = f.points[:len(positions)]

	return &Stage{
		Name:   "index-build",
		Batch:  f.snapshot,
		Serial: f.build,
	}
}

func (f *KDTreeFinder) snapshot(start, end int) {
	for i := start; i < end; i++ {
		f.points[i] = kdPoint{pos: f.positions[i].R3(), id: i}
	}
}

// build reorders f.points in place; the next snapshot rewrites every slot
// so the order left behind does not matter.
func (f *KDTreeFinder) build() {
	if len(f.points) == 0 {
		f.tree = nil
		return
	}
	f.tree = kdtree.New(f.points, false)
}

func (f *KDTreeFinder) Candidates(_ int, p geometry.Vector3D, radius float64, s *Scratch) []int {
	ids := s.IDs[:0]
	if f.tree == nil {
		s.IDs = ids
		return ids
	}
	keep := kdtree.NewDistKeeper(radius * radius)
	f.tree.NearestSet(keep, kdPoint{pos: p.R3(), id: -1})
	for _, c := range keep.Heap {
		// the keeper's sentinel carries no point
		if c.Comparable == nil {
			continue
		}
		ids = append(ids, c.Comparable.(kdPoint).id)
	}
	s.IDs = ids
	return ids
}
