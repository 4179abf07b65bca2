// Package octree provides a bounded octree over point elements, rebuilt from
// scratch every tick and queried with axis-aligned boxes.
//
// All inserts must complete before queries start. Once built, the tree is
// read-only and RangeQuery may be called from any number of goroutines.
package octree

import (
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

const (
	DefaultLeafCapacity = 8
	DefaultMaxDepth     = 10

	noChildren = -1

	// child boxes are grown by this relative amount so that rounding in the
	// octant split never leaves a point on a seam outside its own leaf
	looseness = 1e-9
)

// Element is a (position, id) pair stored in the tree.
type Element struct {
	ID  int
	Pos geometry.Vector3D
}

type node struct {
	bounds   geometry.Box
	children int // index of the first of 8 contiguous children, or noChildren
	depth    int
	elems    []Element
}

// Octree is a flat-array octree. Nodes live in one slice and refer to their
// children by index, so a Reset truncates the slice and the next build reuses
// its backing array and the leaves' element slices.
type Octree struct {
	nodes        []node
	overflow     []Element // inserted outside the root bounds
	count        int
	leafCapacity int
	maxDepth     int
}

// Option configures an Octree.
type Option func(*Octree)

// WithLeafCapacity sets how many elements a leaf holds before splitting.
func WithLeafCapacity(n int) Option {
	return func(t *Octree) {
		if n > 0 {
			t.leafCapacity = n
		}
	}
}

// WithMaxDepth bounds the tree depth; leaves at this depth never split.
func WithMaxDepth(d int) Option {
	return func(t *Octree) {
		if d >= 0 {
			t.maxDepth = d
		}
	}
}

// New creates an empty octree covering bounds.
func New(bounds geometry.Box, opts ...Option) *Octree {
	t := &Octree{
		leafCapacity: DefaultLeafCapacity,
		maxDepth:     DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset(bounds)
	return t
}

// Reset drops every element and node and sets new root bounds.
func (t *Octree) Reset(bounds geometry.Box) {
	t.nodes = t.nodes[:0]
	t.overflow = t.overflow[:0]
	t.count = 0
	t.newNode(bounds, 0)
}

// Bounds returns the root volume.
func (t *Octree) Bounds() geometry.Box {
	return t.nodes[0].bounds
}

// Len returns the number of inserted elements.
func (t *Octree) Len() int {
	return t.count
}

// NodeCount returns the number of allocated nodes, leaves included.
func (t *Octree) NodeCount() int {
	return len(t.nodes)
}

// newNode appends a leaf, reusing the element slice left over from a
// previous build when the backing array still has room.
func (t *Octree) newNode(bounds geometry.Box, depth int) int {
	idx := len(t.nodes)
	if idx < cap(t.nodes) {
		t.nodes = t.nodes[:idx+1]
		n := &t.nodes[idx]
		n.bounds = bounds
		n.children = noChildren
		n.depth = depth
		n.elems = n.elems[:0]
		return idx
	}
	t.nodes = append(t.nodes, node{bounds: bounds, children: noChildren, depth: depth})
	return idx
}

// Insert adds one element. Elements outside the root bounds are kept in an
// overflow list that every query scans, so they are never lost.
func (t *Octree) Insert(e Element) {
	t.count++
	if !t.nodes[0].bounds.Contains(e.Pos) {
		t.overflow = append(t.overflow, e)
		return
	}

	idx := 0
	for {
		n := &t.nodes[idx]
		if n.children != noChildren {
			idx = n.children + n.bounds.OctantIndex(e.Pos)
			continue
		}
		n.elems = append(n.elems, e)
		if len(n.elems) > t.leafCapacity && n.depth < t.maxDepth {
			t.split(idx)
		}
		return
	}
}

// InsertBatch adds every element of elems.
func (t *Octree) InsertBatch(elems []Element) {
	for _, e := range elems {
		t.Insert(e)
	}
}

// split turns leaf idx into an internal node and redistributes its
// elements. Children that end up over capacity are split in turn.
func (t *Octree) split(idx int) {
	bounds := t.nodes[idx].bounds
	depth := t.nodes[idx].depth + 1

	first := len(t.nodes)
	for i := 0; i < 8; i++ {
		child := bounds.Octant(i)
		child.HalfExtents = child.HalfExtents.Mul(1 + looseness)
		t.newNode(child, depth)
	}

	// t.nodes may have been reallocated above
	parent := &t.nodes[idx]
	for _, e := range parent.elems {
		c := &t.nodes[first+bounds.OctantIndex(e.Pos)]
		c.elems = append(c.elems, e)
	}
	parent.elems = parent.elems[:0]
	parent.children = first

	for i := 0; i < 8; i++ {
		c := first + i
		if len(t.nodes[c].elems) > t.leafCapacity && depth < t.maxDepth {
			t.split(c)
		}
	}
}

// RangeQuery appends to dst every element whose position lies inside q
// (faces inclusive) and returns the extended slice. A box that misses the
// tree entirely yields dst unchanged.
func (t *Octree) RangeQuery(q geometry.Box, dst []Element) []Element {
	for _, e := range t.overflow {
		if q.Contains(e.Pos) {
			dst = append(dst, e)
		}
	}
	if t.count == len(t.overflow) {
		return dst
	}
	return t.query(0, q, dst)
}

func (t *Octree) query(idx int, q geometry.Box, dst []Element) []Element {
	n := &t.nodes[idx]
	if !n.bounds.Intersects(q) {
		return dst
	}
	if q.ContainsBox(n.bounds) {
		return t.collect(idx, dst)
	}
	if n.children == noChildren {
		for _, e := range n.elems {
			if q.Contains(e.Pos) {
				dst = append(dst, e)
			}
		}
		return dst
	}
	for i := 0; i < 8; i++ {
		dst = t.query(n.children+i, q, dst)
	}
	return dst
}

// collect appends every element below idx without testing positions.
func (t *Octree) collect(idx int, dst []Element) []Element {
	n := &t.nodes[idx]
	if n.children == noChildren {
		return append(dst, n.elems...)
	}
	for i := 0; i < 8; i++ {
		dst = t.collect(n.children+i, dst)
	}
	return dst
}
