package geometry

import "fmt"

// Box is an axis-aligned bounding box described by its center and
// half-extents. It is used both as the containment volume of the flock and
// as the query shape of the spatial index.
type Box struct {
	Center      Vector3D `json:"center" toml:"center"`
	HalfExtents Vector3D `json:"halfExtents" toml:"halfExtents"`
}

// NewBox creates a box from its center and half-extents.
func NewBox(center, halfExtents Vector3D) Box {
	return Box{Center: center, HalfExtents: halfExtents}
}

// NewBoxFromMinMax creates a box spanning the two corners.
func NewBoxFromMinMax(lo, hi Vector3D) Box {
	return Box{
		Center:      lo.Add(hi).Mul(0.5),
		HalfExtents: hi.Sub(lo).Mul(0.5),
	}
}

// CubeAround returns the box centered at p with half-extent r on every axis.
func CubeAround(p Vector3D, r float64) Box {
	return Box{Center: p, HalfExtents: Vector3D{r, r, r}}
}

func (b Box) String() string {
	return fmt.Sprintf("[%s..%s]", b.Min(), b.Max())
}

// Min is the lower corner.
func (b Box) Min() Vector3D {
	return b.Center.Sub(b.HalfExtents)
}

// Max is the upper corner.
func (b Box) Max() Vector3D {
	return b.Center.Add(b.HalfExtents)
}

// Size is the full extent on each axis.
func (b Box) Size() Vector3D {
	return b.HalfExtents.Mul(2)
}

// Contains reports whether p lies inside the box. Faces are inclusive so a
// point exactly on the boundary is inside.
func (b Box) Contains(p Vector3D) bool {
	lo, hi := b.Min(), b.Max()
	return p.X >= lo.X && p.X <= hi.X &&
		p.Y >= lo.Y && p.Y <= hi.Y &&
		p.Z >= lo.Z && p.Z <= hi.Z
}

// Intersects reports whether the two boxes overlap (touching counts).
func (b Box) Intersects(other Box) bool {
	lo, hi := b.Min(), b.Max()
	olo, ohi := other.Min(), other.Max()
	return lo.X <= ohi.X && hi.X >= olo.X &&
		lo.Y <= ohi.Y && hi.Y >= olo.Y &&
		lo.Z <= ohi.Z && hi.Z >= olo.Z
}

// ContainsBox reports whether other lies entirely inside b.
func (b Box) ContainsBox(other Box) bool {
	return b.Contains(other.Min()) && b.Contains(other.Max())
}

// OctantIndex returns the child octant of p: bit 0 is set when p is on the
// upper side of the center on X, bit 1 for Y, bit 2 for Z.
func (b Box) OctantIndex(p Vector3D) int {
	i := 0
	if p.X >= b.Center.X {
		i |= 1
	}
	if p.Y >= b.Center.Y {
		i |= 2
	}
	if p.Z >= b.Center.Z {
		i |= 4
	}
	return i
}

// Octant returns child box i (see OctantIndex for the bit layout).
func (b Box) Octant(i int) Box {
	h := b.HalfExtents.Mul(0.5)
	c := b.Center
	off := Vector3D{-h.X, -h.Y, -h.Z}
	if i&1 != 0 {
		off.X = h.X
	}
	if i&2 != 0 {
		off.Y = h.Y
	}
	if i&4 != 0 {
		off.Z = h.Z
	}
	return Box{Center: c.Add(off), HalfExtents: h}
}
