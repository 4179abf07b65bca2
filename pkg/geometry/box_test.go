package geometry

import "testing"

func TestBox_MinMax(t *testing.T) {
	b := NewBox(Vector3D{0, 0, 0}, Vector3D{15, 10, 10})
	if got := b.Min(); !got.Eq(Vector3D{-15, -10, -10}) {
		t.Errorf("Min = %v", got)
	}
	if got := b.Max(); !got.Eq(Vector3D{15, 10, 10}) {
		t.Errorf("Max = %v", got)
	}
	if got := b.Size(); !got.Eq(Vector3D{30, 20, 20}) {
		t.Errorf("Size = %v", got)
	}

	c := NewBoxFromMinMax(Vector3D{-15, -10, -10}, Vector3D{15, 10, 10})
	if !c.Center.Eq(b.Center) || !c.HalfExtents.Eq(b.HalfExtents) {
		t.Errorf("NewBoxFromMinMax = %v; want %v", c, b)
	}
}

func TestBox_Contains(t *testing.T) {
	b := NewBox(Vector3D{1, 1, 1}, Vector3D{1, 1, 1})
	tests := []struct {
		name string
		p    Vector3D
		want bool
	}{
		{"center", Vector3D{1, 1, 1}, true},
		{"lower corner", Vector3D{0, 0, 0}, true},
		{"upper face", Vector3D{2, 1.5, 0.5}, true},
		{"just outside x", Vector3D{2.0001, 1, 1}, false},
		{"outside z", Vector3D{1, 1, -0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v; want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestBox_Intersects(t *testing.T) {
	a := NewBox(Zero, Vector3D{1, 1, 1})
	tests := []struct {
		name string
		b    Box
		want bool
	}{
		{"overlapping", NewBox(Vector3D{1.5, 0, 0}, Vector3D{1, 1, 1}), true},
		{"touching face", NewBox(Vector3D{2, 0, 0}, Vector3D{1, 1, 1}), true},
		{"disjoint", NewBox(Vector3D{5, 5, 5}, Vector3D{1, 1, 1}), false},
		{"disjoint on z only", NewBox(Vector3D{0, 0, 3}, Vector3D{1, 1, 1}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Intersects(tt.b); got != tt.want {
				t.Errorf("Intersects(%v) = %v; want %v", tt.b, got, tt.want)
			}
		})
	}
	if !a.ContainsBox(NewBox(Zero, Vector3D{0.5, 0.5, 0.5})) {
		t.Error("ContainsBox failed for inner box")
	}
}

func TestBox_Octants(t *testing.T) {
	b := NewBox(Zero, Vector3D{2, 2, 2})
	for i := 0; i < 8; i++ {
		o := b.Octant(i)
		if !b.ContainsBox(o) {
			t.Errorf("octant %d %v not inside parent", i, o)
		}
		if got := b.OctantIndex(o.Center); got != i {
			t.Errorf("OctantIndex(center of octant %d) = %d", i, got)
		}
	}
	if got := b.OctantIndex(Vector3D{1, -1, 1}); got != 5 {
		t.Errorf("OctantIndex((1,-1,1)) = %d; want 5", got)
	}
}
