package simulation

import (
	"fmt"
	"math/rand/v2"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Flock is the host-owned agent storage the pipeline borrows every tick.
// Both slices are sized to capacity once; only [0, Count) is active.
type Flock struct {
	Positions  []geometry.Vector3D
	Velocities []geometry.Vector3D
	Count      int
}

func NewFlock(capacity int) *Flock {
	return &Flock{
		Positions:  make([]geometry.Vector3D, capacity),
		Velocities: make([]geometry.Vector3D, capacity),
	}
}

func (f *Flock) Capacity() int {
	return len(f.Positions)
}

// Spawn replaces the whole population with count agents placed uniformly
// inside volume, each heading in a random direction at speed.
func (f *Flock) Spawn(count int, volume geometry.Box, speed float64, rng *rand.Rand) error {
	f.Count = 0
	return f.Resize(count, volume, speed, rng)
}

// Resize changes the active count. Agents kept keep their state; new slots
// are spawned like Spawn does.
func (f *Flock) Resize(count int, volume geometry.Box, speed float64, rng *rand.Rand) error {
	if count < 0 || count > f.Capacity() {
		return fmt.Errorf("%w: %d not in [0, %d]", flock.ErrCountExceedsCapacity, count, f.Capacity())
	}
	lo, size := volume.Min(), volume.Size()
	for i := f.Count; i < count; i++ {
		f.Positions[i] = geometry.Vector3D{
			X: lo.X + rng.Float64()*size.X,
			Y: lo.Y + rng.Float64()*size.Y,
			Z: lo.Z + rng.Float64()*size.Z,
		}
		f.Velocities[i] = randomHeading(rng).Mul(speed)
	}
	f.Count = count
	return nil
}

// randomHeading is uniform on the unit sphere.
func randomHeading(rng *rand.Rand) geometry.Vector3D {
	for {
		v := geometry.Vector3D{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
		if n := v.Normalize(); !n.IsZero() {
			return n
		}
	}
}

// Integrate moves every active agent along its velocity.
func (f *Flock) Integrate(dt float64) {
	for i := 0; i < f.Count; i++ {
		f.Positions[i] = f.Positions[i].Add(f.Velocities[i].Mul(dt))
	}
}

// Frame lends the active buffers to the pipeline for one tick.
func (f *Flock) Frame(dt float64, params flock.Params) flock.Frame {
	return flock.Frame{
		Positions:  f.Positions,
		Velocities: f.Velocities,
		Count:      f.Count,
		DeltaTime:  dt,
		Params:     params,
	}
}

// Centroid is the mean position of the active agents.
func (f *Flock) Centroid() geometry.Vector3D {
	if f.Count == 0 {
		return geometry.Zero
	}
	var sum geometry.Vector3D
	for i := 0; i < f.Count; i++ {
		sum = sum.Add(f.Positions[i])
	}
	return sum.Mul(1 / float64(f.Count))
}

// MeanSpeed is the mean velocity magnitude of the active agents.
func (f *Flock) MeanSpeed() float64 {
	if f.Count == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < f.Count; i++ {
		total += f.Velocities[i].Len()
	}
	return total / float64(f.Count)
}
