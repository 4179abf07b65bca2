package flock

import (
	"math"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Steer computes the new velocity of agent i from its candidate neighbors.
// Candidates may be a superset of the true neighbors: anything not strictly
// inside VisibleRadius, and i itself, is discarded here. It returns the new
// velocity and the number of true neighbors.
//
// Degenerate directions never produce NaN: normalizing a zero vector gives
// a zero contribution, and when the integrated velocity itself collapses to
// zero the agent keeps its previous heading at the floor speed.
func Steer(i int, positions, velocities []geometry.Vector3D, candidates []int, p Params, dt float64) (geometry.Vector3D, int) {
	pos := positions[i]
	vel := velocities[i]

	visibleSq := p.VisibleRadius * p.VisibleRadius
	separationSq := p.SeparationRadius * p.SeparationRadius

	var sumPosition, sumVelocity, separationVelocity geometry.Vector3D
	countInRange := 0

	for _, j := range candidates {
		if j == i {
			continue
		}
		other := positions[j]
		distSq := pos.DistanceSquaredTo(other)
		if !(distSq < visibleSq) {
			continue
		}

		sumPosition = sumPosition.Add(other)
		sumVelocity = sumVelocity.Add(velocities[j])
		countInRange++

		if distSq < separationSq {
			dist := math.Sqrt(distSq)
			push := pos.Sub(other).Normalize().Mul(p.SeparationRadius - dist)
			separationVelocity = separationVelocity.Add(push)
		}
	}

	// separationVelocity is a total push and is not averaged
	if countInRange > 0 {
		n := float64(countInRange)
		avgPosition := sumPosition.Mul(1 / n)
		avgVelocity := sumVelocity.Mul(1 / n)
		currentSpeed := vel.Len()

		alignment := avgVelocity.Normalize().Mul(currentSpeed).Sub(vel).Mul(p.AlignmentWeight)
		cohesion := avgPosition.Sub(pos).Normalize().Mul(currentSpeed).Sub(vel).Mul(p.CohesionWeight)
		separation := separationVelocity.Mul(p.SeparationWeight)

		acceleration := alignment.Add(cohesion).Add(separation)
		vel = vel.Add(acceleration.Mul(dt))
	}

	vel = Reflect(pos, vel, p.Volume)
	return floorSpeed(vel, velocities[i], p.Speed), countInRange
}

// Reflect negates each velocity component that carries the agent further
// out of the volume: at or below the lower bound moving down, or at or
// above the upper bound moving up. An agent outside but heading back in is
// left alone.
func Reflect(pos, vel geometry.Vector3D, volume geometry.Box) geometry.Vector3D {
	lo, hi := volume.Min(), volume.Max()
	for axis := 0; axis < 3; axis++ {
		p, v := pos.Component(axis), vel.Component(axis)
		if (p <= lo.Component(axis) && v < 0) || (p >= hi.Component(axis) && v > 0) {
			vel = vel.WithComponent(axis, -v)
		}
	}
	return vel
}

// floorSpeed applies max(speed, |v|) * normalize(v), falling back to the
// previous heading when v has no usable direction.
func floorSpeed(v, previous geometry.Vector3D, speed float64) geometry.Vector3D {
	if !v.IsFinite() || v.IsZero() {
		if !previous.IsFinite() || previous.IsZero() {
			return geometry.Zero
		}
		return previous.Normalize().Mul(speed)
	}
	return v.ClampMinSpeed(speed)
}
