// Package flock computes per-tick steering velocities for a population of
// point agents (boids) and writes them back into host-owned storage.
//
// A tick runs three stages over contiguous batches of agent indices, with a
// barrier between stages: index build, flocking force, velocity apply.
// Agents are identified only by their slot index into the host's position
// and velocity slices; the pipeline reads positions, never writes them, and
// owns nothing but its velocity-output buffer.
package flock

import (
	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// Params holds the tunables read at the start of every tick. They may change
// between ticks. They are not validated here: negative radii or a zero
// speed are the host's responsibility.
type Params struct {
	SeparationWeight float64
	AlignmentWeight  float64
	CohesionWeight   float64

	VisibleRadius    float64 // neighbors are strictly closer than this
	SeparationRadius float64 // neighbors closer than this push away
	Speed            float64 // minimum cruising speed

	// Volume is both the reflection box and the spatial index bounds.
	Volume geometry.Box
}

// Frame is the host data borrowed for one tick. Positions are read only.
// Velocities are read during the force stage and overwritten in place by
// the apply stage.
type Frame struct {
	Positions  []geometry.Vector3D
	Velocities []geometry.Vector3D
	Count      int // active agents, slots [0, Count)
	DeltaTime  float64
	Params     Params
}
