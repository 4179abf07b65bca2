package flock

import (
	"sync/atomic"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

// forceStage computes the new velocity of every agent into out. Each batch
// writes only its own slots; positions and velocities are only read.
func forceStage(f Frame, finder NeighborFinder, out []geometry.Vector3D, neighbors *atomic.Int64) Stage {
	positions := f.Positions[:f.Count]
	velocities := f.Velocities[:f.Count]
	params := f.Params
	dt := f.DeltaTime

	return Stage{
		Name: "flocking-force",
		Batch: func(start, end int) {
			s := getScratch()
			defer putScratch(s)

			var seen int64
			for i := start; i < end; i++ {
				candidates := finder.Candidates(i, positions[i], params.VisibleRadius, s)
				v, n := Steer(i, positions, velocities, candidates, params, dt)
				out[i] = v
				seen += int64(n)
			}
			neighbors.Add(seen)
		},
	}
}

// applyStage copies the output buffer back into the host velocities. It
// must only run after the force stage barrier.
func applyStage(f Frame, out []geometry.Vector3D) Stage {
	velocities := f.Velocities
	return Stage{
		Name: "velocity-apply",
		Batch: func(start, end int) {
			copy(velocities[start:end], out[start:end])
		},
	}
}
