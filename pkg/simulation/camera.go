package simulation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/geometry"
)

const maxPitch = math.Pi/2 - 0.05

// Camera orbits a target point and projects world positions to screen
// pixels with a perspective transform.
type Camera struct {
	Target   mgl64.Vec3
	Distance float64
	Yaw      float64 // around the world Y axis
	Pitch    float64 // above the XZ plane
	FovY     float64 // radians

	Width, Height float64 // viewport in pixels

	viewProj mgl64.Mat4
	dirty    bool
}

// NewCamera frames the whole volume in a width x height viewport.
func NewCamera(volume geometry.Box, width, height int) *Camera {
	h := volume.HalfExtents
	radius := math.Sqrt(h.X*h.X + h.Y*h.Y + h.Z*h.Z)
	c := &Camera{
		Target:   mgl64.Vec3{volume.Center.X, volume.Center.Y, volume.Center.Z},
		Distance: 2.2 * radius,
		Yaw:      math.Pi / 6,
		Pitch:    math.Pi / 8,
		FovY:     mgl64.DegToRad(50),
		Width:    float64(width),
		Height:   float64(height),
		dirty:    true,
	}
	return c
}

// Eye is the camera position in world space.
func (c *Camera) Eye() mgl64.Vec3 {
	cp := math.Cos(c.Pitch)
	offset := mgl64.Vec3{
		c.Distance * cp * math.Sin(c.Yaw),
		c.Distance * math.Sin(c.Pitch),
		c.Distance * cp * math.Cos(c.Yaw),
	}
	return c.Target.Add(offset)
}

// Orbit rotates around the target; pitch stays short of the poles.
func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw = math.Mod(c.Yaw+dYaw, 2*math.Pi)
	c.Pitch = max(-maxPitch, min(maxPitch, c.Pitch+dPitch))
	c.dirty = true
}

// Zoom scales the distance to the target.
func (c *Camera) Zoom(factor float64) {
	if factor > 0 {
		c.Distance = max(c.Distance*factor, 0.1)
		c.dirty = true
	}
}

func (c *Camera) Resize(width, height int) {
	if float64(width) != c.Width || float64(height) != c.Height {
		c.Width, c.Height = float64(width), float64(height)
		c.dirty = true
	}
}

// ViewProjection returns projection * view.
func (c *Camera) ViewProjection() mgl64.Mat4 {
	if c.dirty {
		aspect := 1.0
		if c.Height > 0 {
			aspect = c.Width / c.Height
		}
		near := c.Distance * 0.01
		far := c.Distance * 10
		proj := mgl64.Perspective(c.FovY, aspect, near, far)
		view := mgl64.LookAtV(c.Eye(), c.Target, mgl64.Vec3{0, 1, 0})
		c.viewProj = proj.Mul4(view)
		c.dirty = false
	}
	return c.viewProj
}

// Project maps p to screen pixels, y down. ok is false for points behind
// the camera.
func (c *Camera) Project(p geometry.Vector3D) (x, y float64, ok bool) {
	clip := c.ViewProjection().Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	w := clip.W()
	if w <= 0 {
		return 0, 0, false
	}
	ndcX, ndcY := clip.X()/w, clip.Y()/w
	x = (ndcX + 1) / 2 * c.Width
	y = (1 - ndcY) / 2 * c.Height
	return x, y, true
}
