package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon Precision constant.
// Any vector shorter than Epsilon is treated as having no direction.
const (
	Epsilon = 1e-9
)

// Vector3D represents a 3D vector or point in cartesian space.
// Fields are public because they are fundamental data, not internal state:
// v := Vector3D{X: 1, Y: 2, Z: 3}
type Vector3D struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
	Z float64 `json:"z" toml:"z"`
}

// Zero is the null vector.
var Zero = Vector3D{}

// NewVector creates a new Vector3D.
func NewVector(x, y, z float64) Vector3D {
	return Vector3D{X: x, Y: y, Z: z}
}

// FromR3 converts a gonum r3.Vec.
func FromR3(v r3.Vec) Vector3D {
	return Vector3D{X: v.X, Y: v.Y, Z: v.Z}
}

// R3 converts the vector to a gonum r3.Vec.
func (v Vector3D) R3() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// String implements the fmt.Stringer interface.
func (v Vector3D) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

// ---------------------------------------------------------------------
// Arithmetic Operations
// Value receivers, every operation returns a new Vector3D.
// ---------------------------------------------------------------------

// Add adds two vectors and returns the result.
func (v Vector3D) Add(other Vector3D) Vector3D {
	return Vector3D{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub subtracts the other vector from the current vector.
func (v Vector3D) Sub(other Vector3D) Vector3D {
	return Vector3D{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Mul scales the vector by a scalar value.
func (v Vector3D) Mul(scalar float64) Vector3D {
	return Vector3D{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

// Div scales the vector by 1/scalar.
// if scalar is zero it returns an Inf vector and an error.
func (v Vector3D) Div(scalar float64) (Vector3D, error) {
	if scalar == 0 {
		return Vector3D{math.Inf(1), math.Inf(1), math.Inf(1)}, errors.New("vector cannot be divided by zero")
	}
	return Vector3D{v.X / scalar, v.Y / scalar, v.Z / scalar}, nil
}

// Neg returns the opposite vector.
func (v Vector3D) Neg() Vector3D {
	return Vector3D{-v.X, -v.Y, -v.Z}
}

// Dot calculates the dot product of two vectors.
func (v Vector3D) Dot(other Vector3D) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross calculates the cross product v x other.
func (v Vector3D) Cross(other Vector3D) Vector3D {
	return Vector3D{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// ---------------------------------------------------------------------
// Magnitude and Normalization
// ---------------------------------------------------------------------

// LenSqr calculates the squared magnitude of the vector.
// Faster than Len() as it avoids the square root. Use for comparisons.
func (v Vector3D) LenSqr() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Len calculates the magnitude (length) of the vector.
func (v Vector3D) Len() float64 {
	return math.Sqrt(v.LenSqr())
}

// Normalize returns a unit vector in the same direction.
// Returns a zero vector if the length is effectively zero, so callers
// never see NaN coming out of a degenerate input.
func (v Vector3D) Normalize() Vector3D {
	l := v.Len()
	if l < Epsilon {
		return Vector3D{}
	}
	return v.Mul(1 / l)
}

// IsZero reports whether the vector is shorter than Epsilon.
func (v Vector3D) IsZero() bool {
	return v.LenSqr() < Epsilon*Epsilon
}

// ClampMinSpeed rescales v so that its length is at least speed,
// keeping its direction: max(speed, |v|) * normalize(v).
// A zero-length vector has no direction and is returned unchanged.
func (v Vector3D) ClampMinSpeed(speed float64) Vector3D {
	return v.Normalize().Mul(math.Max(speed, v.Len()))
}

// IsFinite reports whether no component is NaN or Inf.
func (v Vector3D) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// ---------------------------------------------------------------------
// Geometric Utilities
// ---------------------------------------------------------------------

// DistanceTo calculates the Euclidean distance to another vector.
func (v Vector3D) DistanceTo(other Vector3D) float64 {
	return v.Sub(other).Len()
}

// DistanceSquaredTo calculates the squared Euclidean distance to another vector.
func (v Vector3D) DistanceSquaredTo(other Vector3D) float64 {
	return v.Sub(other).LenSqr()
}

// Lerp (Linear Interpolate) calculates a point between v and target based on t [0, 1].
func (v Vector3D) Lerp(target Vector3D, t float64) Vector3D {
	return v.Add(target.Sub(v).Mul(t))
}

// Component returns the axis value for axis 0 (X), 1 (Y) or 2 (Z).
func (v Vector3D) Component(axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns a copy of v with the given axis set to value.
func (v Vector3D) WithComponent(axis int, value float64) Vector3D {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// ---------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------

// Eq checks if two vectors are approximately equal using the Epsilon constant.
func (v Vector3D) Eq(other Vector3D) bool {
	return math.Abs(v.X-other.X) <= Epsilon &&
		math.Abs(v.Y-other.Y) <= Epsilon &&
		math.Abs(v.Z-other.Z) <= Epsilon
}

// EqTol checks if two vectors are equal within tol on every axis.
func (v Vector3D) EqTol(other Vector3D, tol float64) bool {
	return math.Abs(v.X-other.X) <= tol &&
		math.Abs(v.Y-other.Y) <= tol &&
		math.Abs(v.Z-other.Z) <= tol
}
