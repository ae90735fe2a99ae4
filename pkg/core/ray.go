package core

import "math"

// Infinity is the far bound of an unbounded ray
var Infinity = math.Inf(1)

// DefaultNearT keeps primary rays from self-intersecting the lens
const DefaultNearT = 1e-4

// Ray is a parametric segment origin + t*direction for t in (NearT, FarT).
// Intersection queries narrow FarT to the closest hit.
type Ray struct {
	Origin    Vec3
	Direction Vec3
	NearT     float64
	FarT      float64
	Primary   bool // Cleared after the first non-specular bounce
}

// NewRay creates an unbounded ray
func NewRay(origin, direction Vec3) Ray {
	return Ray{Origin: origin, Direction: direction, NearT: DefaultNearT, FarT: Infinity}
}

// NewSegment creates a ray bounded to (nearT, farT)
func NewSegment(origin, direction Vec3, nearT, farT float64) Ray {
	return Ray{Origin: origin, Direction: direction, NearT: nearT, FarT: farT}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}

// Hitpoint returns the point at the far bound
func (r Ray) Hitpoint() Vec3 {
	return r.At(r.FarT)
}

// Scatter starts a new unbounded ray at p in direction d, inheriting the primary flag
func (r Ray) Scatter(p, d Vec3, nearT float64) Ray {
	return Ray{Origin: p, Direction: d, NearT: nearT, FarT: Infinity, Primary: r.Primary}
}
