package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Sphere represents a sphere shape. Emission leaves both sides of the surface.
type Sphere struct {
	Binding
	Center core.Vec3
	Radius float64
}

// NewSphere creates a new sphere bound to the given BSDF
func NewSphere(center core.Vec3, radius float64, bsdfID int) *Sphere {
	return &Sphere{Binding: NewBinding(bsdfID), Center: center, Radius: radius}
}

func (s *Sphere) Kind() Kind { return KindSphere }

// Bounds returns the axis-aligned bounding box for this sphere
func (s *Sphere) Bounds() core.AABB {
	radius := core.Splat(s.Radius)
	return core.NewAABB(s.Center.Subtract(radius), s.Center.Add(radius))
}

// roots returns the ray parameters of the two intersections, nearest first
func (s *Sphere) roots(ray core.Ray) (float64, float64, bool) {
	oc := ray.Origin.Subtract(s.Center)

	// Quadratic equation coefficients: at² + 2bt + c = 0
	a := ray.Direction.LengthSquared()
	halfB := oc.Dot(ray.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius

	discriminant := halfB*halfB - a*c
	if discriminant < 0 {
		return 0, 0, false
	}
	sqrtD := math.Sqrt(discriminant)
	return (-halfB - sqrtD) / a, (-halfB + sqrtD) / a, true
}

// Intersect tests if a ray intersects with the sphere
func (s *Sphere) Intersect(ray *core.Ray, data *IntersectionTemporary) bool {
	t0, t1, ok := s.roots(*ray)
	if !ok {
		return false
	}

	// Try the closer intersection point first
	t := t0
	backside := false
	if t <= ray.NearT || t >= ray.FarT {
		t = t1
		backside = true
		if t <= ray.NearT || t >= ray.FarT {
			return false
		}
	}

	ray.FarT = t
	data.Primitive = s
	data.Backside = backside
	return true
}

func (s *Sphere) Occluded(ray core.Ray) bool {
	t0, t1, ok := s.roots(ray)
	if !ok {
		return false
	}
	return (t0 > ray.NearT && t0 < ray.FarT) || (t1 > ray.NearT && t1 < ray.FarT)
}

func (s *Sphere) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	// Calculate outward normal (from center to hit point)
	n := info.P.Subtract(s.Center).Multiply(1.0 / s.Radius)
	info.Ng = n
	info.Ns = n

	info.UV = sphereUV(n)
	info.Tangent = core.NewVec3(-n.Z, 0, n.X)
}

// sphereUV maps a unit direction to longitude/latitude coordinates
func sphereUV(n core.Vec3) core.Vec2 {
	phi := math.Atan2(n.Z, n.X)
	theta := math.Acos(math.Max(-1, math.Min(1, n.Y)))
	return core.NewVec2(phi*core.InvTwoPi+0.5, 1-theta*core.InvPi)
}

func (s *Sphere) HitBackside(data *IntersectionTemporary) bool { return data.Backside }

func (s *Sphere) IsInfinite() bool  { return false }
func (s *Sphere) IsSamplable() bool { return true }
func (s *Sphere) IsDirac() bool     { return false }

func (s *Sphere) Area() float64 {
	return 4 * math.Pi * s.Radius * s.Radius
}

func (s *Sphere) Power() float64 {
	return s.averageEmission() * s.Area() * math.Pi
}

func (s *Sphere) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	n := core.UniformSphere(sampler.Next2D())
	sample.P = s.Center.Add(n.Multiply(s.Radius))
	sample.Ng = n
	sample.Pdf = 1.0 / s.Area()
	sample.UV = sphereUV(n)
	sample.Weight = s.emission(sample.UV).Multiply(s.Area())
	return true
}

func (s *Sphere) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	return cosineDirection(sampler, point.Ng, sample)
}

// SampleDirect samples the cone subtended by the sphere when p is outside,
// and the surface area when p is inside
func (s *Sphere) SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	toCenter := s.Center.Subtract(p)
	distSq := toCenter.LengthSquared()
	rSq := s.Radius * s.Radius

	if distSq <= rSq {
		n := core.UniformSphere(sampler.Next2D())
		q := s.Center.Add(n.Multiply(s.Radius))
		d := q.Subtract(p)
		dist := d.Length()
		if dist == 0 {
			return false
		}
		d = d.Multiply(1 / dist)
		sample.D = d
		sample.Dist = dist
		sample.Pdf = areaToSolidAngle(1/s.Area(), dist, n.Dot(d))
		return sample.Pdf > 0
	}

	dist := math.Sqrt(distSq)
	cosThetaMax := math.Sqrt(math.Max(0, 1-rSq/distSq))
	local := core.UniformSphericalCap(sampler.Next2D(), cosThetaMax)
	frame := core.NewTangentFrame(toCenter.Multiply(1 / dist))
	sample.D = frame.ToGlobal(local)
	sample.Pdf = core.UniformSphericalCapPdf(cosThetaMax)

	ray := core.NewSegment(p, sample.D, 0, core.Infinity)
	t0, _, ok := s.roots(ray)
	if !ok {
		// Grazing directions at the cone boundary
		t0 = toCenter.Dot(sample.D)
	}
	sample.Dist = t0
	return true
}

func (s *Sphere) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64 {
	distSq := s.Center.Subtract(p).LengthSquared()
	rSq := s.Radius * s.Radius
	if distSq <= rSq {
		d := info.P.Subtract(p)
		dist := d.Length()
		if dist == 0 {
			return 0
		}
		return areaToSolidAngle(1/s.Area(), dist, info.Ng.Dot(d.Multiply(1/dist)))
	}
	cosThetaMax := math.Sqrt(math.Max(0, 1-rSq/distSq))
	return core.UniformSphericalCapPdf(cosThetaMax)
}

func (s *Sphere) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	return s.emission(info.UV)
}

func (s *Sphere) Prepare(sceneBounds core.AABB) {}
