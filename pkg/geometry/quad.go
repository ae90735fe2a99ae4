package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Quad represents a parallelogram defined by a corner and two edge vectors.
// The geometric normal is U × V; emission leaves the front side only.
type Quad struct {
	Binding
	Corner core.Vec3 // One corner of the quad
	U      core.Vec3 // First edge vector
	V      core.Vec3 // Second edge vector
	Normal core.Vec3 // Normal vector (computed from U × V)
	D      float64   // Plane equation constant: n · x = d
	W      core.Vec3 // Cached vector for planar coordinates
	area   float64
}

// NewQuad creates a new quad from a corner point and two edge vectors
func NewQuad(corner, u, v core.Vec3, bsdfID int) *Quad {
	cross := u.Cross(v)
	normal := cross.Normalize()

	return &Quad{
		Binding: NewBinding(bsdfID),
		Corner:  corner,
		U:       u,
		V:       v,
		Normal:  normal,
		D:       normal.Dot(corner),
		W:       cross.Multiply(1.0 / cross.Dot(cross)),
		area:    cross.Length(),
	}
}

func (q *Quad) Kind() Kind { return KindQuad }

func (q *Quad) Bounds() core.AABB {
	return core.NewAABBFromPoints(q.Corner, q.Corner.Add(q.U), q.Corner.Add(q.V), q.Corner.Add(q.U).Add(q.V))
}

// hit returns the ray parameter and planar coordinates of the plane hit
func (q *Quad) hit(ray core.Ray) (float64, float64, float64, bool) {
	denominator := ray.Direction.Dot(q.Normal)

	// Ray is parallel to the quad
	if math.Abs(denominator) < 1e-12 {
		return 0, 0, 0, false
	}

	t := (q.D - ray.Origin.Dot(q.Normal)) / denominator
	if t <= ray.NearT || t >= ray.FarT {
		return 0, 0, 0, false
	}

	hitVector := ray.At(t).Subtract(q.Corner)
	alpha := q.W.Dot(hitVector.Cross(q.V))
	beta := q.W.Dot(q.U.Cross(hitVector))
	if alpha < 0 || alpha > 1 || beta < 0 || beta > 1 {
		return 0, 0, 0, false
	}
	return t, alpha, beta, true
}

func (q *Quad) Intersect(ray *core.Ray, data *IntersectionTemporary) bool {
	t, alpha, beta, ok := q.hit(*ray)
	if !ok {
		return false
	}
	ray.FarT = t
	data.Primitive = q
	data.Bary = core.NewVec2(alpha, beta)
	data.Backside = ray.Direction.Dot(q.Normal) > 0
	return true
}

func (q *Quad) Occluded(ray core.Ray) bool {
	_, _, _, ok := q.hit(ray)
	return ok
}

func (q *Quad) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	info.Ng = q.Normal
	info.Ns = q.Normal
	info.UV = data.Bary
	info.Tangent = q.U
}

func (q *Quad) HitBackside(data *IntersectionTemporary) bool { return data.Backside }

func (q *Quad) IsInfinite() bool  { return false }
func (q *Quad) IsSamplable() bool { return true }
func (q *Quad) IsDirac() bool     { return false }
func (q *Quad) Area() float64     { return q.area }

func (q *Quad) Power() float64 {
	return q.averageEmission() * q.area * math.Pi
}

func (q *Quad) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	uv := sampler.Next2D()
	sample.P = q.Corner.Add(q.U.Multiply(uv.X)).Add(q.V.Multiply(uv.Y))
	sample.Ng = q.Normal
	sample.UV = uv
	sample.Pdf = 1.0 / q.area
	sample.Weight = q.emission(uv).Multiply(q.area)
	return true
}

func (q *Quad) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	return cosineDirection(sampler, point.Ng, sample)
}

func (q *Quad) SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	// Points behind the emitting side receive nothing
	if q.Normal.Dot(p) <= q.D {
		return false
	}

	uv := sampler.Next2D()
	target := q.Corner.Add(q.U.Multiply(uv.X)).Add(q.V.Multiply(uv.Y))
	d := target.Subtract(p)
	dist := d.Length()
	if dist == 0 {
		return false
	}
	d = d.Multiply(1 / dist)

	cosLight := -d.Dot(q.Normal)
	if cosLight <= 0 {
		return false
	}
	sample.D = d
	sample.Dist = dist
	sample.Pdf = areaToSolidAngle(1/q.area, dist, cosLight)
	return true
}

func (q *Quad) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64 {
	d := info.P.Subtract(p)
	dist := d.Length()
	if dist == 0 {
		return 0
	}
	return areaToSolidAngle(1/q.area, dist, q.Normal.Dot(d.Multiply(1/dist)))
}

func (q *Quad) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	if data.Backside {
		return core.Vec3{}
	}
	return q.emission(info.UV)
}

func (q *Quad) Prepare(sceneBounds core.AABB) {}
