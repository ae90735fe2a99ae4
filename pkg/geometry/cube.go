package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Cube is an axis-aligned box given by its center and half extents. It is the
// usual container for participating media.
type Cube struct {
	Binding
	Center      core.Vec3
	HalfExtents core.Vec3
	faceAreas   *core.Distribution1D
	area        float64
}

// NewCube creates an axis-aligned box
func NewCube(center, halfExtents core.Vec3, bsdfID int) *Cube {
	h := halfExtents
	axisAreas := []float64{4 * h.Y * h.Z, 4 * h.X * h.Z, 4 * h.X * h.Y}
	faces := make([]float64, 6)
	for i := range faces {
		faces[i] = axisAreas[i/2]
	}
	return &Cube{
		Binding:     NewBinding(bsdfID),
		Center:      center,
		HalfExtents: halfExtents,
		faceAreas:   core.NewDistribution1D(faces),
		area:        2 * (axisAreas[0] + axisAreas[1] + axisAreas[2]),
	}
}

// NewCubeFromBounds creates a box covering the given bounds
func NewCubeFromBounds(bounds core.AABB, bsdfID int) *Cube {
	return NewCube(bounds.Center(), bounds.Size().Multiply(0.5), bsdfID)
}

func (c *Cube) Kind() Kind { return KindCube }

func (c *Cube) Bounds() core.AABB {
	return core.NewAABB(c.Center.Subtract(c.HalfExtents), c.Center.Add(c.HalfExtents))
}

func (c *Cube) Intersect(ray *core.Ray, data *IntersectionTemporary) bool {
	t0, t1, ok := c.Bounds().Intersect(*ray, math.Inf(-1), math.Inf(1))
	if !ok {
		return false
	}
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
	data.Primitive = c
	data.Backside = backside
	data.Face = c.faceAt(ray.At(t))
	return true
}

func (c *Cube) Occluded(ray core.Ray) bool {
	t0, t1, ok := c.Bounds().Intersect(ray, math.Inf(-1), math.Inf(1))
	if !ok {
		return false
	}
	return (t0 > ray.NearT && t0 < ray.FarT) || (t1 > ray.NearT && t1 < ray.FarT)
}

// faceAt returns 2*axis for the negative face and 2*axis+1 for the positive one
func (c *Cube) faceAt(p core.Vec3) int {
	local := p.Subtract(c.Center)
	best, bestDist := 0, math.Inf(-1)
	for axis := 0; axis < 3; axis++ {
		d := math.Abs(local.Get(axis)) / c.HalfExtents.Get(axis)
		if d > bestDist {
			best, bestDist = axis, d
		}
	}
	if local.Get(best) > 0 {
		return 2*best + 1
	}
	return 2 * best
}

func faceNormal(face int) core.Vec3 {
	sign := -1.0
	if face&1 == 1 {
		sign = 1.0
	}
	switch face / 2 {
	case 0:
		return core.NewVec3(sign, 0, 0)
	case 1:
		return core.NewVec3(0, sign, 0)
	default:
		return core.NewVec3(0, 0, sign)
	}
}

func (c *Cube) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	n := faceNormal(data.Face)
	info.Ng = n
	info.Ns = n

	axis := data.Face / 2
	uAxis, vAxis := (axis+1)%3, (axis+2)%3
	local := info.P.Subtract(c.Center)
	info.UV = core.NewVec2(
		0.5+0.5*local.Get(uAxis)/c.HalfExtents.Get(uAxis),
		0.5+0.5*local.Get(vAxis)/c.HalfExtents.Get(vAxis),
	)
	tangent := core.Vec3{}
	switch uAxis {
	case 0:
		tangent.X = 1
	case 1:
		tangent.Y = 1
	default:
		tangent.Z = 1
	}
	info.Tangent = tangent
}

func (c *Cube) HitBackside(data *IntersectionTemporary) bool { return data.Backside }

func (c *Cube) IsInfinite() bool  { return false }
func (c *Cube) IsSamplable() bool { return true }
func (c *Cube) IsDirac() bool     { return false }
func (c *Cube) Area() float64     { return c.area }

func (c *Cube) Power() float64 {
	return c.averageEmission() * c.area * math.Pi
}

// samplePoint picks a face by area and a uniform point on it
func (c *Cube) samplePoint(sampler core.PathSampleGenerator) (core.Vec3, core.Vec3, core.Vec2) {
	face, _ := c.faceAreas.Sample(sampler.Next1D())
	n := faceNormal(face)
	axis := face / 2
	uAxis, vAxis := (axis+1)%3, (axis+2)%3
	uv := sampler.Next2D()

	local := [3]float64{}
	local[axis] = n.Get(axis) * c.HalfExtents.Get(axis)
	local[uAxis] = (2*uv.X - 1) * c.HalfExtents.Get(uAxis)
	local[vAxis] = (2*uv.Y - 1) * c.HalfExtents.Get(vAxis)
	p := c.Center.Add(core.NewVec3(local[0], local[1], local[2]))
	return p, n, uv
}

func (c *Cube) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	p, n, uv := c.samplePoint(sampler)
	sample.P = p
	sample.Ng = n
	sample.UV = uv
	sample.Pdf = 1 / c.area
	sample.Weight = c.emission(uv).Multiply(c.area)
	return true
}

func (c *Cube) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	return cosineDirection(sampler, point.Ng, sample)
}

func (c *Cube) SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	target, n, _ := c.samplePoint(sampler)
	d := target.Subtract(p)
	dist := d.Length()
	if dist == 0 {
		return false
	}
	d = d.Multiply(1 / dist)

	// Faces turned away are hidden behind the box itself
	cosLight := -d.Dot(n)
	if cosLight <= 0 {
		return false
	}
	sample.D = d
	sample.Dist = dist
	sample.Pdf = areaToSolidAngle(1/c.area, dist, cosLight)
	return true
}

func (c *Cube) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64 {
	d := info.P.Subtract(p)
	dist := d.Length()
	if dist == 0 {
		return 0
	}
	return areaToSolidAngle(1/c.area, dist, info.Ng.Dot(d.Multiply(1/dist)))
}

func (c *Cube) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	if data.Backside {
		return core.Vec3{}
	}
	return c.emission(info.UV)
}

func (c *Cube) Prepare(sceneBounds core.AABB) {}
