package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Disk is a flat circle facing Normal. Emission leaves the front side only.
type Disk struct {
	Binding
	Center core.Vec3
	Normal core.Vec3
	Radius float64
	frame  core.TangentFrame
}

// NewDisk creates a disk with the given center, facing direction and radius
func NewDisk(center, normal core.Vec3, radius float64, bsdfID int) *Disk {
	n := normal.Normalize()
	return &Disk{
		Binding: NewBinding(bsdfID),
		Center:  center,
		Normal:  n,
		Radius:  radius,
		frame:   core.NewTangentFrame(n),
	}
}

func (d *Disk) Kind() Kind { return KindDisk }

func (d *Disk) Bounds() core.AABB {
	// Extent along each axis is radius * sqrt(1 - n_axis²)
	n := d.Normal
	extent := core.NewVec3(
		d.Radius*math.Sqrt(math.Max(0, 1-n.X*n.X)),
		d.Radius*math.Sqrt(math.Max(0, 1-n.Y*n.Y)),
		d.Radius*math.Sqrt(math.Max(0, 1-n.Z*n.Z)),
	)
	return core.NewAABB(d.Center.Subtract(extent), d.Center.Add(extent))
}

func (d *Disk) hit(ray core.Ray) (float64, core.Vec3, bool) {
	denominator := ray.Direction.Dot(d.Normal)
	if math.Abs(denominator) < 1e-12 {
		return 0, core.Vec3{}, false
	}
	t := d.Center.Subtract(ray.Origin).Dot(d.Normal) / denominator
	if t <= ray.NearT || t >= ray.FarT {
		return 0, core.Vec3{}, false
	}
	local := d.frame.ToLocal(ray.At(t).Subtract(d.Center))
	if local.X*local.X+local.Y*local.Y > d.Radius*d.Radius {
		return 0, core.Vec3{}, false
	}
	return t, local, true
}

func (d *Disk) Intersect(ray *core.Ray, data *IntersectionTemporary) bool {
	t, local, ok := d.hit(*ray)
	if !ok {
		return false
	}
	ray.FarT = t
	data.Primitive = d
	data.Bary = core.NewVec2(local.X, local.Y)
	data.Backside = ray.Direction.Dot(d.Normal) > 0
	return true
}

func (d *Disk) Occluded(ray core.Ray) bool {
	_, _, ok := d.hit(ray)
	return ok
}

func (d *Disk) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	info.Ng = d.Normal
	info.Ns = d.Normal
	info.Tangent = d.frame.Tangent
	x, y := data.Bary.X/d.Radius, data.Bary.Y/d.Radius
	info.UV = core.NewVec2(math.Atan2(y, x)*core.InvTwoPi+0.5, math.Sqrt(x*x+y*y))
}

func (d *Disk) HitBackside(data *IntersectionTemporary) bool { return data.Backside }

func (d *Disk) IsInfinite() bool  { return false }
func (d *Disk) IsSamplable() bool { return true }
func (d *Disk) IsDirac() bool     { return false }

func (d *Disk) Area() float64 {
	return math.Pi * d.Radius * d.Radius
}

func (d *Disk) Power() float64 {
	return d.averageEmission() * d.Area() * math.Pi
}

func (d *Disk) samplePoint(sampler core.PathSampleGenerator) (core.Vec3, core.Vec2) {
	xy := core.ConcentricDisk(sampler.Next2D())
	p := d.Center.Add(d.frame.ToGlobal(core.NewVec3(xy.X*d.Radius, xy.Y*d.Radius, 0)))
	uv := core.NewVec2(math.Atan2(xy.Y, xy.X)*core.InvTwoPi+0.5, math.Sqrt(xy.X*xy.X+xy.Y*xy.Y))
	return p, uv
}

func (d *Disk) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	p, uv := d.samplePoint(sampler)
	sample.P = p
	sample.Ng = d.Normal
	sample.UV = uv
	sample.Pdf = 1 / d.Area()
	sample.Weight = d.emission(uv).Multiply(d.Area())
	return true
}

func (d *Disk) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	return cosineDirection(sampler, point.Ng, sample)
}

func (d *Disk) SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	if p.Subtract(d.Center).Dot(d.Normal) <= 0 {
		return false
	}
	target, _ := d.samplePoint(sampler)
	dir := target.Subtract(p)
	dist := dir.Length()
	if dist == 0 {
		return false
	}
	dir = dir.Multiply(1 / dist)
	cosLight := -dir.Dot(d.Normal)
	if cosLight <= 0 {
		return false
	}
	sample.D = dir
	sample.Dist = dist
	sample.Pdf = areaToSolidAngle(1/d.Area(), dist, cosLight)
	return true
}

func (d *Disk) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64 {
	dir := info.P.Subtract(p)
	dist := dir.Length()
	if dist == 0 {
		return 0
	}
	return areaToSolidAngle(1/d.Area(), dist, d.Normal.Dot(dir.Multiply(1/dist)))
}

func (d *Disk) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	if data.Backside {
		return core.Vec3{}
	}
	return d.emission(info.UV)
}

func (d *Disk) Prepare(sceneBounds core.AABB) {}
