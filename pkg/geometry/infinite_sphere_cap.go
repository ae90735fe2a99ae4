package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// InfiniteSphereCap is a distant emitter covering a cone of directions, such
// as the sun
type InfiniteSphereCap struct {
	Binding
	Direction   core.Vec3 // Toward the emitter
	CapAngle    float64   // Half angle in degrees
	cosThetaMax float64
	frame       core.TangentFrame
	sceneRadius float64
}

// NewInfiniteSphereCap creates a distant emitter seen under capAngle degrees
// (half angle) in the given direction
func NewInfiniteSphereCap(direction core.Vec3, capAngle float64) *InfiniteSphereCap {
	d := direction.Normalize()
	return &InfiniteSphereCap{
		Binding:     NewBinding(-1),
		Direction:   d,
		CapAngle:    capAngle,
		cosThetaMax: math.Cos(capAngle * math.Pi / 180),
		frame:       core.NewTangentFrame(d),
		sceneRadius: 1,
	}
}

func (c *InfiniteSphereCap) Kind() Kind { return KindInfiniteSphereCap }

func (c *InfiniteSphereCap) Bounds() core.AABB {
	return core.NewAABB(core.Splat(math.Inf(-1)), core.Splat(math.Inf(1)))
}

func (c *InfiniteSphereCap) Intersect(ray *core.Ray, data *IntersectionTemporary) bool {
	if ray.FarT != core.Infinity {
		return false
	}
	if ray.Direction.Normalize().Dot(c.Direction) < c.cosThetaMax {
		return false
	}
	data.Primitive = c
	data.Backside = false
	return true
}

func (c *InfiniteSphereCap) Occluded(ray core.Ray) bool { return false }

func (c *InfiniteSphereCap) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	d := info.W.Normalize()
	info.P = d
	info.Ng = d.Negate()
	info.Ns = info.Ng
	local := c.frame.ToLocal(d)
	info.UV = core.NewVec2(local.X*0.5+0.5, local.Y*0.5+0.5)
	info.Tangent = c.frame.Tangent
	info.Epsilon = 0
}

func (c *InfiniteSphereCap) HitBackside(data *IntersectionTemporary) bool { return false }

func (c *InfiniteSphereCap) IsInfinite() bool  { return true }
func (c *InfiniteSphereCap) IsSamplable() bool { return true }
func (c *InfiniteSphereCap) IsDirac() bool     { return false }
func (c *InfiniteSphereCap) Area() float64     { return 0 }

func (c *InfiniteSphereCap) solidAngle() float64 {
	return core.TwoPi * (1 - c.cosThetaMax)
}

func (c *InfiniteSphereCap) Power() float64 {
	return c.averageEmission() * c.solidAngle() * math.Pi * c.sceneRadius * c.sceneRadius
}

func (c *InfiniteSphereCap) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	xy := core.ConcentricDisk(sampler.Next2D())
	offset := c.frame.ToGlobal(core.NewVec3(xy.X*c.sceneRadius, xy.Y*c.sceneRadius, 0))
	sample.P = c.Direction.Multiply(c.sceneRadius).Add(offset)
	sample.Ng = c.Direction.Negate()
	sample.UV = core.NewVec2(0.5, 0.5)
	sample.Pdf = 1 / (math.Pi * c.sceneRadius * c.sceneRadius)
	sample.Weight = c.emission(sample.UV).Multiply(1 / sample.Pdf)
	return true
}

func (c *InfiniteSphereCap) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	local := core.UniformSphericalCap(sampler.Next2D(), c.cosThetaMax)
	sample.D = c.frame.ToGlobal(local).Negate()
	sample.Pdf = core.UniformSphericalCapPdf(c.cosThetaMax)
	sample.Weight = core.Splat(c.solidAngle())
	return true
}

func (c *InfiniteSphereCap) SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	local := core.UniformSphericalCap(sampler.Next2D(), c.cosThetaMax)
	sample.D = c.frame.ToGlobal(local)
	sample.Dist = core.Infinity
	sample.Pdf = core.UniformSphericalCapPdf(c.cosThetaMax)
	return true
}

func (c *InfiniteSphereCap) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64 {
	return core.UniformSphericalCapPdf(c.cosThetaMax)
}

func (c *InfiniteSphereCap) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	return c.emission(info.UV)
}

func (c *InfiniteSphereCap) Prepare(sceneBounds core.AABB) {
	if sceneBounds.IsValid() {
		c.sceneRadius = math.Max(sceneBounds.Size().Length()*0.5, 1e-3)
	}
}
