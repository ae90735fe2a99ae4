package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Point is an isotropic point light. Its emission texture holds radiant
// intensity, so the radiance arriving from distance d is emission / d².
type Point struct {
	Binding
	Position core.Vec3
}

// NewPoint creates a point light
func NewPoint(position core.Vec3) *Point {
	return &Point{Binding: NewBinding(-1), Position: position}
}

func (p *Point) Kind() Kind { return KindPoint }

func (p *Point) Bounds() core.AABB {
	return core.NewAABB(p.Position, p.Position)
}

// Points cannot be hit by rays
func (p *Point) Intersect(ray *core.Ray, data *IntersectionTemporary) bool { return false }
func (p *Point) Occluded(ray core.Ray) bool                                { return false }

func (p *Point) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	n := info.W.Negate()
	info.Ng = n
	info.Ns = n
	info.UV = core.Vec2{}
	info.Tangent = core.NewTangentFrame(n).Tangent
}

func (p *Point) HitBackside(data *IntersectionTemporary) bool { return false }

func (p *Point) IsInfinite() bool  { return false }
func (p *Point) IsSamplable() bool { return true }
func (p *Point) IsDirac() bool     { return true }
func (p *Point) Area() float64     { return 0 }

func (p *Point) Power() float64 {
	return p.averageEmission() * 4 * math.Pi
}

func (p *Point) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	sample.P = p.Position
	sample.Ng = core.NewVec3(0, 0, 1)
	sample.UV = core.Vec2{}
	sample.Pdf = 1
	sample.Weight = p.emission(core.Vec2{}).Multiply(4 * math.Pi)
	return true
}

func (p *Point) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	sample.D = core.UniformSphere(sampler.Next2D())
	sample.Pdf = core.UniformSpherePdf()
	sample.Weight = core.Splat(1)
	return true
}

// SampleDirect returns the direction to the light. The pdf carries the
// inverse-square falloff so that EvalDirect / Pdf is the incident radiance.
func (p *Point) SampleDirect(x core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	d := p.Position.Subtract(x)
	distSq := d.LengthSquared()
	if distSq == 0 {
		return false
	}
	dist := math.Sqrt(distSq)
	sample.D = d.Multiply(1 / dist)
	sample.Dist = dist
	sample.Pdf = distSq
	return true
}

func (p *Point) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, x core.Vec3) float64 {
	return 0
}

func (p *Point) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	return p.emission(core.Vec2{})
}

func (p *Point) Prepare(sceneBounds core.AABB) {}
