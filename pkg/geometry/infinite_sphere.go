package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// InfiniteSphere is an environment emitter surrounding the scene. Its
// emission texture is looked up in longitude/latitude coordinates of the
// direction a ray escapes in.
type InfiniteSphere struct {
	Binding
	sceneRadius float64
	sceneCenter core.Vec3
}

// NewInfiniteSphere creates an environment emitter
func NewInfiniteSphere() *InfiniteSphere {
	return &InfiniteSphere{Binding: NewBinding(-1), sceneRadius: 1}
}

func (s *InfiniteSphere) Kind() Kind { return KindInfiniteSphere }

func (s *InfiniteSphere) Bounds() core.AABB {
	return core.NewAABB(core.Splat(math.Inf(-1)), core.Splat(math.Inf(1)))
}

// Intersect accepts any ray that has not hit anything else
func (s *InfiniteSphere) Intersect(ray *core.Ray, data *IntersectionTemporary) bool {
	if ray.FarT != core.Infinity {
		return false
	}
	data.Primitive = s
	data.Backside = false
	return true
}

func (s *InfiniteSphere) Occluded(ray core.Ray) bool { return false }

func (s *InfiniteSphere) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	d := info.W.Normalize()
	info.P = d
	info.Ng = d.Negate()
	info.Ns = info.Ng
	info.UV = sphereUV(d)
	info.Tangent = core.NewTangentFrame(info.Ng).Tangent
	info.Epsilon = 0
}

func (s *InfiniteSphere) HitBackside(data *IntersectionTemporary) bool { return false }

func (s *InfiniteSphere) IsInfinite() bool  { return true }
func (s *InfiniteSphere) IsSamplable() bool { return true }
func (s *InfiniteSphere) IsDirac() bool     { return false }
func (s *InfiniteSphere) Area() float64     { return 0 }

func (s *InfiniteSphere) Power() float64 {
	return s.averageEmission() * 4 * math.Pi * math.Pi * s.sceneRadius * s.sceneRadius
}

// SamplePosition picks a point on a disk facing a random direction just
// outside the scene, the usual way to emit from an environment
func (s *InfiniteSphere) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	d := core.UniformSphere(sampler.Next2D())
	xy := core.ConcentricDisk(sampler.Next2D())
	frame := core.NewTangentFrame(d)
	offset := frame.ToGlobal(core.NewVec3(xy.X*s.sceneRadius, xy.Y*s.sceneRadius, 0))
	sample.P = s.sceneCenter.Add(d.Multiply(s.sceneRadius)).Add(offset)
	sample.Ng = d.Negate()
	sample.UV = sphereUV(d.Negate())
	sample.Pdf = core.UniformSpherePdf() / (math.Pi * s.sceneRadius * s.sceneRadius)
	sample.Weight = s.emission(sample.UV).Multiply(1 / sample.Pdf)
	return true
}

func (s *InfiniteSphere) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	sample.D = point.Ng
	sample.Pdf = 1
	sample.Weight = core.Splat(1)
	return true
}

func (s *InfiniteSphere) SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	sample.D = core.UniformSphere(sampler.Next2D())
	sample.Dist = core.Infinity
	sample.Pdf = core.UniformSpherePdf()
	return true
}

func (s *InfiniteSphere) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64 {
	return core.UniformSpherePdf()
}

func (s *InfiniteSphere) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	return s.emission(info.UV)
}

func (s *InfiniteSphere) Prepare(sceneBounds core.AABB) {
	if !sceneBounds.IsValid() {
		return
	}
	s.sceneCenter = sceneBounds.Center()
	s.sceneRadius = math.Max(sceneBounds.Size().Length()*0.5, 1e-3)
}
