// Package geometry holds the ray-intersectable primitives, their direct
// lighting samplers, the bounding volume hierarchy and the camera.
package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/texture"
)

// Kind identifies a primitive implementation
type Kind int

const (
	KindTriangleMesh Kind = iota
	KindSphere
	KindQuad
	KindDisk
	KindCube
	KindPoint
	KindInfiniteSphere
	KindInfiniteSphereCap
)

var kindNames = map[Kind]string{
	KindTriangleMesh:      "mesh",
	KindSphere:            "sphere",
	KindQuad:              "quad",
	KindDisk:              "disk",
	KindCube:              "cube",
	KindPoint:             "point",
	KindInfiniteSphere:    "infinite_sphere",
	KindInfiniteSphereCap: "infinite_sphere_cap",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// DefaultEpsilon is the relative offset used to leave a surface
const DefaultEpsilon = 1e-5

// IntersectionTemporary is the per-query scratch record a primitive fills in
// Intersect and reads back in IntersectionInfo. It is a plain value so that
// queries never allocate.
type IntersectionTemporary struct {
	Primitive Primitive
	Bary      core.Vec2 // Triangle barycentrics or surface parameters
	Face      int       // Triangle index in a mesh, face index on a cube
	Backside  bool      // The ray arrived from the side opposite the geometric normal
}

// IntersectionInfo is the primitive-agnostic description of a hit
type IntersectionInfo struct {
	P         core.Vec3 // Hit position
	Ng        core.Vec3 // Geometric normal
	Ns        core.Vec3 // Shading normal
	Tangent   core.Vec3 // Direction of increasing u
	W         core.Vec3 // Direction of the incoming ray
	UV        core.Vec2
	Epsilon   float64
	Primitive Primitive
	BsdfID    int // Index into the scene's BSDFs, -1 for none
}

// Primitive is the closed set of scene shapes. Finite primitives live in the
// BVH; infinite ones are tested separately once every finite primitive has
// been missed.
type Primitive interface {
	Kind() Kind
	Bounds() core.AABB

	// Intersect finds the closest hit in (ray.NearT, ray.FarT), narrowing
	// ray.FarT and recording scratch state in data
	Intersect(ray *core.Ray, data *IntersectionTemporary) bool
	// Occluded reports whether anything blocks the segment
	Occluded(ray core.Ray) bool
	// IntersectionInfo completes info for a hit; info.P and info.W are set
	IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo)
	HitBackside(data *IntersectionTemporary) bool

	IsInfinite() bool
	IsSamplable() bool
	IsDirac() bool
	Area() float64
	// Power approximates emitted flux, used to weight light selection
	Power() float64

	SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool
	SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool
	// SampleDirect samples a direction from p toward the primitive
	SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool
	// DirectPdf is the solid-angle density of SampleDirect producing the hit in info
	DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64
	// EvalDirect returns the radiance emitted toward the hit's origin
	EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3

	// Prepare is called once before rendering with the bounds of all finite primitives
	Prepare(sceneBounds core.AABB)

	Bindings() *Binding
}

// Binding attaches a primitive to scene resources by index. A value of -1
// means "none".
type Binding struct {
	BsdfID    int
	IntMedium int // Medium on the back side of the geometric normal
	ExtMedium int // Medium on the front side
	Emission  texture.Texture
}

// NewBinding binds a BSDF with no media and no emission
func NewBinding(bsdfID int) Binding {
	return Binding{BsdfID: bsdfID, IntMedium: -1, ExtMedium: -1}
}

// Bindings returns the binding for in-place updates
func (b *Binding) Bindings() *Binding { return b }

// SetEmission makes the primitive an emitter
func (b *Binding) SetEmission(e texture.Texture) { b.Emission = e }

// SetMedia binds the interior and exterior media
func (b *Binding) SetMedia(intMedium, extMedium int) {
	b.IntMedium = intMedium
	b.ExtMedium = extMedium
}

// IsEmissive reports whether the primitive emits light
func (b *Binding) IsEmissive() bool {
	return b.Emission != nil && b.Emission.Average().MaxComponent() > 0
}

// OverridesMedia reports whether crossing the surface changes medium
func (b *Binding) OverridesMedia() bool {
	return b.IntMedium >= 0 || b.ExtMedium >= 0
}

// SelectMedium returns the medium a ray enters when it leaves the surface on
// the given side of the geometric normal
func (b *Binding) SelectMedium(current int, geometricBackside bool) int {
	if !b.OverridesMedia() {
		return current
	}
	if geometricBackside {
		return b.IntMedium
	}
	return b.ExtMedium
}

func (b *Binding) emission(uv core.Vec2) core.Vec3 {
	if b.Emission == nil {
		return core.Vec3{}
	}
	return b.Emission.Evaluate(uv)
}

func (b *Binding) averageEmission() float64 {
	if b.Emission == nil {
		return 0
	}
	return b.Emission.Average().Avg()
}

// CompleteInfo fills info for the hit recorded in data along ray
func CompleteInfo(ray core.Ray, data *IntersectionTemporary, info *IntersectionInfo) {
	p := data.Primitive
	info.P = ray.Hitpoint()
	info.W = ray.Direction
	info.Primitive = p
	info.BsdfID = p.Bindings().BsdfID
	info.Epsilon = DefaultEpsilon * math.Max(1, info.P.Abs().MaxComponent())
	p.IntersectionInfo(data, info)
}

// areaToSolidAngle converts an area density at a point seen from distance
// dist under cosine cosLight to a solid-angle density
func areaToSolidAngle(areaPdf, dist, cosLight float64) float64 {
	cosLight = math.Abs(cosLight)
	if cosLight < 1e-12 {
		return 0
	}
	return areaPdf * dist * dist / cosLight
}

// cosineDirection samples an emission direction around n
func cosineDirection(sampler core.PathSampleGenerator, n core.Vec3, sample *core.DirectionSample) bool {
	local := core.CosineHemisphere(sampler.Next2D())
	if local.Z <= 0 {
		return false
	}
	sample.D = core.NewTangentFrame(n).ToGlobal(local)
	sample.Pdf = core.CosineHemispherePdf(local)
	sample.Weight = core.Splat(math.Pi)
	return true
}
