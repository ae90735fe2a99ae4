// Package material implements the closed family of surface scattering
// models. Every BSDF works in a local shading frame where the normal is +Z
// and returns values already multiplied by |cos(wo)|.
package material

import (
	"math"
	"strconv"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/texture"
)

// Kind identifies a BSDF implementation
type Kind int

const (
	KindNull Kind = iota
	KindLambert
	KindOrenNayar
	KindMirror
	KindConductor
	KindRoughConductor
	KindDielectric
	KindRoughDielectric
	KindPlastic
	KindRoughPlastic
	KindSmoothCoat
	KindThinSheet
	KindMixed
	KindTransparency
	KindForward
)

var kindNames = map[Kind]string{
	KindNull:            "null",
	KindLambert:         "lambert",
	KindOrenNayar:       "oren_nayar",
	KindMirror:          "mirror",
	KindConductor:       "conductor",
	KindRoughConductor:  "rough_conductor",
	KindDielectric:      "dielectric",
	KindRoughDielectric: "rough_dielectric",
	KindPlastic:         "plastic",
	KindRoughPlastic:    "rough_plastic",
	KindSmoothCoat:      "smooth_coat",
	KindThinSheet:       "thin_sheet",
	KindMixed:           "mixed",
	KindTransparency:    "transparency",
	KindForward:         "forward",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind looks up a BSDF kind by name
func ParseKind(name string) (Kind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, core.NewConfigError("bsdf", name)
}

// checkIor rejects indices of refraction that are not positive
func checkIor(ior float64) error {
	if !(ior > 0) {
		return core.NewConfigError("ior", strconv.FormatFloat(ior, 'g', -1, 64))
	}
	return nil
}

// Bsdf is implemented only by the types in this package.
//
// Sample draws Wo for the event's Wi and requested lobes, setting Weight,
// Pdf and SampledLobe; it returns false when no valid direction exists.
// Eval returns f(wi, wo) * |cos(wo)| restricted to the requested lobes and
// Pdf the solid-angle density Sample would produce Wo with.
type Bsdf interface {
	Kind() Kind
	Lobes() BsdfLobes

	Sample(event *SurfaceScatterEvent) bool
	Eval(event *SurfaceScatterEvent) core.Vec3
	Pdf(event *SurfaceScatterEvent) float64

	// Prepare validates the configuration and precomputes render-time
	// constants. It is called once before rendering.
	Prepare() error
	// Teardown releases what Prepare computed
	Teardown()

	common() *Common
}

// Common holds the parameters every BSDF shares
type Common struct {
	Albedo       texture.Texture // Defaults to white
	Bump         texture.Texture // Optional height map
	BumpStrength float64         // Scale of the height map derivatives, 0 means 1
}

func (c *Common) common() *Common { return c }

func (c *Common) albedo(info *geometry.IntersectionInfo) core.Vec3 {
	if c.Albedo == nil {
		return core.Splat(1)
	}
	return c.Albedo.Evaluate(uvOf(info))
}

func uvOf(info *geometry.IntersectionInfo) core.Vec2 {
	if info == nil {
		return core.Vec2{}
	}
	return info.UV
}

// scalar evaluates an optional scalar texture, falling back to def
func scalar(t texture.Texture, info *geometry.IntersectionInfo, def float64) float64 {
	if t == nil {
		return def
	}
	return texture.Scalar(t, uvOf(info))
}

// SetupTangentFrame builds the shading frame at a hit, perturbing the shading
// normal with the BSDF's bump map when it has one
func SetupTangentFrame(b Bsdf, info *geometry.IntersectionInfo) core.TangentFrame {
	c := b.common()
	if c.Bump == nil || c.Bump.IsConstant() {
		return core.NewTangentFrameFromTangent(info.Ns, info.Tangent)
	}

	base := core.NewTangentFrameFromTangent(info.Ns, info.Tangent)
	strength := c.BumpStrength
	if strength == 0 {
		strength = 1
	}
	dudv := texture.Derivatives(c.Bump, info.UV)

	t := base.Tangent.Add(info.Ns.Multiply(dudv.X * strength))
	bt := base.Bitangent.Add(info.Ns.Multiply(dudv.Y * strength))
	n := t.Cross(bt)
	if n.LengthSquared() == 0 || n.HasNaN() {
		return base
	}
	if n.Dot(info.Ns) < 0 {
		n = n.Negate()
	}
	n = n.Normalize()
	return core.NewTangentFrameFromTangent(n, t)
}

func abs(x float64) float64 { return math.Abs(x) }

func copysign(x, sign float64) float64 { return math.Copysign(x, sign) }

func sgn(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

func sqr(x float64) float64 { return x * x }

func clamp(x, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, x)) }
