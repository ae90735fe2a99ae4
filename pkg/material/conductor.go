package material

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/texture"
)

// Mirror is a perfect specular reflector tinted by its albedo
type Mirror struct {
	Common
}

// NewMirror creates a mirror with the given reflectance
func NewMirror(albedo core.Vec3) *Mirror {
	return &Mirror{Common: Common{Albedo: texture.NewConstant(albedo)}}
}

func (m *Mirror) Kind() Kind       { return KindMirror }
func (m *Mirror) Lobes() BsdfLobes { return SpecularReflectionLobe }

func (m *Mirror) Sample(event *SurfaceScatterEvent) bool {
	if !event.RequestedLobe.Test(SpecularReflectionLobe) || event.Wi.Z <= 0 {
		return false
	}
	event.Wo = mirror(event.Wi)
	event.Pdf = 1
	event.Weight = m.albedo(event.Info)
	event.SampledLobe = SpecularReflectionLobe
	return true
}

func (m *Mirror) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if !event.RequestedLobe.Test(SpecularReflectionLobe) || event.Wi.Z <= 0 {
		return core.Vec3{}
	}
	if !checkReflectionConstraint(event.Wi, event.Wo) {
		return core.Vec3{}
	}
	return m.albedo(event.Info)
}

func (m *Mirror) Pdf(event *SurfaceScatterEvent) float64 {
	if !event.RequestedLobe.Test(SpecularReflectionLobe) || event.Wi.Z <= 0 {
		return 0
	}
	if !checkReflectionConstraint(event.Wi, event.Wo) {
		return 0
	}
	return 1
}

func (m *Mirror) Prepare() error { return nil }
func (m *Mirror) Teardown()      {}

// Conductor is a smooth metal. Material names an entry of the complex IOR
// table; when it is empty Eta and K are used as given.
type Conductor struct {
	Common
	Material string
	Eta      core.Vec3
	K        core.Vec3

	eta, k core.Vec3
}

// NewConductor creates a smooth metal from a named conductor
func NewConductor(material string) *Conductor {
	return &Conductor{Material: material}
}

func (c *Conductor) Kind() Kind       { return KindConductor }
func (c *Conductor) Lobes() BsdfLobes { return SpecularReflectionLobe }

func (c *Conductor) Sample(event *SurfaceScatterEvent) bool {
	if !event.RequestedLobe.Test(SpecularReflectionLobe) || event.Wi.Z <= 0 {
		return false
	}
	event.Wo = mirror(event.Wi)
	event.Pdf = 1
	event.Weight = c.albedo(event.Info).MultiplyVec(ConductorReflectance(c.eta, c.k, event.Wi.Z))
	event.SampledLobe = SpecularReflectionLobe
	return true
}

func (c *Conductor) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if !event.RequestedLobe.Test(SpecularReflectionLobe) || event.Wi.Z <= 0 {
		return core.Vec3{}
	}
	if !checkReflectionConstraint(event.Wi, event.Wo) {
		return core.Vec3{}
	}
	return c.albedo(event.Info).MultiplyVec(ConductorReflectance(c.eta, c.k, event.Wi.Z))
}

func (c *Conductor) Pdf(event *SurfaceScatterEvent) float64 {
	if !event.RequestedLobe.Test(SpecularReflectionLobe) || event.Wi.Z <= 0 {
		return 0
	}
	if !checkReflectionConstraint(event.Wi, event.Wo) {
		return 0
	}
	return 1
}

func (c *Conductor) Prepare() error {
	eta, k, err := resolveConductor(c.Material, c.Eta, c.K)
	if err != nil {
		return err
	}
	c.eta, c.k = eta, k
	return nil
}

func (c *Conductor) Teardown() {
	c.eta, c.k = core.Vec3{}, core.Vec3{}
}

func resolveConductor(material string, eta, k core.Vec3) (core.Vec3, core.Vec3, error) {
	if material == "" {
		return eta, k, nil
	}
	ior, err := LookupComplexIor(material)
	if err != nil {
		return core.Vec3{}, core.Vec3{}, err
	}
	return ior.Eta, ior.K, nil
}

// RoughConductor is a metal with a microfacet surface
type RoughConductor struct {
	Common
	Material     string
	Eta          core.Vec3
	K            core.Vec3
	Distribution string // "beckmann", "phong" or "ggx"
	Roughness    texture.Texture

	eta, k core.Vec3
	dist   Distribution
}

// NewRoughConductor creates a rough metal from a named conductor
func NewRoughConductor(material, distribution string, roughness float64) *RoughConductor {
	return &RoughConductor{
		Material:     material,
		Distribution: distribution,
		Roughness:    texture.NewScalar(roughness),
	}
}

func (c *RoughConductor) Kind() Kind       { return KindRoughConductor }
func (c *RoughConductor) Lobes() BsdfLobes { return GlossyReflectionLobe }

func (c *RoughConductor) alpha(event *SurfaceScatterEvent) float64 {
	return RoughnessToAlpha(c.dist, scalar(c.Roughness, event.Info, 0.1))
}

func (c *RoughConductor) Sample(event *SurfaceScatterEvent) bool {
	if event.Wi.Z <= 0 || !event.RequestedLobe.Test(GlossyReflectionLobe) {
		return false
	}
	alpha := c.alpha(event)
	m := MicrofacetSample(c.dist, alpha, event.Sampler.Next2D())
	wiDotM := event.Wi.Dot(m)
	event.Wo = m.Multiply(2 * wiDotM).Subtract(event.Wi)
	if wiDotM <= 0 || event.Wo.Z <= 0 {
		return false
	}
	g := MicrofacetG(c.dist, alpha, event.Wi, event.Wo, m)
	d := MicrofacetD(c.dist, alpha, m)
	mPdf := MicrofacetPdf(c.dist, alpha, m)
	if mPdf <= 0 {
		return false
	}
	weight := wiDotM * g * d / (event.Wi.Z * mPdf)
	f := ConductorReflectance(c.eta, c.k, wiDotM)

	event.Pdf = mPdf * 0.25 / wiDotM
	event.Weight = c.albedo(event.Info).MultiplyVec(f.Multiply(weight))
	event.SampledLobe = GlossyReflectionLobe
	return true
}

func (c *RoughConductor) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if !event.RequestedLobe.Test(GlossyReflectionLobe) || event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return core.Vec3{}
	}
	alpha := c.alpha(event)
	hr := event.Wi.Add(event.Wo).Normalize()
	cosThetaM := event.Wi.Dot(hr)
	f := ConductorReflectance(c.eta, c.k, cosThetaM)
	g := MicrofacetG(c.dist, alpha, event.Wi, event.Wo, hr)
	d := MicrofacetD(c.dist, alpha, hr)
	fr := g * d * 0.25 / event.Wi.Z
	return c.albedo(event.Info).MultiplyVec(f.Multiply(fr))
}

func (c *RoughConductor) Pdf(event *SurfaceScatterEvent) float64 {
	if !event.RequestedLobe.Test(GlossyReflectionLobe) || event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return 0
	}
	alpha := c.alpha(event)
	hr := event.Wi.Add(event.Wo).Normalize()
	return MicrofacetPdf(c.dist, alpha, hr) * 0.25 / event.Wi.Dot(hr)
}

func (c *RoughConductor) Prepare() error {
	dist, err := ParseDistribution(c.Distribution)
	if err != nil {
		return err
	}
	eta, k, err := resolveConductor(c.Material, c.Eta, c.K)
	if err != nil {
		return err
	}
	c.dist, c.eta, c.k = dist, eta, k
	return nil
}

func (c *RoughConductor) Teardown() {
	c.eta, c.k = core.Vec3{}, core.Vec3{}
}
