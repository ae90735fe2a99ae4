package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/texture"
)

// Lambert is a perfectly diffuse reflector
type Lambert struct {
	Common
}

// NewLambert creates a diffuse BSDF with a constant albedo
func NewLambert(albedo core.Vec3) *Lambert {
	return &Lambert{Common: Common{Albedo: texture.NewConstant(albedo)}}
}

// NewTexturedLambert creates a diffuse BSDF with a textured albedo
func NewTexturedLambert(albedo texture.Texture) *Lambert {
	return &Lambert{Common: Common{Albedo: albedo}}
}

func (l *Lambert) Kind() Kind       { return KindLambert }
func (l *Lambert) Lobes() BsdfLobes { return DiffuseReflectionLobe }

func (l *Lambert) Sample(event *SurfaceScatterEvent) bool {
	if !event.RequestedLobe.Test(DiffuseReflectionLobe) || event.Wi.Z <= 0 {
		return false
	}
	event.Wo = core.CosineHemisphere(event.Sampler.Next2D())
	event.Pdf = core.CosineHemispherePdf(event.Wo)
	event.Weight = l.albedo(event.Info)
	event.SampledLobe = DiffuseReflectionLobe
	return true
}

func (l *Lambert) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if !event.RequestedLobe.Test(DiffuseReflectionLobe) || event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return core.Vec3{}
	}
	return l.albedo(event.Info).Multiply(core.InvPi * event.Wo.Z)
}

func (l *Lambert) Pdf(event *SurfaceScatterEvent) float64 {
	if !event.RequestedLobe.Test(DiffuseReflectionLobe) || event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return 0
	}
	return core.CosineHemispherePdf(event.Wo)
}

func (l *Lambert) Prepare() error { return nil }
func (l *Lambert) Teardown()      {}

// OrenNayar is a rough diffuse reflector using the qualitative Oren-Nayar
// model. Roughness is the standard deviation of facet slopes scaled to [0, 1].
type OrenNayar struct {
	Common
	Roughness texture.Texture
}

// NewOrenNayar creates a rough diffuse BSDF
func NewOrenNayar(albedo core.Vec3, roughness float64) *OrenNayar {
	return &OrenNayar{
		Common:    Common{Albedo: texture.NewConstant(albedo)},
		Roughness: texture.NewScalar(roughness),
	}
}

func (o *OrenNayar) Kind() Kind       { return KindOrenNayar }
func (o *OrenNayar) Lobes() BsdfLobes { return DiffuseReflectionLobe }

// samplingRatio is the probability of using uniform instead of cosine
// hemisphere sampling. Rougher surfaces scatter more light to grazing angles.
func (o *OrenNayar) samplingRatio(event *SurfaceScatterEvent) float64 {
	return clamp(scalar(o.Roughness, event.Info, 1), 0.01, 1)
}

func (o *OrenNayar) Sample(event *SurfaceScatterEvent) bool {
	if !event.RequestedLobe.Test(DiffuseReflectionLobe) || event.Wi.Z <= 0 {
		return false
	}
	ratio := o.samplingRatio(event)
	if event.Sampler.NextBoolean(ratio) {
		event.Wo = core.UniformHemisphere(event.Sampler.Next2D())
	} else {
		event.Wo = core.CosineHemisphere(event.Sampler.Next2D())
	}
	event.Pdf = core.UniformHemispherePdf(event.Wo)*ratio + core.CosineHemispherePdf(event.Wo)*(1-ratio)
	if event.Pdf <= 0 {
		return false
	}
	event.Weight = o.Eval(event).Multiply(1 / event.Pdf)
	event.SampledLobe = DiffuseReflectionLobe
	return true
}

func (o *OrenNayar) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if !event.RequestedLobe.Test(DiffuseReflectionLobe) || event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return core.Vec3{}
	}
	wi, wo := event.Wi, event.Wo
	roughness := scalar(o.Roughness, event.Info, 1)

	thetaR := math.Acos(math.Min(wo.Z, 1))
	thetaI := math.Acos(math.Min(wi.Z, 1))
	alpha := math.Max(thetaR, thetaI)
	beta := math.Min(thetaR, thetaI)
	sinAlpha := math.Sin(alpha)

	denom := (wi.X*wi.X + wi.Y*wi.Y) * (wo.X*wo.X + wo.Y*wo.Y)
	cosDeltaPhi := 1.0
	if denom > 0 {
		cosDeltaPhi = (wi.X*wo.X + wi.Y*wo.Y) / math.Sqrt(denom)
	}

	sigma := roughness / math.Sqrt2
	sigmaSq := sigma * sigma

	c1 := 1 - 0.5*sigmaSq/(sigmaSq+0.33)
	c2 := 0.45 * sigmaSq / (sigmaSq + 0.09)
	if cosDeltaPhi >= 0 {
		c2 *= sinAlpha
	} else {
		c2 *= sinAlpha - math.Pow(2*core.InvPi*beta, 3)
	}
	c3 := 0.125 * (sigmaSq / (sigmaSq + 0.09)) * sqr(4*core.InvPi*core.InvPi*alpha*beta)

	fr1 := c1 + cosDeltaPhi*c2*math.Tan(beta) + (1-math.Abs(cosDeltaPhi))*c3*math.Tan(0.5*(alpha+beta))
	fr2 := 0.17 * sigmaSq / (sigmaSq + 0.13) * (1 - cosDeltaPhi*sqr(2*core.InvPi*beta))

	albedo := o.albedo(event.Info)
	fr := albedo.Multiply(fr1).Add(albedo.MultiplyVec(albedo).Multiply(fr2)).Multiply(core.InvPi)
	return fr.Multiply(wo.Z)
}

func (o *OrenNayar) Pdf(event *SurfaceScatterEvent) float64 {
	if !event.RequestedLobe.Test(DiffuseReflectionLobe) || event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return 0
	}
	ratio := o.samplingRatio(event)
	return core.UniformHemispherePdf(event.Wo)*ratio + core.CosineHemispherePdf(event.Wo)*(1-ratio)
}

func (o *OrenNayar) Prepare() error { return nil }
func (o *OrenNayar) Teardown()      {}
