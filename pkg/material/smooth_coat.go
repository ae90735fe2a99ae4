package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// SmoothCoat puts a smooth absorbing dielectric layer over another BSDF.
// The substrate sees directions refracted into the coating.
type SmoothCoat struct {
	Common
	Substrate Bsdf
	Ior       float64
	Thickness float64
	SigmaA    core.Vec3

	invIor           float64
	scaledSigmaA     core.Vec3
	avgTransmittance float64
}

// NewSmoothCoat wraps substrate in a clear coat
func NewSmoothCoat(substrate Bsdf, ior float64) *SmoothCoat {
	return &SmoothCoat{Substrate: substrate, Ior: ior}
}

func (c *SmoothCoat) Kind() Kind       { return KindSmoothCoat }
func (c *SmoothCoat) Lobes() BsdfLobes { return SpecularReflectionLobe | c.Substrate.Lobes() }

func (c *SmoothCoat) specularProbability(fi float64, sampleR, sampleT bool) float64 {
	switch {
	case sampleR && sampleT:
		substrateWeight := c.avgTransmittance * (1 - fi)
		return fi / (fi + substrateWeight)
	case sampleR:
		return 1
	}
	return 0
}

func (c *SmoothCoat) absorption(cosSubstrateI, cosSubstrateO float64) core.Vec3 {
	if c.scaledSigmaA.MaxComponent() <= 0 {
		return core.Splat(1)
	}
	return c.scaledSigmaA.Multiply(-1/cosSubstrateO - 1/cosSubstrateI).Exp()
}

func (c *SmoothCoat) Sample(event *SurfaceScatterEvent) bool {
	if event.Wi.Z <= 0 {
		return false
	}
	sampleR := event.RequestedLobe.Test(SpecularReflectionLobe)
	sampleT := event.RequestedLobe.Test(c.Substrate.Lobes())
	if !sampleR && !sampleT {
		return false
	}

	wi := event.Wi
	fi, cosThetaTi := DielectricReflectance(c.invIor, wi.Z)
	specularProbability := c.specularProbability(fi, sampleR, sampleT)

	if sampleR && event.Sampler.NextBoolean(specularProbability) {
		event.Wo = mirror(wi)
		event.Pdf = specularProbability
		event.Weight = core.Splat(fi / specularProbability)
		event.SampledLobe = SpecularReflectionLobe
		return true
	}

	event.Wi = core.NewVec3(wi.X*c.invIor, wi.Y*c.invIor, cosThetaTi)
	ok := c.Substrate.Sample(event)
	event.Wi = wi
	if !ok {
		return false
	}

	cosSubstrate := event.Wo.Z
	if cosSubstrate <= 0 {
		return false
	}
	fo, cosThetaTo := DielectricReflectance(c.Ior, cosSubstrate)
	if fo == 1 {
		return false
	}
	event.Wo = core.NewVec3(event.Wo.X*c.Ior, event.Wo.Y*c.Ior, cosThetaTo)

	transmission := (1 - fi) * (1 - fo) / (1 - specularProbability)
	event.Weight = event.Weight.MultiplyVec(c.absorption(cosThetaTi, cosSubstrate)).Multiply(transmission)
	event.Pdf *= (1 - specularProbability) * c.invIor * c.invIor * cosThetaTo / cosSubstrate
	return true
}

// substrateQuery maps an outside direction pair into the coating
func (c *SmoothCoat) substrateQuery(event *SurfaceScatterEvent) (SurfaceScatterEvent, float64, float64, float64, float64) {
	wi, wo := event.Wi, event.Wo
	fi, cosThetaTi := DielectricReflectance(c.invIor, wi.Z)
	fo, cosThetaTo := DielectricReflectance(c.invIor, wo.Z)
	wiSubstrate := core.NewVec3(wi.X*c.invIor, wi.Y*c.invIor, math.Copysign(cosThetaTi, wi.Z))
	woSubstrate := core.NewVec3(wo.X*c.invIor, wo.Y*c.invIor, math.Copysign(cosThetaTo, wo.Z))
	return event.MakeWarpedQuery(wiSubstrate, woSubstrate), fi, fo, cosThetaTi, cosThetaTo
}

func (c *SmoothCoat) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return core.Vec3{}
	}
	evalR := event.RequestedLobe.Test(SpecularReflectionLobe)
	evalT := event.RequestedLobe.Test(c.Substrate.Lobes())

	if evalR && checkReflectionConstraint(event.Wi, event.Wo) {
		return core.Splat(dielectricReflectance(c.invIor, event.Wi.Z))
	}
	if !evalT {
		return core.Vec3{}
	}
	query, fi, fo, cosThetaTi, cosThetaTo := c.substrateQuery(event)
	if cosThetaTo <= 0 {
		return core.Vec3{}
	}
	laplacian := c.invIor * c.invIor * event.Wo.Z / cosThetaTo
	f := c.Substrate.Eval(&query).MultiplyVec(c.absorption(cosThetaTi, cosThetaTo))
	return f.Multiply(laplacian * (1 - fi) * (1 - fo))
}

func (c *SmoothCoat) Pdf(event *SurfaceScatterEvent) float64 {
	if event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return 0
	}
	sampleR := event.RequestedLobe.Test(SpecularReflectionLobe)
	sampleT := event.RequestedLobe.Test(c.Substrate.Lobes())

	fi := dielectricReflectance(c.invIor, event.Wi.Z)
	specularProbability := c.specularProbability(fi, sampleR, sampleT)

	if sampleR && checkReflectionConstraint(event.Wi, event.Wo) {
		return specularProbability
	}
	if !sampleT {
		return 0
	}
	query, _, _, _, cosThetaTo := c.substrateQuery(event)
	if cosThetaTo <= 0 {
		return 0
	}
	return c.Substrate.Pdf(&query) * (1 - specularProbability) * c.invIor * c.invIor * event.Wo.Z / cosThetaTo
}

func (c *SmoothCoat) Prepare() error {
	if c.Substrate == nil {
		return core.NewConfigError("smooth_coat substrate", "")
	}
	if err := checkIor(c.Ior); err != nil {
		return err
	}
	c.invIor = 1 / c.Ior
	c.scaledSigmaA = c.SigmaA.Multiply(c.Thickness)
	c.avgTransmittance = math.Exp(-2 * c.scaledSigmaA.Avg())
	return c.Substrate.Prepare()
}

func (c *SmoothCoat) Teardown() {
	c.Substrate.Teardown()
}
