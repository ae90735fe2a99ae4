package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/texture"
)

// plasticLayer is the dielectric coating over a diffuse substrate that
// Plastic and RoughPlastic share. Albedo tints only the substrate.
type plasticLayer struct {
	Ior       float64
	Thickness float64
	SigmaA    core.Vec3

	scaledSigmaA     core.Vec3
	avgTransmittance float64
	diffuseFresnel   float64
}

func (p *plasticLayer) prepare() error {
	if err := checkIor(p.Ior); err != nil {
		return err
	}
	p.scaledSigmaA = p.SigmaA.Multiply(p.Thickness)
	p.avgTransmittance = math.Exp(-2 * p.scaledSigmaA.Avg())
	p.diffuseFresnel = ComputeDiffuseFresnel(p.Ior, diffuseFresnelSamples)
	return nil
}

// specularProbability is the chance of sampling the coating rather than the
// substrate, given the coating's reflectance fi
func (p *plasticLayer) specularProbability(fi float64, sampleR, sampleT bool) float64 {
	switch {
	case sampleR && sampleT:
		substrateWeight := p.avgTransmittance * (1 - fi)
		return fi / (fi + substrateWeight)
	case sampleR:
		return 1
	}
	return 0
}

// substrate is the diffuse reflection seen through the coating, cosine
// weighted, including absorption inside the layer
func (p *plasticLayer) substrate(albedo core.Vec3, wi, wo core.Vec3) core.Vec3 {
	eta := 1 / p.Ior
	fi := dielectricReflectance(eta, wi.Z)
	fo := dielectricReflectance(eta, wo.Z)
	diffuse := albedo.DivideVec(core.Splat(1).Subtract(albedo.Multiply(p.diffuseFresnel)))
	brdf := diffuse.Multiply((1 - fi) * (1 - fo) * eta * eta * core.InvPi * wo.Z)
	if p.scaledSigmaA.MaxComponent() > 0 {
		brdf = brdf.MultiplyVec(p.scaledSigmaA.Multiply(-1/wo.Z - 1/wi.Z).Exp())
	}
	return brdf
}

// Plastic is a diffuse substrate under a smooth dielectric coating
type Plastic struct {
	Common
	plasticLayer
}

// NewPlastic creates a smooth plastic with the given substrate colour
func NewPlastic(albedo core.Vec3, ior float64) *Plastic {
	return &Plastic{
		Common:       Common{Albedo: texture.NewConstant(albedo)},
		plasticLayer: plasticLayer{Ior: ior},
	}
}

func (p *Plastic) Kind() Kind       { return KindPlastic }
func (p *Plastic) Lobes() BsdfLobes { return SpecularReflectionLobe | DiffuseReflectionLobe }

func (p *Plastic) Sample(event *SurfaceScatterEvent) bool {
	if event.Wi.Z <= 0 {
		return false
	}
	sampleR := event.RequestedLobe.Test(SpecularReflectionLobe)
	sampleT := event.RequestedLobe.Test(DiffuseReflectionLobe)
	if !sampleR && !sampleT {
		return false
	}

	fi := dielectricReflectance(1/p.Ior, event.Wi.Z)
	specularProbability := p.specularProbability(fi, sampleR, sampleT)

	if sampleR && event.Sampler.NextBoolean(specularProbability) {
		event.Wo = mirror(event.Wi)
		event.Pdf = specularProbability
		event.Weight = core.Splat(fi / specularProbability)
		event.SampledLobe = SpecularReflectionLobe
		return true
	}

	event.Wo = core.CosineHemisphere(event.Sampler.Next2D())
	if event.Wo.Z <= 0 {
		return false
	}
	cosPdf := core.CosineHemispherePdf(event.Wo)
	brdf := p.substrate(p.albedo(event.Info), event.Wi, event.Wo)
	event.Pdf = cosPdf * (1 - specularProbability)
	event.Weight = brdf.Multiply(1 / event.Pdf)
	event.SampledLobe = DiffuseReflectionLobe
	return true
}

func (p *Plastic) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return core.Vec3{}
	}
	evalR := event.RequestedLobe.Test(SpecularReflectionLobe)
	evalT := event.RequestedLobe.Test(DiffuseReflectionLobe)

	if evalR && checkReflectionConstraint(event.Wi, event.Wo) {
		return core.Splat(dielectricReflectance(1/p.Ior, event.Wi.Z))
	}
	if evalT {
		return p.substrate(p.albedo(event.Info), event.Wi, event.Wo)
	}
	return core.Vec3{}
}

func (p *Plastic) Pdf(event *SurfaceScatterEvent) float64 {
	if event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return 0
	}
	sampleR := event.RequestedLobe.Test(SpecularReflectionLobe)
	sampleT := event.RequestedLobe.Test(DiffuseReflectionLobe)

	fi := dielectricReflectance(1/p.Ior, event.Wi.Z)
	specularProbability := p.specularProbability(fi, sampleR, sampleT)

	if sampleR && checkReflectionConstraint(event.Wi, event.Wo) {
		return specularProbability
	}
	if sampleT {
		return core.CosineHemispherePdf(event.Wo) * (1 - specularProbability)
	}
	return 0
}

func (p *Plastic) Prepare() error {
	return p.prepare()
}

func (p *Plastic) Teardown() {}

// RoughPlastic is a diffuse substrate under a rough dielectric coating
type RoughPlastic struct {
	Common
	plasticLayer
	Distribution string
	Roughness    texture.Texture

	dist Distribution
}

// NewRoughPlastic creates a rough plastic with the given substrate colour
func NewRoughPlastic(albedo core.Vec3, ior float64, distribution string, roughness float64) *RoughPlastic {
	return &RoughPlastic{
		Common:       Common{Albedo: texture.NewConstant(albedo)},
		plasticLayer: plasticLayer{Ior: ior},
		Distribution: distribution,
		Roughness:    texture.NewScalar(roughness),
	}
}

func (p *RoughPlastic) Kind() Kind       { return KindRoughPlastic }
func (p *RoughPlastic) Lobes() BsdfLobes { return GlossyReflectionLobe | DiffuseReflectionLobe }

func (p *RoughPlastic) roughness(event *SurfaceScatterEvent) float64 {
	return scalar(p.Roughness, event.Info, 0.1)
}

func (p *RoughPlastic) Sample(event *SurfaceScatterEvent) bool {
	if event.Wi.Z <= 0 {
		return false
	}
	sampleR := event.RequestedLobe.Test(GlossyReflectionLobe)
	sampleT := event.RequestedLobe.Test(DiffuseReflectionLobe)
	if !sampleR && !sampleT {
		return false
	}

	fi := dielectricReflectance(1/p.Ior, event.Wi.Z)
	specularProbability := p.specularProbability(fi, sampleR, sampleT)
	roughness := p.roughness(event)

	if sampleR && event.Sampler.NextBoolean(specularProbability) {
		if !sampleRoughDielectric(event, true, false, roughness, p.Ior, p.dist) {
			return false
		}
		if event.Wo.Z <= 0 {
			return false
		}
		if sampleT {
			brdfSpecular := event.Weight.Multiply(event.Pdf)
			pdfSpecular := event.Pdf * specularProbability
			brdfSubstrate := p.substrate(p.albedo(event.Info), event.Wi, event.Wo)
			pdfSubstrate := core.CosineHemispherePdf(event.Wo) * (1 - specularProbability)
			event.Pdf = pdfSpecular + pdfSubstrate
			event.Weight = brdfSpecular.Add(brdfSubstrate).Multiply(1 / event.Pdf)
		}
		return true
	}

	event.Wo = core.CosineHemisphere(event.Sampler.Next2D())
	if event.Wo.Z <= 0 {
		return false
	}
	brdfSubstrate := p.substrate(p.albedo(event.Info), event.Wi, event.Wo)
	pdfSubstrate := core.CosineHemispherePdf(event.Wo) * (1 - specularProbability)
	brdfSpecular := core.Vec3{}
	pdfSpecular := 0.0
	if sampleR {
		brdfSpecular = core.Splat(evalRoughDielectric(event, true, false, roughness, p.Ior, p.dist))
		pdfSpecular = pdfRoughDielectric(event, true, false, roughness, p.Ior, p.dist) * specularProbability
	}
	event.Pdf = pdfSpecular + pdfSubstrate
	if event.Pdf <= 0 {
		return false
	}
	event.Weight = brdfSpecular.Add(brdfSubstrate).Multiply(1 / event.Pdf)
	event.SampledLobe = DiffuseReflectionLobe
	return true
}

func (p *RoughPlastic) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return core.Vec3{}
	}
	evalR := event.RequestedLobe.Test(GlossyReflectionLobe)
	evalT := event.RequestedLobe.Test(DiffuseReflectionLobe)

	var result core.Vec3
	if evalR {
		result = core.Splat(evalRoughDielectric(event, true, false, p.roughness(event), p.Ior, p.dist))
	}
	if evalT {
		result = result.Add(p.substrate(p.albedo(event.Info), event.Wi, event.Wo))
	}
	return result
}

func (p *RoughPlastic) Pdf(event *SurfaceScatterEvent) float64 {
	if event.Wi.Z <= 0 || event.Wo.Z <= 0 {
		return 0
	}
	sampleR := event.RequestedLobe.Test(GlossyReflectionLobe)
	sampleT := event.RequestedLobe.Test(DiffuseReflectionLobe)
	if !sampleR && !sampleT {
		return 0
	}

	fi := dielectricReflectance(1/p.Ior, event.Wi.Z)
	specularProbability := p.specularProbability(fi, sampleR, sampleT)

	glossyPdf := 0.0
	if sampleR {
		glossyPdf = pdfRoughDielectric(event, true, false, p.roughness(event), p.Ior, p.dist)
	}
	diffusePdf := core.CosineHemispherePdf(event.Wo)
	return glossyPdf*specularProbability + diffusePdf*(1-specularProbability)
}

func (p *RoughPlastic) Prepare() error {
	dist, err := ParseDistribution(p.Distribution)
	if err != nil {
		return err
	}
	p.dist = dist
	return p.prepare()
}

func (p *RoughPlastic) Teardown() {}
