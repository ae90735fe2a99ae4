package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Dielectric is a smooth glass interface. Reflection and refraction are
// chosen by Fresnel reflectance when both lobes are requested.
type Dielectric struct {
	Common
	Ior     float64
	EnableT bool

	invIor float64
}

// NewDielectric creates smooth glass with transmission enabled
func NewDielectric(ior float64) *Dielectric {
	return &Dielectric{Ior: ior, EnableT: true}
}

func (d *Dielectric) Kind() Kind { return KindDielectric }

func (d *Dielectric) Lobes() BsdfLobes {
	if d.EnableT {
		return SpecularReflectionLobe | SpecularTransmissionLobe
	}
	return SpecularReflectionLobe
}

func (d *Dielectric) eta(wi core.Vec3) float64 {
	if wi.Z < 0 {
		return d.Ior
	}
	return d.invIor
}

func (d *Dielectric) Sample(event *SurfaceScatterEvent) bool {
	sampleR := event.RequestedLobe.Test(SpecularReflectionLobe)
	sampleT := event.RequestedLobe.Test(SpecularTransmissionLobe) && d.EnableT
	if !sampleR && !sampleT {
		return false
	}

	eta := d.eta(event.Wi)
	f, cosThetaT := DielectricReflectance(eta, math.Abs(event.Wi.Z))

	var reflectionProbability float64
	switch {
	case sampleR && sampleT:
		reflectionProbability = f
	case sampleR:
		reflectionProbability = 1
	}

	if event.Sampler.NextBoolean(reflectionProbability) {
		event.Wo = mirror(event.Wi)
		event.Pdf = reflectionProbability
		event.SampledLobe = SpecularReflectionLobe
		if sampleT {
			event.Weight = core.Splat(1)
		} else {
			event.Weight = core.Splat(f)
		}
	} else {
		if f == 1 {
			return false
		}
		event.Wo = core.NewVec3(-event.Wi.X*eta, -event.Wi.Y*eta, -copysign(cosThetaT, event.Wi.Z))
		event.Pdf = 1 - reflectionProbability
		event.SampledLobe = SpecularTransmissionLobe
		if sampleR {
			event.Weight = core.Splat(1)
		} else {
			event.Weight = core.Splat(1 - f)
		}
	}
	event.Weight = event.Weight.MultiplyVec(d.albedo(event.Info))
	return true
}

func (d *Dielectric) Eval(event *SurfaceScatterEvent) core.Vec3 {
	evalR := event.RequestedLobe.Test(SpecularReflectionLobe)
	evalT := event.RequestedLobe.Test(SpecularTransmissionLobe) && d.EnableT

	eta := d.eta(event.Wi)
	f, cosThetaT := DielectricReflectance(eta, math.Abs(event.Wi.Z))

	if event.Wi.Z*event.Wo.Z >= 0 {
		if evalR && checkReflectionConstraint(event.Wi, event.Wo) {
			return d.albedo(event.Info).Multiply(f)
		}
		return core.Vec3{}
	}
	if evalT && checkRefractionConstraint(event.Wi, event.Wo, eta, cosThetaT) {
		return d.albedo(event.Info).Multiply(1 - f)
	}
	return core.Vec3{}
}

func (d *Dielectric) Pdf(event *SurfaceScatterEvent) float64 {
	sampleR := event.RequestedLobe.Test(SpecularReflectionLobe)
	sampleT := event.RequestedLobe.Test(SpecularTransmissionLobe) && d.EnableT

	eta := d.eta(event.Wi)
	f, cosThetaT := DielectricReflectance(eta, math.Abs(event.Wi.Z))

	if event.Wi.Z*event.Wo.Z >= 0 {
		if sampleR && checkReflectionConstraint(event.Wi, event.Wo) {
			if sampleT {
				return f
			}
			return 1
		}
		return 0
	}
	if sampleT && checkRefractionConstraint(event.Wi, event.Wo, eta, cosThetaT) {
		if sampleR {
			return 1 - f
		}
		return 1
	}
	return 0
}

func (d *Dielectric) Prepare() error {
	if err := checkIor(d.Ior); err != nil {
		return err
	}
	d.invIor = 1 / d.Ior
	return nil
}

func (d *Dielectric) Teardown() {}
