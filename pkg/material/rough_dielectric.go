package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/texture"
)

// RoughDielectric is a glass interface with a microfacet surface
type RoughDielectric struct {
	Common
	Ior          float64
	EnableT      bool
	Distribution string
	Roughness    texture.Texture

	dist Distribution
}

// NewRoughDielectric creates rough glass with transmission enabled
func NewRoughDielectric(ior float64, distribution string, roughness float64) *RoughDielectric {
	return &RoughDielectric{
		Ior:          ior,
		EnableT:      true,
		Distribution: distribution,
		Roughness:    texture.NewScalar(roughness),
	}
}

func (d *RoughDielectric) Kind() Kind { return KindRoughDielectric }

func (d *RoughDielectric) Lobes() BsdfLobes {
	if d.EnableT {
		return GlossyReflectionLobe | GlossyTransmissionLobe
	}
	return GlossyReflectionLobe
}

func (d *RoughDielectric) roughness(event *SurfaceScatterEvent) float64 {
	return scalar(d.Roughness, event.Info, 0.1)
}

func (d *RoughDielectric) Sample(event *SurfaceScatterEvent) bool {
	sampleR := event.RequestedLobe.Test(GlossyReflectionLobe)
	sampleT := event.RequestedLobe.Test(GlossyTransmissionLobe) && d.EnableT
	if !sampleRoughDielectric(event, sampleR, sampleT, d.roughness(event), d.Ior, d.dist) {
		return false
	}
	event.Weight = event.Weight.MultiplyVec(d.albedo(event.Info))
	return true
}

func (d *RoughDielectric) Eval(event *SurfaceScatterEvent) core.Vec3 {
	sampleR := event.RequestedLobe.Test(GlossyReflectionLobe)
	sampleT := event.RequestedLobe.Test(GlossyTransmissionLobe) && d.EnableT
	f := evalRoughDielectric(event, sampleR, sampleT, d.roughness(event), d.Ior, d.dist)
	return d.albedo(event.Info).Multiply(f)
}

func (d *RoughDielectric) Pdf(event *SurfaceScatterEvent) float64 {
	sampleR := event.RequestedLobe.Test(GlossyReflectionLobe)
	sampleT := event.RequestedLobe.Test(GlossyTransmissionLobe) && d.EnableT
	return pdfRoughDielectric(event, sampleR, sampleT, d.roughness(event), d.Ior, d.dist)
}

func (d *RoughDielectric) Prepare() error {
	if err := checkIor(d.Ior); err != nil {
		return err
	}
	dist, err := ParseDistribution(d.Distribution)
	if err != nil {
		return err
	}
	d.dist = dist
	return nil
}

func (d *RoughDielectric) Teardown() {}

// sampleRoughness widens the sampling lobe at grazing angles, which keeps
// the sample weights bounded
func sampleRoughness(wiDotN, roughness float64) float64 {
	return (1.2 - 0.2*math.Sqrt(math.Abs(wiDotN))) * roughness
}

// sampleRoughDielectric samples the microfacet interface. The returned
// weight is scalar; callers tint it.
func sampleRoughDielectric(event *SurfaceScatterEvent, sampleR, sampleT bool, roughness, ior float64, dist Distribution) bool {
	if !sampleR && !sampleT {
		return false
	}
	wiDotN := event.Wi.Z
	if wiDotN == 0 {
		return false
	}
	eta := ior
	if wiDotN >= 0 {
		eta = 1 / ior
	}
	alpha := RoughnessToAlpha(dist, roughness)
	sampleAlpha := RoughnessToAlpha(dist, sampleRoughness(wiDotN, roughness))

	m := MicrofacetSample(dist, sampleAlpha, event.Sampler.Next2D())
	pm := MicrofacetPdf(dist, sampleAlpha, m)
	if pm < 1e-10 {
		return false
	}

	wiDotM := event.Wi.Dot(m)
	f, cosThetaT := DielectricReflectance(1/ior, wiDotM)
	etaM := 1 / ior
	if wiDotM < 0 {
		etaM = ior
	}

	var reflect bool
	switch {
	case sampleR && sampleT:
		reflect = event.Sampler.NextBoolean(f)
	case sampleT:
		if f == 1 {
			return false
		}
	default:
		reflect = true
	}

	if reflect {
		event.Wo = m.Multiply(2 * wiDotM).Subtract(event.Wi)
	} else {
		event.Wo = m.Multiply(etaM*wiDotM - sgn(wiDotM)*cosThetaT).Subtract(event.Wi.Multiply(etaM))
	}

	woDotN := event.Wo.Z
	if reflected := wiDotN*woDotN > 0; reflected != reflect {
		return false
	}

	woDotM := event.Wo.Dot(m)
	g := MicrofacetG(dist, alpha, event.Wi, event.Wo, m)
	d := MicrofacetD(dist, alpha, m)
	weight := math.Abs(wiDotM) * g * d / (math.Abs(wiDotN) * pm)

	if reflect {
		event.Pdf = pm * 0.25 / math.Abs(wiDotM)
		event.SampledLobe = GlossyReflectionLobe
	} else {
		event.Pdf = pm * math.Abs(woDotM) / sqr(eta*wiDotM+woDotM)
		event.SampledLobe = GlossyTransmissionLobe
	}

	fresnel := 1 - f
	if reflect {
		fresnel = f
	}
	if sampleR && sampleT {
		event.Pdf *= fresnel
	} else {
		weight *= fresnel
	}
	if event.Pdf <= 0 || weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return false
	}
	event.Weight = core.Splat(weight)
	return true
}

// roughDielectricHalfVector returns the microfacet normal connecting wi and
// wo, oriented into the upper hemisphere
func roughDielectricHalfVector(wi, wo core.Vec3, reflect bool, eta float64) core.Vec3 {
	if reflect {
		return wi.Add(wo).Normalize().Multiply(sgn(wi.Z))
	}
	return wi.Multiply(eta).Add(wo).Normalize().Negate()
}

func evalRoughDielectric(event *SurfaceScatterEvent, sampleR, sampleT bool, roughness, ior float64, dist Distribution) float64 {
	wiDotN := event.Wi.Z
	woDotN := event.Wo.Z
	if wiDotN == 0 || woDotN == 0 {
		return 0
	}
	reflect := wiDotN*woDotN >= 0
	if (reflect && !sampleR) || (!reflect && !sampleT) {
		return 0
	}

	alpha := RoughnessToAlpha(dist, roughness)
	eta := ior
	if wiDotN >= 0 {
		eta = 1 / ior
	}
	m := roughDielectricHalfVector(event.Wi, event.Wo, reflect, eta)
	wiDotM := event.Wi.Dot(m)
	woDotM := event.Wo.Dot(m)
	f := dielectricReflectance(1/ior, wiDotM)
	g := MicrofacetG(dist, alpha, event.Wi, event.Wo, m)
	d := MicrofacetD(dist, alpha, m)

	var value float64
	if reflect {
		value = f * g * d * 0.25 / math.Abs(wiDotN)
	} else {
		value = math.Abs(wiDotM*woDotM) * (1 - f) * g * d / (sqr(eta*wiDotM+woDotM) * math.Abs(wiDotN))
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}

func pdfRoughDielectric(event *SurfaceScatterEvent, sampleR, sampleT bool, roughness, ior float64, dist Distribution) float64 {
	wiDotN := event.Wi.Z
	woDotN := event.Wo.Z
	if wiDotN == 0 || woDotN == 0 {
		return 0
	}
	reflect := wiDotN*woDotN >= 0
	if (reflect && !sampleR) || (!reflect && !sampleT) {
		return 0
	}

	sampleAlpha := RoughnessToAlpha(dist, sampleRoughness(wiDotN, roughness))
	eta := ior
	if wiDotN >= 0 {
		eta = 1 / ior
	}
	m := roughDielectricHalfVector(event.Wi, event.Wo, reflect, eta)
	wiDotM := event.Wi.Dot(m)
	woDotM := event.Wo.Dot(m)
	f := dielectricReflectance(1/ior, wiDotM)
	pm := MicrofacetPdf(dist, sampleAlpha, m)

	var pdf float64
	if reflect {
		pdf = pm * 0.25 / math.Abs(wiDotM)
	} else {
		pdf = pm * math.Abs(woDotM) / sqr(eta*wiDotM+woDotM)
	}
	if sampleR && sampleT {
		if reflect {
			pdf *= f
		} else {
			pdf *= 1 - f
		}
	}
	if math.IsNaN(pdf) || math.IsInf(pdf, 0) {
		return 0
	}
	return pdf
}
