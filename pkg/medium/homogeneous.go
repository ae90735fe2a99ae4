package medium

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Homogeneous is a medium with constant coefficients. Free-flight
// distances and transmittance are sampled in closed form.
type Homogeneous struct {
	Common
}

// NewHomogeneous creates a homogeneous medium with an isotropic phase function
func NewHomogeneous(sigmaA, sigmaS core.Vec3) *Homogeneous {
	return &Homogeneous{Common: newCommon(sigmaA, sigmaS)}
}

func (m *Homogeneous) Kind() Kind          { return KindHomogeneous }
func (m *Homogeneous) IsHomogeneous() bool { return true }

func (m *Homogeneous) SigmaA(p core.Vec3) core.Vec3 { return m.sigmaA }
func (m *Homogeneous) SigmaS(p core.Vec3) core.Vec3 { return m.sigmaS }
func (m *Homogeneous) SigmaT(p core.Vec3) core.Vec3 { return m.sigmaT }

func (m *Homogeneous) SampleDistance(sampler core.PathSampleGenerator, ray core.Ray, state *MediumState, sample *MediumSample) bool {
	if state.Bounce > m.MaxBounce {
		return false
	}
	maxT := ray.FarT

	if m.absorptionOnly {
		if math.IsInf(maxT, 1) {
			return false
		}
		sample.T = maxT
		sample.Weight = m.sigmaT.Multiply(-maxT).Exp()
		sample.Pdf = 1
		sample.Exited = true
	} else {
		sigmaTc, tau := exponentialSample(sampler, m.sigmaT, state)
		t := math.Inf(1)
		if sigmaTc > 0 {
			t = tau / sigmaTc
		}
		sample.T = math.Min(t, maxT)
		sample.ContinuedT = t
		sample.Exited = t >= maxT
		if math.IsInf(sample.T, 1) {
			return false
		}
		m.finishSample(sample, m.sigmaT.Multiply(-sample.T).Exp(), 1)

		if math.IsInf(t, 1) {
			sample.ContinuedWeight = core.Vec3{}
		} else {
			continued := m.sigmaT.Multiply(-t).Exp()
			sample.ContinuedWeight = m.sigmaS.MultiplyVec(continued).Multiply(1 / m.sigmaT.MultiplyVec(continued).Avg())
		}
	}

	state.Advance()
	sample.P = ray.At(sample.T)
	sample.Phase = m.PhaseFunction()
	return true
}

func (m *Homogeneous) Transmittance(sampler core.PathSampleGenerator, ray core.Ray) core.Vec3 {
	if math.IsInf(ray.FarT, 1) {
		return core.Vec3{}
	}
	return m.sigmaT.Multiply(-ray.FarT).Exp()
}

func (m *Homogeneous) Pdf(sampler core.PathSampleGenerator, ray core.Ray, onSurface bool) float64 {
	return m.distancePdf(m.Transmittance(sampler, ray), 1, onSurface)
}

func (m *Homogeneous) TransmittanceAndPdfs(sampler core.PathSampleGenerator, ray core.Ray, startOnSurface, endOnSurface bool) (core.Vec3, float64, float64) {
	transmittance := m.Transmittance(sampler, ray)
	return transmittance, m.distancePdf(transmittance, 1, endOnSurface), m.distancePdf(transmittance, 1, startOnSurface)
}

func (m *Homogeneous) Prepare() error {
	m.prepare()
	return nil
}

func (m *Homogeneous) Teardown() {}
