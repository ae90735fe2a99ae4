package medium

import (
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// densityProfile is a smooth relative density whose integral along a ray
// has a closed form. Rays are expected to have unit directions.
type densityProfile interface {
	density(p core.Vec3) float64
	// densityAlong is the density at distance t, consistent with integral
	densityAlong(ray core.Ray, t float64) float64
	// integral of the density over [0, t]; t may be infinite
	integral(ray core.Ray, t float64) float64
	// inverse returns the distance where the integral reaches target, or
	// +Inf if it never does
	inverse(ray core.Ray, target float64) float64
}

// profileMedium samples distances in a medium whose coefficients are
// Common's scaled by a density profile
type profileMedium struct {
	Common
	profile densityProfile
}

func (m *profileMedium) SigmaA(p core.Vec3) core.Vec3 {
	return m.sigmaA.Multiply(m.profile.density(p))
}

func (m *profileMedium) SigmaS(p core.Vec3) core.Vec3 {
	return m.sigmaS.Multiply(m.profile.density(p))
}

func (m *profileMedium) SigmaT(p core.Vec3) core.Vec3 {
	return m.sigmaT.Multiply(m.profile.density(p))
}

func (m *profileMedium) SampleDistance(sampler core.PathSampleGenerator, ray core.Ray, state *MediumState, sample *MediumSample) bool {
	if state.Bounce > m.MaxBounce {
		return false
	}
	maxT := ray.FarT

	if m.absorptionOnly {
		depth := m.profile.integral(ray, maxT)
		if math.IsInf(depth, 1) {
			return false
		}
		sample.T = maxT
		sample.Weight = m.sigmaT.Multiply(-depth).Exp()
		sample.Pdf = 1
		sample.Exited = true
	} else {
		sigmaTc, tau := exponentialSample(sampler, m.sigmaT, state)
		t := math.Inf(1)
		if sigmaTc > 0 {
			t = m.profile.inverse(ray, tau/sigmaTc)
		}
		sample.T = math.Min(t, maxT)
		sample.ContinuedT = t
		sample.Exited = t >= maxT
		if math.IsInf(sample.T, 1) {
			return false
		}
		rho := 1.0
		if !sample.Exited {
			rho = m.profile.densityAlong(ray, sample.T)
		}
		depth := m.profile.integral(ray, sample.T)
		m.finishSample(sample, m.sigmaT.Multiply(-depth).Exp(), rho)
	}

	state.Advance()
	sample.P = ray.At(sample.T)
	sample.Phase = m.PhaseFunction()
	return true
}

func (m *profileMedium) Transmittance(sampler core.PathSampleGenerator, ray core.Ray) core.Vec3 {
	depth := m.profile.integral(ray, ray.FarT)
	if math.IsInf(depth, 1) {
		return core.Vec3{}
	}
	return m.sigmaT.Multiply(-depth).Exp()
}

func (m *profileMedium) Pdf(sampler core.PathSampleGenerator, ray core.Ray, onSurface bool) float64 {
	return m.distancePdf(m.Transmittance(sampler, ray), m.endDensity(ray), onSurface)
}

func (m *profileMedium) TransmittanceAndPdfs(sampler core.PathSampleGenerator, ray core.Ray, startOnSurface, endOnSurface bool) (core.Vec3, float64, float64) {
	transmittance := m.Transmittance(sampler, ray)
	forward := m.distancePdf(transmittance, m.endDensity(ray), endOnSurface)
	backward := m.distancePdf(transmittance, m.profile.densityAlong(ray, 0), startOnSurface)
	return transmittance, forward, backward
}

func (m *profileMedium) endDensity(ray core.Ray) float64 {
	if math.IsInf(ray.FarT, 1) {
		return 0
	}
	return m.profile.densityAlong(ray, ray.FarT)
}

func (m *profileMedium) IsHomogeneous() bool { return false }
func (m *profileMedium) Teardown()           {}

// Exponential is a medium whose density falls off exponentially along a
// direction, like ground fog. The density is 1 at UnitPoint.
type Exponential struct {
	profileMedium
	FalloffScale     float64
	UnitPoint        core.Vec3
	FalloffDirection core.Vec3

	unitDirection core.Vec3
}

// NewExponential creates ground fog falling off upward
func NewExponential(sigmaA, sigmaS core.Vec3, falloffScale float64) *Exponential {
	m := &Exponential{
		FalloffScale:     falloffScale,
		FalloffDirection: core.NewVec3(0, 1, 0),
	}
	m.Common = newCommon(sigmaA, sigmaS)
	m.profile = m
	return m
}

func (m *Exponential) Kind() Kind { return KindExponential }

func (m *Exponential) Prepare() error {
	if m.FalloffDirection.IsZero() {
		m.FalloffDirection = core.NewVec3(0, 1, 0)
	}
	m.unitDirection = m.FalloffDirection.Normalize()
	m.profile = m
	m.prepare()
	return nil
}

// height returns the scaled height of the ray origin and its rate of change
func (m *Exponential) height(ray core.Ray) (float64, float64) {
	x := m.FalloffScale * ray.Origin.Subtract(m.UnitPoint).Dot(m.unitDirection)
	dx := m.FalloffScale * ray.Direction.Dot(m.unitDirection)
	return x, dx
}

func (m *Exponential) density(p core.Vec3) float64 {
	return math.Exp(-m.FalloffScale * p.Subtract(m.UnitPoint).Dot(m.unitDirection))
}

func (m *Exponential) densityAlong(ray core.Ray, t float64) float64 {
	x, dx := m.height(ray)
	return math.Exp(-(x + dx*t))
}

func (m *Exponential) integral(ray core.Ray, t float64) float64 {
	x, dx := m.height(ray)
	switch {
	case math.IsInf(t, 1):
		if dx <= 0 {
			return math.Inf(1)
		}
		return math.Exp(-x) / dx
	case dx == 0:
		return math.Exp(-x) * t
	}
	return math.Exp(-x) * -math.Expm1(-dx*t) / dx
}

func (m *Exponential) inverse(ray core.Ray, target float64) float64 {
	x, dx := m.height(ray)
	if dx == 0 {
		return target * math.Exp(x)
	}
	denom := 1 - dx*target*math.Exp(x)
	if denom <= 0 {
		return math.Inf(1)
	}
	return -math.Log(denom) / dx
}

// Atmospheric is a spherical shell of exponentially thinning gas around a
// planet. Along a ray the height is approximated by a parabola around the
// point of closest approach, which turns the optical depth into an error
// function.
type Atmospheric struct {
	profileMedium
	Center       core.Vec3
	Radius       float64
	FalloffScale float64
}

// NewAtmospheric creates an atmosphere of the given planet radius
func NewAtmospheric(sigmaA, sigmaS core.Vec3, center core.Vec3, radius, falloffScale float64) *Atmospheric {
	m := &Atmospheric{Center: center, Radius: radius, FalloffScale: falloffScale}
	m.Common = newCommon(sigmaA, sigmaS)
	m.Phase = Rayleigh{}
	m.profile = m
	return m
}

func (m *Atmospheric) Kind() Kind { return KindAtmospheric }

func (m *Atmospheric) Prepare() error {
	if m.Radius <= 0 || m.FalloffScale <= 0 {
		return fmt.Errorf("atmosphere: radius %g and falloff scale %g must be positive", m.Radius, m.FalloffScale)
	}
	m.profile = m
	m.prepare()
	return nil
}

func (m *Atmospheric) density(p core.Vec3) float64 {
	return math.Exp(-m.FalloffScale * (p.Subtract(m.Center).Length() - m.Radius))
}

// closestApproach returns the ray distance to the point closest to the
// center, the height there, and the Gaussian scale of the parabola
func (m *Atmospheric) closestApproach(ray core.Ray) (tc, base, s float64) {
	tc = m.Center.Subtract(ray.Origin).Dot(ray.Direction)
	h := ray.At(tc).Subtract(m.Center).Length()
	h = math.Max(h, 1e-3*m.Radius)
	base = math.Exp(-m.FalloffScale * (h - m.Radius))
	s = math.Sqrt(m.FalloffScale / (2 * h))
	return tc, base, s
}

func (m *Atmospheric) densityAlong(ray core.Ray, t float64) float64 {
	tc, base, s := m.closestApproach(ray)
	u := (t - tc) * s
	return base * math.Exp(-u*u)
}

func (m *Atmospheric) integral(ray core.Ray, t float64) float64 {
	tc, base, s := m.closestApproach(ray)
	scale := base * math.Sqrt(math.Pi) / (2 * s)
	return scale * (math.Erf(s*(t-tc)) - math.Erf(-s*tc))
}

func (m *Atmospheric) inverse(ray core.Ray, target float64) float64 {
	tc, base, s := m.closestApproach(ray)
	scale := base * math.Sqrt(math.Pi) / (2 * s)
	if scale <= 0 {
		return math.Inf(1)
	}
	e := math.Erf(-s*tc) + target/scale
	if e >= 1 {
		return math.Inf(1)
	}
	return tc + math.Erfinv(e)/s
}
