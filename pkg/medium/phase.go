package medium

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// PhaseKind identifies a phase function
type PhaseKind int

const (
	PhaseIsotropic PhaseKind = iota
	PhaseHenyeyGreenstein
	PhaseRayleigh
)

// PhaseSample is the result of sampling a phase function
type PhaseSample struct {
	W      core.Vec3
	Weight core.Vec3
	Pdf    float64
}

// PhaseFunction is the angular scattering distribution inside a medium.
// Wi is the propagation direction of the incoming ray, so forward
// scattering means Wo close to Wi.
type PhaseFunction interface {
	Kind() PhaseKind
	Eval(wi, wo core.Vec3) core.Vec3
	Sample(sampler core.PathSampleGenerator, wi core.Vec3, sample *PhaseSample) bool
	Pdf(wi, wo core.Vec3) float64
}

// Isotropic scatters uniformly over the sphere
type Isotropic struct{}

func (Isotropic) Kind() PhaseKind { return PhaseIsotropic }

func (Isotropic) Eval(wi, wo core.Vec3) core.Vec3 {
	return core.Splat(core.InvFourPi)
}

func (Isotropic) Sample(sampler core.PathSampleGenerator, wi core.Vec3, sample *PhaseSample) bool {
	sample.W = core.UniformSphere(sampler.Next2D())
	sample.Weight = core.Splat(1)
	sample.Pdf = core.UniformSpherePdf()
	return true
}

func (Isotropic) Pdf(wi, wo core.Vec3) float64 {
	return core.UniformSpherePdf()
}

// HenyeyGreenstein is the one-parameter anisotropic phase function. G is
// the mean cosine: positive values scatter forward.
type HenyeyGreenstein struct {
	G float64
}

func henyeyGreenstein(cosTheta, g float64) float64 {
	term := 1 + g*g - 2*g*cosTheta
	return core.InvFourPi * (1 - g*g) / (term * math.Sqrt(term))
}

func (h HenyeyGreenstein) Kind() PhaseKind { return PhaseHenyeyGreenstein }

func (h HenyeyGreenstein) Eval(wi, wo core.Vec3) core.Vec3 {
	return core.Splat(henyeyGreenstein(wi.Dot(wo), h.G))
}

func (h HenyeyGreenstein) Sample(sampler core.PathSampleGenerator, wi core.Vec3, sample *PhaseSample) bool {
	xi := sampler.Next2D()
	if h.G == 0 {
		sample.W = core.UniformSphere(xi)
		sample.Pdf = core.UniformSpherePdf()
	} else {
		g := h.G
		phi := xi.X * core.TwoPi
		cosTheta := (1 + g*g - sqr((1-g*g)/(1+g-2*g*xi.Y))) / (2 * g)
		cosTheta = math.Max(-1, math.Min(1, cosTheta))
		sample.W = sphericalAround(wi, cosTheta, phi)
		sample.Pdf = henyeyGreenstein(cosTheta, g)
	}
	sample.Weight = core.Splat(1)
	return true
}

func (h HenyeyGreenstein) Pdf(wi, wo core.Vec3) float64 {
	return henyeyGreenstein(wi.Dot(wo), h.G)
}

// Rayleigh models scattering by particles much smaller than the wavelength
type Rayleigh struct{}

func rayleigh(cosTheta float64) float64 {
	return (3.0 / (16.0 * math.Pi)) * (1 + cosTheta*cosTheta)
}

func (Rayleigh) Kind() PhaseKind { return PhaseRayleigh }

func (Rayleigh) Eval(wi, wo core.Vec3) core.Vec3 {
	return core.Splat(rayleigh(wi.Dot(wo)))
}

// Sample inverts the CDF of (1 + cos^2) in closed form by solving the cubic
// with Cardano's formula
func (Rayleigh) Sample(sampler core.PathSampleGenerator, wi core.Vec3, sample *PhaseSample) bool {
	xi := sampler.Next2D()
	phi := xi.X * core.TwoPi
	z := xi.Y*4 - 2
	invZ := math.Sqrt(z*z + 1)
	u := math.Cbrt(z + invZ)
	cosTheta := math.Max(-1, math.Min(1, u-1/u))

	sample.W = sphericalAround(wi, cosTheta, phi)
	sample.Weight = core.Splat(1)
	sample.Pdf = rayleigh(cosTheta)
	return true
}

func (Rayleigh) Pdf(wi, wo core.Vec3) float64 {
	return rayleigh(wi.Dot(wo))
}

// sphericalAround builds the direction at polar angle acos(cosTheta) and
// azimuth phi around axis
func sphericalAround(axis core.Vec3, cosTheta, phi float64) core.Vec3 {
	sinTheta := math.Sqrt(math.Max(1-cosTheta*cosTheta, 0))
	local := core.NewVec3(math.Cos(phi)*sinTheta, math.Sin(phi)*sinTheta, cosTheta)
	return core.NewTangentFrame(axis).ToGlobal(local)
}

func sqr(x float64) float64 { return x * x }
