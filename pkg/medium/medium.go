// Package medium implements participating media and their phase functions.
// Distances along a ray are measured from the ray origin up to ray.FarT.
package medium

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// Kind identifies a medium implementation
type Kind int

const (
	KindHomogeneous Kind = iota
	KindExponential
	KindAtmospheric
	KindVoxel
)

var kindNames = map[Kind]string{
	KindHomogeneous: "homogeneous",
	KindExponential: "exponential",
	KindAtmospheric: "atmosphere",
	KindVoxel:       "voxel",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind looks up a medium kind by name
func ParseKind(name string) (Kind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, core.NewConfigError("medium", name)
}

// DefaultMaxBounce is the number of scattering events a medium allows
// before it stops sampling
const DefaultMaxBounce = 1024

// MediumState tracks one path's progress through media
type MediumState struct {
	FirstScatter bool
	Component    int
	Bounce       int
}

// Reset prepares the state for a new path
func (s *MediumState) Reset() {
	s.FirstScatter = true
	s.Bounce = 0
}

// Advance records a medium interaction
func (s *MediumState) Advance() {
	s.FirstScatter = false
	s.Bounce++
}

// MediumSample is the outcome of free-flight sampling. When Exited is set
// the ray left the segment at T = ray.FarT and Weight is the transmittance
// over the segment divided by the pdf of getting there; otherwise a
// scattering event happened at P and Weight also carries sigmaS.
type MediumSample struct {
	Phase           PhaseFunction
	P               core.Vec3
	T               float64
	Weight          core.Vec3
	Pdf             float64
	Exited          bool
	ContinuedT      float64
	ContinuedWeight core.Vec3
}

// Medium is implemented only by the types in this package
type Medium interface {
	Kind() Kind
	IsHomogeneous() bool

	SigmaA(p core.Vec3) core.Vec3
	SigmaS(p core.Vec3) core.Vec3
	SigmaT(p core.Vec3) core.Vec3

	// SampleDistance samples a free-flight distance along ray. It returns
	// false when the medium cannot continue the path.
	SampleDistance(sampler core.PathSampleGenerator, ray core.Ray, state *MediumState, sample *MediumSample) bool
	// Transmittance estimates exp(-integral of sigmaT) over [0, ray.FarT]
	Transmittance(sampler core.PathSampleGenerator, ray core.Ray) core.Vec3
	// Pdf is the density of SampleDistance stopping at ray.FarT, either on a
	// surface (exiting) or inside the medium
	Pdf(sampler core.PathSampleGenerator, ray core.Ray, onSurface bool) float64
	// TransmittanceAndPdfs returns the transmittance together with the
	// distance pdfs of sampling the segment in either direction
	TransmittanceAndPdfs(sampler core.PathSampleGenerator, ray core.Ray, startOnSurface, endOnSurface bool) (core.Vec3, float64, float64)

	// Prepare validates the configuration and precomputes derived
	// coefficients. It is called once before rendering.
	Prepare() error
	Teardown()
}

// Common holds the coefficients every medium shares. Density scales both
// coefficients.
type Common struct {
	SigmaA    core.Vec3
	SigmaS    core.Vec3
	Density   float64 // 0 means 1
	MaxBounce int
	Phase     PhaseFunction // Defaults to isotropic

	sigmaA, sigmaS, sigmaT core.Vec3
	absorptionOnly         bool
}

func newCommon(sigmaA, sigmaS core.Vec3) Common {
	return Common{SigmaA: sigmaA, SigmaS: sigmaS, Density: 1, MaxBounce: DefaultMaxBounce}
}

func (c *Common) prepare() {
	density := c.Density
	if density == 0 {
		density = 1
	}
	c.sigmaA = c.SigmaA.Multiply(density)
	c.sigmaS = c.SigmaS.Multiply(density)
	c.sigmaT = c.sigmaA.Add(c.sigmaS)
	c.absorptionOnly = c.sigmaS.MaxComponent() == 0
	if c.Phase == nil {
		c.Phase = Isotropic{}
	}
}

// PhaseFunction returns the medium's phase function
func (c *Common) PhaseFunction() PhaseFunction {
	if c.Phase == nil {
		return Isotropic{}
	}
	return c.Phase
}

// finishSample converts the transmittance to the end of a sampled free
// flight into the sample weight and pdf. rho is the relative density at
// the sampled point.
func (c *Common) finishSample(sample *MediumSample, transmittance core.Vec3, rho float64) {
	sample.Weight = transmittance
	if sample.Exited {
		sample.Pdf = transmittance.Avg()
	} else {
		sample.Pdf = c.sigmaT.Multiply(rho).MultiplyVec(transmittance).Avg()
		sample.Weight = sample.Weight.MultiplyVec(c.sigmaS.Multiply(rho))
	}
	if sample.Pdf <= 0 {
		sample.Weight = core.Vec3{}
		return
	}
	sample.Weight = sample.Weight.Multiply(1 / sample.Pdf)
}

// distancePdf is the pdf of a free flight ending at the far end of a
// segment of the given transmittance, for the surface and medium cases.
// rho is the relative density at the end point.
func (c *Common) distancePdf(transmittance core.Vec3, rho float64, onSurface bool) float64 {
	if c.absorptionOnly {
		return 1
	}
	if onSurface {
		return transmittance.Avg()
	}
	return c.sigmaT.Multiply(rho).MultiplyVec(transmittance).Avg()
}

// exponentialSample draws -log(1 - xi) for a component chosen uniformly
func exponentialSample(sampler core.PathSampleGenerator, sigmaT core.Vec3, state *MediumState) (float64, float64) {
	component := sampler.NextDiscrete(3)
	state.Component = component
	return sigmaT.Get(component), -math.Log(1 - sampler.Next1D())
}
