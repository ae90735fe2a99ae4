package material

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// ThinSheet is an infinitely thin absorbing slab, like a soap film or a
// window pane modelled as a single surface. Light either reflects
// specularly or passes straight through; interreflections inside the slab
// are summed in closed form.
type ThinSheet struct {
	Common
	Ior       float64
	Thickness float64
	SigmaA    core.Vec3
}

// NewThinSheet creates a clear thin sheet
func NewThinSheet(ior float64) *ThinSheet {
	return &ThinSheet{Ior: ior}
}

func (s *ThinSheet) Kind() Kind       { return KindThinSheet }
func (s *ThinSheet) Lobes() BsdfLobes { return SpecularReflectionLobe | ForwardLobe }

// reflectTransmit returns the total reflectance and transmittance of the slab
func (s *ThinSheet) reflectTransmit(cosThetaI float64) (core.Vec3, core.Vec3) {
	r, cosThetaT := DielectricReflectance(1/s.Ior, math.Abs(cosThetaI))
	if r == 1 {
		return core.Splat(1), core.Vec3{}
	}
	t := core.Splat(1)
	if s.Thickness > 0 && s.SigmaA.MaxComponent() > 0 && cosThetaT > 0 {
		t = s.SigmaA.Multiply(-s.Thickness / cosThetaT).Exp()
	}

	rx, tx := slab(r, t.X)
	ry, ty := slab(r, t.Y)
	rz, tz := slab(r, t.Z)
	return core.NewVec3(rx, ry, rz), core.NewVec3(tx, ty, tz)
}

// slab sums the geometric series of bounces between two interfaces with
// reflectance r separated by a layer of transmittance t
func slab(r, t float64) (float64, float64) {
	denom := 1 - r*r*t*t
	return r + (1-r)*(1-r)*r*t*t/denom, (1 - r) * (1 - r) * t / denom
}

func (s *ThinSheet) Sample(event *SurfaceScatterEvent) bool {
	if !event.RequestedLobe.Test(SpecularReflectionLobe) || event.Wi.Z == 0 {
		return false
	}
	reflect, _ := s.reflectTransmit(event.Wi.Z)
	event.Wo = mirror(event.Wi)
	event.Pdf = 1
	event.Weight = reflect.MultiplyVec(s.albedo(event.Info))
	event.SampledLobe = SpecularReflectionLobe
	return true
}

func (s *ThinSheet) Eval(event *SurfaceScatterEvent) core.Vec3 {
	reflect, transmit := s.reflectTransmit(event.Wi.Z)
	if event.RequestedLobe.IsForward() {
		return transmit.MultiplyVec(s.albedo(event.Info))
	}
	if event.RequestedLobe.Test(SpecularReflectionLobe) && checkReflectionConstraint(event.Wi, event.Wo) {
		return reflect.MultiplyVec(s.albedo(event.Info))
	}
	return core.Vec3{}
}

func (s *ThinSheet) Pdf(event *SurfaceScatterEvent) float64 {
	if event.RequestedLobe.Test(SpecularReflectionLobe) && checkReflectionConstraint(event.Wi, event.Wo) {
		return 1
	}
	return 0
}

func (s *ThinSheet) Prepare() error {
	return checkIor(s.Ior)
}

func (s *ThinSheet) Teardown() {}
