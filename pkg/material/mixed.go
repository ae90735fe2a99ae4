package material

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/texture"
)

// Mixed blends two BSDFs. Ratio is the weight of Bsdf0.
type Mixed struct {
	Common
	Bsdf0 Bsdf
	Bsdf1 Bsdf
	Ratio texture.Texture
}

// NewMixed blends a and b with a constant ratio
func NewMixed(a, b Bsdf, ratio float64) *Mixed {
	return &Mixed{Bsdf0: a, Bsdf1: b, Ratio: texture.NewScalar(ratio)}
}

func (m *Mixed) Kind() Kind       { return KindMixed }
func (m *Mixed) Lobes() BsdfLobes { return m.Bsdf0.Lobes() | m.Bsdf1.Lobes() }

// adjustedRatio restricts the blend to the children that can produce one
// of the requested lobes. It returns false when neither can.
func (m *Mixed) adjustedRatio(event *SurfaceScatterEvent) (float64, bool) {
	sample0 := event.RequestedLobe.Test(m.Bsdf0.Lobes())
	sample1 := event.RequestedLobe.Test(m.Bsdf1.Lobes())
	switch {
	case sample0 && sample1:
		return clamp(scalar(m.Ratio, event.Info, 0.5), 0, 1), true
	case sample0:
		return 1, true
	case sample1:
		return 0, true
	}
	return 0, false
}

func (m *Mixed) Sample(event *SurfaceScatterEvent) bool {
	ratio, ok := m.adjustedRatio(event)
	if !ok {
		return false
	}

	chosen, other, pChosen := m.Bsdf0, m.Bsdf1, ratio
	if !event.Sampler.NextBoolean(ratio) {
		chosen, other, pChosen = m.Bsdf1, m.Bsdf0, 1-ratio
	}
	if !chosen.Sample(event) {
		return false
	}

	// A Dirac sample has no density under the other child
	if event.SampledLobe.IsPureSpecular() {
		event.Pdf *= pChosen
		return true
	}

	pdf := event.Pdf*pChosen + other.Pdf(event)*(1-pChosen)
	if pdf <= 0 {
		return false
	}
	f := event.Weight.Multiply(event.Pdf * pChosen).Add(other.Eval(event).Multiply(1 - pChosen))
	event.Pdf = pdf
	event.Weight = f.Multiply(1 / pdf)
	return true
}

func (m *Mixed) Eval(event *SurfaceScatterEvent) core.Vec3 {
	ratio, ok := m.adjustedRatio(event)
	if !ok {
		return core.Vec3{}
	}
	var result core.Vec3
	if ratio > 0 {
		result = m.Bsdf0.Eval(event).Multiply(ratio)
	}
	if ratio < 1 {
		result = result.Add(m.Bsdf1.Eval(event).Multiply(1 - ratio))
	}
	return result
}

func (m *Mixed) Pdf(event *SurfaceScatterEvent) float64 {
	ratio, ok := m.adjustedRatio(event)
	if !ok {
		return 0
	}
	var pdf float64
	if ratio > 0 {
		pdf = m.Bsdf0.Pdf(event) * ratio
	}
	if ratio < 1 {
		pdf += m.Bsdf1.Pdf(event) * (1 - ratio)
	}
	return pdf
}

func (m *Mixed) Prepare() error {
	if m.Bsdf0 == nil || m.Bsdf1 == nil {
		return core.NewConfigError("mixed child", "")
	}
	if err := m.Bsdf0.Prepare(); err != nil {
		return err
	}
	return m.Bsdf1.Prepare()
}

func (m *Mixed) Teardown() {
	m.Bsdf0.Teardown()
	m.Bsdf1.Teardown()
}

// Transparency makes a base BSDF partially see-through. Opacity is one
// where the base scatters and zero where light passes through unchanged.
type Transparency struct {
	Common
	Base    Bsdf
	Opacity texture.Texture
}

// NewTransparency wraps base with an opacity texture
func NewTransparency(base Bsdf, opacity texture.Texture) *Transparency {
	return &Transparency{Base: base, Opacity: opacity}
}

func (t *Transparency) Kind() Kind       { return KindTransparency }
func (t *Transparency) Lobes() BsdfLobes { return t.Base.Lobes() | ForwardLobe }

func (t *Transparency) opacity(event *SurfaceScatterEvent) float64 {
	return clamp(scalar(t.Opacity, event.Info, 1), 0, 1)
}

func (t *Transparency) Sample(event *SurfaceScatterEvent) bool {
	opacity := t.opacity(event)
	if opacity == 0 || !t.Base.Sample(event) {
		return false
	}
	event.Weight = event.Weight.Multiply(opacity)
	return true
}

func (t *Transparency) Eval(event *SurfaceScatterEvent) core.Vec3 {
	opacity := t.opacity(event)
	if event.RequestedLobe.IsForward() {
		return core.Splat(1 - opacity)
	}
	return t.Base.Eval(event).Multiply(opacity)
}

func (t *Transparency) Pdf(event *SurfaceScatterEvent) float64 {
	if event.RequestedLobe.IsForward() {
		return 0
	}
	return t.Base.Pdf(event)
}

func (t *Transparency) Prepare() error {
	if t.Base == nil {
		return core.NewConfigError("transparency base", "")
	}
	return t.Base.Prepare()
}

func (t *Transparency) Teardown() { t.Base.Teardown() }

// Forward passes light through unchanged. It marks medium boundaries that
// do not refract.
type Forward struct {
	Common
}

func NewForward() *Forward { return &Forward{} }

func (f *Forward) Kind() Kind       { return KindForward }
func (f *Forward) Lobes() BsdfLobes { return ForwardLobe }

func (f *Forward) Sample(event *SurfaceScatterEvent) bool { return false }

func (f *Forward) Eval(event *SurfaceScatterEvent) core.Vec3 {
	if event.RequestedLobe.IsForward() {
		return core.Splat(1)
	}
	return core.Vec3{}
}

func (f *Forward) Pdf(event *SurfaceScatterEvent) float64 { return 0 }
func (f *Forward) Prepare() error                         { return nil }
func (f *Forward) Teardown()                              {}

// Null absorbs everything. Emissive primitives that should not reflect
// light use it.
type Null struct {
	Common
}

func NewNull() *Null { return &Null{} }

func (n *Null) Kind() Kind                                { return KindNull }
func (n *Null) Lobes() BsdfLobes                          { return NullLobe }
func (n *Null) Sample(event *SurfaceScatterEvent) bool    { return false }
func (n *Null) Eval(event *SurfaceScatterEvent) core.Vec3 { return core.Vec3{} }
func (n *Null) Pdf(event *SurfaceScatterEvent) float64    { return 0 }
func (n *Null) Prepare() error                            { return nil }
func (n *Null) Teardown()                                 {}
