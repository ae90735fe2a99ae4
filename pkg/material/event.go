package material

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
)

// SurfaceScatterEvent carries one scattering query. Wi and Wo are always in
// the local shading frame, with Wi pointing away from the surface toward
// where the path came from. Sample fills Wo, Weight, Pdf and SampledLobe;
// Eval and Pdf only read the event.
type SurfaceScatterEvent struct {
	Info    *geometry.IntersectionInfo
	Sampler core.PathSampleGenerator
	Frame   core.TangentFrame

	Wi core.Vec3
	Wo core.Vec3

	// Weight is f * |cos(wo)| / pdf, already divided
	Weight core.Vec3
	Pdf    float64

	RequestedLobe BsdfLobes
	SampledLobe   BsdfLobes

	// FlippedFrame is set when the shading frame was mirrored for two-sided shading
	FlippedFrame bool
}

// NewSurfaceScatterEvent builds an event for the given frame and incoming world direction
func NewSurfaceScatterEvent(info *geometry.IntersectionInfo, sampler core.PathSampleGenerator, frame core.TangentFrame, wi core.Vec3, requested BsdfLobes, flipped bool) SurfaceScatterEvent {
	return SurfaceScatterEvent{
		Info:          info,
		Sampler:       sampler,
		Frame:         frame,
		Wi:            wi,
		Weight:        core.Splat(1),
		RequestedLobe: requested,
		FlippedFrame:  flipped,
	}
}

// MakeWarpedQuery returns a copy of the event with new directions
func (e SurfaceScatterEvent) MakeWarpedQuery(wi, wo core.Vec3) SurfaceScatterEvent {
	e.Wi = wi
	e.Wo = wo
	return e
}

// MakeFlippedQuery returns the event with Wi and Wo swapped
func (e SurfaceScatterEvent) MakeFlippedQuery() SurfaceScatterEvent {
	return e.MakeWarpedQuery(e.Wo, e.Wi)
}

// MakeForwardEvent returns the pass-through query: Wo continues the
// incoming ray and only the forward lobe is requested
func (e SurfaceScatterEvent) MakeForwardEvent() SurfaceScatterEvent {
	e.Wo = e.Wi.Negate()
	e.RequestedLobe = ForwardLobe
	return e
}

// checkReflectionConstraint reports whether wo is the mirror direction of wi
func checkReflectionConstraint(wi, wo core.Vec3) bool {
	return abs(wi.Z*wo.Z-wi.X*wo.X-wi.Y*wo.Y-1) < 1e-3
}

// checkRefractionConstraint reports whether wo is the refracted direction of
// wi for relative index eta and transmitted cosine cosThetaT
func checkRefractionConstraint(wi, wo core.Vec3, eta, cosThetaT float64) bool {
	dot := -wi.X*wo.X*eta - wi.Y*wo.Y*eta - copysign(cosThetaT, wi.Z)*wo.Z
	return abs(dot-1) < 1e-3
}

// mirror reflects a local direction about the normal
func mirror(w core.Vec3) core.Vec3 {
	return core.NewVec3(-w.X, -w.Y, w.Z)
}
