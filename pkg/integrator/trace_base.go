package integrator

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
	"github.com/df07/go-light-transport/pkg/scene"
)

// emissionFudge accepts light hits slightly closer than the sampled point
const emissionFudge = 1 + 1e-3

// noScatter stands in for surfaces without a BSDF
var noScatter = material.NewNull()

// TraceBase holds the surface and volume scattering logic shared by
// integrators: local scattering events, next-event estimation and shadow
// rays through transparent surfaces and media.
type TraceBase struct {
	scene    *scene.Scene
	settings Settings
}

// NewTraceBase creates the shared tracing state for one worker. The scene
// must be prepared.
func NewTraceBase(s *scene.Scene, settings Settings) *TraceBase {
	if settings.MaxBounces <= 0 {
		settings.MaxBounces = DefaultMaxBounces
	}
	return &TraceBase{scene: s, settings: settings}
}

// Settings returns the settings in use
func (tb *TraceBase) Settings() Settings { return tb.settings }

func (tb *TraceBase) bsdf(info *geometry.IntersectionInfo) material.Bsdf {
	if b := tb.scene.Bsdf(info.BsdfID); b != nil {
		return b
	}
	return noScatter
}

// makeLocalScatterEvent builds the scattering event for the hit in info.
// Opaque surfaces hit from behind get a mirrored frame when two-sided
// shading is on.
func (tb *TraceBase) makeLocalScatterEvent(info *geometry.IntersectionInfo, ray core.Ray, sampler core.PathSampleGenerator) material.SurfaceScatterEvent {
	bsdf := tb.bsdf(info)
	frame := material.SetupTangentFrame(bsdf, info)

	hitBackside := frame.Normal.Dot(ray.Direction) > 0
	flip := tb.settings.EnableTwoSidedShading && hitBackside && !bsdf.Lobes().IsTransmissive()
	if flip {
		frame = frame.Flip()
	}
	return material.NewSurfaceScatterEvent(info, sampler, frame, frame.ToLocal(ray.Direction.Negate()), material.AllLobes, flip)
}

// isConsistent reports whether the world direction w leaves the surface on
// the side the local direction event.Wo claims
func (tb *TraceBase) isConsistent(event *material.SurfaceScatterEvent, w core.Vec3) bool {
	if !tb.settings.EnableConsistencyChecks {
		return true
	}
	geometricBackside := w.Dot(event.Info.Ng) < 0
	shadingBackside := (event.Wo.Z < 0) != event.FlippedFrame
	return geometricBackside == shadingBackside
}

// generalizedShadowRay returns the transmittance along ray up to ray.FarT.
// Surfaces with a forward lobe let light through, attenuated by their
// forward evaluation and the media between them; any other surface blocks
// it. endCap is the emitter the ray is aimed at.
func (tb *TraceBase) generalizedShadowRay(sampler core.PathSampleGenerator, ray core.Ray, mediumID int, endCap geometry.Primitive, bounce int) core.Vec3 {
	var data geometry.IntersectionTemporary
	var info geometry.IntersectionInfo

	throughput := core.Splat(1)
	remaining := ray.FarT
	for {
		didHit := tb.scene.Intersect(&ray, &data, &info) && info.Primitive != endCap
		if didHit {
			bsdf := tb.bsdf(&info)
			if !bsdf.Lobes().HasForward() {
				return core.Vec3{}
			}
			event := tb.makeLocalScatterEvent(&info, ray, sampler)
			transparency := bsdf.Eval(ptr(event.MakeForwardEvent()))
			if transparency.IsZero() {
				return core.Vec3{}
			}
			throughput = throughput.MultiplyVec(transparency)
			bounce++
			if bounce >= tb.settings.MaxBounces {
				return core.Vec3{}
			}
		}

		if m := tb.scene.Medium(mediumID); m != nil {
			throughput = throughput.MultiplyVec(m.Transmittance(sampler, ray))
			if throughput.IsZero() {
				return core.Vec3{}
			}
		}

		if !didHit {
			break
		}
		mediumID = info.Primitive.Bindings().SelectMedium(mediumID, !data.Primitive.HitBackside(&data))
		remaining -= ray.FarT
		ray = core.NewSegment(ray.Hitpoint(), ray.Direction, info.Epsilon, remaining)
	}
	return throughput
}

// attenuatedEmission returns the emission of light seen along ray, times
// the transmittance up to it. expectedDist is the distance of the sampled
// point on the light, or a negative value when the direction was not
// sampled from the light.
func (tb *TraceBase) attenuatedEmission(sampler core.PathSampleGenerator, light geometry.Primitive, mediumID int, expectedDist float64, ray core.Ray, bounce int) (core.Vec3, *geometry.IntersectionTemporary, *geometry.IntersectionInfo) {
	var data geometry.IntersectionTemporary
	var info geometry.IntersectionInfo

	if light.IsDirac() {
		ray.FarT = expectedDist
		data.Primitive = light
	} else if !light.Intersect(&ray, &data) || ray.FarT*emissionFudge < expectedDist {
		return core.Vec3{}, nil, nil
	}
	geometry.CompleteInfo(ray, &data, &info)

	shadow := tb.generalizedShadowRay(sampler, ray, mediumID, light, bounce)
	if shadow.IsZero() {
		return core.Vec3{}, nil, nil
	}
	return shadow.MultiplyVec(light.EvalDirect(&data, &info)), &data, &info
}

// lightSample is the light-sampling half of next-event estimation at a
// surface. lightPdf scales the sampled density for the MIS weight.
func (tb *TraceBase) lightSample(light geometry.Primitive, lightPdf float64, event material.SurfaceScatterEvent, mediumID, bounce int, parent core.Ray) core.Vec3 {
	var sample core.LightSample
	if !light.SampleDirect(event.Info.P, event.Sampler, &sample) {
		return core.Vec3{}
	}

	event.Wo = event.Frame.ToLocal(sample.D)
	if !tb.isConsistent(&event, sample.D) {
		return core.Vec3{}
	}
	geometricBackside := sample.D.Dot(event.Info.Ng) < 0
	mediumID = event.Info.Primitive.Bindings().SelectMedium(mediumID, geometricBackside)

	bsdf := tb.bsdf(event.Info)
	event.RequestedLobe = material.AllButSpecular
	f := bsdf.Eval(&event)
	if f.IsZero() {
		return core.Vec3{}
	}

	ray := parent.Scatter(event.Info.P, sample.D, event.Info.Epsilon)
	ray.Primary = false
	e, _, _ := tb.attenuatedEmission(event.Sampler, light, mediumID, sample.Dist, ray, bounce)
	if e.IsZero() {
		return core.Vec3{}
	}

	result := f.MultiplyVec(e).Multiply(1 / sample.Pdf)
	if !light.IsDirac() {
		result = result.Multiply(core.PowerHeuristic(sample.Pdf*lightPdf, bsdf.Pdf(&event)))
	}
	return result
}

// bsdfSample is the BSDF-sampling half of next-event estimation at a
// surface. It only counts hits on light.
func (tb *TraceBase) bsdfSample(light geometry.Primitive, lightPdf float64, event material.SurfaceScatterEvent, mediumID, bounce int, parent core.Ray) core.Vec3 {
	bsdf := tb.bsdf(event.Info)
	event.RequestedLobe = material.AllButSpecular
	if !bsdf.Sample(&event) || event.Weight.IsZero() {
		return core.Vec3{}
	}

	wo := event.Frame.ToGlobal(event.Wo)
	if !tb.isConsistent(&event, wo) {
		return core.Vec3{}
	}
	geometricBackside := wo.Dot(event.Info.Ng) < 0
	mediumID = event.Info.Primitive.Bindings().SelectMedium(mediumID, geometricBackside)

	ray := parent.Scatter(event.Info.P, wo, event.Info.Epsilon)
	ray.Primary = false
	e, data, info := tb.attenuatedEmission(event.Sampler, light, mediumID, -1, ray, bounce)
	if e.IsZero() {
		return core.Vec3{}
	}

	mis := core.PowerHeuristic(event.Pdf, light.DirectPdf(data, info, event.Info.P)*lightPdf)
	return e.MultiplyVec(event.Weight).Multiply(mis)
}

// volumeLightSample is the light-sampling half of next-event estimation
// at a medium scattering point
func (tb *TraceBase) volumeLightSample(sampler core.PathSampleGenerator, ms *medium.MediumSample, light geometry.Primitive, lightPdf float64, mediumID, bounce int, parent core.Ray) core.Vec3 {
	var sample core.LightSample
	if !light.SampleDirect(ms.P, sampler, &sample) {
		return core.Vec3{}
	}

	f := ms.Phase.Eval(parent.Direction, sample.D)
	if f.IsZero() {
		return core.Vec3{}
	}

	ray := parent.Scatter(ms.P, sample.D, 0)
	ray.Primary = false
	e, _, _ := tb.attenuatedEmission(sampler, light, mediumID, sample.Dist, ray, bounce)
	if e.IsZero() {
		return core.Vec3{}
	}

	result := f.MultiplyVec(e).Multiply(1 / sample.Pdf)
	if !light.IsDirac() {
		result = result.Multiply(core.PowerHeuristic(sample.Pdf*lightPdf, ms.Phase.Pdf(parent.Direction, sample.D)))
	}
	return result
}

// volumePhaseSample is the phase-sampling half of next-event estimation
// at a medium scattering point
func (tb *TraceBase) volumePhaseSample(sampler core.PathSampleGenerator, ms *medium.MediumSample, light geometry.Primitive, lightPdf float64, mediumID, bounce int, parent core.Ray) core.Vec3 {
	var phase medium.PhaseSample
	if !ms.Phase.Sample(sampler, parent.Direction, &phase) {
		return core.Vec3{}
	}

	ray := parent.Scatter(ms.P, phase.W, 0)
	ray.Primary = false
	e, data, info := tb.attenuatedEmission(sampler, light, mediumID, -1, ray, bounce)
	if e.IsZero() {
		return core.Vec3{}
	}

	mis := core.PowerHeuristic(phase.Pdf, light.DirectPdf(data, info, ms.P)*lightPdf)
	return e.MultiplyVec(phase.Weight).Multiply(mis)
}

// estimateDirect picks one emitter and combines light and BSDF sampling
// toward it. The result is divided by the emitter's selection probability.
func (tb *TraceBase) estimateDirect(event material.SurfaceScatterEvent, mediumID, bounce int, parent core.Ray) core.Vec3 {
	light, pdf := tb.scene.ChooseLight(event.Sampler.Next1D())
	if light == nil || pdf <= 0 {
		return core.Vec3{}
	}
	result := tb.lightSample(light, pdf, event, mediumID, bounce, parent)
	if !light.IsDirac() {
		result = result.Add(tb.bsdfSample(light, pdf, event, mediumID, bounce, parent))
	}
	return result.Multiply(1 / pdf)
}

// volumeEstimateDirect is estimateDirect for a medium scattering point
func (tb *TraceBase) volumeEstimateDirect(sampler core.PathSampleGenerator, ms *medium.MediumSample, mediumID, bounce int, parent core.Ray) core.Vec3 {
	light, pdf := tb.scene.ChooseLight(sampler.Next1D())
	if light == nil || pdf <= 0 {
		return core.Vec3{}
	}
	result := tb.volumeLightSample(sampler, ms, light, pdf, mediumID, bounce, parent)
	if !light.IsDirac() {
		result = result.Add(tb.volumePhaseSample(sampler, ms, light, pdf, mediumID, bounce, parent))
	}
	return result.Multiply(1 / pdf)
}

// pathState is the mutable state of one path
type pathState struct {
	ray         core.Ray
	throughput  core.Vec3
	emission    core.Vec3
	mediumID    int
	medium      medium.MediumState
	wasSpecular bool
	bounce      int
}

// handleSurface scatters the path at a surface hit. A stochastic alpha
// test first decides between passing straight through the forward lobe
// and a real scattering event; the latter accumulates direct light and
// the surface's own emission before sampling the BSDF. It returns false
// when the path ends.
func (tb *TraceBase) handleSurface(data *geometry.IntersectionTemporary, info *geometry.IntersectionInfo, sampler core.PathSampleGenerator, enableLightSampling bool, path *pathState) bool {
	bsdf := tb.bsdf(info)
	event := tb.makeLocalScatterEvent(info, path.ray, sampler)

	transparency := bsdf.Eval(ptr(event.MakeForwardEvent()))
	t := clamp01(transparency.Avg())

	var wo core.Vec3
	if t > 0 && sampler.NextBoolean(t) {
		wo = path.ray.Direction
		path.throughput = path.throughput.MultiplyVec(transparency.Multiply(1 / t))
	} else {
		if t > 0 {
			path.throughput = path.throughput.Multiply(1 / (1 - t))
		}
		if enableLightSampling && path.bounce < tb.settings.MaxBounces-1 && !bsdf.Lobes().IsPureSpecular() {
			direct := tb.estimateDirect(event, path.mediumID, path.bounce+1, path.ray)
			path.emission = path.emission.Add(direct.MultiplyVec(path.throughput))
		}
		prim := info.Primitive
		if prim.Bindings().IsEmissive() && path.bounce >= tb.settings.MinBounces {
			if !enableLightSampling || path.wasSpecular || !prim.IsSamplable() {
				path.emission = path.emission.Add(prim.EvalDirect(data, info).MultiplyVec(path.throughput))
			}
		}

		event.RequestedLobe = material.AllLobes
		if !bsdf.Sample(&event) {
			return false
		}
		wo = event.Frame.ToGlobal(event.Wo)
		if !tb.isConsistent(&event, wo) {
			return false
		}
		path.throughput = path.throughput.MultiplyVec(event.Weight)
		path.wasSpecular = event.SampledLobe.HasSpecular()
		if !path.wasSpecular {
			path.ray.Primary = false
		}
	}

	geometricBackside := wo.Dot(info.Ng) < 0
	path.mediumID = info.Primitive.Bindings().SelectMedium(path.mediumID, geometricBackside)
	path.medium.Reset()
	path.ray = path.ray.Scatter(path.ray.Hitpoint(), wo, info.Epsilon)
	return true
}

// handleVolume scatters the path at a point inside a medium
func (tb *TraceBase) handleVolume(sampler core.PathSampleGenerator, ms *medium.MediumSample, enableLightSampling bool, path *pathState) bool {
	path.wasSpecular = !enableLightSampling
	if enableLightSampling && path.bounce < tb.settings.MaxBounces-1 {
		direct := tb.volumeEstimateDirect(sampler, ms, path.mediumID, path.bounce+1, path.ray)
		path.emission = path.emission.Add(direct.MultiplyVec(path.throughput))
	}

	var phase medium.PhaseSample
	if !ms.Phase.Sample(sampler, path.ray.Direction, &phase) {
		return false
	}
	path.ray = path.ray.Scatter(ms.P, phase.W, 0)
	path.ray.Primary = false
	path.throughput = path.throughput.MultiplyVec(phase.Weight)
	return true
}

// handleInfiniteLights adds the emission of every infinite emitter seen
// by an escaping ray
func (tb *TraceBase) handleInfiniteLights(enableLightSampling bool, path *pathState) {
	if path.ray.FarT != core.Infinity {
		return
	}
	for _, light := range tb.scene.Infinites() {
		if enableLightSampling && !path.wasSpecular && light.IsSamplable() {
			continue
		}
		var data geometry.IntersectionTemporary
		var info geometry.IntersectionInfo
		ray := path.ray
		if !light.Intersect(&ray, &data) {
			continue
		}
		geometry.CompleteInfo(ray, &data, &info)
		path.emission = path.emission.Add(path.throughput.MultiplyVec(light.EvalDirect(&data, &info)))
	}
}

func ptr[T any](v T) *T { return &v }

func clamp01(x float64) float64 {
	if x < 0 || x != x {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
