package integrator

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/medium"
	"github.com/df07/go-light-transport/pkg/scene"
)

// rouletteThreshold is the throughput below which Russian roulette starts
const rouletteThreshold = 0.1

// rouletteMinBounce is the last bounce that is never terminated early
const rouletteMinBounce = 2

// PathTracer implements unidirectional path tracing
type PathTracer struct {
	*TraceBase
}

// NewPathTracer creates a path tracer for one worker
func NewPathTracer(s *scene.Scene, settings Settings) *PathTracer {
	return &PathTracer{TraceBase: NewTraceBase(s, settings)}
}

// TraceSample traces one camera path through pixel (x, y)
func (pt *PathTracer) TraceSample(sampler core.PathSampleGenerator, x, y int) (core.Vec3, int) {
	camera := pt.scene.Camera
	ray, weight, ok := camera.GenerateRay(sampler, x, y)
	if !ok {
		return core.Vec3{}, 0
	}
	return pt.TraceRay(sampler, ray, weight, camera.MediumID)
}

// TraceRay follows a path starting with ray inside the given medium and
// returns the radiance it carries back and the number of bounces
func (pt *PathTracer) TraceRay(sampler core.PathSampleGenerator, ray core.Ray, weight core.Vec3, mediumID int) (core.Vec3, int) {
	path := pathState{
		ray:         ray,
		throughput:  weight,
		mediumID:    mediumID,
		wasSpecular: true,
	}
	path.medium.Reset()

	var data geometry.IntersectionTemporary
	var info geometry.IntersectionInfo
	var ms medium.MediumSample

	maxBounces := pt.settings.MaxBounces
	didHit := pt.scene.Intersect(&path.ray, &data, &info)
	for (didHit || path.mediumID >= 0) && path.bounce < maxBounces {
		hitSurface := true
		if m := pt.scene.Medium(path.mediumID); m != nil {
			if !m.SampleDistance(sampler, path.ray, &path.medium, &ms) {
				return path.emission, path.bounce
			}
			path.throughput = path.throughput.MultiplyVec(ms.Weight)
			hitSurface = ms.Exited
			if hitSurface && !didHit {
				break
			}
		} else if !didHit {
			break
		}

		if hitSurface {
			if !pt.handleSurface(&data, &info, sampler, pt.settings.EnableLightSampling, &path) {
				return path.emission, path.bounce
			}
		} else if !pt.handleVolume(sampler, &ms, pt.settings.EnableVolumeLightSampling, &path) {
			return path.emission, path.bounce
		}

		if path.throughput.MaxComponent() <= 0 {
			return path.emission, path.bounce
		}
		roulettePdf := path.throughput.Abs().MaxComponent()
		if path.bounce > rouletteMinBounce && roulettePdf < rouletteThreshold {
			if !sampler.NextBoolean(roulettePdf) {
				return path.emission, path.bounce
			}
			path.throughput = path.throughput.Multiply(1 / roulettePdf)
		}
		if path.throughput.HasNaN() || math.IsNaN(path.ray.Direction.Sum()+path.ray.Origin.Sum()) {
			core.Logger().Debug("path produced NaN", "bounce", path.bounce)
			return path.emission, path.bounce
		}

		path.bounce++
		if path.bounce < maxBounces {
			didHit = pt.scene.Intersect(&path.ray, &data, &info)
		} else {
			didHit = false
		}
	}

	if path.bounce >= pt.settings.MinBounces && path.bounce < maxBounces {
		pt.handleInfiniteLights(pt.settings.EnableLightSampling, &path)
	}
	return path.emission, path.bounce
}
