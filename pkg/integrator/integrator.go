// Package integrator estimates the radiance arriving at the camera with
// unidirectional path tracing, next-event estimation and multiple
// importance sampling. Integrators are not safe for concurrent use: each
// render worker owns one, while the scene they read is shared.
package integrator

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/scene"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// TraceSample traces one path through pixel (x, y) and returns its
	// radiance estimate and the number of bounces it took
	TraceSample(sampler core.PathSampleGenerator, x, y int) (core.Vec3, int)
}

// Factory creates a fresh integrator for one worker
type Factory func(s *scene.Scene) Integrator

// PathTracerFactory returns a Factory building path tracers with settings
func PathTracerFactory(settings Settings) Factory {
	return func(s *scene.Scene) Integrator {
		return NewPathTracer(s, settings)
	}
}
