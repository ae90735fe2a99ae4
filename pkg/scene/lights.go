package scene

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/texture"
)

// buildLightDistribution collects the samplable emitters and the discrete
// distribution next-event estimation picks them from
func (s *Scene) buildLightDistribution() {
	s.lights = s.lights[:0]
	s.lightIdx = make(map[geometry.Primitive]int)
	var weights []float64
	for _, p := range s.Primitives {
		if !p.Bindings().IsEmissive() || !p.IsSamplable() {
			continue
		}
		s.lightIdx[p] = len(s.lights)
		s.lights = append(s.lights, p)
		switch s.LightSelection {
		case LightSelectionUniform:
			weights = append(weights, 1)
		default:
			weights = append(weights, p.Power())
		}
	}
	s.lightDist = core.NewDistribution1D(weights)
}

// Lights returns the emitters next-event estimation can sample
func (s *Scene) Lights() []geometry.Primitive { return s.lights }

// ChooseLight picks an emitter for u in [0,1) and returns it with its
// selection probability. It returns nil when the scene has no samplable
// emitters.
func (s *Scene) ChooseLight(u float64) (geometry.Primitive, float64) {
	if len(s.lights) == 0 {
		return nil, 0
	}
	i, pdf := s.lightDist.Sample(u)
	return s.lights[i], pdf
}

// LightPdf returns the probability ChooseLight picks p
func (s *Scene) LightPdf(p geometry.Primitive) float64 {
	i, ok := s.lightIdx[p]
	if !ok {
		return 0
	}
	return s.lightDist.Pdf(i)
}

// AddSphereLight adds a spherical emitter with a null BSDF
func (s *Scene) AddSphereLight(center core.Vec3, radius float64, emission core.Vec3) *geometry.Sphere {
	sphere := geometry.NewSphere(center, radius, s.nullBsdf())
	sphere.SetEmission(texture.NewConstant(emission))
	s.AddPrimitive(sphere)
	return sphere
}

// AddQuadLight adds a rectangular emitter that shines along U × V
func (s *Scene) AddQuadLight(corner, u, v core.Vec3, emission core.Vec3) *geometry.Quad {
	quad := geometry.NewQuad(corner, u, v, s.nullBsdf())
	quad.SetEmission(texture.NewConstant(emission))
	s.AddPrimitive(quad)
	return quad
}

// AddPointLight adds a point emitter with the given radiant intensity
func (s *Scene) AddPointLight(position, intensity core.Vec3) *geometry.Point {
	point := geometry.NewPoint(position)
	point.SetEmission(texture.NewConstant(intensity))
	s.AddPrimitive(point)
	return point
}

// AddEnvironment surrounds the scene with an emitter of the given texture
func (s *Scene) AddEnvironment(emission texture.Texture) *geometry.InfiniteSphere {
	env := geometry.NewInfiniteSphere()
	env.SetEmission(emission)
	s.AddPrimitive(env)
	return env
}

// AddSun adds a cone of light around direction, like the sun's disk
func (s *Scene) AddSun(direction core.Vec3, capAngle float64, emission core.Vec3) *geometry.InfiniteSphereCap {
	sun := geometry.NewInfiniteSphereCap(direction, capAngle)
	sun.SetEmission(texture.NewConstant(emission))
	s.AddPrimitive(sun)
	return sun
}
