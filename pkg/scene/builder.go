package scene

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
)

// nullBsdf returns the index of a shared BSDF that never scatters, used by emitters
func (s *Scene) nullBsdf() int {
	for i, b := range s.Bsdfs {
		if b.Kind() == material.KindNull {
			return i
		}
	}
	return s.AddBsdf(material.NewNull())
}

// forwardBsdf returns the index of a shared index-matched interface, used to
// bound media
func (s *Scene) forwardBsdf() int {
	for i, b := range s.Bsdfs {
		if b.Kind() == material.KindForward {
			return i
		}
	}
	return s.AddBsdf(material.NewForward())
}

// NewGroundQuad creates a large horizontal quad centered at center. Its
// normal points up.
func NewGroundQuad(center core.Vec3, size float64, bsdfID int) *geometry.Quad {
	corner := core.NewVec3(center.X-size/2, center.Y, center.Z-size/2)
	// (0,0,size) × (size,0,0) = (0,size²,0)
	u := core.NewVec3(0, 0, size)
	v := core.NewVec3(size, 0, 0)
	return geometry.NewQuad(corner, u, v, bsdfID)
}

// AddMediumBox adds an invisible box filled with m
func (s *Scene) AddMediumBox(bounds core.AABB, m medium.Medium) *geometry.Cube {
	id := s.AddMedium(m)
	cube := geometry.NewCubeFromBounds(bounds, s.forwardBsdf())
	cube.SetMedia(id, -1)
	s.AddPrimitive(cube)
	return cube
}

// mediumParams reads the shared medium overrides of a document
func mediumParams(d *Document, sigmaA, sigmaS core.Vec3) (core.Vec3, core.Vec3, medium.PhaseFunction) {
	sigmaA = d.Vec3("media.sigma_a", sigmaA)
	sigmaS = d.Vec3("media.sigma_s", sigmaS)
	var phase medium.PhaseFunction = medium.Isotropic{}
	if g := d.Float("media.phase_g", 0); g != 0 {
		phase = medium.HenyeyGreenstein{G: g}
	}
	return sigmaA, sigmaS, phase
}
