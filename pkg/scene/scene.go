// Package scene owns everything a render reads: primitives, BSDFs, media,
// the camera and the light distribution. A Scene is assembled, prepared
// once with PrepareForRender, and then shared read-only by every worker.
package scene

import (
	"fmt"
	"strconv"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
)

// ErrUnknownType is returned when a configuration names a type or index
// that does not exist
var ErrUnknownType = core.ErrUnknownType

// ConfigError names the offending entry of a bad configuration
type ConfigError = core.ConfigError

// LightSelection decides how next-event estimation picks an emitter
type LightSelection int

const (
	// LightSelectionPower picks emitters in proportion to their emitted power
	LightSelectionPower LightSelection = iota
	// LightSelectionUniform picks every emitter with the same probability
	LightSelectionUniform
)

// RenderDefaults are the sampling settings a scene suggests
type RenderDefaults struct {
	Spp        int // Samples per pixel
	MaxBounces int // 0 means the integrator default
}

// Scene is an arena of render resources. Primitives refer to BSDFs and
// media by index.
type Scene struct {
	Name           string
	Camera         *geometry.Camera
	Primitives     []geometry.Primitive
	Bsdfs          []material.Bsdf
	Media          []medium.Medium
	LightSelection LightSelection
	Defaults       RenderDefaults

	bvh       *geometry.BVH
	finite    []geometry.Primitive
	infinites []geometry.Primitive
	lights    []geometry.Primitive
	lightDist *core.Distribution1D
	lightIdx  map[geometry.Primitive]int
	bounds    core.AABB
	prepared  bool
}

// New creates an empty scene viewed through camera
func New(name string, camera *geometry.Camera) *Scene {
	return &Scene{Name: name, Camera: camera, Defaults: RenderDefaults{Spp: 64}}
}

// AddBsdf stores a BSDF and returns its index
func (s *Scene) AddBsdf(b material.Bsdf) int {
	s.Bsdfs = append(s.Bsdfs, b)
	return len(s.Bsdfs) - 1
}

// AddMedium stores a medium and returns its index
func (s *Scene) AddMedium(m medium.Medium) int {
	s.Media = append(s.Media, m)
	return len(s.Media) - 1
}

// AddPrimitive stores a primitive and returns its index
func (s *Scene) AddPrimitive(p geometry.Primitive) int {
	s.Primitives = append(s.Primitives, p)
	return len(s.Primitives) - 1
}

// Bsdf returns the BSDF with the given index, or nil for -1
func (s *Scene) Bsdf(id int) material.Bsdf {
	if id < 0 || id >= len(s.Bsdfs) {
		return nil
	}
	return s.Bsdfs[id]
}

// Medium returns the medium with the given index, or nil for -1
func (s *Scene) Medium(id int) medium.Medium {
	if id < 0 || id >= len(s.Media) {
		return nil
	}
	return s.Media[id]
}

// Bounds returns the bounds of all finite primitives
func (s *Scene) Bounds() core.AABB { return s.bounds }

// PrimitiveCount returns the number of intersectable elements, counting
// each mesh triangle separately
func (s *Scene) PrimitiveCount() int {
	count := 0
	for _, p := range s.Primitives {
		if mesh, ok := p.(*geometry.TriangleMesh); ok {
			count += mesh.TriangleCount()
			continue
		}
		count++
	}
	return count
}

// PrepareForRender validates the scene and precomputes everything the
// render needs. It returns the first configuration error and leaves the
// scene unprepared in that case.
func (s *Scene) PrepareForRender() error {
	if s.Camera == nil {
		return fmt.Errorf("scene %q has no camera", s.Name)
	}
	if err := s.checkIndex("camera medium", s.Camera.MediumID, len(s.Media)); err != nil {
		return err
	}
	for i, p := range s.Primitives {
		b := p.Bindings()
		if err := s.checkIndex("bsdf index", b.BsdfID, len(s.Bsdfs)); err != nil {
			return fmt.Errorf("primitive %d (%v): %w", i, p.Kind(), err)
		}
		if err := s.checkIndex("medium index", b.IntMedium, len(s.Media)); err != nil {
			return fmt.Errorf("primitive %d (%v): %w", i, p.Kind(), err)
		}
		if err := s.checkIndex("medium index", b.ExtMedium, len(s.Media)); err != nil {
			return fmt.Errorf("primitive %d (%v): %w", i, p.Kind(), err)
		}
	}
	for i, b := range s.Bsdfs {
		if err := b.Prepare(); err != nil {
			return fmt.Errorf("bsdf %d (%v): %w", i, b.Kind(), err)
		}
	}
	for i, m := range s.Media {
		if err := m.Prepare(); err != nil {
			return fmt.Errorf("medium %d (%v): %w", i, m.Kind(), err)
		}
	}

	s.finite = s.finite[:0]
	s.infinites = s.infinites[:0]
	s.bounds = core.EmptyAABB()
	var boxes []core.AABB
	for _, p := range s.Primitives {
		if p.IsInfinite() {
			s.infinites = append(s.infinites, p)
			continue
		}
		s.finite = append(s.finite, p)
		boxes = append(boxes, p.Bounds())
		s.bounds = s.bounds.Union(p.Bounds())
	}
	for _, p := range s.Primitives {
		p.Prepare(s.bounds)
	}
	s.bvh = geometry.NewBVH(boxes)
	s.buildLightDistribution()
	s.prepared = true

	core.Logger().Info("scene prepared",
		"scene", s.Name,
		"primitives", s.PrimitiveCount(),
		"lights", len(s.lights),
		"bsdfs", len(s.Bsdfs),
		"media", len(s.Media))
	return nil
}

func (s *Scene) checkIndex(kind string, id, n int) error {
	if id < -1 || id >= n {
		return core.NewConfigError(kind, strconv.Itoa(id))
	}
	return nil
}

// TeardownAfterRender releases what PrepareForRender computed
func (s *Scene) TeardownAfterRender() {
	for _, b := range s.Bsdfs {
		b.Teardown()
	}
	for _, m := range s.Media {
		m.Teardown()
	}
	s.bvh = nil
	s.prepared = false
}

// Prepared reports whether PrepareForRender succeeded since the last teardown
func (s *Scene) Prepared() bool { return s.prepared }

// Intersect finds the closest finite hit along ray, narrowing ray.FarT and
// completing info. Infinite primitives are not considered.
func (s *Scene) Intersect(ray *core.Ray, data *geometry.IntersectionTemporary, info *geometry.IntersectionInfo) bool {
	data.Primitive = nil
	info.Primitive = nil
	hit := s.bvh.Intersect(ray, func(item int) bool {
		return s.finite[item].Intersect(ray, data)
	})
	if !hit {
		return false
	}
	geometry.CompleteInfo(*ray, data, info)
	return true
}

// Infinites returns the primitives without finite bounds
func (s *Scene) Infinites() []geometry.Primitive { return s.infinites }

// IntersectInfinites tests an escaping ray against the infinite
// primitives, such as environment emitters
func (s *Scene) IntersectInfinites(ray *core.Ray, data *geometry.IntersectionTemporary, info *geometry.IntersectionInfo) bool {
	if ray.FarT != core.Infinity {
		return false
	}
	for _, p := range s.infinites {
		if p.Intersect(ray, data) {
			geometry.CompleteInfo(*ray, data, info)
			return true
		}
	}
	return false
}

// Occluded reports whether any finite primitive blocks the segment
func (s *Scene) Occluded(ray core.Ray) bool {
	return s.bvh.Occluded(ray, func(item int) bool {
		return s.finite[item].Occluded(ray)
	})
}
