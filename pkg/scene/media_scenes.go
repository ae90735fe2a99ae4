package scene

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
	"github.com/df07/go-light-transport/pkg/texture"
)

// NewMediumBoxScene places a box of homogeneous scattering medium on a
// floor, lit from above by a quad light and a point light. The sphere
// inside the box is reached only through the medium.
func NewMediumBoxScene(d *Document) (*Scene, error) {
	s := New("medium-box", geometry.NewCamera(d.Camera(geometry.CameraConfig{
		Center:      core.NewVec3(0, 2.5, 7),
		LookAt:      core.NewVec3(0, 1, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 4.0 / 3.0,
		VFov:        35.0,
	})))
	s.Defaults = RenderDefaults{Spp: 256, MaxBounces: 64}

	floor := s.AddBsdf(material.NewLambert(core.Splat(0.6)))
	s.AddPrimitive(NewGroundQuad(core.NewVec3(0, 0, 0), 20, floor))

	sigmaA, sigmaS, phase := mediumParams(d, core.Splat(0.05), core.NewVec3(0.8, 0.6, 0.4))
	m := medium.NewHomogeneous(sigmaA, sigmaS)
	m.Phase = phase
	m.MaxBounce = d.Int("media.max_bounce", medium.DefaultMaxBounce)
	box := core.NewAABB(core.NewVec3(-1.5, 0.001, -1.5), core.NewVec3(1.5, 2.5, 1.5))
	cube := s.AddMediumBox(box, m)

	// Shapes inside the box must see the medium on both sides
	inner := s.AddBsdf(material.NewRoughPlastic(core.NewVec3(0.2, 0.4, 0.8), 1.5, "ggx", 0.3))
	ball := geometry.NewSphere(core.NewVec3(0, 0.8, 0), 0.6, inner)
	ball.SetMedia(cube.IntMedium, cube.IntMedium)
	s.AddPrimitive(ball)

	s.AddQuadLight(
		core.NewVec3(-1, 5, -1),
		core.NewVec3(2, 0, 0),
		core.NewVec3(0, 0, 2),
		d.Vec3("lights.emission", core.Splat(10)),
	)
	s.AddPointLight(
		d.Vec3("lights.point_position", core.NewVec3(3, 3, 2)),
		d.Vec3("lights.point_intensity", core.NewVec3(6, 5, 4)),
	)
	return s, nil
}

// fogDensity is a smooth, lumpy density field in the unit cube
func fogDensity(p core.Vec3) float64 {
	v := 0.5 +
		0.25*math.Sin(7*p.X+1)*math.Sin(5*p.Z+2) +
		0.25*math.Sin(9*p.Y+0.5)*math.Cos(6*p.X)
	// Fade towards the top of the volume
	return math.Max(0, v*(1.2-p.Y))
}

// NewFogScene fills a box with a voxel density grid above a floor, lit by
// the sun. The integration mode of the grid is configurable.
func NewFogScene(d *Document) (*Scene, error) {
	s := New("fog", geometry.NewCamera(d.Camera(geometry.CameraConfig{
		Center:      core.NewVec3(0, 1.5, 6),
		LookAt:      core.NewVec3(0, 1, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
	})))
	s.Defaults = RenderDefaults{Spp: 128, MaxBounces: 64}

	floor := s.AddBsdf(material.NewLambert(core.NewVec3(0.5, 0.45, 0.4)))
	s.AddPrimitive(NewGroundQuad(core.NewVec3(0, 0, 0), 30, floor))

	mode, err := medium.ParseIntegrationMode(d.String("media.integration", "exact_linear"))
	if err != nil {
		return nil, err
	}
	bounds := core.NewAABB(core.NewVec3(-2.5, 0.001, -1.5), core.NewVec3(2.5, 2.5, 1.5))
	res := d.Int("media.resolution", 32)
	grid := medium.NewGridFromFunc(res, res/2, res/2, bounds, func(p core.Vec3) float64 {
		local := p.Subtract(bounds.Min).DivideVec(bounds.Size())
		return fogDensity(local)
	})

	sigmaA, sigmaS, phase := mediumParams(d, core.Splat(0.1), core.Splat(1.5))
	m := medium.NewVoxel(grid, sigmaA, sigmaS, mode)
	m.Phase = phase
	if step := d.Float("media.step_size", 0); step > 0 {
		m.StepSize = step
	}
	s.AddMediumBox(bounds, m)

	s.AddSun(
		d.Vec3("lights.sun_direction", core.NewVec3(-1, 1.5, 1)),
		d.Float("lights.sun_angle", 3),
		d.Vec3("lights.sun_emission", core.NewVec3(300, 280, 250)),
	)
	s.AddEnvironment(texture.NewGradient(core.NewVec3(0.4, 0.4, 0.45), core.NewVec3(0.15, 0.25, 0.5), 1))
	return s, nil
}
