package scene

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/texture"
)

// sphereCamera looks at the origin from +Z, framing a unit sphere
func sphereCamera(d *Document) *geometry.Camera {
	return geometry.NewCamera(d.Camera(geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 5),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       256,
		AspectRatio: 1.0,
		VFov:        30.0,
	}))
}

// NewDiffuseSphereScene is a Lambertian unit sphere lit by one small
// spherical emitter in an otherwise black world. Direct lighting at the
// sphere's front has a closed form.
func NewDiffuseSphereScene(d *Document) (*Scene, error) {
	s := New("diffuse-sphere", sphereCamera(d))
	s.Defaults = RenderDefaults{Spp: 64, MaxBounces: 8}

	albedo := s.AddBsdf(material.NewLambert(d.Vec3("colors.albedo", core.Splat(0.8))))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(0, 0, 0), 1, albedo))
	s.AddSphereLight(
		d.Vec3("lights.position", core.NewVec3(0, 4, 4)),
		d.Float("lights.radius", 0.5),
		d.Vec3("lights.emission", core.Splat(10)),
	)
	return s, nil
}

// NewMirrorSphereScene is a perfect mirror inside a constant environment.
// Every camera ray sees exactly the environment radiance.
func NewMirrorSphereScene(d *Document) (*Scene, error) {
	s := New("mirror-sphere", sphereCamera(d))
	s.Defaults = RenderDefaults{Spp: 4, MaxBounces: 8}

	mirror := s.AddBsdf(material.NewMirror(core.Splat(1)))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(0, 0, 0), 1, mirror))
	s.AddEnvironment(texture.NewConstant(d.Vec3("lights.environment", core.Splat(0.5))))
	return s, nil
}

// NewGlassSphereScene is a smooth dielectric sphere resting on a checkered
// floor under the sun and a sky, producing a caustic
func NewGlassSphereScene(d *Document) (*Scene, error) {
	s := New("glass-sphere", geometry.NewCamera(d.Camera(geometry.CameraConfig{
		Center:      core.NewVec3(0, 2, 6),
		LookAt:      core.NewVec3(0, 0.8, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 4.0 / 3.0,
		VFov:        35.0,
	})))
	s.Defaults = RenderDefaults{Spp: 256, MaxBounces: 32}

	floor := s.AddBsdf(material.NewTexturedLambert(texture.NewChecker(
		core.NewVec3(0.75, 0.75, 0.75), core.NewVec3(0.2, 0.2, 0.2), 20, 20)))
	s.AddPrimitive(NewGroundQuad(core.NewVec3(0, 0, 0), 20, floor))

	glass := s.AddBsdf(material.NewDielectric(d.Float("materials.glass_ior", 1.5)))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(0, 1, 0), 1, glass))

	s.AddSun(
		d.Vec3("lights.sun_direction", core.NewVec3(1, 2, 0.5)),
		d.Float("lights.sun_angle", 2),
		d.Vec3("lights.sun_emission", core.NewVec3(800, 760, 700)),
	)
	s.AddEnvironment(texture.NewGradient(core.NewVec3(0.6, 0.6, 0.6), core.NewVec3(0.2, 0.35, 0.6), 1))
	return s, nil
}
