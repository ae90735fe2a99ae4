package scene

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/texture"
)

// NewSpheresScene creates spheres of coated, metallic and glass materials on
// a large ground plane under a sky gradient and a distant sphere light
func NewSpheresScene(d *Document) (*Scene, error) {
	config := d.Camera(geometry.CameraConfig{
		Center:      core.NewVec3(0, 0.75, 2),
		LookAt:      core.NewVec3(0, 0.5, -1),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		VFov:        40.0,
		Aperture:    0.05,
	})
	s := New("spheres", geometry.NewCamera(config))
	s.Defaults = RenderDefaults{Spp: 200, MaxBounces: 50}

	ground := s.AddBsdf(material.NewLambert(core.NewVec3(0.8, 0.8, 0.0).Multiply(0.6)))
	blue := s.AddBsdf(material.NewLambert(core.NewVec3(0.1, 0.2, 0.5)))
	coatedRed := s.AddBsdf(material.NewSmoothCoat(material.NewLambert(core.NewVec3(0.65, 0.25, 0.2)), 1.5))
	silver := s.AddBsdf(material.NewMirror(core.NewVec3(0.8, 0.8, 0.8)))
	gold := s.AddBsdf(material.NewRoughConductor("Au", "ggx", d.Float("materials.gold_roughness", 0.3)))
	glass := s.AddBsdf(material.NewDielectric(1.5))
	bubble := s.AddBsdf(material.NewThinSheet(1.33))

	s.AddPrimitive(geometry.NewSphere(core.NewVec3(0, 0.5, -1), 0.5, coatedRed))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(-1, 0.5, -1), 0.5, silver))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(1, 0.5, -1), 0.5, gold))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(0.5, 0.25, -0.5), 0.25, glass))
	// Soap bubble around a small diffuse sphere
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(-0.5, 0.25, -0.5), 0.25, bubble))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(-0.5, 0.25, -0.5), 0.20, blue))

	// Large but finite ground so the scene has bounds
	s.AddPrimitive(NewGroundQuad(core.NewVec3(0, 0, 0), 10000.0, ground))

	s.AddSphereLight(core.NewVec3(30, 30.5, 15), 10, core.NewVec3(15.0, 14.0, 13.0))
	s.AddEnvironment(texture.NewGradient(
		core.NewVec3(1.0, 1.0, 1.0), // Horizon and below
		core.NewVec3(0.5, 0.7, 1.0), // Zenith
		1,
	))
	return s, nil
}
