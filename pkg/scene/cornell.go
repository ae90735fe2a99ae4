package scene

import (
	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
)

// NewCornellScene creates the classic Cornell box with quad walls, a ceiling
// light, a mirror sphere and a glass sphere
func NewCornellScene(d *Document) (*Scene, error) {
	config := d.Camera(geometry.CameraConfig{
		Center:      core.NewVec3(278, 278, -800), // Outside the box looking in
		LookAt:      core.NewVec3(278, 278, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       400,
		AspectRatio: 1.0,
		VFov:        40.0,
	})
	s := New(DefaultSceneName, geometry.NewCamera(config))
	s.Defaults = RenderDefaults{Spp: 150, MaxBounces: 40}

	white := s.AddBsdf(material.NewLambert(d.Vec3("colors.white", core.NewVec3(0.73, 0.73, 0.73))))
	red := s.AddBsdf(material.NewLambert(d.Vec3("colors.left", core.NewVec3(0.65, 0.05, 0.05))))
	green := s.AddBsdf(material.NewLambert(d.Vec3("colors.right", core.NewVec3(0.12, 0.45, 0.15))))

	// Standard 555 unit box
	boxSize := 555.0

	floor := geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), white)
	ceiling := geometry.NewQuad(core.NewVec3(0, boxSize, 0), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, 0, boxSize), white)
	backWall := geometry.NewQuad(core.NewVec3(0, 0, boxSize), core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), white)
	leftWall := geometry.NewQuad(core.NewVec3(0, 0, 0), core.NewVec3(0, 0, boxSize), core.NewVec3(0, boxSize, 0), red)
	rightWall := geometry.NewQuad(core.NewVec3(boxSize, 0, 0), core.NewVec3(0, boxSize, 0), core.NewVec3(0, 0, boxSize), green)
	for _, wall := range []geometry.Primitive{floor, ceiling, backWall, leftWall, rightWall} {
		s.AddPrimitive(wall)
	}

	// Ceiling light, slightly below the ceiling and facing down
	lightSize := 130.0
	lightOffset := (boxSize - lightSize) / 2.0
	s.AddQuadLight(
		core.NewVec3(lightOffset, boxSize-1, lightOffset),
		core.NewVec3(lightSize, 0, 0),
		core.NewVec3(0, 0, lightSize),
		d.Vec3("lights.emission", core.NewVec3(15.0, 15.0, 15.0)),
	)

	mirror := s.AddBsdf(material.NewMirror(core.NewVec3(0.8, 0.8, 0.9)))
	glass := s.AddBsdf(material.NewDielectric(d.Float("materials.glass_ior", 1.5)))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(185, 82.5, 169), 82.5, mirror))
	s.AddPrimitive(geometry.NewSphere(core.NewVec3(370, 90, 351), 90, glass))
	return s, nil
}
