package scene

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/texture"
)

// oklchToRGB converts OKLCH color values to linear RGB
// L: lightness (0-1), C: chroma (0-0.4+), H: hue (0-360 degrees)
func oklchToRGB(l, c, h float64) core.Vec3 {
	hRad := h * math.Pi / 180.0

	// OKLCH to OKLAB
	a := c * math.Cos(hRad)
	b := c * math.Sin(hRad)

	// OKLAB to LMS
	l_ := l + 0.3963377774*a + 0.2158037573*b
	m_ := l - 0.1055613458*a - 0.0638541728*b
	s_ := l - 0.0894841775*a - 1.2914855480*b

	l_ = l_ * l_ * l_
	m_ = m_ * m_ * m_
	s_ = s_ * s_ * s_

	// LMS to linear RGB
	r := +4.0767416621*l_ - 3.3077115913*m_ + 0.2309699292*s_
	g := -1.2684380046*l_ + 2.6097574011*m_ - 0.3413193965*s_
	blue := -0.0041960863*l_ - 0.7034186147*m_ + 1.7076147010*s_

	return core.NewVec3(r, g, blue).Clamp(0, 1)
}

// materialSwatches builds one BSDF of every kind, tinted along the hue wheel
func materialSwatches(d *Document) []material.Bsdf {
	roughness := d.Float("materials.roughness", 0.2)
	distribution := d.String("materials.distribution", "ggx")
	ior := d.Float("materials.glass_ior", 1.5)

	const count = 12
	tint := func(i int) core.Vec3 {
		return oklchToRGB(0.7, 0.15, float64(i)*360.0/count)
	}

	bumpy := material.NewLambert(tint(0))
	bumpy.Bump = texture.NewChecker(core.Splat(0), core.Splat(1), 12, 6)
	bumpy.BumpStrength = 0.02

	checker := texture.NewChecker(core.Splat(1), core.Splat(0), 8, 4)

	return []material.Bsdf{
		bumpy,
		material.NewOrenNayar(tint(1), 0.5),
		material.NewPlastic(tint(2), ior),
		material.NewRoughPlastic(tint(3), ior, distribution, roughness),
		material.NewConductor("Cu"),
		material.NewRoughConductor("Ag", distribution, roughness),
		material.NewDielectric(ior),
		material.NewRoughDielectric(ior, distribution, roughness),
		material.NewSmoothCoat(material.NewRoughConductor("Au", distribution, 0.4), ior),
		material.NewThinSheet(ior),
		material.NewMixed(material.NewLambert(tint(10)), material.NewMirror(core.Splat(0.9)), 0.5),
		material.NewTransparency(material.NewLambert(tint(11)), checker),
	}
}

// NewMaterialsScene lays out one sphere per BSDF kind in a grid on a
// checkered floor
func NewMaterialsScene(d *Document) (*Scene, error) {
	config := d.Camera(geometry.CameraConfig{
		Center:      core.NewVec3(0, 5, 9),
		LookAt:      core.NewVec3(0, 0.5, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       600,
		AspectRatio: 16.0 / 9.0,
		VFov:        35.0,
	})
	s := New("materials", geometry.NewCamera(config))
	s.Defaults = RenderDefaults{Spp: 128, MaxBounces: 32}

	floor := s.AddBsdf(material.NewTexturedLambert(texture.NewChecker(
		core.NewVec3(0.8, 0.8, 0.8), core.NewVec3(0.3, 0.3, 0.3), 40, 40)))
	s.AddPrimitive(NewGroundQuad(core.NewVec3(0, 0, 0), 40, floor))

	const columns = 4
	spacing := 2.2
	radius := 0.8
	swatches := materialSwatches(d)
	rows := (len(swatches) + columns - 1) / columns
	for i, b := range swatches {
		col, row := i%columns, i/columns
		x := (float64(col) - float64(columns-1)/2) * spacing
		z := (float64(row) - float64(rows-1)/2) * spacing
		s.AddPrimitive(geometry.NewSphere(core.NewVec3(x, radius, z), radius, s.AddBsdf(b)))
	}

	s.AddQuadLight(
		core.NewVec3(-2, 8, -2),
		core.NewVec3(4, 0, 0),
		core.NewVec3(0, 0, 4),
		d.Vec3("lights.emission", core.NewVec3(8, 8, 8)),
	)
	s.AddEnvironment(texture.NewConstant(d.Vec3("lights.environment", core.NewVec3(0.2, 0.22, 0.25))))
	return s, nil
}
