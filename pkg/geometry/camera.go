package geometry

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// CameraConfig contains all parameters needed to create a camera
type CameraConfig struct {
	Center        core.Vec3 // Camera position
	LookAt        core.Vec3 // Point the camera is looking at
	Up            core.Vec3 // Up direction (usually (0,1,0))
	Width         int       // Image width in pixels
	AspectRatio   float64   // Width / height
	VFov          float64   // Vertical field of view in degrees
	Aperture      float64   // Lens diameter, 0 for a pinhole
	FocusDistance float64   // Distance to the plane in focus, 0 to focus on LookAt
}

// Camera is a thin-lens camera. Pixel (0,0) is the top-left corner of the image.
type Camera struct {
	config CameraConfig
	Width  int
	Height int

	// MediumID is the medium the camera sits in, -1 for none
	MediumID int

	origin     core.Vec3
	u, v, w    core.Vec3 // Camera basis, w points away from the view direction
	lowerLeft  core.Vec3 // Lower-left corner of the focus plane
	horizontal core.Vec3
	vertical   core.Vec3
	lensRadius float64
}

// NewCamera creates a camera from the given configuration
func NewCamera(config CameraConfig) *Camera {
	if config.AspectRatio <= 0 {
		config.AspectRatio = 1
	}
	if config.Width <= 0 {
		config.Width = 1
	}
	if config.Up.IsZero() {
		config.Up = core.NewVec3(0, 1, 0)
	}

	focus := config.FocusDistance
	if focus <= 0 {
		focus = config.LookAt.Subtract(config.Center).Length()
		if focus == 0 {
			focus = 1
		}
	}

	theta := config.VFov * math.Pi / 180
	halfHeight := math.Tan(theta / 2)
	halfWidth := config.AspectRatio * halfHeight

	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	horizontal := u.Multiply(2 * halfWidth * focus)
	vertical := v.Multiply(2 * halfHeight * focus)
	lowerLeft := config.Center.
		Subtract(horizontal.Multiply(0.5)).
		Subtract(vertical.Multiply(0.5)).
		Subtract(w.Multiply(focus))

	return &Camera{
		config:     config,
		Width:      config.Width,
		Height:     max(1, int(float64(config.Width)/config.AspectRatio)),
		MediumID:   -1,
		origin:     config.Center,
		u:          u,
		v:          v,
		w:          w,
		lowerLeft:  lowerLeft,
		horizontal: horizontal,
		vertical:   vertical,
		lensRadius: config.Aperture / 2,
	}
}

// Config returns the configuration the camera was built from
func (c *Camera) Config() CameraConfig {
	return c.config
}

// SamplePosition picks a point on the lens
func (c *Camera) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	sample.Ng = c.w.Negate()
	sample.Weight = core.Splat(1)
	sample.Pdf = 1
	if c.lensRadius <= 0 {
		sample.P = c.origin
		return true
	}

	disk := core.ConcentricDisk(sampler.Next2D())
	sample.P = c.origin.
		Add(c.u.Multiply(disk.X * c.lensRadius)).
		Add(c.v.Multiply(disk.Y * c.lensRadius))
	sample.Pdf = 1 / (math.Pi * c.lensRadius * c.lensRadius)
	return true
}

// SampleDirection picks a direction from the lens point through a jittered
// position inside the given pixel
func (c *Camera) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, pixel core.Vec2, sample *core.DirectionSample) bool {
	jitter := sampler.Next2D()
	s := (pixel.X + jitter.X) / float64(c.Width)
	t := 1 - (pixel.Y+jitter.Y)/float64(c.Height)

	target := c.lowerLeft.Add(c.horizontal.Multiply(s)).Add(c.vertical.Multiply(t))
	d := target.Subtract(point.P)
	if d.IsZero() {
		return false
	}
	sample.D = d.Normalize()
	sample.Weight = core.Splat(1)
	sample.Pdf = 1
	return true
}

// GenerateRay builds the primary ray for pixel (x, y) and returns it with its weight
func (c *Camera) GenerateRay(sampler core.PathSampleGenerator, x, y int) (core.Ray, core.Vec3, bool) {
	var position core.PositionSample
	if !c.SamplePosition(sampler, &position) {
		return core.Ray{}, core.Vec3{}, false
	}
	var direction core.DirectionSample
	if !c.SampleDirection(sampler, position, core.NewVec2(float64(x), float64(y)), &direction) {
		return core.Ray{}, core.Vec3{}, false
	}

	ray := core.NewRay(position.P, direction.D)
	ray.Primary = true
	return ray, position.Weight.MultiplyVec(direction.Weight), true
}
