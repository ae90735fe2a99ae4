package integrator

import (
	"math"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/medium"
	"github.com/df07/go-light-transport/pkg/scene"
	"github.com/df07/go-light-transport/pkg/texture"
)

// createTestScene creates an empty scene with a small camera
func createTestScene() *scene.Scene {
	camera := geometry.NewCamera(geometry.CameraConfig{
		Center:      core.NewVec3(0, 0, 5),
		LookAt:      core.NewVec3(0, 0, 0),
		Up:          core.NewVec3(0, 1, 0),
		Width:       8,
		AspectRatio: 1,
		VFov:        30,
	})
	return scene.New("test", camera)
}

func prepare(t *testing.T, s *scene.Scene) *scene.Scene {
	t.Helper()
	if err := s.PrepareForRender(); err != nil {
		t.Fatalf("PrepareForRender() error: %v", err)
	}
	return s
}

func builtin(t *testing.T, name string) *scene.Scene {
	t.Helper()
	s, err := scene.Builtin(name)
	if err != nil {
		t.Fatalf("Builtin(%q) error: %v", name, err)
	}
	return prepare(t, s)
}

// meanRadiance averages n paths starting with ray
func meanRadiance(pt *PathTracer, seed uint64, ray core.Ray, n int) (core.Vec3, float64) {
	sampler := core.NewUniformSampler(seed, 0)
	var sum core.Vec3
	bounces := 0
	for i := 0; i < n; i++ {
		radiance, b := pt.TraceRay(sampler, ray, core.Splat(1), -1)
		sum = sum.Add(radiance)
		bounces += b
	}
	return sum.Multiply(1 / float64(n)), float64(bounces) / float64(n)
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.MaxBounces != 64 || s.MinBounces != 0 {
		t.Errorf("Bounce limits = (%d, %d), want (64, 0)", s.MaxBounces, s.MinBounces)
	}
	if !s.EnableLightSampling || !s.EnableVolumeLightSampling {
		t.Error("Light sampling should be on by default")
	}
	if got := s.WithMaxBounces(8).MaxBounces; got != 8 {
		t.Errorf("WithMaxBounces(8) = %d", got)
	}
	if got := s.WithMaxBounces(0).MaxBounces; got != 64 {
		t.Errorf("WithMaxBounces(0) = %d, want the limit unchanged", got)
	}
}

// TestDiffuseSphereAnalytic compares direct lighting on a Lambertian sphere
// with the closed form for a spherical emitter fully above the horizon:
// L = albedo/pi * pi * Le * (r/d)^2 * cos(alpha)
func TestDiffuseSphereAnalytic(t *testing.T) {
	s := builtin(t, "diffuse-sphere")
	pt := NewPathTracer(s, DefaultSettings())

	// Hits the sphere at (0,0,1), 5 units from the light at (0,4,4)
	ray := core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1))
	got, _ := meanRadiance(pt, 42, ray, 4000)

	want := 0.8 * 10 * (0.25 / 25) * 0.6
	for i := 0; i < 3; i++ {
		if math.Abs(got.Get(i)-want)/want > 0.02 {
			t.Errorf("Channel %d = %.5f, want %.5f", i, got.Get(i), want)
		}
	}
}

// TestMirrorSphereZeroVariance renders every pixel of a mirror sphere in a
// constant environment. Every path sees exactly the environment.
func TestMirrorSphereZeroVariance(t *testing.T) {
	doc, err := scene.NewDocument("mirror-sphere").Set("camera.width", 24)
	if err != nil {
		t.Fatal(err)
	}
	s, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}
	prepare(t, s)

	pt := NewPathTracer(s, DefaultSettings())
	sampler := core.NewUniformSampler(7, 0)
	want := core.Splat(0.5)
	hitMirror := 0
	for y := 0; y < s.Camera.Height; y++ {
		for x := 0; x < s.Camera.Width; x++ {
			got, bounces := pt.TraceSample(sampler, x, y)
			if got.Subtract(want).Abs().MaxComponent() > 1e-12 {
				t.Fatalf("Pixel (%d, %d) = %v, want %v", x, y, got, want)
			}
			if bounces > 0 {
				hitMirror++
			}
		}
	}
	if hitMirror == 0 {
		t.Error("No path hit the mirror")
	}
}

// TestFurnace puts the camera inside an emissive diffuse sphere. Radiance
// is Le/(1-albedo) everywhere, with and without next-event estimation.
func TestFurnace(t *testing.T) {
	build := func(albedo float64) *scene.Scene {
		s := createTestScene()
		sphere := geometry.NewSphere(core.Vec3{}, 10, s.AddBsdf(material.NewLambert(core.Splat(albedo))))
		sphere.SetEmission(texture.NewConstant(core.Splat(1)))
		s.AddPrimitive(sphere)
		return prepare(t, s)
	}
	ray := core.NewRay(core.NewVec3(1, 2, 3), core.NewVec3(0.3, -0.2, 1).Normalize())

	tests := []struct {
		name          string
		albedo        float64
		lightSampling bool
		samples       int
		tolerance     float64
	}{
		{"half albedo, emission hits", 0.5, false, 20000, 0.02},
		{"half albedo, light sampling", 0.5, true, 20000, 0.03},
		{"low albedo", 0.05, false, 10000, 0.002},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := DefaultSettings()
			settings.MaxBounces = 10000
			settings.EnableLightSampling = tt.lightSampling
			pt := NewPathTracer(build(tt.albedo), settings)

			got, meanBounces := meanRadiance(pt, 3, ray, tt.samples)
			want := 1 / (1 - tt.albedo)
			if math.Abs(got.X-want)/want > tt.tolerance {
				t.Errorf("Radiance = %.5f, want %.5f", got.X, want)
			}
			t.Logf("mean path length %.3f", meanBounces)
		})
	}
}

// TestRussianRoulettePathLength checks that low-albedo paths end soon
// after roulette starts
func TestRussianRoulettePathLength(t *testing.T) {
	s := createTestScene()
	sphere := geometry.NewSphere(core.Vec3{}, 10, s.AddBsdf(material.NewLambert(core.Splat(0.05))))
	sphere.SetEmission(texture.NewConstant(core.Splat(1)))
	s.AddPrimitive(sphere)
	prepare(t, s)

	settings := DefaultSettings()
	settings.EnableLightSampling = false
	pt := NewPathTracer(s, settings)

	_, meanBounces := meanRadiance(pt, 11, core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1)), 10000)
	// Throughput drops below the threshold after the first bounce, but
	// roulette only starts after bounce 2
	if meanBounces < 3 || meanBounces > 3.05 {
		t.Errorf("Mean path length = %.4f, want just above 3", meanBounces)
	}
}

// TestAbsorbingMedium looks through a box of absorbing medium at a quad
// light. The transmittance is exactly exp(-sigmaA * L).
func TestAbsorbingMedium(t *testing.T) {
	s := createTestScene()
	sigmaA := core.NewVec3(0.5, 0.25, 1)
	s.AddMediumBox(core.NewAABB(core.Splat(-1), core.Splat(1)), medium.NewHomogeneous(sigmaA, core.Vec3{}))
	// Faces +z, toward the camera
	s.AddQuadLight(core.NewVec3(-2, -2, -3), core.NewVec3(4, 0, 0), core.NewVec3(0, 4, 0), core.Splat(2))
	prepare(t, s)

	pt := NewPathTracer(s, DefaultSettings())
	got, _ := meanRadiance(pt, 5, core.NewRay(core.NewVec3(0.1, 0.2, 5), core.NewVec3(0, 0, -1)), 16)

	want := sigmaA.Multiply(-2).Exp().Multiply(2)
	if got.Subtract(want).Abs().MaxComponent() > 1e-9 {
		t.Errorf("Radiance = %v, want %v", got, want)
	}
}

// TestPointLightDirect is deterministic: a point light is sampled exactly
// and nothing else lights the floor
func TestPointLightDirect(t *testing.T) {
	s := createTestScene()
	albedo := 0.5
	s.AddPrimitive(scene.NewGroundQuad(core.Vec3{}, 10, s.AddBsdf(material.NewLambert(core.Splat(albedo)))))
	s.AddPointLight(core.NewVec3(0, 2, 0), core.Splat(4))
	prepare(t, s)

	pt := NewPathTracer(s, DefaultSettings())
	ray := core.NewRay(core.NewVec3(0, 1, 1), core.NewVec3(0, -1, -1).Normalize())
	sampler := core.NewUniformSampler(1, 0)
	want := albedo / math.Pi * 4 / 4
	for i := 0; i < 32; i++ {
		got, _ := pt.TraceRay(sampler, ray, core.Splat(1), -1)
		if math.Abs(got.X-want) > 1e-9 {
			t.Fatalf("Sample %d = %.8f, want %.8f", i, got.X, want)
		}
	}
}

// TestDiffuseSphereInEnvironment checks MIS between environment sampling
// and BSDF sampling: a convex Lambertian surface under a constant sky
// reflects albedo * L
func TestDiffuseSphereInEnvironment(t *testing.T) {
	s := createTestScene()
	s.AddPrimitive(geometry.NewSphere(core.Vec3{}, 1, s.AddBsdf(material.NewLambert(core.Splat(0.8)))))
	s.AddEnvironment(texture.NewConstant(core.Splat(0.5)))
	prepare(t, s)

	for _, lightSampling := range []bool{true, false} {
		settings := DefaultSettings()
		settings.EnableLightSampling = lightSampling
		pt := NewPathTracer(s, settings)
		got, _ := meanRadiance(pt, 9, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)), 16000)
		if math.Abs(got.X-0.4) > 0.02 {
			t.Errorf("lightSampling=%v: radiance = %.4f, want 0.4", lightSampling, got.X)
		}
	}
}

// TestTransparentSurface looks through a cutout quad at a light. The
// stochastic alpha test lets (1 - opacity) of the light through.
func TestTransparentSurface(t *testing.T) {
	s := createTestScene()
	s.AddQuadLight(core.NewVec3(-2, -2, -3), core.NewVec3(4, 0, 0), core.NewVec3(0, 4, 0), core.Splat(1))
	cutout := s.AddBsdf(material.NewTransparency(material.NewNull(), texture.NewScalar(0.25)))
	s.AddPrimitive(geometry.NewQuad(core.NewVec3(-2, -2, 0), core.NewVec3(4, 0, 0), core.NewVec3(0, 4, 0), cutout))
	prepare(t, s)

	pt := NewPathTracer(s, DefaultSettings())
	got, _ := meanRadiance(pt, 13, core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1)), 8000)
	if math.Abs(got.X-0.75) > 0.03 {
		t.Errorf("Radiance = %.4f, want 0.75", got.X)
	}
}

func TestGeneralizedShadowRay(t *testing.T) {
	s := createTestScene()
	cutout := s.AddBsdf(material.NewTransparency(material.NewLambert(core.Splat(0.5)), texture.NewScalar(0.25)))
	s.AddPrimitive(geometry.NewQuad(core.NewVec3(-1, -1, 2), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), cutout))
	s.AddMediumBox(core.NewAABB(core.NewVec3(-1, -1, -2), core.NewVec3(1, 1, 0)), medium.NewHomogeneous(core.Splat(0.5), core.Vec3{}))
	opaque := s.AddBsdf(material.NewLambert(core.Splat(0.5)))
	s.AddPrimitive(geometry.NewQuad(core.NewVec3(-1, -1, -4), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), opaque))
	prepare(t, s)

	tb := NewTraceBase(s, DefaultSettings())
	sampler := core.NewUniformSampler(1, 0)
	origin := core.NewVec3(0, 0, 4)
	dir := core.NewVec3(0, 0, -1)

	tests := []struct {
		name string
		farT float64
		want float64
	}{
		{"free", 1.5, 1},
		{"through cutout", 3, 0.75},
		{"through cutout and medium", 7, 0.75 * math.Exp(-1)},
		{"blocked", 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ray := core.NewSegment(origin, dir, 1e-4, tt.farT)
			got := tb.generalizedShadowRay(sampler, ray, -1, nil, 0)
			if math.Abs(got.X-tt.want) > 1e-9 {
				t.Errorf("Transmittance = %.6f, want %.6f", got.X, tt.want)
			}
		})
	}
}

func TestConsistencyCheck(t *testing.T) {
	s := createTestScene()
	s.AddPrimitive(geometry.NewSphere(core.Vec3{}, 1, s.AddBsdf(material.NewLambert(core.Splat(0.5)))))
	prepare(t, s)

	settings := DefaultSettings()
	settings.EnableConsistencyChecks = true
	tb := NewTraceBase(s, settings)

	ray := core.NewRay(core.NewVec3(0, 0, 5), core.NewVec3(0, 0, -1))
	var data geometry.IntersectionTemporary
	var info geometry.IntersectionInfo
	if !s.Intersect(&ray, &data, &info) {
		t.Fatal("Expected a hit")
	}
	event := tb.makeLocalScatterEvent(&info, ray, core.NewUniformSampler(1, 0))
	if event.FlippedFrame {
		t.Fatal("Front-facing hit should not flip the frame")
	}

	event.Wo = core.NewVec3(0, 0, 1)
	if !tb.isConsistent(&event, core.NewVec3(0, 0, 1)) {
		t.Error("Outgoing direction on the front should be consistent")
	}
	if tb.isConsistent(&event, core.NewVec3(0, 0, -1)) {
		t.Error("Shading front with geometric back should be inconsistent")
	}
}

func TestTwoSidedShading(t *testing.T) {
	s := createTestScene()
	s.AddPrimitive(geometry.NewQuad(core.NewVec3(-1, -1, 0), core.NewVec3(2, 0, 0), core.NewVec3(0, 2, 0), s.AddBsdf(material.NewLambert(core.Splat(0.5)))))
	prepare(t, s)

	// Hit the quad from behind (its normal is +z)
	ray := core.NewRay(core.NewVec3(0, 0, -3), core.NewVec3(0, 0, 1))
	var data geometry.IntersectionTemporary
	var info geometry.IntersectionInfo
	if !s.Intersect(&ray, &data, &info) {
		t.Fatal("Expected a hit")
	}

	for _, twoSided := range []bool{true, false} {
		settings := DefaultSettings()
		settings.EnableTwoSidedShading = twoSided
		event := NewTraceBase(s, settings).makeLocalScatterEvent(&info, ray, core.NewUniformSampler(1, 0))
		if event.FlippedFrame != twoSided {
			t.Errorf("twoSided=%v: FlippedFrame = %v", twoSided, event.FlippedFrame)
		}
		if twoSided && event.Wi.Z <= 0 {
			t.Errorf("Flipped frame should put wi above the surface, got %v", event.Wi)
		}
		if !twoSided && event.Wi.Z >= 0 {
			t.Errorf("Unflipped frame should leave wi below the surface, got %v", event.Wi)
		}
	}
}

func TestPathTracerDeterministic(t *testing.T) {
	s := builtin(t, "cornell")
	pt := NewPathTracer(s, DefaultSettings())
	trace := func() core.Vec3 {
		sampler := core.NewUniformSampler(99, 3)
		var sum core.Vec3
		for i := 0; i < 16; i++ {
			c, _ := pt.TraceSample(sampler, 200, 200)
			sum = sum.Add(c)
		}
		return sum
	}
	if a, b := trace(), trace(); a != b {
		t.Errorf("Same seed gave different results: %v vs %v", a, b)
	}
}

func TestBuiltinScenesTrace(t *testing.T) {
	for _, name := range scene.BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			doc, err := scene.NewDocument(name).Set("camera.width", 8)
			if err != nil {
				t.Fatal(err)
			}
			s, err := doc.Build()
			if err != nil {
				t.Fatal(err)
			}
			prepare(t, s)

			pt := PathTracerFactory(DefaultSettings().WithMaxBounces(s.Defaults.MaxBounces))(s)
			sampler := core.NewUniformSampler(1, 0)
			var sum core.Vec3
			for y := 0; y < s.Camera.Height; y++ {
				for x := 0; x < s.Camera.Width; x++ {
					c, _ := pt.TraceSample(sampler, x, y)
					if c.HasNaN() || c.MinComponent() < 0 {
						t.Fatalf("Pixel (%d, %d) = %v", x, y, c)
					}
					sum = sum.Add(c)
				}
			}
			if sum.IsZero() {
				t.Error("Image is completely black")
			}
		})
	}
}
