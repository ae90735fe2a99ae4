package renderer

import (
	"context"
	"errors"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/integrator"
	"github.com/df07/go-light-transport/pkg/scene"
	"github.com/google/go-cmp/cmp"
)

// testScene builds and prepares a built-in scene at a small resolution and
// returns it with its configuration hash
func testScene(t *testing.T, name string, width int) (*scene.Scene, [32]byte) {
	t.Helper()
	doc, err := scene.NewDocument(name).Set("camera.width", width)
	if err != nil {
		t.Fatal(err)
	}
	s, err := doc.Build()
	if err != nil {
		t.Fatalf("Build(%q) error: %v", name, err)
	}
	if err := s.PrepareForRender(); err != nil {
		t.Fatalf("PrepareForRender() error: %v", err)
	}
	hash, err := doc.ConfigHash()
	if err != nil {
		t.Fatal(err)
	}
	return s, hash
}

func pathTracer() integrator.Factory {
	return integrator.PathTracerFactory(integrator.DefaultSettings().WithMaxBounces(16))
}

func mockFactory(c core.Vec3) integrator.Factory {
	return func(*scene.Scene) integrator.Integrator {
		return &MockIntegrator{returnColor: c}
	}
}

// filmColors flattens the film's pixel means
func filmColors(f *Film) []core.Vec3 {
	var colors []core.Vec3
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			colors = append(colors, f.Color(x, y))
		}
	}
	return colors
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.TileSize != 64 {
		t.Errorf("Expected default tile size 64, got %d", config.TileSize)
	}
	if config.Spp != 64 || config.SppStep != 8 {
		t.Errorf("Expected 64 spp in steps of 8, got %d in steps of %d", config.Spp, config.SppStep)
	}
	if config.Adaptive {
		t.Error("Adaptive sampling should be off by default")
	}
	if config.TileSize%config.VarianceTileSize != 0 {
		t.Error("Default tile size should be a multiple of the variance tile size")
	}
}

func TestConfigNormalize(t *testing.T) {
	c := Config{Spp: 4, SppStep: 16, TileSize: 20, VarianceTileSize: 8}.normalize()
	if c.SppStep != 4 {
		t.Errorf("SppStep = %d, want it clamped to Spp", c.SppStep)
	}
	if c.TileSize != 24 {
		t.Errorf("TileSize = %d, want 24", c.TileSize)
	}
	if c.Logger == nil {
		t.Error("Logger should default to the package logger")
	}

	def := DefaultConfig()
	z := Config{}.normalize()
	if z.Spp != def.Spp || z.SppStep != def.SppStep || z.TileSize != def.TileSize || z.VarianceTileSize != def.VarianceTileSize {
		t.Errorf("Zero config normalized to %+v", z)
	}
}

func TestNewRendererRequiresPreparedScene(t *testing.T) {
	s, err := scene.Builtin("diffuse-sphere")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewRenderer(s, pathTracer(), DefaultConfig()); err == nil {
		t.Error("Expected an error for an unprepared scene")
	}
}

func TestRenderPassSchedule(t *testing.T) {
	s, _ := testScene(t, "diffuse-sphere", 16)
	config := DefaultConfig()
	config.Spp = 10
	config.SppStep = 4
	config.NumWorkers = 2
	r, err := NewRenderer(s, mockFactory(core.Splat(0.5)), config)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// 4, 8, then the remaining 2
	want := []int{4, 8, 10}
	for pass, spp := range want {
		stats, err := r.RenderPass(context.Background(), pass+1, nil)
		if err != nil {
			t.Fatalf("Pass %d error: %v", pass+1, err)
		}
		if r.CurrentSpp() != spp {
			t.Errorf("Pass %d: CurrentSpp = %d, want %d", pass+1, r.CurrentSpp(), spp)
		}
		if stats.MinSamples != spp || stats.MaxSamplesUsed != spp || stats.AverageSamples != float64(spp) {
			t.Errorf("Pass %d: stats = %+v", pass+1, stats)
		}
	}
	if !r.Done() {
		t.Error("Renderer should be done after reaching its target")
	}
	if got := r.Film().Color(3, 3); got != core.Splat(0.5) {
		t.Errorf("Pixel = %v, want 0.5", got)
	}
}

func TestRenderTileCallbacks(t *testing.T) {
	s, _ := testScene(t, "diffuse-sphere", 100)
	config := DefaultConfig()
	config.Spp = 1
	config.TileSize = 32
	r, err := NewRenderer(s, mockFactory(core.Splat(1)), config)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var results []TileCompletionResult
	if _, err := r.RenderPass(context.Background(), 1, func(tc TileCompletionResult) {
		results = append(results, tc)
	}); err != nil {
		t.Fatal(err)
	}

	// 100x100 image with 32 pixel tiles
	if len(results) != 16 {
		t.Fatalf("Got %d tile callbacks, want 16", len(results))
	}
	for i, tc := range results {
		if tc.TileNumber != i+1 || tc.TotalTiles != 16 || tc.PassNumber != 1 || tc.TotalPasses != 1 {
			t.Errorf("Callback %d = %+v", i, tc)
		}
		if tc.TileImage.RGBAAt(0, 0).R != 255 {
			t.Errorf("Callback %d image is not rendered", i)
		}
	}
}

func TestRenderDeterministicAcrossWorkers(t *testing.T) {
	render := func(workers int) []core.Vec3 {
		s, _ := testScene(t, "diffuse-sphere", 24)
		config := DefaultConfig()
		config.Spp = 4
		config.SppStep = 2
		config.TileSize = 16
		config.VarianceTileSize = 8
		config.NumWorkers = workers
		r, err := NewRenderer(s, pathTracer(), config)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := r.Render(context.Background()); err != nil {
			t.Fatalf("Render() error: %v", err)
		}
		return filmColors(r.Film())
	}

	if diff := cmp.Diff(render(1), render(4)); diff != "" {
		t.Errorf("Worker count changed the image (-1 worker +4 workers):\n%s", diff)
	}
}

func TestRenderMirrorSphere(t *testing.T) {
	s, _ := testScene(t, "mirror-sphere", 32)
	config := DefaultConfig()
	config.Spp = 4
	config.SppStep = 4
	r, err := NewRenderer(s, pathTracer(), config)
	if err != nil {
		t.Fatal(err)
	}
	stats, err := r.Render(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSamples != 4*s.Camera.Width*s.Camera.Height {
		t.Errorf("TotalSamples = %d", stats.TotalSamples)
	}
	if stats.TotalBounces == 0 {
		t.Error("No path hit the mirror")
	}
	for i, c := range filmColors(r.Film()) {
		if c.Subtract(core.Splat(0.5)).Abs().MaxComponent() > 1e-12 {
			t.Fatalf("Pixel %d = %v, want 0.5", i, c)
		}
	}
}

func TestRenderAdaptive(t *testing.T) {
	s, _ := testScene(t, "diffuse-sphere", 32)
	config := DefaultConfig()
	config.Spp = 16
	config.SppStep = 4
	config.Adaptive = true
	config.AdaptiveStartSpp = 4
	config.TileSize = 16
	config.VarianceTileSize = 8
	r, err := NewRenderer(s, func(*scene.Scene) integrator.Integrator {
		return noisyIntegrator{width: 32}
	}, config)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Render(context.Background()); err != nil {
		t.Fatal(err)
	}

	noisy, constant := r.Film().SampleCount(0, 0), r.Film().SampleCount(31, 0)
	if noisy <= constant {
		t.Errorf("Noisy pixel took %d samples, constant pixel %d", noisy, constant)
	}
	// The constant half converges after the uniform start
	if constant != 4 {
		t.Errorf("Constant pixel took %d samples, want 4", constant)
	}
}

func TestRenderCancelled(t *testing.T) {
	s, _ := testScene(t, "diffuse-sphere", 16)
	r, err := NewRenderer(s, pathTracer(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Render(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
	if r.CurrentSpp() != 0 {
		t.Errorf("CurrentSpp = %d after cancellation, want 0", r.CurrentSpp())
	}
}

func TestRenderPassCancelledBetweenTiles(t *testing.T) {
	s, _ := testScene(t, "diffuse-sphere", 16)
	r, err := NewRenderer(s, pathTracer(), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.RenderPass(ctx, 1, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("RenderPass() error = %v, want context.Canceled", err)
	}
	if r.CurrentSpp() != 0 {
		t.Error("A cancelled pass should not count")
	}
}

func TestRenderProgressive(t *testing.T) {
	s, _ := testScene(t, "diffuse-sphere", 16)
	config := DefaultConfig()
	config.Spp = 6
	config.SppStep = 2
	r, err := NewRenderer(s, mockFactory(core.Splat(0.25)), config)
	if err != nil {
		t.Fatal(err)
	}

	passChan, tileChan, errChan := r.RenderProgressive(context.Background(), RenderOptions{TileUpdates: true})

	tiles := 0
	done := make(chan struct{})
	go func() {
		for range tileChan {
			tiles++
		}
		close(done)
	}()

	var passes []PassResult
	for p := range passChan {
		passes = append(passes, p)
	}
	if err := <-errChan; err != nil {
		t.Fatalf("RenderProgressive error: %v", err)
	}
	<-done

	if len(passes) != 3 {
		t.Fatalf("Got %d passes, want 3", len(passes))
	}
	for i, p := range passes {
		if p.PassNumber != i+1 || p.IsLast != (i == 2) {
			t.Errorf("Pass %d: number %d, last %v", i, p.PassNumber, p.IsLast)
		}
		if p.Stats.MaxSamples != 2*(i+1) {
			t.Errorf("Pass %d: %d spp, want %d", i, p.Stats.MaxSamples, 2*(i+1))
		}
	}
	if tiles != 3 {
		t.Errorf("Got %d tile updates, want 3", tiles)
	}
	if passes[2].Image.Bounds().Dx() != 16 {
		t.Errorf("Pass image width = %d", passes[2].Image.Bounds().Dx())
	}
}
