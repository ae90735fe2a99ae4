package texture

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/df07/go-light-transport/pkg/core"
)

func TestChecker_Alternates(t *testing.T) {
	white := core.Splat(1)
	black := core.Splat(0)
	c := NewChecker(white, black, 2, 2)

	tests := []struct {
		uv       core.Vec2
		expected core.Vec3
	}{
		{core.NewVec2(0.25, 0.25), white},
		{core.NewVec2(0.75, 0.25), black},
		{core.NewVec2(0.25, 0.75), black},
		{core.NewVec2(0.75, 0.75), white},
	}
	for _, tt := range tests {
		if got := c.Evaluate(tt.uv); got != tt.expected {
			t.Errorf("Checker at %v: expected %v, got %v", tt.uv, tt.expected, got)
		}
	}
	if c.Average() != core.Splat(0.5) {
		t.Errorf("Expected average 0.5, got %v", c.Average())
	}
}

func TestGradient_Derivatives(t *testing.T) {
	g := NewGradient(core.Splat(0), core.Splat(2), 0)

	d := Derivatives(g, core.NewVec2(0.5, 0.5))
	if math.Abs(d.X-2) > 1e-6 {
		t.Errorf("Expected du = 2, got %f", d.X)
	}
	if math.Abs(d.Y) > 1e-9 {
		t.Errorf("Expected dv = 0, got %f", d.Y)
	}

	if d := Derivatives(NewScalar(3), core.NewVec2(0.2, 0.4)); d != (core.Vec2{}) {
		t.Errorf("Constant texture should have zero derivatives, got %v", d)
	}
}

func TestBitmap_FromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(1, 0, color.RGBA{0, 0, 255, 255})

	b := NewBitmapFromImage(img, false)
	if b.Width != 2 || b.Height != 1 {
		t.Fatalf("Expected 2x1 bitmap, got %dx%d", b.Width, b.Height)
	}
	want := []core.Vec3{core.NewVec3(1, 0, 0), core.NewVec3(0, 0, 1)}
	if diff := cmp.Diff(want, b.Pixels); diff != "" {
		t.Errorf("Pixels mismatch (-want +got):\n%s", diff)
	}

	// Texel centres reproduce the stored values exactly
	left := b.Evaluate(core.NewVec2(0.25, 0.5))
	if math.Abs(left.X-1) > 1e-9 || left.Z > 1e-9 {
		t.Errorf("Expected red at the left texel centre, got %v", left)
	}
	right := b.Evaluate(core.NewVec2(0.75, 0.5))
	if math.Abs(right.Z-1) > 1e-9 || right.X > 1e-9 {
		t.Errorf("Expected blue at the right texel centre, got %v", right)
	}

	avg := b.Average()
	if math.Abs(avg.X-0.5) > 1e-9 || math.Abs(avg.Z-0.5) > 1e-9 {
		t.Errorf("Unexpected average %v", avg)
	}
}
