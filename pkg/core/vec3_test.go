package core

import (
	"math"
	"testing"
)

func TestVec3_ComponentOps(t *testing.T) {
	a := NewVec3(1, -2, 3)
	b := NewVec3(4, 5, -6)

	tests := []struct {
		name     string
		got      Vec3
		expected Vec3
	}{
		{"Add", a.Add(b), NewVec3(5, 3, -3)},
		{"Subtract", a.Subtract(b), NewVec3(-3, -7, 9)},
		{"MultiplyVec", a.MultiplyVec(b), NewVec3(4, -10, -18)},
		{"Cross", NewVec3(1, 0, 0).Cross(NewVec3(0, 1, 0)), NewVec3(0, 0, 1)},
		{"Abs", a.Abs(), NewVec3(1, 2, 3)},
		{"Min", a.Min(b), NewVec3(1, -2, -6)},
		{"Max", a.Max(b), NewVec3(4, 5, 3)},
		{"DivideVec by zero", NewVec3(1, 2, 3).DivideVec(NewVec3(1, 0, 2)), NewVec3(1, 0, 1.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Subtract(tt.expected).Length() > 1e-12 {
				t.Errorf("Expected %v, got %v", tt.expected, tt.got)
			}
		})
	}
}

func TestVec3_Reductions(t *testing.T) {
	v := NewVec3(0.5, 2, 0.5)
	if v.MaxComponent() != 2 {
		t.Errorf("MaxComponent: expected 2, got %f", v.MaxComponent())
	}
	if v.MinComponent() != 0.5 {
		t.Errorf("MinComponent: expected 0.5, got %f", v.MinComponent())
	}
	if math.Abs(v.Avg()-1.0) > 1e-12 {
		t.Errorf("Avg: expected 1, got %f", v.Avg())
	}
	if math.Abs(Splat(1).Luminance()-1.0) > 1e-9 {
		t.Errorf("Luminance of white should be 1, got %f", Splat(1).Luminance())
	}
}

func TestVec3_NormalizeZero(t *testing.T) {
	if !(Vec3{}).Normalize().IsZero() {
		t.Error("Normalizing the zero vector should return zero")
	}
}

func TestVec3_HasNaN(t *testing.T) {
	if NewVec3(1, 2, 3).HasNaN() {
		t.Error("Finite vector reported as NaN")
	}
	if !NewVec3(math.NaN(), 0, 0).HasNaN() {
		t.Error("NaN component not detected")
	}
	if !NewVec3(0, math.Inf(1), 0).HasNaN() {
		t.Error("Infinite component not detected")
	}
}

func TestTangentFrame_RoundTrip(t *testing.T) {
	normals := []Vec3{
		NewVec3(0, 0, 1),
		NewVec3(0, 1, 0),
		NewVec3(1, 1, 1).Normalize(),
		NewVec3(-0.3, 0.2, -0.9).Normalize(),
	}

	for _, n := range normals {
		frame := NewTangentFrame(n)
		if math.Abs(frame.Tangent.Dot(n)) > 1e-9 || math.Abs(frame.Bitangent.Dot(n)) > 1e-9 {
			t.Errorf("Frame for %v is not orthogonal", n)
		}

		w := NewVec3(0.3, -0.5, 0.8).Normalize()
		back := frame.ToGlobal(frame.ToLocal(w))
		if back.Subtract(w).Length() > 1e-9 {
			t.Errorf("Round trip through frame for %v: expected %v, got %v", n, w, back)
		}

		local := frame.ToLocal(n)
		if math.Abs(local.Z-1) > 1e-9 {
			t.Errorf("Normal should map to +Z, got %v", local)
		}
	}
}

func TestTangentFrame_Flip(t *testing.T) {
	frame := NewTangentFrame(NewVec3(0, 1, 0))
	flipped := frame.Flip()

	w := NewVec3(0.2, 0.7, -0.1).Normalize()
	if math.Abs(flipped.ToLocal(w).Z+frame.ToLocal(w).Z) > 1e-12 {
		t.Error("Flipped frame should negate the normal component")
	}
	// Flipped frame must stay right-handed
	if flipped.Tangent.Cross(flipped.Bitangent).Subtract(flipped.Normal).Length() > 1e-9 {
		t.Error("Flipped frame is not right-handed")
	}
}

func TestAABB_Intersect(t *testing.T) {
	box := NewAABB(NewVec3(-1, -1, -1), NewVec3(1, 1, 1))

	ray := NewRay(NewVec3(-5, 0, 0), NewVec3(1, 0, 0))
	t0, t1, ok := box.Intersect(ray, 0, Infinity)
	if !ok {
		t.Fatal("Expected ray to hit box")
	}
	if math.Abs(t0-4) > 1e-12 || math.Abs(t1-6) > 1e-12 {
		t.Errorf("Expected interval (4, 6), got (%f, %f)", t0, t1)
	}

	miss := NewRay(NewVec3(-5, 2, 0), NewVec3(1, 0, 0))
	if box.Hit(miss, 0, Infinity) {
		t.Error("Parallel ray outside the slab should miss")
	}

	if box.Hit(ray, 0, 3) {
		t.Error("Ray segment ending before the box should miss")
	}
}
