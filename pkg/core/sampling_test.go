package core

import (
	"math"
	"testing"
)

func TestSampleWarps_StayOnDomain(t *testing.T) {
	sampler := NewUniformSampler(42, 0)

	for i := 0; i < 1000; i++ {
		s := sampler.Next2D()

		w := CosineHemisphere(s)
		if math.Abs(w.Length()-1) > 1e-9 || w.Z < 0 {
			t.Fatalf("CosineHemisphere produced %v", w)
		}

		u := UniformHemisphere(s)
		if math.Abs(u.Length()-1) > 1e-9 || u.Z < 0 {
			t.Fatalf("UniformHemisphere produced %v", u)
		}

		sp := UniformSphere(s)
		if math.Abs(sp.Length()-1) > 1e-9 {
			t.Fatalf("UniformSphere produced %v", sp)
		}

		c := UniformSphericalCap(s, 0.9)
		if c.Z < 0.9-1e-12 {
			t.Fatalf("UniformSphericalCap left the cap: %v", c)
		}

		d := ConcentricDisk(s)
		if d.X*d.X+d.Y*d.Y > 1+1e-12 {
			t.Fatalf("ConcentricDisk left the disk: %v", d)
		}

		b := UniformTriangle(s)
		if b.X < 0 || b.Y < 0 || b.X+b.Y > 1+1e-12 {
			t.Fatalf("UniformTriangle left the triangle: %v", b)
		}
	}
}

func TestCosineHemisphere_MeanCosine(t *testing.T) {
	// E[cos] under the cosine-weighted density is 2/3
	sampler := NewUniformSampler(7, 0)
	const n = 200000
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += CosineHemisphere(sampler.Next2D()).Z
	}
	mean := sum / n
	if math.Abs(mean-2.0/3.0) > 0.005 {
		t.Errorf("Expected mean cosine 2/3, got %f", mean)
	}
}

func TestPowerHeuristic(t *testing.T) {
	tests := []struct {
		name     string
		p0, p1   float64
		expected float64
	}{
		{"equal pdfs", 1, 1, 0.5},
		{"dominant first", 3, 1, 0.9},
		{"zero other", 2, 0, 1},
		{"both zero", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PowerHeuristic(tt.p0, tt.p1)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("PowerHeuristic(%f, %f) = %f, expected %f", tt.p0, tt.p1, got, tt.expected)
			}
			if tt.p0+tt.p1 > 0 {
				sum := PowerHeuristic(tt.p0, tt.p1) + PowerHeuristic(tt.p1, tt.p0)
				if math.Abs(sum-1) > 1e-12 {
					t.Errorf("Weights should sum to 1, got %f", sum)
				}
			}
		})
	}
}

func TestDistribution1D(t *testing.T) {
	d := NewDistribution1D([]float64{1, 0, 3})

	if math.Abs(d.Pdf(0)-0.25) > 1e-12 || d.Pdf(1) != 0 || math.Abs(d.Pdf(2)-0.75) > 1e-12 {
		t.Errorf("Unexpected pdfs %f %f %f", d.Pdf(0), d.Pdf(1), d.Pdf(2))
	}

	counts := make([]int, 3)
	sampler := NewUniformSampler(3, 1)
	const n = 100000
	for i := 0; i < n; i++ {
		idx, pdf := d.Sample(sampler.Next1D())
		if pdf != d.Pdf(idx) {
			t.Fatalf("Sample returned pdf %f for index %d, expected %f", pdf, idx, d.Pdf(idx))
		}
		counts[idx]++
	}
	if counts[1] != 0 {
		t.Errorf("Zero-weight entry was sampled %d times", counts[1])
	}
	if frac := float64(counts[2]) / n; math.Abs(frac-0.75) > 0.01 {
		t.Errorf("Expected index 2 with frequency 0.75, got %f", frac)
	}

	uniform := NewDistribution1D([]float64{0, 0})
	if uniform.Pdf(0) != 0.5 {
		t.Errorf("All-zero weights should fall back to uniform, got %f", uniform.Pdf(0))
	}
	if idx, _ := NewDistribution1D(nil).Sample(0.5); idx != -1 {
		t.Errorf("Empty distribution should return -1, got %d", idx)
	}
}

func TestUniformSampler_Deterministic(t *testing.T) {
	a := NewUniformSampler(123, 4)
	b := NewUniformSampler(123, 4)
	for i := 0; i < 100; i++ {
		if a.Next1D() != b.Next1D() {
			t.Fatal("Samplers with equal seeds diverged")
		}
	}
}

func TestUniformSampler_StateRoundTrip(t *testing.T) {
	a := NewUniformSampler(99, 1)
	for i := 0; i < 37; i++ {
		a.Next1D()
	}
	state, err := a.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	b := NewUniformSampler(0, 0)
	if err := b.UnmarshalBinary(state); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	for i := 0; i < 100; i++ {
		if a.Next1D() != b.Next1D() {
			t.Fatal("Restored sampler diverged from the original")
		}
	}
}

func TestUniformSampler_NextDiscreteAndBoolean(t *testing.T) {
	s := NewUniformSampler(5, 5)
	for i := 0; i < 1000; i++ {
		if k := s.NextDiscrete(3); k < 0 || k >= 3 {
			t.Fatalf("NextDiscrete(3) returned %d", k)
		}
	}
	if s.NextBoolean(0) {
		t.Error("NextBoolean(0) must be false")
	}
	if !s.NextBoolean(1) {
		t.Error("NextBoolean(1) must be true")
	}
}
