package medium

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
)

func prepared(t *testing.T, m Medium) Medium {
	t.Helper()
	if err := m.Prepare(); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	return m
}

func segment(length float64) core.Ray {
	return core.NewSegment(core.NewVec3(-1.5, 0.1, 0.2), core.NewVec3(1, 0, 0), 0, length)
}

func TestHomogeneousAbsorptionOnly(t *testing.T) {
	m := prepared(t, NewHomogeneous(core.Splat(0.5), core.Vec3{}))
	sampler := core.NewUniformSampler(1, 0)

	var state MediumState
	state.Reset()
	var sample MediumSample
	if !m.SampleDistance(sampler, segment(2), &state, &sample) {
		t.Fatal("expected a sample")
	}
	if !sample.Exited {
		t.Error("absorbing medium should never scatter")
	}
	want := math.Exp(-1)
	if math.Abs(sample.Weight.X-want) > 1e-12 {
		t.Errorf("weight = %v, want %v", sample.Weight.X, want)
	}
	if tr := m.Transmittance(sampler, segment(2)); math.Abs(tr.Y-want) > 1e-12 {
		t.Errorf("transmittance = %v, want %v", tr.Y, want)
	}
	if state.Bounce != 1 {
		t.Errorf("bounce = %d, want 1", state.Bounce)
	}
}

func TestHomogeneousExitProbability(t *testing.T) {
	m := prepared(t, NewHomogeneous(core.Splat(0.2), core.Splat(0.3)))
	sampler := core.NewUniformSampler(7, 0)

	const n = 20000
	exited := 0
	for i := 0; i < n; i++ {
		var state MediumState
		state.Reset()
		var sample MediumSample
		if !m.SampleDistance(sampler, segment(2), &state, &sample) {
			t.Fatal("expected a sample")
		}
		if sample.Exited {
			exited++
			if math.Abs(sample.Weight.X-1) > 1e-9 {
				t.Fatalf("grey exit weight = %v, want 1", sample.Weight.X)
			}
			continue
		}
		// A grey medium scatters with weight equal to the albedo
		if math.Abs(sample.Weight.X-0.6) > 1e-9 {
			t.Fatalf("scatter weight = %v, want 0.6", sample.Weight.X)
		}
		if sample.T < 0 || sample.T > 2 {
			t.Fatalf("scatter distance %v outside segment", sample.T)
		}
	}

	got := float64(exited) / n
	want := math.Exp(-1)
	if math.Abs(got-want) > 0.015 {
		t.Errorf("exit fraction = %v, want %v", got, want)
	}
}

func TestHomogeneousInfiniteRay(t *testing.T) {
	m := prepared(t, NewHomogeneous(core.Splat(0.5), core.Vec3{}))
	ray := core.NewRay(core.Vec3{}, core.NewVec3(0, 0, 1))
	var state MediumState
	var sample MediumSample
	if m.SampleDistance(core.NewUniformSampler(1, 0), ray, &state, &sample) {
		t.Error("an absorbing medium extending to infinity should end the path")
	}
	if tr := m.Transmittance(nil, ray); !tr.IsZero() {
		t.Errorf("transmittance to infinity = %v, want zero", tr)
	}
}

func TestMaxBounce(t *testing.T) {
	m := NewHomogeneous(core.Splat(0.1), core.Splat(0.5))
	m.MaxBounce = 3
	prepared(t, m)

	state := MediumState{Bounce: 4}
	var sample MediumSample
	if m.SampleDistance(core.NewUniformSampler(1, 0), segment(1), &state, &sample) {
		t.Error("sampling past MaxBounce should fail")
	}
}

func TestTransmittanceDecreasesWithDistance(t *testing.T) {
	grid := NewGridFromFunc(8, 8, 8, core.NewAABB(core.Splat(-1), core.Splat(1)), func(p core.Vec3) float64 {
		return 0.5 + 0.5*math.Sin(3*p.X)
	})
	media := map[string]Medium{
		"homogeneous": NewHomogeneous(core.Splat(0.3), core.Splat(0.2)),
		"exponential": NewExponential(core.Splat(0.3), core.Splat(0.2), 0.5),
		"atmosphere":  NewAtmospheric(core.Splat(0.3), core.Splat(0.2), core.NewVec3(0, -10, 0), 9, 1),
		"voxel":       NewVoxel(grid, core.Splat(0.3), core.Splat(0.2), ExactLinear),
	}
	for name, m := range media {
		prepared(t, m)
		previous := 1.0
		for _, length := range []float64{0.5, 1, 1.5, 2, 3} {
			tr := m.Transmittance(nil, segment(length)).X
			if tr > previous+1e-12 || tr < 0 {
				t.Errorf("%s: transmittance %v at %v after %v", name, tr, length, previous)
			}
			previous = tr
		}
	}
}

func TestExponentialClosedForm(t *testing.T) {
	m := NewExponential(core.Splat(0.4), core.Splat(0.6), 0.7)
	m.UnitPoint = core.NewVec3(0, 1, 0)
	prepared(t, m)

	ray := core.NewRay(core.NewVec3(0, 0.5, 0), core.NewVec3(0.6, 0.8, 0))
	const length = 3.0
	const steps = 10000
	numeric := 0.0
	h := length / steps
	for i := 0; i < steps; i++ {
		numeric += m.density(ray.At((float64(i)+0.5)*h)) * h
	}
	if got := m.integral(ray, length); math.Abs(got-numeric) > 1e-6 {
		t.Errorf("integral = %v, numeric %v", got, numeric)
	}
	if got := m.inverse(ray, m.integral(ray, length)); math.Abs(got-length) > 1e-9 {
		t.Errorf("inverse(integral(%v)) = %v", length, got)
	}

	// Looking up, the total depth is finite and inverting past it escapes
	total := m.integral(ray, math.Inf(1))
	if math.IsInf(total, 1) {
		t.Fatal("upward depth should be finite")
	}
	if got := m.inverse(ray, total*1.01); !math.IsInf(got, 1) {
		t.Errorf("inverse past total depth = %v, want +Inf", got)
	}
}

func TestAtmosphericRoundTrip(t *testing.T) {
	m := NewAtmospheric(core.Splat(0.1), core.Splat(0.9), core.Vec3{}, 10, 0.8)
	prepared(t, m)
	if _, ok := m.PhaseFunction().(Rayleigh); !ok {
		t.Errorf("atmosphere phase function = %T, want Rayleigh", m.PhaseFunction())
	}

	ray := core.NewRay(core.NewVec3(-20, 10.5, 0), core.NewVec3(1, 0, 0))
	for _, d := range []float64{5, 15, 20, 30} {
		depth := m.integral(ray, d)
		if got := m.inverse(ray, depth); math.Abs(got-d) > 1e-6 {
			t.Errorf("inverse(integral(%v)) = %v", d, got)
		}
	}
	if m.densityAlong(ray, 20) <= m.densityAlong(ray, 0) {
		t.Error("density should peak at the closest approach")
	}
}

func TestAtmosphericRejectsBadParameters(t *testing.T) {
	m := NewAtmospheric(core.Splat(0.1), core.Splat(0.9), core.Vec3{}, 0, 1)
	if err := m.Prepare(); err == nil {
		t.Error("expected an error for a zero radius")
	}
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"homogeneous", "exponential", "atmosphere", "voxel"} {
		kind, err := ParseKind(name)
		if err != nil || kind.String() != name {
			t.Errorf("ParseKind(%q) = %v, %v", name, kind, err)
		}
	}

	_, err := ParseKind("smoke")
	if !errors.Is(err, core.ErrUnknownType) {
		t.Errorf("unknown medium error = %v, want ErrUnknownType", err)
	}
	var configErr *core.ConfigError
	if !errors.As(err, &configErr) || configErr.Name != "smoke" {
		t.Errorf("expected a ConfigError naming smoke, got %v", err)
	}

	if _, err := ParseIntegrationMode("monte_carlo"); !errors.Is(err, core.ErrUnknownType) {
		t.Errorf("unknown integration mode error = %v", err)
	}
	if mode, err := ParseIntegrationMode("residual_ratio"); err != nil || mode != ResidualRatio {
		t.Errorf("ParseIntegrationMode(residual_ratio) = %v, %v", mode, err)
	}
}
