package medium

import (
	"math"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
)

var unitBox = core.NewAABB(core.Splat(-1), core.Splat(1))

func wavyGrid() *Grid {
	return NewGridFromFunc(12, 10, 8, unitBox, func(p core.Vec3) float64 {
		return 0.5 + 0.4*math.Sin(2*p.X) + 0.3*p.Y
	})
}

func skewedRay() core.Ray {
	return core.NewSegment(core.NewVec3(-1.5, -0.2, -0.1), core.NewVec3(1, 0.2, 0.1).Normalize(), 0, 4)
}

func TestGridLookups(t *testing.T) {
	grid := NewGridFromFunc(4, 4, 4, core.NewAABB(core.Vec3{}, core.Splat(4)), func(p core.Vec3) float64 {
		return p.X
	})

	if got := grid.Nearest(core.NewVec3(1.2, 2, 2)); got != 1.5 {
		t.Errorf("Nearest = %v, want 1.5", got)
	}
	if got := grid.Trilinear(core.NewVec3(2, 2.3, 1.1)); math.Abs(got-2) > 1e-6 {
		t.Errorf("Trilinear between centers = %v, want 2", got)
	}
	// Past the outermost centers the edge value holds
	if got := grid.Trilinear(core.NewVec3(0.2, 2, 2)); math.Abs(got-0.5) > 1e-6 {
		t.Errorf("Trilinear at the edge = %v, want 0.5", got)
	}
	if got := grid.At(-1, 0, 0); got != 0 {
		t.Errorf("At outside = %v, want 0", got)
	}
	if got := grid.MaxDensity(); got != 3.5 {
		t.Errorf("MaxDensity = %v, want 3.5", got)
	}
}

func TestLatticeTraverse(t *testing.T) {
	grid := wavyGrid()
	ray := skewedRay()
	t0, t1, ok := grid.Bounds.Intersect(ray, 0, ray.FarT)
	if !ok {
		t.Fatal("ray should cross the grid")
	}

	total := 0.0
	last := t0
	var previous [3]int
	first := true
	grid.voxel.traverse(ray, t0, t1, func(ta, tb float64, cell [3]int) bool {
		if math.Abs(ta-last) > 1e-12 {
			t.Errorf("gap between segments: %v then %v", last, ta)
		}
		if !first && !adjacent(previous, cell) {
			t.Errorf("cells %v and %v are not neighbours", previous, cell)
		}
		if tb < t1 && tb-ta <= traverseEpsilon {
			t.Errorf("sliver segment [%v, %v] in cell %v", ta, tb, cell)
		}
		mid := grid.voxel.local(ray.At(0.5 * (ta + tb)))
		for a := 0; a < 3; a++ {
			if int(math.Floor(mid[a])) != cell[a] {
				t.Errorf("segment midpoint %v not inside cell %v", mid, cell)
			}
		}
		total += tb - ta
		last = tb
		previous = cell
		first = false
		return true
	})
	if math.Abs(total-(t1-t0)) > 1e-9 {
		t.Errorf("segments cover %v, want %v", total, t1-t0)
	}
}

// adjacent reports whether two distinct cells share a face, edge or corner
func adjacent(a, b [3]int) bool {
	steps := 0
	for i := 0; i < 3; i++ {
		d := absInt(a[i] - b[i])
		if d > 1 {
			return false
		}
		steps += d
	}
	return steps > 0
}

func TestLatticeTraverseThroughCorners(t *testing.T) {
	grid := NewGridFromFunc(4, 4, 4, core.NewAABB(core.Vec3{}, core.Splat(4)), func(p core.Vec3) float64 {
		return 1
	})
	// Crosses every x and y boundary at the same time
	ray := core.NewSegment(core.NewVec3(-1, -1, 0.5), core.NewVec3(1, 1, 0).Normalize(), 0, 10)
	t0, t1, ok := grid.Bounds.Intersect(ray, 0, ray.FarT)
	if !ok {
		t.Fatal("ray should cross the grid")
	}

	var cells [][3]int
	grid.voxel.traverse(ray, t0, t1, func(ta, tb float64, cell [3]int) bool {
		cells = append(cells, cell)
		return true
	})
	want := [][3]int{{0, 0, 0}, {1, 1, 0}, {2, 2, 0}, {3, 3, 0}}
	if len(cells) != len(want) {
		t.Fatalf("visited %v, want %v", cells, want)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d = %v, want %v", i, cells[i], want[i])
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestVoxelConstantGridMatchesHomogeneous(t *testing.T) {
	constant := NewGridFromFunc(6, 6, 6, unitBox, func(core.Vec3) float64 { return 1 })
	sigmaA, sigmaS := core.NewVec3(0.2, 0.4, 0.6), core.Splat(0.3)
	want := NewHomogeneous(sigmaA, sigmaS)
	prepared(t, want)
	// The segment crosses exactly two units of the box
	expected := want.Transmittance(nil, core.NewSegment(core.Vec3{}, core.NewVec3(1, 0, 0), 0, 2))

	sampler := core.NewUniformSampler(3, 0)
	for mode := range modeNames {
		m := NewVoxel(constant, sigmaA, sigmaS, mode)
		prepared(t, m)
		got := m.Transmittance(sampler, segment(4))
		if got.Subtract(expected).Abs().MaxComponent() > 1e-9 {
			t.Errorf("%v: transmittance %v, want %v", mode, got, expected)
		}
	}
}

func TestVoxelModesAgree(t *testing.T) {
	grid := wavyGrid()
	ray := skewedRay()
	sigmaA, sigmaS := core.Splat(0.6), core.Splat(0.9)

	exact := NewVoxel(grid, sigmaA, sigmaS, ExactLinear)
	prepared(t, exact)
	want := exact.Transmittance(nil, ray).X
	if want <= 0.05 || want >= 0.95 {
		t.Fatalf("test setup gives a degenerate transmittance %v", want)
	}

	for _, mode := range []IntegrationMode{Raymarching, ResidualRatio} {
		m := NewVoxel(grid, sigmaA, sigmaS, mode)
		prepared(t, m)
		sampler := core.NewUniformSampler(11, uint64(mode))
		const n = 4000
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += m.Transmittance(sampler, ray).X
		}
		if got := sum / n; math.Abs(got-want) > 0.01 {
			t.Errorf("%v: mean transmittance %v, want %v", mode, got, want)
		}
	}
}

func TestVoxelExactLinearInvertsDepth(t *testing.T) {
	m := NewVoxel(wavyGrid(), core.Splat(0.5), core.Splat(0.5), ExactLinear)
	prepared(t, m)
	ray := skewedRay()
	t0, t1, _ := m.clip(ray)

	total, _, _ := m.exactDepth(ray, t0, t1, 0)
	target := 0.37 * total
	_, at, found := m.exactDepth(ray, t0, t1, target)
	if !found {
		t.Fatal("target below the total depth should be reached")
	}
	reached, _, _ := m.exactDepth(ray, t0, at, 0)
	if math.Abs(reached-target) > 1e-8 {
		t.Errorf("depth at solved distance = %v, want %v", reached, target)
	}
	if _, _, found := m.exactDepth(ray, t0, t1, total*1.1); found {
		t.Error("target past the total depth should not be reached")
	}
}

func TestVoxelExitProbability(t *testing.T) {
	grid := wavyGrid()
	ray := skewedRay()
	sigmaA, sigmaS := core.Splat(0.6), core.Splat(0.9)

	reference := NewVoxel(grid, sigmaA, sigmaS, ExactLinear)
	prepared(t, reference)
	want := reference.Transmittance(nil, ray).X

	for _, mode := range []IntegrationMode{ExactLinear, ResidualRatio} {
		m := NewVoxel(grid, sigmaA, sigmaS, mode)
		prepared(t, m)
		sampler := core.NewUniformSampler(5, uint64(mode))
		const n = 20000
		exitWeight := 0.0
		for i := 0; i < n; i++ {
			var state MediumState
			state.Reset()
			var sample MediumSample
			if !m.SampleDistance(sampler, ray, &state, &sample) {
				t.Fatalf("%v: expected a sample", mode)
			}
			if sample.Exited {
				exitWeight += sample.Weight.X
			} else if !m.Grid.Bounds.Contains(sample.P) {
				t.Fatalf("%v: scattered outside the grid at %v", mode, sample.P)
			}
		}
		if got := exitWeight / n; math.Abs(got-want) > 0.015 {
			t.Errorf("%v: expected exit weight %v, want %v", mode, got, want)
		}
	}
}

func TestVoxelRayMissingGrid(t *testing.T) {
	m := NewVoxel(wavyGrid(), core.Splat(0.5), core.Splat(0.5), ResidualRatio)
	prepared(t, m)
	ray := core.NewSegment(core.NewVec3(0, 5, 0), core.NewVec3(1, 0, 0), 0, 3)

	var state MediumState
	var sample MediumSample
	if !m.SampleDistance(core.NewUniformSampler(1, 0), ray, &state, &sample) {
		t.Fatal("expected a sample")
	}
	if !sample.Exited || sample.Weight != core.Splat(1) {
		t.Errorf("missing the grid should pass through untouched, got %+v", sample)
	}
}

func TestVoxelRequiresGrid(t *testing.T) {
	if err := NewVoxel(nil, core.Splat(1), core.Splat(1), ExactNearest).Prepare(); err == nil {
		t.Error("expected an error without a grid")
	}
}
