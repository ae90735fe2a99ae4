package medium

import (
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// IntegrationMode selects how a voxel medium integrates density along rays
type IntegrationMode int

const (
	// ExactNearest treats every voxel as a constant-density box
	ExactNearest IntegrationMode = iota
	// ExactLinear integrates the trilinear interpolant in closed form
	ExactLinear
	// Raymarching sums trilinear lookups at jittered fixed steps
	Raymarching
	// ResidualRatio estimates transmittance against per-block density
	// bounds and samples distances with spectral tracking
	ResidualRatio
)

var modeNames = map[IntegrationMode]string{
	ExactNearest:  "exact_nearest",
	ExactLinear:   "exact_linear",
	Raymarching:   "raymarching",
	ResidualRatio: "residual_ratio",
}

func (m IntegrationMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// ParseIntegrationMode looks up an integration mode by name
func ParseIntegrationMode(name string) (IntegrationMode, error) {
	for mode, n := range modeNames {
		if n == name {
			return mode, nil
		}
	}
	return 0, core.NewConfigError("voxel integration mode", name)
}

// Voxel is a heterogeneous medium whose density comes from a Grid.
// Coefficients are Common's scaled by the grid density.
type Voxel struct {
	Common
	Grid          *Grid
	Mode          IntegrationMode
	StepSize      float64 // Raymarching step; 0 means half the smallest voxel side
	SupergridSize int     // Voxels per supergrid cell; 0 means DefaultSupergridSize

	super *supergrid
	dual  lattice // Cells between voxel centers, where the interpolant is a cubic along rays
	step  float64
}

// NewVoxel creates a voxel medium over grid
func NewVoxel(grid *Grid, sigmaA, sigmaS core.Vec3, mode IntegrationMode) *Voxel {
	return &Voxel{Common: newCommon(sigmaA, sigmaS), Grid: grid, Mode: mode}
}

func (v *Voxel) Kind() Kind          { return KindVoxel }
func (v *Voxel) IsHomogeneous() bool { return false }

func (v *Voxel) Prepare() error {
	if v.Grid == nil {
		return fmt.Errorf("voxel medium: no density grid")
	}
	if _, ok := modeNames[v.Mode]; !ok {
		return core.NewConfigError("voxel integration mode", fmt.Sprint(int(v.Mode)))
	}
	g := v.Grid
	if v.SupergridSize <= 0 {
		v.SupergridSize = DefaultSupergridSize
	}
	v.super = newSupergrid(g, v.SupergridSize)

	half := core.NewVec3(g.voxel.cell[0], g.voxel.cell[1], g.voxel.cell[2]).Multiply(0.5)
	v.dual = lattice{
		min:  g.Bounds.Min.Subtract(half),
		cell: g.voxel.cell,
		dims: [3]int{g.Nx + 1, g.Ny + 1, g.Nz + 1},
	}
	v.step = v.StepSize
	if v.step <= 0 {
		v.step = 0.5 * math.Min(g.voxel.cell[0], math.Min(g.voxel.cell[1], g.voxel.cell[2]))
	}
	v.prepare()

	core.Logger().Debug("voxel medium prepared",
		"voxels", fmt.Sprintf("%dx%dx%d", g.Nx, g.Ny, g.Nz),
		"supergrid", fmt.Sprintf("%dx%dx%d", v.super.dims[0], v.super.dims[1], v.super.dims[2]),
		"mode", v.Mode.String(),
		"maxDensity", g.MaxDensity())
	return nil
}

func (v *Voxel) Teardown() {
	v.super = nil
}

// densityAt returns the relative density at p, zero outside the grid bounds
func (v *Voxel) densityAt(p core.Vec3) float64 {
	if !v.Grid.Bounds.Contains(p) {
		return 0
	}
	if v.Mode == ExactNearest {
		return v.Grid.Nearest(p)
	}
	return v.Grid.Trilinear(p)
}

func (v *Voxel) SigmaA(p core.Vec3) core.Vec3 { return v.sigmaA.Multiply(v.densityAt(p)) }
func (v *Voxel) SigmaS(p core.Vec3) core.Vec3 { return v.sigmaS.Multiply(v.densityAt(p)) }
func (v *Voxel) SigmaT(p core.Vec3) core.Vec3 { return v.sigmaT.Multiply(v.densityAt(p)) }

// clip restricts the segment [0, ray.FarT] to the grid bounds
func (v *Voxel) clip(ray core.Ray) (float64, float64, bool) {
	return v.Grid.Bounds.Intersect(ray, 0, ray.FarT)
}

// simpson integrates the density over [a, b]. It is exact for the
// trilinear interpolant as long as [a, b] stays inside one dual cell.
func (v *Voxel) simpson(ray core.Ray, a, b float64) float64 {
	return (b - a) / 6 * (v.densityAt(ray.At(a)) + 4*v.densityAt(ray.At(0.5*(a+b))) + v.densityAt(ray.At(b)))
}

// exactDepth walks the voxels between t0 and t1 and returns the integrated
// relative density. With a positive target it stops as soon as the depth
// reaches it and returns the distance where that happens.
func (v *Voxel) exactDepth(ray core.Ray, t0, t1, target float64) (depth, t float64, found bool) {
	if v.Mode == ExactNearest {
		v.Grid.voxel.traverse(ray, t0, t1, func(ta, tb float64, cell [3]int) bool {
			rho := v.Grid.At(cell[0], cell[1], cell[2])
			segment := rho * (tb - ta)
			if target > 0 && rho > 0 && depth+segment >= target {
				t = ta + (target-depth)/rho
				depth, found = target, true
				return false
			}
			depth += segment
			return true
		})
		return depth, t, found
	}

	v.dual.traverse(ray, t0, t1, func(ta, tb float64, cell [3]int) bool {
		segment := v.simpson(ray, ta, tb)
		if target > 0 && segment > 0 && depth+segment >= target {
			t = v.solveDepth(ray, ta, tb, target-depth, segment)
			depth, found = target, true
			return false
		}
		depth += segment
		return true
	})
	return depth, t, found
}

// solveDepth finds t in [ta, tb] where the integral from ta reaches
// remaining, using Newton steps guarded by bisection
func (v *Voxel) solveDepth(ray core.Ray, ta, tb, remaining, segment float64) float64 {
	lo, hi := ta, tb
	t := ta + remaining/segment*(tb-ta)
	for i := 0; i < 16; i++ {
		f := v.simpson(ray, ta, t) - remaining
		if math.Abs(f) < 1e-10 {
			break
		}
		if f > 0 {
			hi = t
		} else {
			lo = t
		}
		d := v.densityAt(ray.At(t))
		next := 0.5 * (lo + hi)
		if d > 0 && t-f/d > lo && t-f/d < hi {
			next = t - f/d
		}
		t = next
	}
	return t
}

// marchedDepth estimates the integrated density with one jittered sample
// per step
func (v *Voxel) marchedDepth(sampler core.PathSampleGenerator, ray core.Ray, t0, t1 float64) float64 {
	n := int(math.Ceil((t1 - t0) / v.step))
	if n <= 0 {
		return 0
	}
	h := (t1 - t0) / float64(n)
	offset := sampler.Next1D()
	depth := 0.0
	for i := 0; i < n; i++ {
		depth += v.densityAt(ray.At(t0 + (float64(i)+offset)*h))
	}
	return depth * h
}

// residualRatio estimates transmittance by splitting the density of each
// supergrid block into its minimum, integrated analytically, and a
// residual handled by ratio tracking
func (v *Voxel) residualRatio(sampler core.PathSampleGenerator, ray core.Ray, t0, t1 float64) core.Vec3 {
	control := 0.0
	ratio := core.Splat(1)
	scale := v.sigmaT.MaxComponent()
	v.super.traverse(ray, t0, t1, func(ta, tb float64, cell [3]int) bool {
		lo, hi := v.super.bounds(cell)
		control += lo * (tb - ta)
		mu := (hi - lo) * scale
		if mu <= 0 {
			return true
		}
		t := ta
		for {
			t -= math.Log(1-sampler.Next1D()) / mu
			if t >= tb {
				return true
			}
			residual := v.sigmaT.Multiply(v.densityAt(ray.At(t)) - lo)
			ratio = ratio.MultiplyVec(core.Splat(1).Subtract(residual.Multiply(1 / mu)))
			if ratio.IsZero() {
				return false
			}
		}
	})
	return v.sigmaT.Multiply(-control).Exp().MultiplyVec(ratio)
}

func (v *Voxel) Transmittance(sampler core.PathSampleGenerator, ray core.Ray) core.Vec3 {
	t0, t1, ok := v.clip(ray)
	if !ok {
		return core.Splat(1)
	}
	switch v.Mode {
	case Raymarching:
		return v.sigmaT.Multiply(-v.marchedDepth(sampler, ray, t0, t1)).Exp()
	case ResidualRatio:
		return v.residualRatio(sampler, ray, t0, t1)
	}
	depth, _, _ := v.exactDepth(ray, t0, t1, 0)
	return v.sigmaT.Multiply(-depth).Exp()
}

func (v *Voxel) SampleDistance(sampler core.PathSampleGenerator, ray core.Ray, state *MediumState, sample *MediumSample) bool {
	if state.Bounce > v.MaxBounce {
		return false
	}
	maxT := ray.FarT
	t0, t1, inside := v.clip(ray)

	switch {
	case v.absorptionOnly:
		sample.T = maxT
		sample.Weight = v.Transmittance(sampler, ray)
		sample.Pdf = 1
		sample.Exited = true
	case v.Mode == ExactNearest || v.Mode == ExactLinear:
		sigmaTc, tau := exponentialSample(sampler, v.sigmaT, state)
		sample.T = maxT
		sample.Exited = true
		depth := 0.0
		if inside {
			target := math.Inf(1)
			if sigmaTc > 0 {
				target = tau / sigmaTc
			}
			var t float64
			var found bool
			depth, t, found = v.exactDepth(ray, t0, t1, target)
			if found && t < maxT {
				sample.T = t
				sample.Exited = false
			}
		}
		rho := 1.0
		if !sample.Exited {
			rho = v.densityAt(ray.At(sample.T))
		}
		v.finishSample(sample, v.sigmaT.Multiply(-depth).Exp(), rho)
	default:
		v.track(sampler, ray, t0, t1, inside, sample)
	}
	sample.ContinuedT = sample.T
	sample.ContinuedWeight = core.Vec3{}

	state.Advance()
	if !math.IsInf(sample.T, 1) {
		sample.P = ray.At(sample.T)
	}
	sample.Phase = v.PhaseFunction()
	return true
}

// track samples a collision with spectral tracking against the supergrid
// majorants. Null collisions are accepted with a probability that follows
// the current path weight, so chromatic media stay unbiased.
func (v *Voxel) track(sampler core.PathSampleGenerator, ray core.Ray, t0, t1 float64, inside bool, sample *MediumSample) {
	weight := core.Splat(1)
	scattered := false
	if inside {
		scale := v.sigmaT.MaxComponent()
		v.super.traverse(ray, t0, t1, func(ta, tb float64, cell [3]int) bool {
			_, hi := v.super.bounds(cell)
			mu := hi * scale
			if mu <= 0 {
				return true
			}
			t := ta
			for {
				t -= math.Log(1-sampler.Next1D()) / mu
				if t >= tb {
					return true
				}
				rho := v.densityAt(ray.At(t))
				sigmaT := v.sigmaT.Multiply(rho)
				sigmaN := core.Splat(mu).Subtract(sigmaT)
				pr := sigmaT.MultiplyVec(weight).Avg()
				pn := sigmaN.MultiplyVec(weight).Avg()
				if pr+pn <= 0 {
					weight = core.Vec3{}
					sample.T, scattered = t, true
					return false
				}
				pReal := pr / (pr + pn)
				if sampler.Next1D() < pReal {
					weight = weight.MultiplyVec(v.sigmaS.Multiply(rho)).Multiply(1 / (mu * pReal))
					sample.T, scattered = t, true
					return false
				}
				weight = weight.MultiplyVec(sigmaN).Multiply(1 / (mu * (1 - pReal)))
			}
		})
	}
	if !scattered {
		sample.T = ray.FarT
	}
	sample.Exited = !scattered
	sample.Weight = weight
	// Tracking has no closed-form distance density
	sample.Pdf = 1
}

func (v *Voxel) Pdf(sampler core.PathSampleGenerator, ray core.Ray, onSurface bool) float64 {
	return v.distancePdf(v.Transmittance(sampler, ray), v.endDensity(ray), onSurface)
}

func (v *Voxel) TransmittanceAndPdfs(sampler core.PathSampleGenerator, ray core.Ray, startOnSurface, endOnSurface bool) (core.Vec3, float64, float64) {
	transmittance := v.Transmittance(sampler, ray)
	forward := v.distancePdf(transmittance, v.endDensity(ray), endOnSurface)
	backward := v.distancePdf(transmittance, v.densityAt(ray.Origin), startOnSurface)
	return transmittance, forward, backward
}

func (v *Voxel) endDensity(ray core.Ray) float64 {
	if math.IsInf(ray.FarT, 1) {
		return 0
	}
	return v.densityAt(ray.At(ray.FarT))
}
