package medium

import (
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// DefaultSupergridSize is the number of voxels per supergrid cell along each axis
const DefaultSupergridSize = 8

// Grid is a dense grid of relative densities spanning Bounds. Voxel values
// sit at voxel centers; everything outside the grid has zero density.
type Grid struct {
	Nx, Ny, Nz int
	Bounds     core.AABB

	data  []float32
	voxel lattice
}

// NewGrid creates an empty grid
func NewGrid(nx, ny, nz int, bounds core.AABB) *Grid {
	g := &Grid{Nx: nx, Ny: ny, Nz: nz, Bounds: bounds, data: make([]float32, nx*ny*nz)}
	g.voxel = newLattice(bounds, [3]int{nx, ny, nz})
	return g
}

// NewGridFromFunc fills a grid by evaluating density at every voxel center
func NewGridFromFunc(nx, ny, nz int, bounds core.AABB, density func(p core.Vec3) float64) *Grid {
	g := NewGrid(nx, ny, nz, bounds)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				g.Set(x, y, z, density(g.voxel.center(x, y, z)))
			}
		}
	}
	return g
}

func (g *Grid) index(x, y, z int) int { return (z*g.Ny+y)*g.Nx + x }

// Set stores the density of one voxel. Negative values are clamped to zero.
func (g *Grid) Set(x, y, z int, v float64) {
	g.data[g.index(x, y, z)] = float32(math.Max(v, 0))
}

// At returns the density of a voxel, zero outside the grid
func (g *Grid) At(x, y, z int) float64 {
	if x < 0 || y < 0 || z < 0 || x >= g.Nx || y >= g.Ny || z >= g.Nz {
		return 0
	}
	return float64(g.data[g.index(x, y, z)])
}

// atClamped returns the density of the nearest voxel inside the grid
func (g *Grid) atClamped(x, y, z int) float64 {
	x = min(max(x, 0), g.Nx-1)
	y = min(max(y, 0), g.Ny-1)
	z = min(max(z, 0), g.Nz-1)
	return float64(g.data[g.index(x, y, z)])
}

// Nearest returns the density of the voxel containing p
func (g *Grid) Nearest(p core.Vec3) float64 {
	q := g.voxel.local(p)
	return g.At(int(math.Floor(q[0])), int(math.Floor(q[1])), int(math.Floor(q[2])))
}

// Trilinear interpolates the density at p between voxel centers. Past the
// outermost centers the edge voxels extend outward.
func (g *Grid) Trilinear(p core.Vec3) float64 {
	q := g.voxel.local(p)
	x0, fx := splitCoord(q[0] - 0.5)
	y0, fy := splitCoord(q[1] - 0.5)
	z0, fz := splitCoord(q[2] - 0.5)

	lerp := func(a, b, t float64) float64 { return a + (b-a)*t }
	at := g.atClamped
	c00 := lerp(at(x0, y0, z0), at(x0+1, y0, z0), fx)
	c10 := lerp(at(x0, y0+1, z0), at(x0+1, y0+1, z0), fx)
	c01 := lerp(at(x0, y0, z0+1), at(x0+1, y0, z0+1), fx)
	c11 := lerp(at(x0, y0+1, z0+1), at(x0+1, y0+1, z0+1), fx)
	return lerp(lerp(c00, c10, fy), lerp(c01, c11, fy), fz)
}

func splitCoord(v float64) (int, float64) {
	i := math.Floor(v)
	return int(i), v - i
}

// MaxDensity returns the largest voxel value
func (g *Grid) MaxDensity() float64 {
	maxValue := 0.0
	for _, v := range g.data {
		maxValue = math.Max(maxValue, float64(v))
	}
	return maxValue
}

// lattice is a regular partition of a box into cells, walked with a 3D DDA
type lattice struct {
	min  core.Vec3
	cell [3]float64
	dims [3]int
}

func newLattice(bounds core.AABB, dims [3]int) lattice {
	size := bounds.Size()
	return lattice{
		min:  bounds.Min,
		cell: [3]float64{size.X / float64(dims[0]), size.Y / float64(dims[1]), size.Z / float64(dims[2])},
		dims: dims,
	}
}

// local converts a world point to continuous cell coordinates
func (l lattice) local(p core.Vec3) [3]float64 {
	d := p.Subtract(l.min)
	return [3]float64{d.X / l.cell[0], d.Y / l.cell[1], d.Z / l.cell[2]}
}

func (l lattice) center(x, y, z int) core.Vec3 {
	return l.min.Add(core.NewVec3(
		(float64(x)+0.5)*l.cell[0],
		(float64(y)+0.5)*l.cell[1],
		(float64(z)+0.5)*l.cell[2],
	))
}

// traverse visits the cells the ray crosses between t0 and t1 in order,
// passing each cell's parameter range. Returning false stops the walk.
func (l lattice) traverse(ray core.Ray, t0, t1 float64, visit func(ta, tb float64, cell [3]int) bool) {
	if t1 <= t0 {
		return
	}
	start := l.local(ray.At(t0))
	origin := [3]float64{ray.Origin.X, ray.Origin.Y, ray.Origin.Z}
	dir := [3]float64{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}
	minP := [3]float64{l.min.X, l.min.Y, l.min.Z}

	var idx, step [3]int
	var tMax, tDelta [3]float64
	for a := 0; a < 3; a++ {
		idx[a] = min(max(int(math.Floor(start[a])), 0), l.dims[a]-1)
		switch {
		case dir[a] > 0:
			step[a] = 1
			tMax[a] = (minP[a] + float64(idx[a]+1)*l.cell[a] - origin[a]) / dir[a]
			tDelta[a] = l.cell[a] / dir[a]
		case dir[a] < 0:
			step[a] = -1
			tMax[a] = (minP[a] + float64(idx[a])*l.cell[a] - origin[a]) / dir[a]
			tDelta[a] = -l.cell[a] / dir[a]
		default:
			tMax[a] = math.Inf(1)
			tDelta[a] = math.Inf(1)
		}
	}

	t := t0
	for {
		tMin := math.Min(tMax[0], math.Min(tMax[1], tMax[2]))
		tNext := math.Min(tMin, t1)
		// Crossings closer than eps count as one; slivers are folded into
		// the following segment
		eps := traverseEpsilon * math.Max(1, math.Abs(tNext))
		if tNext-t > eps || tNext >= t1 {
			if tNext > t && !visit(t, tNext, idx) {
				return
			}
			t = math.Max(t, tNext)
		}
		if tMin >= t1 {
			return
		}
		for a := 0; a < 3; a++ {
			if tMax[a] > tMin+eps {
				continue
			}
			idx[a] += step[a]
			if idx[a] < 0 || idx[a] >= l.dims[a] {
				return
			}
			tMax[a] += tDelta[a]
		}
	}
}

// traverseEpsilon is the relative distance below which lattice crossings
// on different axes are treated as one corner crossing
const traverseEpsilon = 1e-9

// supergrid stores density bounds over blocks of voxels. The bounds
// include the neighbouring voxels so that they also hold for trilinear
// lookups anywhere inside a block.
type supergrid struct {
	lattice
	size     int
	min, max []float64
}

func newSupergrid(g *Grid, size int) *supergrid {
	dims := [3]int{
		(g.Nx + size - 1) / size,
		(g.Ny + size - 1) / size,
		(g.Nz + size - 1) / size,
	}
	// Cells cover whole voxel blocks, so the last cell may reach past the grid
	cellSize := [3]float64{g.voxel.cell[0] * float64(size), g.voxel.cell[1] * float64(size), g.voxel.cell[2] * float64(size)}
	s := &supergrid{
		lattice: lattice{min: g.Bounds.Min, cell: cellSize, dims: dims},
		size:    size,
		min:     make([]float64, dims[0]*dims[1]*dims[2]),
		max:     make([]float64, dims[0]*dims[1]*dims[2]),
	}
	for cz := 0; cz < dims[2]; cz++ {
		for cy := 0; cy < dims[1]; cy++ {
			for cx := 0; cx < dims[0]; cx++ {
				lo, hi := math.Inf(1), 0.0
				for z := cz*size - 1; z <= (cz+1)*size; z++ {
					for y := cy*size - 1; y <= (cy+1)*size; y++ {
						for x := cx*size - 1; x <= (cx+1)*size; x++ {
							v := g.atClamped(x, y, z)
							lo = math.Min(lo, v)
							hi = math.Max(hi, v)
						}
					}
				}
				i := s.cellIndex([3]int{cx, cy, cz})
				s.min[i], s.max[i] = lo, hi
			}
		}
	}
	return s
}

func (s *supergrid) cellIndex(cell [3]int) int {
	return (cell[2]*s.dims[1]+cell[1])*s.dims[0] + cell[0]
}

func (s *supergrid) bounds(cell [3]int) (float64, float64) {
	i := s.cellIndex(cell)
	return s.min[i], s.max[i]
}
