package geometry

import (
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
)

// TriangleMesh represents a collection of triangles with efficient ray intersection.
// It uses an internal BVH over its triangles. Emission leaves the front side,
// where the normal is (v1-v0) × (v2-v0).
type TriangleMesh struct {
	Binding
	Vertices  []core.Vec3
	Normals   []core.Vec3 // Optional per-vertex shading normals
	UVs       []core.Vec2 // Optional per-vertex texture coordinates
	Triangles [][3]int

	bvh     *BVH
	bounds  core.AABB
	areas   *core.Distribution1D
	area    float64
	normals []core.Vec3 // Geometric normal per triangle
}

// TriangleMeshOptions contains optional parameters for triangle mesh creation
type TriangleMeshOptions struct {
	Normals  []core.Vec3 // Per-vertex shading normals
	UVs      []core.Vec2 // Per-vertex texture coordinates
	Rotation *core.Vec3  // Optional rotation (radians about X, Y, Z) applied to vertices
	Center   *core.Vec3  // Optional center point for rotation
}

// NewTriangleMesh creates a new triangle mesh from vertices and face indices.
// faces holds three vertex indices per triangle.
func NewTriangleMesh(vertices []core.Vec3, faces []int, bsdfID int, options *TriangleMeshOptions) (*TriangleMesh, error) {
	if len(faces)%3 != 0 {
		return nil, fmt.Errorf("face indices must be a multiple of 3, got %d", len(faces))
	}

	mesh := &TriangleMesh{Binding: NewBinding(bsdfID)}

	workingVertices := vertices
	if options != nil {
		if options.Normals != nil && len(options.Normals) != len(vertices) {
			return nil, fmt.Errorf("got %d normals for %d vertices", len(options.Normals), len(vertices))
		}
		if options.UVs != nil && len(options.UVs) != len(vertices) {
			return nil, fmt.Errorf("got %d uvs for %d vertices", len(options.UVs), len(vertices))
		}
		mesh.Normals = options.Normals
		mesh.UVs = options.UVs

		if options.Rotation != nil {
			workingVertices = make([]core.Vec3, len(vertices))
			for i, vertex := range vertices {
				// Translate to center, rotate, then translate back
				if options.Center != nil {
					vertex = vertex.Subtract(*options.Center)
				}
				vertex = rotateVertex(vertex, *options.Rotation)
				if options.Center != nil {
					vertex = vertex.Add(*options.Center)
				}
				workingVertices[i] = vertex
			}
			if mesh.Normals != nil {
				rotated := make([]core.Vec3, len(mesh.Normals))
				for i, n := range mesh.Normals {
					rotated[i] = rotateVertex(n, *options.Rotation)
				}
				mesh.Normals = rotated
			}
		}
	}
	mesh.Vertices = workingVertices

	numTriangles := len(faces) / 3
	mesh.Triangles = make([][3]int, numTriangles)
	mesh.normals = make([]core.Vec3, numTriangles)
	boxes := make([]core.AABB, numTriangles)
	areas := make([]float64, numTriangles)
	mesh.bounds = core.EmptyAABB()

	for i := 0; i < numTriangles; i++ {
		tri := [3]int{faces[i*3], faces[i*3+1], faces[i*3+2]}
		for _, idx := range tri {
			if idx < 0 || idx >= len(workingVertices) {
				return nil, fmt.Errorf("triangle %d: vertex index %d out of range", i, idx)
			}
		}
		mesh.Triangles[i] = tri

		v0, v1, v2 := workingVertices[tri[0]], workingVertices[tri[1]], workingVertices[tri[2]]
		cross := v1.Subtract(v0).Cross(v2.Subtract(v0))
		mesh.normals[i] = cross.Normalize()
		areas[i] = 0.5 * cross.Length()
		mesh.area += areas[i]
		boxes[i] = core.NewAABBFromPoints(v0, v1, v2)
		mesh.bounds = mesh.bounds.Union(boxes[i])
	}

	mesh.bvh = NewBVH(boxes)
	mesh.areas = core.NewDistribution1D(areas)
	return mesh, nil
}

// TriangleCount returns the number of triangles in this mesh
func (m *TriangleMesh) TriangleCount() int {
	return len(m.Triangles)
}

func (m *TriangleMesh) Kind() Kind        { return KindTriangleMesh }
func (m *TriangleMesh) Bounds() core.AABB { return m.bounds }

// intersectTriangle uses the Möller-Trumbore algorithm
func (m *TriangleMesh) intersectTriangle(ray core.Ray, face int) (float64, float64, float64, bool) {
	const epsilon = 1e-12

	tri := m.Triangles[face]
	v0 := m.Vertices[tri[0]]
	edge1 := m.Vertices[tri[1]].Subtract(v0)
	edge2 := m.Vertices[tri[2]].Subtract(v0)

	h := ray.Direction.Cross(edge2)
	a := edge1.Dot(h)

	// Ray lies in the plane of the triangle
	if a > -epsilon && a < epsilon {
		return 0, 0, 0, false
	}

	f := 1.0 / a
	s := ray.Origin.Subtract(v0)
	u := f * s.Dot(h)
	if u < 0.0 || u > 1.0 {
		return 0, 0, 0, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0.0 || u+v > 1.0 {
		return 0, 0, 0, false
	}

	t := f * edge2.Dot(q)
	if t <= ray.NearT || t >= ray.FarT {
		return 0, 0, 0, false
	}
	return t, u, v, true
}

func (m *TriangleMesh) Intersect(ray *core.Ray, data *IntersectionTemporary) bool {
	return m.bvh.Intersect(ray, func(face int) bool {
		t, u, v, ok := m.intersectTriangle(*ray, face)
		if !ok {
			return false
		}
		ray.FarT = t
		data.Primitive = m
		data.Face = face
		data.Bary = core.NewVec2(u, v)
		data.Backside = ray.Direction.Dot(m.normals[face]) > 0
		return true
	})
}

func (m *TriangleMesh) Occluded(ray core.Ray) bool {
	return m.bvh.Occluded(ray, func(face int) bool {
		_, _, _, ok := m.intersectTriangle(ray, face)
		return ok
	})
}

func (m *TriangleMesh) IntersectionInfo(data *IntersectionTemporary, info *IntersectionInfo) {
	tri := m.Triangles[data.Face]
	u, v := data.Bary.X, data.Bary.Y
	w := 1 - u - v

	ng := m.normals[data.Face]
	info.Ng = ng
	info.Ns = ng
	if m.Normals != nil {
		ns := m.Normals[tri[0]].Multiply(w).Add(m.Normals[tri[1]].Multiply(u)).Add(m.Normals[tri[2]].Multiply(v))
		if ns.LengthSquared() > 0 {
			info.Ns = ns.Normalize()
		}
	}

	v0, v1, v2 := m.Vertices[tri[0]], m.Vertices[tri[1]], m.Vertices[tri[2]]
	if m.UVs == nil {
		info.UV = data.Bary
		info.Tangent = v1.Subtract(v0)
		return
	}

	uv0, uv1, uv2 := m.UVs[tri[0]], m.UVs[tri[1]], m.UVs[tri[2]]
	info.UV = uv0.Multiply(w).Add(uv1.Multiply(u)).Add(uv2.Multiply(v))

	// dP/du from the uv parameterisation
	du1, dv1 := uv1.X-uv0.X, uv1.Y-uv0.Y
	du2, dv2 := uv2.X-uv0.X, uv2.Y-uv0.Y
	det := du1*dv2 - dv1*du2
	e1, e2 := v1.Subtract(v0), v2.Subtract(v0)
	if math.Abs(det) < 1e-12 {
		info.Tangent = e1
		return
	}
	info.Tangent = e1.Multiply(dv2).Subtract(e2.Multiply(dv1)).Multiply(1 / det)
}

func (m *TriangleMesh) HitBackside(data *IntersectionTemporary) bool { return data.Backside }

func (m *TriangleMesh) IsInfinite() bool  { return false }
func (m *TriangleMesh) IsSamplable() bool { return m.area > 0 }
func (m *TriangleMesh) IsDirac() bool     { return false }
func (m *TriangleMesh) Area() float64     { return m.area }

func (m *TriangleMesh) Power() float64 {
	return m.averageEmission() * m.area * math.Pi
}

func (m *TriangleMesh) samplePoint(sampler core.PathSampleGenerator) (core.Vec3, core.Vec3, core.Vec2) {
	face, _ := m.areas.Sample(sampler.Next1D())
	tri := m.Triangles[face]
	bary := core.UniformTriangle(sampler.Next2D())
	u, v := bary.X, bary.Y
	w := 1 - u - v
	p := m.Vertices[tri[0]].Multiply(w).Add(m.Vertices[tri[1]].Multiply(u)).Add(m.Vertices[tri[2]].Multiply(v))

	uv := bary
	if m.UVs != nil {
		uv = m.UVs[tri[0]].Multiply(w).Add(m.UVs[tri[1]].Multiply(u)).Add(m.UVs[tri[2]].Multiply(v))
	}
	return p, m.normals[face], uv
}

func (m *TriangleMesh) SamplePosition(sampler core.PathSampleGenerator, sample *core.PositionSample) bool {
	if m.area == 0 {
		return false
	}
	p, n, uv := m.samplePoint(sampler)
	sample.P = p
	sample.Ng = n
	sample.UV = uv
	sample.Pdf = 1 / m.area
	sample.Weight = m.emission(uv).Multiply(m.area)
	return true
}

func (m *TriangleMesh) SampleDirection(sampler core.PathSampleGenerator, point core.PositionSample, sample *core.DirectionSample) bool {
	return cosineDirection(sampler, point.Ng, sample)
}

func (m *TriangleMesh) SampleDirect(p core.Vec3, sampler core.PathSampleGenerator, sample *core.LightSample) bool {
	if m.area == 0 {
		return false
	}
	target, n, _ := m.samplePoint(sampler)
	d := target.Subtract(p)
	dist := d.Length()
	if dist == 0 {
		return false
	}
	d = d.Multiply(1 / dist)
	cosLight := -d.Dot(n)
	if cosLight <= 0 {
		return false
	}
	sample.D = d
	sample.Dist = dist
	sample.Pdf = areaToSolidAngle(1/m.area, dist, cosLight)
	return true
}

func (m *TriangleMesh) DirectPdf(data *IntersectionTemporary, info *IntersectionInfo, p core.Vec3) float64 {
	d := info.P.Subtract(p)
	dist := d.Length()
	if dist == 0 || m.area == 0 {
		return 0
	}
	return areaToSolidAngle(1/m.area, dist, info.Ng.Dot(d.Multiply(1/dist)))
}

func (m *TriangleMesh) EvalDirect(data *IntersectionTemporary, info *IntersectionInfo) core.Vec3 {
	if data.Backside {
		return core.Vec3{}
	}
	return m.emission(info.UV)
}

func (m *TriangleMesh) Prepare(sceneBounds core.AABB) {}

// rotateVertex applies rotation around X, Y, Z axes (in that order)
func rotateVertex(vertex, rotation core.Vec3) core.Vec3 {
	if rotation.X != 0 {
		cos, sin := math.Cos(rotation.X), math.Sin(rotation.X)
		vertex = core.NewVec3(vertex.X, vertex.Y*cos-vertex.Z*sin, vertex.Y*sin+vertex.Z*cos)
	}
	if rotation.Y != 0 {
		cos, sin := math.Cos(rotation.Y), math.Sin(rotation.Y)
		vertex = core.NewVec3(vertex.X*cos+vertex.Z*sin, vertex.Y, -vertex.X*sin+vertex.Z*cos)
	}
	if rotation.Z != 0 {
		cos, sin := math.Cos(rotation.Z), math.Sin(rotation.Z)
		vertex = core.NewVec3(vertex.X*cos-vertex.Y*sin, vertex.X*sin+vertex.Y*cos, vertex.Z)
	}
	return vertex
}
