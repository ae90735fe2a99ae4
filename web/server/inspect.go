package server

import (
	"net/http"
	"strconv"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/scene"
)

// InspectResponse describes what the camera sees through one pixel
type InspectResponse struct {
	Hit          bool           `json:"hit"`
	GeometryType string         `json:"geometryType,omitempty"`
	MaterialType string         `json:"materialType,omitempty"`
	Lobes        string         `json:"lobes,omitempty"`
	Point        [3]float64     `json:"point"`
	Normal       [3]float64     `json:"normal"`
	Distance     float64        `json:"distance"`
	Backside     bool           `json:"backside"`
	Emissive     bool           `json:"emissive"`
	Properties   map[string]any `json:"properties,omitempty"`
}

func vec(v core.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// centerSampler answers every request with the middle of the domain, which
// puts the primary ray through the pixel center and the lens center
type centerSampler struct{}

func (centerSampler) Next1D() float64            { return 0.5 }
func (centerSampler) Next2D() core.Vec2          { return core.NewVec2(0.5, 0.5) }
func (centerSampler) NextBoolean(p float64) bool { return 0.5 < p }
func (centerSampler) NextDiscrete(n int) int     { return n / 2 }

var _ core.PathSampleGenerator = centerSampler{}

// inspectPixel casts the primary ray through the center of pixel (x, y) of
// a prepared scene
func inspectPixel(sc *scene.Scene, x, y int) InspectResponse {
	ray, _, ok := sc.Camera.GenerateRay(centerSampler{}, x, y)
	if !ok {
		return InspectResponse{}
	}

	var data geometry.IntersectionTemporary
	var info geometry.IntersectionInfo
	if !sc.Intersect(&ray, &data, &info) {
		return InspectResponse{}
	}

	p := info.Primitive
	response := InspectResponse{
		Hit:          true,
		GeometryType: p.Kind().String(),
		Point:        vec(info.P),
		Normal:       vec(info.Ng),
		Distance:     ray.FarT,
		Backside:     p.HitBackside(&data),
		Emissive:     p.Bindings().IsEmissive(),
		Properties: map[string]any{
			"geometry": geometryProperties(p),
		},
	}
	if bsdf := sc.Bsdf(info.BsdfID); bsdf != nil {
		response.MaterialType = bsdf.Kind().String()
		response.Lobes = bsdf.Lobes().String()
		response.Properties["material"] = materialProperties(bsdf)
	}
	return response
}

func geometryProperties(p geometry.Primitive) map[string]any {
	properties := map[string]any{}
	switch geom := p.(type) {
	case *geometry.Sphere:
		properties["center"] = vec(geom.Center)
		properties["radius"] = geom.Radius
	case *geometry.Quad:
		properties["corner"] = vec(geom.Corner)
		properties["u"] = vec(geom.U)
		properties["v"] = vec(geom.V)
		properties["normal"] = vec(geom.Normal)
	case *geometry.TriangleMesh:
		properties["triangleCount"] = geom.TriangleCount()
	}
	bounds := p.Bounds()
	properties["boundingBox"] = map[string]any{"min": vec(bounds.Min), "max": vec(bounds.Max)}
	properties["area"] = p.Area()
	return properties
}

func materialProperties(bsdf material.Bsdf) map[string]any {
	properties := map[string]any{}
	switch m := bsdf.(type) {
	case *material.Lambert:
		if m.Albedo != nil {
			properties["albedo"] = vec(m.Albedo.Average())
		}
	case *material.Dielectric:
		properties["ior"] = m.Ior
	case *material.Conductor:
		properties["material"] = m.Material
		properties["eta"] = vec(m.Eta)
		properties["k"] = vec(m.K)
	case *material.RoughConductor:
		properties["material"] = m.Material
		properties["eta"] = vec(m.Eta)
		properties["k"] = vec(m.K)
	}
	return properties
}

// handleInspect handles ray casting inspection requests
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	req := &RenderRequest{}
	if err := s.parseSceneParams(r.URL.Query(), req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scene parameters: "+err.Error())
		return
	}

	pixelX, err := strconv.Atoi(r.URL.Query().Get("x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(r.URL.Query().Get("y"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}

	sc, _, err := s.buildScene(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if pixelX < 0 || pixelX >= sc.Camera.Width || pixelY < 0 || pixelY >= sc.Camera.Height {
		writeError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}
	if err := sc.PrepareForRender(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer sc.TeardownAfterRender()

	writeJSON(w, http.StatusOK, inspectPixel(sc, pixelX, pixelY))
}
