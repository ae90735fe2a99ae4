package scene

import (
	"fmt"
	"math"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/loaders"
	"github.com/df07/go-light-transport/pkg/material"
	"github.com/df07/go-light-transport/pkg/texture"
)

// addMeshes adds the PLY meshes a document lists to any built-in scene.
// Paths resolve against the document's directory.
//
//	"meshes": [{
//	  "file": "bunny.ply",
//	  "albedo": [0.8, 0.6, 0.5],
//	  "texture": "wood.png",
//	  "scale": 2,
//	  "rotate": [0, 90, 0],
//	  "translate": [0, 0, -1],
//	  "emission": 0
//	}]
func (s *Scene) addMeshes(d *Document) error {
	for i := range d.Get("meshes").Array() {
		prefix := fmt.Sprintf("meshes.%d.", i)
		file := d.String(prefix+"file", "")
		if file == "" {
			return fmt.Errorf("mesh %d has no file", i)
		}
		ply, err := loaders.LoadPLY(d.resolve(file))
		if err != nil {
			return err
		}

		var albedo texture.Texture = texture.NewConstant(d.Vec3(prefix+"albedo", core.Splat(0.8)))
		if name := d.String(prefix+"texture", ""); name != "" {
			bitmap, err := texture.LoadBitmap(d.resolve(name), true)
			if err != nil {
				return err
			}
			albedo = bitmap
		}
		bsdf := s.AddBsdf(material.NewTexturedLambert(albedo))

		scale := d.Float(prefix+"scale", 1)
		offset := d.Vec3(prefix+"translate", core.Vec3{})
		vertices := make([]core.Vec3, len(ply.Vertices))
		for j, v := range ply.Vertices {
			vertices[j] = v.Multiply(scale).Add(offset)
		}

		options := &geometry.TriangleMeshOptions{Normals: ply.Normals, UVs: ply.UVs}
		if rotate := d.Vec3(prefix+"rotate", core.Vec3{}); !rotate.IsZero() {
			radians := rotate.Multiply(math.Pi / 180)
			options.Rotation = &radians
			options.Center = &offset
		}
		mesh, err := geometry.NewTriangleMesh(vertices, ply.Faces, bsdf, options)
		if err != nil {
			return fmt.Errorf("mesh %s: %w", file, err)
		}
		if emission := d.Vec3(prefix+"emission", core.Vec3{}); !emission.IsZero() {
			mesh.SetEmission(texture.NewConstant(emission))
		}
		s.AddPrimitive(mesh)
		core.Logger().Debug("added mesh", "file", file, "triangles", mesh.TriangleCount())
	}
	return nil
}
