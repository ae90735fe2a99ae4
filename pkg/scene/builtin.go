package scene

// builtinScene pairs a scene's listing with its constructor
type builtinScene struct {
	info  SceneInfo
	build func(d *Document) (*Scene, error)
}

// builtinGroup is the listing group of the scenes compiled into the binary
const builtinGroup = "Built-in Scenes"

var builtinList = []builtinScene{
	{SceneInfo{ID: "cornell", Name: "Cornell Box", Description: "Cornell box with a mirror and a glass sphere"}, NewCornellScene},
	{SceneInfo{ID: "spheres", Name: "Spheres", Description: "Coated, metal and glass spheres under a sky"}, NewSpheresScene},
	{SceneInfo{ID: "materials", Name: "Materials", Description: "One sphere per BSDF kind"}, NewMaterialsScene},
	{SceneInfo{ID: "diffuse-sphere", Name: "Diffuse Sphere", Description: "Lambertian sphere lit by a small sphere light"}, NewDiffuseSphereScene},
	{SceneInfo{ID: "mirror-sphere", Name: "Mirror Sphere", Description: "Perfect mirror in a constant environment"}, NewMirrorSphereScene},
	{SceneInfo{ID: "glass-sphere", Name: "Glass Sphere", Description: "Dielectric sphere casting a caustic in sunlight"}, NewGlassSphereScene},
	{SceneInfo{ID: "medium-box", Name: "Medium Box", Description: "Box of homogeneous scattering medium"}, NewMediumBoxScene},
	{SceneInfo{ID: "fog", Name: "Fog", Description: "Voxel density grid lit by the sun"}, NewFogScene},
}

var builtins = func() map[string]builtinScene {
	m := make(map[string]builtinScene, len(builtinList))
	for _, b := range builtinList {
		b.info.DisplayName = b.info.Name
		b.info.Group = builtinGroup
		b.info.Type = "builtin"
		m[b.info.ID] = b
	}
	return m
}()

// BuiltinNames returns the names of the built-in scenes in listing order
func BuiltinNames() []string {
	names := make([]string, len(builtinList))
	for i, b := range builtinList {
		names[i] = b.info.ID
	}
	return names
}

// Builtin builds a built-in scene with default parameters
func Builtin(name string) (*Scene, error) {
	return NewDocument(name).Build()
}
