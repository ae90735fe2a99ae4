package scene

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
)

// ErrInvalidDocument is returned for scene documents that are not valid JSON
var ErrInvalidDocument = errors.New("invalid scene document")

// DefaultSceneName is the built-in scene used when a document names none
const DefaultSceneName = "cornell"

// Document is a JSON scene description. It names a built-in scene and
// overrides its parameters; the "renderer" block holds render settings that
// do not change the image's expected value.
//
//	{
//	  "scene": "medium-box",
//	  "camera": {"width": 320, "vfov": 35},
//	  "media": {"sigma_s": [0.5, 0.5, 0.5]},
//	  "renderer": {"spp": 256}
//	}
type Document struct {
	raw []byte
	dir string // Directory relative file references resolve against
}

// ParseDocument validates data as a scene document
func ParseDocument(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidDocument
	}
	if root := gjson.ParseBytes(data); !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidDocument)
	}
	return &Document{raw: append([]byte(nil), data...)}, nil
}

// LoadDocument reads a scene document from disk
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene document: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.dir = filepath.Dir(path)
	return doc, nil
}

// NewDocument creates a document selecting a built-in scene with default
// parameters
func NewDocument(sceneName string) *Document {
	raw, _ := sjson.SetBytes([]byte("{}"), "scene", sceneName)
	return &Document{raw: raw}
}

// Raw returns the document text
func (d *Document) Raw() []byte { return d.raw }

// Set returns a copy of the document with the value at path replaced
func (d *Document) Set(path string, value any) (*Document, error) {
	raw, err := sjson.SetBytes(append([]byte(nil), d.raw...), path, value)
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", path, err)
	}
	return &Document{raw: raw, dir: d.dir}, nil
}

// resolve makes a file reference relative to the document's directory
func (d *Document) resolve(path string) string {
	if filepath.IsAbs(path) || d.dir == "" {
		return path
	}
	return filepath.Join(d.dir, path)
}

// SceneName returns the built-in scene the document selects
func (d *Document) SceneName() string {
	return d.String("scene", DefaultSceneName)
}

// Get returns the raw value at a gjson path
func (d *Document) Get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

// Float reads a number, falling back to def when absent
func (d *Document) Float(path string, def float64) float64 {
	if v := d.Get(path); v.Exists() {
		return v.Float()
	}
	return def
}

// Int reads an integer, falling back to def when absent
func (d *Document) Int(path string, def int) int {
	if v := d.Get(path); v.Exists() {
		return int(v.Int())
	}
	return def
}

// Bool reads a boolean, falling back to def when absent
func (d *Document) Bool(path string, def bool) bool {
	if v := d.Get(path); v.Exists() {
		return v.Bool()
	}
	return def
}

// String reads a string, falling back to def when absent
func (d *Document) String(path string, def string) string {
	if v := d.Get(path); v.Exists() {
		return v.String()
	}
	return def
}

// Vec3 reads a three element array or a single number applied to all
// three components
func (d *Document) Vec3(path string, def core.Vec3) core.Vec3 {
	v := d.Get(path)
	switch {
	case !v.Exists():
		return def
	case v.IsArray():
		c := v.Array()
		if len(c) != 3 {
			return def
		}
		return core.NewVec3(c[0].Float(), c[1].Float(), c[2].Float())
	}
	return core.Splat(v.Float())
}

// ConfigHash fingerprints everything that affects the rendered image. The
// renderer block and formatting are ignored, so a render can be resumed
// with different sample counts or worker settings.
func (d *Document) ConfigHash() ([32]byte, error) {
	stripped, err := sjson.DeleteBytes(append([]byte(nil), d.raw...), "renderer")
	if err != nil {
		return [32]byte{}, fmt.Errorf("hashing scene document: %w", err)
	}
	compact := gjson.GetBytes(stripped, "@ugly")
	return sha256.Sum256([]byte(compact.Raw)), nil
}

// Camera applies the document's camera overrides to a scene's default
// camera configuration
func (d *Document) Camera(def geometry.CameraConfig) geometry.CameraConfig {
	c := def
	c.Center = d.Vec3("camera.center", c.Center)
	c.LookAt = d.Vec3("camera.look_at", c.LookAt)
	c.Up = d.Vec3("camera.up", c.Up)
	c.Width = d.Int("camera.width", c.Width)
	c.AspectRatio = d.Float("camera.aspect_ratio", c.AspectRatio)
	c.VFov = d.Float("camera.vfov", c.VFov)
	c.Aperture = d.Float("camera.aperture", c.Aperture)
	c.FocusDistance = d.Float("camera.focus_distance", c.FocusDistance)
	return c
}

// Build constructs the scene the document describes. The scene is not
// prepared yet.
func (d *Document) Build() (*Scene, error) {
	name := d.SceneName()
	entry, ok := builtins[name]
	if !ok {
		return nil, core.NewConfigError("scene", name)
	}
	s, err := entry.build(d)
	if err != nil {
		return nil, fmt.Errorf("building scene %q: %w", name, err)
	}
	s.Name = name
	if err := s.addMeshes(d); err != nil {
		return nil, fmt.Errorf("building scene %q: %w", name, err)
	}
	s.Defaults.Spp = d.Int("renderer.spp", s.Defaults.Spp)
	s.Defaults.MaxBounces = d.Int("renderer.max_bounces", s.Defaults.MaxBounces)
	switch selection := d.String("lights.selection", "power"); selection {
	case "power":
		s.LightSelection = LightSelectionPower
	case "uniform":
		s.LightSelection = LightSelectionUniform
	default:
		return nil, core.NewConfigError("light selection", selection)
	}
	return s, nil
}
