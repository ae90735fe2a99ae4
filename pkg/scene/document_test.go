package scene

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
)

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"object", `{"scene": "fog"}`, false},
		{"empty object", `{}`, false},
		{"truncated", `{"scene": `, true},
		{"array", `[1, 2, 3]`, true},
		{"number", `42`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDocument() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("Expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.json")
	if err := os.WriteFile(path, []byte(`{"scene": "mirror-sphere"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("LoadDocument() error: %v", err)
	}
	if doc.SceneName() != "mirror-sphere" {
		t.Errorf("SceneName() = %q, want mirror-sphere", doc.SceneName())
	}
	if _, err := LoadDocument(path + ".missing"); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestDocumentAccessors(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"camera": {"width": 320, "vfov": 35.5, "center": [1, 2, 3]},
		"media": {"sigma_s": 0.25},
		"flags": {"on": true},
		"colors": {"bad": [1, 2]}
	}`))
	if err != nil {
		t.Fatal(err)
	}

	if got := doc.SceneName(); got != DefaultSceneName {
		t.Errorf("SceneName() = %q, want %q", got, DefaultSceneName)
	}
	if got := doc.Int("camera.width", 0); got != 320 {
		t.Errorf("Int(camera.width) = %d, want 320", got)
	}
	if got := doc.Float("camera.vfov", 0); got != 35.5 {
		t.Errorf("Float(camera.vfov) = %g, want 35.5", got)
	}
	if got := doc.Float("camera.aperture", 0.1); got != 0.1 {
		t.Errorf("Float(camera.aperture) = %g, want the default 0.1", got)
	}
	if !doc.Bool("flags.on", false) || doc.Bool("flags.off", false) {
		t.Error("Bool() returned the wrong value")
	}
	if got := doc.Vec3("camera.center", core.Vec3{}); got != core.NewVec3(1, 2, 3) {
		t.Errorf("Vec3(camera.center) = %v", got)
	}
	if got := doc.Vec3("media.sigma_s", core.Vec3{}); got != core.Splat(0.25) {
		t.Errorf("Vec3(media.sigma_s) = %v, want a splatted scalar", got)
	}
	if got := doc.Vec3("colors.bad", core.Splat(7)); got != core.Splat(7) {
		t.Errorf("Vec3 with the wrong arity = %v, want the default", got)
	}

	config := doc.Camera(geometry.CameraConfig{Width: 100, AspectRatio: 2, VFov: 60})
	if config.Width != 320 || config.VFov != 35.5 || config.AspectRatio != 2 || config.Center != core.NewVec3(1, 2, 3) {
		t.Errorf("Camera overrides not applied: %+v", config)
	}
}

func TestDocumentSetCopies(t *testing.T) {
	base := NewDocument("cornell")
	edited, err := base.Set("camera.width", 64)
	if err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if base.Int("camera.width", -1) != -1 {
		t.Error("Set() modified the original document")
	}
	if edited.Int("camera.width", -1) != 64 {
		t.Error("Set() did not apply the value")
	}
}

func TestConfigHash(t *testing.T) {
	hash := func(text string) [32]byte {
		t.Helper()
		doc, err := ParseDocument([]byte(text))
		if err != nil {
			t.Fatal(err)
		}
		h, err := doc.ConfigHash()
		if err != nil {
			t.Fatalf("ConfigHash() error: %v", err)
		}
		return h
	}

	base := hash(`{"scene": "fog", "camera": {"width": 64}}`)
	if got := hash(`{ "scene" : "fog",
		"camera" : { "width" : 64 } }`); got != base {
		t.Error("Whitespace changed the hash")
	}
	if got := hash(`{"scene": "fog", "camera": {"width": 64}, "renderer": {"spp": 1024}}`); got != base {
		t.Error("The renderer block changed the hash")
	}
	if got := hash(`{"scene": "fog", "camera": {"width": 65}}`); got == base {
		t.Error("A camera change did not change the hash")
	}
}

func TestBuildBuiltins(t *testing.T) {
	for _, name := range BuiltinNames() {
		t.Run(name, func(t *testing.T) {
			doc, err := NewDocument(name).Set("camera.width", 32)
			if err != nil {
				t.Fatal(err)
			}
			s, err := doc.Build()
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if s.Name != name {
				t.Errorf("Name = %q, want %q", s.Name, name)
			}
			if s.Camera.Width != 32 {
				t.Errorf("Camera width = %d, want 32", s.Camera.Width)
			}
			mustPrepare(t, s)
			if len(s.Lights()) == 0 {
				t.Error("Built-in scenes should have at least one samplable light")
			}
			if s.Defaults.Spp <= 0 {
				t.Errorf("Defaults.Spp = %d, want a positive count", s.Defaults.Spp)
			}
			s.TeardownAfterRender()
		})
	}
}

func TestBuildOverrides(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"scene": "medium-box",
		"renderer": {"spp": 7, "max_bounces": 3},
		"lights": {"selection": "uniform"},
		"media": {"sigma_a": 0, "sigma_s": [0.1, 0.2, 0.3], "phase_g": 0.5}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	s, err := doc.Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if s.Defaults.Spp != 7 || s.Defaults.MaxBounces != 3 {
		t.Errorf("Defaults = %+v, want spp 7 and 3 bounces", s.Defaults)
	}
	if s.LightSelection != LightSelectionUniform {
		t.Errorf("LightSelection = %v, want uniform", s.LightSelection)
	}
	if len(s.Media) != 1 {
		t.Fatalf("Got %d media, want 1", len(s.Media))
	}
	mustPrepare(t, s)
	if got := s.Media[0].SigmaS(core.Vec3{}); got != core.NewVec3(0.1, 0.2, 0.3) {
		t.Errorf("SigmaS = %v, want the document value", got)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind string
	}{
		{"unknown scene", `{"scene": "teapot"}`, "scene"},
		{"unknown light selection", `{"scene": "cornell", "lights": {"selection": "random"}}`, "light selection"},
		{"unknown integration mode", `{"scene": "fog", "media": {"integration": "guess"}}`, "voxel integration mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			_, err = doc.Build()
			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("Expected a ConfigError, got %v", err)
			}
			if configErr.Kind != tt.wantKind {
				t.Errorf("ConfigError.Kind = %q, want %q", configErr.Kind, tt.wantKind)
			}
			if !errors.Is(err, ErrUnknownType) {
				t.Error("Expected errors.Is(err, ErrUnknownType)")
			}
		})
	}
}

func TestBuiltin(t *testing.T) {
	s, err := Builtin("mirror-sphere")
	if err != nil {
		t.Fatalf("Builtin() error: %v", err)
	}
	if s.Name != "mirror-sphere" {
		t.Errorf("Name = %q", s.Name)
	}
}
