package main

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "golang.org/x/image/tiff"

	"github.com/df07/go-light-transport/pkg/renderer"
	"github.com/df07/go-light-transport/pkg/scene"
)

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer
	o, err := parseFlags([]string{"-scene", "fog", "-spp", "32", "-adaptive", "-v"}, &stderr)
	if err != nil {
		t.Fatalf("parseFlags() error: %v", err)
	}
	if o.scene != "fog" || o.spp != 32 || !o.adaptive || !o.verbose {
		t.Errorf("Parsed options = %+v", o)
	}
	if o.seed != renderer.DefaultConfig().Seed {
		t.Errorf("Default seed = %d", o.seed)
	}

	if _, err := parseFlags([]string{"-spp", "many"}, &stderr); err == nil {
		t.Error("Expected an error for a bad flag value")
	}
	if _, err := parseFlags([]string{"extra"}, &stderr); err == nil {
		t.Error("Expected an error for positional arguments")
	}
}

func TestRenderConfigPrecedence(t *testing.T) {
	doc, err := scene.ParseDocument([]byte(`{"scene": "diffuse-sphere", "renderer": {"spp": 12, "spp_step": 3, "adaptive": true, "max_bounces": 5}}`))
	if err != nil {
		t.Fatal(err)
	}
	s, err := doc.Build()
	if err != nil {
		t.Fatal(err)
	}

	config := renderConfig(options{}, doc, s, [32]byte{}, nil)
	if config.Spp != 12 || config.SppStep != 3 || !config.Adaptive {
		t.Errorf("Document settings not applied: %+v", config)
	}
	config = renderConfig(options{spp: 40, step: 10}, doc, s, [32]byte{}, nil)
	if config.Spp != 40 || config.SppStep != 10 {
		t.Errorf("Flags should override the document: %+v", config)
	}

	if got := integratorSettings(options{}, doc, s).MaxBounces; got != 5 {
		t.Errorf("MaxBounces = %d, want 5 from the document", got)
	}
	if got := integratorSettings(options{maxBounces: 9}, doc, s).MaxBounces; got != 9 {
		t.Errorf("MaxBounces = %d, want 9 from the flag", got)
	}
}

func TestRunRendersImage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"mirror.png", "mirror.tiff"} {
		out := filepath.Join(dir, name)
		var stdout, stderr bytes.Buffer
		args := []string{"-scene", "mirror-sphere", "-width", "24", "-spp", "2", "-step", "1", "-out", out, "-preview", "8"}
		if err := run(context.Background(), args, &stdout, &stderr); err != nil {
			t.Fatalf("run() error: %v\nstderr: %s", err, stderr.String())
		}

		f, err := os.Open(out)
		if err != nil {
			t.Fatalf("Output not written: %v", err)
		}
		cfg, _, err := image.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Fatalf("DecodeConfig() error: %v", err)
		}
		if cfg.Width != 24 || cfg.Height != 24 {
			t.Errorf("Image is %dx%d, want 24x24", cfg.Width, cfg.Height)
		}

		if !strings.Contains(stdout.String(), "Pass 2: 2 spp") {
			t.Errorf("Missing progress output:\n%s", stdout.String())
		}
		preview := strings.TrimSuffix(out, filepath.Ext(out)) + "_preview.png"
		if _, err := os.Stat(preview); err != nil {
			t.Errorf("Preview not written: %v", err)
		}
	}
}

func TestRunCheckpoint(t *testing.T) {
	dir := t.TempDir()
	checkpoint := filepath.Join(dir, "render.ltck")
	out := filepath.Join(dir, "render.png")
	args := []string{"-scene", "diffuse-sphere", "-width", "16", "-spp", "2", "-step", "2", "-checkpoint", checkpoint, "-out", out}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	f, err := os.Open(checkpoint)
	if err != nil {
		t.Fatalf("Checkpoint not written: %v", err)
	}
	h, err := renderer.ReadCheckpointHeader(f)
	f.Close()
	if err != nil {
		t.Fatal(err)
	}
	if h.Spp != 2 || h.Width != 16 {
		t.Errorf("Checkpoint header = %+v", h)
	}

	// Asking for more samples resumes instead of starting over
	stdout.Reset()
	stderr.Reset()
	args[7] = "4"
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("Resumed run() error: %v", err)
	}
	if !strings.Contains(stderr.String(), "resumed from checkpoint") {
		t.Errorf("Expected a resume log, got:\n%s", stderr.String())
	}
	if strings.Contains(stdout.String(), "Pass 2") {
		t.Errorf("Resumed render should take a single pass:\n%s", stdout.String())
	}
}

func TestRunErrors(t *testing.T) {
	tests := [][]string{
		{"-scene", "nonexistent"},
		{"-scene", "document:missing", "-scenes", t.TempDir()},
		{"-scene", filepath.Join(t.TempDir(), "missing.json")},
		{"-spp", "many"},
	}
	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		if err := run(context.Background(), args, &stdout, &stderr); err == nil {
			t.Errorf("Expected an error for %v", args)
		}
	}
}

func TestRunDocumentScene(t *testing.T) {
	dir := t.TempDir()
	doc := `{"scene": "diffuse-sphere", "camera": {"width": 12}, "renderer": {"spp": 1}}`
	if err := os.WriteFile(filepath.Join(dir, "small.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "small.png")
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-scene", "document:small", "-scenes", dir, "-out", out}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	if !strings.Contains(stdout.String(), "at 12x12, 1 spp") {
		t.Errorf("Document settings not used:\n%s", stdout.String())
	}
}

func TestRunListScenes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "haze.json"), []byte(`{"scene": "fog", "meta": {"name": "Haze"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-list", "-scenes", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	for _, want := range []string{"cornell", "mirror-sphere", "document:haze", "Haze"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("Listing is missing %s:\n%s", want, stdout.String())
		}
	}
}
