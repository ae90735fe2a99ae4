package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/integrator"
	"github.com/df07/go-light-transport/pkg/renderer"
	"github.com/df07/go-light-transport/pkg/scene"
)

// options holds the parsed command line
type options struct {
	scene      string
	scenesDir  string
	width      int
	spp        int
	step       int
	maxBounces int
	workers    int
	seed       uint64
	adaptive   bool
	checkpoint string
	output     string
	preview    int
	list       bool
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("light-transport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.scene, "scene", scene.DefaultSceneName, "Built-in scene, listed document ID or path to a JSON scene document")
	fs.StringVar(&o.scenesDir, "scenes", "scenes", "Directory of scene documents")
	fs.IntVar(&o.width, "width", 0, "Image width override (0 = scene default)")
	fs.IntVar(&o.spp, "spp", 0, "Samples per pixel (0 = scene default)")
	fs.IntVar(&o.step, "step", 0, "Samples per pixel per pass (0 = document or renderer default)")
	fs.IntVar(&o.maxBounces, "max-bounces", 0, "Maximum path length (0 = scene default)")
	fs.IntVar(&o.workers, "workers", 0, "Number of parallel workers (0 = CPU count)")
	fs.Uint64Var(&o.seed, "seed", renderer.DefaultConfig().Seed, "Seed of the sample streams")
	fs.BoolVar(&o.adaptive, "adaptive", false, "Distribute samples by variance")
	fs.StringVar(&o.checkpoint, "checkpoint", "", "Resume from and save progress to this file")
	fs.StringVar(&o.output, "out", "", "Output image, .png or .tiff (default output/<scene>/render.png)")
	fs.IntVar(&o.preview, "preview", 0, "Write a downscaled preview of this width after every pass")
	fs.BoolVar(&o.list, "list", false, "List available scenes and exit")
	fs.BoolVar(&o.verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return o, nil
}

// renderConfig combines the document's renderer block with the command line
func renderConfig(o options, doc *scene.Document, s *scene.Scene, hash [32]byte, logger *slog.Logger) renderer.Config {
	config := renderer.DefaultConfig()
	config.Spp = s.Defaults.Spp
	if o.spp > 0 {
		config.Spp = o.spp
	}
	config.SppStep = doc.Int("renderer.spp_step", config.SppStep)
	if o.step > 0 {
		config.SppStep = o.step
	}
	config.Adaptive = o.adaptive || doc.Bool("renderer.adaptive", false)
	config.AdaptiveStartSpp = doc.Int("renderer.adaptive_start_spp", config.AdaptiveStartSpp)
	config.NumWorkers = o.workers
	config.Seed = o.seed
	config.CheckpointPath = o.checkpoint
	config.SceneHash = hash
	config.Logger = logger
	return config
}

func integratorSettings(o options, doc *scene.Document, s *scene.Scene) integrator.Settings {
	settings := integrator.DefaultSettings().WithMaxBounces(s.Defaults.MaxBounces).WithMaxBounces(o.maxBounces)
	settings.MinBounces = doc.Int("renderer.min_bounces", settings.MinBounces)
	settings.EnableLightSampling = doc.Bool("renderer.light_sampling", settings.EnableLightSampling)
	settings.EnableVolumeLightSampling = doc.Bool("renderer.volume_light_sampling", settings.EnableVolumeLightSampling)
	settings.EnableTwoSidedShading = doc.Bool("renderer.two_sided_shading", settings.EnableTwoSidedShading)
	settings.EnableConsistencyChecks = doc.Bool("renderer.consistency_checks", settings.EnableConsistencyChecks)
	return settings
}

func listScenes(o options, stdout io.Writer) error {
	resp, err := scene.ListAllScenes(o.scenesDir)
	if err != nil {
		return err
	}
	for _, group := range resp.Groups {
		fmt.Fprintf(stdout, "%s:\n", group.Name)
		for _, info := range group.Scenes {
			fmt.Fprintf(stdout, "  %-24s %s\n", info.ID, info.DisplayName)
		}
	}
	return nil
}

// writePreview saves a scaled copy of img next to the output image
func writePreview(output string, img image.Image, width int) error {
	path := strings.TrimSuffix(output, filepath.Ext(output)) + "_preview.png"
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(file, renderer.Preview(img, width)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	core.SetLogger(logger)

	if o.list {
		return listScenes(o, stdout)
	}

	doc, err := scene.ResolveDocument(o.scene, o.scenesDir)
	if err != nil {
		return err
	}
	if o.width > 0 {
		if doc, err = doc.Set("camera.width", o.width); err != nil {
			return err
		}
	}

	s, err := doc.Build()
	if err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}
	if err := s.PrepareForRender(); err != nil {
		return fmt.Errorf("failed to prepare scene: %w", err)
	}
	defer s.TeardownAfterRender()

	hash, err := doc.ConfigHash()
	if err != nil {
		return err
	}

	config := renderConfig(o, doc, s, hash, logger)
	settings := integratorSettings(o, doc, s)
	r, err := renderer.NewRenderer(s, integrator.PathTracerFactory(settings), config)
	if err != nil {
		return err
	}

	output := o.output
	if output == "" {
		output = filepath.Join("output", s.Name, "render.png")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(stdout, "Rendering %s at %dx%d, %d spp, max %d bounces\n",
		s.Name, s.Camera.Width, s.Camera.Height, r.Config().Spp, settings.MaxBounces)

	start := time.Now()
	passChan, _, errChan := r.RenderProgressive(ctx, renderer.RenderOptions{})
	for pass := range passChan {
		p.Fprintf(stdout, "Pass %d: %d spp, %d samples, %d bounces (%v)\n",
			pass.PassNumber, pass.Stats.MaxSamples, pass.Stats.TotalSamples, pass.Stats.TotalBounces,
			time.Since(start).Round(time.Millisecond))
		if o.preview > 0 {
			if err := writePreview(output, pass.Image, o.preview); err != nil {
				logger.Warn("preview failed", "error", err)
			}
		}
	}
	renderErr := <-errChan

	// Save whatever was rendered, even after a cancellation
	if err := renderer.SaveImage(output, r.Film()); err != nil {
		return err
	}
	p.Fprintf(stdout, "Saved %s (average luminance %.4f)\n", output, r.Film().AverageLuminance())
	return renderErr
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
