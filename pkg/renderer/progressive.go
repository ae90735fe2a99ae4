package renderer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"time"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/integrator"
	"github.com/df07/go-light-transport/pkg/scene"
)

// Config contains configuration for progressive rendering
type Config struct {
	Spp              int    // Target samples per pixel
	SppStep          int    // Samples per pixel added by each pass
	TileSize         int    // Size of each render tile, rounded up to a multiple of VarianceTileSize
	NumWorkers       int    // Number of parallel workers (0 = use CPU count)
	Seed             uint64 // Seed of every tile's sample stream
	Adaptive         bool   // Distribute samples by variance after AdaptiveStartSpp
	AdaptiveStartSpp int    // Uniform samples per pixel before adaptive sampling starts
	VarianceTileSize int    // Size of the tiles variance is estimated over
	CheckpointPath   string // Resume from and save to this file when set

	// SceneHash identifies the scene configuration a checkpoint belongs to
	SceneHash [32]byte

	// Logger receives render progress; nil uses core.Logger()
	Logger *slog.Logger
}

// DefaultConfig returns sensible default values
func DefaultConfig() Config {
	return Config{
		Spp:              64,
		SppStep:          8,
		TileSize:         64,
		NumWorkers:       0, // Auto-detect CPU count
		Seed:             0x5eed,
		Adaptive:         false,
		AdaptiveStartSpp: 16,
		VarianceTileSize: 16,
	}
}

// normalize fills in unusable values with defaults
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Spp <= 0 {
		c.Spp = def.Spp
	}
	if c.SppStep <= 0 {
		c.SppStep = def.SppStep
	}
	c.SppStep = min(c.SppStep, c.Spp)
	if c.VarianceTileSize <= 0 {
		c.VarianceTileSize = def.VarianceTileSize
	}
	if c.TileSize <= 0 {
		c.TileSize = def.TileSize
	}
	// Each variance tile must lie inside one render tile
	c.TileSize = (c.TileSize + c.VarianceTileSize - 1) / c.VarianceTileSize * c.VarianceTileSize
	if c.Logger == nil {
		c.Logger = core.Logger()
	}
	return c
}

// Renderer manages progressive rendering with multiple passes. A renderer
// is used for one render; its workers stop when the render ends.
type Renderer struct {
	scene      *scene.Scene
	config     Config
	logger     *slog.Logger
	film       *Film
	variance   *VarianceGrid
	tiles      []*Tile
	currentSpp int // Samples per pixel completed
	nextSpp    int // Samples per pixel after the pass in progress
	workerPool *WorkerPool
}

// NewRenderer creates a progressive renderer for a prepared scene. Every
// worker gets its own integrator from factory.
func NewRenderer(s *scene.Scene, factory integrator.Factory, config Config) (*Renderer, error) {
	if !s.Prepared() {
		return nil, errors.New("scene must be prepared before rendering")
	}
	config = config.normalize()

	width, height := s.Camera.Width, s.Camera.Height
	film := NewFilm(width, height)
	variance := NewVarianceGrid(width, height, config.VarianceTileSize)
	tiles := NewTileGrid(width, height, config.TileSize, config.Seed)

	return &Renderer{
		scene:      s,
		config:     config,
		logger:     config.Logger,
		film:       film,
		variance:   variance,
		tiles:      tiles,
		workerPool: NewWorkerPool(s, factory, film, variance, len(tiles), config.NumWorkers),
	}, nil
}

// Film returns the accumulated image
func (r *Renderer) Film() *Film { return r.film }

// CurrentSpp returns the samples per pixel completed so far
func (r *Renderer) CurrentSpp() int { return r.currentSpp }

// Config returns the normalized configuration
func (r *Renderer) Config() Config { return r.config }

// Done reports whether the target sample count has been reached
func (r *Renderer) Done() bool { return r.currentSpp >= r.config.Spp }

// Close stops the workers
func (r *Renderer) Close() { r.workerPool.Stop() }

// Resume loads the configured checkpoint. A missing checkpoint starts a
// fresh render quietly; an unusable one is logged and ignored.
func (r *Renderer) Resume() bool {
	path := r.config.CheckpointPath
	if path == "" {
		return false
	}
	err := r.LoadCheckpoint(path)
	switch {
	case err == nil:
		r.logger.Info("resumed from checkpoint", "path", path, "spp", r.currentSpp)
		return true
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("no checkpoint to resume", "path", path)
	default:
		r.logger.Warn("ignoring checkpoint, starting fresh", "path", path, "error", err)
	}
	return false
}

// distributeSamples sets each variance tile's sample count for the next pass
func (r *Renderer) distributeSamples(step int) {
	if r.config.Adaptive && r.currentSpp >= r.config.AdaptiveStartSpp {
		r.variance.DistributeAdaptive(step)
		r.logger.Debug("adaptive sample distribution",
			"spp", r.currentSpp, "samples", r.variance.TotalNextSamples())
		return
	}
	r.variance.DistributeUniform(step)
}

// RenderPass renders a single progressive pass using parallel processing.
// The tile callback runs on the calling goroutine.
func (r *Renderer) RenderPass(ctx context.Context, passNumber int, tileCallback func(TileCompletionResult)) (RenderStats, error) {
	if r.Done() {
		return r.assembleStats(0), nil
	}
	r.nextSpp = min(r.currentSpp+r.config.SppStep, r.config.Spp)
	step := r.nextSpp - r.currentSpp
	r.distributeSamples(step)

	r.logger.Debug("starting pass", "pass", passNumber, "targetSpp", r.nextSpp,
		"workers", r.workerPool.GetNumWorkers())

	r.workerPool.Start()
	for i, tile := range r.tiles {
		r.workerPool.SubmitTask(TileTask{
			Ctx:        ctx,
			Tile:       tile,
			PassNumber: passNumber,
			TaskID:     i,
		})
	}

	// Drain every result, even after an error, so the queues are empty for
	// the next pass
	var firstErr error
	bounces := 0
	for i := 0; i < len(r.tiles); i++ {
		result, ok := r.workerPool.GetResult()
		if !ok {
			return RenderStats{}, fmt.Errorf("worker pool closed unexpectedly")
		}
		if result.Error != nil {
			if firstErr == nil {
				firstErr = result.Error
			}
			continue
		}
		bounces += result.Stats.TotalBounces

		tile := r.tiles[result.TaskID]
		tile.PassesCompleted++

		if tileCallback != nil && firstErr == nil {
			tileCallback(TileCompletionResult{
				TileX:       tile.Bounds.Min.X / r.config.TileSize,
				TileY:       tile.Bounds.Min.Y / r.config.TileSize,
				TileImage:   r.film.TileImage(tile.Bounds),
				PassNumber:  passNumber,
				TileNumber:  i + 1,
				TotalTiles:  len(r.tiles),
				TotalPasses: r.totalPasses(),
			})
		}
	}
	if firstErr != nil {
		return RenderStats{}, firstErr
	}

	r.currentSpp = r.nextSpp
	return r.assembleStats(bounces), nil
}

// totalPasses returns the number of passes a render from zero takes
func (r *Renderer) totalPasses() int {
	return (r.config.Spp + r.config.SppStep - 1) / r.config.SppStep
}

// assembleStats calculates render statistics from the film
func (r *Renderer) assembleStats(bounces int) RenderStats {
	stats := RenderStats{
		TotalPixels:  r.film.Width * r.film.Height,
		MaxSamples:   r.currentSpp,
		MinSamples:   -1,
		TotalBounces: bounces,
	}
	for y := 0; y < r.film.Height; y++ {
		for x := 0; x < r.film.Width; x++ {
			n := r.film.SampleCount(x, y)
			stats.TotalSamples += n
			if stats.MinSamples < 0 || n < stats.MinSamples {
				stats.MinSamples = n
			}
			stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, n)
		}
	}
	stats.MinSamples = max(stats.MinSamples, 0)
	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
	return stats
}

// checkpoint saves the render state when a checkpoint path is configured.
// Failures are logged; the render goes on.
func (r *Renderer) checkpoint() {
	if r.config.CheckpointPath == "" {
		return
	}
	if err := r.SaveCheckpoint(r.config.CheckpointPath); err != nil {
		r.logger.Warn("checkpoint failed", "path", r.config.CheckpointPath, "error", err)
		return
	}
	r.logger.Debug("checkpoint written", "path", r.config.CheckpointPath, "spp", r.currentSpp)
}

// Render runs passes until the target sample count is reached or ctx is
// cancelled. It resumes from and saves to the configured checkpoint.
func (r *Renderer) Render(ctx context.Context) (RenderStats, error) {
	defer r.Close()
	r.Resume()

	stats := r.assembleStats(0)
	for pass := 1; !r.Done(); pass++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		start := time.Now()
		passStats, err := r.RenderPass(ctx, pass, nil)
		if err != nil {
			return stats, err
		}
		stats = passStats
		r.checkpoint()
		r.logger.Info("pass completed", "pass", pass, "spp", r.currentSpp, "duration", time.Since(start))
	}
	return stats, nil
}

// PassResult contains the result of a single pass
type PassResult struct {
	PassNumber int
	Image      *image.RGBA
	Stats      RenderStats
	IsLast     bool
}

// TileCompletionResult contains information about a completed tile for callbacks
type TileCompletionResult struct {
	TileX      int // Tile coordinates (not pixel coordinates)
	TileY      int
	TileImage  *image.RGBA // Image data for just this tile
	PassNumber int         // Which pass this tile was rendered in

	// Progress information
	TileNumber  int // Current tile number in this pass (1-based)
	TotalTiles  int // Total number of tiles in the image
	TotalPasses int // Total number of passes planned
}

// RenderOptions configures progressive rendering behavior
type RenderOptions struct {
	TileUpdates bool // Whether to generate tile completion events
}

// RenderProgressive renders with channel-based communication.
// The caller should read from these channels in separate goroutines.
// If options.TileUpdates is false, the tile channel is closed immediately.
func (r *Renderer) RenderProgressive(ctx context.Context, options RenderOptions) (<-chan PassResult, <-chan TileCompletionResult, <-chan error) {
	passChan := make(chan PassResult, 1)
	tileChan := make(chan TileCompletionResult, 100)
	errChan := make(chan error, 1)

	if !options.TileUpdates {
		close(tileChan)
	}

	go func() {
		defer close(passChan)
		if options.TileUpdates {
			defer close(tileChan)
		}
		defer close(errChan)
		defer r.Close()

		r.Resume()
		r.logger.Info("starting progressive render", "spp", r.config.Spp, "step", r.config.SppStep, "resumedSpp", r.currentSpp)

		for pass := 1; !r.Done(); pass++ {
			select {
			case <-ctx.Done():
				r.logger.Info("render cancelled", "pass", pass)
				errChan <- ctx.Err()
				return
			default:
			}

			start := time.Now()

			var tileCallback func(TileCompletionResult)
			if options.TileUpdates {
				tileCallback = func(result TileCompletionResult) {
					select {
					case tileChan <- result:
					case <-ctx.Done():
					default:
						// Channel full; previews are best effort
					}
				}
			}

			stats, err := r.RenderPass(ctx, pass, tileCallback)
			if err != nil {
				errChan <- err
				return
			}
			r.checkpoint()
			r.logger.Info("pass completed", "pass", pass, "spp", r.currentSpp, "duration", time.Since(start))

			select {
			case passChan <- PassResult{PassNumber: pass, Image: r.film.Image(), Stats: stats, IsLast: r.Done()}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return passChan, tileChan, errChan
}
