package renderer

import (
	"image"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/integrator"
)

// Tile represents a rectangular region of the image to be rendered
type Tile struct {
	ID              int                  // Unique tile identifier
	Bounds          image.Rectangle      // Pixel bounds (x0,y0,x1,y1)
	PassesCompleted int                  // Number of passes completed for this tile
	Sampler         *core.UniformSampler // Tile-specific stream for deterministic results
}

// NewTile creates a tile whose sampler uses the render seed and the tile ID
// as its stream
func NewTile(id int, bounds image.Rectangle, seed uint64) *Tile {
	return &Tile{
		ID:      id,
		Bounds:  bounds,
		Sampler: core.NewUniformSampler(seed, uint64(id)),
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int, seed uint64) []*Tile {
	var tiles []*Tile
	tileID := 0

	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed image bounds
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1), seed))
			tileID++
		}
	}

	return tiles
}

// TileRenderer traces the samples of one tile with a private integrator
type TileRenderer struct {
	integrator integrator.Integrator
	film       *Film
	variance   *VarianceGrid
}

// NewTileRenderer creates a tile renderer writing into film. Each pixel
// takes the sample count its variance tile was assigned for the pass.
func NewTileRenderer(integ integrator.Integrator, film *Film, variance *VarianceGrid) *TileRenderer {
	return &TileRenderer{
		integrator: integ,
		film:       film,
		variance:   variance,
	}
}

// RenderTile renders one pass of the pixels within the tile
func (tr *TileRenderer) RenderTile(tile *Tile) RenderStats {
	bounds := tile.Bounds
	stats := RenderStats{
		TotalPixels: bounds.Dx() * bounds.Dy(),
		MinSamples:  -1,
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			record := tr.variance.RecordAt(x, y)
			n := record.NextSampleCount
			for s := 0; s < n; s++ {
				c, bounces := tr.integrator.TraceSample(tile.Sampler, x, y)
				if c.HasNaN() {
					c = core.Vec3{}
				}
				tr.film.AddSample(x, y, c)
				record.AddSample(c.Luminance())
				stats.TotalBounces += bounces
			}
			tr.updateStats(&stats, n)
		}
	}

	tr.finalizeStats(&stats)
	return stats
}

// updateStats updates the render statistics with data from a single pixel
func (tr *TileRenderer) updateStats(stats *RenderStats, samplesUsed int) {
	stats.TotalSamples += samplesUsed
	if stats.MinSamples < 0 || samplesUsed < stats.MinSamples {
		stats.MinSamples = samplesUsed
	}
	stats.MaxSamplesUsed = max(stats.MaxSamplesUsed, samplesUsed)
}

// finalizeStats calculates final statistics after all pixels are rendered
func (tr *TileRenderer) finalizeStats(stats *RenderStats) {
	stats.MinSamples = max(stats.MinSamples, 0)
	if stats.TotalPixels > 0 {
		stats.AverageSamples = float64(stats.TotalSamples) / float64(stats.TotalPixels)
	}
}
