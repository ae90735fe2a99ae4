package renderer

import (
	"math"
	"slices"
)

// maxAdaptiveFactor caps a tile's per-pixel samples at this multiple of the
// nominal pass step
const maxAdaptiveFactor = 4

// VarianceGrid partitions the image into square variance tiles, each with
// its own SampleRecord
type VarianceGrid struct {
	Width, Height int
	TileSize      int
	Cols, Rows    int
	Records       []SampleRecord
}

// NewVarianceGrid creates the variance tiles of a width x height image
func NewVarianceGrid(width, height, tileSize int) *VarianceGrid {
	cols := (width + tileSize - 1) / tileSize
	rows := (height + tileSize - 1) / tileSize
	return &VarianceGrid{
		Width:    width,
		Height:   height,
		TileSize: tileSize,
		Cols:     cols,
		Rows:     rows,
		Records:  make([]SampleRecord, cols*rows),
	}
}

// RecordAt returns the record of the variance tile containing pixel (x, y)
func (g *VarianceGrid) RecordAt(x, y int) *SampleRecord {
	return &g.Records[(y/g.TileSize)*g.Cols+x/g.TileSize]
}

// pixelCount returns the number of image pixels in variance tile i
func (g *VarianceGrid) pixelCount(i int) int {
	col, row := i%g.Cols, i/g.Cols
	w := min(g.TileSize, g.Width-col*g.TileSize)
	h := min(g.TileSize, g.Height-row*g.TileSize)
	return w * h
}

// DistributeUniform gives every pixel step samples in the next pass
func (g *VarianceGrid) DistributeUniform(step int) {
	for i := range g.Records {
		g.Records[i].NextSampleCount = step
	}
}

// DistributeAdaptive spreads a budget of step samples per image pixel over
// the variance tiles in proportion to their error estimates. Tiles with an
// infinite estimate get the maximum. A tile never gets more than
// maxAdaptiveFactor*step samples per pixel.
func (g *VarianceGrid) DistributeAdaptive(step int) {
	errors := make([]float64, len(g.Records))
	finite := make([]float64, 0, len(g.Records))
	for i := range g.Records {
		e := g.Records[i].ErrorEstimate()
		errors[i] = e
		if !math.IsInf(e, 1) && !math.IsNaN(e) {
			finite = append(finite, e)
		}
	}

	// Clamp outliers to the 95th percentile of the finite estimates so a few
	// fireflies cannot take the whole budget
	ceiling := math.Inf(1)
	if len(finite) > 0 {
		slices.Sort(finite)
		ceiling = finite[min(len(finite)-1, int(0.95*float64(len(finite))))]
	}

	limit := maxAdaptiveFactor * step
	budget := float64(step * g.Width * g.Height)
	weighted := 0.0
	for i, e := range errors {
		if math.IsNaN(e) {
			e = 0
		}
		if math.IsInf(e, 1) {
			g.Records[i].NextSampleCount = limit
			budget -= float64(limit * g.pixelCount(i))
			errors[i] = -1
			continue
		}
		errors[i] = min(e, ceiling)
		weighted += errors[i] * float64(g.pixelCount(i))
	}

	for i, e := range errors {
		if e < 0 {
			continue
		}
		switch {
		case budget <= 0:
			g.Records[i].NextSampleCount = 0
			continue
		case weighted <= 0:
			// Converged everywhere: fall back to uniform sampling
			g.Records[i].NextSampleCount = step
			continue
		}
		perPixel := budget * e / weighted
		g.Records[i].NextSampleCount = min(limit, int(math.Round(perPixel)))
	}
}

// TotalNextSamples returns the number of samples the next pass will take
func (g *VarianceGrid) TotalNextSamples() int {
	total := 0
	for i := range g.Records {
		total += g.Records[i].NextSampleCount * g.pixelCount(i)
	}
	return total
}
