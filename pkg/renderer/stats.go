package renderer

import "math"

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	TotalPixels    int     // Total number of pixels rendered
	TotalSamples   int     // Total number of samples taken
	AverageSamples float64 // Average samples per pixel
	MaxSamples     int     // Target samples per pixel for the pass
	MinSamples     int     // Minimum samples taken per pixel
	MaxSamplesUsed int     // Maximum samples actually used by any pixel
	TotalBounces   int     // Bounces of the paths traced in the pass
}

// SampleRecord tracks the luminance variance of one variance tile with
// Welford's online algorithm. NextSampleCount is the number of samples each
// pixel of the tile takes in the coming pass.
type SampleRecord struct {
	SampleCount     int
	NextSampleCount int
	Mean            float64
	RunningVariance float64
}

// AddSample folds one luminance sample into the record
func (r *SampleRecord) AddSample(x float64) {
	r.SampleCount++
	delta := x - r.Mean
	r.Mean += delta / float64(r.SampleCount)
	r.RunningVariance += delta * (x - r.Mean)
}

// Variance returns the sample variance, zero with fewer than two samples
func (r *SampleRecord) Variance() float64 {
	if r.SampleCount < 2 {
		return 0
	}
	return r.RunningVariance / float64(r.SampleCount-1)
}

// ErrorEstimate is the relative variance of the tile's mean. Tiles without
// enough samples report +Inf so they are refined first.
func (r *SampleRecord) ErrorEstimate() float64 {
	if r.SampleCount < 2 {
		return math.Inf(1)
	}
	return r.Variance() / (float64(r.SampleCount) * math.Max(r.Mean*r.Mean, 1e-3))
}
