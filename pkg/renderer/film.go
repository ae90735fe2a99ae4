package renderer

import (
	"image"
	"image/color"

	"github.com/df07/go-light-transport/pkg/core"
)

// DisplayGamma is the gamma applied when converting radiance to 8-bit color
const DisplayGamma = 2.2

// Film accumulates radiance samples per pixel. Pixels are written by
// exactly one tile, so concurrent tiles never touch the same entries.
type Film struct {
	Width, Height int

	sum    []core.Vec3
	count  []int
	lumSum []float64
	lumSq  []float64
}

// NewFilm creates an empty film
func NewFilm(width, height int) *Film {
	n := width * height
	return &Film{
		Width:  width,
		Height: height,
		sum:    make([]core.Vec3, n),
		count:  make([]int, n),
		lumSum: make([]float64, n),
		lumSq:  make([]float64, n),
	}
}

// AddSample adds one radiance sample to pixel (x, y)
func (f *Film) AddSample(x, y int, c core.Vec3) {
	i := y*f.Width + x
	f.sum[i] = f.sum[i].Add(c)
	lum := c.Luminance()
	f.lumSum[i] += lum
	f.lumSq[i] += lum * lum
	f.count[i]++
}

// SampleCount returns the number of samples pixel (x, y) received
func (f *Film) SampleCount(x, y int) int {
	return f.count[y*f.Width+x]
}

// Color returns the mean radiance of pixel (x, y)
func (f *Film) Color(x, y int) core.Vec3 {
	i := y*f.Width + x
	if f.count[i] == 0 {
		return core.Vec3{}
	}
	return f.sum[i].Multiply(1 / float64(f.count[i]))
}

// LuminanceVariance returns the sample variance of the luminance of pixel (x, y)
func (f *Film) LuminanceVariance(x, y int) float64 {
	i := y*f.Width + x
	n := float64(f.count[i])
	if n < 2 {
		return 0
	}
	mean := f.lumSum[i] / n
	return max(0, (f.lumSq[i]-n*mean*mean)/(n-1))
}

// AverageLuminance returns the mean luminance over all pixels, in linear radiance
func (f *Film) AverageLuminance() float64 {
	total := 0.0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			total += f.Color(x, y).Luminance()
		}
	}
	return total / float64(f.Width*f.Height)
}

// Image converts the film to 8-bit sRGB-like color with gamma 2.2
func (f *Film) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	f.drawInto(img, img.Bounds())
	return img
}

// TileImage converts the pixels inside bounds to an image of their own
func (f *Film) TileImage(bounds image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	f.drawInto(img, bounds)
	return img
}

func (f *Film) drawInto(img *image.RGBA, bounds image.Rectangle) {
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			img.SetRGBA(x-bounds.Min.X, y-bounds.Min.Y, vec3ToColor(f.Color(x, y)))
		}
	}
}

// vec3ToColor converts a Vec3 color to RGBA with gamma correction and clamping
func vec3ToColor(c core.Vec3) color.RGBA {
	c = c.GammaCorrect(DisplayGamma).Clamp(0.0, 1.0)
	return color.RGBA{
		R: uint8(255*c.X + 0.5),
		G: uint8(255*c.Y + 0.5),
		B: uint8(255*c.Z + 0.5),
		A: 255,
	}
}
