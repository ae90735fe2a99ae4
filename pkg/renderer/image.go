package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// LinearImage converts the film to a 16-bit image without gamma, clamped to [0, 1]
func (f *Film) LinearImage() *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := f.Color(x, y).Clamp(0, 1)
			img.SetRGBA64(x, y, color.RGBA64{
				R: uint16(65535*c.X + 0.5),
				G: uint16(65535*c.Y + 0.5),
				B: uint16(65535*c.Z + 0.5),
				A: 65535,
			})
		}
	}
	return img
}

// WriteTIFF encodes the film as a deflate-compressed 16-bit linear TIFF
func WriteTIFF(w io.Writer, f *Film) error {
	if err := tiff.Encode(w, f.LinearImage(), &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("encode tiff: %w", err)
	}
	return nil
}

// SaveImage writes the film to path, as TIFF when the extension is .tif or
// .tiff and as gamma-corrected PNG otherwise
func SaveImage(path string, f *Film) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		err = WriteTIFF(file, f)
	default:
		err = png.Encode(file, f.Image())
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// Preview scales img down to at most maxWidth pixels wide with Catmull-Rom
// filtering. Smaller images are returned unscaled.
func Preview(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	height := max(1, b.Dy()*maxWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of an
// 8-bit image, with channels mapped to [0, 1]
func CalculateAverageLuminance(img image.Image) float64 {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	total := 0.0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			total += (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(bl)) / 65535
		}
	}
	return total / float64(b.Dx()*b.Dy())
}
