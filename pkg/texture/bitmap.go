package texture

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"math"
	"os"

	_ "golang.org/x/image/tiff" // TIFF decoder

	"github.com/df07/go-light-transport/pkg/core"
)

// Bitmap is an image texture with bilinear filtering and wrapping lookups.
// V=0 is the bottom row of the image.
type Bitmap struct {
	Width  int
	Height int
	Pixels []core.Vec3 // Row-major, top row first
	avg    core.Vec3
}

// NewBitmap creates a bitmap texture from linear pixel values
func NewBitmap(width, height int, pixels []core.Vec3) *Bitmap {
	b := &Bitmap{Width: width, Height: height, Pixels: pixels}
	sum := core.Vec3{}
	for _, p := range pixels {
		sum = sum.Add(p)
	}
	if len(pixels) > 0 {
		b.avg = sum.Multiply(1.0 / float64(len(pixels)))
	}
	return b
}

// NewBitmapFromImage converts a decoded image. sRGB-encoded images are
// linearised with gamma 2.2 when linearize is set.
func NewBitmapFromImage(img image.Image, linearize bool) *Bitmap {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pixels := make([]core.Vec3, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			c := core.NewVec3(float64(r)/65535.0, float64(g)/65535.0, float64(b)/65535.0)
			if linearize {
				c = core.NewVec3(math.Pow(c.X, 2.2), math.Pow(c.Y, 2.2), math.Pow(c.Z, 2.2))
			}
			pixels[y*width+x] = c
		}
	}
	return NewBitmap(width, height, pixels)
}

// LoadBitmap decodes a PNG, JPEG or TIFF file into a texture
func LoadBitmap(filename string, linearize bool) (*Bitmap, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", filename, err)
	}
	return NewBitmapFromImage(img, linearize), nil
}

func (b *Bitmap) Kind() Kind         { return KindBitmap }
func (b *Bitmap) Average() core.Vec3 { return b.avg }
func (b *Bitmap) IsConstant() bool   { return b.Width*b.Height <= 1 }
func (b *Bitmap) texture()           {}

func (b *Bitmap) texel(x, y int) core.Vec3 {
	x = ((x % b.Width) + b.Width) % b.Width
	y = ((y % b.Height) + b.Height) % b.Height
	return b.Pixels[y*b.Width+x]
}

func (b *Bitmap) Evaluate(uv core.Vec2) core.Vec3 {
	if b.Width == 0 || b.Height == 0 {
		return core.Vec3{}
	}
	u := uv.X*float64(b.Width) - 0.5
	v := (1-uv.Y)*float64(b.Height) - 0.5
	x0 := int(math.Floor(u))
	y0 := int(math.Floor(v))
	fu := u - float64(x0)
	fv := v - float64(y0)

	top := b.texel(x0, y0).Multiply(1 - fu).Add(b.texel(x0+1, y0).Multiply(fu))
	bottom := b.texel(x0, y0+1).Multiply(1 - fu).Add(b.texel(x0+1, y0+1).Multiply(fu))
	return top.Multiply(1 - fv).Add(bottom.Multiply(fv))
}
