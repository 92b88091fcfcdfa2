package grid

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/draw"
)

// ErrEmptyGrid is returned when encoding a grid without cells.
var ErrEmptyGrid = errors.New("grid: empty grid")

// IntensityImage renders m as 16-bit greyscale, clamping values to [0,1].
func IntensityImage(m *Intensity) *image.Gray16 {
	if m == nil {
		return image.NewGray16(image.Rect(0, 0, 0, 0))
	}
	img := image.NewGray16(image.Rect(0, 0, m.W, m.H))
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			img.SetGray16(x, y, color.Gray16{Y: unit16(m.At(x, y))})
		}
	}
	return img
}

// VectorImage renders v as non-premultiplied 16-bit RGBA.
func VectorImage(v *Vector) *image.NRGBA64 {
	if v == nil {
		return image.NewNRGBA64(image.Rect(0, 0, 0, 0))
	}
	img := image.NewNRGBA64(image.Rect(0, 0, v.W, v.H))
	for y := 0; y < v.H; y++ {
		for x := 0; x < v.W; x++ {
			c := v.At(x, y)
			img.SetNRGBA64(x, y, color.NRGBA64{R: unit16(c[0]), G: unit16(c[1]), B: unit16(c[2]), A: unit16(c[3])})
		}
	}
	return img
}

// VectorFromImage converts any image into a vector grid with components in
// [0,1].
func VectorFromImage(img image.Image) *Vector {
	b := img.Bounds()
	out := New[mgl64.Vec4](b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			out.values[out.Index(x, y)] = mgl64.Vec4{
				float64(c.R) / 0xffff,
				float64(c.G) / 0xffff,
				float64(c.B) / 0xffff,
				float64(c.A) / 0xffff,
			}
		}
	}
	return out
}

// ScaledVector resamples v to w*h using bilinear filtering.
func ScaledVector(v *Vector, w, h int) *Vector {
	if v.Empty() || w <= 0 || h <= 0 {
		return New[mgl64.Vec4](w, h)
	}
	if v.W == w && v.H == h {
		return v.Clone()
	}
	src := VectorImage(v)
	dst := image.NewNRGBA64(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return VectorFromImage(dst)
}

// DecodeVector decodes a PNG stream into a vector grid.
func DecodeVector(r io.Reader) (*Vector, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("grid: decode png: %w", err)
	}
	return VectorFromImage(img), nil
}

// EncodeIntensity writes m as a greyscale PNG.
func EncodeIntensity(w io.Writer, m *Intensity) error {
	if m.Empty() {
		return ErrEmptyGrid
	}
	if err := png.Encode(w, IntensityImage(m)); err != nil {
		return fmt.Errorf("grid: encode png: %w", err)
	}
	return nil
}

// EncodeVector writes v as an RGBA PNG.
func EncodeVector(w io.Writer, v *Vector) error {
	if v.Empty() {
		return ErrEmptyGrid
	}
	if err := png.Encode(w, VectorImage(v)); err != nil {
		return fmt.Errorf("grid: encode png: %w", err)
	}
	return nil
}

func unit16(v float64) uint16 {
	return uint16(math.Round(clampf(v, 0, 1) * 0xffff))
}
