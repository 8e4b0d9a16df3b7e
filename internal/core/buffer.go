// Pixel buffer shared by every stage of the conversion pipeline
package core

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// MaxDimension bounds either side of a buffer. Larger frames are refused with
// ErrAllocation instead of exhausting memory halfway through a recompute.
const MaxDimension = 16384

// PixelBuffer is a width x height raster of non-premultiplied RGBA samples.
//
// A buffer handed to another stage must be treated as read-only. Stages build a
// new buffer for their result; they may mutate that result in place until they
// return it.
type PixelBuffer struct {
	Width  int
	Height int
	// Pix holds 4 bytes per pixel in R, G, B, A order, row-major with stride 4*Width.
	Pix []uint8
}

// ValidateDimensions reports whether a buffer of w x h can be created.
func ValidateDimensions(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("%w: %dx%d exceeds %d", ErrAllocation, w, h, MaxDimension)
	}
	return nil
}

// NewPixelBuffer allocates a transparent black buffer.
func NewPixelBuffer(w, h int) (*PixelBuffer, error) {
	if err := ValidateDimensions(w, h); err != nil {
		return nil, err
	}
	return &PixelBuffer{Width: w, Height: h, Pix: make([]uint8, 4*w*h)}, nil
}

// NewUniform allocates a buffer filled with a single colour.
func NewUniform(w, h int, c color.NRGBA) (*PixelBuffer, error) {
	buf, err := NewPixelBuffer(w, h)
	if err != nil {
		return nil, err
	}
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2], buf.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return buf, nil
}

// FromImage copies any image.Image into a new buffer.
func FromImage(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidDimensions)
	}
	b := img.Bounds()
	buf, err := NewPixelBuffer(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < buf.Height; y++ {
			src := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(buf.Pix[y*4*buf.Width:(y+1)*4*buf.Width], src[:4*buf.Width])
		}
		return buf, nil
	}

	dst := &image.NRGBA{Pix: buf.Pix, Stride: 4 * buf.Width, Rect: image.Rect(0, 0, buf.Width, buf.Height)}
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return buf, nil
}

// ToImage returns a copy of the buffer as an *image.NRGBA.
func (b *PixelBuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}

// Clone returns an independent copy.
func (b *PixelBuffer) Clone() *PixelBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// Size returns the buffer dimensions as a Size.
func (b *PixelBuffer) Size() Size {
	return Size{Width: float64(b.Width), Height: float64(b.Height)}
}

// PixelCount returns width*height.
func (b *PixelBuffer) PixelCount() int {
	return b.Width * b.Height
}

// Offset returns the index of the R sample of pixel (x, y).
func (b *PixelBuffer) Offset(x, y int) int {
	return (y*b.Width + x) * 4
}

// At returns the samples of pixel (x, y).
func (b *PixelBuffer) At(x, y int) color.NRGBA {
	i := b.Offset(x, y)
	return color.NRGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

// Set writes the samples of pixel (x, y).
func (b *PixelBuffer) Set(x, y int, c color.NRGBA) {
	i := b.Offset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3] = c.R, c.G, c.B, c.A
}

// Equal reports whether both buffers have the same size and samples.
func (b *PixelBuffer) Equal(o *PixelBuffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Width != o.Width || b.Height != o.Height || len(b.Pix) != len(o.Pix) {
		return false
	}
	for i := range b.Pix {
		if b.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

// Validate checks that the sample slice matches the declared dimensions.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return ErrNoImage
	}
	if err := ValidateDimensions(b.Width, b.Height); err != nil {
		return err
	}
	if len(b.Pix) != 4*b.Width*b.Height {
		return fmt.Errorf("%w: %d samples for %dx%d", ErrInvalidDimensions, len(b.Pix), b.Width, b.Height)
	}
	return nil
}

// ClampByte stores a computed sample the way an 8-bit clamped array does:
// round half to even, then clamp to [0,255]. NaN becomes 0.
func ClampByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.RoundToEven(v))
}
