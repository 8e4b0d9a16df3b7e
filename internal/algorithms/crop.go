// Crop commit from display coordinates to source pixels
package algorithms

import (
	"fmt"
	"math"

	"film-scanner/internal/core"
)

// MapCropToSource converts a region drawn over a display of the given size
// into source pixel units and clamps it to the source bounds.
// An empty display size means the region is already in source units.
func MapCropToSource(region core.CropRegion, source, display core.Size) core.CropRegion {
	if display.Empty() {
		display = source
	}
	scaleX := source.Width / display.Width
	scaleY := source.Height / display.Height

	if region.Width < 0 {
		region.X, region.Width = region.X+region.Width, -region.Width
	}
	if region.Height < 0 {
		region.Y, region.Height = region.Y+region.Height, -region.Height
	}

	x := math.Max(0, region.X*scaleX)
	y := math.Max(0, region.Y*scaleY)
	w := math.Min(source.Width-x, region.Width*scaleX)
	h := math.Min(source.Height-y, region.Height*scaleY)
	return core.CropRegion{X: x, Y: y, Width: math.Max(0, w), Height: math.Max(0, h)}
}

// CommitCrop extracts the region (display units) from original. It never reads
// outside the source and refuses results under minSize pixels on either side.
func CommitCrop(original *core.PixelBuffer, region core.CropRegion, display core.Size, minSize int) (*core.PixelBuffer, error) {
	if err := original.Validate(); err != nil {
		return nil, err
	}
	if minSize < 1 {
		minSize = 1
	}

	src := MapCropToSource(region, original.Size(), display)
	rect := src.Rect()
	if rect.Max.X > original.Width {
		rect.Max.X = original.Width
	}
	if rect.Max.Y > original.Height {
		rect.Max.Y = original.Height
	}
	if rect.Dx() < minSize || rect.Dy() < minSize {
		return nil, fmt.Errorf("%w: %dx%d < %d", core.ErrCropTooSmall, rect.Dx(), rect.Dy(), minSize)
	}

	out, err := core.NewPixelBuffer(rect.Dx(), rect.Dy())
	if err != nil {
		return nil, err
	}
	rowBytes := 4 * out.Width
	for y := 0; y < out.Height; y++ {
		srcOff := original.Offset(rect.Min.X, rect.Min.Y+y)
		copy(out.Pix[y*rowBytes:(y+1)*rowBytes], original.Pix[srcOff:srcOff+rowBytes])
	}
	return out, nil
}

// OrientedSize is the size of the buffer Transform produces for g.
func OrientedSize(source core.Size, g core.GeometryState) core.Size {
	if g.Rotate90 {
		return core.Size{Width: source.Height, Height: source.Width}
	}
	return source
}

// UnorientRegion maps a region drawn over the rotated and flipped render back
// into the unrotated source, so a crop can be committed on the original.
// oriented is the size of the rendered buffer, in the same units as region.
func UnorientRegion(region core.CropRegion, oriented core.Size, g core.GeometryState) core.CropRegion {
	if g.FlipHorizontal {
		region.X = oriented.Width - region.X - region.Width
	}
	if g.Rotate90 {
		// A clockwise quarter turn sends source (x, y) to (H-1-y, x), with H = oriented.Width.
		region = core.CropRegion{
			X:      region.Y,
			Y:      oriented.Width - region.X - region.Width,
			Width:  region.Height,
			Height: region.Width,
		}
	}
	return region
}
