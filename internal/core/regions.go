// Crop region geometry in display or source units
package core

import (
	"image"
	"math"
)

// DefaultMinCropSize keeps crop rectangles from collapsing to slivers.
const DefaultMinCropSize = 20

// DefaultCropInset is the margin, per side, of a freshly opened crop session.
const DefaultCropInset = 0.10

// Size is a width/height pair in display units (may be fractional).
type Size struct {
	Width  float64
	Height float64
}

// Empty reports whether either side is not positive.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Point is a position in display units.
type Point struct {
	X, Y float64
}

// CropRegion is an axis-aligned rectangle, top-left origin.
type CropRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Corner identifies a crop handle.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

// DefaultCropRegion returns a region inset by the given fraction on every side.
func DefaultCropRegion(bounds Size, inset float64) CropRegion {
	if inset < 0 || inset >= 0.5 {
		inset = DefaultCropInset
	}
	padX := bounds.Width * inset
	padY := bounds.Height * inset
	return CropRegion{
		X:      padX,
		Y:      padY,
		Width:  bounds.Width - 2*padX,
		Height: bounds.Height - 2*padY,
	}
}

// Right returns X + Width.
func (r CropRegion) Right() float64 { return r.X + r.Width }

// Bottom returns Y + Height.
func (r CropRegion) Bottom() float64 { return r.Y + r.Height }

// Clamp intersects the region with [0,bounds] and reports whether the result
// still meets minSize on both axes.
func (r CropRegion) Clamp(bounds Size, minSize float64) (CropRegion, bool) {
	if r.Width < 0 {
		r.X, r.Width = r.X+r.Width, -r.Width
	}
	if r.Height < 0 {
		r.Y, r.Height = r.Y+r.Height, -r.Height
	}
	left := math.Max(0, r.X)
	top := math.Max(0, r.Y)
	right := math.Min(bounds.Width, r.Right())
	bottom := math.Min(bounds.Height, r.Bottom())

	out := CropRegion{X: left, Y: top, Width: math.Max(0, right-left), Height: math.Max(0, bottom-top)}
	return out, out.Width >= minSize && out.Height >= minSize
}

// Move translates the region by (dx, dy) keeping its size and staying inside bounds.
func (r CropRegion) Move(dx, dy float64, bounds Size) CropRegion {
	r.X = math.Max(0, math.Min(bounds.Width-r.Width, r.X+dx))
	r.Y = math.Max(0, math.Min(bounds.Height-r.Height, r.Y+dy))
	return r
}

// DragCorner moves one handle to p. The point is constrained to bounds and the
// opposite edges keep at least minSize of separation.
func (r CropRegion) DragCorner(corner Corner, p Point, bounds Size, minSize float64) CropRegion {
	x := math.Max(0, math.Min(bounds.Width, p.X))
	y := math.Max(0, math.Min(bounds.Height, p.Y))
	left, top, right, bottom := r.X, r.Y, r.Right(), r.Bottom()

	switch corner {
	case TopLeft:
		left = math.Min(x, right-minSize)
		top = math.Min(y, bottom-minSize)
	case TopRight:
		top = math.Min(y, bottom-minSize)
		right = math.Max(x, left+minSize)
	case BottomLeft:
		left = math.Min(x, right-minSize)
		bottom = math.Max(y, top+minSize)
	case BottomRight:
		right = math.Max(x, left+minSize)
		bottom = math.Max(y, top+minSize)
	}
	return CropRegion{X: left, Y: top, Width: right - left, Height: bottom - top}
}

// Scale multiplies the region by independent x and y factors.
func (r CropRegion) Scale(sx, sy float64) CropRegion {
	return CropRegion{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
}

// Rect truncates the region to whole pixels.
func (r CropRegion) Rect() image.Rectangle {
	x0 := int(math.Floor(r.X))
	y0 := int(math.Floor(r.Y))
	return image.Rect(x0, y0, x0+int(r.Width), y0+int(r.Height))
}
