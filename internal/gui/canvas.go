// Layout math shared by the image view and its crop overlay
package gui

import (
	"math"

	"fyne.io/fyne/v2"

	"film-scanner/internal/core"
)

// handleRadius is the grab distance of a crop corner, in widget units.
const handleRadius = 12

// fitRect returns where a w×h image lands inside area under ImageFillContain.
func fitRect(area fyne.Size, w, h int) (fyne.Position, fyne.Size) {
	if w <= 0 || h <= 0 || area.Width <= 0 || area.Height <= 0 {
		return fyne.NewPos(0, 0), fyne.NewSize(0, 0)
	}
	scale := math.Min(float64(area.Width)/float64(w), float64(area.Height)/float64(h))
	drawn := fyne.NewSize(float32(float64(w)*scale), float32(float64(h)*scale))
	origin := fyne.NewPos((area.Width-drawn.Width)/2, (area.Height-drawn.Height)/2)
	return origin, drawn
}

// viewport maps between widget positions and crop display units. The display
// is the drawn size at the time the crop session was opened, so the overlay
// survives window resizes.
type viewport struct {
	origin  fyne.Position
	drawn   fyne.Size
	display core.Size
}

func (v viewport) valid() bool {
	return v.drawn.Width > 0 && v.drawn.Height > 0 && !v.display.Empty()
}

func (v viewport) scaleX() float64 { return v.display.Width / float64(v.drawn.Width) }
func (v viewport) scaleY() float64 { return v.display.Height / float64(v.drawn.Height) }

func (v viewport) toDisplay(pos fyne.Position) core.Point {
	return core.Point{
		X: float64(pos.X-v.origin.X) * v.scaleX(),
		Y: float64(pos.Y-v.origin.Y) * v.scaleY(),
	}
}

func (v viewport) toWidget(p core.Point) fyne.Position {
	return fyne.NewPos(
		v.origin.X+float32(p.X/v.scaleX()),
		v.origin.Y+float32(p.Y/v.scaleY()),
	)
}

// delta converts a drag distance into display units.
func (v viewport) delta(d fyne.Delta) (float64, float64) {
	return float64(d.DX) * v.scaleX(), float64(d.DY) * v.scaleY()
}

func corners(r core.CropRegion) map[core.Corner]core.Point {
	return map[core.Corner]core.Point{
		core.TopLeft:     {X: r.X, Y: r.Y},
		core.TopRight:    {X: r.Right(), Y: r.Y},
		core.BottomLeft:  {X: r.X, Y: r.Bottom()},
		core.BottomRight: {X: r.Right(), Y: r.Bottom()},
	}
}

// hitCorner returns the handle closest to pos, if one lies within handleRadius.
func (v viewport) hitCorner(r core.CropRegion, pos fyne.Position) (core.Corner, bool) {
	best, found := core.TopLeft, false
	bestDist := float32(handleRadius)
	for corner, p := range corners(r) {
		w := v.toWidget(p)
		dist := float32(math.Hypot(float64(w.X-pos.X), float64(w.Y-pos.Y)))
		if dist <= bestDist {
			best, bestDist, found = corner, dist, true
		}
	}
	return best, found
}

func (v viewport) inside(r core.CropRegion, pos fyne.Position) bool {
	p := v.toDisplay(pos)
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}
