package gui

import (
	"testing"

	"fyne.io/fyne/v2"
	"github.com/stretchr/testify/assert"

	"film-scanner/internal/core"
)

func TestFitRect(t *testing.T) {
	tests := []struct {
		name   string
		area   fyne.Size
		w, h   int
		origin fyne.Position
		drawn  fyne.Size
	}{
		{"wide image letterboxed", fyne.NewSize(400, 400), 200, 100, fyne.NewPos(0, 100), fyne.NewSize(400, 200)},
		{"tall image pillarboxed", fyne.NewSize(400, 200), 100, 200, fyne.NewPos(150, 0), fyne.NewSize(100, 200)},
		{"exact fit", fyne.NewSize(300, 150), 600, 300, fyne.NewPos(0, 0), fyne.NewSize(300, 150)},
		{"no image", fyne.NewSize(300, 150), 0, 0, fyne.NewPos(0, 0), fyne.NewSize(0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origin, drawn := fitRect(tt.area, tt.w, tt.h)
			assert.InDelta(t, tt.origin.X, origin.X, 0.01)
			assert.InDelta(t, tt.origin.Y, origin.Y, 0.01)
			assert.InDelta(t, tt.drawn.Width, drawn.Width, 0.01)
			assert.InDelta(t, tt.drawn.Height, drawn.Height, 0.01)
		})
	}
}

func TestViewportRoundTrip(t *testing.T) {
	v := viewport{
		origin:  fyne.NewPos(10, 20),
		drawn:   fyne.NewSize(200, 100),
		display: core.Size{Width: 400, Height: 200},
	}
	assert.True(t, v.valid())

	p := v.toDisplay(fyne.NewPos(60, 45))
	assert.InDelta(t, 100, p.X, 1e-4)
	assert.InDelta(t, 50, p.Y, 1e-4)

	back := v.toWidget(p)
	assert.InDelta(t, 60, back.X, 1e-4)
	assert.InDelta(t, 45, back.Y, 1e-4)

	dx, dy := v.delta(fyne.Delta{DX: 5, DY: -3})
	assert.InDelta(t, 10, dx, 1e-4)
	assert.InDelta(t, -6, dy, 1e-4)
}

func TestViewportHitTesting(t *testing.T) {
	v := viewport{
		drawn:   fyne.NewSize(100, 100),
		display: core.Size{Width: 100, Height: 100},
	}
	region := core.CropRegion{X: 20, Y: 20, Width: 60, Height: 40}

	corner, ok := v.hitCorner(region, fyne.NewPos(78, 62))
	assert.True(t, ok)
	assert.Equal(t, core.BottomRight, corner)

	corner, ok = v.hitCorner(region, fyne.NewPos(22, 18))
	assert.True(t, ok)
	assert.Equal(t, core.TopLeft, corner)

	_, ok = v.hitCorner(region, fyne.NewPos(50, 40))
	assert.False(t, ok)
	assert.True(t, v.inside(region, fyne.NewPos(50, 40)))
	assert.False(t, v.inside(region, fyne.NewPos(5, 5)))

	assert.False(t, viewport{}.valid())
}
