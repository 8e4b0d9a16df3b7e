// Image view with a draggable crop overlay
package gui

import (
	"image"
	"image/color"
	"image/draw"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
	"film-scanner/internal/pipeline"
)

type dragMode int

const (
	dragNone dragMode = iota
	dragMove
	dragCorner
)

var (
	shadeColor  = color.NRGBA{A: 140}
	borderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 230}
	handleColor = color.NRGBA{R: 255, G: 200, B: 40, A: 255}
)

// InteractiveCanvas shows the derived frame and, while cropping, the pending
// region with four corner handles.
type InteractiveCanvas struct {
	widget.BaseWidget

	pipeline *pipeline.Pipeline
	logger   *logrus.Logger

	currentImage  *canvas.Image
	overlayRaster *canvas.Raster
	imageW        int
	imageH        int

	mode   dragMode
	corner core.Corner

	onCropChanged func(core.CropRegion)
}

// NewInteractiveCanvas creates a new interactive canvas
func NewInteractiveCanvas(p *pipeline.Pipeline, logger *logrus.Logger) *InteractiveCanvas {
	ic := &InteractiveCanvas{
		pipeline: p,
		logger:   logger,
	}
	ic.ExtendBaseWidget(ic)
	return ic
}

// CreateRenderer creates the renderer for the interactive canvas
func (ic *InteractiveCanvas) CreateRenderer() fyne.WidgetRenderer {
	ic.currentImage = canvas.NewImageFromImage(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	ic.currentImage.FillMode = canvas.ImageFillContain

	ic.overlayRaster = canvas.NewRaster(ic.createOverlay)

	return &interactiveCanvasRenderer{
		canvas:  ic,
		image:   ic.currentImage,
		overlay: ic.overlayRaster,
	}
}

// SetCropChangedCallback is called after every handle or move gesture.
func (ic *InteractiveCanvas) SetCropChangedCallback(fn func(core.CropRegion)) {
	ic.onCropChanged = fn
}

// UpdateImage swaps the displayed frame.
func (ic *InteractiveCanvas) UpdateImage(img image.Image) {
	if img == nil || ic.currentImage == nil {
		return
	}
	b := img.Bounds()
	ic.imageW, ic.imageH = b.Dx(), b.Dy()
	ic.currentImage.Image = img
	ic.currentImage.Refresh()
	ic.overlayRaster.Refresh()
}

// Clear removes the frame, e.g. after a rescan.
func (ic *InteractiveCanvas) Clear() {
	ic.UpdateImage(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	ic.imageW, ic.imageH = 0, 0
}

// DisplaySize is the on-screen size of the frame, used to open a crop session.
func (ic *InteractiveCanvas) DisplaySize() core.Size {
	_, drawn := fitRect(ic.Size(), ic.imageW, ic.imageH)
	return core.Size{Width: float64(drawn.Width), Height: float64(drawn.Height)}
}

// RefreshOverlay redraws the crop rectangle after an external change.
func (ic *InteractiveCanvas) RefreshOverlay() {
	if ic.overlayRaster != nil {
		ic.overlayRaster.Refresh()
	}
}

func (ic *InteractiveCanvas) viewport() (viewport, core.CropRegion, bool) {
	region, display, ok := ic.pipeline.CropRegion()
	if !ok {
		return viewport{}, core.CropRegion{}, false
	}
	origin, drawn := fitRect(ic.Size(), ic.imageW, ic.imageH)
	v := viewport{origin: origin, drawn: drawn, display: display}
	return v, region, v.valid()
}

// MouseDown picks the gesture: a corner handle, or the region body.
func (ic *InteractiveCanvas) MouseDown(event *desktop.MouseEvent) {
	ic.begin(event.Position)
}

func (ic *InteractiveCanvas) MouseUp(*desktop.MouseEvent) {}

func (ic *InteractiveCanvas) begin(pos fyne.Position) {
	ic.mode = dragNone
	v, region, ok := ic.viewport()
	if !ok {
		return
	}
	if corner, hit := v.hitCorner(region, pos); hit {
		ic.mode, ic.corner = dragCorner, corner
	} else if v.inside(region, pos) {
		ic.mode = dragMove
	}
}

func (ic *InteractiveCanvas) Dragged(event *fyne.DragEvent) {
	if ic.mode == dragNone {
		// Touch drivers deliver no MouseDown.
		ic.begin(event.Position.Subtract(event.Dragged))
	}
	v, _, ok := ic.viewport()
	if !ok || ic.mode == dragNone {
		return
	}

	var (
		region core.CropRegion
		err    error
	)
	switch ic.mode {
	case dragCorner:
		region, err = ic.pipeline.DragCropCorner(ic.corner, v.toDisplay(event.Position))
	case dragMove:
		dx, dy := v.delta(event.Dragged)
		region, err = ic.pipeline.MoveCrop(dx, dy)
	}
	if err != nil {
		ic.logger.WithError(err).Debug("Crop gesture ignored")
		ic.mode = dragNone
		return
	}
	ic.overlayRaster.Refresh()
	if ic.onCropChanged != nil {
		ic.onCropChanged(region)
	}
}

func (ic *InteractiveCanvas) DragEnd() {
	ic.mode = dragNone
}

// createOverlay draws the shaded margin, border and handles in raster pixels.
func (ic *InteractiveCanvas) createOverlay(w, h int) image.Image {
	overlay := image.NewNRGBA(image.Rect(0, 0, w, h))
	v, region, ok := ic.viewport()
	size := ic.Size()
	if !ok || size.Width <= 0 || size.Height <= 0 {
		return overlay
	}
	px := float32(w) / size.Width
	py := float32(h) / size.Height

	topLeft := v.toWidget(core.Point{X: region.X, Y: region.Y})
	bottomRight := v.toWidget(core.Point{X: region.Right(), Y: region.Bottom()})
	rect := image.Rect(
		int(topLeft.X*px), int(topLeft.Y*py),
		int(bottomRight.X*px), int(bottomRight.Y*py),
	)

	draw.Draw(overlay, overlay.Bounds(), image.NewUniform(shadeColor), image.Point{}, draw.Src)
	draw.Draw(overlay, rect, image.Transparent, image.Point{}, draw.Src)
	drawFrame(overlay, rect, 2, borderColor)

	half := int(handleRadius * px / 2)
	for _, c := range corners(region) {
		p := v.toWidget(c)
		cx, cy := int(p.X*px), int(p.Y*py)
		handle := image.Rect(cx-half, cy-half, cx+half, cy+half)
		draw.Draw(overlay, handle, image.NewUniform(handleColor), image.Point{}, draw.Src)
	}
	return overlay
}

func drawFrame(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	fill := image.NewUniform(c)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), fill, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), fill, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), fill, image.Point{}, draw.Src)
}

type interactiveCanvasRenderer struct {
	canvas  *InteractiveCanvas
	image   *canvas.Image
	overlay *canvas.Raster
}

func (r *interactiveCanvasRenderer) Layout(size fyne.Size) {
	r.image.Resize(size)
	r.overlay.Resize(size)
}

func (r *interactiveCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(480, 360)
}

func (r *interactiveCanvasRenderer) Refresh() {
	r.image.Refresh()
	r.overlay.Refresh()
}

func (r *interactiveCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.image, r.overlay}
}

func (r *interactiveCanvasRenderer) Destroy() {}
