package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/algorithms"
	"film-scanner/internal/core"
)

// EnterCrop opens a crop session over a display of the given size. The
// initial region is the detected frame when a suggester finds one, else the
// configured inset.
func (p *Pipeline) EnterCrop(display core.Size) (core.CropRegion, error) {
	if display.Empty() {
		return core.CropRegion{}, fmt.Errorf("%w: display %vx%v", core.ErrInvalidDimensions, display.Width, display.Height)
	}

	p.mu.Lock()
	if err := p.requireEditingLocked(); err != nil {
		p.mu.Unlock()
		return core.CropRegion{}, err
	}
	if p.state == StateCropping {
		region := p.crop.region
		p.mu.Unlock()
		return region, nil
	}
	derived := p.imageData.Derived()
	p.mu.Unlock()

	region := p.suggestCrop(derived, display)

	p.mu.Lock()
	if err := p.requireEditingLocked(); err != nil {
		p.mu.Unlock()
		return core.CropRegion{}, err
	}
	p.crop = &cropSession{display: display, region: region}
	p.syncCropLocked()
	notify := p.setStateLocked(StateCropping)
	p.mu.Unlock()
	notify()

	p.logger.WithFields(logrus.Fields{
		"display": display,
		"region":  region,
	}).Debug("PIPELINE: Crop session opened")
	return region, nil
}

func (p *Pipeline) suggestCrop(derived *core.PixelBuffer, display core.Size) core.CropRegion {
	fallback := core.DefaultCropRegion(display, p.cfg.CropInset)
	if p.suggester == nil || !p.cfg.Capture.AutoDetect || derived == nil {
		return fallback
	}

	found, ok, err := p.suggester.Detect(derived)
	if err != nil {
		p.logger.WithError(err).Warn("PIPELINE: Frame detection failed")
		return fallback
	}
	if !ok {
		return fallback
	}
	scaled := found.Scale(display.Width/float64(derived.Width), display.Height/float64(derived.Height))
	region, ok := scaled.Clamp(display, float64(p.cfg.MinCropSize))
	if !ok {
		return fallback
	}
	return region
}

// CropRegion returns the pending region and the display it is drawn over.
func (p *Pipeline) CropRegion() (core.CropRegion, core.Size, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.crop == nil {
		return core.CropRegion{}, core.Size{}, false
	}
	return p.crop.region, p.crop.display, true
}

// MoveCrop drags the whole region, keeping its size and staying on the display.
func (p *Pipeline) MoveCrop(dx, dy float64) (core.CropRegion, error) {
	return p.updateCrop(func(c *cropSession) core.CropRegion {
		return c.region.Move(dx, dy, c.display)
	})
}

// DragCropCorner moves one handle, keeping the minimum size between edges.
func (p *Pipeline) DragCropCorner(corner core.Corner, to core.Point) (core.CropRegion, error) {
	return p.updateCrop(func(c *cropSession) core.CropRegion {
		return c.region.DragCorner(corner, to, c.display, float64(p.cfg.MinCropSize))
	})
}

// SetCropRegion replaces the region with one produced by a gesture layer.
// It is clamped to the display; size is only enforced on confirm.
func (p *Pipeline) SetCropRegion(region core.CropRegion) (core.CropRegion, error) {
	return p.updateCrop(func(c *cropSession) core.CropRegion {
		clamped, _ := region.Clamp(c.display, 0)
		return clamped
	})
}

// updateCrop never triggers a recompute: dragging only moves the overlay.
func (p *Pipeline) updateCrop(fn func(*cropSession) core.CropRegion) (core.CropRegion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateCropping || p.crop == nil {
		return core.CropRegion{}, fmt.Errorf("%w: no crop session", core.ErrInvalidState)
	}
	p.crop.region = fn(p.crop)
	p.syncCropLocked()
	return p.crop.region, nil
}

// syncCropLocked mirrors the pending region into the settings, in pixels of
// the unrotated original.
func (p *Pipeline) syncCropLocked() {
	original := p.imageData.Original()
	if p.crop == nil || original == nil {
		p.settings.Geometry.Crop = nil
		return
	}
	src := p.sourceRegionLocked(original)
	p.settings.Geometry.Crop = &src
}

func (p *Pipeline) sourceRegionLocked(original *core.PixelBuffer) core.CropRegion {
	oriented := algorithms.OrientedSize(original.Size(), p.settings.Geometry)
	inOriented := algorithms.MapCropToSource(p.crop.region, oriented, p.crop.display)
	return algorithms.UnorientRegion(inOriented, oriented, p.settings.Geometry)
}

// ConfirmCrop replaces the original with the selected region and recomputes.
// A region under the minimum size is refused and the session stays open.
func (p *Pipeline) ConfirmCrop() error {
	p.mu.Lock()
	if p.state != StateCropping || p.crop == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: no crop session", core.ErrInvalidState)
	}
	original := p.imageData.Original()
	if original == nil {
		p.mu.Unlock()
		return core.ErrNoImage
	}

	src := p.sourceRegionLocked(original)
	cropped, err := algorithms.CommitCrop(original, src, core.Size{}, p.cfg.MinCropSize)
	if err != nil {
		p.mu.Unlock()
		p.logger.WithError(err).Debug("PIPELINE: Crop refused")
		return err
	}
	if err := p.imageData.ReplaceOriginal(cropped); err != nil {
		p.mu.Unlock()
		return err
	}

	p.crop = nil
	p.settings.Geometry.Crop = nil
	ready := p.setStateLocked(StateReady)
	recomputing := p.scheduleLocked("crop", 0)
	p.mu.Unlock()
	ready()
	recomputing()

	p.logger.WithFields(logrus.Fields{
		"region": src,
		"width":  cropped.Width,
		"height": cropped.Height,
	}).Info("PIPELINE: Crop committed")
	return nil
}

// CancelCrop closes the session without touching pixels.
func (p *Pipeline) CancelCrop() error {
	p.mu.Lock()
	if p.state != StateCropping {
		p.mu.Unlock()
		return fmt.Errorf("%w: no crop session", core.ErrInvalidState)
	}
	p.crop = nil
	p.settings.Geometry.Crop = nil
	notify := p.setStateLocked(p.idleEditStateLocked())
	p.mu.Unlock()
	notify()

	p.logger.Debug("PIPELINE: Crop session cancelled")
	return nil
}

// idleEditStateLocked is Recomputing while a scheduled render is outstanding.
func (p *Pipeline) idleEditStateLocked() State {
	if p.settled != p.generation {
		return StateRecomputing
	}
	return StateReady
}
