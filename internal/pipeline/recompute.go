package pipeline

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
)

// SetParams replaces the slider values and schedules a recompute.
func (p *Pipeline) SetParams(params core.AdjustmentParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	return p.edit("params", true, func(s *core.Settings) { s.Params = params })
}

// SetFilmType switches the inversion branch.
func (p *Pipeline) SetFilmType(ft core.FilmType) error {
	if _, err := ft.MarshalText(); err != nil {
		return err
	}
	return p.edit("film_type", true, func(s *core.Settings) { s.FilmType = ft })
}

// ToggleFlip mirrors the render left to right.
func (p *Pipeline) ToggleFlip() error {
	return p.edit("flip", false, func(s *core.Settings) { s.Geometry.FlipHorizontal = !s.Geometry.FlipHorizontal })
}

// ToggleRotate turns the render a quarter turn clockwise, or back.
func (p *Pipeline) ToggleRotate() error {
	return p.edit("rotate", false, func(s *core.Settings) { s.Geometry.Rotate90 = !s.Geometry.Rotate90 })
}

// ResetAdjustments restores neutral sliders and clears flip and rotation.
func (p *Pipeline) ResetAdjustments() error {
	return p.edit("reset", false, func(s *core.Settings) {
		s.Params = core.DefaultParams()
		s.Geometry.FlipHorizontal = false
		s.Geometry.Rotate90 = false
	})
}

// AutoEnhance applies the auto-enhance slider preset.
func (p *Pipeline) AutoEnhance() error {
	return p.edit("auto_enhance", true, func(s *core.Settings) { s.Params = core.AutoEnhanceParams() })
}

// edit applies fn to the settings and schedules a debounced recompute.
// Geometry edits are refused while a crop is open since the overlay is drawn
// in the current orientation.
func (p *Pipeline) edit(what string, allowWhileCropping bool, fn func(*core.Settings)) error {
	p.mu.Lock()
	if err := p.requireEditingLocked(); err != nil {
		p.mu.Unlock()
		return err
	}
	if p.state == StateCropping && !allowWhileCropping {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s while cropping", core.ErrInvalidState, what)
	}

	fn(&p.settings)
	notify := p.scheduleLocked(what, p.debounce)
	p.mu.Unlock()
	notify()
	return nil
}

func (p *Pipeline) requireEditingLocked() error {
	if !p.imageData.HasImage() {
		return core.ErrNoImage
	}
	if !p.state.Editing() {
		return fmt.Errorf("%w: %s", core.ErrInvalidState, p.state)
	}
	return nil
}

// scheduleLocked bumps the generation and restarts the debounce timer.
// The timer is reset, not extended: only the last change within the window runs.
func (p *Pipeline) scheduleLocked(reason string, delay time.Duration) func() {
	p.generation++
	gen := p.generation

	p.stopTimerLocked()
	p.timer = time.AfterFunc(delay, func() {
		p.recompute(gen)
	})

	p.logger.WithFields(logrus.Fields{
		"reason":     reason,
		"generation": gen,
		"delay_ms":   delay.Milliseconds(),
	}).Debug("PIPELINE: Scheduling recompute")

	if p.state == StateReady {
		return p.setStateLocked(StateRecomputing)
	}
	return func() {}
}

func (p *Pipeline) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// recompute renders the latest settings. It runs to completion even when
// superseded; the result is then dropped rather than applied.
func (p *Pipeline) recompute(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || !p.state.Editing() {
		p.mu.Unlock()
		p.logger.WithField("generation", gen).Debug("PIPELINE: Skipping superseded recompute")
		return
	}
	original := p.imageData.Original()
	settings := p.settings
	settings.Geometry.Crop = nil
	ctx := p.ctx
	p.mu.Unlock()

	p.recomputes.Add(1)
	start := time.Now()
	p.logger.WithFields(logrus.Fields{
		"generation": gen,
		"film_type":  settings.FilmType.String(),
	}).Info("PIPELINE: Starting recompute")

	derived, err := p.renderer.Render(ctx, original, settings)
	var metricsMap map[string]float64
	if err == nil {
		metricsMap = p.evaluate(original, derived, settings.Geometry)
	}

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		p.logger.WithFields(logrus.Fields{
			"generation": gen,
			"duration":   time.Since(start),
		}).Debug("PIPELINE: Dropping stale result")
		return
	}

	if err == nil {
		err = p.imageData.SetDerived(derived)
	}
	if err != nil {
		// Keep the previous derived frame.
		notify := p.finishRecomputeLocked()
		p.mu.Unlock()
		notify()
		p.reportError(fmt.Errorf("recompute failed: %w", err))
		return
	}

	p.enhanced = false
	p.metrics = metricsMap
	notify := p.finishRecomputeLocked()
	p.mu.Unlock()
	notify()

	p.logger.WithFields(logrus.Fields{
		"generation": gen,
		"width":      derived.Width,
		"height":     derived.Height,
		"duration":   time.Since(start),
	}).Info("PIPELINE: Recompute applied")
	p.publish(derived, metricsMap, gen)
}

func (p *Pipeline) finishRecomputeLocked() func() {
	p.settled = p.generation
	if p.state == StateRecomputing {
		return p.setStateLocked(StateReady)
	}
	return func() {}
}
