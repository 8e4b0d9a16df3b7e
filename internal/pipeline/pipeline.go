// Debounced, generation-checked orchestration of the conversion stages
package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/algorithms"
	"film-scanner/internal/capture"
	"film-scanner/internal/config"
	"film-scanner/internal/core"
	"film-scanner/internal/enhance"
	"film-scanner/internal/metrics"
	"film-scanner/internal/storage"
)

// Renderer turns the untouched original into a derived frame.
type Renderer interface {
	Render(ctx context.Context, original *core.PixelBuffer, settings core.Settings) (*core.PixelBuffer, error)
}

// CropSuggester proposes a crop in pixels of the rendered frame.
type CropSuggester interface {
	Detect(buf *core.PixelBuffer) (core.CropRegion, bool, error)
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithRenderer replaces the renderer used for parameter-driven recomputes.
func WithRenderer(r Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithEvaluator replaces the metrics attached to every applied frame.
func WithEvaluator(e *metrics.Evaluator) Option {
	return func(p *Pipeline) { p.evaluator = e }
}

// WithEnhancer sets the optional enhancement backend.
func WithEnhancer(e enhance.Enhancer) Option {
	return func(p *Pipeline) { p.enhancer = e }
}

// WithCropSuggester opens crop sessions on a detected frame when one is found.
func WithCropSuggester(s CropSuggester) Option {
	return func(p *Pipeline) { p.suggester = s }
}

// WithStore enables Save.
func WithStore(s storage.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithDispatcher runs callbacks through fn, e.g. fyne.Do for UI updates.
func WithDispatcher(fn func(func())) Option {
	return func(p *Pipeline) { p.dispatch = fn }
}

// cropSession is the pending region of an open crop, in display units.
type cropSession struct {
	display core.Size
	region  core.CropRegion
}

// Pipeline owns the original and derived frames of one editing session and
// recomputes the derived frame whenever settings change.
//
// Every change bumps a generation id. A recompute tags its result with the
// generation it started from and the result is dropped unless that generation
// is still the latest when it completes.
type Pipeline struct {
	mu        sync.Mutex
	cfg       *config.Config
	logger    *logrus.Logger
	imageData *core.ImageData

	renderer  Renderer
	preview   Renderer
	evaluator *metrics.Evaluator
	enhancer  enhance.Enhancer
	suggester CropSuggester
	store     storage.Store
	dispatch  func(func())

	state    State
	settings core.Settings
	crop     *cropSession
	enhanced bool
	metrics  map[string]float64

	generation uint64
	settled    uint64 // last generation whose recompute finished
	timer      *time.Timer
	debounce   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc

	recomputes atomic.Int64

	// Callbacks receive copies, never the buffers the pipeline holds.
	onUpdate func(preview image.Image, metrics map[string]float64)
	onError  func(error)
	onState  func(State)
}

// New creates an idle pipeline. A nil cfg uses config.Default().
func New(cfg *config.Config, logger *logrus.Logger, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	logger = core.LoggerOrDiscard(logger)

	p := &Pipeline{
		cfg:       cfg,
		logger:    logger,
		imageData: core.NewImageData(),
		evaluator: metrics.NewEvaluator(),
		dispatch:  func(fn func()) { fn() },
		state:     StateIdle,
		settings:  defaultSettings(cfg),
		debounce:  cfg.Debounce(),
	}
	if cfg.Enhancement.Enabled {
		p.enhancer = enhance.NewNatural()
	} else {
		p.enhancer = enhance.Unavailable{}
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.renderer == nil {
		p.renderer = p.newRenderer(cfg.Negative.Edit)
	}
	p.preview = p.newRenderer(cfg.Negative.Preview)

	logger.WithFields(logrus.Fields{
		"debounce":  p.debounce,
		"film_type": p.settings.FilmType.String(),
		"enhancer":  p.enhancerName(),
	}).Debug("PIPELINE: Created")
	return p
}

func (p *Pipeline) newRenderer(c algorithms.Coefficients) *algorithms.Renderer {
	r := algorithms.NewRenderer(algorithms.NewNegativeEngine(c, p.logger), p.logger)
	if p.evaluator != nil {
		r.WithStepMetrics(p.evaluator)
	}
	return r
}

func defaultSettings(cfg *config.Config) core.Settings {
	s := core.DefaultSettings()
	s.FilmType = cfg.DefaultFilmType
	return s
}

// SetCallbacks sets preview update and error callbacks
func (p *Pipeline) SetCallbacks(
	onUpdate func(image.Image, map[string]float64),
	onError func(error),
) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = onUpdate
	p.onError = onError
	p.logger.Debug("PIPELINE: Callbacks set")
}

// SetStateCallback is called after every state transition.
func (p *Pipeline) SetStateCallback(fn func(State)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onState = fn
}

// Capture grabs a frame from src and starts a new session on it. On failure
// the current session, if any, is left untouched.
func (p *Pipeline) Capture(ctx context.Context, src capture.Source) error {
	p.mu.Lock()
	if p.state == StateCapturing {
		p.mu.Unlock()
		return fmt.Errorf("%w: capture already in progress", core.ErrInvalidState)
	}
	previous := p.state
	notify := p.setStateLocked(StateCapturing)
	p.mu.Unlock()
	notify()

	p.logger.Info("PIPELINE: Capturing frame")
	buf, err := src.CaptureFrame(ctx)
	if err != nil {
		p.mu.Lock()
		notify := p.leaveCaptureLocked(previous)
		p.mu.Unlock()
		notify()
		err = fmt.Errorf("capture failed: %w", err)
		p.reportError(err)
		return err
	}
	return p.startSession(ctx, buf, "capture", p.initialSettings(), true)
}

// LoadFrame starts a new session on an already decoded frame.
func (p *Pipeline) LoadFrame(ctx context.Context, buf *core.PixelBuffer, source string) error {
	return p.startSession(ctx, buf, source, p.initialSettings(), true)
}

func (p *Pipeline) initialSettings() core.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Film type carries over between frames of the same roll.
	s := core.DefaultSettings()
	s.FilmType = p.settings.FilmType
	return s
}

// startSession replaces the original and publishes the first derived frame.
// With preview set the lighter capture coefficients are used.
func (p *Pipeline) startSession(ctx context.Context, buf *core.PixelBuffer, source string, settings core.Settings, preview bool) error {
	if err := buf.Validate(); err != nil {
		p.mu.Lock()
		notify := p.leaveCaptureLocked(StateIdle)
		p.mu.Unlock()
		notify()
		err = fmt.Errorf("invalid frame: %w", err)
		p.reportError(err)
		return err
	}

	renderer := p.renderer
	if preview {
		renderer = p.preview
	}
	start := time.Now()
	derived, renderErr := renderer.Render(ctx, buf, settings)
	var metricsMap map[string]float64
	if renderErr == nil {
		metricsMap = p.evaluate(buf, derived, settings.Geometry)
	}

	p.mu.Lock()
	p.stopTimerLocked()
	if p.cancel != nil {
		p.cancel()
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.generation++
	p.settings = settings
	p.crop = nil
	p.enhanced = false

	if err := p.imageData.SetOriginal(buf, source); err != nil {
		notify := p.leaveCaptureLocked(StateIdle)
		p.mu.Unlock()
		notify()
		p.reportError(err)
		return err
	}

	if renderErr == nil {
		if err := p.imageData.SetDerived(derived); err != nil {
			renderErr = err
			metricsMap = nil
		}
	}
	if renderErr != nil {
		// Show the raw capture until a recompute succeeds.
		if err := p.imageData.ResetToOriginal(); err != nil {
			p.logger.WithError(err).Warn("PIPELINE: Could not reset derived frame")
		}
	}
	p.metrics = metricsMap
	gen := p.generation
	p.settled = gen
	notify := p.setStateLocked(StateReady)
	autoEnhance := p.cfg.AutoEnhance
	p.mu.Unlock()
	notify()

	p.logger.WithFields(logrus.Fields{
		"source":    source,
		"width":     buf.Width,
		"height":    buf.Height,
		"film_type": settings.FilmType.String(),
		"duration":  time.Since(start),
	}).Info("PIPELINE: Session started")

	if renderErr != nil {
		p.reportError(fmt.Errorf("initial preview failed: %w", renderErr))
	} else {
		p.publish(derived, metricsMap, gen)
	}

	if autoEnhance {
		return p.AutoEnhance()
	}
	return nil
}

// leaveCaptureLocked ends a capture that produced no frame. The interrupted
// session resumes, and a recompute whose timer fired during the capture is
// scheduled again. A state changed meanwhile, e.g. by Rescan, is kept.
func (p *Pipeline) leaveCaptureLocked(previous State) func() {
	if p.state != StateCapturing {
		return func() {}
	}
	if !p.imageData.HasImage() {
		if previous == StateDiscarded {
			return p.setStateLocked(StateDiscarded)
		}
		return p.setStateLocked(StateIdle)
	}

	next := StateReady
	if p.crop != nil {
		next = StateCropping
	}
	notify := p.setStateLocked(next)
	if p.settled == p.generation {
		return notify
	}
	rearm := p.scheduleLocked("capture_failed", 0)
	return func() {
		notify()
		rearm()
	}
}

// Rescan discards the session and releases both frames.
func (p *Pipeline) Rescan() {
	p.mu.Lock()
	p.stopTimerLocked()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.generation++
	p.imageData.Clear()
	p.crop = nil
	p.enhanced = false
	p.metrics = nil
	p.settings = defaultSettings(p.cfg)
	notify := p.setStateLocked(StateDiscarded)
	p.mu.Unlock()
	notify()

	p.logger.Info("PIPELINE: Session discarded")
}

// Close stops pending work. The pipeline must not be used afterwards.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("PIPELINE: Stopping processing")
	p.stopTimerLocked()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Settings returns a snapshot of the current settings.
func (p *Pipeline) Settings() core.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.settings
	if s.Geometry.Crop != nil {
		c := *s.Geometry.Crop
		s.Geometry.Crop = &c
	}
	return s
}

// Original returns the current original frame. Callers must not mutate it.
func (p *Pipeline) Original() *core.PixelBuffer {
	return p.imageData.Original()
}

// Derived returns the current derived frame. Callers must not mutate it.
func (p *Pipeline) Derived() *core.PixelBuffer {
	return p.imageData.Derived()
}

// Metadata describes the current original frame.
func (p *Pipeline) Metadata() core.ImageMetadata {
	return p.imageData.Metadata()
}

// Metrics returns the metrics of the current derived frame.
func (p *Pipeline) Metrics() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(p.metrics))
	for k, v := range p.metrics {
		out[k] = v
	}
	return out
}

// Enhanced reports whether the derived frame went through the enhancer.
func (p *Pipeline) Enhanced() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enhanced
}

// Generation returns the id of the most recent request.
func (p *Pipeline) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Recomputes counts parameter-driven renders that actually ran.
func (p *Pipeline) Recomputes() int64 {
	return p.recomputes.Load()
}

// EnhancementAvailable is the capability flag checked before offering enhancement.
func (p *Pipeline) EnhancementAvailable() bool {
	return p.enhancer != nil && p.enhancer.Available()
}

func (p *Pipeline) enhancerName() string {
	if p.enhancer == nil {
		return "none"
	}
	return p.enhancer.Name()
}

// setStateLocked records a transition and returns the callback to run once
// the lock is released.
func (p *Pipeline) setStateLocked(next State) func() {
	prev := p.state
	if prev == next {
		return func() {}
	}
	p.state = next
	p.logger.WithFields(logrus.Fields{
		"from": prev.String(),
		"to":   next.String(),
	}).Debug("PIPELINE: State transition")

	if fn := p.onState; fn != nil {
		return func() { p.dispatch(func() { fn(next) }) }
	}
	return func() {}
}

func (p *Pipeline) evaluate(original, derived *core.PixelBuffer, g core.GeometryState) map[string]float64 {
	if p.evaluator == nil {
		return nil
	}
	reference, err := algorithms.Transform(original, g)
	if err != nil {
		reference = original
	}
	return p.evaluator.CalculateAll(reference, derived)
}

// publish hands a frame to the update callback unless a newer request has
// been made since it was applied.
func (p *Pipeline) publish(buf *core.PixelBuffer, metricsMap map[string]float64, gen uint64) {
	p.mu.Lock()
	callback := p.onUpdate
	current := p.generation
	p.mu.Unlock()

	if gen != current {
		return
	}
	if callback == nil {
		p.logger.Debug("PIPELINE: No preview update callback set")
		return
	}
	previewImage := buf.ToImage()
	p.dispatch(func() {
		callback(previewImage, metricsMap)
	})
}

func (p *Pipeline) reportError(err error) {
	p.logger.WithError(err).Warn("PIPELINE: Operation failed")

	p.mu.Lock()
	callback := p.onError
	p.mu.Unlock()
	if callback != nil {
		p.dispatch(func() { callback(err) })
	}
}
