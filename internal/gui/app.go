// Main window wiring the scan pipeline to its controls
package gui

import (
	"context"
	"errors"
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"film-scanner/internal/capture"
	"film-scanner/internal/core"
	"film-scanner/internal/io"
	"film-scanner/internal/metrics"
	"film-scanner/internal/pipeline"
	"film-scanner/internal/storage"
)

// Options are the collaborators built by the caller. Pipeline must have been
// created with pipeline.WithDispatcher(fyne.Do).
type Options struct {
	Pipeline  *pipeline.Pipeline
	Evaluator *metrics.Evaluator
	Store     storage.Store
	Source    capture.Source
	Watch     *capture.WatchSource
	Logger    *logrus.Logger
}

// Application represents the main scanner window
type Application struct {
	app    fyne.App
	window fyne.Window
	logger *logrus.Logger

	pipeline *pipeline.Pipeline
	store    storage.Store
	source   capture.Source
	watch    *capture.WatchSource
	loader   *io.ImageLoader

	canvas      *InteractiveCanvas
	toolbar     *Toolbar
	controls    *ControlPanel
	info        *InfoPanel
	menuHandler *MenuHandler

	ctx    context.Context
	cancel context.CancelFunc
}

func NewApplication(app fyne.App, opts Options) *Application {
	window := app.NewWindow("Film Scanner")
	window.Resize(fyne.NewSize(1400, 900))
	window.CenterOnScreen()

	logger := opts.Logger
	if logger == nil {
		logger = core.LoggerOrDiscard(nil)
	}
	evaluator := opts.Evaluator
	if evaluator == nil {
		evaluator = metrics.NewEvaluator()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Application{
		app:      app,
		window:   window,
		logger:   logger,
		pipeline: opts.Pipeline,
		store:    opts.Store,
		source:   opts.Source,
		watch:    opts.Watch,
		loader:   io.NewImageLoader(logger),
		ctx:      ctx,
		cancel:   cancel,
	}

	a.initializeGUI(evaluator)
	a.setupLayout()
	a.setupCallbacks()
	return a
}

func (a *Application) initializeGUI(evaluator *metrics.Evaluator) {
	a.canvas = NewInteractiveCanvas(a.pipeline, a.logger)
	a.controls = NewControlPanel(a.pipeline, a.logger)
	a.info = NewInfoPanel(evaluator)
	a.menuHandler = NewMenuHandler(a.window, a.pipeline, a.store, a.loader, a.logger)
	a.toolbar = NewToolbar(ToolbarActions{
		Capture:     a.capture,
		Open:        a.menuHandler.OpenImage,
		Crop:        a.enterCrop,
		ConfirmCrop: func() { a.handle("Crop", a.pipeline.ConfirmCrop()) },
		CancelCrop:  func() { a.handle("Crop", a.pipeline.CancelCrop()) },
		Rotate:      func() { a.handle("Rotate", a.pipeline.ToggleRotate()) },
		Flip:        func() { a.handle("Flip", a.pipeline.ToggleFlip()) },
		Reset:       a.reset,
		AutoEnhance: a.autoEnhance,
		Enhance:     a.enhance,
		Save:        a.save,
		Rescan:      a.rescan,
	}, a.pipeline.EnhancementAvailable())
}

func (a *Application) setupLayout() {
	center := container.NewBorder(
		container.NewVBox(a.toolbar.GetContainer(), widget.NewSeparator()),
		nil, nil, nil,
		container.NewPadded(a.canvas),
	)

	centerAndRight := container.NewHSplit(center, a.info.GetContainer())
	centerAndRight.SetOffset(0.78)

	content := container.NewHSplit(a.controls.GetContainer(), centerAndRight)
	content.SetOffset(0.22)

	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	// The pipeline dispatches these through fyne.Do.
	a.pipeline.SetCallbacks(
		func(img image.Image, values map[string]float64) {
			a.canvas.UpdateImage(img)
			a.info.UpdateMetrics(values)
			a.info.SetSource(a.pipeline.Metadata())
		},
		func(err error) {
			a.showError("Processing Error", err)
		},
	)
	a.pipeline.SetStateCallback(a.stateChanged)

	a.controls.SetErrorCallback(func(err error) {
		a.info.SetStatus(err.Error())
	})
	a.canvas.SetCropChangedCallback(func(r core.CropRegion) {
		a.info.SetStatus(fmt.Sprintf("Crop %.0f×%.0f at %.0f,%.0f", r.Width, r.Height, r.X, r.Y))
	})
	a.menuHandler.SetCallbacks(a.showError, a.info.SetStatus, a.quit)
}

func (a *Application) stateChanged(state pipeline.State) {
	a.toolbar.SetState(state)
	a.info.SetState(state)
	a.canvas.RefreshOverlay()

	switch {
	case state.Editing():
		a.controls.Sync(a.pipeline.Settings())
		a.controls.Enable()
	case state == pipeline.StateDiscarded, state == pipeline.StateIdle:
		a.controls.Sync(a.pipeline.Settings())
		a.controls.Disable()
		a.canvas.Clear()
		a.info.Clear()
	default:
		a.controls.Disable()
	}
}

func (a *Application) capture() {
	if a.source == nil {
		a.showError("Capture", errors.New("no capture source configured"))
		return
	}
	a.info.SetStatus("Capturing...")
	go func() {
		// Failures are reported through the pipeline error callback.
		_ = a.pipeline.Capture(a.ctx, a.source)
	}()
}

func (a *Application) enterCrop() {
	display := a.canvas.DisplaySize()
	region, err := a.pipeline.EnterCrop(display)
	if err != nil {
		a.handle("Crop", err)
		return
	}
	a.canvas.RefreshOverlay()
	a.info.SetStatus(fmt.Sprintf("Drag the corners, then apply. Crop %.0f×%.0f", region.Width, region.Height))
}

func (a *Application) reset() {
	if err := a.pipeline.ResetAdjustments(); err != nil {
		a.handle("Reset", err)
		return
	}
	a.controls.Sync(a.pipeline.Settings())
}

func (a *Application) autoEnhance() {
	if err := a.pipeline.AutoEnhance(); err != nil {
		a.handle("Auto Enhance", err)
		return
	}
	a.controls.Sync(a.pipeline.Settings())
	a.info.SetStatus("Auto enhance applied")
}

func (a *Application) enhance() {
	a.info.SetStatus("Enhancing...")
	go func() {
		applied, err := a.pipeline.Enhance(a.ctx)
		fyne.Do(func() {
			switch {
			case err != nil:
				a.info.SetStatus(fmt.Sprintf("Enhancement skipped: %v", err))
			case applied:
				a.info.SetStatus("Enhancement applied")
			default:
				a.info.SetStatus("Enhancement superseded by a newer edit")
			}
		})
	}()
}

func (a *Application) save() {
	title := widget.NewEntry()
	title.SetPlaceHolder("Film Scan")
	dialog.ShowForm("Save Scan", "Save", "Cancel",
		[]*widget.FormItem{widget.NewFormItem("Title", title)},
		func(ok bool) {
			if !ok {
				return
			}
			go func() {
				id, err := a.pipeline.Save(a.ctx, title.Text)
				fyne.Do(func() {
					if err != nil {
						a.showError("Save Failed", err)
						return
					}
					a.info.SetStatus(fmt.Sprintf("Saved scan %s", id))
				})
			}()
		}, a.window)
}

func (a *Application) rescan() {
	dialog.ShowConfirm("Rescan", "Discard the current frame and all edits?", func(ok bool) {
		if ok {
			a.pipeline.Rescan()
		}
	}, a.window)
}

// watchFolder loads every frame dropped into the watched folder.
func (a *Application) watchFolder() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case f := <-a.watch.Frames():
			if f.Err != nil {
				fyne.Do(func() { a.showError("Watched Frame", f.Err) })
				continue
			}
			if err := a.pipeline.LoadFrame(a.ctx, f.Buffer, f.Path); err == nil {
				fyne.Do(func() { a.info.SetStatus(fmt.Sprintf("Loaded: %s", f.Path)) })
			}
		}
	}
}

// handle reports an edit the pipeline refused. Missing-image errors are
// expected while the toolbar catches up and only go to the status line.
func (a *Application) handle(action string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, core.ErrNoImage) || errors.Is(err, core.ErrInvalidState) || errors.Is(err, core.ErrCropTooSmall) {
		a.info.SetStatus(fmt.Sprintf("%s: %v", action, err))
		return
	}
	a.showError(action, err)
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main scanner window")

	if a.watch != nil {
		go a.watchFolder()
	}
	a.window.SetCloseIntercept(a.quit)
	a.window.ShowAndRun()
}

func (a *Application) quit() {
	a.cleanup()
	a.app.Quit()
}

func (a *Application) cleanup() {
	a.logger.Info("Cleaning up application resources")
	a.cancel()
	a.pipeline.Close()
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.WithError(err).Warn("Closing capture source failed")
		}
	}
	if a.watch != nil {
		if err := a.watch.Close(); err != nil {
			a.logger.WithError(err).Warn("Closing folder watch failed")
		}
	}
}

func (a *Application) showError(title string, err error) {
	a.logger.WithError(err).Error(title)
	dialog.ShowError(err, a.window)
	a.info.SetStatus(fmt.Sprintf("Error: %v", err))
}
