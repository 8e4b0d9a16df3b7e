// internal/gui/toolbar.go
// Session and edit actions, enabled according to the pipeline state
package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"film-scanner/internal/pipeline"
)

// ToolbarActions are the handlers behind each button. Nil entries are no-ops.
type ToolbarActions struct {
	Capture     func()
	Open        func()
	Crop        func()
	ConfirmCrop func()
	CancelCrop  func()
	Rotate      func()
	Flip        func()
	Reset       func()
	AutoEnhance func()
	Enhance     func()
	Save        func()
	Rescan      func()
}

type Toolbar struct {
	container *fyne.Container

	captureBtn *widget.Button
	openBtn    *widget.Button
	cropBtn    *widget.Button
	confirmBtn *widget.Button
	cancelBtn  *widget.Button
	rotateBtn  *widget.Button
	flipBtn    *widget.Button
	resetBtn   *widget.Button
	autoBtn    *widget.Button
	enhanceBtn *widget.Button
	saveBtn    *widget.Button
	rescanBtn  *widget.Button

	canEnhance bool
}

func NewToolbar(actions ToolbarActions, canEnhance bool) *Toolbar {
	tb := &Toolbar{canEnhance: canEnhance}

	call := func(fn func()) func() {
		return func() {
			if fn != nil {
				fn()
			}
		}
	}

	tb.captureBtn = widget.NewButtonWithIcon("Capture", theme.MediaPhotoIcon(), call(actions.Capture))
	tb.captureBtn.Importance = widget.HighImportance
	tb.openBtn = widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), call(actions.Open))

	tb.cropBtn = widget.NewButtonWithIcon("Crop", theme.ContentCutIcon(), call(actions.Crop))
	tb.confirmBtn = widget.NewButtonWithIcon("Apply", theme.ConfirmIcon(), call(actions.ConfirmCrop))
	tb.confirmBtn.Importance = widget.SuccessImportance
	tb.cancelBtn = widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), call(actions.CancelCrop))

	tb.rotateBtn = widget.NewButtonWithIcon("Rotate", theme.ViewRefreshIcon(), call(actions.Rotate))
	tb.flipBtn = widget.NewButtonWithIcon("Flip", theme.MoveUpIcon(), call(actions.Flip))
	tb.resetBtn = widget.NewButtonWithIcon("Reset", theme.ContentUndoIcon(), call(actions.Reset))
	tb.autoBtn = widget.NewButtonWithIcon("Auto", theme.ColorPaletteIcon(), call(actions.AutoEnhance))
	tb.enhanceBtn = widget.NewButtonWithIcon("Enhance", theme.ColorChromaticIcon(), call(actions.Enhance))

	tb.saveBtn = widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), call(actions.Save))
	tb.saveBtn.Importance = widget.HighImportance
	tb.rescanBtn = widget.NewButtonWithIcon("Rescan", theme.DeleteIcon(), call(actions.Rescan))

	tb.container = container.NewBorder(nil, nil,
		container.NewHBox(tb.captureBtn, tb.openBtn, widget.NewSeparator(),
			tb.cropBtn, tb.confirmBtn, tb.cancelBtn),
		container.NewHBox(tb.saveBtn, tb.rescanBtn),
		container.NewHBox(tb.rotateBtn, tb.flipBtn, tb.resetBtn, tb.autoBtn, tb.enhanceBtn),
	)
	tb.SetState(pipeline.StateIdle)
	return tb
}

func (tb *Toolbar) GetContainer() fyne.CanvasObject {
	return tb.container
}

// SetState enables exactly the actions the pipeline accepts in state.
func (tb *Toolbar) SetState(state pipeline.State) {
	editing := state.Editing()
	cropping := state == pipeline.StateCropping
	adjusting := editing && !cropping

	setEnabled(tb.captureBtn, state != pipeline.StateCapturing)
	setEnabled(tb.openBtn, state != pipeline.StateCapturing)
	setEnabled(tb.cropBtn, adjusting)
	setEnabled(tb.confirmBtn, cropping)
	setEnabled(tb.cancelBtn, cropping)
	setEnabled(tb.rotateBtn, adjusting)
	setEnabled(tb.flipBtn, adjusting)
	setEnabled(tb.resetBtn, adjusting)
	setEnabled(tb.autoBtn, editing)
	setEnabled(tb.enhanceBtn, adjusting && tb.canEnhance)
	setEnabled(tb.saveBtn, adjusting)
	setEnabled(tb.rescanBtn, editing)
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}
