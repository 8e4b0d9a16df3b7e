// internal/gui/control_panel.go
// Adjustment controls generated from the stage parameter descriptions
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"film-scanner/internal/algorithms"
	"film-scanner/internal/core"
	"film-scanner/internal/pipeline"
)

var paramSetters = map[string]func(*core.AdjustmentParams, int){
	"brightness":    func(p *core.AdjustmentParams, v int) { p.Brightness = v },
	"contrast":      func(p *core.AdjustmentParams, v int) { p.Contrast = v },
	"saturation":    func(p *core.AdjustmentParams, v int) { p.Saturation = v },
	"red_balance":   func(p *core.AdjustmentParams, v int) { p.RedBalance = v },
	"green_balance": func(p *core.AdjustmentParams, v int) { p.GreenBalance = v },
	"blue_balance":  func(p *core.AdjustmentParams, v int) { p.BlueBalance = v },
}

var paramGetters = map[string]func(core.AdjustmentParams) int{
	"brightness":    func(p core.AdjustmentParams) int { return p.Brightness },
	"contrast":      func(p core.AdjustmentParams) int { return p.Contrast },
	"saturation":    func(p core.AdjustmentParams) int { return p.Saturation },
	"red_balance":   func(p core.AdjustmentParams) int { return p.RedBalance },
	"green_balance": func(p core.AdjustmentParams) int { return p.GreenBalance },
	"blue_balance":  func(p core.AdjustmentParams) int { return p.BlueBalance },
}

type ControlPanel struct {
	pipeline *pipeline.Pipeline
	logger   *logrus.Logger

	container *fyne.Container

	filmSelect *widget.Select
	castCheck  *widget.Check
	sliders    map[string]*widget.Slider
	values     map[string]*widget.Label

	// syncing suppresses OnChanged while widgets are set from the pipeline.
	syncing bool

	onError func(error)
}

func NewControlPanel(p *pipeline.Pipeline, logger *logrus.Logger) *ControlPanel {
	panel := &ControlPanel{
		pipeline: p,
		logger:   logger,
		sliders:  make(map[string]*widget.Slider),
		values:   make(map[string]*widget.Label),
	}
	panel.initializeUI()
	panel.Disable()
	return panel
}

func (cp *ControlPanel) initializeUI() {
	film := container.NewVBox()
	adjustments := container.NewVBox()

	for _, info := range algorithms.AllParameters() {
		switch info.Type {
		case "enum":
			if info.Name != "film_type" {
				continue
			}
			cp.filmSelect = widget.NewSelect(info.Options, cp.filmTypeChanged)
			film.Add(widget.NewLabel(info.Label))
			film.Add(cp.filmSelect)
		case "bool":
			// Geometry toggles live on the toolbar.
			if info.Name != "remove_color_cast" {
				continue
			}
			cp.castCheck = widget.NewCheck(info.Label, func(bool) { cp.paramsChanged() })
			film.Add(cp.castCheck)
		case "int":
			if _, ok := paramSetters[info.Name]; !ok {
				continue
			}
			adjustments.Add(cp.createSlider(info))
		}
	}

	content := container.NewVBox(
		widget.NewCard("Film", "", film),
		widget.NewCard("Adjustments", "", adjustments),
	)
	cp.container = container.NewBorder(nil, nil, nil, nil, container.NewVScroll(content))
	cp.Sync(core.DefaultSettings())
}

func (cp *ControlPanel) createSlider(info algorithms.ParameterInfo) fyne.CanvasObject {
	slider := widget.NewSlider(float64(info.Min), float64(info.Max))
	slider.Step = 1
	value := widget.NewLabel(fmt.Sprintf("%d", info.Default))
	slider.OnChanged = func(v float64) {
		value.SetText(fmt.Sprintf("%.0f", v))
		cp.paramsChanged()
	}
	cp.sliders[info.Name] = slider
	cp.values[info.Name] = value

	header := container.NewBorder(nil, nil, widget.NewLabel(info.Label), value)
	return container.NewVBox(header, slider)
}

func (cp *ControlPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

// SetErrorCallback receives rejected edits.
func (cp *ControlPanel) SetErrorCallback(fn func(error)) {
	cp.onError = fn
}

// Sync shows the given settings without sending them back to the pipeline.
func (cp *ControlPanel) Sync(settings core.Settings) {
	cp.syncing = true
	defer func() { cp.syncing = false }()

	for name, slider := range cp.sliders {
		v := paramGetters[name](settings.Params)
		slider.SetValue(float64(v))
		cp.values[name].SetText(fmt.Sprintf("%d", v))
	}
	if cp.castCheck != nil {
		cp.castCheck.SetChecked(settings.Params.RemoveColorCast)
	}
	if cp.filmSelect != nil {
		cp.filmSelect.SetSelected(settings.FilmType.String())
	}
}

func (cp *ControlPanel) params() core.AdjustmentParams {
	params := core.DefaultParams()
	for name, slider := range cp.sliders {
		paramSetters[name](&params, int(slider.Value))
	}
	if cp.castCheck != nil {
		params.RemoveColorCast = cp.castCheck.Checked
	}
	return params
}

func (cp *ControlPanel) paramsChanged() {
	if cp.syncing {
		return
	}
	cp.report(cp.pipeline.SetParams(cp.params()))
}

func (cp *ControlPanel) filmTypeChanged(selected string) {
	if cp.syncing {
		return
	}
	ft, err := core.ParseFilmType(selected)
	if err != nil {
		cp.report(err)
		return
	}
	cp.report(cp.pipeline.SetFilmType(ft))
}

func (cp *ControlPanel) report(err error) {
	if err == nil {
		return
	}
	cp.logger.WithError(err).Debug("Adjustment rejected")
	if cp.onError != nil {
		cp.onError(err)
	}
}

func (cp *ControlPanel) Enable() {
	for _, s := range cp.sliders {
		s.Enable()
	}
	cp.castCheck.Enable()
	cp.filmSelect.Enable()
}

func (cp *ControlPanel) Disable() {
	for _, s := range cp.sliders {
		s.Disable()
	}
	cp.castCheck.Disable()
	cp.filmSelect.Disable()
}
