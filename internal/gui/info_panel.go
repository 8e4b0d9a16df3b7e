// internal/gui/info_panel.go
// Session status and quality metrics of the current frame
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"film-scanner/internal/core"
	"film-scanner/internal/metrics"
	"film-scanner/internal/pipeline"
)

// InfoPanel provides the right panel with status and metrics
type InfoPanel struct {
	container *fyne.Container

	stateLabel  *widget.Label
	sourceLabel *widget.Label
	statusLabel *widget.Label

	metricsContent *fyne.Container
	metricInfo     map[string]metrics.MetricInfo
	metricOrder    []string
}

func NewInfoPanel(evaluator *metrics.Evaluator) *InfoPanel {
	panel := &InfoPanel{
		stateLabel:     widget.NewLabel(pipeline.StateIdle.String()),
		sourceLabel:    widget.NewLabel("No frame"),
		statusLabel:    widget.NewLabel("Capture or open a negative to begin"),
		metricsContent: container.NewVBox(),
		metricInfo:     evaluator.GetMetricInfo(),
		metricOrder:    evaluator.Names(),
	}
	panel.statusLabel.Wrapping = fyne.TextWrapWord

	session := container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("State:"), nil, panel.stateLabel),
		panel.sourceLabel,
		panel.statusLabel,
	)
	scroll := container.NewVScroll(container.NewVBox(
		widget.NewCard("Session", "", session),
		widget.NewCard("Quality Metrics", "", panel.metricsContent),
	))
	scroll.SetMinSize(fyne.NewSize(260, 400))
	panel.container = container.NewBorder(nil, nil, nil, nil, scroll)
	return panel
}

func (ip *InfoPanel) GetContainer() fyne.CanvasObject {
	return ip.container
}

func (ip *InfoPanel) SetState(state pipeline.State) {
	ip.stateLabel.SetText(state.String())
}

func (ip *InfoPanel) SetSource(meta core.ImageMetadata) {
	ip.sourceLabel.SetText(fmt.Sprintf("%s  %d×%d", meta.Source, meta.Width, meta.Height))
}

func (ip *InfoPanel) SetStatus(message string) {
	ip.statusLabel.SetText(message)
}

func (ip *InfoPanel) UpdateMetrics(values map[string]float64) {
	ip.metricsContent.RemoveAll()
	if len(values) == 0 {
		ip.metricsContent.Add(widget.NewLabel("No metrics"))
		return
	}

	for _, name := range ip.metricOrder {
		if _, ok := values[name]; !ok {
			continue
		}
		label := name
		if info, ok := ip.metricInfo[name]; ok {
			label = info.Name
		}
		ip.metricsContent.Add(container.NewBorder(nil, nil,
			widget.NewLabel(label), widget.NewLabel(fmt.Sprintf("%.3f", values[name]))))
	}
}

func (ip *InfoPanel) Clear() {
	ip.sourceLabel.SetText("No frame")
	ip.metricsContent.RemoveAll()
}
