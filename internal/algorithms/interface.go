// Stage registry for the conversion pipeline
package algorithms

import (
	"fmt"
	"sync"

	"film-scanner/internal/core"
)

// Stage is one step of the render sequence. Apply must not mutate input.
type Stage interface {
	Apply(input *core.PixelBuffer, settings core.Settings) (*core.PixelBuffer, error)
	Name() string
	Description() string
	Parameters() []ParameterInfo
}

// ParameterInfo describes a user-facing control for UI generation
type ParameterInfo struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"` // "int", "bool", "enum"
	Min         int      `json:"min,omitempty"`
	Max         int      `json:"max,omitempty"`
	Default     int      `json:"default"`
	Description string   `json:"description"`
	Options     []string `json:"options,omitempty"` // For enum type
}

// Registered stage names.
const (
	StageGeometry = "geometry"
	StageNegative = "negative"
	StageGrading  = "grading"
)

// DefaultSequence is the order every recompute runs in.
var DefaultSequence = []string{StageGeometry, StageNegative, StageGrading}

var (
	registryMu sync.RWMutex
	stages     = make(map[string]Stage)
)

// Register adds or replaces a stage under its own name.
func Register(stage Stage) {
	registryMu.Lock()
	defer registryMu.Unlock()
	stages[stage.Name()] = stage
}

func Get(name string) (Stage, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	stage, exists := stages[name]
	return stage, exists
}

func IsValidStage(name string) bool {
	_, exists := Get(name)
	return exists
}

// Apply runs a single registered stage.
func Apply(name string, input *core.PixelBuffer, settings core.Settings) (*core.PixelBuffer, error) {
	stage, exists := Get(name)
	if !exists {
		return nil, fmt.Errorf("stage not found: %s", name)
	}
	return stage.Apply(input, settings)
}

// AllParameters lists the controls of every stage in DefaultSequence order.
func AllParameters() []ParameterInfo {
	var params []ParameterInfo
	for _, name := range DefaultSequence {
		if stage, ok := Get(name); ok {
			params = append(params, stage.Parameters()...)
		}
	}
	return params
}

func sliderParam(name, label, description string) ParameterInfo {
	return ParameterInfo{
		Name:        name,
		Label:       label,
		Type:        "int",
		Min:         core.ParamMin,
		Max:         core.ParamMax,
		Default:     core.ParamNeutral,
		Description: description,
	}
}

func init() {
	Register(NewGeometryStage())
	Register(NewNegativeStage(NewNegativeEngine(DefaultCoefficients(), nil)))
	Register(NewGradingStage())
}
