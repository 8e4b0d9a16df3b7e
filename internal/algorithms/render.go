// Ordered execution of the render stages
package algorithms

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
)

// StepEvaluator measures what a single stage did to the frame.
type StepEvaluator interface {
	EvaluateStep(before, after *core.PixelBuffer, stage string) map[string]float64
}

// Renderer runs stages in order over an untouched original.
type Renderer struct {
	stages []Stage
	steps  StepEvaluator
	logger *logrus.Logger
}

// NewRenderer builds the default geometry, negative, grading sequence around engine.
func NewRenderer(engine *NegativeEngine, logger *logrus.Logger) *Renderer {
	return &Renderer{
		stages: []Stage{NewGeometryStage(), NewNegativeStage(engine), NewGradingStage()},
		logger: core.LoggerOrDiscard(logger),
	}
}

// NewRendererFromRegistry builds a renderer from registered stage names.
func NewRendererFromRegistry(names []string, logger *logrus.Logger) (*Renderer, error) {
	r := &Renderer{logger: core.LoggerOrDiscard(logger)}
	for _, name := range names {
		stage, ok := Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown stage: %s", name)
		}
		r.stages = append(r.stages, stage)
	}
	return r, nil
}

// WithStepMetrics logs per-stage metrics from e at debug level.
func (r *Renderer) WithStepMetrics(e StepEvaluator) *Renderer {
	r.steps = e
	return r
}

// Stages returns the stage names in execution order.
func (r *Renderer) Stages() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name()
	}
	return names
}

// Render produces a new derived buffer. original is only read.
// ctx is checked between stages so a discarded session stops early.
func (r *Renderer) Render(ctx context.Context, original *core.PixelBuffer, settings core.Settings) (*core.PixelBuffer, error) {
	if err := original.Validate(); err != nil {
		return nil, err
	}

	current := original
	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		next, err := stage.Apply(current, settings)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		fields := logrus.Fields{
			"stage":    stage.Name(),
			"width":    next.Width,
			"height":   next.Height,
			"duration": time.Since(start),
		}
		if r.steps != nil && r.logger.IsLevelEnabled(logrus.DebugLevel) {
			for key, value := range r.steps.EvaluateStep(current, next, stage.Name()) {
				fields[key] = value
			}
		}
		r.logger.WithFields(fields).Debug("Stage completed")
		current = next
	}
	return current, nil
}
