package algorithms

import (
	"context"
	"image/color"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"film-scanner/internal/core"
)

func TestRendererDefaultOrder(t *testing.T) {
	r := NewRenderer(NewNegativeEngine(DefaultCoefficients(), nil), nil)
	assert.Equal(t, DefaultSequence, r.Stages())

	fromRegistry, err := NewRendererFromRegistry(DefaultSequence, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultSequence, fromRegistry.Stages())

	_, err = NewRendererFromRegistry([]string{"sharpen"}, nil)
	assert.Error(t, err)
}

type stepRecorder struct {
	stages []string
}

func (s *stepRecorder) EvaluateStep(before, after *core.PixelBuffer, stage string) map[string]float64 {
	s.stages = append(s.stages, stage)
	return map[string]float64{"width_delta": float64(after.Width - before.Width)}
}

func TestRenderStepMetricsOnlyAtDebug(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.InfoLevel)

	steps := &stepRecorder{}
	r := NewRenderer(NewNegativeEngine(DefaultCoefficients(), nil), logger).WithStepMetrics(steps)
	_, err := r.Render(context.Background(), gradient(t, 8, 5), core.DefaultSettings())
	require.NoError(t, err)
	assert.Empty(t, steps.stages)

	logger.SetLevel(logrus.DebugLevel)
	_, err = r.Render(context.Background(), gradient(t, 8, 5), core.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, DefaultSequence, steps.stages)
}

func TestRenderSlideNeutralIsIdentity(t *testing.T) {
	r := NewRenderer(NewNegativeEngine(DefaultCoefficients(), nil), nil)
	in := gradient(t, 8, 5)

	settings := core.DefaultSettings()
	settings.FilmType = core.Slide
	out, err := r.Render(context.Background(), in, settings)
	require.NoError(t, err)
	assert.True(t, out.Equal(in))
}

func TestRenderLeavesOriginalUntouched(t *testing.T) {
	r := NewRenderer(NewNegativeEngine(DefaultCoefficients(), nil), nil)
	in := gradient(t, 8, 5)
	before := in.Clone()

	settings := core.DefaultSettings()
	settings.Geometry.Rotate90 = true
	settings.Params.Brightness = 70
	out, err := r.Render(context.Background(), in, settings)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Width)
	assert.Equal(t, 8, out.Height)
	assert.True(t, in.Equal(before))
}

func TestRenderMatchesManualComposition(t *testing.T) {
	engine := NewNegativeEngine(DefaultCoefficients(), nil)
	r := NewRenderer(engine, nil)
	in := gradient(t, 6, 4)

	settings := core.DefaultSettings()
	settings.Geometry.FlipHorizontal = true
	settings.Params.Contrast = 60
	settings.Params.RedBalance = 55

	flipped, err := FlipHorizontal(in)
	require.NoError(t, err)
	converted := engine.ConvertWithOptions(flipped, core.ColorNegative, OptionsFromParams(settings.Params))
	want, err := Grade(converted, settings.Params)
	require.NoError(t, err)

	got, err := r.Render(context.Background(), in, settings)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
}

func TestRenderCancelled(t *testing.T) {
	r := NewRenderer(NewNegativeEngine(DefaultCoefficients(), nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Render(ctx, uniform(t, 2, 2, color.NRGBA{A: 255}), core.DefaultSettings())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderNoImage(t *testing.T) {
	r := NewRenderer(NewNegativeEngine(DefaultCoefficients(), nil), nil)
	_, err := r.Render(context.Background(), nil, core.DefaultSettings())
	assert.ErrorIs(t, err, core.ErrNoImage)
}

func TestAllParametersCoverEverySlider(t *testing.T) {
	names := map[string]bool{}
	for _, p := range AllParameters() {
		names[p.Name] = true
	}
	for _, want := range []string{"brightness", "contrast", "saturation", "red_balance", "green_balance", "blue_balance", "film_type", "rotate_90", "flip_horizontal"} {
		assert.True(t, names[want], want)
	}
}
