package metrics

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"film-scanner/internal/core"
)

func uniform(t *testing.T, w, h int, v uint8) *core.PixelBuffer {
	t.Helper()
	buf, err := core.NewUniform(w, h, color.NRGBA{R: v, G: v, B: v, A: 255})
	require.NoError(t, err)
	return buf
}

func checker(t *testing.T, w, h int) *core.PixelBuffer {
	t.Helper()
	buf := uniform(t, w, h, 0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				buf.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}
	return buf
}

func TestPSNRAndMSE(t *testing.T) {
	e := NewEvaluator()
	a := uniform(t, 4, 4, 100)
	b := uniform(t, 4, 4, 110)

	mse, err := e.Calculate(KeyMSE, a, b)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, mse, 1e-9)

	psnr, err := e.Calculate(KeyPSNR, a, b)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(25.5), psnr, 1e-9)

	same, err := e.Calculate(KeyPSNR, a, a.Clone())
	require.NoError(t, err)
	assert.True(t, math.IsInf(same, 1))
}

func TestPairMetricsRejectMismatchedSizes(t *testing.T) {
	e := NewEvaluator()
	_, err := e.Calculate(KeyPSNR, uniform(t, 4, 4, 1), uniform(t, 4, 5, 1))
	assert.Error(t, err)

	all := e.CalculateAll(uniform(t, 4, 4, 1), uniform(t, 4, 5, 1))
	assert.NotContains(t, all, KeyPSNR)
	assert.NotContains(t, all, KeySSIM)
	assert.NotContains(t, all, KeyMSE)
	assert.Contains(t, all, KeyClipping)
	assert.Contains(t, all, KeyMeanLuma)
}

func TestSSIMIdentical(t *testing.T) {
	buf := checker(t, 20, 13)
	v, err := NewSSIM().Calculate(buf, buf.Clone())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)

	inverted := checker(t, 20, 13)
	for i := 0; i < len(inverted.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			inverted.Pix[i+c] = 255 - inverted.Pix[i+c]
		}
	}
	v, err = NewSSIM().Calculate(buf, inverted)
	require.NoError(t, err)
	assert.Less(t, v, 0.0)
}

func TestClipping(t *testing.T) {
	buf := uniform(t, 2, 1, 10)
	buf.Set(0, 0, color.NRGBA{R: 0, G: 10, B: 10, A: 255})

	v, err := NewClipping().Calculate(nil, buf)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)
}

func TestDynamicRange(t *testing.T) {
	v, err := NewDynamicRange().Calculate(nil, uniform(t, 10, 10, 128))
	require.NoError(t, err)
	assert.Zero(t, v)

	half := uniform(t, 10, 10, 0)
	for y := 5; y < 10; y++ {
		for x := 0; x < 10; x++ {
			half.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	v, err = NewDynamicRange().Calculate(nil, half)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)
}

func TestMeanLuma(t *testing.T) {
	v, err := NewMeanLuma().Calculate(nil, uniform(t, 3, 3, 100))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, v, 1e-9)
}

func TestContrastAndSharpnessRatios(t *testing.T) {
	flat := uniform(t, 8, 8, 50)
	sharp := checker(t, 8, 8)

	c, err := NewContrastRatio().Calculate(flat, sharp)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c, "flat input has no contrast to preserve")

	c, err = NewContrastRatio().Calculate(sharp, sharp)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c, 1e-12)

	s, err := NewSharpness().Calculate(sharp, flat)
	require.NoError(t, err)
	assert.Zero(t, s)
}

func TestEvaluateStepKeys(t *testing.T) {
	e := NewEvaluator()
	a := checker(t, 8, 8)

	got := e.EvaluateStep(a, a.Clone(), "grading")
	assert.Contains(t, got, KeyContrastRatio)
	assert.Contains(t, got, KeySSIM)
	assert.NotContains(t, got, KeySharpness)

	got = e.EvaluateStep(a, a.Clone(), "negative")
	assert.Contains(t, got, KeyDynamicRange)
	assert.Contains(t, got, KeyClipping)
}

func TestGenerateReportFlagsClipping(t *testing.T) {
	e := NewEvaluator()
	report := e.GenerateReport(checker(t, 10, 10), checker(t, 10, 10))

	assert.InDelta(t, 1.0, report.Metrics[KeyClipping], 1e-12)
	assert.NotEmpty(t, report.Analysis.Issues)
	assert.NotEmpty(t, report.Timestamp)
	assert.GreaterOrEqual(t, report.OverallScore, 0.0)
	assert.LessOrEqual(t, report.OverallScore, 100.0)
}

func TestGenerateReportDarkImage(t *testing.T) {
	e := NewEvaluator()
	report := e.GenerateReport(uniform(t, 4, 4, 30), uniform(t, 4, 4, 30))
	assert.Contains(t, report.Analysis.Issues, "Image is dark overall")
	assert.Equal(t, "poor", report.Analysis.QualityLevel)
}

func TestMetricInfo(t *testing.T) {
	info := NewEvaluator().GetMetricInfo()
	require.Contains(t, info, KeyClipping)
	assert.False(t, info[KeyClipping].HigherBetter)
	assert.Equal(t, [2]float64{0, 1}, info[KeySSIM].Range)
	assert.Len(t, NewEvaluator().Names(), 8)
}
