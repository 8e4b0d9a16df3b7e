package algorithms

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"film-scanner/internal/core"
)

func TestGradeNeutralIsIdentity(t *testing.T) {
	in := gradient(t, 9, 9)
	out, err := Grade(in, core.DefaultParams())
	require.NoError(t, err)
	assert.True(t, out.Equal(in))
}

func TestGradeBrightness(t *testing.T) {
	in := uniform(t, 2, 2, color.NRGBA{R: 100, G: 40, B: 200, A: 77})

	p := core.DefaultParams()
	p.Brightness = 0
	out, err := Grade(in, p)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{A: 77}, out.At(1, 1))

	p.Brightness = 100
	out, err = Grade(in, p)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 200, G: 80, B: 255, A: 77}, out.At(0, 0))

	assert.Equal(t, color.NRGBA{R: 100, G: 40, B: 200, A: 77}, in.At(0, 0), "input must not be mutated")
}

func TestGradeContrastZeroIsFlatGrey(t *testing.T) {
	p := core.DefaultParams()
	p.Contrast = 0
	out, err := Grade(gradient(t, 6, 6), p)
	require.NoError(t, err)
	assert.True(t, out.Equal(uniform(t, 6, 6, color.NRGBA{R: 128, G: 128, B: 128, A: 255})))
}

func TestGradeSaturationZeroIsGreyscale(t *testing.T) {
	p := core.DefaultParams()
	p.Saturation = 0
	out, err := Grade(uniform(t, 1, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255}), p)
	require.NoError(t, err)
	// 0.213*200 + 0.715*100 + 0.072*50 = 117.7
	assert.Equal(t, color.NRGBA{R: 118, G: 118, B: 118, A: 255}, out.At(0, 0))
}

func TestGradeClampsOutOfRangeParams(t *testing.T) {
	in := uniform(t, 1, 1, color.NRGBA{R: 100, G: 100, B: 100, A: 255})

	p := core.DefaultParams()
	p.Brightness = 400
	out, err := Grade(in, p)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), out.At(0, 0).R)

	p.Brightness = -30
	out, err = Grade(in, p)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.At(0, 0).R)
}

func TestSaturationMatrixIdentityAtOne(t *testing.T) {
	m := SaturationMatrix(1)
	for i, v := range IdentityMatrix() {
		assert.InDelta(t, v, m[i], 1e-12)
	}
}

func TestApplyChannelBalance(t *testing.T) {
	buf := uniform(t, 1, 1, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	ApplyChannelBalance(buf, [3]float64{2, 0.5, 3})
	assert.Equal(t, color.NRGBA{R: 200, G: 50, B: 255, A: 255}, buf.At(0, 0))
}
