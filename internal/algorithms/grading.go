// Brightness, contrast, saturation and channel balance
package algorithms

import (
	"film-scanner/internal/core"
)

// ColorMatrix is a 3x4 transform over R, G, B in [0,255]:
//
//	[R']   [m0 m1 m2  m3 ]   [R]
//	[G'] = [m4 m5 m6  m7 ] * [G]
//	[B']   [m8 m9 m10 m11]   [B]
//	                         [1]
//
// Alpha is never touched.
type ColorMatrix [12]float64

// IdentityMatrix passes colours through unchanged.
func IdentityMatrix() ColorMatrix {
	return ColorMatrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
}

// BrightnessMatrix scales every channel: 0 = black, 1 = unchanged.
func BrightnessMatrix(factor float64) ColorMatrix {
	return ColorMatrix{
		factor, 0, 0, 0,
		0, factor, 0, 0,
		0, 0, factor, 0,
	}
}

// ContrastMatrix scales around mid-grey: 0 = flat grey, 1 = unchanged.
func ContrastMatrix(factor float64) ColorMatrix {
	offset := 127.5 * (1 - factor)
	return ColorMatrix{
		factor, 0, 0, offset,
		0, factor, 0, offset,
		0, 0, factor, offset,
	}
}

// SaturationMatrix interpolates away from luminance: 0 = grey, 1 = unchanged.
// Weights match the CSS saturate() filter.
func SaturationMatrix(factor float64) ColorMatrix {
	const (
		lumR = 0.213
		lumG = 0.715
		lumB = 0.072
	)
	return ColorMatrix{
		lumR + (1-lumR)*factor, lumG - lumG*factor, lumB - lumB*factor, 0,
		lumR - lumR*factor, lumG + (1-lumG)*factor, lumB - lumB*factor, 0,
		lumR - lumR*factor, lumG - lumG*factor, lumB + (1-lumB)*factor, 0,
	}
}

// ApplyInPlace transforms buf and clamps every sample.
func (m ColorMatrix) ApplyInPlace(buf *core.PixelBuffer) {
	for i := 0; i < len(buf.Pix); i += 4 {
		r := float64(buf.Pix[i])
		g := float64(buf.Pix[i+1])
		b := float64(buf.Pix[i+2])
		buf.Pix[i] = core.ClampByte(m[0]*r + m[1]*g + m[2]*b + m[3])
		buf.Pix[i+1] = core.ClampByte(m[4]*r + m[5]*g + m[6]*b + m[7])
		buf.Pix[i+2] = core.ClampByte(m[8]*r + m[9]*g + m[10]*b + m[11])
	}
}

// Grade applies brightness, contrast and saturation, in that order, each
// clamped before the next. Neutral axes are skipped so all-50 is an exact identity.
func Grade(buf *core.PixelBuffer, params core.AdjustmentParams) (*core.PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	params = params.Clamped()
	if params.NeutralTone() {
		return buf, nil
	}

	out := buf.Clone()
	if params.Brightness != core.ParamNeutral {
		BrightnessMatrix(core.Factor(params.Brightness)).ApplyInPlace(out)
	}
	if params.Contrast != core.ParamNeutral {
		ContrastMatrix(core.Factor(params.Contrast)).ApplyInPlace(out)
	}
	if params.Saturation != core.ParamNeutral {
		SaturationMatrix(core.Factor(params.Saturation)).ApplyInPlace(out)
	}
	return out, nil
}

// ApplyChannelBalance multiplies R, G, B by independent factors, in place.
func ApplyChannelBalance(buf *core.PixelBuffer, factors [3]float64) {
	for i := 0; i < len(buf.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			buf.Pix[i+c] = core.ClampByte(float64(buf.Pix[i+c]) * factors[c])
		}
	}
}

// GradingStage adapts Grade to the Stage interface.
type GradingStage struct{}

// NewGradingStage returns the tone grading stage.
func NewGradingStage() *GradingStage {
	return &GradingStage{}
}

// Apply grades input with the brightness, contrast and saturation sliders.
func (s *GradingStage) Apply(input *core.PixelBuffer, settings core.Settings) (*core.PixelBuffer, error) {
	return Grade(input, settings.Params)
}

// Name returns StageGrading.
func (s *GradingStage) Name() string { return StageGrading }

// Description returns a one-line summary for UIs.
func (s *GradingStage) Description() string {
	return "Global brightness, contrast and saturation"
}

// Parameters lists the three tone sliders.
func (s *GradingStage) Parameters() []ParameterInfo {
	return []ParameterInfo{
		sliderParam("brightness", "Brightness", "0 is black, 50 unchanged, 100 twice as bright"),
		sliderParam("contrast", "Contrast", "0 is flat grey, 50 unchanged, 100 doubled"),
		sliderParam("saturation", "Saturation", "0 is greyscale, 50 unchanged, 100 doubled"),
	}
}
