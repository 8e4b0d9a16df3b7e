// Negative to positive conversion
package algorithms

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"film-scanner/internal/core"
)

// Coefficients holds the empirical constants of the colour negative pipeline.
type Coefficients struct {
	// BaseWeights scale the mean R, G, B into the estimated orange film base.
	BaseWeights [3]float64 `json:"base_weights" yaml:"base_weights" toml:"base_weights"`
	// BaseCompensation is how much of (255 - base) is added back after inversion.
	BaseCompensation float64 `json:"base_compensation" yaml:"base_compensation" toml:"base_compensation"`
	// RedBoost and GreenCut are the multiplicative cast corrections.
	RedBoost float64 `json:"red_boost" yaml:"red_boost" toml:"red_boost"`
	GreenCut float64 `json:"green_cut" yaml:"green_cut" toml:"green_cut"`
	// MagentaCorrection scales (R-G), added to red and taken from green.
	MagentaCorrection float64 `json:"magenta_correction" yaml:"magenta_correction" toml:"magenta_correction"`
}

// DefaultCoefficients is the set used for every parameter-driven recompute.
func DefaultCoefficients() Coefficients {
	return Coefficients{
		BaseWeights:       [3]float64{1.2, 0.9, 0.7},
		BaseCompensation:  0.1,
		RedBoost:          1.1,
		GreenCut:          0.85,
		MagentaCorrection: 0.15,
	}
}

// PreviewCoefficients is the gentler set used for the first preview after capture.
func PreviewCoefficients() Coefficients {
	return Coefficients{
		BaseWeights:       [3]float64{1.2, 0.9, 0.7},
		BaseCompensation:  0.1,
		RedBoost:          1.05,
		GreenCut:          0.9,
		MagentaCorrection: 0.1,
	}
}

// Validate rejects coefficients that would make every output black or NaN.
func (c Coefficients) Validate() error {
	for i, w := range c.BaseWeights {
		if w < 0 {
			return fmt.Errorf("base weight %d must be >= 0, got %v", i, w)
		}
	}
	if c.BaseCompensation < 0 || c.BaseCompensation > 1 {
		return fmt.Errorf("base compensation must be in [0,1], got %v", c.BaseCompensation)
	}
	if c.RedBoost <= 0 || c.GreenCut <= 0 {
		return fmt.Errorf("cast factors must be > 0, got red=%v green=%v", c.RedBoost, c.GreenCut)
	}
	if c.MagentaCorrection < 0 {
		return fmt.Errorf("magenta correction must be >= 0, got %v", c.MagentaCorrection)
	}
	return nil
}

// ConvertOptions are the per-request knobs of the colour negative branch.
type ConvertOptions struct {
	RemoveColorCast bool
	// Balance multiplies R, G, B right after inversion.
	Balance [3]float64
}

var unitBalance = [3]float64{1, 1, 1}

// NeutralOptions returns options with unit balance.
func NeutralOptions(removeColorCast bool) ConvertOptions {
	return ConvertOptions{RemoveColorCast: removeColorCast, Balance: unitBalance}
}

// OptionsFromParams derives conversion options from slider values.
func OptionsFromParams(p core.AdjustmentParams) ConvertOptions {
	if p.NeutralBalance() {
		return NeutralOptions(p.RemoveColorCast)
	}
	return ConvertOptions{RemoveColorCast: p.RemoveColorCast, Balance: p.BalanceFactors()}
}

// NeutralBalance reports whether the balance step can be skipped.
func (o ConvertOptions) NeutralBalance() bool {
	return o.Balance == unitBalance
}

// NegativeEngine converts captured frames into positives according to film type.
type NegativeEngine struct {
	coeff  Coefficients
	logger *logrus.Logger
}

// NewNegativeEngine creates an engine with the given constants.
func NewNegativeEngine(coeff Coefficients, logger *logrus.Logger) *NegativeEngine {
	return &NegativeEngine{coeff: coeff, logger: core.LoggerOrDiscard(logger)}
}

// Coefficients returns the constants the engine was built with.
func (e *NegativeEngine) Coefficients() Coefficients {
	return e.coeff
}

// Convert runs the film-type specific inversion with neutral channel balance.
func (e *NegativeEngine) Convert(buf *core.PixelBuffer, filmType core.FilmType, removeColorCast bool) *core.PixelBuffer {
	return e.ConvertWithOptions(buf, filmType, NeutralOptions(removeColorCast))
}

// ConvertWithOptions never fails: on any fault it logs and returns buf unchanged.
func (e *NegativeEngine) ConvertWithOptions(buf *core.PixelBuffer, filmType core.FilmType, opts ConvertOptions) (out *core.PixelBuffer) {
	if buf == nil || buf.Validate() != nil {
		return buf
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"film_type": filmType.String(),
				"panic":     r,
			}).Error("Negative conversion failed, returning input unchanged")
			out = buf
		}
	}()

	switch filmType {
	case core.Slide:
		return buf
	case core.BlackAndWhite:
		out = buf.Clone()
		InvertMonochrome(out)
		return out
	case core.ColorNegative:
		out = buf.Clone()
		e.convertColorNegative(out, opts)
		return out
	default:
		panic(fmt.Sprintf("unhandled film type %d", int(filmType)))
	}
}

// convertColorNegative runs the five steps in place; each reads the previous step's output.
func (e *NegativeEngine) convertColorNegative(buf *core.PixelBuffer, opts ConvertOptions) {
	base := EstimateFilmBase(buf, e.coeff.BaseWeights)
	InvertWithBase(buf, base, e.coeff.BaseCompensation)

	if !opts.NeutralBalance() {
		ApplyChannelBalance(buf, opts.Balance)
	}

	if opts.RemoveColorCast {
		RemoveColorCast(buf, e.coeff)
	}

	// A flat frame has no white point or range to stretch.
	if IsUniform(buf) {
		return
	}

	AutoWhiteBalance(buf)
	AutoLevels(buf)
}

// EstimateFilmBase weights the per-channel means into the film base colour.
func EstimateFilmBase(buf *core.PixelBuffer, weights [3]float64) [3]float64 {
	var total [3]float64
	for i := 0; i < len(buf.Pix); i += 4 {
		total[0] += float64(buf.Pix[i])
		total[1] += float64(buf.Pix[i+1])
		total[2] += float64(buf.Pix[i+2])
	}

	n := float64(buf.PixelCount())
	var base [3]float64
	for c := 0; c < 3; c++ {
		mean := 0.0
		if n > 0 {
			mean = total[c] / n
		}
		base[c] = min(255, mean*weights[c])
	}
	return base
}

// InvertWithBase computes 255 - v + (255 - base) * compensation per channel.
func InvertWithBase(buf *core.PixelBuffer, base [3]float64, compensation float64) {
	var lift [3]float64
	for c := 0; c < 3; c++ {
		lift[c] = (255 - base[c]) * compensation
	}
	for i := 0; i < len(buf.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			buf.Pix[i+c] = core.ClampByte(255 - float64(buf.Pix[i+c]) + lift[c])
		}
	}
}

// RemoveColorCast boosts red, cuts green, then shifts (R-G)*k from green to red.
func RemoveColorCast(buf *core.PixelBuffer, coeff Coefficients) {
	for i := 0; i < len(buf.Pix); i += 4 {
		r := core.ClampByte(float64(buf.Pix[i]) * coeff.RedBoost)
		g := core.ClampByte(float64(buf.Pix[i+1]) * coeff.GreenCut)

		shift := (float64(r) - float64(g)) * coeff.MagentaCorrection
		buf.Pix[i] = core.ClampByte(float64(r) + shift)
		buf.Pix[i+1] = core.ClampByte(float64(g) - shift)
	}
}

// AutoWhiteBalance scales each channel so the brightest pixel (largest R+G+B,
// first one wins) becomes neutral at its own maximum channel.
func AutoWhiteBalance(buf *core.PixelBuffer) {
	maxSum := 0
	var ref [3]float64
	for i := 0; i < len(buf.Pix); i += 4 {
		sum := int(buf.Pix[i]) + int(buf.Pix[i+1]) + int(buf.Pix[i+2])
		if sum > maxSum {
			maxSum = sum
			ref = [3]float64{float64(buf.Pix[i]), float64(buf.Pix[i+1]), float64(buf.Pix[i+2])}
		}
	}
	if maxSum == 0 {
		return
	}

	peak := max(ref[0], ref[1], ref[2])
	var factor [3]float64
	for c := 0; c < 3; c++ {
		factor[c] = peak / max(1, ref[c])
	}

	for i := 0; i < len(buf.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			buf.Pix[i+c] = core.ClampByte(float64(buf.Pix[i+c]) * factor[c])
		}
	}
}

// ChannelRange returns per-channel min and max over the whole buffer.
func ChannelRange(buf *core.PixelBuffer) (lo, hi [3]uint8) {
	lo = [3]uint8{255, 255, 255}
	for i := 0; i < len(buf.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := buf.Pix[i+c]
			if v < lo[c] {
				lo[c] = v
			}
			if v > hi[c] {
				hi[c] = v
			}
		}
	}
	return lo, hi
}

// AutoLevels stretches each channel's observed [min,max] onto [0,255].
// Channels with max == min are left alone.
func AutoLevels(buf *core.PixelBuffer) {
	lo, hi := ChannelRange(buf)
	for c := 0; c < 3; c++ {
		if hi[c] <= lo[c] {
			continue
		}
		span := float64(hi[c]) - float64(lo[c])
		for i := c; i < len(buf.Pix); i += 4 {
			buf.Pix[i] = core.ClampByte((float64(buf.Pix[i]) - float64(lo[c])) * 255 / span)
		}
	}
}

// IsUniform reports whether every pixel has the same R, G and B.
func IsUniform(buf *core.PixelBuffer) bool {
	lo, hi := ChannelRange(buf)
	return lo == hi
}

// InvertMonochrome replaces every pixel with 255 minus its Rec.601 luma.
func InvertMonochrome(buf *core.PixelBuffer) {
	for i := 0; i < len(buf.Pix); i += 4 {
		luma := 0.299*float64(buf.Pix[i]) + 0.587*float64(buf.Pix[i+1]) + 0.114*float64(buf.Pix[i+2])
		gray := core.ClampByte(255 - luma)
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = gray, gray, gray
	}
}

// NegativeStage adapts NegativeEngine to the Stage interface.
type NegativeStage struct {
	engine *NegativeEngine
}

// NewNegativeStage wraps engine as a render stage.
func NewNegativeStage(engine *NegativeEngine) *NegativeStage {
	return &NegativeStage{engine: engine}
}

// Apply converts input for settings.FilmType using the balance and cast sliders.
func (s *NegativeStage) Apply(input *core.PixelBuffer, settings core.Settings) (*core.PixelBuffer, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return s.engine.ConvertWithOptions(input, settings.FilmType, OptionsFromParams(settings.Params)), nil
}

// Name returns StageNegative.
func (s *NegativeStage) Name() string { return StageNegative }

// Description returns a one-line summary for UIs.
func (s *NegativeStage) Description() string {
	return "Inverts negatives, removes the film base cast, balances and stretches levels"
}

// Parameters lists the film type, the channel balance sliders and the cast toggle.
func (s *NegativeStage) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "film_type",
			Label:       "Film type",
			Type:        "enum",
			Description: "Which inversion to run",
			Options:     []string{core.ColorNegative.String(), core.BlackAndWhite.String(), core.Slide.String()},
		},
		sliderParam("red_balance", "Red", "Red channel multiplier after inversion (colour negative only)"),
		sliderParam("green_balance", "Green", "Green channel multiplier after inversion (colour negative only)"),
		sliderParam("blue_balance", "Blue", "Blue channel multiplier after inversion (colour negative only)"),
		{
			Name:        "remove_color_cast",
			Label:       "Remove color cast",
			Type:        "bool",
			Default:     1,
			Description: "Counter the green cast left by the orange mask",
		},
	}
}
