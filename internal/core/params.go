// Editing parameters snapshotted on every recompute request
package core

import (
	"fmt"
	"strings"
)

// FilmType selects which inversion formula runs, if any.
type FilmType int

const (
	ColorNegative FilmType = iota
	BlackAndWhite
	Slide
)

var filmTypeNames = map[FilmType]string{
	ColorNegative: "color-negative",
	BlackAndWhite: "black-white",
	Slide:         "slide",
}

func (f FilmType) String() string {
	if name, ok := filmTypeNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FilmType(%d)", int(f))
}

// Inverts reports whether frames of this film type are negatives.
func (f FilmType) Inverts() bool {
	return f == ColorNegative || f == BlackAndWhite
}

// ParseFilmType accepts the canonical names plus a few common aliases.
func ParseFilmType(s string) (FilmType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "color-negative", "colour-negative", "c41", "c-41", "negative", "color":
		return ColorNegative, nil
	case "black-white", "bw", "b&w", "blackandwhite", "monochrome":
		return BlackAndWhite, nil
	case "slide", "positive", "e6", "e-6":
		return Slide, nil
	}
	return ColorNegative, fmt.Errorf("unknown film type %q", s)
}

func (f FilmType) MarshalText() ([]byte, error) {
	if _, ok := filmTypeNames[f]; !ok {
		return nil, fmt.Errorf("unknown film type %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *FilmType) UnmarshalText(text []byte) error {
	parsed, err := ParseFilmType(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Slider bounds shared by every adjustment. Neutral maps to a factor of 1.0.
const (
	ParamMin     = 0
	ParamMax     = 100
	ParamNeutral = 50
)

// AdjustmentParams is the immutable snapshot a recompute renders from.
type AdjustmentParams struct {
	Brightness      int  `json:"brightness" yaml:"brightness" toml:"brightness"`
	Contrast        int  `json:"contrast" yaml:"contrast" toml:"contrast"`
	Saturation      int  `json:"saturation" yaml:"saturation" toml:"saturation"`
	RedBalance      int  `json:"redBalance" yaml:"red_balance" toml:"red_balance"`
	GreenBalance    int  `json:"greenBalance" yaml:"green_balance" toml:"green_balance"`
	BlueBalance     int  `json:"blueBalance" yaml:"blue_balance" toml:"blue_balance"`
	RemoveColorCast bool `json:"removeColorCast" yaml:"remove_color_cast" toml:"remove_color_cast"`
}

// DefaultParams returns neutral sliders with cast removal enabled.
func DefaultParams() AdjustmentParams {
	return AdjustmentParams{
		Brightness:      ParamNeutral,
		Contrast:        ParamNeutral,
		Saturation:      ParamNeutral,
		RedBalance:      ParamNeutral,
		GreenBalance:    ParamNeutral,
		BlueBalance:     ParamNeutral,
		RemoveColorCast: true,
	}
}

// AutoEnhanceParams is the one-tap preset tuned for colour negatives:
// warmer red, less green, more punch.
func AutoEnhanceParams() AdjustmentParams {
	return AdjustmentParams{
		Brightness:      60,
		Contrast:        65,
		Saturation:      60,
		RedBalance:      55,
		GreenBalance:    45,
		BlueBalance:     50,
		RemoveColorCast: true,
	}
}

// Factor converts a slider value to its multiplier: 50 is 1.0, 0 is 0.0, 100 is 2.0.
func Factor(v int) float64 {
	return float64(v) / ParamNeutral
}

// BalanceFactors returns the R, G, B channel multipliers.
func (p AdjustmentParams) BalanceFactors() [3]float64 {
	return [3]float64{Factor(p.RedBalance), Factor(p.GreenBalance), Factor(p.BlueBalance)}
}

// NeutralBalance reports whether channel balance is a no-op.
func (p AdjustmentParams) NeutralBalance() bool {
	return p.RedBalance == ParamNeutral && p.GreenBalance == ParamNeutral && p.BlueBalance == ParamNeutral
}

// NeutralTone reports whether brightness, contrast and saturation are no-ops.
func (p AdjustmentParams) NeutralTone() bool {
	return p.Brightness == ParamNeutral && p.Contrast == ParamNeutral && p.Saturation == ParamNeutral
}

// Clamped returns a copy with every slider forced into [ParamMin, ParamMax].
func (p AdjustmentParams) Clamped() AdjustmentParams {
	clamp := func(v int) int {
		if v < ParamMin {
			return ParamMin
		}
		if v > ParamMax {
			return ParamMax
		}
		return v
	}
	p.Brightness = clamp(p.Brightness)
	p.Contrast = clamp(p.Contrast)
	p.Saturation = clamp(p.Saturation)
	p.RedBalance = clamp(p.RedBalance)
	p.GreenBalance = clamp(p.GreenBalance)
	p.BlueBalance = clamp(p.BlueBalance)
	return p
}

// Validate rejects sliders outside [ParamMin, ParamMax].
func (p AdjustmentParams) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"brightness", p.Brightness},
		{"contrast", p.Contrast},
		{"saturation", p.Saturation},
		{"red_balance", p.RedBalance},
		{"green_balance", p.GreenBalance},
		{"blue_balance", p.BlueBalance},
	}
	for _, f := range fields {
		if f.value < ParamMin || f.value > ParamMax {
			return fmt.Errorf("%s must be in [%d,%d], got %d", f.name, ParamMin, ParamMax, f.value)
		}
	}
	return nil
}

// GeometryState describes orientation edits applied on every render.
// Crop is only set while a crop session is open; it never alters pixels
// until the crop is committed.
type GeometryState struct {
	FlipHorizontal bool
	Rotate90       bool
	Crop           *CropRegion
}

// Settings bundles everything a render depends on.
type Settings struct {
	FilmType FilmType
	Params   AdjustmentParams
	Geometry GeometryState
}

// DefaultSettings returns colour negative with neutral sliders and no geometry edits.
func DefaultSettings() Settings {
	return Settings{FilmType: ColorNegative, Params: DefaultParams()}
}
