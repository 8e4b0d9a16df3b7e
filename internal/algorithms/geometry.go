// Flip and quarter-turn rotation
package algorithms

import (
	"film-scanner/internal/core"
)

// Rotate90 returns a copy rotated a quarter turn clockwise.
func Rotate90(buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	out, err := core.NewPixelBuffer(buf.Height, buf.Width)
	if err != nil {
		return nil, err
	}
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			src := buf.Offset(x, y)
			dst := out.Offset(buf.Height-1-y, x)
			copy(out.Pix[dst:dst+4], buf.Pix[src:src+4])
		}
	}
	return out, nil
}

// FlipHorizontal returns a copy mirrored left to right.
func FlipHorizontal(buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	out, err := core.NewPixelBuffer(buf.Width, buf.Height)
	if err != nil {
		return nil, err
	}
	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			src := buf.Offset(x, y)
			dst := out.Offset(buf.Width-1-x, y)
			copy(out.Pix[dst:dst+4], buf.Pix[src:src+4])
		}
	}
	return out, nil
}

// Transform applies rotation first, then the flip in the rotated frame.
// The crop region of g is ignored: crops only change pixels on commit.
func Transform(buf *core.PixelBuffer, g core.GeometryState) (*core.PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	out := buf
	var err error
	if g.Rotate90 {
		if out, err = Rotate90(out); err != nil {
			return nil, err
		}
	}
	if g.FlipHorizontal {
		if out, err = FlipHorizontal(out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GeometryStage adapts Transform to the Stage interface.
type GeometryStage struct{}

// NewGeometryStage returns the orientation stage.
func NewGeometryStage() *GeometryStage {
	return &GeometryStage{}
}

// Apply rotates and flips input per settings.Geometry. The crop is ignored.
func (s *GeometryStage) Apply(input *core.PixelBuffer, settings core.Settings) (*core.PixelBuffer, error) {
	return Transform(input, settings.Geometry)
}

// Name returns StageGeometry.
func (s *GeometryStage) Name() string { return StageGeometry }

// Description returns a one-line summary for UIs.
func (s *GeometryStage) Description() string {
	return "Quarter-turn clockwise rotation followed by horizontal flip"
}

// Parameters lists the rotate and flip toggles.
func (s *GeometryStage) Parameters() []ParameterInfo {
	return []ParameterInfo{
		{Name: "rotate_90", Label: "Rotate", Type: "bool", Description: "Rotate 90 degrees clockwise"},
		{Name: "flip_horizontal", Label: "Flip", Type: "bool", Description: "Mirror left to right"},
	}
}
