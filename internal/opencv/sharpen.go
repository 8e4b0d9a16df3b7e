package opencv

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"film-scanner/internal/core"
	"film-scanner/internal/enhance"
)

// Sharpen is the OpenCV backend of the natural-look enhancer: the same
// channel gains and 3x3 kernel, run through Filter2D.
type Sharpen struct {
	Gains  [3]float64
	Kernel [9]float64
}

// NewSharpen uses the default gains and kernel of the arithmetic enhancer.
func NewSharpen() *Sharpen {
	return &Sharpen{Gains: enhance.DefaultGains, Kernel: enhance.SharpenKernel}
}

func (s *Sharpen) Name() string { return "opencv-sharpen" }

func (s *Sharpen) Available() bool { return true }

func (s *Sharpen) Enhance(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := ToMat(buf)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	// Mats are BGR.
	channels := gocv.Split(src)
	defer func() {
		for _, ch := range channels {
			ch.Close()
		}
	}()
	if len(channels) != 3 {
		return nil, fmt.Errorf("expected 3 channels, got %d", len(channels))
	}
	channels[0].MultiplyFloat(float32(s.Gains[2]))
	channels[1].MultiplyFloat(float32(s.Gains[1]))
	channels[2].MultiplyFloat(float32(s.Gains[0]))

	gained := gocv.NewMat()
	defer gained.Close()
	gocv.Merge(channels, &gained)

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for i, v := range s.Kernel {
		kernel.SetFloatAt(i/3, i%3, float32(v))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sharpened := gocv.NewMat()
	defer sharpened.Close()
	err = gocv.Filter2D(gained, &sharpened, -1, kernel, image.Point{X: -1, Y: -1}, 0, gocv.BorderReplicate)
	if err != nil {
		return nil, fmt.Errorf("filter2D failed: %w", err)
	}

	out, err := FromMat(sharpened)
	if err != nil {
		return nil, err
	}
	copyAlpha(out, buf)
	return out, nil
}
