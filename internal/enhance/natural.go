package enhance

import (
	"context"

	"film-scanner/internal/core"
)

// SharpenKernel is the 3x3 kernel used after the channel gains.
var SharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

// DefaultGains tilt colour slightly warm before sharpening.
var DefaultGains = [3]float64{1.1, 0.95, 1.05}

// Natural is a fixed arithmetic "natural look": per-channel gains then a
// mild sharpen. It is not a learned model.
type Natural struct {
	Gains  [3]float64
	Kernel [9]float64
}

// NewNatural returns the enhancer with the default gains and kernel.
func NewNatural() *Natural {
	return &Natural{Gains: DefaultGains, Kernel: SharpenKernel}
}

func (n *Natural) Name() string { return "natural" }

func (n *Natural) Available() bool { return true }

// Enhance never mutates buf. The context is checked once per row.
func (n *Natural) Enhance(ctx context.Context, buf *core.PixelBuffer) (*core.PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	gained := buf.Clone()
	for i := 0; i < len(gained.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			gained.Pix[i+c] = core.ClampByte(float64(gained.Pix[i+c]) * n.Gains[c])
		}
	}
	return Convolve3x3(ctx, gained, n.Kernel)
}

// Convolve3x3 filters RGB with edge replication, leaving alpha untouched.
func Convolve3x3(ctx context.Context, buf *core.PixelBuffer, k [9]float64) (*core.PixelBuffer, error) {
	out, err := core.NewPixelBuffer(buf.Width, buf.Height)
	if err != nil {
		return nil, err
	}

	w, h := buf.Width, buf.Height
	for y := 0; y < h; y++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			var sum [3]float64
			for ky := -1; ky <= 1; ky++ {
				sy := clampIndex(y+ky, h)
				for kx := -1; kx <= 1; kx++ {
					weight := k[(ky+1)*3+(kx+1)]
					if weight == 0 {
						continue
					}
					off := buf.Offset(clampIndex(x+kx, w), sy)
					sum[0] += weight * float64(buf.Pix[off])
					sum[1] += weight * float64(buf.Pix[off+1])
					sum[2] += weight * float64(buf.Pix[off+2])
				}
			}
			off := buf.Offset(x, y)
			out.Pix[off] = core.ClampByte(sum[0])
			out.Pix[off+1] = core.ClampByte(sum[1])
			out.Pix[off+2] = core.ClampByte(sum[2])
			out.Pix[off+3] = buf.Pix[off+3]
		}
	}
	return out, nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
