package metrics

import (
	"fmt"
	"math"

	"film-scanner/internal/core"
)

// Rec.601 weights, the same ones black and white inversion uses.
func lumaPlane(buf *core.PixelBuffer) []float64 {
	out := make([]float64, buf.PixelCount())
	for i, j := 0, 0; i < len(buf.Pix); i, j = i+4, j+1 {
		out[j] = 0.299*float64(buf.Pix[i]) + 0.587*float64(buf.Pix[i+1]) + 0.114*float64(buf.Pix[i+2])
	}
	return out
}

func checkPair(original, processed *core.PixelBuffer) error {
	if original.Validate() != nil || processed.Validate() != nil {
		return fmt.Errorf("empty images")
	}
	if original.Width != processed.Width || original.Height != processed.Height {
		return fmt.Errorf("image dimensions mismatch")
	}
	return nil
}

func meanSquaredError(a, b *core.PixelBuffer) float64 {
	sum := 0.0
	for i := 0; i < len(a.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			d := float64(a.Pix[i+c]) - float64(b.Pix[i+c])
			sum += d * d
		}
	}
	return sum / float64(3*a.PixelCount())
}

func meanVariance(v []float64) (mean, variance float64) {
	if len(v) == 0 {
		return 0, 0
	}
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))
	for _, x := range v {
		variance += (x - mean) * (x - mean)
	}
	return mean, variance / float64(len(v))
}

// PSNR implements Peak Signal-to-Noise Ratio over R, G and B
type PSNR struct{}

// NewPSNR creates a new PSNR metric
func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed *core.PixelBuffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}
	mse := meanSquaredError(original, processed)
	if mse == 0 {
		return math.Inf(1), nil
	}
	return 20 * math.Log10(255/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string { return "PSNR" }

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio between input and output"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100
}

func (p *PSNR) IsHigherBetter() bool { return true }

// MSE implements mean squared error over R, G and B
type MSE struct{}

// NewMSE creates a new MSE metric
func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed *core.PixelBuffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}
	return meanSquaredError(original, processed), nil
}

func (m *MSE) GetName() string { return "MSE" }

func (m *MSE) GetDescription() string {
	return "Mean Squared Error between images"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, 65025 // 255^2
}

func (m *MSE) IsHigherBetter() bool { return false }

// SSIM averages the structural similarity of non-overlapping 8x8 luma blocks
type SSIM struct{}

// NewSSIM creates a new SSIM metric
func NewSSIM() *SSIM {
	return &SSIM{}
}

const ssimBlock = 8

func (s *SSIM) Calculate(original, processed *core.PixelBuffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	const (
		C1 = 6.5025  // (0.01 * 255)^2
		C2 = 58.5225 // (0.03 * 255)^2
	)
	a := lumaPlane(original)
	b := lumaPlane(processed)
	w, h := original.Width, original.Height

	total := 0.0
	blocks := 0
	for by := 0; by < h; by += ssimBlock {
		for bx := 0; bx < w; bx += ssimBlock {
			var xs, ys []float64
			for y := by; y < min(by+ssimBlock, h); y++ {
				for x := bx; x < min(bx+ssimBlock, w); x++ {
					xs = append(xs, a[y*w+x])
					ys = append(ys, b[y*w+x])
				}
			}
			mx, vx := meanVariance(xs)
			my, vy := meanVariance(ys)
			cov := 0.0
			for i := range xs {
				cov += (xs[i] - mx) * (ys[i] - my)
			}
			cov /= float64(len(xs))

			num := (2*mx*my + C1) * (2*cov + C2)
			den := (mx*mx + my*my + C1) * (vx + vy + C2)
			total += num / den
			blocks++
		}
	}
	return total / float64(blocks), nil
}

func (s *SSIM) GetName() string { return "SSIM" }

func (s *SSIM) GetDescription() string {
	return "Structural Similarity Index - measures perceptual quality"
}

func (s *SSIM) GetRange() (float64, float64) {
	return 0, 1
}

func (s *SSIM) IsHigherBetter() bool { return true }

// ContrastRatio compares the luma standard deviation of output to input
type ContrastRatio struct{}

// NewContrastRatio creates a new contrast preservation metric
func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed *core.PixelBuffer) (float64, error) {
	if original.Validate() != nil || processed.Validate() != nil {
		return 0, fmt.Errorf("empty images")
	}
	_, vo := meanVariance(lumaPlane(original))
	_, vp := meanVariance(lumaPlane(processed))
	if vo == 0 {
		return 1.0, nil
	}
	return math.Sqrt(vp) / math.Sqrt(vo), nil
}

func (c *ContrastRatio) GetName() string { return "Contrast Ratio" }

func (c *ContrastRatio) GetDescription() string {
	return "Ratio of output to input luma standard deviation"
}

func (c *ContrastRatio) GetRange() (float64, float64) {
	return 0, 2
}

func (c *ContrastRatio) IsHigherBetter() bool { return true }

// Sharpness compares the variance of the Laplacian of output to input
type Sharpness struct{}

// NewSharpness creates a new sharpness metric
func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(original, processed *core.PixelBuffer) (float64, error) {
	if original.Validate() != nil || processed.Validate() != nil {
		return 0, fmt.Errorf("empty images")
	}
	vo := laplacianVariance(original)
	vp := laplacianVariance(processed)
	if vo == 0 {
		return 1.0, nil
	}
	return vp / vo, nil
}

// laplacianVariance uses the 4-neighbour kernel over interior pixels.
func laplacianVariance(buf *core.PixelBuffer) float64 {
	w, h := buf.Width, buf.Height
	if w < 3 || h < 3 {
		return 0
	}
	l := lumaPlane(buf)
	resp := make([]float64, 0, (w-2)*(h-2))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			resp = append(resp, l[i-w]+l[i+w]+l[i-1]+l[i+1]-4*l[i])
		}
	}
	_, variance := meanVariance(resp)
	return variance
}

func (s *Sharpness) GetName() string { return "Sharpness" }

func (s *Sharpness) GetDescription() string {
	return "Ratio of output to input Laplacian variance"
}

func (s *Sharpness) GetRange() (float64, float64) {
	return 0, 2
}

func (s *Sharpness) IsHigherBetter() bool { return true }

// Clipping is the fraction of output pixels with any channel at 0 or 255
type Clipping struct{}

// NewClipping creates a new clipping metric
func NewClipping() *Clipping {
	return &Clipping{}
}

func (c *Clipping) Calculate(_, processed *core.PixelBuffer) (float64, error) {
	if processed.Validate() != nil {
		return 0, fmt.Errorf("empty image")
	}
	clipped := 0
	for i := 0; i < len(processed.Pix); i += 4 {
		for ch := 0; ch < 3; ch++ {
			if v := processed.Pix[i+ch]; v == 0 || v == 255 {
				clipped++
				break
			}
		}
	}
	return float64(clipped) / float64(processed.PixelCount()), nil
}

func (c *Clipping) GetName() string { return "Clipping" }

func (c *Clipping) GetDescription() string {
	return "Fraction of pixels with a channel at black or white"
}

func (c *Clipping) GetRange() (float64, float64) {
	return 0, 1
}

func (c *Clipping) IsHigherBetter() bool { return false }

// DynamicRange is the 1st to 99th percentile luma spread of the output, over 255
type DynamicRange struct{}

// NewDynamicRange creates a new dynamic range metric
func NewDynamicRange() *DynamicRange {
	return &DynamicRange{}
}

func (d *DynamicRange) Calculate(_, processed *core.PixelBuffer) (float64, error) {
	if processed.Validate() != nil {
		return 0, fmt.Errorf("empty image")
	}
	var hist [256]int
	for _, v := range lumaPlane(processed) {
		hist[core.ClampByte(v)]++
	}
	n := processed.PixelCount()
	lo := percentile(hist, n, 0.01)
	hi := percentile(hist, n, 0.99)
	return float64(hi-lo) / 255, nil
}

func percentile(hist [256]int, n int, p float64) int {
	target := int(math.Ceil(p * float64(n)))
	if target < 1 {
		target = 1
	}
	seen := 0
	for v, count := range hist {
		seen += count
		if seen >= target {
			return v
		}
	}
	return 255
}

func (d *DynamicRange) GetName() string { return "Dynamic Range" }

func (d *DynamicRange) GetDescription() string {
	return "Share of the 0-255 range spanned by the middle 98% of luma"
}

func (d *DynamicRange) GetRange() (float64, float64) {
	return 0, 1
}

func (d *DynamicRange) IsHigherBetter() bool { return true }

// MeanLuma is the average output luma
type MeanLuma struct{}

// NewMeanLuma creates a new mean luma metric
func NewMeanLuma() *MeanLuma {
	return &MeanLuma{}
}

func (m *MeanLuma) Calculate(_, processed *core.PixelBuffer) (float64, error) {
	if processed.Validate() != nil {
		return 0, fmt.Errorf("empty image")
	}
	mean, _ := meanVariance(lumaPlane(processed))
	return mean, nil
}

func (m *MeanLuma) GetName() string { return "Mean Luma" }

func (m *MeanLuma) GetDescription() string {
	return "Average Rec.601 luma of the output"
}

func (m *MeanLuma) GetRange() (float64, float64) {
	return 0, 255
}

func (m *MeanLuma) IsHigherBetter() bool { return true }
