// OpenCV bridges for capture, enhancement and frame detection
package opencv

import (
	"fmt"

	"gocv.io/x/gocv"

	"film-scanner/internal/core"
)

// ToMat converts a buffer into an 8-bit BGR Mat. Alpha is dropped.
// The caller owns the returned Mat and must Close it.
func ToMat(buf *core.PixelBuffer) (gocv.Mat, error) {
	if err := buf.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.ImageToMatRGB(buf.ToImage())
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to convert buffer to Mat: %w", err)
	}
	return mat, nil
}

// FromMat copies a Mat into a new opaque buffer.
func FromMat(mat gocv.Mat) (*core.PixelBuffer, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("%w: empty Mat", core.ErrNoImage)
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert Mat to image: %w", err)
	}
	return core.FromImage(img)
}

// copyAlpha restores the alpha samples ToMat dropped.
func copyAlpha(dst, src *core.PixelBuffer) {
	if dst.Width != src.Width || dst.Height != src.Height {
		return
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = src.Pix[i]
	}
}
