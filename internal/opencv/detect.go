package opencv

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"film-scanner/internal/core"
)

// Frame detection limits, as fractions of the scan area.
const (
	MaxCoverage = 0.98
	MinCoverage = 0.05
)

// FrameDetector finds the exposed frame inside a scan so a crop session can
// open on it instead of the default inset.
type FrameDetector struct {
	logger *logrus.Logger
}

// NewFrameDetector creates a detector. A nil logger discards output.
func NewFrameDetector(logger *logrus.Logger) *FrameDetector {
	return &FrameDetector{logger: core.LoggerOrDiscard(logger)}
}

// Detect returns the bounding box of the largest bright region in source
// pixels. ok is false when nothing frame-like was found.
func (d *FrameDetector) Detect(buf *core.PixelBuffer) (region core.CropRegion, ok bool, err error) {
	src, err := ToMat(buf)
	if err != nil {
		return core.CropRegion{}, false, err
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	// Smooth out grain but keep the frame edge, then spread the histogram.
	filtered := gocv.NewMat()
	defer filtered.Close()
	if err := gocv.BilateralFilter(gray, &filtered, 11, 17, 17); err != nil {
		return core.CropRegion{}, false, fmt.Errorf("bilateral filter failed: %w", err)
	}

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(filtered, &equalized)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 5, Y: 5})
	defer kernel.Close()

	total := float64(buf.Width * buf.Height)
	maxArea := total * MaxCoverage
	minArea := total * MinCoverage

	var best image.Rectangle
	bestArea := 0.0
	for threshold := 0; threshold < 240; threshold += 5 {
		rect, area := largestRegion(equalized, kernel, float32(threshold))
		if area < minArea || area > maxArea {
			continue
		}
		if area > bestArea {
			best, bestArea = rect, area
		}
	}

	if bestArea == 0 {
		d.logger.WithFields(logrus.Fields{
			"width":  buf.Width,
			"height": buf.Height,
		}).Debug("No frame detected")
		return core.CropRegion{}, false, nil
	}

	region = core.CropRegion{
		X:      float64(best.Min.X),
		Y:      float64(best.Min.Y),
		Width:  float64(best.Dx()),
		Height: float64(best.Dy()),
	}
	d.logger.WithFields(logrus.Fields{
		"region":   region,
		"coverage": bestArea / total,
	}).Debug("Frame detected")
	return region, true, nil
}

// largestRegion thresholds, closes small gaps and returns the bounding box of
// the largest external contour with its area.
func largestRegion(equalized, kernel gocv.Mat, threshold float32) (image.Rectangle, float64) {
	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(equalized, &binary, threshold, 255, gocv.ThresholdBinary)

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(binary, &dilated, kernel)

	closed := gocv.NewMat()
	defer closed.Close()
	gocv.Erode(dilated, &closed, kernel)

	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var largest image.Rectangle
	largestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		rect := gocv.BoundingRect(contour)
		area := float64(rect.Dx() * rect.Dy())
		if area > largestArea {
			largest, largestArea = rect, area
		}
	}
	return largest, largestArea
}
