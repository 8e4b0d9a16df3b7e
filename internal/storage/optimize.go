package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"

	"film-scanner/internal/io"
)

// Size reduction rules for stored images.
const (
	DefaultMaxBytes  = 5 * 1024 * 1024
	shrinkFactor     = 0.75
	minShrinkWidth   = 300
	maxShrinkAttempt = 5
)

// Optimize returns data unchanged when it fits in maxBytes. Otherwise it
// re-encodes at storage quality, then shrinks both sides by 0.75 while the
// result is still too large, the width is above 300 px and fewer than five
// shrinks have been made. The last attempt is returned even if it is over.
func Optimize(data []byte, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 || len(data) <= maxBytes {
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data, fmt.Errorf("optimize: %w", err)
	}

	width := src.Bounds().Dx()
	height := src.Bounds().Dy()

	result, err := encodeScaled(src, width, height)
	if err != nil {
		return data, err
	}

	for attempts := 0; len(result) > maxBytes && width > minShrinkWidth && attempts < maxShrinkAttempt; attempts++ {
		width = int(float64(width) * shrinkFactor)
		height = int(float64(height) * shrinkFactor)
		if result, err = encodeScaled(src, max(1, width), max(1, height)); err != nil {
			return data, err
		}
	}
	return result, nil
}

func encodeScaled(src image.Image, width, height int) ([]byte, error) {
	img := src
	if b := src.Bounds(); b.Dx() != width || b.Dy() != height {
		dst := image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		img = dst
	}

	var out bytes.Buffer
	if err := io.EncodeImageJPEG(&out, img, io.QualityStorage); err != nil {
		return nil, fmt.Errorf("optimize: %w", err)
	}
	return out.Bytes(), nil
}
