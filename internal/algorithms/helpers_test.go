package algorithms

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"film-scanner/internal/core"
)

func uniform(t *testing.T, w, h int, c color.NRGBA) *core.PixelBuffer {
	t.Helper()
	buf, err := core.NewUniform(w, h, c)
	require.NoError(t, err)
	return buf
}

// gradient fills a buffer whose samples differ per pixel and per channel.
func gradient(t *testing.T, w, h int) *core.PixelBuffer {
	t.Helper()
	buf, err := core.NewPixelBuffer(w, h)
	require.NoError(t, err)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.Set(x, y, color.NRGBA{
				R: uint8((x*37 + y*11) % 256),
				G: uint8((x*5 + y*53) % 256),
				B: uint8((x*19 + y*7 + 90) % 256),
				A: 255,
			})
		}
	}
	return buf
}
