package io

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"film-scanner/internal/core"
)

func testBuffer(t *testing.T) *core.PixelBuffer {
	t.Helper()
	buf, err := core.NewUniform(32, 16, color.NRGBA{R: 200, G: 120, B: 60, A: 255})
	require.NoError(t, err)
	buf.Set(3, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	return buf
}

func TestLosslessRoundTrip(t *testing.T) {
	loader := NewImageLoader(nil)
	dir := t.TempDir()

	for _, name := range []string{"frame.png", "frame.tiff", "frame.bmp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, loader.SaveImage(testBuffer(t), path, QualityHigh))

			got, err := loader.LoadImage(path)
			require.NoError(t, err)
			assert.True(t, got.Equal(testBuffer(t)))
		})
	}
}

func TestJPEGRoundTripIsClose(t *testing.T) {
	loader := NewImageLoader(nil)
	data, err := JPEGBytes(testBuffer(t), QualityHigh)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	got, err := loader.DecodeBytes(data)
	require.NoError(t, err)
	require.Equal(t, 32, got.Width)
	require.Equal(t, 16, got.Height)

	c := got.At(24, 10)
	assert.InDelta(t, 200, int(c.R), 6)
	assert.InDelta(t, 120, int(c.G), 6)
	assert.InDelta(t, 60, int(c.B), 6)
}

func TestHigherQualityIsLarger(t *testing.T) {
	buf, err := core.NewPixelBuffer(64, 64)
	require.NoError(t, err)
	for i := range buf.Pix {
		buf.Pix[i] = uint8(i * 7919 % 251)
	}

	var lo, hi bytes.Buffer
	require.NoError(t, EncodeJPEG(&lo, buf, QualityStorage))
	require.NoError(t, EncodeJPEG(&hi, buf, QualityHigh))
	assert.Greater(t, hi.Len(), lo.Len())
}

func TestDecodeFailures(t *testing.T) {
	loader := NewImageLoader(nil)

	_, err := loader.DecodeBytes(nil)
	assert.ErrorIs(t, err, core.ErrDecode)

	_, err = loader.DecodeBytes([]byte("definitely not an image"))
	assert.ErrorIs(t, err, core.ErrDecode)

	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(bad, []byte{0xFF, 0xD8, 0xFF, 0x00}, 0o644))
	_, err = loader.LoadImage(bad)
	assert.ErrorIs(t, err, core.ErrDecode)

	_, err = loader.LoadImage(filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, core.ErrDecode)

	_, err = loader.LoadImage(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, core.ErrDecode)
}

func TestSaveRejects(t *testing.T) {
	loader := NewImageLoader(nil)
	dir := t.TempDir()

	assert.Error(t, loader.SaveImage(testBuffer(t), filepath.Join(dir, "x.webp"), 90), "webp is decode-only")
	assert.ErrorIs(t, loader.SaveImage(nil, filepath.Join(dir, "x.png"), 90), core.ErrNoImage)
}

func TestDownloadName(t *testing.T) {
	date := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "scanner-box-2024-03-09.jpg", DownloadName("", date))
	assert.Equal(t, "scanner-box-2024-03-09.jpg", DownloadName("   ", date))
	assert.Equal(t, "Roll 3-2024-03-09.jpg", DownloadName("Roll 3", date))
	assert.Equal(t, "a-b-2024-03-09.jpg", DownloadName("a/b", date))
}

func TestSupportedFormats(t *testing.T) {
	assert.True(t, IsSupportedImageFormat("/x/SCAN.JPG"))
	assert.True(t, IsSupportedImageFormat("a.webp"))
	assert.False(t, IsSupportedImageFormat("a.heic"))
	assert.False(t, IsSupportedImageFormat("jpg"))
	assert.Contains(t, SupportedExtensions(), ".tif")
}
