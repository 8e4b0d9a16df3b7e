// Image loading and saving for scans
package io

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"film-scanner/internal/core"
)

// Output quality for lossy export, in the 0-100 scale image/jpeg uses.
const (
	QualityHigh     = 95
	QualityStandard = 90
	QualityStorage  = 80
)

// ImageLoader handles image file operations
type ImageLoader struct {
	logger *logrus.Logger
}

// NewImageLoader creates a new loader. A nil logger discards output.
func NewImageLoader(logger *logrus.Logger) *ImageLoader {
	return &ImageLoader{
		logger: core.LoggerOrDiscard(logger),
	}
}

// LoadImage decodes a file into a new buffer.
func (il *ImageLoader) LoadImage(path string) (*core.PixelBuffer, error) {
	il.logger.WithField("filepath", path).Debug("Loading image")

	if !IsSupportedImageFormat(path) {
		return nil, fmt.Errorf("%w: unsupported image format: %s", core.ErrDecode, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrDecode, err)
	}
	defer f.Close()

	buf, format, err := il.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"format":   format,
		"width":    buf.Width,
		"height":   buf.Height,
	}).Info("Image loaded successfully")
	return buf, nil
}

// Decode reads any registered format. Every failure wraps core.ErrDecode.
func (il *ImageLoader) Decode(r io.Reader) (*core.PixelBuffer, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", core.ErrDecode, err)
	}
	buf, err := core.FromImage(img)
	if err != nil {
		return nil, format, err
	}
	return buf, format, nil
}

// DecodeBytes is Decode over an in-memory image.
func (il *ImageLoader) DecodeBytes(data []byte) (*core.PixelBuffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", core.ErrDecode)
	}
	buf, _, err := il.Decode(bytes.NewReader(data))
	return buf, err
}

// SaveImage writes buf in the format implied by the file extension.
// quality only applies to JPEG.
func (il *ImageLoader) SaveImage(buf *core.PixelBuffer, path string, quality int) error {
	il.logger.WithField("filepath", path).Debug("Saving image")

	if err := buf.Validate(); err != nil {
		return fmt.Errorf("cannot save image: %w", err)
	}
	if !IsSupportedImageFormat(path) {
		return fmt.Errorf("unsupported image format: %s", path)
	}

	var out bytes.Buffer
	if err := Encode(&out, buf, formatFromExt(path), quality); err != nil {
		return err
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	il.logger.WithFields(logrus.Fields{
		"filepath": path,
		"width":    buf.Width,
		"height":   buf.Height,
		"bytes":    out.Len(),
	}).Info("Image saved successfully")
	return nil
}

// Encode writes buf as format ("jpeg", "png", "tiff", "bmp" or "gif").
func Encode(w io.Writer, buf *core.PixelBuffer, format string, quality int) error {
	img := buf.ToImage()
	switch format {
	case "jpeg", "jpg":
		return EncodeImageJPEG(w, img, quality)
	case "png":
		return png.Encode(w, img)
	case "tiff", "tif":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	case "gif":
		return gif.Encode(w, img, nil)
	}
	return fmt.Errorf("cannot encode format %q", format)
}

// EncodeJPEG encodes buf as baseline JPEG at the given quality (clamped to 1-100).
func EncodeJPEG(w io.Writer, buf *core.PixelBuffer, quality int) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	return EncodeImageJPEG(w, buf.ToImage(), quality)
}

// EncodeImageJPEG is EncodeJPEG for any image.Image.
func EncodeImageJPEG(w io.Writer, img image.Image, quality int) error {
	quality = max(1, min(100, quality))
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// JPEGBytes encodes buf into memory.
func JPEGBytes(buf *core.PixelBuffer, quality int) ([]byte, error) {
	var out bytes.Buffer
	if err := EncodeJPEG(&out, buf, quality); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DownloadName is "<title>-<YYYY-MM-DD>.jpg", with "scanner-box" for an empty title.
// Path separators and other characters unsafe in file names become '-'.
func DownloadName(title string, date time.Time) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "scanner-box"
	}
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', 0:
			return '-'
		}
		return r
	}, title)
	return fmt.Sprintf("%s-%s.jpg", title, date.Format("2006-01-02"))
}

var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".tiff", ".tif", ".bmp", ".webp"}

// IsSupportedImageFormat checks the extension against the decoders linked in.
func IsSupportedImageFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedExtensions {
		if ext == format {
			return true
		}
	}
	return false
}

// GetSupportedFormats lists the readable formats for file dialogs.
func GetSupportedFormats() []string {
	return []string{"JPEG", "PNG", "GIF", "TIFF", "BMP", "WEBP"}
}

// SupportedExtensions returns the readable extensions, with leading dots.
func SupportedExtensions() []string {
	out := make([]string, len(supportedExtensions))
	copy(out, supportedExtensions)
	return out
}

func formatFromExt(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
