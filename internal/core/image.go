// Original and derived frames with thread-safe access
package core

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ImageData owns the OriginalImage (ground truth every recompute starts from)
// and the DerivedImage (what is currently shown or exported).
//
// Buffers handed out by Original and Derived are shared, not copied: callers
// must not mutate them. Replacement is a pointer swap under the lock, so a
// reader sees either the old buffer or the new one, never a partial write.
type ImageData struct {
	mu       sync.RWMutex
	original *PixelBuffer
	derived  *PixelBuffer
	hasImage bool
	source   string
	metadata ImageMetadata
}

// ImageMetadata describes the current original frame.
type ImageMetadata struct {
	Width  int
	Height int
	Format string
	Source string
}

// NewImageData creates an empty container.
func NewImageData() *ImageData {
	return &ImageData{}
}

// SetOriginal replaces the original frame and resets the derived frame to it.
func (img *ImageData) SetOriginal(buf *PixelBuffer, source string) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("cannot set original: %w", err)
	}

	img.mu.Lock()
	defer img.mu.Unlock()

	img.original = buf
	img.derived = buf
	img.hasImage = true
	img.source = source
	img.metadata = ImageMetadata{
		Width:  buf.Width,
		Height: buf.Height,
		Format: formatFromSource(source),
		Source: source,
	}
	return nil
}

// ReplaceOriginal swaps the original frame (after a crop) without touching
// the source description. The derived frame is left alone until the next
// recompute lands.
func (img *ImageData) ReplaceOriginal(buf *PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("cannot replace original: %w", err)
	}

	img.mu.Lock()
	defer img.mu.Unlock()

	if !img.hasImage {
		return ErrNoImage
	}
	img.original = buf
	img.metadata.Width = buf.Width
	img.metadata.Height = buf.Height
	return nil
}

// SetDerived publishes a new derived frame.
func (img *ImageData) SetDerived(buf *PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("cannot set derived: %w", err)
	}

	img.mu.Lock()
	defer img.mu.Unlock()

	if !img.hasImage {
		return ErrNoImage
	}
	img.derived = buf
	return nil
}

// Original returns the current original frame, or nil.
func (img *ImageData) Original() *PixelBuffer {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.original
}

// Derived returns the current derived frame, or nil.
func (img *ImageData) Derived() *PixelBuffer {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.derived
}

// HasImage returns true if an original frame is loaded.
func (img *ImageData) HasImage() bool {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.hasImage
}

// Metadata returns a copy of the frame description.
func (img *ImageData) Metadata() ImageMetadata {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.metadata
}

// ResetToOriginal makes the derived frame the untouched original again.
func (img *ImageData) ResetToOriginal() error {
	img.mu.Lock()
	defer img.mu.Unlock()

	if !img.hasImage {
		return ErrNoImage
	}
	img.derived = img.original
	return nil
}

// Clear drops both frames.
func (img *ImageData) Clear() {
	img.mu.Lock()
	defer img.mu.Unlock()

	img.original = nil
	img.derived = nil
	img.hasImage = false
	img.source = ""
	img.metadata = ImageMetadata{}
}

func formatFromSource(source string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(source)), ".")
	if ext == "" {
		return "raw"
	}
	return ext
}
