// Scan records and their flat metadata
package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"film-scanner/internal/core"
)

var (
	// ErrNotFound is returned by Get and Delete for unknown ids.
	ErrNotFound = errors.New("scan not found")

	// ErrInvalidScan is returned when a scan has no image data or a malformed id.
	ErrInvalidScan = errors.New("invalid scan")
)

// Metadata is persisted next to every saved image.
type Metadata struct {
	FilmType        core.FilmType `json:"filmType"`
	Brightness      int           `json:"brightness"`
	Contrast        int           `json:"contrast"`
	Saturation      int           `json:"saturation"`
	RedBalance      int           `json:"redBalance"`
	GreenBalance    int           `json:"greenBalance"`
	BlueBalance     int           `json:"blueBalance"`
	RemoveColorCast bool          `json:"removeColorCast"`
	IsFlipped       bool          `json:"isFlipped"`
	IsRotated       bool          `json:"isRotated"`
	AIEnhanced      bool          `json:"aiEnhanced"`
	Width           int           `json:"width"`
	Height          int           `json:"height"`
}

// NewMetadata flattens the settings a scan was rendered with.
func NewMetadata(settings core.Settings, enhanced bool, width, height int) Metadata {
	p := settings.Params
	return Metadata{
		FilmType:        settings.FilmType,
		Brightness:      p.Brightness,
		Contrast:        p.Contrast,
		Saturation:      p.Saturation,
		RedBalance:      p.RedBalance,
		GreenBalance:    p.GreenBalance,
		BlueBalance:     p.BlueBalance,
		RemoveColorCast: p.RemoveColorCast,
		IsFlipped:       settings.Geometry.FlipHorizontal,
		IsRotated:       settings.Geometry.Rotate90,
		AIEnhanced:      enhanced,
		Width:           width,
		Height:          height,
	}
}

// Params rebuilds the slider snapshot, e.g. to re-edit a stored scan.
func (m Metadata) Params() core.AdjustmentParams {
	return core.AdjustmentParams{
		Brightness:      m.Brightness,
		Contrast:        m.Contrast,
		Saturation:      m.Saturation,
		RedBalance:      m.RedBalance,
		GreenBalance:    m.GreenBalance,
		BlueBalance:     m.BlueBalance,
		RemoveColorCast: m.RemoveColorCast,
	}
}

// Scan is one finished frame. Image holds encoded JPEG bytes; Original, when
// present, holds the captured frame before conversion.
type Scan struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Metadata Metadata  `json:"metadata"`

	Image    []byte `json:"-"`
	Original []byte `json:"-"`
}

// DefaultTitle is used when a scan is saved without one.
func DefaultTitle(date time.Time) string {
	return "Film Scan " + date.Format("2006-01-02")
}

// validateID keeps ids usable as file names inside the store directory.
func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: id %q", ErrInvalidScan, id)
	}
	return nil
}
