package core

import "errors"

var (
	// ErrNoImage is returned when an operation needs an original frame and none is loaded.
	ErrNoImage = errors.New("no image loaded")

	// ErrInvalidDimensions is returned for zero, negative or mismatched buffer sizes.
	ErrInvalidDimensions = errors.New("invalid image dimensions")

	// ErrAllocation is returned when a working buffer cannot be allocated.
	ErrAllocation = errors.New("unable to allocate working buffer")

	// ErrDecode is returned when source bytes cannot be decoded into pixels.
	ErrDecode = errors.New("unable to decode image")

	// ErrCropTooSmall is returned when a clamped crop falls under the minimum size.
	ErrCropTooSmall = errors.New("crop region smaller than minimum size")

	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("operation not allowed in current state")

	// ErrEnhancementUnavailable is returned when no enhancer can run on this host.
	ErrEnhancementUnavailable = errors.New("enhancement unavailable")
)
