package config

import (
	"fmt"

	"film-scanner/internal/algorithms"
)

// Validate checks the configuration and fills defaults for zero values
func Validate(cfg *Config) error {
	if cfg.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must be >= 0, got %d", cfg.DebounceMS)
	}
	if cfg.MinCropSize <= 0 {
		return fmt.Errorf("min_crop_size must be > 0, got %d", cfg.MinCropSize)
	}
	if cfg.CropInset < 0 || cfg.CropInset >= 0.5 {
		return fmt.Errorf("crop_inset must be in [0, 0.5), got %v", cfg.CropInset)
	}
	if cfg.JPEGQuality < 0 || cfg.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be in [0, 100], got %d", cfg.JPEGQuality)
	}
	if _, err := cfg.DefaultFilmType.MarshalText(); err != nil {
		return fmt.Errorf("default_film_type: %w", err)
	}

	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = defaultStorageDir()
	}
	if cfg.Storage.MaxBytes < 0 {
		return fmt.Errorf("storage.max_bytes must be >= 0, got %d", cfg.Storage.MaxBytes)
	}

	switch cfg.Enhancement.Backend {
	case "":
		cfg.Enhancement.Backend = BackendArithmetic
	case BackendArithmetic, BackendOpenCV:
	default:
		return fmt.Errorf("enhancement.backend must be %q or %q, got %q",
			BackendArithmetic, BackendOpenCV, cfg.Enhancement.Backend)
	}

	if cfg.Capture.Device < 0 {
		return fmt.Errorf("capture.device must be >= 0, got %d", cfg.Capture.Device)
	}

	// An omitted section decodes to all zeros.
	if cfg.Negative.Edit == (algorithms.Coefficients{}) {
		cfg.Negative.Edit = algorithms.DefaultCoefficients()
	}
	if cfg.Negative.Preview == (algorithms.Coefficients{}) {
		cfg.Negative.Preview = algorithms.PreviewCoefficients()
	}
	if err := cfg.Negative.Edit.Validate(); err != nil {
		return fmt.Errorf("negative.edit: %w", err)
	}
	if err := cfg.Negative.Preview.Validate(); err != nil {
		return fmt.Errorf("negative.preview: %w", err)
	}

	return nil
}
