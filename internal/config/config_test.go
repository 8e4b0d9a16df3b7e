package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"film-scanner/internal/algorithms"
	"film-scanner/internal/core"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 95, cfg.Quality())
	assert.Equal(t, core.ColorNegative, cfg.DefaultFilmType)
	assert.Equal(t, algorithms.DefaultCoefficients(), cfg.Negative.Edit)
	assert.Equal(t, algorithms.PreviewCoefficients(), cfg.Negative.Preview)

	loaded, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestQuality(t *testing.T) {
	cfg := Default()
	cfg.HighQuality = false
	assert.Equal(t, 90, cfg.Quality())
	cfg.JPEGQuality = 70
	assert.Equal(t, 70, cfg.Quality())
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "scanner.yaml", `
debounce_ms: 250
default_film_type: slide
auto_enhance: true
storage:
  dir: /tmp/scans
  max_bytes: 1024
enhancement:
  backend: opencv
capture:
  watch_dir: /tmp/incoming
negative:
  edit:
    red_boost: 1.2
    base_weights: [1.0, 1.0, 1.0]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
	assert.Equal(t, core.Slide, cfg.DefaultFilmType)
	assert.True(t, cfg.AutoEnhance)
	assert.Equal(t, "/tmp/scans", cfg.Storage.Dir)
	assert.Equal(t, 1024, cfg.Storage.MaxBytes)
	assert.Equal(t, BackendOpenCV, cfg.Enhancement.Backend)
	assert.True(t, cfg.Enhancement.Enabled, "unset keys keep their defaults")
	assert.Equal(t, "/tmp/incoming", cfg.Capture.WatchDir)

	assert.Equal(t, 1.2, cfg.Negative.Edit.RedBoost)
	assert.Equal(t, [3]float64{1, 1, 1}, cfg.Negative.Edit.BaseWeights)
	assert.Equal(t, 0.85, cfg.Negative.Edit.GreenCut)
	assert.Equal(t, algorithms.PreviewCoefficients(), cfg.Negative.Preview)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "scanner.toml", `
min_crop_size = 40
crop_inset = 0.2
high_quality = false
default_film_type = "bw"

[storage]
dir = "/var/scans"

[negative.preview]
magenta_correction = 0.3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.MinCropSize)
	assert.Equal(t, 0.2, cfg.CropInset)
	assert.Equal(t, 90, cfg.Quality())
	assert.Equal(t, core.BlackAndWhite, cfg.DefaultFilmType)
	assert.Equal(t, "/var/scans", cfg.Storage.Dir)
	assert.Equal(t, 0.3, cfg.Negative.Preview.MagentaCorrection)
	assert.Equal(t, 1.05, cfg.Negative.Preview.RedBoost)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "scanner.json", `{}`))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(writeFile(t, "bad.yaml", "debounce_ms: [1"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = Load(writeFile(t, "film.yaml", "default_film_type: polaroid"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative debounce", func(c *Config) { c.DebounceMS = -1 }},
		{"zero min crop", func(c *Config) { c.MinCropSize = 0 }},
		{"inset too large", func(c *Config) { c.CropInset = 0.5 }},
		{"quality too high", func(c *Config) { c.JPEGQuality = 101 }},
		{"unknown film type", func(c *Config) { c.DefaultFilmType = core.FilmType(7) }},
		{"negative max bytes", func(c *Config) { c.Storage.MaxBytes = -1 }},
		{"unknown backend", func(c *Config) { c.Enhancement.Backend = "onnx" }},
		{"negative device", func(c *Config) { c.Capture.Device = -2 }},
		{"bad coefficients", func(c *Config) { c.Negative.Edit.GreenCut = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidateFillsDefaults(t *testing.T) {
	cfg := Default()
	cfg.Storage.Dir = ""
	cfg.Enhancement.Backend = ""
	cfg.Negative = NegativeConfig{}

	require.NoError(t, Validate(cfg))
	assert.NotEmpty(t, cfg.Storage.Dir)
	assert.Equal(t, BackendArithmetic, cfg.Enhancement.Backend)
	assert.Equal(t, algorithms.DefaultCoefficients(), cfg.Negative.Edit)
}
