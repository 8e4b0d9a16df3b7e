package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"film-scanner/internal/algorithms"
	"film-scanner/internal/core"
)

// Config represents the complete scanner configuration
type Config struct {
	DebounceMS      int           `yaml:"debounce_ms" toml:"debounce_ms"`
	MinCropSize     int           `yaml:"min_crop_size" toml:"min_crop_size"`
	CropInset       float64       `yaml:"crop_inset" toml:"crop_inset"`
	HighQuality     bool          `yaml:"high_quality" toml:"high_quality"`
	JPEGQuality     int           `yaml:"jpeg_quality" toml:"jpeg_quality"` // 0 picks 95 or 90 from high_quality
	AutoEnhance     bool          `yaml:"auto_enhance" toml:"auto_enhance"`
	SaveOriginal    bool          `yaml:"save_original" toml:"save_original"`
	DefaultFilmType core.FilmType `yaml:"default_film_type" toml:"default_film_type"`

	Storage     StorageConfig     `yaml:"storage" toml:"storage"`
	Enhancement EnhancementConfig `yaml:"enhancement" toml:"enhancement"`
	Capture     CaptureConfig     `yaml:"capture" toml:"capture"`
	Negative    NegativeConfig    `yaml:"negative" toml:"negative"`
}

// StorageConfig contains scan store settings
type StorageConfig struct {
	Dir      string `yaml:"dir" toml:"dir"`
	MaxBytes int    `yaml:"max_bytes" toml:"max_bytes"`
}

// EnhancementConfig selects the optional enhancement backend
type EnhancementConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Backend string `yaml:"backend" toml:"backend"` // arithmetic, opencv
}

// CaptureConfig contains frame source settings
type CaptureConfig struct {
	Device     int    `yaml:"device" toml:"device"`           // camera index for the opencv source
	WatchDir   string `yaml:"watch_dir" toml:"watch_dir"`     // folder watched for new frames
	AutoDetect bool   `yaml:"auto_detect" toml:"auto_detect"` // suggest crop from detected frame edges
}

// NegativeConfig holds the two coefficient sets of the colour negative pipeline
type NegativeConfig struct {
	Edit    algorithms.Coefficients `yaml:"edit" toml:"edit"`
	Preview algorithms.Coefficients `yaml:"preview" toml:"preview"`
}

// Enhancement backends.
const (
	BackendArithmetic = "arithmetic"
	BackendOpenCV     = "opencv"
)

// Default returns a complete, valid configuration.
func Default() *Config {
	return &Config{
		DebounceMS:      500,
		MinCropSize:     core.DefaultMinCropSize,
		CropInset:       core.DefaultCropInset,
		HighQuality:     true,
		DefaultFilmType: core.ColorNegative,
		Storage: StorageConfig{
			Dir:      defaultStorageDir(),
			MaxBytes: 5 * 1024 * 1024,
		},
		Enhancement: EnhancementConfig{
			Enabled: true,
			Backend: BackendArithmetic,
		},
		Negative: NegativeConfig{
			Edit:    algorithms.DefaultCoefficients(),
			Preview: algorithms.PreviewCoefficients(),
		},
	}
}

func defaultStorageDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "film-scanner", "scans")
	}
	return filepath.Join(".", "scans")
}

// Load reads a YAML or TOML file over the defaults. An empty path returns Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Debounce returns the quiescence window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Quality returns the JPEG quality for exported scans.
func (c *Config) Quality() int {
	if c.JPEGQuality > 0 {
		return c.JPEGQuality
	}
	if c.HighQuality {
		return 95
	}
	return 90
}
