// Package config provides configuration loading and management for labelbrush.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Erase modes
const (
	// EraseActive clears only pixels carrying the active label
	EraseActive = "active"

	// EraseAny clears every label found under the brush
	EraseAny = "any"
)

// ColorEntry overrides the display color of one label
type ColorEntry struct {
	Label int      `yaml:"label"`
	RGBA  [4]uint8 `yaml:"rgba"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Brush parameters
	Brush struct {
		// Radius is the brush radius in image pixels
		Radius float64 `yaml:"radius"`

		// ActiveLabel is the label id written by draw strokes (1-255)
		ActiveLabel int `yaml:"activeLabel"`

		// EraseMode is either "active" or "any"
		EraseMode string `yaml:"eraseMode"`
	} `yaml:"brush"`

	// Overlay parameters
	Overlay struct {
		// Opacity of the label overlay when composited (0..1)
		Opacity float64 `yaml:"opacity"`

		// Colors overrides entries of the default color lookup table
		Colors []ColorEntry `yaml:"colors"`

		// MaxRasterPixels caps the size of a single overlay raster.
		// Larger regenerations fail with an allocation failure.
		MaxRasterPixels int `yaml:"maxRasterPixels"`

		// Workers specifies how many CPU cores share one color mapping pass
		Workers int `yaml:"workers"`
	} `yaml:"overlay"`

	// Render parameters
	Render struct {
		// DrawForeignSlice draws a bitmap cached for another slice
		// instead of leaving a first-frame gap
		DrawForeignSlice bool `yaml:"drawForeignSlice"`

		// ShowCursor draws the brush outline at the pointer position
		ShowCursor bool `yaml:"showCursor"`
	} `yaml:"render"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// FrameDir is where the driver writes rendered frames
		FrameDir string `yaml:"frameDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Brush.Radius = 10
	cfg.Brush.ActiveLabel = 1
	cfg.Brush.EraseMode = EraseActive

	cfg.Overlay.Opacity = 0.5
	cfg.Overlay.MaxRasterPixels = 8192 * 8192
	cfg.Overlay.Workers = runtime.NumCPU() // Use all available cores by default

	cfg.Render.DrawForeignSlice = false
	cfg.Render.ShowCursor = true

	cfg.Output.Verbose = false
	cfg.Output.FrameDir = "frames"

	return cfg
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if math.IsNaN(c.Brush.Radius) || math.IsInf(c.Brush.Radius, 0) || c.Brush.Radius < 0 {
		return fmt.Errorf("%w: brush.radius %v must be a non-negative number", ErrInvalidConfig, c.Brush.Radius)
	}
	if c.Brush.ActiveLabel < 1 || c.Brush.ActiveLabel > 255 {
		return fmt.Errorf("%w: brush.activeLabel %d outside [1, 255]", ErrInvalidConfig, c.Brush.ActiveLabel)
	}
	if c.Brush.EraseMode != EraseActive && c.Brush.EraseMode != EraseAny {
		return fmt.Errorf("%w: brush.eraseMode %q must be %q or %q", ErrInvalidConfig, c.Brush.EraseMode, EraseActive, EraseAny)
	}
	if math.IsNaN(c.Overlay.Opacity) || c.Overlay.Opacity < 0 || c.Overlay.Opacity > 1 {
		return fmt.Errorf("%w: overlay.opacity %v outside [0, 1]", ErrInvalidConfig, c.Overlay.Opacity)
	}
	if c.Overlay.MaxRasterPixels <= 0 {
		return fmt.Errorf("%w: overlay.maxRasterPixels must be positive", ErrInvalidConfig)
	}
	if c.Overlay.Workers < 1 {
		return fmt.Errorf("%w: overlay.workers must be at least 1", ErrInvalidConfig)
	}
	for i, entry := range c.Overlay.Colors {
		if entry.Label < 1 || entry.Label > 255 {
			return fmt.Errorf("%w: overlay.colors[%d].label %d outside [1, 255]", ErrInvalidConfig, i, entry.Label)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
