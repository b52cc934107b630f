// Package config handles toolkit configuration loading and management.
package config

import "time"

// Config holds all toolkit settings.
type Config struct {
	Assets     AssetsConfig     `yaml:"assets"`
	Validation ValidationConfig `yaml:"validation"`
	Guidance   GuidanceConfig   `yaml:"guidance"`
	Race       RaceConfig       `yaml:"race"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AssetsConfig holds asset lookup settings.
type AssetsConfig struct {
	Roots        []string `yaml:"roots"`         // Asset directories, later entries win
	LevelPattern string   `yaml:"level_pattern"` // fmt pattern for level maps
}

// ValidationConfig holds integrity check settings.
type ValidationConfig struct {
	CheckImages       bool          `yaml:"check_images"`       // Decode image headers and compare sizes
	RequireContiguous bool          `yaml:"require_contiguous"` // Gaps in tile ids are errors, not warnings
	Workers           int           `yaml:"workers"`            // Concurrent image probes
	Timeout           time.Duration `yaml:"timeout"`
}

// GuidanceConfig holds guidance field generation settings.
type GuidanceConfig struct {
	PreScale  int     `yaml:"pre_scale"`  // Nearest-neighbour upscale before blurring
	BlurSigma float64 `yaml:"blur_sigma"` // Gaussian blur sigma at the pre-scaled size
	Scale     int     `yaml:"scale"`      // Final pixels per map tile
}

// RaceConfig holds headless race simulation settings.
type RaceConfig struct {
	Level int           `yaml:"level"`
	Tick  time.Duration `yaml:"tick"`
	Steps int           `yaml:"steps"`
	Debug int           `yaml:"debug"` // 1 logs collisions, 2 also logs AI whiskers
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Quiet   bool   `yaml:"quiet"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			Roots:        []string{"assets"},
			LevelPattern: "level%d.tmx",
		},
		Validation: ValidationConfig{
			CheckImages:       true,
			RequireContiguous: true,
			Workers:           8,
			Timeout:           30 * time.Second,
		},
		Guidance: GuidanceConfig{
			PreScale:  8,
			BlurSigma: 8,
			Scale:     128,
		},
		Race: RaceConfig{
			Level: 1,
			Tick:  time.Second / 60,
			Steps: 600,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
