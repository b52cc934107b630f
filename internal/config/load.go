package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name searched for in standard locations.
const FileName = "tdr2024.yaml"

// Load loads configuration with priority: defaults < file < flags.
// flags may be nil.
func Load(flags *Flags) (*Config, error) {
	cfg := Default()

	// Explicit path takes priority
	configPath := flags.ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	flags.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the toolkit cannot run with.
func (c *Config) Validate() error {
	if c.Validation.Workers < 1 {
		return fmt.Errorf("validation.workers must be at least 1, got %d", c.Validation.Workers)
	}
	if c.Guidance.PreScale < 1 || c.Guidance.Scale < c.Guidance.PreScale {
		return fmt.Errorf("guidance scales must satisfy 1 <= pre_scale <= scale, got %d and %d",
			c.Guidance.PreScale, c.Guidance.Scale)
	}
	if c.Guidance.BlurSigma < 0 {
		return fmt.Errorf("guidance.blur_sigma must not be negative, got %v", c.Guidance.BlurSigma)
	}
	if c.Race.Tick <= 0 {
		return fmt.Errorf("race.tick must be positive, got %v", c.Race.Tick)
	}
	return nil
}

// LevelPath returns the map file name for the configured level.
func (c *Config) LevelPath() string {
	return fmt.Sprintf(c.Assets.LevelPattern, c.Race.Level)
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./" + FileName,
		filepath.Join(ConfigDir(), FileName),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "TDR2024")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "TDR2024")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "tdr2024")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tdr2024")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
