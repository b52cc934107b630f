package config

import (
	"flag"
	"strings"
)

// Flags holds CLI overrides. Register them on a subcommand's FlagSet.
type Flags struct {
	Config  *string
	Debug   *bool
	Quiet   *bool
	Roots   *string
	Level   *int
	Workers *int
	LogFile *string
}

// RegisterFlags adds the shared configuration flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:  fs.String("config", "", "Path to config file"),
		Debug:   fs.Bool("debug", false, "Enable debug logging"),
		Quiet:   fs.Bool("quiet", false, "Disable console logging"),
		Roots:   fs.String("root", "", "Comma-separated asset directories (overrides config)"),
		Level:   fs.Int("level", 0, "Level number to load"),
		Workers: fs.Int("workers", 0, "Concurrent image checks"),
		LogFile: fs.String("log-file", "", "Write logs to this file"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil || f.Config == nil {
		return ""
	}
	return *f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug != nil && *f.Debug {
		cfg.Logging.Level = "debug"
		if cfg.Race.Debug == 0 {
			cfg.Race.Debug = 1
		}
	}
	if f.Quiet != nil && *f.Quiet {
		cfg.Logging.Quiet = true
	}
	if f.Roots != nil && *f.Roots != "" {
		cfg.Assets.Roots = splitList(*f.Roots)
	}
	if f.Level != nil && *f.Level > 0 {
		cfg.Race.Level = *f.Level
	}
	if f.Workers != nil && *f.Workers > 0 {
		cfg.Validation.Workers = *f.Workers
	}
	if f.LogFile != nil && *f.LogFile != "" {
		cfg.Logging.LogFile = *f.LogFile
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
