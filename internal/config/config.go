// Package config loads and validates condenser settings from a TOML file.
//
// Every field has a default, so running without a file is valid. Values given
// on the command line are applied on top of the loaded config by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Padding       float64 `toml:"padding"`
	MaxGap        float64 `toml:"max_gap"`
	Workers       int     `toml:"workers"`
	OutputDir     string  `toml:"output_dir"`
	OutputSuffix  string  `toml:"output_suffix"`
	FFmpegBinary  string  `toml:"ffmpeg_binary"`
	FFprobeBinary string  `toml:"ffprobe_binary"`
	LogLevel      string  `toml:"log_level"`
	LogFormat     string  `toml:"log_format"`
}

func Default() Config {
	return Config{
		Padding:       0.5,
		MaxGap:        0,
		Workers:       runtime.NumCPU(),
		OutputDir:     "./output/",
		OutputSuffix:  "_condensed",
		FFmpegBinary:  "ffmpeg",
		FFprobeBinary: "ffprobe",
		LogLevel:      "info",
		LogFormat:     "",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Normalize trims and lowercases enum values and fills in binaries and the
// worker count when they are unset. Call it again after applying overrides.
func (c *Config) Normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.FFmpegBinary = strings.TrimSpace(c.FFmpegBinary)
	c.FFprobeBinary = strings.TrimSpace(c.FFprobeBinary)
	if c.FFmpegBinary == "" {
		c.FFmpegBinary = "ffmpeg"
	}
	if c.FFprobeBinary == "" {
		c.FFprobeBinary = "ffprobe"
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Padding < 0 {
		errs = append(errs, fmt.Errorf("padding must be >= 0, got %v", c.Padding))
	}
	if c.MaxGap < 0 {
		errs = append(errs, fmt.Errorf("max_gap must be >= 0, got %v", c.MaxGap))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.OutputSuffix == "" {
		errs = append(errs, errors.New("output_suffix cannot be empty"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "":
	default:
		errs = append(errs, fmt.Errorf("log_level: unsupported value %q", c.LogLevel))
	}
	switch c.LogFormat {
	case "console", "json", "":
	default:
		errs = append(errs, fmt.Errorf("log_format: unsupported value %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Sample renders the defaults as a commented TOML document.
func Sample() (string, error) {
	data, err := toml.Marshal(Default())
	if err != nil {
		return "", err
	}
	return "# dialogCondenser configuration\n" +
		"# padding: seconds kept before and after every subtitle cue\n" +
		"# max_gap: silences up to this many seconds between cues are kept\n\n" +
		string(data), nil
}
