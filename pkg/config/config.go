// Package config loads settings for the krar command.
//
// Configuration comes from a single YAML file named by the --config flag or
// the KRAR_CONFIG environment variable. Without either, Default applies.
// Values in the file are merged over the defaults, so a file only needs to
// name what it changes. Command-line flags override the file.
//
// Example:
//
//	compression: zstd   # zstd, lz4 or none
//	level: better       # fastest, default, better or best
//	overwrite: true
//	progress: false
//	log:
//	  level: info       # debug, info, warn or error
//	  format: text      # text or json
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"krar/pkg/core"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "KRAR_CONFIG"

// Config holds every setting the command reads.
type Config struct {
	// Compression is the payload codec for new archives.
	Compression string `yaml:"compression"`

	// Level trades compression speed for ratio.
	Level string `yaml:"level"`

	// Overwrite allows extraction to replace existing files.
	Overwrite bool `yaml:"overwrite"`

	// Progress enables byte-progress lines on stdout.
	Progress bool `yaml:"progress"`

	// Log configures diagnostic logging on stderr.
	Log LogConfig `yaml:"log"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Compression: core.CompressionZstd.String(),
		Level:       core.LevelDefault.String(),
		Overwrite:   true,
		Progress:    false,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the file named by path, or by KRAR_CONFIG when path is empty.
// With neither set it returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates one config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := core.ParseCompressionScheme(c.Compression); err != nil {
		errs = append(errs, fmt.Errorf("compression: %w", err))
	}
	if _, err := core.ParseLevel(c.Level); err != nil {
		errs = append(errs, fmt.Errorf("level: %w", err))
	}
	if _, err := parseLogLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// CompressionOption returns the writer option matching Compression and Level.
func (c *Config) CompressionOption() (core.Option, error) {
	scheme, err := core.ParseCompressionScheme(c.Compression)
	if err != nil {
		return nil, err
	}
	level, err := core.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	return core.WithCompression(scheme, level), nil
}

// NewLogger builds the slog logger described by Log, writing to w.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLogLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Log.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
}

func parseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, err
	}
	return level, nil
}
