package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/olivier-w/termscope/internal/visualizer"
)

const (
	maxFPS        = 240
	maxWindowSize = 1 << 16
)

// Load reads the YAML file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates the
// result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := visualizer.ParseMode(cfg.Mode); err != nil {
		errs = append(errs, fmt.Errorf("mode: %w", err))
	}
	if cfg.FPS < 1 || cfg.FPS > maxFPS {
		errs = append(errs, fmt.Errorf("fps %d is out of range [1, %d]", cfg.FPS, maxFPS))
	}
	if n := cfg.WindowSize; n < visualizer.MinWindowSize || n > maxWindowSize || n&(n-1) != 0 {
		errs = append(errs, fmt.Errorf("window_size %d must be a power of two in [%d, %d]",
			n, visualizer.MinWindowSize, maxWindowSize))
	}
	if _, err := visualizer.ParseSmoothing(cfg.Smoothing); err != nil {
		errs = append(errs, fmt.Errorf("smoothing: %w", err))
	}
	if cfg.Decay < 0 || cfg.Decay >= 1 {
		errs = append(errs, fmt.Errorf("decay %.2f is out of range [0, 1)", cfg.Decay))
	}
	if cfg.Spring.Frequency <= 0 {
		errs = append(errs, fmt.Errorf("spring.frequency %.2f must be positive", cfg.Spring.Frequency))
	}
	if cfg.Spring.Damping <= 0 {
		errs = append(errs, fmt.Errorf("spring.damping %.2f must be positive", cfg.Spring.Damping))
	}
	if cfg.Pacing != "drop" && cfg.Pacing != "queue" {
		errs = append(errs, fmt.Errorf("pacing %q is invalid; valid values: drop, queue", cfg.Pacing))
	}

	if cfg.BufferSeconds <= 0 {
		errs = append(errs, fmt.Errorf("buffer_seconds %.2f must be positive", cfg.BufferSeconds))
	}
	if cfg.PrimeSeconds < 0 || cfg.PrimeSeconds > cfg.BufferSeconds {
		errs = append(errs, fmt.Errorf("prime_seconds %.2f is out of range [0, buffer_seconds]", cfg.PrimeSeconds))
	}

	if cfg.MinDB >= cfg.MaxDB {
		errs = append(errs, fmt.Errorf("min_db %.1f must be below max_db %.1f", cfg.MinDB, cfg.MaxDB))
	}
	if cfg.FloorDB >= 0 {
		errs = append(errs, fmt.Errorf("floor_db %.1f must be negative", cfg.FloorDB))
	}
	if cfg.FloorDB > cfg.MinDB {
		errs = append(errs, fmt.Errorf("floor_db %.1f must not exceed min_db %.1f", cfg.FloorDB, cfg.MinDB))
	}

	if !validColor(cfg.Colors.Single) {
		errs = append(errs, fmt.Errorf("colors.single %d is out of range [0, 255]", cfg.Colors.Single))
	}
	if cfg.Gradient && len(cfg.Colors.Stops) == 0 {
		errs = append(errs, errors.New("colors.stops is empty but gradient is enabled"))
	}
	for i, s := range cfg.Colors.Stops {
		if !validColor(s) {
			errs = append(errs, fmt.Errorf("colors.stops[%d] %d is out of range [0, 255]", i, s))
		}
	}

	if cfg.Audio.Volume < 0 || cfg.Audio.Volume > 1 {
		errs = append(errs, fmt.Errorf("audio.volume %.2f is out of range [0, 1]", cfg.Audio.Volume))
	}
	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	return errors.Join(errs...)
}

func validColor(c int) bool {
	return c >= 0 && c <= 255
}
