package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/olivier-w/termscope/internal/config"
	"github.com/olivier-w/termscope/internal/visualizer"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()
	if err := config.Validate(config.Default()); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoadFromReader_EmptyKeepsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FPS != 30 || cfg.WindowSize != 1024 || cfg.Pacing != "drop" || !cfg.Audio.Enabled {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromReader_OverridesDefaults(t *testing.T) {
	t.Parallel()
	yaml := `
mode: waveform
gradient: true
fps: 60
window_size: 2048
smoothing: spring
spring:
  frequency: 4
  damping: 0.5
colors:
  single: 82
audio:
  enabled: false
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VisualMode() != visualizer.ModeWaveform {
		t.Fatalf("expected waveform mode, got %v", cfg.VisualMode())
	}
	if cfg.FPS != 60 || cfg.WindowSize != 2048 || cfg.Audio.Enabled {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.Audio.Volume != 0.8 {
		t.Fatalf("expected unspecified audio.volume to keep its default, got %v", cfg.Audio.Volume)
	}

	opts := cfg.BuilderOptions()
	if opts.Smoothing != visualizer.SmoothSpring || opts.SpringFrequency != 4 || opts.FPS != 60 {
		t.Fatalf("unexpected builder options: %+v", opts)
	}
	if !opts.Palette.Gradient || opts.Palette.Single != 82 || len(opts.Palette.Stops) != 5 {
		t.Fatalf("unexpected palette: %+v", opts.Palette)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("framerate: 30\n"))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_JoinsAllProblems(t *testing.T) {
	t.Parallel()
	yaml := `
mode: lissajous
fps: 0
window_size: 1000
pacing: burst
log:
  level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"mode", "fps 0", "window_size 1000", "pacing", "log.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_Ranges(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"decay", func(c *config.Config) { c.Decay = 1 }, "decay"},
		{"db range", func(c *config.Config) { c.MinDB = 0; c.MaxDB = -10 }, "min_db"},
		{"floor", func(c *config.Config) { c.FloorDB = -50 }, "floor_db"},
		{"prime", func(c *config.Config) { c.PrimeSeconds = 10 }, "prime_seconds"},
		{"colour", func(c *config.Config) { c.Colors.Stops = []int{39, 300} }, "colors.stops[1]"},
		{"gradient stops", func(c *config.Config) { c.Gradient = true; c.Colors.Stops = nil }, "colors.stops is empty"},
		{"volume", func(c *config.Config) { c.Audio.Volume = 1.5 }, "audio.volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "termscope.yaml")
	if err := os.WriteFile(path, []byte("fps: 24\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FPS != 24 {
		t.Fatalf("expected fps 24, got %d", cfg.FPS)
	}
}

func TestLoadFromReader_ZeroDecayDisablesBlending(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("decay: 0\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("decay 0 should validate, got: %v", err)
	}

	b := visualizer.NewBuilder(cfg.BuilderOptions())
	mags := make([]float64, 512)
	for i := range mags {
		mags[i] = cfg.MaxDB
	}
	frame := visualizer.Frame{Mode: visualizer.ModeSpectrum, Spectrum: visualizer.SpectrumFrame{
		SampleRate: 44100, FloorDB: cfg.FloorDB, Magnitudes: mags,
	}}
	g := b.Build(frame, nil, 4, 8)
	for c, level := range g.Levels {
		if level != 1 {
			t.Fatalf("column %d: expected unblended level 1, got %v", c, level)
		}
	}
}
