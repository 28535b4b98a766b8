// Package config holds the visualizer settings read from an optional YAML
// file and overridden by command-line flags.
package config

import (
	"log/slog"

	"github.com/olivier-w/termscope/internal/visualizer"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog returns the matching slog level; unknown values map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the full set of runtime settings.
type Config struct {
	Mode       string  `yaml:"mode"`
	Gradient   bool    `yaml:"gradient"`
	FPS        int     `yaml:"fps"`
	WindowSize int     `yaml:"window_size"`
	Smoothing  string  `yaml:"smoothing"`
	Decay      float64 `yaml:"decay"`
	Spring     Spring  `yaml:"spring"`
	Pacing     string  `yaml:"pacing"`

	BufferSeconds float64 `yaml:"buffer_seconds"`
	PrimeSeconds  float64 `yaml:"prime_seconds"`

	MinDB   float64 `yaml:"min_db"`
	MaxDB   float64 `yaml:"max_db"`
	FloorDB float64 `yaml:"floor_db"`

	Colors Colors `yaml:"colors"`
	Audio  Audio  `yaml:"audio"`
	Log    Log    `yaml:"log"`
}

// Spring tunes spring smoothing.
type Spring struct {
	Frequency float64 `yaml:"frequency"`
	Damping   float64 `yaml:"damping"`
}

// Colors are 256-colour palette indexes.
type Colors struct {
	Single int   `yaml:"single"`
	Stops  []int `yaml:"stops"`
}

// Audio controls the playback device.
type Audio struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float64 `yaml:"volume"`
}

// Log configures the diagnostic log. The terminal is owned by the
// visualizer, so logs only go to a file.
type Log struct {
	Level LogLevel `yaml:"level"`
	File  string   `yaml:"file"`
}

// Default returns the built-in settings.
func Default() *Config {
	stops := make([]int, len(visualizer.DefaultStops))
	for i, c := range visualizer.DefaultStops {
		stops[i] = int(c)
	}
	return &Config{
		Mode:          "spectrum",
		FPS:           30,
		WindowSize:    visualizer.DefaultWindowSize,
		Smoothing:     "decay",
		Decay:         visualizer.DefaultDecay,
		Spring:        Spring{Frequency: 6, Damping: 0.7},
		Pacing:        "drop",
		BufferSeconds: 4,
		PrimeSeconds:  0.25,
		MinDB:         visualizer.DefaultMinDB,
		MaxDB:         visualizer.DefaultMaxDB,
		FloorDB:       visualizer.DefaultFloorDB,
		Colors:        Colors{Single: int(visualizer.DefaultColor), Stops: stops},
		Audio:         Audio{Enabled: true, Volume: 0.8},
		Log:           Log{Level: LogInfo},
	}
}

// VisualMode returns the parsed mode. It assumes cfg has been validated.
func (c *Config) VisualMode() visualizer.Mode {
	m, _ := visualizer.ParseMode(c.Mode)
	return m
}

// Palette returns the colour palette.
func (c *Config) Palette() visualizer.Palette {
	stops := make([]visualizer.Color, len(c.Colors.Stops))
	for i, s := range c.Colors.Stops {
		stops[i] = visualizer.Color(s)
	}
	return visualizer.Palette{
		Gradient: c.Gradient,
		Single:   visualizer.Color(c.Colors.Single),
		Stops:    stops,
	}
}

// BuilderOptions returns the frame builder settings.
func (c *Config) BuilderOptions() visualizer.BuilderOptions {
	smoothing, _ := visualizer.ParseSmoothing(c.Smoothing)
	return visualizer.BuilderOptions{
		MinDB:           c.MinDB,
		MaxDB:           c.MaxDB,
		Decay:           c.Decay,
		Smoothing:       smoothing,
		FPS:             c.FPS,
		SpringFrequency: c.Spring.Frequency,
		SpringDamping:   c.Spring.Damping,
		Palette:         c.Palette(),
	}
}
