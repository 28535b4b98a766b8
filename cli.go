package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/olivier-w/termscope/internal/audio"
	"github.com/olivier-w/termscope/internal/config"
	"github.com/olivier-w/termscope/internal/scheduler"
	"github.com/olivier-w/termscope/internal/visualizer"
)

const (
	exitOK       = 0
	exitUsage    = 1
	exitNotFound = 2
	exitDecode   = 3
	exitTerminal = 4
)

type cli struct {
	File string `arg:"" optional:"" name:"file" help:"Audio file to visualize (wav, mp3, flac, ogg vorbis)."`

	Mode     string `help:"Visualization mode: waveform or spectrum." placeholder:"MODE"`
	Gradient string `help:"Colour gradient: on or off." placeholder:"on|off"`
	FPS      int    `name:"fps" help:"Frames per second."`
	Window   int    `help:"Analysis window size in frames (power of two)."`
	Config   string `help:"YAML configuration file." type:"path"`
	NoAudio  bool   `help:"Visualize without playing audio."`
	Pacing   string `help:"Late frame policy: drop or queue."`
	LogFile  string `help:"Write diagnostic logs to this file." type:"path"`
	LogLevel string `help:"Log level: debug, info, warn or error."`

	Version bool `help:"Show version information."`
}

// loadConfig reads the optional config file and applies flag overrides.
func loadConfig(c *cli) (*config.Config, error) {
	cfg := config.Default()
	if c.Config != "" {
		var err error
		if cfg, err = config.Load(c.Config); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cfg, c); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config, c *cli) error {
	if c.Mode != "" {
		cfg.Mode = c.Mode
	}
	switch c.Gradient {
	case "":
	case "on":
		cfg.Gradient = true
	case "off":
		cfg.Gradient = false
	default:
		return fmt.Errorf("--gradient %q is invalid; valid values: on, off", c.Gradient)
	}
	if c.FPS != 0 {
		cfg.FPS = c.FPS
	}
	if c.Window != 0 {
		cfg.WindowSize = c.Window
	}
	if c.NoAudio {
		cfg.Audio.Enabled = false
	}
	if c.Pacing != "" {
		cfg.Pacing = c.Pacing
	}
	if c.LogFile != "" {
		cfg.Log.File = c.LogFile
	}
	if c.LogLevel != "" {
		cfg.Log.Level = config.LogLevel(c.LogLevel)
	}
	return nil
}

func sessionOptions(cfg *config.Config, path, title string) scheduler.Options {
	pacing, _ := scheduler.ParsePacing(cfg.Pacing)
	return scheduler.Options{
		Path:          path,
		Title:         title,
		Mode:          cfg.VisualMode(),
		FPS:           cfg.FPS,
		WindowSize:    cfg.WindowSize,
		FloorDB:       cfg.FloorDB,
		Builder:       cfg.BuilderOptions(),
		Pacing:        pacing,
		BufferSeconds: cfg.BufferSeconds,
		PrimeSeconds:  cfg.PrimeSeconds,
	}
}

// newLogger writes text logs to path, or discards them when path is empty.
// The terminal belongs to the visualization, so stderr is not an option.
func newLogger(level config.LogLevel, path string) (*slog.Logger, func(), error) {
	var w io.Writer = io.Discard
	closeFn := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level.Slog()})), closeFn, nil
}

// openExitCode maps a failure to open the input file to an exit code.
func openExitCode(err error) int {
	switch {
	case errors.Is(err, audio.ErrCorrupt):
		return exitDecode
	case errors.Is(err, audio.ErrUnsupportedFormat), errors.Is(err, audio.ErrIO):
		return exitNotFound
	}
	return exitNotFound
}

func exitCode(res scheduler.Result) int {
	switch res.Outcome {
	case scheduler.OutcomeOK, scheduler.OutcomeInterrupted:
		return exitOK
	case scheduler.OutcomeInvalid:
		return exitUsage
	case scheduler.OutcomeOpenFailed:
		return openExitCode(res.Err)
	case scheduler.OutcomeDecodeFailed:
		return exitDecode
	case scheduler.OutcomeTerminalUnavailable:
		return exitTerminal
	}
	return exitUsage
}

func describeMode(m visualizer.Mode, gradient bool) string {
	if gradient {
		return m.String() + " (gradient)"
	}
	return m.String()
}
