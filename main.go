package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/olivier-w/termscope/internal/audio"
	"github.com/olivier-w/termscope/internal/clock"
	"github.com/olivier-w/termscope/internal/player"
	"github.com/olivier-w/termscope/internal/ringbuf"
	"github.com/olivier-w/termscope/internal/scheduler"
	"github.com/olivier-w/termscope/internal/ui"
)

// version is set via ldflags at build time.
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var c cli
	parser, err := kong.New(&c,
		kong.Name("termscope"),
		kong.Description("Play an audio file and draw its waveform or spectrum in the terminal."),
		kong.Vars{"version": version},
		kong.UsageOnError(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	if c.Version {
		fmt.Printf("termscope %s\n", version)
		return exitOK
	}
	if c.File == "" {
		fmt.Fprintln(os.Stderr, "Error: expected <file>")
		_ = kctx.PrintUsage(false)
		return exitUsage
	}

	cfg, err := loadConfig(&c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	logger, closeLog, err := newLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer closeLog()

	// Open the file before taking over the terminal so format errors are
	// printed on a normal screen.
	dec, err := audio.Open(c.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return openExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	title := audio.ReadTitle(c.File)
	canvas, err := ui.Open(ui.Options{Title: title, OnQuit: cancel})
	if err != nil {
		dec.Close()
		res := scheduler.Result{Outcome: scheduler.OutcomeTerminalUnavailable, Err: err}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(res)
	}
	// The program exiting on its own (terminal gone) also ends the session.
	go func() {
		select {
		case <-canvas.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	deps := scheduler.Deps{
		Open:   func(string) (audio.Decoder, error) { return dec, nil },
		Canvas: canvas,
		Wall:   clock.System{},
		Logger: logger,
	}
	if cfg.Audio.Enabled {
		volume := cfg.Audio.Volume
		deps.Output = func(ctx context.Context, ring *ringbuf.Ring, stream audio.Stream) (scheduler.Output, error) {
			dev, err := player.Open(ctx, ring, stream.SampleRate, volume)
			if err != nil {
				return nil, err
			}
			return dev, nil
		}
	}

	logger.Info("starting", "file", c.File, "mode", describeMode(cfg.VisualMode(), cfg.Gradient), "audio", cfg.Audio.Enabled)
	res := scheduler.New(sessionOptions(cfg, c.File, title), deps).Run(ctx)

	if err := canvas.Close(); err != nil {
		logger.Warn("restore terminal", "err", err)
	}
	if res.Err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
	}
	return exitCode(res)
}
