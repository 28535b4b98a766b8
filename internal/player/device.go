// Package player plays the decoded stream through the system audio device
// and reports how far playback has actually progressed.
package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/olivier-w/termscope/internal/ringbuf"
)

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
	otoRate      int
	otoChannels  int
)

// oto allows a single context per process, fixed to the format of the first
// stream opened.
func initOto(rate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			otoRate, otoChannels = rate, channels
		}
	})
	if otoInitErr != nil {
		return nil, fmt.Errorf("init audio output: %w", otoInitErr)
	}
	if rate != otoRate || channels != otoChannels {
		return nil, fmt.Errorf("audio output already opened at %d Hz/%d ch, stream is %d Hz/%d ch",
			otoRate, otoChannels, rate, channels)
	}
	return globalOtoCtx, nil
}

// Device drains the ring's playback cursor into an oto player.
type Device struct {
	player     *oto.Player
	pcm        *pcmReader
	frameBytes int
	cancel     context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// Open starts playback of ring at the given format. The device stops pulling
// frames when ctx is done, the ring is aborted, or Close is called.
func Open(ctx context.Context, ring *ringbuf.Ring, rate int, volume float64) (*Device, error) {
	channels := ring.Channels()
	otoCtx, err := initOto(rate, channels)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	pcm := newPCMReader(ctx, ring, channels)

	d := &Device{
		player:     otoCtx.NewPlayer(pcm),
		pcm:        pcm,
		frameBytes: channels * bytesPerSample,
		cancel:     cancel,
	}
	d.player.SetVolume(clampVolume(volume))
	d.player.Play()
	return d, nil
}

// PlayedFrames returns the frames that have left oto's buffer. ok is false
// once the player has failed.
func (d *Device) PlayedFrames() (int64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.player.Err() != nil {
		return 0, false
	}
	return playedFrames(d.pcm.Consumed(), d.player.BufferedSize(), d.frameBytes), true
}

// Err returns the player error, if any.
func (d *Device) Err() error {
	return d.player.Err()
}

// Close stops playback and releases the player.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	d.cancel()
	d.player.Pause()
	return d.player.Close()
}

func playedFrames(consumed int64, bufferedBytes, frameBytes int) int64 {
	if frameBytes <= 0 {
		return consumed
	}
	played := consumed - int64(bufferedBytes/frameBytes)
	if played < 0 {
		return 0
	}
	return played
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
