// Package audio opens audio files and decodes them into normalized float32
// sample blocks. Everything downstream of this package is format-agnostic.
package audio

import (
	"errors"
	"time"

	"github.com/olivier-w/termscope/internal/media"
)

var (
	// ErrUnsupportedFormat reports content no decoder variant understands.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrIO reports a failure to open or read the file itself.
	ErrIO = errors.New("audio i/o error")
	// ErrCorrupt reports undecodable data. It is terminal for a stream.
	ErrCorrupt = errors.New("corrupt audio data")
)

// BlockFrames is the number of frames in every block except the last.
const BlockFrames = 4096

// MaxChannels is the widest layout blocks are normalized to.
const MaxChannels = 2

// Stream describes a decoded stream. It does not change after Open.
type Stream struct {
	SampleRate int
	Channels   int
	// Frames is the total frame count, or -1 when unknown.
	Frames   int64
	Duration time.Duration
	Format   media.Format
}

// SampleBlock is a run of interleaved samples in [-1, 1] starting at frame
// index Start.
type SampleBlock struct {
	Start    int64
	Channels int
	Samples  []float32
}

// Frames returns the number of frames in the block.
func (b SampleBlock) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// End returns the index one past the last frame of the block.
func (b SampleBlock) End() int64 {
	return b.Start + int64(b.Frames())
}

// Decoder yields the blocks of one stream. Next returns io.EOF at the end of
// the stream; any other error is terminal and matches ErrCorrupt or ErrIO.
type Decoder interface {
	Stream() Stream
	Next() (SampleBlock, error)
	Close() error
}

func durationOf(frames int64, rate int) time.Duration {
	if frames <= 0 || rate <= 0 {
		return 0
	}
	return time.Duration(frames * int64(time.Second) / int64(rate))
}
