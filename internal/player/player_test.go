package player

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/olivier-w/termscope/internal/audio"
	"github.com/olivier-w/termscope/internal/ringbuf"
	"github.com/olivier-w/termscope/internal/scheduler"
)

type abortedSource struct{}

func (abortedSource) ReadBlocking(context.Context, ringbuf.Cursor, []float32) (int, error) {
	return 0, ringbuf.ErrAborted
}

func TestPCMReaderConvertsAndCounts(t *testing.T) {
	ring := ringbuf.New(16, 2)
	block := audio.SampleBlock{Start: 0, Channels: 2, Samples: []float32{0, 1, -1, 0.5, 2, -2}}
	if err := ring.Write(context.Background(), block); err != nil {
		t.Fatal(err)
	}
	ring.Close()

	r := newPCMReader(context.Background(), ring, 2)
	p := make([]byte, 64)
	n, err := r.Read(p)
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if n != 12 {
		t.Fatalf("expected 12 bytes for 3 stereo frames, got %d", n)
	}

	want := []int16{0, math.MaxInt16, -math.MaxInt16, 16384, math.MaxInt16, math.MinInt16}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(p[i*2:]))
		if got != w {
			t.Fatalf("sample %d: expected %d, got %d", i, w, got)
		}
	}
	if got := r.Consumed(); got != 3 {
		t.Fatalf("expected 3 consumed frames, got %d", got)
	}
	if got := ring.Position(ringbuf.Playback); got != 3 {
		t.Fatalf("expected playback cursor at 3, got %d", got)
	}

	if _, err := r.Read(p); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after drain, got %v", err)
	}
}

func TestPCMReaderIgnoresPartialFrames(t *testing.T) {
	r := newPCMReader(context.Background(), ringbuf.New(4, 2), 2)
	if n, err := r.Read(make([]byte, 3)); n != 0 || err != nil {
		t.Fatalf("expected empty read for a sub-frame buffer, got %d (%v)", n, err)
	}
}

func TestPCMReaderTreatsAbortAsEOF(t *testing.T) {
	r := newPCMReader(context.Background(), abortedSource{}, 1)
	if _, err := r.Read(make([]byte, 8)); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on abort, got %v", err)
	}
}

func TestPlayedFramesSubtractsBuffered(t *testing.T) {
	tests := []struct {
		consumed   int64
		buffered   int
		frameBytes int
		want       int64
	}{
		{consumed: 1000, buffered: 400, frameBytes: 4, want: 900},
		{consumed: 10, buffered: 400, frameBytes: 4, want: 0},
		{consumed: 10, buffered: 3, frameBytes: 4, want: 10},
		{consumed: 7, buffered: 0, frameBytes: 2, want: 7},
	}
	for _, tt := range tests {
		if got := playedFrames(tt.consumed, tt.buffered, tt.frameBytes); got != tt.want {
			t.Fatalf("playedFrames(%d, %d, %d) = %d, want %d", tt.consumed, tt.buffered, tt.frameBytes, got, tt.want)
		}
	}
}

func TestClampVolume(t *testing.T) {
	if clampVolume(-1) != 0 || clampVolume(2) != 1 || clampVolume(0.8) != 0.8 {
		t.Fatal("expected volume clamped to [0, 1]")
	}
}

// Device is the scheduler's audio output and explains why it stopped.
var (
	_ scheduler.Output         = (*Device)(nil)
	_ interface{ Err() error } = (*Device)(nil)
)
