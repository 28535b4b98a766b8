package player

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync/atomic"

	"github.com/olivier-w/termscope/internal/ringbuf"
)

const bytesPerSample = 2 // s16le

// frameReader is the part of the ring the device pulls from.
type frameReader interface {
	ReadBlocking(ctx context.Context, id ringbuf.Cursor, dst []float32) (int, error)
}

// pcmReader turns ring frames into the s16le byte stream oto consumes and
// counts the frames it has handed over.
type pcmReader struct {
	ctx      context.Context
	src      frameReader
	channels int

	scratch  []float32
	consumed atomic.Int64
}

func newPCMReader(ctx context.Context, src frameReader, channels int) *pcmReader {
	return &pcmReader{ctx: ctx, src: src, channels: channels}
}

// Read fills p with whole frames. Shutdown of the ring is reported as io.EOF
// so the oto player stops without recording an error.
func (r *pcmReader) Read(p []byte) (int, error) {
	frameBytes := r.channels * bytesPerSample
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	if need := frames * r.channels; cap(r.scratch) < need {
		r.scratch = make([]float32, need)
	}
	buf := r.scratch[:frames*r.channels]

	n, err := r.src.ReadBlocking(r.ctx, ringbuf.Playback, buf)
	if err != nil {
		if errors.Is(err, ringbuf.ErrAborted) || errors.Is(err, context.Canceled) {
			return 0, io.EOF
		}
		return 0, err
	}

	samples := buf[:n*r.channels]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(p[i*bytesPerSample:], uint16(toInt16(s)))
	}
	r.consumed.Add(int64(n))
	return n * frameBytes, nil
}

// Consumed returns the number of frames handed to the device so far.
func (r *pcmReader) Consumed() int64 {
	return r.consumed.Load()
}

func toInt16(s float32) int16 {
	v := math.Round(float64(s) * math.MaxInt16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
