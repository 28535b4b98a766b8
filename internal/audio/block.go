package audio

import (
	"errors"
	"fmt"
	"io"
)

// frameSource is implemented by each codec variant.
type frameSource interface {
	// read fills dst with interleaved samples at the source's channel count
	// and returns the number of whole frames written.
	read(dst []float32) (int, error)
	close() error
}

// maxEmptyReads bounds how many times a source may return nothing without
// an error before it is considered stuck.
const maxEmptyReads = 64

// blockDecoder turns a frameSource into numbered, channel-normalized blocks.
type blockDecoder struct {
	stream      Stream
	src         frameSource
	srcChannels int
	next        int64
	buf         []float32
	err         error
}

func newBlockDecoder(src frameSource, stream Stream) *blockDecoder {
	srcChannels := stream.Channels
	if stream.Channels > MaxChannels {
		stream.Channels = MaxChannels
	}
	stream.Duration = durationOf(stream.Frames, stream.SampleRate)
	return &blockDecoder{
		stream:      stream,
		src:         src,
		srcChannels: srcChannels,
		buf:         make([]float32, BlockFrames*srcChannels),
	}
}

func (d *blockDecoder) Stream() Stream { return d.stream }

func (d *blockDecoder) Next() (SampleBlock, error) {
	if d.err != nil {
		return SampleBlock{}, d.err
	}

	for range maxEmptyReads {
		n, err := d.src.read(d.buf)
		if n > 0 {
			block := SampleBlock{
				Start:    d.next,
				Channels: d.stream.Channels,
				Samples:  foldChannels(d.buf[:n*d.srcChannels], d.srcChannels, d.stream.Channels),
			}
			d.next += int64(n)
			if err != nil {
				d.err = classify(err, d.next)
			}
			return block, nil
		}
		if err != nil {
			d.err = classify(err, d.next)
			return SampleBlock{}, d.err
		}
	}
	d.err = fmt.Errorf("%w: decoder made no progress at frame %d", ErrCorrupt, d.next)
	return SampleBlock{}, d.err
}

func (d *blockDecoder) Close() error {
	return d.src.close()
}

func classify(err error, frame int64) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return io.EOF
	case errors.Is(err, ErrCorrupt), errors.Is(err, ErrIO):
		return err
	}
	return fmt.Errorf("%w: at frame %d: %w", ErrCorrupt, frame, err)
}

// foldChannels copies samples into a fresh slice. Layouts wider than stereo
// are averaged into left (even channels) and right (odd channels).
func foldChannels(in []float32, srcChannels, out int) []float32 {
	if srcChannels == out {
		res := make([]float32, len(in))
		copy(res, in)
		return res
	}

	frames := len(in) / srcChannels
	res := make([]float32, frames*out)
	for i := range frames {
		frame := in[i*srcChannels : (i+1)*srcChannels]
		var left, right float32
		var nl, nr int
		for ch, s := range frame {
			if ch%2 == 0 {
				left += s
				nl++
			} else {
				right += s
				nr++
			}
		}
		if nl > 0 {
			left /= float32(nl)
		}
		if nr > 0 {
			right /= float32(nr)
		}
		res[i*2] = left
		res[i*2+1] = right
	}
	return res
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
