package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

type wavSource struct {
	file     *os.File
	dec      *wav.Decoder
	intBuf   *audio.IntBuffer
	channels int
	bitDepth int
	scale    float32
}

func newWAVSource(f *os.File) (*wavSource, Stream, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, Stream{}, fmt.Errorf("%w: invalid WAV header", ErrCorrupt)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, Stream{}, fmt.Errorf("%w: seeking to WAV PCM data: %w", ErrCorrupt, err)
	}

	switch dec.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
	case wavFormatFloat:
		return nil, Stream{}, fmt.Errorf("%w: floating-point WAV", ErrUnsupportedFormat)
	default:
		return nil, Stream{}, fmt.Errorf("%w: WAV encoding %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	bitDepth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, Stream{}, fmt.Errorf("%w: %d-bit WAV", ErrUnsupportedFormat, bitDepth)
	}
	if channels < 1 {
		return nil, Stream{}, fmt.Errorf("%w: WAV with %d channels", ErrCorrupt, channels)
	}

	frameBytes := int64(channels * bitDepth / 8)
	frames := dec.PCMLen() / frameBytes

	src := &wavSource{
		file:     f,
		dec:      dec,
		channels: channels,
		bitDepth: bitDepth,
		scale:    float32(audio.IntMaxSignedValue(bitDepth)),
		intBuf: &audio.IntBuffer{
			Data: make([]int, BlockFrames*channels),
			Format: &audio.Format{
				NumChannels: channels,
				SampleRate:  int(dec.SampleRate),
			},
		},
	}
	stream := Stream{
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
		Frames:     frames,
	}
	return src, stream, nil
}

func (s *wavSource) read(dst []float32) (int, error) {
	want := len(dst) / s.channels * s.channels
	if cap(s.intBuf.Data) < want {
		s.intBuf.Data = make([]int, want)
	}
	s.intBuf.Data = s.intBuf.Data[:want]

	n, err := s.dec.PCMBuffer(s.intBuf)
	n -= n % s.channels
	for i := range n {
		v := s.intBuf.Data[i]
		if s.bitDepth == 8 {
			// 8-bit WAV is unsigned.
			dst[i] = clampSample(float32(v-128) / 128)
			continue
		}
		dst[i] = clampSample(float32(v) / s.scale)
	}
	frames := n / s.channels
	if err != nil {
		return frames, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return frames, nil
}

func (s *wavSource) close() error {
	return s.file.Close()
}
