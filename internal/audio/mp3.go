package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always yields 16-bit little-endian stereo.
const (
	mp3Channels   = 2
	mp3FrameBytes = mp3Channels * 2
)

type mp3Source struct {
	file *os.File
	dec  *mp3.Decoder
	raw  []byte
}

func newMP3Source(f *os.File) (*mp3Source, Stream, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, Stream{}, fmt.Errorf("%w: decoding MP3: %w", ErrCorrupt, err)
	}

	frames := int64(-1)
	if n := dec.Length(); n >= 0 {
		frames = n / mp3FrameBytes
	}
	stream := Stream{
		SampleRate: dec.SampleRate(),
		Channels:   mp3Channels,
		Frames:     frames,
	}
	return &mp3Source{file: f, dec: dec}, stream, nil
}

func (s *mp3Source) read(dst []float32) (int, error) {
	frames := len(dst) / mp3Channels
	if cap(s.raw) < frames*mp3FrameBytes {
		s.raw = make([]byte, frames*mp3FrameBytes)
	}
	raw := s.raw[:frames*mp3FrameBytes]

	// Fill as much of the block as the decoder will give before an error.
	total := 0
	var err error
	for total < len(raw) {
		var n int
		n, err = s.dec.Read(raw[total:])
		total += n
		if err != nil || n == 0 {
			break
		}
	}

	got := total / mp3FrameBytes
	for i := range got * mp3Channels {
		v := int16(uint16(raw[i*2]) | uint16(raw[i*2+1])<<8)
		dst[i] = float32(v) / 32768
	}
	if got == 0 && err == nil {
		return 0, io.EOF
	}
	return got, err
}

func (s *mp3Source) close() error {
	return s.file.Close()
}
