package audio

import (
	"fmt"
	"os"

	"github.com/mewkiz/flac"
)

type flacSource struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	pending  []float32
}

func newFLACSource(f *os.File) (*flacSource, Stream, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, Stream{}, fmt.Errorf("%w: decoding FLAC: %w", ErrCorrupt, err)
	}

	info := stream.Info
	frames := int64(-1)
	if info.NSamples > 0 {
		frames = int64(info.NSamples)
	}
	src := &flacSource{
		file:     f,
		stream:   stream,
		channels: int(info.NChannels),
	}
	return src, Stream{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		Frames:     frames,
	}, nil
}

func (s *flacSource) read(dst []float32) (int, error) {
	want := len(dst) / s.channels
	got := 0
	for got < want {
		if len(s.pending) == 0 {
			if err := s.parseFrame(); err != nil {
				return got, err
			}
			continue
		}
		n := copy(dst[got*s.channels:want*s.channels], s.pending)
		s.pending = s.pending[n:]
		got += n / s.channels
	}
	return got, nil
}

// parseFrame decodes the next FLAC frame into pending, interleaved.
func (s *flacSource) parseFrame() error {
	frame, err := s.stream.ParseNext()
	if err != nil {
		return err
	}
	if len(frame.Subframes) != s.channels {
		return fmt.Errorf("%w: frame has %d subframes, stream has %d channels", ErrCorrupt, len(frame.Subframes), s.channels)
	}

	nSamples := len(frame.Subframes[0].Samples)
	scale := float32(int64(1) << (frame.BitsPerSample - 1))
	out := make([]float32, nSamples*s.channels)
	for ch, sub := range frame.Subframes {
		if len(sub.Samples) < nSamples {
			return fmt.Errorf("%w: short subframe on channel %d", ErrCorrupt, ch)
		}
		for i := range nSamples {
			out[i*s.channels+ch] = clampSample(float32(sub.Samples[i]) / scale)
		}
	}
	s.pending = out
	return nil
}

func (s *flacSource) close() error {
	s.stream.Close()
	return s.file.Close()
}
