package audio

import (
	"fmt"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

type oggSource struct {
	file     *os.File
	reader   *oggvorbis.Reader
	channels int
}

func newOGGSource(f *os.File) (*oggSource, Stream, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, Stream{}, fmt.Errorf("%w: decoding Ogg Vorbis: %w", ErrCorrupt, err)
	}

	frames := int64(-1)
	if n := reader.Length(); n > 0 {
		frames = n
	}
	return &oggSource{file: f, reader: reader, channels: reader.Channels()}, Stream{
		SampleRate: reader.SampleRate(),
		Channels:   reader.Channels(),
		Frames:     frames,
	}, nil
}

func (s *oggSource) read(dst []float32) (int, error) {
	want := len(dst) / s.channels * s.channels
	got := 0
	for got < want {
		n, err := s.reader.Read(dst[got:want])
		got += n
		if err != nil {
			return got / s.channels, err
		}
		if n == 0 {
			break
		}
	}
	for i := range got {
		dst[i] = clampSample(dst[i])
	}
	return got / s.channels, nil
}

func (s *oggSource) close() error {
	return s.file.Close()
}
