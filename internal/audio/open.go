package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olivier-w/termscope/internal/media"
)

// Open sniffs the file at path and returns a decoder for its content. The
// extension is only consulted when the content is inconclusive.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	format, err := sniff(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if format == media.FormatUnknown {
		format = media.FormatFromExt(filepath.Ext(path))
	}
	if !format.Supported() {
		f.Close()
		if format == media.FormatUnknown {
			return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, filepath.Base(path), media.SupportedList())
		}
		return nil, fmt.Errorf("%w: %s content (supported: %s)", ErrUnsupportedFormat, format, media.SupportedList())
	}

	src, stream, err := openSource(format, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	stream.Format = format
	if stream.SampleRate <= 0 {
		src.close()
		return nil, fmt.Errorf("%w: invalid sample rate %d", ErrCorrupt, stream.SampleRate)
	}
	if stream.Channels < 1 {
		src.close()
		return nil, fmt.Errorf("%w: invalid channel count %d", ErrCorrupt, stream.Channels)
	}
	return newBlockDecoder(src, stream), nil
}

func sniff(f *os.File) (media.Format, error) {
	header := make([]byte, media.HeaderSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return media.FormatUnknown, fmt.Errorf("%w: reading header: %w", ErrIO, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return media.FormatUnknown, fmt.Errorf("%w: rewinding: %w", ErrIO, err)
	}
	return media.Detect(header[:n]), nil
}

func openSource(format media.Format, f *os.File) (frameSource, Stream, error) {
	switch format {
	case media.FormatWAV:
		return newWAVSource(f)
	case media.FormatMP3:
		return newMP3Source(f)
	case media.FormatFLAC:
		return newFLACSource(f)
	case media.FormatVorbis:
		return newOGGSource(f)
	}
	return nil, Stream{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
