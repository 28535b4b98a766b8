package media

import (
	"bytes"
	"strings"
)

// Format identifies an audio container by its content.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatVorbis  Format = "ogg"
	FormatOpus    Format = "opus"
	FormatMP4     Format = "mp4"
	FormatADTS    Format = "aac"
)

// HeaderSize is the number of leading bytes Detect looks at.
const HeaderSize = 64

var audioExts = map[string]Format{
	".mp3":  FormatMP3,
	".wav":  FormatWAV,
	".flac": FormatFLAC,
	".ogg":  FormatVorbis,
	".aac":  FormatADTS,
	".m4a":  FormatMP4,
	".m4b":  FormatMP4,
}

// Supported reports whether termscope can decode f.
func (f Format) Supported() bool {
	switch f {
	case FormatWAV, FormatMP3, FormatFLAC, FormatVorbis:
		return true
	}
	return false
}

// Detect sniffs the container from the first bytes of a file.
func Detect(header []byte) Format {
	switch {
	case len(header) >= 12 && bytes.Equal(header[0:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(header, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(header, []byte("OggS")):
		return detectOgg(header)
	case len(header) >= 8 && bytes.Equal(header[4:8], []byte("ftyp")):
		return FormatMP4
	case bytes.HasPrefix(header, []byte("ID3")):
		// ID3v2 is used in front of both MP3 and, rarely, FLAC; MP3 is the
		// overwhelmingly common case.
		return FormatMP3
	case isADTS(header):
		return FormatADTS
	case isMPEGAudio(header):
		return FormatMP3
	}
	return FormatUnknown
}

// FormatFromExt is a fallback for content Detect cannot place.
func FormatFromExt(ext string) Format {
	return audioExts[strings.ToLower(ext)]
}

// SupportedList returns a human-readable list of decodable formats.
func SupportedList() string {
	return "wav, mp3, flac, ogg vorbis"
}

func detectOgg(header []byte) Format {
	// The first page carries the codec identification packet right after the
	// 27-byte page header and its segment table.
	if len(header) < 28 {
		return FormatVorbis
	}
	segments := int(header[26])
	body := 27 + segments
	if body >= len(header) {
		return FormatVorbis
	}
	packet := header[body:]
	switch {
	case bytes.HasPrefix(packet, []byte("\x01vorbis")):
		return FormatVorbis
	case bytes.HasPrefix(packet, []byte("OpusHead")):
		return FormatOpus
	}
	return FormatUnknown
}

// isMPEGAudio checks for an MPEG audio frame sync with a valid layer,
// bitrate and sample-rate index.
func isMPEGAudio(h []byte) bool {
	if len(h) < 4 {
		return false
	}
	if h[0] != 0xFF || h[1]&0xE0 != 0xE0 {
		return false
	}
	version := (h[1] >> 3) & 0x03
	layer := (h[1] >> 1) & 0x03
	bitrate := h[2] >> 4
	rate := (h[2] >> 2) & 0x03
	return version != 0x01 && layer != 0x00 && bitrate != 0x0F && rate != 0x03
}

// isADTS checks for the AAC ADTS sync word (layer bits are always zero).
func isADTS(h []byte) bool {
	return len(h) >= 2 && h[0] == 0xFF && h[1]&0xF6 == 0xF0
}
