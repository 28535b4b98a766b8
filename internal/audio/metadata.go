package audio

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// ReadTitle returns the ID3v2 title of the file, falling back to the file
// name without its extension.
func ReadTitle(path string) string {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err == nil {
		defer tag.Close()
		title := strings.TrimSpace(tag.Title())
		if artist := strings.TrimSpace(tag.Artist()); artist != "" && title != "" {
			return artist + " - " + title
		}
		if title != "" {
			return title
		}
	}

	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
