package tags

import (
	"net/http"
	"os"

	"github.com/rose-music/rose/internal/rose"
)

// WriteOptions carries the config knobs write behavior depends on.
type WriteOptions struct {
	WriteParentGenres bool
}

// Write flushes r back to path in its native tag dialect. The file
// must already exist; Write modifies it in place.
func Write(path string, r Record, opts WriteOptions) error {
	if _, err := os.Stat(path); err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Expected, err)
	}
	switch extOf(path) {
	case ExtFLAC:
		return writeFLAC(path, r, opts)
	case ExtMP3:
		return writeMP3(path, r, opts)
	case ExtM4A, ExtMP4:
		return writeM4A(path, r, opts)
	case ExtOPUS, ExtOGG:
		return writeOpus(path, r, opts)
	}
	return rose.Expectedf(rose.OpTagWrite, "unsupported extension: %s", extOf(path))
}

const (
	mimeJPEG = "image/jpeg"
	mimePNG  = "image/png"
)

func detectMimeType(data []byte) string {
	if len(data) == 0 {
		return mimeJPEG
	}
	switch http.DetectContentType(data) {
	case mimePNG:
		return mimePNG
	default:
		return mimeJPEG
	}
}
