package tags

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhowden/tag"

	"github.com/rose-music/rose/internal/rose"
)

// Read projects path's on-disk tags onto the canonical Record. The
// file must have a supported extension; an unrecognized one is the
// caller's concern (the scanner treats it as skip, not error).
func Read(path string) (Record, error) {
	switch extOf(path) {
	case ExtFLAC:
		return readFLAC(path)
	case ExtMP3:
		return readMP3(path)
	case ExtM4A, ExtMP4:
		return readM4A(path)
	case ExtOPUS, ExtOGG:
		return readOpus(path)
	}
	return Record{}, rose.Expectedf(rose.OpTagRead, "unsupported extension: %s", filepath.Ext(path))
}

// probeTitle falls back to the bare filename when a format handler
// can't recover a track title, matching every handler's behavior.
func probeTitle(path, title string) string {
	if title != "" {
		return title
	}
	return filepath.Base(path)
}

// dhowdenGenericProbe reads path with dhowden/tag's format-agnostic
// reader. None of the format handlers in this package calls it.
func dhowdenGenericProbe(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tag.ReadFrom(f)
}

func readErr(op rose.Op, path string, err error) error {
	return rose.Wrap(op, rose.Expected, fmt.Errorf("%s: %w", path, err))
}
