package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// ExtractCoverArt returns a track's cover art: embedded picture first,
// falling back to a folder image file matching one of stems (checked
// case-insensitively against each of exts, in order).
func ExtractCoverArt(path string, stems, exts []string) (data []byte, mimeType string, err error) {
	if data, mimeType, err = extractEmbeddedArt(path); err != nil {
		return nil, "", err
	}
	if data != nil {
		return data, mimeType, nil
	}
	return findFolderArt(filepath.Dir(path), stems, exts)
}

func extractEmbeddedArt(path string) (data []byte, mimeType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Formats dhowden/tag can't parse are covered by their own
		// format-specific readers elsewhere; here a parse failure just
		// means no embedded art was found.
		return nil, "", nil
	}
	pic := m.Picture()
	if pic == nil {
		return nil, "", nil
	}
	return pic.Data, pic.MIMEType, nil
}

func findFolderArt(dir string, stems, exts []string) (data []byte, mimeType string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", nil
	}
	for _, stem := range stems {
		for _, ext := range exts {
			want := strings.ToLower(stem + "." + ext)
			for _, e := range entries {
				if e.IsDir() || !strings.EqualFold(e.Name(), want) {
					continue
				}
				data, err := os.ReadFile(filepath.Join(dir, e.Name()))
				if err != nil {
					continue
				}
				return data, mimeTypeForExt(ext), nil
			}
		}
	}
	return nil, "", nil
}

func mimeTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "png":
		return mimePNG
	default:
		return mimeJPEG
	}
}
