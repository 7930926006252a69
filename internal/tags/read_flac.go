package tags

import (
	"strconv"
	"strings"

	goflac "github.com/go-flac/go-flac"

	"github.com/rose-music/rose/internal/rose"
)

func readFLAC(path string) (Record, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return Record{}, readErr(rose.OpTagRead, path, err)
	}

	comments := make(map[string][]string)
	for _, meta := range f.Meta {
		if meta.Type == goflac.VorbisComment {
			mergeVorbisComments(comments, parseVorbisComments(meta.Data))
		}
	}

	c := vorbisComments(comments)
	r := Record{
		ReleaseID:       c.get("ROSERELEASEID"),
		ID:              c.get("ROSEID"),
		ReleaseTitle:    c.get("ALBUM"),
		ReleaseType:     NormalizeReleaseType(c.get("RELEASETYPE")),
		Edition:         c.get("EDITION"),
		CatalogNumber:   c.get("CATALOGNUMBER"),
		TrackNumber:     c.getInt("TRACKNUMBER"),
		TrackTotal:      c.getInt("TRACKTOTAL", "TOTALTRACKS"),
		DiscNumber:      c.getInt("DISCNUMBER"),
		DiscTotal:       c.getInt("DISCTOTAL", "TOTALDISCS"),
		TrackTitle:      probeTitle(path, c.get("TITLE")),
		Genre:           SplitGenreField(c.get("GENRE")),
		SecondaryGenre:  SplitGenreField(c.get("SECONDARYGENRE")),
		Descriptor:      splitSemicolon(c.get("DESCRIPTOR")),
		Label:           splitSemicolon(c.get("ORGANIZATION")),
		TrackArtists:    ParseArtistString(c.get("ARTIST")),
		ReleaseArtists:  ParseArtistString(c.get("ALBUMARTIST")),
	}
	if d, ok := ParsePartialDate(firstNonEmpty(c.get("DATE"), c.get("YEAR"))); ok {
		r.ReleaseDate = d
	}
	if d, ok := ParsePartialDate(c.get("ORIGINALDATE")); ok {
		r.OriginalDate = d
	}
	if d, ok := ParsePartialDate(c.get("COMPOSITIONDATE")); ok {
		r.CompositionDate = d
	}
	if dur, err := durationFLAC(path); err == nil {
		r.DurationSeconds = dur
	}
	return r, nil
}

// vorbisComments is a multi-value Vorbis comment map with the same
// convenience accessors as taglibTags.
type vorbisComments map[string][]string

func (c vorbisComments) get(keys ...string) string {
	for _, key := range keys {
		if v, ok := c[key]; ok && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func (c vorbisComments) getInt(keys ...string) int {
	if s := c.get(keys...); s != "" {
		if n, err := strconv.Atoi(beforeSlash(s)); err == nil {
			return n
		}
	}
	return 0
}

func mergeVorbisComments(dst map[string][]string, src map[string]string) {
	for k, v := range src {
		dst[k] = append(dst[k], v)
	}
}

// parseVorbisComments decodes the raw Vorbis comment block body into a
// single-valued map: a key repeated within the block keeps its last
// value. mergeVorbisComments only collects values across separate
// comment blocks.
func parseVorbisComments(data []byte) map[string]string {
	comments := make(map[string]string)
	if len(data) < 4 {
		return comments
	}
	vendorLen := int(data[0]) | int(data[1])<<8 | int(data[2])<<16 | int(data[3])<<24
	pos := 4 + vendorLen
	if pos+4 > len(data) {
		return comments
	}
	count := int(data[pos]) | int(data[pos+1])<<8 | int(data[pos+2])<<16 | int(data[pos+3])<<24
	pos += 4
	for i := 0; i < count && pos+4 <= len(data); i++ {
		n := int(data[pos]) | int(data[pos+1])<<8 | int(data[pos+2])<<16 | int(data[pos+3])<<24
		pos += 4
		if pos+n > len(data) {
			break
		}
		entry := string(data[pos : pos+n])
		pos += n
		if idx := strings.Index(entry, "="); idx > 0 {
			comments[strings.ToUpper(entry[:idx])] = entry[idx+1:]
		}
	}
	return comments
}

func beforeSlash(s string) string {
	if idx := strings.Index(s, "/"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func firstNonEmpty(xs ...string) string {
	for _, x := range xs {
		if x != "" {
			return x
		}
	}
	return ""
}
