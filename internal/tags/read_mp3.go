package tags

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"

	"github.com/rose-music/rose/internal/rose"
)

func readMP3(path string) (Record, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		if stripErr := stripID3v2Tag(path); stripErr != nil {
			return Record{}, readErr(rose.OpTagRead, path, stripErr)
		}
		t, err = id3v2.Open(path, id3v2.Options{Parse: true})
	}
	if err != nil {
		return Record{}, readErr(rose.OpTagRead, path, err)
	}
	defer t.Close()

	trackNum, trackTotal := parseSlashPair(textFrame(t, "TRCK"))
	discNum, discTotal := parseSlashPair(textFrame(t, "TPOS"))

	r := Record{
		ReleaseID:      txxxFrame(t, "ROSERELEASEID"),
		ID:             txxxFrame(t, "ROSEID"),
		ReleaseTitle:   t.Album(),
		ReleaseType:    NormalizeReleaseType(txxxFrame(t, "RELEASETYPE")),
		Edition:        txxxFrame(t, "EDITION"),
		CatalogNumber:  txxxFrame(t, "CATALOGNUMBER"),
		TrackNumber:    trackNum,
		TrackTotal:     trackTotal,
		DiscNumber:     discNum,
		DiscTotal:      discTotal,
		TrackTitle:     probeTitle(path, t.Title()),
		Genre:          SplitGenreField(t.Genre()),
		SecondaryGenre: SplitGenreField(txxxFrame(t, "SECONDARYGENRE")),
		Descriptor:     splitSemicolon(txxxFrame(t, "DESCRIPTOR")),
		Label:          splitSemicolon(textFrame(t, "TPUB")),
		TrackArtists:   ParseArtistString(t.Artist()),
		ReleaseArtists: ParseArtistString(textFrame(t, "TPE2")),
	}
	if d, ok := ParsePartialDate(textFrame(t, "TDRC")); ok {
		r.ReleaseDate = d
	} else if year := t.Year(); year != "" {
		if d, ok := ParsePartialDate(year); ok {
			r.ReleaseDate = d
		}
	}
	if d, ok := ParsePartialDate(textFrame(t, "TDOR")); ok {
		r.OriginalDate = d
	} else if d, ok := ParsePartialDate(txxxFrame(t, "ORIGINALYEAR")); ok {
		r.OriginalDate = d
	}
	if d, ok := ParsePartialDate(txxxFrame(t, "COMPOSITIONDATE")); ok {
		r.CompositionDate = d
	}
	if dur, err := durationMP3(path); err == nil {
		r.DurationSeconds = dur
	}
	return r, nil
}

func textFrame(t *id3v2.Tag, id string) string {
	frames := t.GetFrames(id)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}

func txxxFrame(t *id3v2.Tag, description string) string {
	for _, frame := range t.GetFrames("TXXX") {
		if txxx, ok := frame.(id3v2.UserDefinedTextFrame); ok && txxx.Description == description {
			return txxx.Value
		}
	}
	return ""
}

func parseSlashPair(s string) (num, total int) {
	if s == "" {
		return 0, 0
	}
	parts := strings.SplitN(s, "/", 2)
	num, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		total, _ = strconv.Atoi(parts[1])
	}
	return num, total
}
