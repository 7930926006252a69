package tags

import (
	"go.senan.xyz/taglib"

	"github.com/rose-music/rose/internal/rose"
)

func readM4A(path string) (Record, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return Record{}, readErr(rose.OpTagRead, path, err)
	}
	c := taglibTags(raw)

	r := Record{
		ReleaseID:      c.get("ROSERELEASEID"),
		ID:             c.get("ROSEID"),
		ReleaseTitle:   c.get(taglib.Album),
		ReleaseType:    NormalizeReleaseType(c.get("RELEASETYPE")),
		Edition:        c.get("EDITION"),
		CatalogNumber:  c.get(taglib.CatalogNumber, "CATALOGNUMBER"),
		TrackNumber:    c.getInt(taglib.TrackNumber),
		TrackTotal:     c.getInt("TRACKTOTAL", "TOTALTRACKS"),
		DiscNumber:     c.getInt(taglib.DiscNumber),
		DiscTotal:      c.getInt("DISCTOTAL", "TOTALDISCS"),
		TrackTitle:     probeTitle(path, c.get(taglib.Title)),
		Genre:          SplitGenreField(c.get(taglib.Genre)),
		SecondaryGenre: SplitGenreField(c.get("SECONDARYGENRE")),
		Descriptor:     splitSemicolon(c.get("DESCRIPTOR")),
		Label:          splitSemicolon(c.get(taglib.Label, "LABEL")),
		TrackArtists:   ParseArtistString(c.get(taglib.Artist)),
		ReleaseArtists: ParseArtistString(c.get(taglib.AlbumArtist)),
	}
	if d, ok := ParsePartialDate(c.get(taglib.Date)); ok {
		r.ReleaseDate = d
	}
	if d, ok := ParsePartialDate(c.get(taglib.OriginalDate, "ORIGINALDATE")); ok {
		r.OriginalDate = d
	}
	if d, ok := ParsePartialDate(c.get("COMPOSITIONDATE")); ok {
		r.CompositionDate = d
	}
	if dur, err := durationM4A(path); err == nil {
		r.DurationSeconds = dur
	}
	return r, nil
}
