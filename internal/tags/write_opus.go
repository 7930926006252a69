package tags

import (
	"strconv"
	"strings"

	"go.senan.xyz/taglib"

	"github.com/rose-music/rose/internal/rose"
)

func writeOpus(path string, r Record, opts WriteOptions) error {
	out := make(map[string][]string)
	add := func(key, value string) {
		if value != "" {
			out[key] = []string{value}
		}
	}
	addInt := func(key string, value int) {
		if value > 0 {
			out[key] = []string{strconv.Itoa(value)}
		}
	}

	add("ROSERELEASEID", r.ReleaseID)
	add("ROSEID", r.ID)
	add(taglib.Album, r.ReleaseTitle)
	add("RELEASETYPE", NormalizeReleaseType(r.ReleaseType))
	add("EDITION", r.Edition)
	add(taglib.CatalogNumber, r.CatalogNumber)
	addInt(taglib.TrackNumber, r.TrackNumber)
	addInt("TRACKTOTAL", r.TrackTotal)
	addInt(taglib.DiscNumber, r.DiscNumber)
	addInt("DISCTOTAL", r.DiscTotal)
	add(taglib.Title, r.TrackTitle)
	add(taglib.Genre, JoinGenreField(r.Genre, opts.WriteParentGenres))
	add("SECONDARYGENRE", JoinGenreField(r.SecondaryGenre, opts.WriteParentGenres))
	add("DESCRIPTOR", strings.Join(r.Descriptor, ";"))
	add(taglib.Label, strings.Join(r.Label, ";"))
	add(taglib.Artist, FormatArtistString(r.TrackArtists))
	add(taglib.AlbumArtist, FormatArtistString(r.ReleaseArtists))
	add(taglib.Date, r.ReleaseDate.String())
	add(taglib.OriginalDate, r.OriginalDate.String())
	add("COMPOSITIONDATE", r.CompositionDate.String())

	if err := taglib.WriteTags(path, out, taglib.Clear); err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
	}

	if len(r.CoverArt) > 0 {
		if err := taglib.WriteImage(path, r.CoverArt); err != nil {
			return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
		}
	}
	return nil
}
