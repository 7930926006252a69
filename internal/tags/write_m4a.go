package tags

import (
	"strings"

	mp4tag "github.com/Sorrow446/go-mp4tag"

	"github.com/rose-music/rose/internal/rose"
)

func writeM4A(path string, r Record, opts WriteOptions) error {
	mp4, err := mp4tag.Open(path)
	if err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
	}
	defer mp4.Close()

	custom := make(map[string]string)
	addCustom := func(key, value string) {
		if value != "" {
			custom[key] = value
		}
	}

	addCustom("ROSERELEASEID", r.ReleaseID)
	addCustom("ROSEID", r.ID)
	addCustom("RELEASETYPE", NormalizeReleaseType(r.ReleaseType))
	addCustom("EDITION", r.Edition)
	addCustom("CATALOGNUMBER", r.CatalogNumber)
	addCustom("SECONDARYGENRE", JoinGenreField(r.SecondaryGenre, opts.WriteParentGenres))
	addCustom("DESCRIPTOR", strings.Join(r.Descriptor, ";"))
	addCustom("LABEL", strings.Join(r.Label, ";"))
	addCustom("ORIGINALDATE", r.OriginalDate.String())
	addCustom("COMPOSITIONDATE", r.CompositionDate.String())

	tags := &mp4tag.MP4Tags{
		Title:       r.TrackTitle,
		Artist:      FormatArtistString(r.TrackArtists),
		Album:       r.ReleaseTitle,
		AlbumArtist: FormatArtistString(r.ReleaseArtists),
		TrackNumber: safeInt16(r.TrackNumber),
		TrackTotal:  safeInt16(r.TrackTotal),
		DiscNumber:  safeInt16(r.DiscNumber),
		DiscTotal:   safeInt16(r.DiscTotal),
		Date:        r.ReleaseDate.String(),
		CustomGenre: JoinGenreField(r.Genre, opts.WriteParentGenres),
		Custom:      custom,
	}
	if len(r.CoverArt) > 0 {
		tags.Pictures = []*mp4tag.MP4Picture{{Data: r.CoverArt}}
	}

	if err := mp4.Write(tags, nil); err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
	}
	return nil
}

func safeInt16(n int) int16 {
	if n > 32767 {
		return 32767
	}
	if n < -32768 {
		return -32768
	}
	return int16(n)
}
