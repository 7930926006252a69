package pathtemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rose-music/rose/internal/tags"
)

func rec() tags.Record {
	return tags.Record{
		ReleaseTitle: "Geogaddi",
		TrackTitle:   "Gyroscope",
		ReleaseDate:  tags.PartialDate{Year: 2002},
		ReleaseArtists: tags.ArtistMapping{
			Main: []tags.Artist{{Name: "Boards of Canada"}},
		},
		TrackArtists: tags.ArtistMapping{
			Main: []tags.Artist{{Name: "Boards of Canada"}},
		},
	}
}

func TestRender_ReleaseUsesDefaultTemplate(t *testing.T) {
	got := Render(KindRelease, rec())
	assert.Equal(t, "Boards of Canada/Geogaddi", got)
}

func TestRender_TrackUsesDefaultTemplate(t *testing.T) {
	got := Render(KindTrack, rec())
	assert.Equal(t, "Boards of Canada - Gyroscope", got)
}

func TestRender_MissingArtistAndTitleFallBackToPlaceholders(t *testing.T) {
	got := Render(KindRelease, tags.Record{})
	assert.Equal(t, "unknown artist/unknown album", got)
}

func TestRender_IllegalCharactersAreStrippedPerSegment(t *testing.T) {
	r := rec()
	r.ReleaseTitle = `Weird: "Title" / Sub?`
	got := Render(KindRelease, r)
	assert.NotContains(t, got, ":")
	assert.NotContains(t, got, "?")
	assert.NotContains(t, got, `"`)
}

func TestNew_CustomTemplate(t *testing.T) {
	re, err := New(Templates{
		Release:   "{{ .Year }} {{ .Title }}",
		Track:     "{{ .TrackNumber }} {{ .TrackTitle }}",
		AllTracks: "All Tracks",
	})
	require.NoError(t, err)
	assert.Equal(t, "2002 Geogaddi", re.Render(KindRelease, rec()))
}

func TestNew_InvalidTemplateIsError(t *testing.T) {
	_, err := New(Templates{Release: "{{ .Bogus", Track: "x", AllTracks: "y"})
	require.Error(t, err)
}
