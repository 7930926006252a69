package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArtistString_AllRoles(t *testing.T) {
	s := "Composer A performed by DJ A pres. Artist A under. Conductor A feat. Guest A remixed by Remixer A produced by Producer A"
	m := ParseArtistString(s)

	require.Len(t, m.Composer, 1)
	assert.Equal(t, "Composer A", m.Composer[0].Name)
	require.Len(t, m.DJMixer, 1)
	assert.Equal(t, "DJ A", m.DJMixer[0].Name)
	require.Len(t, m.Main, 1)
	assert.Equal(t, "Artist A", m.Main[0].Name)
	require.Len(t, m.Conductor, 1)
	assert.Equal(t, "Conductor A", m.Conductor[0].Name)
	require.Len(t, m.Guest, 1)
	assert.Equal(t, "Guest A", m.Guest[0].Name)
	require.Len(t, m.Remixer, 1)
	assert.Equal(t, "Remixer A", m.Remixer[0].Name)
	require.Len(t, m.Producer, 1)
	assert.Equal(t, "Producer A", m.Producer[0].Name)
}

func TestFormatArtistString_RoundTrip(t *testing.T) {
	s := "Composer A performed by DJ A pres. Artist A under. Conductor A feat. Guest A remixed by Remixer A produced by Producer A"
	got := FormatArtistString(ParseArtistString(s))
	assert.Equal(t, s, got)
}

func TestParseArtistString_MainOnly(t *testing.T) {
	m := ParseArtistString("Artist A")
	require.Len(t, m.Main, 1)
	assert.Equal(t, "Artist A", m.Main[0].Name)
	assert.Empty(t, m.Guest)
}

func TestSplitArtistNames_Separators(t *testing.T) {
	m := ParseArtistString("Artist A\\Artist B/Artist C;Artist D vs. Artist E")
	require.Len(t, m.Main, 5)
	names := make([]string, len(m.Main))
	for i, a := range m.Main {
		names[i] = a.Name
	}
	assert.Equal(t, []string{"Artist A", "Artist B", "Artist C", "Artist D", "Artist E"}, names)
}

func TestFormatArtistString_AliasExcluded(t *testing.T) {
	m := ArtistMapping{Main: []Artist{{Name: "Real Name"}, {Name: "Alt Spelling", Alias: true}}}
	assert.Equal(t, "Real Name", FormatArtistString(m))
	assert.Len(t, m.Main, 2, "alias is retained in the record even though it's excluded from formatting")
}

func TestParseArtistString_FeatOnly(t *testing.T) {
	m := ParseArtistString("Main Artist feat. Guest Artist")
	require.Len(t, m.Main, 1)
	assert.Equal(t, "Main Artist", m.Main[0].Name)
	require.Len(t, m.Guest, 1)
	assert.Equal(t, "Guest Artist", m.Guest[0].Name)
}
