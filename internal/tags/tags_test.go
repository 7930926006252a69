package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePartialDate(t *testing.T) {
	cases := []struct {
		in   string
		want PartialDate
		ok   bool
	}{
		{"2020-01-02", PartialDate{2020, 1, 2}, true},
		{"2020-01-02T10:30:00", PartialDate{2020, 1, 2}, true},
		{"2020-01", PartialDate{2020, 1, 0}, true},
		{"2020", PartialDate{2020, 0, 0}, true},
		{"12345", PartialDate{}, false},
		{"", PartialDate{}, false},
	}
	for _, c := range cases {
		got, ok := ParsePartialDate(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		if c.ok {
			assert.Equal(t, c.want, got, c.in)
		}
	}
}

func TestPartialDate_String_FillsMissingComponents(t *testing.T) {
	assert.Equal(t, "2020-01-01", PartialDate{Year: 2020}.String())
	assert.Equal(t, "2020-05-01", PartialDate{Year: 2020, Month: 5}.String())
	assert.Equal(t, "2020-05-09", PartialDate{Year: 2020, Month: 5, Day: 9}.String())
	assert.Equal(t, "", PartialDate{}.String())
}

func TestIsMusicFile(t *testing.T) {
	assert.True(t, IsMusicFile("track.mp3"))
	assert.True(t, IsMusicFile("track.FLAC"))
	assert.False(t, IsMusicFile("cover.jpg"))
	assert.False(t, IsMusicFile("readme.txt"))
}

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("cover.jpg"))
	assert.True(t, IsImageFile("cover.PNG"))
	assert.False(t, IsImageFile("track.mp3"))
}

func TestSanitizeDirname_StripsIllegalChars(t *testing.T) {
	got := SanitizeDirname(`a/b:c*d?e"f<g>h|i\j`, 180, false)
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, ":")
	assert.NotContains(t, got, "*")
}

func TestSanitizeFilename_KeepsExtensionOutsideBudget(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "a"
	}
	got := SanitizeFilename(long+".flac", 20, true)
	assert.True(t, len(got) <= 20+len(".flac")+1)
	assert.Contains(t, got, ".flac")
}

func TestUniq_PreservesOrder(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Uniq([]string{"a", "b", "a", "c", "b"}))
}

func TestArtistMapping_AllDeduplicates(t *testing.T) {
	m := ArtistMapping{
		Main:  []Artist{{Name: "A"}},
		Guest: []Artist{{Name: "A"}, {Name: "B"}},
	}
	all := m.All()
	assert.Len(t, all, 2)
}

func TestArtistMapping_ItemsFixedOrder(t *testing.T) {
	m := ArtistMapping{}
	items := m.Items()
	roles := make([]Role, len(items))
	for i, it := range items {
		roles[i] = it.Role
	}
	assert.Equal(t, []Role{RoleMain, RoleGuest, RoleRemixer, RoleProducer, RoleComposer, RoleConductor, RoleDJMixer}, roles)
}
