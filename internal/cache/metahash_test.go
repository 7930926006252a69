package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rose-music/rose/internal/tags"
)

func TestReleaseMetahash_DeterministicForSameInput(t *testing.T) {
	addedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tracksA := []tags.Record{{ID: "t1", TrackTitle: "A"}}
	tracksB := []tags.Record{{ID: "t1", TrackTitle: "A"}}
	assert.Equal(t, ReleaseMetahash(addedAt, tracksA), ReleaseMetahash(addedAt, tracksB))
}

func TestReleaseMetahash_ChangesWithTagEdit(t *testing.T) {
	addedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	before := ReleaseMetahash(addedAt, []tags.Record{{ID: "t1", TrackTitle: "A"}})
	after := ReleaseMetahash(addedAt, []tags.Record{{ID: "t1", TrackTitle: "B"}})
	assert.NotEqual(t, before, after)
}

func TestReleaseMetahash_ChangesWithAddedAt(t *testing.T) {
	rec := []tags.Record{{ID: "t1", TrackTitle: "A"}}
	h1 := ReleaseMetahash(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rec)
	h2 := ReleaseMetahash(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), rec)
	assert.NotEqual(t, h1, h2)
}

func TestReleaseMetahash_SensitiveToArtistAlias(t *testing.T) {
	addedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	withAlias := []tags.Record{{ID: "t1", TrackArtists: tags.ArtistMapping{Main: []tags.Artist{{Name: "X", Alias: true}}}}}
	withoutAlias := []tags.Record{{ID: "t1", TrackArtists: tags.ArtistMapping{Main: []tags.Artist{{Name: "X"}}}}}
	assert.NotEqual(t, ReleaseMetahash(addedAt, withAlias), ReleaseMetahash(addedAt, withoutAlias))
}
