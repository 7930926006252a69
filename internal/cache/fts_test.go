package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeFTS(t *testing.T) {
	assert.Equal(t, "r¬o¬c¬k", TokenizeFTS("rock"))
	assert.Equal(t, "", TokenizeFTS(""))
	assert.Equal(t, "a", TokenizeFTS("a"))
}

func TestSearchFTSColumn_EmptyNeedleMatchesAllTracks(t *testing.T) {
	c := openTestCache(t)
	seedTrack(t, c, "t1", "r1", "Rock Anthem")
	seedTrack(t, c, "t2", "r1", "Quiet Ballad")

	ids, err := SearchFTSColumn(context.Background(), c.db, "tracktitle", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids)
}

func TestSearchFTSColumn_SubstringMatch(t *testing.T) {
	c := openTestCache(t)
	seedTrack(t, c, "t1", "r1", "Rock Anthem")
	seedTrack(t, c, "t2", "r1", "Quiet Ballad")

	ids, err := SearchFTSColumn(context.Background(), c.db, "tracktitle", "ock")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)
}

func TestSearchFTSColumn_RejectsUnindexedColumn(t *testing.T) {
	c := openTestCache(t)
	_, err := SearchFTSColumn(context.Background(), c.db, "not_a_column", "x")
	assert.Error(t, err)
}

func seedTrack(t *testing.T, c *Cache, trackID, releaseID, title string) {
	t.Helper()
	_, err := c.db.Exec(`INSERT INTO releases (id, source_path, added_at, datafile_mtime) VALUES (?, ?, '', '')
		ON CONFLICT(id) DO NOTHING`, releaseID, releaseID)
	require.NoError(t, err)
	_, err = c.db.Exec(`INSERT INTO tracks (id, source_path, source_mtime, title, release_id, tracknumber) VALUES (?, ?, '', ?, ?, ?)`,
		trackID, trackID, title, releaseID, trackID)
	require.NoError(t, err)

	tx, err := c.db.Begin()
	require.NoError(t, err)
	require.NoError(t, upsertTrackFTS(tx, trackID, ftsRow{TrackTitle: title}))
	require.NoError(t, tx.Commit())
}
