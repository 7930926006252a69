package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rose-music/rose/internal/config"
)

func testConfig(t *testing.T, musicDir, cacheDir string) *config.Config {
	t.Helper()
	return &config.Config{
		MusicSourceDir: musicDir,
		CacheDir:       cacheDir,
		ValidArtExts:   []string{"jpg", "jpeg", "png"},
	}
}

func writeCollageFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".toml"), []byte(body), 0o644))
}

func TestRefreshCollages_PopulatesJunctionTable(t *testing.T) {
	c := openTestCache(t)
	seedTrack(t, c, "t1", "r1", "Rock Anthem")
	musicDir := t.TempDir()
	cfg := testConfig(t, musicDir, t.TempDir())

	writeCollageFile(t, filepath.Join(musicDir, "!collages"), "faves", `
[[releases]]
uuid = "r1"
description_meta = "Artist - Release"
`)

	require.NoError(t, RefreshCollages(context.Background(), c, cfg, []string{"faves"}))

	var count int
	require.NoError(t, c.db.QueryRow(`SELECT COUNT(*) FROM collages WHERE name = 'faves'`).Scan(&count))
	assert.Equal(t, 1, count)

	var missing int
	require.NoError(t, c.db.QueryRow(`SELECT missing FROM collages_releases WHERE collage_name='faves' AND release_id='r1'`).Scan(&missing))
	assert.Equal(t, 0, missing)
}

func TestRefreshCollages_MarksUnresolvedReleaseAsMissing(t *testing.T) {
	c := openTestCache(t)
	musicDir := t.TempDir()
	cfg := testConfig(t, musicDir, t.TempDir())

	writeCollageFile(t, filepath.Join(musicDir, "!collages"), "faves", `
[[releases]]
uuid = "does-not-exist"
description_meta = "Ghost - Release"
`)

	require.NoError(t, RefreshCollages(context.Background(), c, cfg, []string{"faves"}))

	var missing int
	require.NoError(t, c.db.QueryRow(`SELECT missing FROM collages_releases WHERE collage_name='faves' AND release_id='does-not-exist'`).Scan(&missing))
	assert.Equal(t, 1, missing)
}

func TestRefreshCollages_EvictsDeletedCollageWhenScanningEverything(t *testing.T) {
	c := openTestCache(t)
	musicDir := t.TempDir()
	cfg := testConfig(t, musicDir, t.TempDir())

	writeCollageFile(t, filepath.Join(musicDir, "!collages"), "gone", "")
	require.NoError(t, RefreshCollages(context.Background(), c, cfg, []string{"gone"}))
	require.NoError(t, os.Remove(filepath.Join(musicDir, "!collages", "gone.toml")))

	require.NoError(t, RefreshCollages(context.Background(), c, cfg, nil))

	var count int
	require.NoError(t, c.db.QueryRow(`SELECT COUNT(*) FROM collages WHERE name='gone'`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestRefreshPlaylists_PopulatesJunctionTableAndCover(t *testing.T) {
	c := openTestCache(t)
	seedTrack(t, c, "t1", "r1", "Rock Anthem")
	musicDir := t.TempDir()
	cfg := testConfig(t, musicDir, t.TempDir())
	playlistsDir := filepath.Join(musicDir, "!playlists")

	writeCollageFile(t, playlistsDir, "commute", `
[[tracks]]
uuid = "t1"
description_meta = "Artist - Rock Anthem"
`)
	require.NoError(t, os.WriteFile(filepath.Join(playlistsDir, "commute.jpg"), []byte("fake"), 0o644))

	require.NoError(t, RefreshPlaylists(context.Background(), c, cfg, []string{"commute"}))

	var coverPath string
	require.NoError(t, c.db.QueryRow(`SELECT cover_path FROM playlists WHERE name='commute'`).Scan(&coverPath))
	assert.Equal(t, filepath.Join(playlistsDir, "commute.jpg"), coverPath)

	var missing int
	require.NoError(t, c.db.QueryRow(`SELECT missing FROM playlists_tracks WHERE playlist_name='commute' AND track_id='t1'`).Scan(&missing))
	assert.Equal(t, 0, missing)
}
