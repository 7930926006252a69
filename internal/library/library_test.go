package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
)

func testSetup(t *testing.T) (*config.Config, *cache.Cache) {
	t.Helper()
	cacheDir := t.TempDir()
	c, err := cache.Open(cacheDir, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	cfg := &config.Config{
		MusicSourceDir:   t.TempDir(),
		CacheDir:         cacheDir,
		MaxFilenameBytes: 255,
		CoverArtStems:    []string{"cover", "folder"},
		ValidArtExts:     []string{"jpg", "jpeg", "png"},
	}
	return cfg, c
}

// seedReleaseDir creates a real release directory on disk (so
// filesystem operations have something to act on) and a matching row
// in the cache, returning the directory path.
func seedReleaseDir(t *testing.T, cfg *config.Config, c *cache.Cache, id, dirName string) string {
	t.Helper()
	dir := filepath.Join(cfg.MusicSourceDir, dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, err := c.DB().Exec(`INSERT INTO releases (id, source_path, added_at, datafile_mtime, title, new)
		VALUES (?, ?, '2024-01-01T00:00:00Z', '', 'Title', 1)`, id, dir)
	require.NoError(t, err)
	return dir
}

func seedTrackRow(t *testing.T, c *cache.Cache, trackID, releaseID, sourcePath, title string) {
	t.Helper()
	_, err := c.DB().Exec(`INSERT INTO tracks (id, source_path, source_mtime, title, release_id, tracknumber)
		VALUES (?, ?, '', ?, ?, '1')`, trackID, sourcePath, title, releaseID)
	require.NoError(t, err)
	_, err = c.DB().Exec(`INSERT INTO tracks_artists (track_id, name, role, position) VALUES (?, 'Artist', 'main', 1)`, trackID)
	require.NoError(t, err)
}
