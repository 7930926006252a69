package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/sidecar"
)

// withSourceTrack creates dirName under cfg.MusicSourceDir containing a
// track file whose extension isn't a recognized audio format, so the
// CreateSingle -> cache.Refresh tail scans the new directory, finds no
// audio file, and leaves it alone instead of requiring a real codec
// fixture.
func withSourceTrack(t *testing.T, cfg *config.Config, c *cache.Cache, releaseID, dirName, fileName string) string {
	t.Helper()
	dir := filepath.Join(cfg.MusicSourceDir, dirName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	trackPath := filepath.Join(dir, fileName)
	require.NoError(t, os.WriteFile(trackPath, []byte("audio-stand-in"), 0o644))
	seedReleaseDir(t, cfg, c, releaseID, dirName)
	return trackPath
}

func TestCreateSingle_CreatesDirCopiesTrackAndFreshSidecar(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()

	srcTrack := withSourceTrack(t, cfg, c, "r1", "Artist - Album", "01.txt")
	seedTrackRow(t, c, "t1", "r1", srcTrack, "Single Title  ")

	releaseID, err := CreateSingle(ctx, cfg, c, "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, releaseID)
	assert.NotEqual(t, "r1", releaseID)

	newDir := filepath.Join(cfg.MusicSourceDir, "Single Title")
	assert.DirExists(t, newDir)
	assert.FileExists(t, filepath.Join(newDir, "01.txt"))

	id, _, ok, err := sidecar.Find(newDir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, releaseID, id)
}

func TestCreateSingle_DisambiguatesExistingDirName(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()

	srcTrack := withSourceTrack(t, cfg, c, "r1", "Artist - Album", "01.txt")
	seedTrackRow(t, c, "t1", "r1", srcTrack, "Song")
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.MusicSourceDir, "Song"), 0o755))

	releaseID, err := CreateSingle(ctx, cfg, c, "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, releaseID)
	assert.DirExists(t, filepath.Join(cfg.MusicSourceDir, "Song (2)"))
}

func TestCreateSingle_UnknownTrackIsError(t *testing.T) {
	cfg, c := testSetup(t)
	_, err := CreateSingle(context.Background(), cfg, c, "ghost")
	require.Error(t, err)
}
