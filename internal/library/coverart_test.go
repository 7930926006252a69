package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetCoverArt_RejectsInvalidExtension(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedReleaseDir(t, cfg, c, "r1", "Artist - Album")

	src := filepath.Join(t.TempDir(), "cover.gif")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := SetCoverArt(ctx, cfg, c, "r1", src, "gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not one of the allowed extensions")
}

func TestSetCoverArt_ReplacesExistingAndUpdatesCache(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.png"), []byte("old"), 0o644))

	src := filepath.Join(t.TempDir(), "new.jpg")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, SetCoverArt(ctx, cfg, c, "r1", src, ".jpg"))

	assert.NoFileExists(t, filepath.Join(dir, "cover.png"))
	assert.FileExists(t, filepath.Join(dir, "cover.jpg"))

	r, err := c.Release(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cover.jpg"), r.CoverImagePath)
}

func TestDeleteCoverArt_RemovesFileAndClearsCache(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("old"), 0o644))
	require.NoError(t, c.SetReleaseCoverPath(ctx, "r1", filepath.Join(dir, "cover.jpg")))

	require.NoError(t, DeleteCoverArt(ctx, cfg, c, "r1"))

	assert.NoFileExists(t, filepath.Join(dir, "cover.jpg"))
	r, err := c.Release(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, r.CoverImagePath)
}

func TestDeleteCoverArt_NoOpWhenAbsent(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	require.NoError(t, DeleteCoverArt(ctx, cfg, c, "r1"))
}
