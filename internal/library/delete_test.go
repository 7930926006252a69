package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteRelease_MovesDirToTrashAndEvictsFromCache(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")

	require.NoError(t, DeleteRelease(ctx, cfg, c, "r1"))

	assert.NoDirExists(t, dir)
	assert.DirExists(t, filepath.Join(cfg.CacheDir, "trash"))

	entries, err := os.ReadDir(filepath.Join(cfg.CacheDir, "trash"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = c.Release(ctx, "r1")
	require.Error(t, err)
}

func TestDeleteRelease_UnknownReleaseIsError(t *testing.T) {
	cfg, c := testSetup(t)
	err := DeleteRelease(context.Background(), cfg, c, "ghost")
	require.Error(t, err)
}
