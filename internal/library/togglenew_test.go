package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rose-music/rose/internal/sidecar"
)

func TestToggleNew_FlipsSidecarFlag(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")

	id, data, err := sidecar.ReadOrCreate(dir)
	require.NoError(t, err)
	require.True(t, data.New)

	require.NoError(t, ToggleNew(ctx, cfg, c, "r1"))

	_, reread, err := sidecar.ReadOrCreate(dir)
	require.NoError(t, err)
	assert.False(t, reread.New)
	assert.Equal(t, id, idOf(t, dir))

	require.NoError(t, ToggleNew(ctx, cfg, c, "r1"))
	_, reread2, err := sidecar.ReadOrCreate(dir)
	require.NoError(t, err)
	assert.True(t, reread2.New)
}

func idOf(t *testing.T, dir string) string {
	t.Helper()
	_, id, ok, err := sidecar.Find(dir)
	require.NoError(t, err)
	require.True(t, ok)
	return id
}

func TestToggleNew_UnknownReleaseIsError(t *testing.T) {
	cfg, c := testSetup(t)
	err := ToggleNew(context.Background(), cfg, c, "ghost")
	require.Error(t, err)
}
