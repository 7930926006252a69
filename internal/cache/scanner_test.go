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

// TestScanReleaseDir_CorruptTrackIsSkippedNotFatal proves a per-file
// codec read failure is excluded from the scan rather than aborting
// it: a directory holding only an unreadable .flac (missing the
// mandatory "fLaC" magic marker goflac.ParseFile requires, so the
// parse fails deterministically without needing a real encoded
// fixture) has no track that survives, so it scans like an empty
// release dir (nil, nil) instead of scanReleaseDir — and, through
// errgroup, the whole Refresh — failing outright.
func TestScanReleaseDir_CorruptTrackIsSkippedNotFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.flac"), []byte("not a real flac file"), 0o644))

	cfg := &config.Config{CoverArtStems: []string{"cover"}, ValidArtExts: []string{"jpg"}}
	scan, err := scanReleaseDir(context.Background(), cfg, dir)

	require.NoError(t, err)
	assert.Nil(t, scan)
}
