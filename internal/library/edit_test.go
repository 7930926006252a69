package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFakeEditor writes a shell script standing in for $EDITOR: an
// empty replacement leaves the scratch file untouched (a no-op edit);
// a non-empty one overwrites it via a quoted heredoc so embedded
// newlines survive literally.
func writeFakeEditor(t *testing.T, replacement string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake-editor.sh")
	body := "#!/bin/sh\n"
	if replacement == "" {
		body += "exit 0\n"
	} else {
		body += fmt.Sprintf("cat > \"$1\" <<'ROSE_EOF'\n%s\nROSE_EOF\n", replacement)
	}
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func writeFailingEditor(t *testing.T) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "failing-editor.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nexit 1\n"), 0o755))
	return script
}

func TestEditRelease_NoChangeIsSilentSuccess(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	seedTrackRow(t, c, "t1", "r1", filepath.Join(dir, "01.txt"), "Song")

	t.Setenv("EDITOR", writeFakeEditor(t, ""))
	require.NoError(t, EditRelease(ctx, cfg, c, "r1"))

	assert.NoFileExists(t, resumePath(cfg, "r1"))
}

func TestEditRelease_EditorFailureLeavesScratchFile(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	seedTrackRow(t, c, "t1", "r1", filepath.Join(dir, "01.txt"), "Song")

	t.Setenv("EDITOR", writeFailingEditor(t))
	err := EditRelease(ctx, cfg, c, "r1")
	require.Error(t, err)
	assert.FileExists(t, resumePath(cfg, "r1"))
}

func TestEditRelease_UnknownReleaseTypeIsRejected(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	seedTrackRow(t, c, "t1", "r1", filepath.Join(dir, "01.txt"), "Song")

	t.Setenv("EDITOR", writeFakeEditor(t, "releasetype = \"not-a-real-type\"\ntitle = \"Album\""))
	err := EditRelease(ctx, cfg, c, "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown release type")
	assert.FileExists(t, resumePath(cfg, "r1"))
}

func TestEditRelease_InvalidDateIsRejected(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	seedTrackRow(t, c, "t1", "r1", filepath.Join(dir, "01.txt"), "Song")

	t.Setenv("EDITOR", writeFakeEditor(t, "releasetype = \"album\"\nreleasedate = \"not-a-date\""))
	err := EditRelease(ctx, cfg, c, "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestEditRelease_TrackIDMismatchIsRejected(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	dir := seedReleaseDir(t, cfg, c, "r1", "Artist - Album")
	seedTrackRow(t, c, "t1", "r1", filepath.Join(dir, "01.txt"), "Song")

	t.Setenv("EDITOR", writeFakeEditor(t, "releasetype = \"album\"\n\n[[tracks]]\nid = \"unknown-track\"\ntitle = \"Song\""))
	err := EditRelease(ctx, cfg, c, "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match a known track")
}

func TestEditRelease_UnknownReleaseIsError(t *testing.T) {
	cfg, c := testSetup(t)
	err := EditRelease(context.Background(), cfg, c, "ghost")
	require.Error(t, err)
}
