package collections

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
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
		MusicSourceDir: t.TempDir(),
		CacheDir:       cacheDir,
		ValidArtExts:   []string{"jpg", "jpeg", "png"},
	}
	return cfg, c
}

func seedRelease(t *testing.T, c *cache.Cache, id, artistName, title string) {
	t.Helper()
	_, err := c.DB().Exec(`INSERT INTO releases (id, source_path, added_at, datafile_mtime, title)
		VALUES (?, ?, '2024-01-01T00:00:00Z', '', ?)`, id, id, title)
	require.NoError(t, err)
	_, err = c.DB().Exec(`INSERT INTO releases_artists (release_id, name, role, position)
		VALUES (?, ?, 'main', 1)`, id, artistName)
	require.NoError(t, err)
}

func seedCacheTrack(t *testing.T, c *cache.Cache, trackID, releaseID, artistName, title string) {
	t.Helper()
	_, err := c.DB().Exec(`INSERT INTO releases (id, source_path, added_at, datafile_mtime) VALUES (?, ?, '2024-01-01T00:00:00Z', '')
		ON CONFLICT(id) DO NOTHING`, releaseID, releaseID)
	require.NoError(t, err)
	_, err = c.DB().Exec(`INSERT INTO tracks (id, source_path, source_mtime, title, release_id, tracknumber)
		VALUES (?, ?, '', ?, ?, '1')`, trackID, trackID, title, releaseID)
	require.NoError(t, err)
	_, err = c.DB().Exec(`INSERT INTO tracks_artists (track_id, name, role, position)
		VALUES (?, ?, 'main', 1)`, trackID, artistName)
	require.NoError(t, err)
}

func TestCreateCollage_ThenAlreadyExists(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()

	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))
	assert.FileExists(t, filepath.Join(cfg.MusicSourceDir, "!collages", "faves.toml"))

	err := CreateCollage(ctx, cfg, c, "faves")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDeleteCollage_MovesToTrash(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))

	require.NoError(t, DeleteCollage(ctx, cfg, c, "faves"))
	assert.NoFileExists(t, filepath.Join(cfg.MusicSourceDir, "!collages", "faves.toml"))
	assert.FileExists(t, filepath.Join(cfg.CacheDir, "trash", "faves.toml"))
}

func TestDeleteCollage_AbsentIsError(t *testing.T) {
	cfg, c := testSetup(t)
	err := DeleteCollage(context.Background(), cfg, c, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRenameCollage_MovesFileAndCoverArt(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreateCollage(ctx, cfg, c, "old"))
	coverPath := filepath.Join(cfg.MusicSourceDir, "!collages", "old.jpg")
	require.NoError(t, os.WriteFile(coverPath, []byte("img"), 0o644))

	require.NoError(t, RenameCollage(ctx, cfg, c, "old", "new"))

	assert.NoFileExists(t, filepath.Join(cfg.MusicSourceDir, "!collages", "old.toml"))
	assert.FileExists(t, filepath.Join(cfg.MusicSourceDir, "!collages", "new.toml"))
	assert.FileExists(t, filepath.Join(cfg.MusicSourceDir, "!collages", "new.jpg"))
}

func TestRenameCollage_NewNameAlreadyExists(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreateCollage(ctx, cfg, c, "a"))
	require.NoError(t, CreateCollage(ctx, cfg, c, "b"))

	err := RenameCollage(ctx, cfg, c, "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddReleaseToCollage_ThenNoOpOnDuplicate(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedRelease(t, c, "r1", "Boards of Canada", "Geogaddi")
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))

	require.NoError(t, AddReleaseToCollage(ctx, cfg, c, "faves", "r1"))
	require.NoError(t, AddReleaseToCollage(ctx, cfg, c, "faves", "r1"))

	data, err := readCollageFile(filePath(cfg, KindCollage, "faves"))
	require.NoError(t, err)
	require.Len(t, data.Releases, 1)
	assert.Equal(t, "r1", data.Releases[0].UUID)
	assert.Equal(t, "Boards of Canada - Geogaddi", data.Releases[0].DescriptionMeta)
}

func TestAddReleaseToCollage_UnknownReleaseIsError(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))

	err := AddReleaseToCollage(ctx, cfg, c, "faves", "ghost")
	require.Error(t, err)
}

func TestRemoveReleaseFromCollage_NoOpWhenAbsent(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))

	require.NoError(t, RemoveReleaseFromCollage(ctx, cfg, c, "faves", "r1"))
}

func TestRemoveReleaseFromCollage_RemovesMember(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedRelease(t, c, "r1", "Boards of Canada", "Geogaddi")
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))
	require.NoError(t, AddReleaseToCollage(ctx, cfg, c, "faves", "r1"))

	require.NoError(t, RemoveReleaseFromCollage(ctx, cfg, c, "faves", "r1"))

	data, err := readCollageFile(filePath(cfg, KindCollage, "faves"))
	require.NoError(t, err)
	assert.Empty(t, data.Releases)
}

// writeFakeEditor writes a shell script standing in for $EDITOR: given
// an empty replacement it leaves the scratch file untouched (a no-op
// edit), otherwise it overwrites the scratch file with replacement via
// a quoted heredoc so embedded newlines survive literally instead of
// being shell-escaped.
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

func TestEditCollageInEditor_NoChangeIsSilentSuccess(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedRelease(t, c, "r1", "Artist", "Title")
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))
	require.NoError(t, AddReleaseToCollage(ctx, cfg, c, "faves", "r1"))

	t.Setenv("EDITOR", writeFakeEditor(t, ""))
	require.NoError(t, EditCollageInEditor(ctx, cfg, c, "faves"))

	data, err := readCollageFile(filePath(cfg, KindCollage, "faves"))
	require.NoError(t, err)
	require.Len(t, data.Releases, 1)
}

func TestEditCollageInEditor_UnknownLineIsRejected(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedRelease(t, c, "r1", "Artist", "Title")
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))
	require.NoError(t, AddReleaseToCollage(ctx, cfg, c, "faves", "r1"))

	t.Setenv("EDITOR", writeFakeEditor(t, "Some Random Line That Was Typed In"))
	err := EditCollageInEditor(ctx, cfg, c, "faves")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match a known release")
}

func TestEditCollageInEditor_OmittingALineDeletesIt(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedRelease(t, c, "r1", "Artist", "Title")
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))
	require.NoError(t, AddReleaseToCollage(ctx, cfg, c, "faves", "r1"))

	t.Setenv("EDITOR", writeFakeEditor(t, " "))
	require.NoError(t, EditCollageInEditor(ctx, cfg, c, "faves"))

	data, err := readCollageFile(filePath(cfg, KindCollage, "faves"))
	require.NoError(t, err)
	assert.Empty(t, data.Releases)
}

func TestSetCollageCoverArt_RejectsInvalidExtension(t *testing.T) {
	cfg, _ := testSetup(t)
	src := filepath.Join(t.TempDir(), "cover.gif")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := SetCollageCoverArt(cfg, "faves", src, "gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not one of the allowed extensions")
}

func TestSetCollageCoverArt_ReplacesExisting(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))
	dir := filepath.Join(cfg.MusicSourceDir, "!collages")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "faves.png"), []byte("old"), 0o644))

	src := filepath.Join(t.TempDir(), "cover.jpg")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, SetCollageCoverArt(cfg, "faves", src, ".jpg"))

	assert.NoFileExists(t, filepath.Join(dir, "faves.png"))
	assert.FileExists(t, filepath.Join(dir, "faves.jpg"))
}

func TestDeleteCollageCoverArt_NoOpWhenAbsent(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreateCollage(ctx, cfg, c, "faves"))
	require.NoError(t, DeleteCollageCoverArt(cfg, "faves"))
}
