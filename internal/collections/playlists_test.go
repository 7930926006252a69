package collections

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlaylist_ThenAlreadyExists(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()

	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	assert.FileExists(t, filepath.Join(cfg.MusicSourceDir, "!playlists", "commute.toml"))

	err := CreatePlaylist(ctx, cfg, c, "commute")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestDeletePlaylist_MovesToTrash(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))

	require.NoError(t, DeletePlaylist(ctx, cfg, c, "commute"))
	assert.NoFileExists(t, filepath.Join(cfg.MusicSourceDir, "!playlists", "commute.toml"))
	assert.FileExists(t, filepath.Join(cfg.CacheDir, "trash", "commute.toml"))
}

func TestDeletePlaylist_AbsentIsError(t *testing.T) {
	cfg, c := testSetup(t)
	err := DeletePlaylist(context.Background(), cfg, c, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRenamePlaylist_MovesFileAndCoverArt(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "old"))
	coverPath := filepath.Join(cfg.MusicSourceDir, "!playlists", "old.png")
	require.NoError(t, os.WriteFile(coverPath, []byte("img"), 0o644))

	require.NoError(t, RenamePlaylist(ctx, cfg, c, "old", "new"))

	assert.NoFileExists(t, filepath.Join(cfg.MusicSourceDir, "!playlists", "old.toml"))
	assert.FileExists(t, filepath.Join(cfg.MusicSourceDir, "!playlists", "new.toml"))
	assert.FileExists(t, filepath.Join(cfg.MusicSourceDir, "!playlists", "new.png"))
}

func TestRenamePlaylist_NewNameAlreadyExists(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "a"))
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "b"))

	err := RenamePlaylist(ctx, cfg, c, "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddTrackToPlaylist_ThenNoOpOnDuplicate(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedCacheTrack(t, c, "t1", "r1", "Boards of Canada", "Alpha and Omega")
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))

	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))

	data, err := readPlaylistFile(filePath(cfg, KindPlaylist, "commute"))
	require.NoError(t, err)
	require.Len(t, data.Tracks, 1)
	assert.Equal(t, "t1", data.Tracks[0].UUID)
	assert.Equal(t, "Boards of Canada - Alpha and Omega", data.Tracks[0].DescriptionMeta)
}

func TestAddTrackToPlaylist_UnknownTrackIsError(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))

	err := AddTrackToPlaylist(ctx, cfg, c, "commute", "ghost")
	require.Error(t, err)
}

func TestRemoveTrackFromPlaylist_NoOpWhenAbsent(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))

	require.NoError(t, RemoveTrackFromPlaylist(ctx, cfg, c, "commute", "t1"))
}

func TestRemoveTrackFromPlaylist_RemovesMember(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedCacheTrack(t, c, "t1", "r1", "Boards of Canada", "Alpha and Omega")
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))

	require.NoError(t, RemoveTrackFromPlaylist(ctx, cfg, c, "commute", "t1"))

	data, err := readPlaylistFile(filePath(cfg, KindPlaylist, "commute"))
	require.NoError(t, err)
	assert.Empty(t, data.Tracks)
}

func TestEditPlaylistInEditor_NoChangeIsSilentSuccess(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedCacheTrack(t, c, "t1", "r1", "Artist", "Title")
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))

	t.Setenv("EDITOR", writeFakeEditor(t, ""))
	require.NoError(t, EditPlaylistInEditor(ctx, cfg, c, "commute"))

	data, err := readPlaylistFile(filePath(cfg, KindPlaylist, "commute"))
	require.NoError(t, err)
	require.Len(t, data.Tracks, 1)
}

func TestEditPlaylistInEditor_UnknownLineIsRejected(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedCacheTrack(t, c, "t1", "r1", "Artist", "Title")
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))

	t.Setenv("EDITOR", writeFakeEditor(t, "Some Random Line That Was Typed In"))
	err := EditPlaylistInEditor(ctx, cfg, c, "commute")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match a known track")
}

func TestEditPlaylistInEditor_OmittingALineDeletesIt(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedCacheTrack(t, c, "t1", "r1", "Artist", "Title")
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))

	t.Setenv("EDITOR", writeFakeEditor(t, " "))
	require.NoError(t, EditPlaylistInEditor(ctx, cfg, c, "commute"))

	data, err := readPlaylistFile(filePath(cfg, KindPlaylist, "commute"))
	require.NoError(t, err)
	assert.Empty(t, data.Tracks)
}

// TestEditPlaylistInEditor_DisambiguatesDuplicateDescriptions covers two
// tracks with identical "artist - title" text: the scratch file must
// carry a distinct " [<uuid>]" suffix per line so the round trip can
// tell them apart, and a no-op save must leave both intact.
func TestEditPlaylistInEditor_DisambiguatesDuplicateDescriptions(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedCacheTrack(t, c, "t1", "r1", "Artist", "Song")
	seedCacheTrack(t, c, "t2", "r1", "Artist", "Song")
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t2"))

	path := filePath(cfg, KindPlaylist, "commute")
	before, err := readPlaylistFile(path)
	require.NoError(t, err)
	require.Len(t, before.Tracks, 2)
	assert.Equal(t, "Artist - Song", before.Tracks[0].DescriptionMeta)
	assert.Equal(t, "Artist - Song", before.Tracks[1].DescriptionMeta)

	capture := filepath.Join(t.TempDir(), "seen.txt")
	t.Setenv("EDITOR", writeCapturingEditor(t, capture))
	require.NoError(t, EditPlaylistInEditor(ctx, cfg, c, "commute"))

	seen, err := os.ReadFile(capture)
	require.NoError(t, err)
	assert.Contains(t, string(seen), "Artist - Song [t1]")
	assert.Contains(t, string(seen), "Artist - Song [t2]")

	after, err := readPlaylistFile(path)
	require.NoError(t, err)
	require.Len(t, after.Tracks, 2)
	for _, tr := range after.Tracks {
		assert.Equal(t, "Artist - Song", tr.DescriptionMeta)
	}
}

// TestEditPlaylistInEditor_ReorderByUUIDSuffixedLines exercises an
// actual edit (not a no-op) on disambiguated lines, confirming each
// suffixed line maps back to its own track after reordering and that
// stripUUIDSuffix restores the plain description_meta.
func TestEditPlaylistInEditor_ReorderByUUIDSuffixedLines(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	seedCacheTrack(t, c, "t1", "r1", "Artist", "Song")
	seedCacheTrack(t, c, "t2", "r1", "Artist", "Song")
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t1"))
	require.NoError(t, AddTrackToPlaylist(ctx, cfg, c, "commute", "t2"))

	t.Setenv("EDITOR", writeFakeEditor(t, "Artist - Song [t2]\nArtist - Song [t1]"))
	require.NoError(t, EditPlaylistInEditor(ctx, cfg, c, "commute"))

	data, err := readPlaylistFile(filePath(cfg, KindPlaylist, "commute"))
	require.NoError(t, err)
	require.Len(t, data.Tracks, 2)
	assert.Equal(t, "t2", data.Tracks[0].UUID)
	assert.Equal(t, "t1", data.Tracks[1].UUID)
	assert.Equal(t, "Artist - Song", data.Tracks[0].DescriptionMeta)
	assert.Equal(t, "Artist - Song", data.Tracks[1].DescriptionMeta)
}

func TestSetPlaylistCoverArt_RejectsInvalidExtension(t *testing.T) {
	cfg, _ := testSetup(t)
	src := filepath.Join(t.TempDir(), "cover.gif")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	err := SetPlaylistCoverArt(cfg, "commute", src, "gif")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not one of the allowed extensions")
}

func TestSetPlaylistCoverArt_ReplacesExisting(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	dir := filepath.Join(cfg.MusicSourceDir, "!playlists")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commute.png"), []byte("old"), 0o644))

	src := filepath.Join(t.TempDir(), "cover.jpg")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, SetPlaylistCoverArt(cfg, "commute", src, ".jpg"))

	assert.NoFileExists(t, filepath.Join(dir, "commute.png"))
	assert.FileExists(t, filepath.Join(dir, "commute.jpg"))
}

func TestDeletePlaylistCoverArt_NoOpWhenAbsent(t *testing.T) {
	cfg, c := testSetup(t)
	ctx := context.Background()
	require.NoError(t, CreatePlaylist(ctx, cfg, c, "commute"))
	require.NoError(t, DeletePlaylistCoverArt(cfg, "commute"))
}

// writeCapturingEditor writes a fake editor that copies the scratch
// file's as-presented content to capturePath before leaving it
// unmodified, so a test can assert on exactly what the round trip
// showed the user without having to predict disambiguation suffixes.
func writeCapturingEditor(t *testing.T, capturePath string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "capturing-editor.sh")
	body := "#!/bin/sh\ncp \"$1\" \"" + capturePath + "\"\nexit 0\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}
