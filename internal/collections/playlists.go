package collections

import (
	"context"
	"fmt"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
)

// PlaylistEntry is one track reference inside a playlist TOML file.
type PlaylistEntry struct {
	UUID            string `toml:"uuid"`
	DescriptionMeta string `toml:"description_meta"`
}

type playlistFile struct {
	Tracks []PlaylistEntry `toml:"tracks"`
}

func playlistTrackLogtext(c *cache.Cache, ctx context.Context, trackID string) (string, error) {
	t, err := c.Track(ctx, trackID)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(t.Artists.Main))
	for _, a := range t.Artists.Main {
		names = append(names, a.Name)
	}
	return fmt.Sprintf("%s - %s", strings.Join(names, ", "), t.Title), nil
}

// CreatePlaylist makes an empty playlist file. Returns an Expected
// error if one by this name already exists.
func CreatePlaylist(ctx context.Context, cfg *config.Config, c *cache.Cache, name string) error {
	dir := dirPath(cfg, KindPlaylist)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rose.Wrap(rose.OpPlaylistCreate, rose.Unexpected, err)
	}
	path := filePath(cfg, KindPlaylist, name)

	unlock, err := c.Lock(ctx, lockName(KindPlaylist, name), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return rose.Expectedf(rose.OpPlaylistCreate, "playlist %s already exists", name)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return rose.Wrap(rose.OpPlaylistCreate, rose.Unexpected, err)
	}
	f.Close()

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshPlaylists(ctx, c, cfg, []string{name})
}

// DeletePlaylist moves a playlist's TOML file to the cache trash.
// Returns an Expected error if no such playlist exists.
func DeletePlaylist(ctx context.Context, cfg *config.Config, c *cache.Cache, name string) error {
	path := filePath(cfg, KindPlaylist, name)

	unlock, err := c.Lock(ctx, lockName(KindPlaylist, name), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpPlaylistDelete, "playlist %s does not exist", name)
	}
	if err := moveToTrash(cfg, KindPlaylist, path); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshPlaylists(ctx, c, cfg, nil)
}

// RenamePlaylist renames a playlist and every cover-art file sharing
// its stem. Returns an Expected error if oldName is absent or newName
// is already taken.
func RenamePlaylist(ctx context.Context, cfg *config.Config, c *cache.Cache, oldName, newName string) error {
	oldPath := filePath(cfg, KindPlaylist, oldName)
	newPath := filePath(cfg, KindPlaylist, newName)

	unlockOld, err := c.Lock(ctx, lockName(KindPlaylist, oldName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlockOld()
	unlockNew, err := c.Lock(ctx, lockName(KindPlaylist, newName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlockNew()

	if _, err := os.Stat(oldPath); err != nil {
		return rose.Expectedf(rose.OpPlaylistRename, "playlist %s does not exist", oldName)
	}
	if _, err := os.Stat(newPath); err == nil {
		return rose.Expectedf(rose.OpPlaylistRename, "playlist %s already exists", newName)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return rose.Wrap(rose.OpPlaylistRename, rose.Unexpected, err)
	}
	if err := renameSiblingFiles(KindPlaylist, dirPath(cfg, KindPlaylist), oldName, newName); err != nil {
		return err
	}

	if err := unlockNew(); err != nil {
		return err
	}
	if err := unlockOld(); err != nil {
		return err
	}
	if err := cache.RefreshPlaylists(ctx, c, cfg, []string{newName}); err != nil {
		return err
	}
	return cache.RefreshPlaylists(ctx, c, cfg, nil)
}

// AddTrackToPlaylist appends a track to a playlist, no-op if it's
// already a member.
func AddTrackToPlaylist(ctx context.Context, cfg *config.Config, c *cache.Cache, playlistName, trackID string) error {
	logtext, err := playlistTrackLogtext(c, ctx, trackID)
	if err != nil {
		return err
	}
	path := filePath(cfg, KindPlaylist, playlistName)
	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpPlaylistEdit, "playlist %s does not exist", playlistName)
	}

	unlock, err := c.Lock(ctx, lockName(KindPlaylist, playlistName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := readPlaylistFile(path)
	if err != nil {
		return err
	}
	for _, tr := range data.Tracks {
		if tr.UUID == trackID {
			return unlock()
		}
	}
	data.Tracks = append(data.Tracks, PlaylistEntry{UUID: trackID, DescriptionMeta: logtext})
	if err := writeTOML(KindPlaylist, path, data); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshPlaylists(ctx, c, cfg, []string{playlistName})
}

// RemoveTrackFromPlaylist removes a track from a playlist, no-op if
// it's not a member.
func RemoveTrackFromPlaylist(ctx context.Context, cfg *config.Config, c *cache.Cache, playlistName, trackID string) error {
	path := filePath(cfg, KindPlaylist, playlistName)
	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpPlaylistEdit, "playlist %s does not exist", playlistName)
	}

	unlock, err := c.Lock(ctx, lockName(KindPlaylist, playlistName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := readPlaylistFile(path)
	if err != nil {
		return err
	}
	kept := data.Tracks[:0]
	removed := false
	for _, tr := range data.Tracks {
		if tr.UUID == trackID {
			removed = true
			continue
		}
		kept = append(kept, tr)
	}
	if !removed {
		return unlock()
	}
	data.Tracks = kept
	if err := writeTOML(KindPlaylist, path, data); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshPlaylists(ctx, c, cfg, []string{playlistName})
}

// EditPlaylistInEditor materializes the playlist's track descriptions
// to a scratch file, spawns $EDITOR, and applies the edited ordering
// back. Tracks that share an identical description_meta are
// disambiguated in the scratch file by appending " [<uuid>]", since
// the plain-text round trip otherwise couldn't tell two such lines
// apart; a suffixed line is matched against its track as written, and
// the suffix is stripped back off before the description_meta is
// stored.
func EditPlaylistInEditor(ctx context.Context, cfg *config.Config, c *cache.Cache, name string) error {
	path := filePath(cfg, KindPlaylist, name)
	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpPlaylistEdit, "playlist %s does not exist", name)
	}

	unlock, err := c.Lock(ctx, lockName(KindPlaylist, name), cache.EditLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := readPlaylistFile(path)
	if err != nil {
		return err
	}

	occurrences := make(map[string]int, len(data.Tracks))
	for _, tr := range data.Tracks {
		occurrences[tr.DescriptionMeta]++
	}

	byLine := make(map[string]string, len(data.Tracks))
	lines := make([]string, 0, len(data.Tracks))
	for _, tr := range data.Tracks {
		line := tr.DescriptionMeta
		if occurrences[tr.DescriptionMeta] > 1 {
			line = fmt.Sprintf("%s [%s]", tr.DescriptionMeta, tr.UUID)
		}
		lines = append(lines, line)
		byLine[line] = tr.UUID
	}
	original := strings.Join(lines, "\n")

	scratch := scratchPath(cfg, KindPlaylist, name)
	if err := os.WriteFile(scratch, []byte(original), filePerm); err != nil {
		return rose.Wrap(rose.OpPlaylistEdit, rose.Unexpected, err)
	}

	if err := editorCommand(scratch).Run(); err != nil {
		return rose.Expectedf(rose.OpPlaylistEdit, "editor exited with an error, leaving the edit at %s: %v", scratch, err)
	}

	edited, err := os.ReadFile(scratch)
	if err != nil {
		return rose.Wrap(rose.OpPlaylistEdit, rose.Unexpected, err)
	}
	os.Remove(scratch)

	if strings.TrimSpace(string(edited)) == strings.TrimSpace(original) {
		return unlock()
	}

	var newTracks []PlaylistEntry
	for _, line := range strings.Split(strings.TrimSpace(string(edited)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		uuid, ok := byLine[line]
		if !ok {
			return rose.Expectedf(rose.OpPlaylistEdit,
				"track %q does not match a known track in the playlist. Was the line edited?", line)
		}
		newTracks = append(newTracks, PlaylistEntry{UUID: uuid, DescriptionMeta: stripUUIDSuffix(line)})
	}
	if err := writeTOML(KindPlaylist, path, playlistFile{Tracks: newTracks}); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshPlaylists(ctx, c, cfg, []string{name})
}

// stripUUIDSuffix removes a trailing " [<uuid>]" disambiguation
// suffix, if present, leaving the original description_meta text.
func stripUUIDSuffix(line string) string {
	if !strings.HasSuffix(line, "]") {
		return line
	}
	if idx := strings.LastIndex(line, " ["); idx >= 0 {
		return line[:idx]
	}
	return line
}

// SetPlaylistCoverArt validates ext against the configured valid art
// extensions, removes any existing cover for name, and copies src in
// as the new one.
func SetPlaylistCoverArt(cfg *config.Config, name, srcPath, ext string) error {
	return setCoverArt(cfg, KindPlaylist, name, srcPath, ext)
}

// DeletePlaylistCoverArt removes name's cover file, if any.
func DeletePlaylistCoverArt(cfg *config.Config, name string) error {
	_, err := removeCoverArt(KindPlaylist, dirPath(cfg, KindPlaylist), name, cfg.ValidArtExts)
	return err
}

func readPlaylistFile(path string) (playlistFile, error) {
	var data playlistFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, rose.Wrap(rose.OpPlaylistEdit, rose.Unexpected, err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := toml.Unmarshal(raw, &data); err != nil {
		return data, rose.Expectedf(rose.OpPlaylistEdit, "parse playlist %s: %v", path, err)
	}
	return data, nil
}
