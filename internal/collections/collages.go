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

// CollageEntry is one release reference inside a collage TOML file.
// DescriptionMeta is a human-readable label (artist - title) kept
// alongside the uuid purely so the file stays legible and diffable; it
// is regenerated from the cache on every write, never trusted as
// authoritative.
type CollageEntry struct {
	UUID            string `toml:"uuid"`
	DescriptionMeta string `toml:"description_meta"`
}

type collageFile struct {
	Releases []CollageEntry `toml:"releases"`
}

func collageReleaseLogtext(c *cache.Cache, ctx context.Context, releaseID string) (string, error) {
	r, err := c.Release(ctx, releaseID)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(r.Artists.Main))
	for _, a := range r.Artists.Main {
		names = append(names, a.Name)
	}
	return fmt.Sprintf("%s - %s", strings.Join(names, ", "), r.Title), nil
}

// CreateCollage makes an empty collage file. Returns an Expected error
// if one by this name already exists.
func CreateCollage(ctx context.Context, cfg *config.Config, c *cache.Cache, name string) error {
	dir := dirPath(cfg, KindCollage)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rose.Wrap(rose.OpCollageCreate, rose.Unexpected, err)
	}
	path := filePath(cfg, KindCollage, name)

	unlock, err := c.Lock(ctx, lockName(KindCollage, name), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		return rose.Expectedf(rose.OpCollageCreate, "collage %s already exists", name)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return rose.Wrap(rose.OpCollageCreate, rose.Unexpected, err)
	}
	f.Close()

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshCollages(ctx, c, cfg, []string{name})
}

// DeleteCollage moves a collage's TOML file to the cache trash.
// Returns an Expected error if no such collage exists.
func DeleteCollage(ctx context.Context, cfg *config.Config, c *cache.Cache, name string) error {
	path := filePath(cfg, KindCollage, name)

	unlock, err := c.Lock(ctx, lockName(KindCollage, name), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpCollageDelete, "collage %s does not exist", name)
	}
	if err := moveToTrash(cfg, KindCollage, path); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshCollages(ctx, c, cfg, nil)
}

// RenameCollage renames a collage and every cover-art file sharing its
// stem. Returns an Expected error if oldName is absent or newName is
// already taken.
func RenameCollage(ctx context.Context, cfg *config.Config, c *cache.Cache, oldName, newName string) error {
	oldPath := filePath(cfg, KindCollage, oldName)
	newPath := filePath(cfg, KindCollage, newName)

	unlockOld, err := c.Lock(ctx, lockName(KindCollage, oldName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlockOld()
	unlockNew, err := c.Lock(ctx, lockName(KindCollage, newName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlockNew()

	if _, err := os.Stat(oldPath); err != nil {
		return rose.Expectedf(rose.OpCollageRename, "collage %s does not exist", oldName)
	}
	if _, err := os.Stat(newPath); err == nil {
		return rose.Expectedf(rose.OpCollageRename, "collage %s already exists", newName)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return rose.Wrap(rose.OpCollageRename, rose.Unexpected, err)
	}
	if err := renameSiblingFiles(KindCollage, dirPath(cfg, KindCollage), oldName, newName); err != nil {
		return err
	}

	if err := unlockNew(); err != nil {
		return err
	}
	if err := unlockOld(); err != nil {
		return err
	}
	if err := cache.RefreshCollages(ctx, c, cfg, []string{newName}); err != nil {
		return err
	}
	return cache.RefreshCollages(ctx, c, cfg, nil)
}

// AddReleaseToCollage appends a release to a collage, no-op if it's
// already a member.
func AddReleaseToCollage(ctx context.Context, cfg *config.Config, c *cache.Cache, collageName, releaseID string) error {
	logtext, err := collageReleaseLogtext(c, ctx, releaseID)
	if err != nil {
		return err
	}
	path := filePath(cfg, KindCollage, collageName)
	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpCollageEdit, "collage %s does not exist", collageName)
	}

	unlock, err := c.Lock(ctx, lockName(KindCollage, collageName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := readCollageFile(path)
	if err != nil {
		return err
	}
	for _, r := range data.Releases {
		if r.UUID == releaseID {
			return unlock()
		}
	}
	data.Releases = append(data.Releases, CollageEntry{UUID: releaseID, DescriptionMeta: logtext})
	if err := writeTOML(KindCollage, path, data); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshCollages(ctx, c, cfg, []string{collageName})
}

// RemoveReleaseFromCollage removes a release from a collage, no-op if
// it's not a member.
func RemoveReleaseFromCollage(ctx context.Context, cfg *config.Config, c *cache.Cache, collageName, releaseID string) error {
	path := filePath(cfg, KindCollage, collageName)
	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpCollageEdit, "collage %s does not exist", collageName)
	}

	unlock, err := c.Lock(ctx, lockName(KindCollage, collageName), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := readCollageFile(path)
	if err != nil {
		return err
	}
	kept := data.Releases[:0]
	removed := false
	for _, r := range data.Releases {
		if r.UUID == releaseID {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if !removed {
		return unlock()
	}
	data.Releases = kept
	if err := writeTOML(KindCollage, path, data); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshCollages(ctx, c, cfg, []string{collageName})
}

// EditCollageInEditor materializes the collage's release descriptions
// to a scratch file, spawns $EDITOR, and applies the edited ordering
// back. Each surviving line must map back to a known release
// unambiguously (by its description_meta text) or the whole edit is
// rejected; omitting a line deletes that release from the collage.
func EditCollageInEditor(ctx context.Context, cfg *config.Config, c *cache.Cache, name string) error {
	path := filePath(cfg, KindCollage, name)
	if _, err := os.Stat(path); err != nil {
		return rose.Expectedf(rose.OpCollageEdit, "collage %s does not exist", name)
	}

	unlock, err := c.Lock(ctx, lockName(KindCollage, name), cache.EditLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := readCollageFile(path)
	if err != nil {
		return err
	}
	byDesc := make(map[string]string, len(data.Releases))
	var lines []string
	for _, r := range data.Releases {
		byDesc[r.DescriptionMeta] = r.UUID
		lines = append(lines, r.DescriptionMeta)
	}
	original := strings.Join(lines, "\n")

	scratch := scratchPath(cfg, KindCollage, name)
	if err := os.WriteFile(scratch, []byte(original), filePerm); err != nil {
		return rose.Wrap(rose.OpCollageEdit, rose.Unexpected, err)
	}

	if err := editorCommand(scratch).Run(); err != nil {
		return rose.Expectedf(rose.OpCollageEdit, "editor exited with an error, leaving the edit at %s: %v", scratch, err)
	}

	edited, err := os.ReadFile(scratch)
	if err != nil {
		return rose.Wrap(rose.OpCollageEdit, rose.Unexpected, err)
	}
	os.Remove(scratch)

	if strings.TrimSpace(string(edited)) == strings.TrimSpace(original) {
		return unlock()
	}

	var newReleases []CollageEntry
	for _, line := range strings.Split(strings.TrimSpace(string(edited)), "\n") {
		desc := strings.TrimSpace(line)
		if desc == "" {
			continue
		}
		uuid, ok := byDesc[desc]
		if !ok {
			return rose.Expectedf(rose.OpCollageEdit,
				"release %q does not match a known release in the collage. Was the line edited?", desc)
		}
		newReleases = append(newReleases, CollageEntry{UUID: uuid, DescriptionMeta: desc})
	}
	if err := writeTOML(KindCollage, path, collageFile{Releases: newReleases}); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.RefreshCollages(ctx, c, cfg, []string{name})
}

// SetCollageCoverArt validates ext against the configured valid art
// extensions, removes any existing cover for name, and copies src in
// as the new one.
func SetCollageCoverArt(cfg *config.Config, name, srcPath, ext string) error {
	return setCoverArt(cfg, KindCollage, name, srcPath, ext)
}

// DeleteCollageCoverArt removes name's cover file, if any.
func DeleteCollageCoverArt(cfg *config.Config, name string) error {
	_, err := removeCoverArt(KindCollage, dirPath(cfg, KindCollage), name, cfg.ValidArtExts)
	return err
}

func readCollageFile(path string) (collageFile, error) {
	var data collageFile
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, rose.Wrap(rose.OpCollageEdit, rose.Unexpected, err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := toml.Unmarshal(raw, &data); err != nil {
		return data, rose.Expectedf(rose.OpCollageEdit, "parse collage %s: %v", path, err)
	}
	return data, nil
}
