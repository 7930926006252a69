// Package collections implements collages (ordered release lists) and
// playlists (ordered track lists): TOML sidecars under
// <music>/!collages/ and <music>/!playlists/, CRUD against those
// files, and the interactive editor round-trip used to reorder or
// prune entries by hand.
package collections

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"

	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
)

func (k Kind) editOp() rose.Op {
	if k == KindCollage {
		return rose.OpCollageEdit
	}
	return rose.OpPlaylistEdit
}

func (k Kind) deleteOp() rose.Op {
	if k == KindCollage {
		return rose.OpCollageDelete
	}
	return rose.OpPlaylistDelete
}

func (k Kind) renameOp() rose.Op {
	if k == KindCollage {
		return rose.OpCollageRename
	}
	return rose.OpPlaylistRename
}

// Kind distinguishes a collage (list of releases) from a playlist
// (list of tracks); the two share every operation below except the
// TOML array-of-tables key and the disambiguation rule in the editor.
type Kind int

const (
	KindCollage Kind = iota
	KindPlaylist
)

func (k Kind) dirName() string {
	if k == KindCollage {
		return "!collages"
	}
	return "!playlists"
}

func (k Kind) lockPrefix() string {
	if k == KindCollage {
		return "collage:"
	}
	return "playlist:"
}

func lockName(k Kind, name string) string { return k.lockPrefix() + name }

func dirPath(cfg *config.Config, k Kind) string {
	return filepath.Join(cfg.MusicSourceDir, k.dirName())
}

func filePath(cfg *config.Config, k Kind, name string) string {
	return filepath.Join(dirPath(cfg, k), name+".toml")
}

const filePerm = 0o644

func writeTOML(k Kind, path string, v any) error {
	op := k.editOp()
	raw, err := toml.Marshal(v)
	if err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rose.tmp-*")
	if err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	tmpPath := tmp.Name()
	if _, werr := tmp.Write(raw); werr != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return rose.Wrap(op, rose.Unexpected, werr)
	}
	if cerr := tmp.Close(); cerr != nil {
		os.Remove(tmpPath)
		return rose.Wrap(op, rose.Unexpected, cerr)
	}
	if cerr := os.Chmod(tmpPath, filePerm); cerr != nil {
		os.Remove(tmpPath)
		return rose.Wrap(op, rose.Unexpected, cerr)
	}
	if rerr := os.Rename(tmpPath, path); rerr != nil {
		os.Remove(tmpPath)
		return rose.Wrap(op, rose.Unexpected, rerr)
	}
	return nil
}

// moveToTrash moves path into <cache_dir>/trash/<base>, creating the
// trash directory if needed. A name collision is resolved by
// prefixing the current time to the name, same as internal/library's
// moveToTrash does for release directories.
func moveToTrash(cfg *config.Config, k Kind, path string) error {
	op := k.deleteOp()
	trashDir := filepath.Join(cfg.CacheDir, "trash")
	if err := os.MkdirAll(trashDir, 0o755); err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	dest := filepath.Join(trashDir, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(trashDir, time.Now().UTC().Format("20060102T150405.000000000")+"-"+filepath.Base(path))
	}
	if err := os.Rename(path, dest); err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	return nil
}

// renameSiblingFiles renames every non-.toml file in dir whose stem is
// oldName to the same extension under newName (collage/playlist cover
// art), skipping any rename whose destination already exists.
func renameSiblingFiles(k Kind, dir, oldName, newName string) error {
	op := k.renameOp()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		if stem != oldName || ext == ".toml" {
			continue
		}
		dest := filepath.Join(dir, newName+ext)
		if _, statErr := os.Stat(dest); statErr == nil {
			continue
		}
		if err := os.Rename(filepath.Join(dir, name), dest); err != nil {
			return rose.Wrap(op, rose.Unexpected, err)
		}
	}
	return nil
}

// removeCoverArt deletes every file under dir whose stem is name and
// whose extension is in validExts (case-insensitive), reporting
// whether anything was actually removed.
func removeCoverArt(k Kind, dir, name string, validExts []string) (bool, error) {
	op := k.editOp()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, rose.Wrap(op, rose.Unexpected, err)
	}
	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(e.Name()), ".")
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if stem != name || !extIn(ext, validExts) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return found, rose.Wrap(op, rose.Unexpected, err)
		}
		found = true
	}
	return found, nil
}

func extIn(ext string, valid []string) bool {
	for _, v := range valid {
		if strings.EqualFold(ext, v) {
			return true
		}
	}
	return false
}

// scratchPath returns the path of the temporary file the editor round
// trip reads and writes, under the cache directory so it survives
// alongside other ephemeral cache state and never collides with the
// source tree.
func scratchPath(cfg *config.Config, k Kind, name string) string {
	return filepath.Join(cfg.CacheDir, "rose-edit-"+strings.TrimPrefix(k.dirName(), "!")+"-"+name+".txt")
}

// setCoverArt validates ext against cfg.ValidArtExts, removes any
// existing cover file for name, and copies srcPath in as the new one.
func setCoverArt(cfg *config.Config, k Kind, name, srcPath, ext string) error {
	op := k.editOp()
	ext = strings.TrimPrefix(ext, ".")
	if !extIn(ext, cfg.ValidArtExts) {
		return rose.Expectedf(op, "cover art extension %q is not one of the allowed extensions: %v", ext, cfg.ValidArtExts)
	}
	dir := dirPath(cfg, k)
	if _, err := removeCoverArt(k, dir, name, cfg.ValidArtExts); err != nil {
		return err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	defer src.Close()
	dest, err := os.OpenFile(filepath.Join(dir, name+"."+ext), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	defer dest.Close()
	if _, err := io.Copy(dest, src); err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	return nil
}

// editorCommand resolves $EDITOR, falling back to nano per spec.
func editorCommand(path string) *exec.Cmd {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "nano"
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd
}

