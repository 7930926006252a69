// Package library implements the mutation commands that act on a
// single release: delete, toggle-new, cover-art replace, single-track
// creation from an existing track, and the metadata editor round
// trip. Every operation on an existing release serializes on that
// release's named lock (`release:<id>`); CreateSingle takes no lock.
// Once the filesystem change has landed, the cache is brought up to
// date by a targeted cache.Refresh (a full one after a delete) or, for
// cover art, by a direct cache.SetReleaseCoverPath update.
package library

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
)

func releaseLockName(id string) string { return "release:" + id }

// editorCommand resolves $EDITOR, falling back to nano, same
// convention as the collections package's editor round trip.
func editorCommand(path string) *exec.Cmd {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "nano"
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd
}

// moveToTrash moves path into <cache_dir>/trash/<base>, same
// collision-avoidance as the collections package's helper of the same
// name: a name already present in the trash is disambiguated with a
// timestamp prefix instead of being overwritten.
func moveToTrash(cfg *config.Config, op rose.Op, path string) error {
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

// canonicalCoverStem is the filename stem new cover art is written
// under; cfg.CoverArtStems is a recognition list for existing files
// (any of them is accepted), but a freshly-set cover needs exactly one
// name to be written as.
func canonicalCoverStem(cfg *config.Config) string {
	if len(cfg.CoverArtStems) > 0 {
		return cfg.CoverArtStems[0]
	}
	return "cover"
}

// removeExistingCoverArt deletes any file in dir whose stem matches
// one of cfg.CoverArtStems and whose extension is in cfg.ValidArtExts,
// reporting whether anything was actually removed.
func removeExistingCoverArt(cfg *config.Config, op rose.Op, dir string) (bool, error) {
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
		if !stemIn(stem, cfg.CoverArtStems) || !extIn(ext, cfg.ValidArtExts) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return found, rose.Wrap(op, rose.Unexpected, err)
		}
		found = true
	}
	return found, nil
}

func stemIn(stem string, stems []string) bool {
	for _, s := range stems {
		if strings.EqualFold(stem, s) {
			return true
		}
	}
	return false
}

func extIn(ext string, valid []string) bool {
	for _, v := range valid {
		if strings.EqualFold(ext, v) {
			return true
		}
	}
	return false
}

// resumePath is where an edit_release round trip's scratch TOML is
// kept, named by release id so a failed write leaves a distinct,
// re-openable file per release rather than clobbering a previous one.
func resumePath(cfg *config.Config, releaseID string) string {
	return filepath.Join(cfg.CacheDir, "rose-edit-release-"+releaseID+".toml")
}
