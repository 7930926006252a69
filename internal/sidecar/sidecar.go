// Package sidecar manages the per-release `.rose.<uuid>.toml` datafile
// that carries a release's identity (id, new flag, added-at timestamp)
// independent of its tags.
package sidecar

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml"

	"github.com/rose-music/rose/internal/rose"
)

var sidecarNameRe = regexp.MustCompile(`^\.rose\.([0-9a-fA-F-]+)\.toml$`)

const filePerm = 0o644

// Data is the sidecar's on-disk content.
type Data struct {
	New     bool      `toml:"new"`
	AddedAt time.Time `toml:"added_at"`
}

// Find scans dir for a sidecar filename, returning its path and
// parsed UUID. The first match wins; ok is false if none exists.
func Find(dir string) (path string, id string, ok bool, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", false, rose.Wrap(rose.OpSidecarRead, rose.Unexpected, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := sidecarNameRe.FindStringSubmatch(e.Name()); m != nil {
			if _, perr := uuid.Parse(m[1]); perr == nil {
				return filepath.Join(dir, e.Name()), m[1], true, nil
			}
		}
	}
	return "", "", false, nil
}

// ReadOrCreate loads dir's sidecar, creating one with a fresh v7 UUID
// and defaults if absent. A present-but-unparseable file logs and
// returns defaults without overwriting the file (so a later manual fix
// isn't clobbered); a present file with fields missing is filled with
// defaults and rewritten.
func ReadOrCreate(dir string) (id string, data Data, err error) {
	path, id, ok, err := Find(dir)
	if err != nil {
		return "", Data{}, err
	}
	if !ok {
		id = newUUIDv7()
		data = Data{New: true, AddedAt: time.Now()}
		if werr := write(sidecarPath(dir, id), data); werr != nil {
			return "", Data{}, werr
		}
		return id, data, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", Data{}, rose.Wrap(rose.OpSidecarRead, rose.Unexpected, err)
	}

	var parsed Data
	if perr := toml.Unmarshal(raw, &parsed); perr != nil {
		slog.Warn("failed to parse release datafile, falling back to defaults", "path", path, "err", perr)
		return id, Data{New: true, AddedAt: time.Now()}, nil
	}

	filled := parsed
	dirty := false
	if filled.AddedAt.IsZero() {
		filled.AddedAt = time.Now()
		dirty = true
	}
	// A missing "new" key decodes as false, so its presence is checked
	// on the raw tree to fill in the default of true.
	if tree, terr := toml.LoadBytes(raw); terr == nil && !tree.Has("new") {
		filled.New = true
		dirty = true
	}
	if dirty {
		if werr := write(path, filled); werr != nil {
			return "", Data{}, werr
		}
	}
	return id, filled, nil
}

// Write rewrites a release's sidecar atomically via temp-file-and-
// rename, so concurrent readers never observe a partial file.
func Write(dir, id string, data Data) error {
	return write(sidecarPath(dir, id), data)
}

func write(path string, data Data) error {
	raw, err := toml.Marshal(data)
	if err != nil {
		return rose.Wrap(rose.OpSidecarWrite, rose.Unexpected, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rose.tmp-*")
	if err != nil {
		return rose.Wrap(rose.OpSidecarWrite, rose.Unexpected, err)
	}
	tmpPath := tmp.Name()
	if _, werr := tmp.Write(raw); werr != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return rose.Wrap(rose.OpSidecarWrite, rose.Unexpected, werr)
	}
	if cerr := tmp.Close(); cerr != nil {
		os.Remove(tmpPath)
		return rose.Wrap(rose.OpSidecarWrite, rose.Unexpected, cerr)
	}
	if cerr := os.Chmod(tmpPath, filePerm); cerr != nil {
		os.Remove(tmpPath)
		return rose.Wrap(rose.OpSidecarWrite, rose.Unexpected, cerr)
	}
	if rerr := os.Rename(tmpPath, path); rerr != nil {
		os.Remove(tmpPath)
		return rose.Wrap(rose.OpSidecarWrite, rose.Unexpected, rerr)
	}
	return nil
}

// SetNew flips the sidecar's new flag and rewrites it.
func SetNew(dir, id string, data Data, value bool) (Data, error) {
	data.New = value
	return data, write(sidecarPath(dir, id), data)
}

func sidecarPath(dir, id string) string {
	return filepath.Join(dir, ".rose."+id+".toml")
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
