package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
	"github.com/rose-music/rose/internal/sidecar"
	"github.com/rose-music/rose/internal/tags"
)

// CreateSingle creates a new release directory containing a copy of
// trackID's audio file, with a fresh sidecar (so it gets its own id,
// independent of the source release). Returns the new release's id.
func CreateSingle(ctx context.Context, cfg *config.Config, c *cache.Cache, trackID string) (string, error) {
	t, err := c.Track(ctx, trackID)
	if err != nil {
		return "", err
	}

	dirName := singleDirName(cfg, t.Title)
	dir := filepath.Join(cfg.MusicSourceDir, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", rose.Wrap(rose.OpReleaseCreate, rose.Unexpected, err)
	}

	destTrack := filepath.Join(dir, filepath.Base(t.SourcePath))
	if err := copyFile(rose.OpReleaseCreate, t.SourcePath, destTrack); err != nil {
		return "", err
	}

	releaseID, _, err := sidecar.ReadOrCreate(dir)
	if err != nil {
		return "", err
	}

	if err := cache.Refresh(ctx, c, cfg, []string{dirName}); err != nil {
		return "", err
	}
	return releaseID, nil
}

// singleDirName derives a release directory name from a track title,
// trimming incidental whitespace before sanitizing (a bare trailing
// space in the source tag shouldn't become part of the path) and
// disambiguating against any existing directory of the same name.
func singleDirName(cfg *config.Config, title string) string {
	base := tags.SanitizeDirname(strings.TrimSpace(title), cfg.MaxFilenameBytes, true)
	if base == "" {
		base = "single"
	}
	name := base
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(cfg.MusicSourceDir, name)); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s (%d)", base, i)
	}
}
