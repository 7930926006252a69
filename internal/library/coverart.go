package library

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
)

// SetCoverArt validates ext against cfg.ValidArtExts, removes any
// existing cover file in the release directory, and copies srcPath in
// under the canonical cover stem. The cache's cover_image_path is
// updated directly, since neither the release's metahash nor its
// sidecar mtime reflect a cover-only change.
func SetCoverArt(ctx context.Context, cfg *config.Config, c *cache.Cache, releaseID, srcPath, ext string) error {
	ext = strings.TrimPrefix(ext, ".")
	if !extIn(ext, cfg.ValidArtExts) {
		return rose.Expectedf(rose.OpReleaseCoverArt, "cover art extension %q is not one of the allowed extensions: %v", ext, cfg.ValidArtExts)
	}

	r, err := c.Release(ctx, releaseID)
	if err != nil {
		return err
	}

	unlock, err := c.Lock(ctx, releaseLockName(releaseID), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := removeExistingCoverArt(cfg, rose.OpReleaseCoverArt, r.SourcePath); err != nil {
		return err
	}
	dest := filepath.Join(r.SourcePath, canonicalCoverStem(cfg)+"."+ext)
	if err := copyFile(rose.OpReleaseCoverArt, srcPath, dest); err != nil {
		return err
	}

	if err := c.SetReleaseCoverPath(ctx, releaseID, dest); err != nil {
		return err
	}
	return unlock()
}

// DeleteCoverArt removes a release's cover file, if any, and clears
// the cached cover_image_path.
func DeleteCoverArt(ctx context.Context, cfg *config.Config, c *cache.Cache, releaseID string) error {
	r, err := c.Release(ctx, releaseID)
	if err != nil {
		return err
	}

	unlock, err := c.Lock(ctx, releaseLockName(releaseID), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := removeExistingCoverArt(cfg, rose.OpReleaseCoverArt, r.SourcePath); err != nil {
		return err
	}
	if err := c.SetReleaseCoverPath(ctx, releaseID, ""); err != nil {
		return err
	}
	return unlock()
}

func copyFile(op rose.Op, srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	defer src.Close()
	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	defer dest.Close()
	if _, err := io.Copy(dest, src); err != nil {
		return rose.Wrap(op, rose.Unexpected, err)
	}
	return nil
}
