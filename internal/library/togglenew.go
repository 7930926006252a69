package library

import (
	"context"
	"path/filepath"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/sidecar"
)

// ToggleNew flips a release's sidecar "new" flag. The sidecar rewrite
// bumps its own mtime, which is enough for the next targeted refresh
// to notice the change — no other release field is touched.
func ToggleNew(ctx context.Context, cfg *config.Config, c *cache.Cache, releaseID string) error {
	r, err := c.Release(ctx, releaseID)
	if err != nil {
		return err
	}

	unlock, err := c.Lock(ctx, releaseLockName(releaseID), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	id, data, err := sidecar.ReadOrCreate(r.SourcePath)
	if err != nil {
		return err
	}
	if _, err := sidecar.SetNew(r.SourcePath, id, data, !data.New); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.Refresh(ctx, c, cfg, []string{filepath.Base(r.SourcePath)})
}
