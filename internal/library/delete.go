package library

import (
	"context"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
)

// DeleteRelease moves a release's entire directory to the cache trash
// and evicts it (and its tracks) from the cache.
func DeleteRelease(ctx context.Context, cfg *config.Config, c *cache.Cache, releaseID string) error {
	r, err := c.Release(ctx, releaseID)
	if err != nil {
		return err
	}

	unlock, err := c.Lock(ctx, releaseLockName(releaseID), cache.DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if err := moveToTrash(cfg, rose.OpReleaseDelete, r.SourcePath); err != nil {
		return err
	}

	if err := unlock(); err != nil {
		return err
	}
	return cache.Refresh(ctx, c, cfg, nil)
}
