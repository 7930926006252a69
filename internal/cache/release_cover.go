package cache

import (
	"context"
	"database/sql"

	"github.com/rose-music/rose/internal/rose"
)

// SetReleaseCoverPath directly updates a release's cached cover_image_path.
// Changing a cover file touches neither a release's metahash nor its
// sidecar mtime, so the ordinary rescan-on-change path in Refresh would
// never notice it; callers that replace or remove cover art update the
// cache directly instead of waiting on the next full scan.
func (c *Cache) SetReleaseCoverPath(ctx context.Context, releaseID, path string) error {
	var coverPath sql.NullString
	if path != "" {
		coverPath = sql.NullString{String: path, Valid: true}
	}
	_, err := c.db.ExecContext(ctx, `UPDATE releases SET cover_image_path = ? WHERE id = ?`, coverPath, releaseID)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	return nil
}
