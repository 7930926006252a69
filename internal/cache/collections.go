package cache

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml"

	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/db"
	"github.com/rose-music/rose/internal/rose"
)

// collectionEntry is the minimal shape this package needs out of a
// collage/playlist TOML file: just the ordered uuid list. The TOML
// field names (and the full description_meta round-trip) live in
// internal/collections, which owns the file format; this reads the
// same files structurally to keep the junction tables in sync.
type collectionEntry struct {
	UUID string `toml:"uuid"`
}

type collectionFileReleases struct {
	Releases []collectionEntry `toml:"releases"`
}

type collectionFileTracks struct {
	Tracks []collectionEntry `toml:"tracks"`
}

// RefreshCollages re-reads the named collages (or every *.toml under
// !collages/ when names is nil) and upserts collages/collages_releases,
// marking a reference whose release has vanished from the cache as
// missing rather than dropping it, so a transient scan ordering never
// loses a user's curation. When names is nil, collages whose file no
// longer exists are evicted too.
func RefreshCollages(ctx context.Context, c *Cache, cfg *config.Config, names []string) error {
	dir := filepath.Join(cfg.MusicSourceDir, "!collages")
	found, err := collectionNames(dir)
	if err != nil {
		return err
	}
	targets := names
	if targets == nil {
		targets = found
	}
	for _, name := range targets {
		if err := refreshOneCollage(ctx, c, cfg, dir, name); err != nil {
			return err
		}
	}
	if names == nil {
		if err := evictMissingCollages(ctx, c, found); err != nil {
			return err
		}
	}
	return nil
}

func refreshOneCollage(ctx context.Context, c *Cache, cfg *config.Config, dir, name string) error {
	path := filepath.Join(dir, name+".toml")
	info, err := os.Stat(path)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	var file collectionFileReleases
	raw, err := os.ReadFile(path)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	if len(raw) > 0 {
		if err := toml.Unmarshal(raw, &file); err != nil {
			return rose.Expectedf(rose.OpCacheRefresh, "parse collage %s: %v", name, err)
		}
	}

	return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, db.WithTx(c.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collages (name, source_mtime) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET source_mtime=excluded.source_mtime`,
			name, info.ModTime().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM collages_releases WHERE collage_name = ?`, name); err != nil {
			return err
		}
		for i, entry := range file.Releases {
			missing := 0
			if err := tx.QueryRowContext(ctx, `SELECT 1 FROM releases WHERE id = ?`, entry.UUID).Scan(new(int)); err == sql.ErrNoRows {
				missing = 1
			} else if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO collages_releases (collage_name, release_id, position, missing) VALUES (?, ?, ?, ?)`,
				name, entry.UUID, i+1, missing); err != nil {
				return err
			}
		}
		return nil
	}))
}

func evictMissingCollages(ctx context.Context, c *Cache, present []string) error {
	return evictMissingNamed(ctx, c, "collages", present)
}

// RefreshPlaylists mirrors RefreshCollages for !playlists/*.toml and
// the playlists/playlists_tracks tables.
func RefreshPlaylists(ctx context.Context, c *Cache, cfg *config.Config, names []string) error {
	dir := filepath.Join(cfg.MusicSourceDir, "!playlists")
	found, err := collectionNames(dir)
	if err != nil {
		return err
	}
	targets := names
	if targets == nil {
		targets = found
	}
	for _, name := range targets {
		if err := refreshOnePlaylist(ctx, c, cfg, dir, name); err != nil {
			return err
		}
	}
	if names == nil {
		if err := evictMissingNamed(ctx, c, "playlists", found); err != nil {
			return err
		}
	}
	return nil
}

func refreshOnePlaylist(ctx context.Context, c *Cache, cfg *config.Config, dir, name string) error {
	path := filepath.Join(dir, name+".toml")
	info, err := os.Stat(path)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	var file collectionFileTracks
	raw, err := os.ReadFile(path)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	if len(raw) > 0 {
		if err := toml.Unmarshal(raw, &file); err != nil {
			return rose.Expectedf(rose.OpCacheRefresh, "parse playlist %s: %v", name, err)
		}
	}
	coverPath := findCollectionCover(dir, name, cfg.ValidArtExts)

	return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, db.WithTx(c.db, func(tx *sql.Tx) error {
		var cover sql.NullString
		if coverPath != "" {
			cover = sql.NullString{String: coverPath, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO playlists (name, source_mtime, cover_path) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET source_mtime=excluded.source_mtime, cover_path=excluded.cover_path`,
			name, info.ModTime().UTC().Format(time.RFC3339Nano), cover)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlists_tracks WHERE playlist_name = ?`, name); err != nil {
			return err
		}
		for i, entry := range file.Tracks {
			missing := 0
			if err := tx.QueryRowContext(ctx, `SELECT 1 FROM tracks WHERE id = ?`, entry.UUID).Scan(new(int)); err == sql.ErrNoRows {
				missing = 1
			} else if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO playlists_tracks (playlist_name, track_id, position, missing) VALUES (?, ?, ?, ?)`,
				name, entry.UUID, i+1, missing); err != nil {
				return err
			}
		}
		return nil
	}))
}

func findCollectionCover(dir, name string, validExts []string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(e.Name()), ".")
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if stem != name {
			continue
		}
		for _, v := range validExts {
			if strings.EqualFold(ext, v) {
				return filepath.Join(dir, e.Name())
			}
		}
	}
	return ""
}

func collectionNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	return names, nil
}

func evictMissingNamed(ctx context.Context, c *Cache, table string, present []string) error {
	keep := toSet(present)
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM `+table)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
		if !keep[name] {
			stale = append(stale, name)
		}
	}
	rows.Close()
	for _, name := range stale {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE name = ?`, name); err != nil {
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
	}
	return nil
}
