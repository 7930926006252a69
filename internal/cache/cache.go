// Package cache owns the SQLite metadata store every other component
// reads through: schema bootstrap, the directory-scan refresher, the
// per-character-tokenized full-text index, named advisory locks, and a
// typed read surface over releases_view/tracks_view.
package cache

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/rose-music/rose/internal/rose"
)

// Cache wraps the pooled *sql.DB connection to the cache database plus
// the cache_dir it was opened under.
type Cache struct {
	db       *sql.DB
	cacheDir string
}

// Open opens (creating if absent) the cache database under cacheDir,
// applies the corpus's pragma set, bootstraps the schema, and sizes
// the pool to maxProc+2 so a full-concurrency scan never starves a
// concurrent reader of a connection.
func Open(cacheDir string, maxProc int) (*Cache, error) {
	dbPath := filepath.Join(cacheDir, "cache.sqlite3")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheOpen, rose.Unexpected, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, rose.Wrap(rose.OpCacheOpen, rose.Unexpected, err)
		}
	}

	poolSize := maxProc + 2
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	c := &Cache{db: db, cacheDir: cacheDir}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error { return c.db.Close() }

// DB exposes the pooled connection for components (rules, collections)
// that need transactional access beyond the typed query surface.
func (c *Cache) DB() *sql.DB { return c.db }

// CacheDir returns the directory this cache's database (and trash/)
// lives under.
func (c *Cache) CacheDir() string { return c.cacheDir }

const schemaVersion = 1

func (c *Cache) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS schema_meta (
			version INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS releases (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL UNIQUE,
			cover_image_path TEXT,
			added_at TEXT NOT NULL,
			datafile_mtime TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			releasetype TEXT NOT NULL DEFAULT 'unknown',
			releasedate TEXT NOT NULL DEFAULT '',
			originaldate TEXT NOT NULL DEFAULT '',
			compositiondate TEXT NOT NULL DEFAULT '',
			catalognumber TEXT NOT NULL DEFAULT '',
			edition TEXT NOT NULL DEFAULT '',
			disctotal INTEGER NOT NULL DEFAULT 0,
			new INTEGER NOT NULL DEFAULT 1,
			metahash TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS tracks (
			id TEXT PRIMARY KEY,
			source_path TEXT NOT NULL UNIQUE,
			source_mtime TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			release_id TEXT NOT NULL REFERENCES releases(id) ON DELETE CASCADE,
			tracknumber TEXT NOT NULL DEFAULT '',
			tracktotal INTEGER NOT NULL DEFAULT 0,
			discnumber TEXT NOT NULL DEFAULT '',
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			metahash TEXT NOT NULL DEFAULT '',
			UNIQUE (release_id, discnumber, tracknumber)
		)`,

		junctionTableSQL("releases_genres", "release_id", "releases"),
		junctionTableSQL("releases_secondary_genres", "release_id", "releases"),
		junctionTableSQL("releases_descriptors", "release_id", "releases"),
		junctionTableSQL("releases_labels", "release_id", "releases"),
		junctionArtistTableSQL("releases_artists", "release_id", "releases"),
		junctionArtistTableSQL("tracks_artists", "track_id", "tracks"),

		`CREATE TABLE IF NOT EXISTS collages (
			name TEXT PRIMARY KEY,
			source_mtime TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS collages_releases (
			collage_name TEXT NOT NULL REFERENCES collages(name) ON DELETE CASCADE,
			release_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			missing INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (collage_name, release_id)
		)`,

		`CREATE TABLE IF NOT EXISTS playlists (
			name TEXT PRIMARY KEY,
			source_mtime TEXT NOT NULL,
			cover_path TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS playlists_tracks (
			playlist_name TEXT NOT NULL REFERENCES playlists(name) ON DELETE CASCADE,
			track_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			missing INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (playlist_name, track_id)
		)`,

		// unicode61 already treats U+00AC (a Symbol, Math codepoint) as a
		// separator rather than a token character, so the ¬-between-every-
		// scalar projection built in fts.go turns each source character
		// into its own FTS token without a custom tokenizer.
		`CREATE VIRTUAL TABLE IF NOT EXISTS rules_engine_fts USING fts5(
			tracktitle, tracknumber, discnumber, releasetitle, releasedate,
			originaldate, compositiondate, catalognumber, edition, releasetype,
			genre, secondarygenre, descriptor, label, releaseartist, trackartist,
			new,
			tokenize='unicode61'
		)`,

		`CREATE TABLE IF NOT EXISTS locks (
			name TEXT PRIMARY KEY,
			valid_until REAL NOT NULL
		)`,

		`CREATE VIEW IF NOT EXISTS releases_view AS
			SELECT r.*
			FROM releases r`,

		`CREATE VIEW IF NOT EXISTS tracks_view AS
			SELECT t.*, r.title AS release_title
			FROM tracks t
			JOIN releases r ON r.id = t.release_id`,
	}

	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return rose.Wrap(rose.OpCacheSchema, rose.Unexpected, fmt.Errorf("%s: %w", stmt, err))
		}
	}

	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM schema_meta`).Scan(&count); err != nil {
		return rose.Wrap(rose.OpCacheSchema, rose.Unexpected, err)
	}
	if count == 0 {
		if _, err := c.db.Exec(`INSERT INTO schema_meta(version) VALUES (?)`, schemaVersion); err != nil {
			return rose.Wrap(rose.OpCacheSchema, rose.Unexpected, err)
		}
	}
	return nil
}

// junctionTableSQL builds an order-preserving many-valued junction
// table (genres, secondary_genres, descriptors, labels) for owner.
func junctionTableSQL(name, ownerCol, ownerTable string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
		value TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (%s, position)
	)`, name, ownerCol, ownerTable, ownerCol)
}

// junctionArtistTableSQL is like junctionTableSQL but also carries the
// artist's role and alias flag (releases_artists, tracks_artists).
func junctionArtistTableSQL(name, ownerCol, ownerTable string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		%s TEXT NOT NULL REFERENCES %s(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		alias INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL,
		PRIMARY KEY (%s, role, position)
	)`, name, ownerCol, ownerTable, ownerCol)
}
