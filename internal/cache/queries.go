package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rose-music/rose/internal/rose"
	"github.com/rose-music/rose/internal/tags"
)

// Release is a fully materialized row from releases_view plus its
// junction tables (genres, labels, artists, ...). Callers never issue
// ad-hoc SQL against the underlying tables.
type Release struct {
	ID              string
	SourcePath      string
	CoverImagePath  string
	AddedAt         time.Time
	DatafileMtime   string
	Title           string
	ReleaseType     string
	ReleaseDate     tags.PartialDate
	OriginalDate    tags.PartialDate
	CompositionDate tags.PartialDate
	CatalogNumber   string
	Edition         string
	DiscTotal       int
	New             bool
	Metahash        string
	Genre           []string
	SecondaryGenre  []string
	Descriptor      []string
	Label           []string
	Artists         tags.ArtistMapping
}

// Track is a fully materialized row from tracks_view plus its artist junction.
type Track struct {
	ID              string
	SourcePath      string
	SourceMtime     string
	Title           string
	ReleaseID       string
	ReleaseTitle    string
	TrackNumber     string
	TrackTotal      int
	DiscNumber      string
	DurationSeconds int
	Metahash        string
	Artists         tags.ArtistMapping
}

// Releases returns every release in the cache, ordered by source_path
// for deterministic listing.
func (c *Cache) Releases(ctx context.Context) ([]Release, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id FROM releases_view ORDER BY source_path`)
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	ids, err := scanIDs(rows)
	if err != nil {
		return nil, err
	}
	out := make([]Release, 0, len(ids))
	for _, id := range ids {
		r, err := c.Release(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

// Release loads one release by id, or rose.Expected "unknown release" if absent.
func (c *Cache) Release(ctx context.Context, id string) (*Release, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, source_path, cover_image_path, added_at, datafile_mtime, title,
		       releasetype, releasedate, originaldate, compositiondate,
		       catalognumber, edition, disctotal, new, metahash
		FROM releases_view WHERE id = ?`, id)

	var (
		r                                                 Release
		coverPath                                         sql.NullString
		addedAtRaw                                        string
		releaseDate, originalDate, compositionDate         string
		newFlag                                            int
	)
	err := row.Scan(&r.ID, &r.SourcePath, &coverPath, &addedAtRaw, &r.DatafileMtime, &r.Title,
		&r.ReleaseType, &releaseDate, &originalDate, &compositionDate,
		&r.CatalogNumber, &r.Edition, &r.DiscTotal, &newFlag, &r.Metahash)
	if err == sql.ErrNoRows {
		return nil, rose.Expectedf(rose.OpCacheQuery, "unknown release: %s", id)
	}
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	r.CoverImagePath = coverPath.String
	r.New = newFlag != 0
	if t, perr := time.Parse(time.RFC3339Nano, addedAtRaw); perr == nil {
		r.AddedAt = t
	}
	if d, ok := tags.ParsePartialDate(releaseDate); ok {
		r.ReleaseDate = d
	}
	if d, ok := tags.ParsePartialDate(originalDate); ok {
		r.OriginalDate = d
	}
	if d, ok := tags.ParsePartialDate(compositionDate); ok {
		r.CompositionDate = d
	}

	if r.Genre, err = loadJunctionValues(ctx, c.db, "releases_genres", "release_id", id); err != nil {
		return nil, err
	}
	if r.SecondaryGenre, err = loadJunctionValues(ctx, c.db, "releases_secondary_genres", "release_id", id); err != nil {
		return nil, err
	}
	if r.Descriptor, err = loadJunctionValues(ctx, c.db, "releases_descriptors", "release_id", id); err != nil {
		return nil, err
	}
	if r.Label, err = loadJunctionValues(ctx, c.db, "releases_labels", "release_id", id); err != nil {
		return nil, err
	}
	if r.Artists, err = loadArtistJunction(ctx, c.db, "releases_artists", "release_id", id); err != nil {
		return nil, err
	}
	return &r, nil
}

// Tracks returns every track belonging to releaseID, ordered by disc
// then track number.
func (c *Cache) Tracks(ctx context.Context, releaseID string) ([]Track, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, source_path, source_mtime, title, release_id, release_title,
		       tracknumber, tracktotal, discnumber, duration_seconds, metahash
		FROM tracks_view WHERE release_id = ?
		ORDER BY discnumber, tracknumber`, releaseID)
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	defer rows.Close()

	var out []Track
	for rows.Next() {
		var t Track
		if err := rows.Scan(&t.ID, &t.SourcePath, &t.SourceMtime, &t.Title, &t.ReleaseID,
			&t.ReleaseTitle, &t.TrackNumber, &t.TrackTotal, &t.DiscNumber,
			&t.DurationSeconds, &t.Metahash); err != nil {
			return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}

	for i := range out {
		m, err := loadArtistJunction(ctx, c.db, "tracks_artists", "track_id", out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Artists = m
	}
	return out, nil
}

// Track loads a single track by id.
func (c *Cache) Track(ctx context.Context, id string) (*Track, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, source_path, source_mtime, title, release_id, release_title,
		       tracknumber, tracktotal, discnumber, duration_seconds, metahash
		FROM tracks_view WHERE id = ?`, id)
	var t Track
	err := row.Scan(&t.ID, &t.SourcePath, &t.SourceMtime, &t.Title, &t.ReleaseID,
		&t.ReleaseTitle, &t.TrackNumber, &t.TrackTotal, &t.DiscNumber,
		&t.DurationSeconds, &t.Metahash)
	if err == sql.ErrNoRows {
		return nil, rose.Expectedf(rose.OpCacheQuery, "unknown track: %s", id)
	}
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	t.Artists, err = loadArtistJunction(ctx, c.db, "tracks_artists", "track_id", id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func loadJunctionValues(ctx context.Context, db *sql.DB, table, ownerCol, ownerID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT value FROM `+table+` WHERE `+ownerCol+` = ? ORDER BY position`, ownerID)
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func loadArtistJunction(ctx context.Context, db *sql.DB, table, ownerCol, ownerID string) (tags.ArtistMapping, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, role, alias FROM `+table+` WHERE `+ownerCol+` = ? ORDER BY role, position`, ownerID)
	if err != nil {
		return tags.ArtistMapping{}, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	defer rows.Close()

	m := tags.ArtistMapping{}
	byRole := map[tags.Role][]tags.Artist{}
	for rows.Next() {
		var name, role string
		var alias int
		if err := rows.Scan(&name, &role, &alias); err != nil {
			return tags.ArtistMapping{}, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
		}
		byRole[tags.Role(role)] = append(byRole[tags.Role(role)], tags.Artist{Name: name, Alias: alias != 0})
	}
	if err := rows.Err(); err != nil {
		return tags.ArtistMapping{}, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}

	m.Main = byRole[tags.RoleMain]
	m.Guest = byRole[tags.RoleGuest]
	m.Remixer = byRole[tags.RoleRemixer]
	m.Producer = byRole[tags.RoleProducer]
	m.Composer = byRole[tags.RoleComposer]
	m.Conductor = byRole[tags.RoleConductor]
	m.DJMixer = byRole[tags.RoleDJMixer]
	return m, nil
}
