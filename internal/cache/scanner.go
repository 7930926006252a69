package cache

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/db"
	"github.com/rose-music/rose/internal/rose"
	"github.com/rose-music/rose/internal/sidecar"
	"github.com/rose-music/rose/internal/tags"
)

// scannedTrack is one audio file discovered under a release directory.
type scannedTrack struct {
	path   string
	mtime  time.Time
	record tags.Record
}

// releaseScan is the read-only result of processing one release
// directory, produced by the parallel discovery phase and consumed by
// the sequential DB-upsert tail.
type releaseScan struct {
	dirPath        string
	releaseID      string
	sidecarData    sidecar.Data
	sidecarMtime   time.Time
	coverImagePath string
	tracks         []scannedTrack
	metahash       string
}

// Refresh walks cfg.MusicSourceDir and brings the cache in sync with
// the filesystem: a release sidecar is resolved or created for every
// top-level non-reserved directory, per-release metahash short-
// circuits unchanged releases, and releases/tracks/collages/playlists
// whose on-disk counterpart vanished are evicted after all additions
// land, so a rename never produces a visible gap.
//
// If force is non-empty, only those release directory names are
// scanned (everything else in the cache is left untouched — no
// eviction pass runs).
func Refresh(ctx context.Context, c *Cache, cfg *config.Config, force []string) error {
	unlock, err := c.Lock(ctx, "cache_update", DefaultLockTimeout)
	if err != nil {
		return err
	}
	defer unlock() //nolint:errcheck

	entries, err := os.ReadDir(cfg.MusicSourceDir)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}

	forceSet := toSet(force)
	var dirNames []string
	for _, e := range entries {
		if !e.IsDir() || config.IsReservedDirectory(e.Name()) {
			continue
		}
		if len(forceSet) > 0 && !forceSet[e.Name()] {
			continue
		}
		dirNames = append(dirNames, e.Name())
	}

	scans := make([]*releaseScan, len(dirNames))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(cfg.MaxProc, 1))
	for i, name := range dirNames {
		i, dir := i, filepath.Join(cfg.MusicSourceDir, name)
		g.Go(func() error {
			scan, err := scanReleaseDir(gctx, cfg, dir)
			if err != nil {
				return err
			}
			scans[i] = scan
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, scan := range scans {
		if scan == nil {
			continue // directory had no audio files; not a release
		}
		needsUpdate, err := c.releaseNeedsUpdate(ctx, scan)
		if err != nil {
			return err
		}
		if !needsUpdate {
			continue
		}
		if err := c.upsertRelease(ctx, cfg, scan); err != nil {
			return err
		}
	}

	if len(force) == 0 {
		if err := c.evictMissingReleases(ctx, dirNames); err != nil {
			return err
		}
		if err := RefreshCollages(ctx, c, cfg, nil); err != nil {
			return err
		}
		if err := RefreshPlaylists(ctx, c, cfg, nil); err != nil {
			return err
		}
	}
	return nil
}

func scanReleaseDir(ctx context.Context, cfg *config.Config, dir string) (*releaseScan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}

	var trackFiles []string
	for _, e := range entries {
		if !e.IsDir() && tags.IsMusicFile(e.Name()) {
			trackFiles = append(trackFiles, e.Name())
		}
	}
	if len(trackFiles) == 0 {
		return nil, nil
	}
	sort.Strings(trackFiles)

	id, sc, err := sidecar.ReadOrCreate(dir)
	if err != nil {
		return nil, err
	}
	sidecarPath, _, ok, err := sidecar.Find(dir)
	if err != nil {
		return nil, err
	}
	var sidecarMtime time.Time
	if ok {
		if info, statErr := os.Stat(sidecarPath); statErr == nil {
			sidecarMtime = info.ModTime()
		}
	}

	tracks := make([]scannedTrack, 0, len(trackFiles))
	for _, name := range trackFiles {
		full := filepath.Join(dir, name)
		info, err := os.Stat(full)
		if err != nil {
			return nil, rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
		rec, err := tags.Read(full)
		if err != nil {
			// Codec/sidecar errors are per-file: log and exclude the
			// track from this scan rather than aborting the whole
			// release (and, via errgroup, every other release being
			// scanned concurrently). A later Refresh retries it.
			logScanError(full, err)
			continue
		}
		rec.ReleaseID = id
		tracks = append(tracks, scannedTrack{path: full, mtime: info.ModTime(), record: rec})
	}
	if len(tracks) == 0 {
		return nil, nil
	}

	records := make([]tags.Record, len(tracks))
	for i, t := range tracks {
		records[i] = t.record
	}

	return &releaseScan{
		dirPath:        dir,
		releaseID:      id,
		sidecarData:    sc,
		sidecarMtime:   sidecarMtime,
		coverImagePath: findCoverImagePath(dir, entries, cfg),
		tracks:         tracks,
		metahash:       ReleaseMetahash(sc.AddedAt, records),
	}, nil
}

// logScanError reports a per-track scan failure without aborting the
// scan: Expected errors (malformed tags, an unreadable file) are a
// routine warning, Unexpected ones keep their full error chain so a
// genuine bug doesn't get lost in the noise.
func logScanError(path string, err error) {
	if rose.IsExpected(err) {
		slog.Warn("skipping track with unreadable tags", "path", path, "err", err)
		return
	}
	slog.Error("skipping track after unexpected scan error", "path", path, "err", err)
}

func findCoverImagePath(dir string, entries []os.DirEntry, cfg *config.Config) string {
	stems := cfg.CoverArtStems
	exts := cfg.ValidArtExts
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
		stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		for _, s := range stems {
			if stem != strings.ToLower(s) {
				continue
			}
			for _, wantExt := range exts {
				if ext == strings.ToLower(wantExt) {
					return filepath.Join(dir, name)
				}
			}
		}
	}
	return ""
}

func (c *Cache) releaseNeedsUpdate(ctx context.Context, scan *releaseScan) (bool, error) {
	var storedMetahash, storedDatafileMtime string
	err := c.db.QueryRowContext(ctx, `SELECT metahash, datafile_mtime FROM releases WHERE id = ?`, scan.releaseID).
		Scan(&storedMetahash, &storedDatafileMtime)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	if storedMetahash != scan.metahash {
		return true, nil
	}
	if storedDatafileMtime != scan.sidecarMtime.UTC().Format(time.RFC3339Nano) {
		return true, nil
	}

	rows, err := c.db.QueryContext(ctx, `SELECT source_path, source_mtime FROM tracks WHERE release_id = ?`, scan.releaseID)
	if err != nil {
		return false, rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	defer rows.Close()

	stored := map[string]string{}
	for rows.Next() {
		var path, mtime string
		if err := rows.Scan(&path, &mtime); err != nil {
			return false, rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
		stored[path] = mtime
	}
	if len(stored) != len(scan.tracks) {
		return true, nil
	}
	for _, t := range scan.tracks {
		if stored[t.path] != t.mtime.UTC().Format(time.RFC3339Nano) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Cache) upsertRelease(ctx context.Context, cfg *config.Config, scan *releaseScan) error {
	_ = ctx
	return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, db.WithTx(c.db, func(tx *sql.Tx) error {
		lead := scan.tracks[0].record
		discTotal := 0
		for _, t := range scan.tracks {
			if t.record.DiscTotal > discTotal {
				discTotal = t.record.DiscTotal
			}
		}

		var coverPath sql.NullString
		if scan.coverImagePath != "" {
			coverPath = sql.NullString{String: scan.coverImagePath, Valid: true}
		}

		_, err := tx.Exec(`
			INSERT INTO releases (
				id, source_path, cover_image_path, added_at, datafile_mtime, title,
				releasetype, releasedate, originaldate, compositiondate,
				catalognumber, edition, disctotal, new, metahash
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				source_path=excluded.source_path, cover_image_path=excluded.cover_image_path,
				added_at=excluded.added_at, datafile_mtime=excluded.datafile_mtime,
				title=excluded.title, releasetype=excluded.releasetype,
				releasedate=excluded.releasedate, originaldate=excluded.originaldate,
				compositiondate=excluded.compositiondate, catalognumber=excluded.catalognumber,
				edition=excluded.edition, disctotal=excluded.disctotal, new=excluded.new,
				metahash=excluded.metahash`,
			scan.releaseID, scan.dirPath, coverPath,
			scan.sidecarData.AddedAt.UTC().Format(time.RFC3339Nano),
			scan.sidecarMtime.UTC().Format(time.RFC3339Nano),
			lead.ReleaseTitle, tags.NormalizeReleaseType(lead.ReleaseType),
			lead.ReleaseDate.String(), lead.OriginalDate.String(), lead.CompositionDate.String(),
			lead.CatalogNumber, lead.Edition, discTotal, boolToInt(scan.sidecarData.New), scan.metahash,
		)
		if err != nil {
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}

		if err := replaceJunctionValues(tx, "releases_genres", "release_id", scan.releaseID,
			tags.JoinGenreField(lead.Genre, cfg.WriteParentGenres), cfg); err != nil {
			return err
		}
		if err := replacePlainValues(tx, "releases_secondary_genres", "release_id", scan.releaseID, lead.SecondaryGenre); err != nil {
			return err
		}
		if err := replacePlainValues(tx, "releases_descriptors", "release_id", scan.releaseID, lead.Descriptor); err != nil {
			return err
		}
		if err := replacePlainValues(tx, "releases_labels", "release_id", scan.releaseID, lead.Label); err != nil {
			return err
		}
		if err := replaceArtistValues(tx, "releases_artists", "release_id", scan.releaseID, lead.ReleaseArtists); err != nil {
			return err
		}

		trackIDs := make([]string, 0, len(scan.tracks))
		for _, t := range scan.tracks {
			r := t.record
			_, err := tx.Exec(`
				INSERT INTO tracks (
					id, source_path, source_mtime, title, release_id,
					tracknumber, tracktotal, discnumber, duration_seconds, metahash
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					source_path=excluded.source_path, source_mtime=excluded.source_mtime,
					title=excluded.title, release_id=excluded.release_id,
					tracknumber=excluded.tracknumber, tracktotal=excluded.tracktotal,
					discnumber=excluded.discnumber, duration_seconds=excluded.duration_seconds,
					metahash=excluded.metahash`,
				r.ID, t.path, t.mtime.UTC().Format(time.RFC3339Nano), r.TrackTitle, scan.releaseID,
				strconv.Itoa(r.TrackNumber), r.TrackTotal, strconv.Itoa(r.DiscNumber),
				r.DurationSeconds, scan.metahash,
			)
			if err != nil {
				return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
			}
			if err := replaceArtistValues(tx, "tracks_artists", "track_id", r.ID, r.TrackArtists); err != nil {
				return err
			}
			if err := upsertTrackFTS(tx, r.ID, ftsRow{
				TrackTitle: r.TrackTitle, TrackNumber: strconv.Itoa(r.TrackNumber),
				DiscNumber: strconv.Itoa(r.DiscNumber), ReleaseTitle: lead.ReleaseTitle,
				ReleaseDate: lead.ReleaseDate.String(), OriginalDate: lead.OriginalDate.String(),
				CompositionDate: lead.CompositionDate.String(), CatalogNumber: lead.CatalogNumber,
				Edition: lead.Edition, ReleaseType: tags.NormalizeReleaseType(lead.ReleaseType),
				Genre: strings.Join(lead.Genre, ";"), SecondaryGenre: strings.Join(lead.SecondaryGenre, ";"),
				Descriptor: strings.Join(lead.Descriptor, ";"), Label: strings.Join(lead.Label, ";"),
				ReleaseArtist: artistMappingKey(lead.ReleaseArtists), TrackArtist: artistMappingKey(r.TrackArtists),
				New: strconv.FormatBool(scan.sidecarData.New),
			}); err != nil {
				return err
			}
			trackIDs = append(trackIDs, r.ID)
		}

		return evictMissingTracks(tx, scan.releaseID, trackIDs)
	}))
}

func evictMissingTracks(tx *sql.Tx, releaseID string, keepIDs []string) error {
	keep := toSet(keepIDs)
	rows, err := tx.Query(`SELECT id FROM tracks WHERE release_id = ?`, releaseID)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	for _, id := range stale {
		if _, err := tx.Exec(`DELETE FROM tracks WHERE id = ?`, id); err != nil {
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
		if err := deleteTrackFTS(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) evictMissingReleases(ctx context.Context, presentDirNames []string) error {
	present := toSet(presentDirNames)
	rows, err := c.db.QueryContext(ctx, `SELECT id, source_path FROM releases`)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	type row struct{ id, path string }
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.path); err != nil {
			rows.Close()
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
		all = append(all, r)
	}
	rows.Close()

	for _, r := range all {
		if present[filepath.Base(r.path)] {
			continue
		}
		if _, err := os.Stat(r.path); err == nil {
			continue // directory still there (e.g. excluded by force-scope filter upstream)
		}
		if err := db.WithTx(c.db, func(tx *sql.Tx) error {
			_, err := tx.Exec(`DELETE FROM releases WHERE id = ?`, r.id)
			return err
		}); err != nil {
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
	}
	return nil
}

func replacePlainValues(tx *sql.Tx, table, ownerCol, ownerID string, values []string) error {
	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE `+ownerCol+` = ?`, ownerID); err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	for i, v := range values {
		if _, err := tx.Exec(`INSERT INTO `+table+` (`+ownerCol+`, value, position) VALUES (?, ?, ?)`, ownerID, v, i+1); err != nil {
			return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
		}
	}
	return nil
}

// replaceJunctionValues is replacePlainValues for the one junction
// (genres) whose stored text may carry the write_parent_genres tail;
// it is split back into its component values before storage so each
// position holds one genre, matching the other junction tables' shape.
func replaceJunctionValues(tx *sql.Tx, table, ownerCol, ownerID, joined string, _ *config.Config) error {
	return replacePlainValues(tx, table, ownerCol, ownerID, tags.SplitGenreField(joined))
}

func replaceArtistValues(tx *sql.Tx, table, ownerCol, ownerID string, m tags.ArtistMapping) error {
	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE `+ownerCol+` = ?`, ownerID); err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	for _, item := range m.Items() {
		for i, a := range item.Artists {
			_, err := tx.Exec(`INSERT INTO `+table+` (`+ownerCol+`, name, role, alias, position) VALUES (?, ?, ?, ?, ?)`,
				ownerID, a.Name, string(item.Role), boolToInt(a.Alias), i+1)
			if err != nil {
				return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
			}
		}
	}
	return nil
}

func toSet(xs []string) map[string]bool {
	s := make(map[string]bool, len(xs))
	for _, x := range xs {
		s[x] = true
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
