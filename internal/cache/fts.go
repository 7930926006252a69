package cache

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rose-music/rose/internal/rose"
)

// ftsSeparator is inserted between every Unicode scalar of an indexed
// string so that FTS5's unicode61 tokenizer (which already treats this
// symbol codepoint as a separator) emits one token per source
// character, turning a phrase query into an efficient substring match.
const ftsSeparator = '¬'

// TokenizeFTS projects s into its per-character FTS representation.
func TokenizeFTS(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range runes {
		if i > 0 {
			b.WriteRune(ftsSeparator)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ftsRow is the per-track projection written into rules_engine_fts.
type ftsRow struct {
	TrackTitle      string
	TrackNumber     string
	DiscNumber      string
	ReleaseTitle    string
	ReleaseDate     string
	OriginalDate    string
	CompositionDate string
	CatalogNumber   string
	Edition         string
	ReleaseType     string
	Genre           string
	SecondaryGenre  string
	Descriptor      string
	Label           string
	ReleaseArtist   string
	TrackArtist     string
	New             string
}

func trackRowID(tx *sql.Tx, trackID string) (int64, error) {
	var rowid int64
	err := tx.QueryRow(`SELECT rowid FROM tracks WHERE id = ?`, trackID).Scan(&rowid)
	return rowid, err
}

// upsertTrackFTS replaces trackID's row in rules_engine_fts with the
// tokenized projection of row.
func upsertTrackFTS(tx *sql.Tx, trackID string, row ftsRow) error {
	rowid, err := trackRowID(tx, trackID)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	if _, err := tx.Exec(`DELETE FROM rules_engine_fts WHERE rowid = ?`, rowid); err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	_, err = tx.Exec(`INSERT INTO rules_engine_fts(
		rowid, tracktitle, tracknumber, discnumber, releasetitle, releasedate,
		originaldate, compositiondate, catalognumber, edition, releasetype,
		genre, secondarygenre, descriptor, label, releaseartist, trackartist, new
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rowid,
		TokenizeFTS(row.TrackTitle), TokenizeFTS(row.TrackNumber), TokenizeFTS(row.DiscNumber),
		TokenizeFTS(row.ReleaseTitle), TokenizeFTS(row.ReleaseDate), TokenizeFTS(row.OriginalDate),
		TokenizeFTS(row.CompositionDate), TokenizeFTS(row.CatalogNumber), TokenizeFTS(row.Edition),
		TokenizeFTS(row.ReleaseType), TokenizeFTS(row.Genre), TokenizeFTS(row.SecondaryGenre),
		TokenizeFTS(row.Descriptor), TokenizeFTS(row.Label), TokenizeFTS(row.ReleaseArtist),
		TokenizeFTS(row.TrackArtist), TokenizeFTS(row.New),
	)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	return nil
}

func deleteTrackFTS(tx *sql.Tx, trackID string) error {
	rowid, err := trackRowID(tx, trackID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	_, err = tx.Exec(`DELETE FROM rules_engine_fts WHERE rowid = ?`, rowid)
	if err != nil {
		return rose.Wrap(rose.OpCacheRefresh, rose.Unexpected, err)
	}
	return nil
}

// SearchFTSColumn runs a tokenized phrase match against one
// rules_engine_fts column and returns the matching tracks' ids. An
// empty needle matches every track (the "empty needle matches all
// rows" rule from the rules engine's candidate search).
func SearchFTSColumn(ctx context.Context, db *sql.DB, column, needle string) ([]string, error) {
	if needle == "" {
		rows, err := db.QueryContext(ctx, `SELECT id FROM tracks`)
		if err != nil {
			return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
		}
		return scanIDs(rows)
	}
	if !validFTSColumn[column] {
		return nil, rose.Expectedf(rose.OpCacheQuery, "not an indexed column: %s", column)
	}
	query := column + ":" + fts5Quote(TokenizeFTS(needle))
	rows, err := db.QueryContext(ctx, `
		SELECT t.id FROM tracks t
		JOIN rules_engine_fts f ON f.rowid = t.rowid
		WHERE f MATCH ?`, query)
	if err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	return scanIDs(rows)
}

// fts5Quote wraps s as an FTS5 string literal, doubling embedded
// double-quotes per FTS5's (not Go's) escaping rule.
func fts5Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var validFTSColumn = map[string]bool{
	"tracktitle": true, "tracknumber": true, "discnumber": true, "releasetitle": true,
	"releasedate": true, "originaldate": true, "compositiondate": true, "catalognumber": true,
	"edition": true, "releasetype": true, "genre": true, "secondarygenre": true,
	"descriptor": true, "label": true, "releaseartist": true, "trackartist": true, "new": true,
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, rose.Wrap(rose.OpCacheQuery, rose.Unexpected, err)
	}
	return ids, nil
}
