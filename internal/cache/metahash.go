package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/rose-music/rose/internal/tags"
)

// ReleaseMetahash derives the per-release metahash from the stable
// serialization of every track's canonical tag fields plus the
// sidecar's added_at, per the refresh algorithm's short-circuit rule:
// an unchanged metahash (together with an unchanged datafile_mtime and
// every track's source_mtime) means the release can be skipped.
func ReleaseMetahash(addedAt time.Time, tracks []tags.Record) string {
	var b strings.Builder
	b.WriteString(addedAt.UTC().Format(time.RFC3339Nano))
	for _, r := range tracks {
		b.WriteByte('\x1f')
		writeTrackFields(&b, r)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeTrackFields(b *strings.Builder, r tags.Record) {
	fields := []string{
		r.ReleaseID, r.ID, r.ReleaseTitle, r.ReleaseType,
		r.ReleaseDate.String(), r.OriginalDate.String(), r.CompositionDate.String(),
		r.Edition, r.CatalogNumber,
		strconv.Itoa(r.TrackNumber), strconv.Itoa(r.TrackTotal),
		strconv.Itoa(r.DiscNumber), strconv.Itoa(r.DiscTotal),
		r.TrackTitle, strconv.Itoa(r.DurationSeconds),
		strings.Join(r.Genre, ";"), strings.Join(r.SecondaryGenre, ";"),
		strings.Join(r.Descriptor, ";"), strings.Join(r.Label, ";"),
		artistMappingKey(r.TrackArtists), artistMappingKey(r.ReleaseArtists),
	}
	b.WriteString(strings.Join(fields, "\x1e"))
}

func artistMappingKey(m tags.ArtistMapping) string {
	var parts []string
	for _, item := range m.Items() {
		names := make([]string, len(item.Artists))
		for i, a := range item.Artists {
			if a.Alias {
				names[i] = a.Name + "(alias)"
			} else {
				names[i] = a.Name
			}
		}
		parts = append(parts, string(item.Role)+"="+strings.Join(names, ","))
	}
	return strings.Join(parts, "|")
}
