package rules

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/sidecar"
	"github.com/rose-music/rose/internal/tags"
)

// Scope narrows a rule run to one release or track. A zero Scope runs
// against the whole library.
type Scope struct {
	ReleaseID string
	TrackID   string
}

// PlannedChange is one field edit Run would make (or did make) to one track.
type PlannedChange struct {
	TrackID string
	Tag     Tag
	Old     string
	New     string
}

// RunResult is the outcome of Run: the diff it produced (or would
// produce, for a dry run).
type RunResult struct {
	Changes []PlannedChange
}

// Run executes rule against scope. With dryRun it only computes the
// diff; otherwise matching tracks are grouped by release, each
// release is locked, affected files are rewritten (§4.1) and the
// cache is incrementally refreshed for that release.
func Run(ctx context.Context, c *cache.Cache, cfg *config.Config, rule Rule, scope Scope, dryRun bool) (RunResult, error) {
	ids, err := candidateTrackIDs(ctx, c, rule.Matcher)
	if err != nil {
		return RunResult{}, err
	}

	// Authoritative re-filter: each FTS candidate is re-read from the
	// canonical cache record and checked against the matcher's full
	// pattern semantics. Fanned out per candidate the same way
	// internal/cache/scanner.go parallelizes per-release discovery,
	// bounded by config.MaxProc since both phases are read-only and
	// independent per item.
	results := make([]*trackPlan, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInt(cfg.MaxProc, 1))
	for i, id := range ids {
		i, id := i, id
		if scope.TrackID != "" && id != scope.TrackID {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trk, err := c.Track(gctx, id)
			if err != nil {
				return err
			}
			if scope.ReleaseID != "" && trk.ReleaseID != scope.ReleaseID {
				return nil
			}
			rel, err := c.Release(gctx, trk.ReleaseID)
			if err != nil {
				return err
			}
			if !matcherMatches(rule.Matcher, rel, trk) {
				return nil
			}
			results[i] = planTrack(rule, rel, trk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RunResult{}, err
	}

	var plans []*trackPlan
	for _, p := range results {
		if p != nil {
			plans = append(plans, p)
		}
	}

	var result RunResult
	for _, p := range plans {
		result.Changes = append(result.Changes, p.diff()...)
	}
	if dryRun || len(result.Changes) == 0 {
		return result, nil
	}

	byRelease := map[string][]*trackPlan{}
	for _, p := range plans {
		if len(p.diff()) == 0 {
			continue
		}
		byRelease[p.releaseID] = append(byRelease[p.releaseID], p)
	}
	for releaseID, rp := range byRelease {
		if err := commitRelease(ctx, c, cfg, rp[0].releaseDir, releaseID, rp); err != nil {
			return result, err
		}
	}
	return result, nil
}

// candidateTrackIDs builds one FTS query per matcher tag and unions
// the results. Tags with no FTS column (tracktotal, disctotal) fall
// back to every track, since they aren't indexed.
func candidateTrackIDs(ctx context.Context, c *cache.Cache, m Matcher) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, t := range m.Tags {
		col := ftsColumnFor(t)
		needle := m.Pattern.Needle
		if col == "" {
			col, needle = "tracktitle", "" // unindexed tag: every track is a candidate
		}
		ids, err := cache.SearchFTSColumn(ctx, c.DB(), col, needle)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func ftsColumnFor(t Tag) string {
	switch t {
	case TagTrackTitle:
		return "tracktitle"
	case TagTrackNumber:
		return "tracknumber"
	case TagDiscNumber:
		return "discnumber"
	case TagReleaseTitle:
		return "releasetitle"
	case TagReleaseDate:
		return "releasedate"
	case TagOriginalDate:
		return "originaldate"
	case TagCompositionDate:
		return "compositiondate"
	case TagCatalogNumber:
		return "catalognumber"
	case TagEdition:
		return "edition"
	case TagReleaseType:
		return "releasetype"
	case TagGenre:
		return "genre"
	case TagSecondaryGenre:
		return "secondarygenre"
	case TagDescriptor:
		return "descriptor"
	case TagLabel:
		return "label"
	case TagNew:
		return "new"
	}
	if role, side, ok := parseArtistTag(t); ok {
		_ = role
		if side == "track" {
			return "trackartist"
		}
		return "releaseartist"
	}
	return ""
}

// matcherMatches re-reads the canonical cache record for (rel, trk)
// and applies the matcher's full pattern semantics; genre/label/
// descriptor/secondarygenre are forced case-insensitive.
func matcherMatches(m Matcher, rel *cache.Release, trk *cache.Track) bool {
	for _, t := range m.Tags {
		forceCI := isCaseInsensitive(t)
		for _, v := range valuesForTag(t, rel, trk) {
			if m.Pattern.Matches(v, forceCI) {
				return true
			}
		}
	}
	return false
}

func valuesForTag(t Tag, rel *cache.Release, trk *cache.Track) []string {
	switch t {
	case TagTrackTitle:
		return []string{trk.Title}
	case TagTrackNumber:
		return []string{trk.TrackNumber}
	case TagTrackTotal:
		return []string{strconv.Itoa(trk.TrackTotal)}
	case TagDiscNumber:
		return []string{trk.DiscNumber}
	case TagDiscTotal:
		return []string{strconv.Itoa(rel.DiscTotal)}
	case TagReleaseTitle:
		return []string{rel.Title}
	case TagReleaseDate:
		return []string{rel.ReleaseDate.String()}
	case TagOriginalDate:
		return []string{rel.OriginalDate.String()}
	case TagCompositionDate:
		return []string{rel.CompositionDate.String()}
	case TagCatalogNumber:
		return []string{rel.CatalogNumber}
	case TagEdition:
		return []string{rel.Edition}
	case TagReleaseType:
		return []string{rel.ReleaseType}
	case TagGenre:
		return rel.Genre
	case TagSecondaryGenre:
		return rel.SecondaryGenre
	case TagDescriptor:
		return rel.Descriptor
	case TagLabel:
		return rel.Label
	case TagNew:
		return []string{strconv.FormatBool(rel.New)}
	}
	if role, side, ok := parseArtistTag(t); ok {
		m := rel.Artists
		if side == "track" {
			m = trk.Artists
		}
		return artistNames(m, role)
	}
	return nil
}

func artistNames(m tags.ArtistMapping, role tags.Role) []string {
	for _, item := range m.Items() {
		if item.Role != role {
			continue
		}
		names := make([]string, len(item.Artists))
		for i, a := range item.Artists {
			names[i] = a.Name
		}
		return names
	}
	return nil
}

// parseArtistTag recognizes the "trackartist[role]"/"releaseartist[role]" shape.
func parseArtistTag(t Tag) (role tags.Role, side string, ok bool) {
	s := string(t)
	for _, side = range []string{"track", "release"} {
		prefix := side + "artist["
		if strings.HasPrefix(s, prefix) && strings.HasSuffix(s, "]") {
			return tags.Role(s[len(prefix) : len(s)-1]), side, true
		}
	}
	return "", "", false
}

// trackPlan accumulates one candidate track's action-driven mutations
// across a whole rule, keyed by the tag each action targeted.
type trackPlan struct {
	trackID    string
	releaseID  string
	releaseDir string
	sourcePath string
	original   map[Tag][]string
	working    map[Tag][]string
}

func planTrack(rule Rule, rel *cache.Release, trk *cache.Track) *trackPlan {
	p := &trackPlan{
		trackID:    trk.ID,
		releaseID:  trk.ReleaseID,
		releaseDir: rel.SourcePath,
		sourcePath: trk.SourcePath,
		original:   map[Tag][]string{},
		working:    map[Tag][]string{},
	}
	for _, a := range rule.Actions {
		for _, t := range a.Tags {
			if _, ok := p.working[t]; !ok {
				vals := valuesForTag(t, rel, trk)
				p.original[t] = append([]string(nil), vals...)
				p.working[t] = vals
			}
			p.working[t] = applyActionToValues(a, p.working[t], isCaseInsensitive(t))
		}
	}
	return p
}

func (p *trackPlan) diff() []PlannedChange {
	var out []PlannedChange
	for t, vals := range p.working {
		oldJoined, newJoined := strings.Join(p.original[t], "; "), strings.Join(vals, "; ")
		if oldJoined == newJoined {
			continue
		}
		out = append(out, PlannedChange{TrackID: p.trackID, Tag: t, Old: oldJoined, New: newJoined})
	}
	return out
}

func applyActionToValues(a Action, cur []string, forceCI bool) []string {
	switch a.Kind {
	case ActionReplace:
		out := make([]string, len(cur))
		for i, v := range cur {
			if a.Pattern == nil || a.Pattern.Matches(v, forceCI) {
				out[i] = a.Replacement
			} else {
				out[i] = v
			}
		}
		return out

	case ActionSed:
		out := make([]string, len(cur))
		for i, v := range cur {
			if a.Pattern == nil || a.Pattern.Matches(v, forceCI) {
				out[i] = a.SedRegex.ReplaceAllString(v, a.SedReplacement)
			} else {
				out[i] = v
			}
		}
		return out

	case ActionSplit:
		var out []string
		for _, v := range cur {
			if a.Pattern != nil && !a.Pattern.Matches(v, forceCI) {
				out = append(out, v)
				continue
			}
			for _, part := range strings.Split(v, a.SplitDelimiter) {
				part = strings.TrimSpace(part)
				if part != "" {
					out = append(out, part)
				}
			}
		}
		return out

	case ActionAdd:
		for _, v := range cur {
			if v == a.AddValue {
				return cur
			}
		}
		return append(append([]string{}, cur...), a.AddValue)

	case ActionDelete:
		if a.Pattern == nil {
			return nil
		}
		var out []string
		for _, v := range cur {
			if !a.Pattern.Matches(v, forceCI) {
				out = append(out, v)
			}
		}
		return out
	}
	return cur
}

func commitRelease(ctx context.Context, c *cache.Cache, cfg *config.Config, releaseDir, releaseID string, plans []*trackPlan) error {
	unlock, err := c.Lock(ctx, "release:"+releaseID, cache.EditLockTimeout)
	if err != nil {
		return err
	}
	defer unlock() //nolint:errcheck

	var newFlag *bool
	for _, p := range plans {
		rec, err := tags.Read(p.sourcePath)
		if err != nil {
			return err
		}
		rec.ReleaseID = releaseID
		rec.ID = p.trackID
		writeBackToRecord(&rec, p.working)
		if vals, ok := p.working[TagNew]; ok && len(vals) > 0 {
			b, _ := strconv.ParseBool(vals[0])
			newFlag = &b
		}
		if err := tags.Write(p.sourcePath, rec, tags.WriteOptions{WriteParentGenres: cfg.WriteParentGenres}); err != nil {
			return err
		}
	}
	if newFlag != nil {
		id, data, err := sidecar.ReadOrCreate(releaseDir)
		if err != nil {
			return err
		}
		if _, err := sidecar.SetNew(releaseDir, id, data, *newFlag); err != nil {
			return err
		}
	}
	return cache.Refresh(ctx, c, cfg, []string{filepath.Base(releaseDir)})
}

func writeBackToRecord(rec *tags.Record, working map[Tag][]string) {
	first := func(vals []string) string {
		if len(vals) == 0 {
			return ""
		}
		return vals[0]
	}
	for t, vals := range working {
		switch t {
		case TagTrackTitle:
			rec.TrackTitle = first(vals)
		case TagTrackNumber:
			rec.TrackNumber = atoiOrZero(first(vals))
		case TagDiscNumber:
			rec.DiscNumber = atoiOrZero(first(vals))
		case TagReleaseTitle:
			rec.ReleaseTitle = first(vals)
		case TagReleaseDate:
			rec.ReleaseDate = parseDateOrZero(first(vals))
		case TagOriginalDate:
			rec.OriginalDate = parseDateOrZero(first(vals))
		case TagCompositionDate:
			rec.CompositionDate = parseDateOrZero(first(vals))
		case TagCatalogNumber:
			rec.CatalogNumber = first(vals)
		case TagEdition:
			rec.Edition = first(vals)
		case TagReleaseType:
			rec.ReleaseType = tags.NormalizeReleaseType(first(vals))
		case TagGenre:
			rec.Genre = vals
		case TagSecondaryGenre:
			rec.SecondaryGenre = vals
		case TagDescriptor:
			rec.Descriptor = vals
		case TagLabel:
			rec.Label = vals
		case TagNew:
			// handled by the caller via the sidecar, not the tag record.
		default:
			if role, side, ok := parseArtistTag(t); ok {
				artists := make([]tags.Artist, len(vals))
				for i, v := range vals {
					artists[i] = tags.Artist{Name: v}
				}
				if side == "track" {
					setArtistRole(&rec.TrackArtists, role, artists)
				} else {
					setArtistRole(&rec.ReleaseArtists, role, artists)
				}
			}
		}
	}
}

func setArtistRole(m *tags.ArtistMapping, role tags.Role, v []tags.Artist) {
	switch role {
	case tags.RoleMain:
		m.Main = v
	case tags.RoleGuest:
		m.Guest = v
	case tags.RoleRemixer:
		m.Remixer = v
	case tags.RoleProducer:
		m.Producer = v
	case tags.RoleComposer:
		m.Composer = v
	case tags.RoleConductor:
		m.Conductor = v
	case tags.RoleDJMixer:
		m.DJMixer = v
	}
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseDateOrZero(s string) tags.PartialDate {
	d, _ := tags.ParsePartialDate(s)
	return d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
