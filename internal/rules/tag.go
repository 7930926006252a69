// Package rules implements the bulk-tagging DSL: matchers and actions
// parsed from plain strings, candidate search against the metadata
// cache's full-text index, authoritative re-filtering against
// canonical records, and mutation planning/execution.
package rules

import (
	"strings"

	"github.com/rose-music/rose/internal/rose"
	"github.com/rose-music/rose/internal/tags"
)

// Tag names one field a matcher or action can target. Artist-role
// tags carry the role in brackets (e.g. "trackartist[main]") since the
// closed vocabulary otherwise has no way to address a single role.
type Tag string

const (
	TagTrackTitle      Tag = "tracktitle"
	TagTrackNumber     Tag = "tracknumber"
	TagTrackTotal      Tag = "tracktotal"
	TagDiscNumber      Tag = "discnumber"
	TagDiscTotal       Tag = "disctotal"
	TagReleaseTitle    Tag = "releasetitle"
	TagReleaseDate     Tag = "releasedate"
	TagOriginalDate    Tag = "originaldate"
	TagCompositionDate Tag = "compositiondate"
	TagCatalogNumber   Tag = "catalognumber"
	TagEdition         Tag = "edition"
	TagReleaseType     Tag = "releasetype"
	TagGenre           Tag = "genre"
	TagSecondaryGenre  Tag = "secondarygenre"
	TagDescriptor      Tag = "descriptor"
	TagLabel           Tag = "label"
	TagNew             Tag = "new"
)

// allRoles is the fixed iteration order for the seven artist roles,
// matching tags.ArtistMapping.Items.
var allRoles = []tags.Role{
	tags.RoleMain, tags.RoleGuest, tags.RoleRemixer, tags.RoleProducer,
	tags.RoleComposer, tags.RoleConductor, tags.RoleDJMixer,
}

func trackArtistTag(r tags.Role) Tag   { return Tag("trackartist[" + string(r) + "]") }
func releaseArtistTag(r tags.Role) Tag { return Tag("releaseartist[" + string(r) + "]") }

// singleValuedTags cannot be the target of split/add.
var singleValuedTags = map[Tag]bool{
	TagTrackTitle: true, TagTrackNumber: true, TagTrackTotal: true,
	TagDiscNumber: true, TagDiscTotal: true, TagReleaseTitle: true,
	TagReleaseDate: true, TagOriginalDate: true, TagCompositionDate: true,
	TagCatalogNumber: true, TagEdition: true, TagReleaseType: true, TagNew: true,
}

// immutableTags can never be the target of a mutating action.
var immutableTags = map[Tag]bool{TagTrackTotal: true, TagDiscTotal: true}

// caseInsensitiveTags always match case-insensitively, regardless of
// the pattern's :i flag.
var caseInsensitiveTags = map[Tag]bool{
	TagGenre: true, TagSecondaryGenre: true, TagDescriptor: true, TagLabel: true,
}

var baseTagSet = func() map[Tag]bool {
	m := map[Tag]bool{
		TagTrackTitle: true, TagTrackNumber: true, TagTrackTotal: true, TagDiscNumber: true,
		TagDiscTotal: true, TagReleaseTitle: true, TagReleaseDate: true, TagOriginalDate: true,
		TagCompositionDate: true, TagCatalogNumber: true, TagEdition: true, TagReleaseType: true,
		TagGenre: true, TagSecondaryGenre: true, TagDescriptor: true, TagLabel: true, TagNew: true,
	}
	for _, r := range allRoles {
		m[trackArtistTag(r)] = true
		m[releaseArtistTag(r)] = true
	}
	return m
}()

func isMultiValued(t Tag) bool     { return !singleValuedTags[t] }
func isCaseInsensitive(t Tag) bool { return caseInsensitiveTags[t] }
func isImmutable(t Tag) bool       { return immutableTags[t] }

// expandTagName resolves one comma-separated name (a concrete tag, or
// one of the artist/trackartist/releaseartist shorthands) into its
// concrete tag(s).
func expandTagName(name string) ([]Tag, error) {
	switch name {
	case "artist":
		out := make([]Tag, 0, len(allRoles)*2)
		for _, r := range allRoles {
			out = append(out, trackArtistTag(r), releaseArtistTag(r))
		}
		return out, nil
	case "trackartist":
		out := make([]Tag, 0, len(allRoles))
		for _, r := range allRoles {
			out = append(out, trackArtistTag(r))
		}
		return out, nil
	case "releaseartist":
		out := make([]Tag, 0, len(allRoles))
		for _, r := range allRoles {
			out = append(out, releaseArtistTag(r))
		}
		return out, nil
	}
	t := Tag(name)
	if !baseTagSet[t] {
		return nil, rose.Expectedf(rose.OpRuleParse, "invalid tag: %s", name)
	}
	return []Tag{t}, nil
}

// parseTagList expands a comma-separated tag expression, preserving
// first-seen order and deduplicating.
func parseTagList(expr string) ([]Tag, error) {
	var out []Tag
	seen := map[Tag]bool{}
	for _, part := range strings.Split(expr, ",") {
		expanded, err := expandTagName(part)
		if err != nil {
			return nil, err
		}
		for _, t := range expanded {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	if len(out) == 0 {
		return nil, rose.Expectedf(rose.OpRuleParse, "invalid tag: %s", expr)
	}
	return out, nil
}
