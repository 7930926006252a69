package tags

import "strings"

// roleMarker is one recognized role-prefix or role-suffix token, checked
// in priority order against the remaining text.
type roleMarker struct {
	text string
	role Role
	// prefix is true for markers whose role text comes BEFORE them
	// ("Composer A performed by ..." -> Composer A is the composer);
	// the other markers take the text that follows them ("... feat.
	// Guest A" -> Guest A is a guest).
	prefix bool
}

// markers are checked in priority order, matching spec.md §4.1's list:
// "performed by" -> composer, "pres." -> djmixer, "under." -> conductor,
// "feat."/"featuring" -> guest, "remixed by" -> remixer, "produced by" -> producer.
var markers = []roleMarker{
	{text: " performed by ", role: RoleComposer, prefix: true},
	{text: " pres. ", role: RoleDJMixer, prefix: true},
	{text: " under. ", role: RoleConductor, prefix: false},
	{text: " feat. ", role: RoleGuest, prefix: false},
	{text: " featuring ", role: RoleGuest, prefix: false},
	{text: " remixed by ", role: RoleRemixer, prefix: false},
	{text: " produced by ", role: RoleProducer, prefix: false},
}

var artistSeparators = []string{"\\", "/", ";", " vs. "}

// splitArtistNames splits a role's raw text on the separators \, /, ;
// and " vs. ", trimming whitespace around each part.
func splitArtistNames(s string) []Artist {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := []string{s}
	for _, sep := range artistSeparators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	out := make([]Artist, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, Artist{Name: p})
		}
	}
	return out
}

// ParseArtistString recognizes role markers in priority order over a
// single free-text artist field. Grammar (spec.md §9):
//
//	ARTISTS := (ROLE_PREFIX ARTISTS)* MAIN (ROLE_SUFFIX ARTISTS)*
//
// "performed by" and "pres." attach the text BEFORE them to the role and
// leave the remainder (including any text after) to continue parsing;
// the other markers attach the text AFTER them to the role.
func ParseArtistString(s string) ArtistMapping {
	var m ArtistMapping
	remaining := " " + strings.TrimSpace(s) + " "

	// Prefix-style markers ("X performed by Y", "X pres. Y"): the
	// segment before the marker belongs to the marker's role, and
	// parsing continues on the segment after.
	for _, mk := range markers {
		if !mk.prefix {
			continue
		}
		idx := strings.Index(remaining, mk.text)
		if idx < 0 {
			continue
		}
		before := strings.TrimSpace(remaining[:idx])
		after := strings.TrimSpace(remaining[idx+len(mk.text):])
		if before != "" {
			m.setRole(mk.role, append(m.role(mk.role), splitArtistNames(before)...))
		}
		remaining = " " + after + " "
	}

	// Suffix-style markers ("X under. Y", "X feat. Y", "X remixed by Y",
	// "X produced by Y"): everything after the marker belongs to that
	// role; the scan proceeds left to right so multiple markers chain.
	mainEnd := len(remaining)
	cursor := 0
	for cursor < len(remaining) {
		found := false
		for _, mk := range markers {
			if mk.prefix {
				continue
			}
			idx := strings.Index(remaining[cursor:], mk.text)
			if idx < 0 {
				continue
			}
			absIdx := cursor + idx
			if absIdx < mainEnd {
				mainEnd = absIdx
			}
			// Find where this role's text ends: the next marker of any
			// kind, or end of string.
			segStart := absIdx + len(mk.text)
			segEnd := len(remaining)
			for _, mk2 := range markers {
				j := strings.Index(remaining[segStart:], mk2.text)
				if j >= 0 && segStart+j < segEnd {
					segEnd = segStart + j
				}
			}
			seg := strings.TrimSpace(remaining[segStart:segEnd])
			if seg != "" {
				m.setRole(mk.role, append(m.role(mk.role), splitArtistNames(seg)...))
			}
			cursor = segEnd
			found = true
			break
		}
		if !found {
			break
		}
	}

	main := strings.TrimSpace(remaining[:mainEnd])
	if main != "" {
		m.Main = append(m.Main, splitArtistNames(main)...)
	}
	return m
}

// FormatArtistString is the inverse of ParseArtistString: given a role
// map, compose in the fixed emission order from spec.md §4.1. Artists
// flagged Alias are omitted from the output but remain in the map.
func FormatArtistString(m ArtistMapping) string {
	join := func(as []Artist) string {
		names := make([]string, 0, len(as))
		for _, a := range as {
			if !a.Alias {
				names = append(names, a.Name)
			}
		}
		return strings.Join(names, "; ")
	}

	var b strings.Builder
	if s := join(m.Composer); s != "" {
		b.WriteString(s)
		b.WriteString(" performed by ")
	}
	if s := join(m.DJMixer); s != "" {
		b.WriteString(s)
		b.WriteString(" pres. ")
	}
	b.WriteString(join(m.Main))
	if s := join(m.Conductor); s != "" {
		b.WriteString(" under. ")
		b.WriteString(s)
	}
	if s := join(m.Guest); s != "" {
		b.WriteString(" feat. ")
		b.WriteString(s)
	}
	if s := join(m.Remixer); s != "" {
		b.WriteString(" remixed by ")
		b.WriteString(s)
	}
	if s := join(m.Producer); s != "" {
		b.WriteString(" produced by ")
		b.WriteString(s)
	}
	return strings.TrimSpace(b.String())
}
