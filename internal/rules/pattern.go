package rules

import (
	"strings"

	"github.com/rose-music/rose/internal/rose"
)

// Pattern is a parsed matcher/action needle: an opaque substring to
// search for, with optional start/end anchors and case sensitivity.
type Pattern struct {
	Needle          string
	AnchorStart     bool
	AnchorEnd       bool
	CaseInsensitive bool
}

// Matches reports whether value satisfies p, honoring forceCI (set by
// the caller for genre/label/descriptor/secondarygenre, which are
// always case-insensitive regardless of p.CaseInsensitive).
func (p Pattern) Matches(value string, forceCI bool) bool {
	v, needle := value, p.Needle
	if p.CaseInsensitive || forceCI {
		v, needle = strings.ToLower(v), strings.ToLower(needle)
	}
	switch {
	case p.AnchorStart && p.AnchorEnd:
		return v == needle
	case p.AnchorStart:
		return strings.HasPrefix(v, needle)
	case p.AnchorEnd:
		return strings.HasSuffix(v, needle)
	default:
		return strings.Contains(v, needle)
	}
}

// splitEscapedColon splits s on single (non-doubled) colons. "::"
// collapses to one literal ':' and stays within the current segment;
// a backslash escapes the following character verbatim (left for the
// caller, e.g. parseNeedleBody, to interpret).
func splitEscapedColon(s string) []string {
	var segments []string
	var cur strings.Builder
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		switch {
		case runes[i] == '\\' && i+1 < len(runes):
			cur.WriteRune('\\')
			cur.WriteRune(runes[i+1])
			i += 2
		case runes[i] == ':' && i+1 < len(runes) && runes[i+1] == ':':
			cur.WriteRune(':')
			i += 2
		case runes[i] == ':':
			segments = append(segments, cur.String())
			cur.Reset()
			i++
		default:
			cur.WriteRune(runes[i])
			i++
		}
	}
	segments = append(segments, cur.String())
	return segments
}

// parseNeedleBody strips a leading "^" and trailing "$" anchor
// (unless escaped with "\") and resolves the remaining backslash
// escapes.
func parseNeedleBody(s string) (needle string, anchorStart, anchorEnd bool) {
	runes := []rune(s)
	i := 0
	if len(runes) > 0 && runes[0] == '^' {
		anchorStart = true
		i = 1
	}
	var out []rune
	for i < len(runes) {
		switch {
		case runes[i] == '\\' && i+1 < len(runes):
			out = append(out, runes[i+1])
			i += 2
		case runes[i] == '$' && i == len(runes)-1:
			anchorEnd = true
			i++
		default:
			out = append(out, runes[i])
			i++
		}
	}
	return string(out), anchorStart, anchorEnd
}

// parsePattern parses the pattern half of a matcher or action,
// already split off from its tags by the structural ':'.
func parsePattern(raw string) (Pattern, error) {
	segments := splitEscapedColon(raw)
	if len(segments) > 2 {
		return Pattern{}, rose.Expectedf(rose.OpRuleParse, "extra input found after end of pattern: %q", raw)
	}
	caseInsensitive := false
	if len(segments) == 2 {
		if segments[1] != "i" {
			return Pattern{}, rose.Expectedf(rose.OpRuleParse, "unrecognized flag: %q", segments[1])
		}
		caseInsensitive = true
	}
	needle, anchorStart, anchorEnd := parseNeedleBody(segments[0])
	return Pattern{Needle: needle, AnchorStart: anchorStart, AnchorEnd: anchorEnd, CaseInsensitive: caseInsensitive}, nil
}
