package rules

import (
	"strings"

	"github.com/rose-music/rose/internal/rose"
)

// Matcher selects candidate tracks: every tag in Tags is searched for
// Pattern.
type Matcher struct {
	Tags    []Tag
	Pattern Pattern
}

// ParseMatcher parses the "tags:pattern" grammar.
func ParseMatcher(raw string) (Matcher, error) {
	idx := strings.IndexByte(raw, ':')
	var tagsPart, patternPart string
	hasColon := idx >= 0
	if hasColon {
		tagsPart, patternPart = raw[:idx], raw[idx+1:]
	} else {
		tagsPart = raw
	}
	tagList, err := parseTagList(tagsPart)
	if err != nil {
		return Matcher{}, err
	}
	if !hasColon {
		return Matcher{}, rose.Expectedf(rose.OpRuleParse, "expected to find ',' or ':', found end of string")
	}
	pat, err := parsePattern(patternPart)
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{Tags: tagList, Pattern: pat}, nil
}

// Rule is one matcher and the ordered actions it triggers.
type Rule struct {
	Matcher Matcher
	Actions []Action

	rawMatcher string
	rawActions []string
}

// ParseRule parses a matcher string and its actions, resolving each
// action's defaults against the matcher per the DSL's inheritance
// rules (an action with no "tags[:pattern]/" prefix defaults to the
// matcher's tags and pattern; the "matched" pseudo-tag defaults to the
// matcher's tags only).
func ParseRule(matcherStr string, actionStrs []string) (Rule, error) {
	m, err := ParseMatcher(matcherStr)
	if err != nil {
		return Rule{}, err
	}
	if len(actionStrs) == 0 {
		return Rule{}, rose.Expectedf(rose.OpRuleParse, "a rule needs at least one action")
	}
	actions := make([]Action, 0, len(actionStrs))
	for _, raw := range actionStrs {
		a, err := parseAction(raw, &m)
		if err != nil {
			return Rule{}, err
		}
		actions = append(actions, a)
	}
	return Rule{Matcher: m, Actions: actions, rawMatcher: matcherStr, rawActions: actionStrs}, nil
}

// String renders the rule the way it was given to ParseRule, quoting
// any piece that contains whitespace.
func (r Rule) String() string {
	parts := []string{"matcher=" + quoteIfNeeded(r.rawMatcher)}
	for _, a := range r.rawActions {
		parts = append(parts, "action="+quoteIfNeeded(a))
	}
	return strings.Join(parts, " ")
}

func quoteIfNeeded(s string) string {
	if strings.ContainsAny(s, " \t") {
		return "'" + s + "'"
	}
	return s
}
