package rules

import (
	"regexp"
	"strings"

	"github.com/rose-music/rose/internal/rose"
)

// ActionKind is one of the five mutation primitives the DSL supports.
type ActionKind string

const (
	ActionReplace ActionKind = "replace"
	ActionSed     ActionKind = "sed"
	ActionSplit   ActionKind = "split"
	ActionAdd     ActionKind = "add"
	ActionDelete  ActionKind = "delete"
)

// Action is one parsed "[tags[:pattern]/]kind[:args]" clause. Pattern
// is nil when the action targets every value of Tags unconditionally.
type Action struct {
	Tags    []Tag
	Pattern *Pattern
	Kind    ActionKind

	Replacement    string         // replace
	SedRegex       *regexp.Regexp // sed
	SedReplacement string         // sed
	SplitDelimiter string         // split
	AddValue       string         // add
}

// parseAction parses one action clause against its rule's matcher,
// which supplies the default target (tags and pattern) when the
// action omits its own "tags[:pattern]/" prefix, and the tags-only
// default when the prefix uses the "matched" pseudo-tag.
func parseAction(raw string, matcher *Matcher) (Action, error) {
	prefixPart, kindPart, hasPrefix := cutFirst(raw, '/')
	if !hasPrefix {
		kindPart = prefixPart
	}

	var tags []Tag
	var pattern *Pattern
	var err error
	if hasPrefix {
		tags, pattern, err = parseActionTarget(prefixPart, matcher)
	} else {
		if matcher == nil {
			return Action{}, rose.Expectedf(rose.OpRuleParse, "action has no tags and no matcher to default to")
		}
		tags = filterImmutable(matcher.Tags)
		p := matcher.Pattern
		pattern = &p
	}
	if err != nil {
		return Action{}, err
	}
	if len(tags) == 0 {
		return Action{}, rose.Expectedf(rose.OpRuleParse, "action has no mutable tags to target")
	}

	a := Action{Tags: tags, Pattern: pattern}
	if err := a.parseKind(kindPart); err != nil {
		return Action{}, err
	}

	if a.Kind == ActionSplit || a.Kind == ActionAdd {
		for _, t := range tags {
			if !isMultiValued(t) {
				return Action{}, rose.Expectedf(rose.OpRuleParse,
					"single-valued tag %s cannot be the target of a %s action", t, a.Kind)
			}
		}
	}
	return a, nil
}

// parseActionTarget parses the optional "tags[:pattern]" prefix of an
// action. "matched" inherits the matcher's tags (never its pattern);
// any other tag name is resolved explicitly and rejects an immutable
// target outright, since the user named it themselves.
func parseActionTarget(prefixPart string, matcher *Matcher) ([]Tag, *Pattern, error) {
	tagsPart, patternPart, hasPattern := cutFirst(prefixPart, ':')

	if tagsPart == "matched" {
		if matcher == nil {
			return nil, nil, rose.Expectedf(rose.OpRuleParse, "'matched' has no matcher to inherit tags from")
		}
		tags := filterImmutable(matcher.Tags)
		if !hasPattern {
			return tags, nil, nil
		}
		p, err := parsePattern(patternPart)
		if err != nil {
			return nil, nil, err
		}
		return tags, &p, nil
	}

	tags, err := parseTagList(tagsPart)
	if err != nil {
		return nil, nil, err
	}
	for _, t := range tags {
		if isImmutable(t) {
			return nil, nil, rose.Expectedf(rose.OpRuleParse, "%s is immutable and cannot be the target of an action", t)
		}
	}
	if !hasPattern {
		return tags, nil, nil
	}
	p, err := parsePattern(patternPart)
	if err != nil {
		return nil, nil, err
	}
	return tags, &p, nil
}

func (a *Action) parseKind(kindPart string) error {
	kindName, argsRaw, hasArgs := cutFirst(kindPart, ':')

	switch kindName {
	case string(ActionReplace):
		if !hasArgs {
			return rose.Expectedf(rose.OpRuleParse, "replacement not found")
		}
		segs := splitEscapedColon(argsRaw)
		if len(segs) != 1 {
			return rose.Expectedf(rose.OpRuleParse, "found another section after the replacement")
		}
		a.Kind, a.Replacement = ActionReplace, segs[0]

	case string(ActionSed):
		if !hasArgs {
			return rose.Expectedf(rose.OpRuleParse, "empty sed pattern found")
		}
		segs := splitEscapedColon(argsRaw)
		if len(segs) > 0 && segs[0] == "" {
			return rose.Expectedf(rose.OpRuleParse, "empty sed pattern found")
		}
		if len(segs) < 2 {
			return rose.Expectedf(rose.OpRuleParse, "empty sed replacement found")
		}
		if len(segs) > 2 {
			return rose.Expectedf(rose.OpRuleParse, "found another section after the sed replacement")
		}
		re, err := regexp.Compile(segs[0])
		if err != nil {
			return rose.Wrap(rose.OpRuleParse, rose.Expected, err)
		}
		a.Kind, a.SedRegex, a.SedReplacement = ActionSed, re, segs[1]

	case string(ActionSplit):
		if !hasArgs {
			return rose.Expectedf(rose.OpRuleParse, "empty split delimiter found")
		}
		segs := splitEscapedColon(argsRaw)
		if len(segs) != 1 {
			return rose.Expectedf(rose.OpRuleParse, "found another section after the split delimiter")
		}
		if segs[0] == "" {
			return rose.Expectedf(rose.OpRuleParse, "empty split delimiter found")
		}
		a.Kind, a.SplitDelimiter = ActionSplit, segs[0]

	case string(ActionAdd):
		if !hasArgs {
			return rose.Expectedf(rose.OpRuleParse, "value not found")
		}
		segs := splitEscapedColon(argsRaw)
		if len(segs) != 1 {
			return rose.Expectedf(rose.OpRuleParse, "found another section after the value")
		}
		if segs[0] == "" {
			return rose.Expectedf(rose.OpRuleParse, "value not found")
		}
		a.Kind, a.AddValue = ActionAdd, segs[0]

	case string(ActionDelete):
		if hasArgs {
			return rose.Expectedf(rose.OpRuleParse, "delete takes no arguments")
		}
		a.Kind = ActionDelete

	default:
		return rose.Expectedf(rose.OpRuleParse, "invalid action kind: %s", kindName)
	}
	return nil
}

func filterImmutable(in []Tag) []Tag {
	out := make([]Tag, 0, len(in))
	for _, t := range in {
		if !isImmutable(t) {
			out = append(out, t)
		}
	}
	return out
}

// cutFirst splits s at the first occurrence of sep (backslash and
// doubled-colon escapes are not recognized here), returning
// found=false (and head=s) when sep does not appear.
func cutFirst(s string, sep byte) (head, tail string, found bool) {
	idx := strings.IndexByte(s, sep)
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}
