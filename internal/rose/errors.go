// Package rose provides the error taxonomy and logging setup shared by
// every component: a two-tier Expected/Unexpected error wrapper, and
// domain-grouped Op constants used to format user-facing messages.
package rose

import (
	"errors"
	"fmt"
)

// Kind distinguishes user-facing errors from ones that warrant a stack trace.
type Kind int

const (
	// Unexpected covers SQLite corruption, I/O of an unknown kind, and
	// panics recovered at a boundary. Callers should log with a trace.
	Unexpected Kind = iota
	// Expected covers invalid paths, unknown ids, DSL errors, lock
	// timeouts, and other conditions the user caused and can fix.
	Expected
)

// Op names the operation that failed, grouped by domain below.
type Op string

const (
	OpTagRead          Op = "read tags"
	OpTagWrite         Op = "write tags"
	OpSidecarRead      Op = "read release datafile"
	OpSidecarWrite     Op = "write release datafile"
	OpCacheOpen        Op = "open cache database"
	OpCacheSchema      Op = "initialize cache schema"
	OpCacheRefresh     Op = "refresh cache"
	OpCacheLock        Op = "acquire lock"
	OpCacheQuery       Op = "query cache"
	OpRuleParse        Op = "parse rule"
	OpRuleRun          Op = "run rule"
	OpCollageCreate    Op = "create collage"
	OpCollageDelete    Op = "delete collage"
	OpCollageRename    Op = "rename collage"
	OpCollageEdit      Op = "edit collage"
	OpPlaylistCreate   Op = "create playlist"
	OpPlaylistDelete   Op = "delete playlist"
	OpPlaylistRename   Op = "rename playlist"
	OpPlaylistEdit     Op = "edit playlist"
	OpReleaseDelete    Op = "delete release"
	OpReleaseToggleNew Op = "toggle release new flag"
	OpReleaseCoverArt  Op = "set cover art"
	OpReleaseCreate    Op = "create single-track release"
	OpReleaseEdit      Op = "edit release"
	OpConfigLoad       Op = "load configuration"
)

// Error wraps an inner error with a Kind and the Op that produced it.
type Error struct {
	Kind Kind
	Op   Op
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("Failed to %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Expectedf builds an Expected error for op, formatting the message like fmt.Errorf.
func Expectedf(op Op, format string, args ...any) error {
	return &Error{Kind: Expected, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unexpectedf builds an Unexpected error for op.
func Unexpectedf(op Op, format string, args ...any) error {
	return &Error{Kind: Unexpected, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error as Expected or Unexpected under op.
// If err is already a *Error its Kind is preserved and only Op is set
// when the existing one is empty.
func Wrap(op Op, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			e.Op = op
		}
		return e
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsExpected reports whether err (or something it wraps) is an Expected rose.Error.
func IsExpected(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == Expected
	}
	return false
}

// Format renders a user-facing message for err, matching the corpus's
// errmsg.Format convention ("Failed to <op>: <err>").
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}
