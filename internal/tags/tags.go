// Package tags implements the format-agnostic audio-tag codec: it
// projects FLAC/Vorbis, ID3v2 (MP3), MP4 atoms, and Opus/OggVorbis tag
// dialects onto one canonical Record and writes it back losslessly.
package tags

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// File extensions supported by the codec.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtOPUS = ".opus"
	ExtOGG  = ".ogg"
	ExtM4A  = ".m4a"
	ExtMP4  = ".mp4"
)

const id3Magic = "ID3"

// Role is one of the seven artist roles a name can be credited under.
type Role string

const (
	RoleMain      Role = "main"
	RoleGuest     Role = "guest"
	RoleRemixer   Role = "remixer"
	RoleProducer  Role = "producer"
	RoleComposer  Role = "composer"
	RoleConductor Role = "conductor"
	RoleDJMixer   Role = "djmixer"
)

// roleOrder is the iteration order used by ArtistMapping.All/Items.
// FormatArtistString emits roles in its own fixed order.
var roleOrder = []Role{RoleMain, RoleGuest, RoleRemixer, RoleProducer, RoleComposer, RoleConductor, RoleDJMixer}

// Artist is a single credited name. Alias is true when the name is an
// alternate spelling retained for round-trip fidelity but never emitted
// by the formatter.
type Artist struct {
	Name  string
	Alias bool
}

// ArtistMapping groups credited names by role.
type ArtistMapping struct {
	Main      []Artist
	Guest     []Artist
	Remixer   []Artist
	Producer  []Artist
	Composer  []Artist
	Conductor []Artist
	DJMixer   []Artist
}

func (m *ArtistMapping) role(r Role) []Artist {
	switch r {
	case RoleMain:
		return m.Main
	case RoleGuest:
		return m.Guest
	case RoleRemixer:
		return m.Remixer
	case RoleProducer:
		return m.Producer
	case RoleComposer:
		return m.Composer
	case RoleConductor:
		return m.Conductor
	case RoleDJMixer:
		return m.DJMixer
	}
	return nil
}

func (m *ArtistMapping) setRole(r Role, v []Artist) {
	switch r {
	case RoleMain:
		m.Main = v
	case RoleGuest:
		m.Guest = v
	case RoleRemixer:
		m.Remixer = v
	case RoleProducer:
		m.Producer = v
	case RoleComposer:
		m.Composer = v
	case RoleConductor:
		m.Conductor = v
	case RoleDJMixer:
		m.DJMixer = v
	}
}

// RoleArtists is one (role, artists) pair as returned by Items.
type RoleArtists struct {
	Role    Role
	Artists []Artist
}

// Items iterates roles in a fixed, deterministic order.
func (m *ArtistMapping) Items() []RoleArtists {
	out := make([]RoleArtists, 0, len(roleOrder))
	for _, r := range roleOrder {
		out = append(out, RoleArtists{Role: r, Artists: m.role(r)})
	}
	return out
}

// All returns every credited artist across all roles, order-preserving deduplicated.
func (m *ArtistMapping) All() []Artist {
	var all []Artist
	for _, r := range roleOrder {
		all = append(all, m.role(r)...)
	}
	return uniqArtists(all)
}

func uniqArtists(xs []Artist) []Artist {
	seen := make(map[Artist]bool, len(xs))
	out := make([]Artist, 0, len(xs))
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// PartialDate is a date with year required and month/day optional.
// Serialization renders missing components as "01".
type PartialDate struct {
	Year  int
	Month int // 0 if absent
	Day   int // 0 if absent
}

// IsZero reports whether the date carries no year.
func (d PartialDate) IsZero() bool { return d.Year == 0 }

// String renders the partial date, filling missing month/day with "01".
func (d PartialDate) String() string {
	if d.Year == 0 {
		return ""
	}
	month, day := d.Month, d.Day
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return strconv.Itoa(d.Year) + "-" + pad2(month) + "-" + pad2(day)
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

var (
	reFullDate  = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})([T ].*)?$`)
	reYearMonth = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	reYearOnly  = regexp.MustCompile(`^(\d{4})$`)
)

// ParsePartialDate parses a year, "year-month", or full ISO-ish
// date/datetime string. Anything else (e.g. "12345") returns ok=false.
func ParsePartialDate(s string) (PartialDate, bool) {
	s = strings.TrimSpace(s)
	if m := reFullDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		da, _ := strconv.Atoi(m[3])
		return PartialDate{Year: y, Month: mo, Day: da}, true
	}
	if m := reYearMonth.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		return PartialDate{Year: y, Month: mo}, true
	}
	if m := reYearOnly.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		return PartialDate{Year: y}, true
	}
	return PartialDate{}, false
}

// Record is the canonical per-track tag record every format handler
// reads into and writes from.
type Record struct {
	ReleaseID string
	ID        string

	ReleaseTitle    string
	ReleaseType     string
	ReleaseDate     PartialDate
	OriginalDate    PartialDate
	CompositionDate PartialDate
	Edition         string
	CatalogNumber   string

	TrackNumber int
	TrackTotal  int
	DiscNumber  int
	DiscTotal   int
	TrackTitle  string

	DurationSeconds int

	Genre          []string
	SecondaryGenre []string
	Descriptor     []string
	Label          []string

	TrackArtists   ArtistMapping
	ReleaseArtists ArtistMapping

	// CoverArt is write-only: image bytes to embed, never populated on read.
	CoverArt []byte
}

// supportedAudioExtensions mirrors SUPPORTED_AUDIO_EXTENSIONS.
var supportedAudioExtensions = map[string]bool{
	ExtMP3: true, ExtFLAC: true, ExtOPUS: true, ExtOGG: true, ExtM4A: true,
}

var supportedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
}

func extOf(path string) string {
	path = strings.ToLower(path)
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[idx:]
	}
	return ""
}

// IsMusicFile reports whether path has a supported audio extension.
func IsMusicFile(path string) bool {
	return supportedAudioExtensions[extOf(path)]
}

// IsImageFile reports whether path has a supported cover-image extension.
func IsImageFile(path string) bool {
	return supportedImageExtensions[extOf(path)]
}

var illegalFSChars = regexp.MustCompile(`[:?<>\\*|"/]+`)

// SanitizeDirname replaces each run of filesystem-illegal characters
// with "_" and, if
// enforceMaxLen, truncates to maxBytes on a UTF-8 boundary.
func SanitizeDirname(name string, maxBytes int, enforceMaxLen bool) string {
	name = illegalFSChars.ReplaceAllString(name, "_")
	if enforceMaxLen && len(name) > maxBytes {
		name = truncateUTF8(name, maxBytes)
	}
	return norm.NFD.String(name)
}

// SanitizeFilename is like SanitizeDirname but keeps a short extension
// (<=6 bytes) outside the truncated budget.
func SanitizeFilename(name string, maxBytes int, enforceMaxLen bool) string {
	name = illegalFSChars.ReplaceAllString(name, "_")
	if enforceMaxLen {
		stem, ext := name, ""
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			stem, ext = name[:idx], name[idx:]
		}
		if len(ext) > 6 {
			stem, ext = name, ""
		}
		if len(stem) > maxBytes {
			stem = truncateUTF8(stem, maxBytes)
		}
		name = stem + ext
	}
	return norm.NFD.String(name)
}

func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return strings.TrimSpace(s)
	}
	b := s[:maxBytes]
	for len(b) > 0 && !utf8.ValidString(b) {
		b = b[:len(b)-1]
	}
	return strings.TrimSpace(b)
}

// Uniq removes duplicates from xs, preserving first-occurrence order.
func Uniq(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}

// taglibTags wraps a taglib result map with helper methods, reducing
// duplication across the M4A/Opus readers that share the library.
type taglibTags map[string][]string

func (t taglibTags) get(keys ...string) string {
	for _, key := range keys {
		if values, ok := t[key]; ok && len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

func (t taglibTags) getAll(key string) []string {
	return t[key]
}

func (t taglibTags) getInt(keys ...string) int {
	if s := t.get(keys...); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return 0
}
