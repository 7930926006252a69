// Package pathtemplate renders the relative filesystem path a release
// or track would be renamed to when config.RenameSourceFiles is on.
// It is consulted, never enforced: nothing in internal/library or
// internal/cache calls Render on its own initiative, matching spec.md's
// framing of renaming as an opt-in, out-of-scope leaf.
package pathtemplate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/rose-music/rose/internal/tags"
)

// TemplateKind selects which of a Templates triad to render.
type TemplateKind string

const (
	KindRelease   TemplateKind = "release"
	KindTrack     TemplateKind = "track"
	KindAllTracks TemplateKind = "all_tracks"
)

// Templates holds the three independently-configurable templates a
// release/track/all-tracks-playlist path is rendered from, mirroring
// PathTemplateTriad's shape.
type Templates struct {
	Release   string
	Track     string
	AllTracks string
}

// DefaultTemplates returns the triad's stock templates.
func DefaultTemplates() Templates {
	return Templates{
		Release:   "{{ .AlbumArtist }}/{{ .Title }}",
		Track:     "{{ .TrackArtist }} - {{ .TrackTitle }}",
		AllTracks: "All Tracks - {{ .AlbumArtist }} - {{ .Title }}",
	}
}

// Renderer holds a Templates triad pre-parsed into text/template trees.
type Renderer struct {
	parsed map[TemplateKind]*template.Template
}

// New parses a Templates triad, returning an error naming the bad
// template and kind if any of the three fails to parse.
func New(t Templates) (*Renderer, error) {
	r := &Renderer{parsed: make(map[TemplateKind]*template.Template, 3)}
	for kind, raw := range map[TemplateKind]string{
		KindRelease:   t.Release,
		KindTrack:     t.Track,
		KindAllTracks: t.AllTracks,
	} {
		tmpl, err := template.New(string(kind)).Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("pathtemplate: parsing %s template %q: %w", kind, raw, err)
		}
		r.parsed[kind] = tmpl
	}
	return r, nil
}

// Default is a Renderer over DefaultTemplates, used by the package-level Render.
var Default = must(New(DefaultTemplates()))

func must(r *Renderer, err error) *Renderer {
	if err != nil {
		panic(err)
	}
	return r
}

// fields is the template data a Record projects onto; field names
// match the original's `{{ albumartist }}`-style vocabulary, spelled
// in Go's exported-field convention for text/template dot access.
type fields struct {
	AlbumArtist  string
	TrackArtist  string
	Title        string
	TrackTitle   string
	ReleaseType  string
	Year         string
	OriginalYear string
	CatalogNumber string
	Edition      string
	Genre        string
	Label        string
	TrackNumber  string
	DiscNumber   string
}

func recordFields(r tags.Record) fields {
	return fields{
		AlbumArtist:   mainArtistNames(r.ReleaseArtists),
		TrackArtist:   mainArtistNames(r.TrackArtists),
		Title:         orDefault(r.ReleaseTitle, "unknown album"),
		TrackTitle:    orDefault(r.TrackTitle, "unknown title"),
		ReleaseType:   r.ReleaseType,
		Year:          yearOf(r.ReleaseDate),
		OriginalYear:  yearOf(r.OriginalDate),
		CatalogNumber: r.CatalogNumber,
		Edition:       r.Edition,
		Genre:         strings.Join(r.Genre, ", "),
		Label:         strings.Join(r.Label, ", "),
		TrackNumber:   numOrEmpty(r.TrackNumber),
		DiscNumber:    numOrEmpty(r.DiscNumber),
	}
}

func mainArtistNames(m tags.ArtistMapping) string {
	names := make([]string, 0, len(m.Main))
	for _, a := range m.Main {
		if !a.Alias {
			names = append(names, a.Name)
		}
	}
	if len(names) == 0 {
		return "unknown artist"
	}
	return strings.Join(names, "; ")
}

func yearOf(d tags.PartialDate) string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d", d.Year)
}

func numOrEmpty(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%02d", n)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var (
	reIllegalPathChars = regexp.MustCompile(`[:?<>\\*|"]+`)
	reQuoteMarks       = regexp.MustCompile(`["\x{201c}\x{201d}\x{2018}\x{2019}]+`)
	reMultiSpace       = regexp.MustCompile(`\s+`)
	reTrailingPeriod   = regexp.MustCompile(`\.+$`)
)

// sanitizeSegment cleans one path segment's worth of rendered text:
// fancy quotes collapse to straight ones, filesystem-illegal
// characters are dropped, runs of whitespace collapse, and a trailing
// period (illegal on some filesystems) is stripped.
func sanitizeSegment(s string) string {
	s = reQuoteMarks.ReplaceAllString(s, "'")
	s = reIllegalPathChars.ReplaceAllString(s, "")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = reTrailingPeriod.ReplaceAllString(s, "")
	return s
}

// Render executes the template for kind against r's fields and
// sanitizes the result segment-by-segment, so a "/" in the template
// source still produces subdirectories while a "/" inside a rendered
// field value (an artist name, say) does not.
func (re *Renderer) Render(kind TemplateKind, r tags.Record) string {
	tmpl, ok := re.parsed[kind]
	if !ok {
		return ""
	}
	f := recordFields(r)
	for _, v := range []*string{&f.AlbumArtist, &f.TrackArtist, &f.Title, &f.TrackTitle, &f.ReleaseType, &f.Year,
		&f.OriginalYear, &f.CatalogNumber, &f.Edition, &f.Genre, &f.Label, &f.TrackNumber, &f.DiscNumber} {
		*v = strings.ReplaceAll(*v, "/", "")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, f); err != nil {
		return ""
	}
	parts := strings.Split(buf.String(), "/")
	for i, p := range parts {
		parts[i] = sanitizeSegment(p)
	}
	return filepath.Join(parts...)
}

// Render renders kind against r using the package-level default
// templates, for callers that have not loaded a custom triad from
// configuration.
func Render(kind TemplateKind, r tags.Record) string {
	return Default.Render(kind, r)
}
