package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml"

	"github.com/rose-music/rose/internal/cache"
	"github.com/rose-music/rose/internal/config"
	"github.com/rose-music/rose/internal/rose"
	"github.com/rose-music/rose/internal/tags"
)

// releaseEditFile is the writable TOML view of a release's metadata.
// track_total/disc_total are deliberately absent: spec derives them on
// every refresh and they are never accepted as user input.
type releaseEditFile struct {
	Title           string           `toml:"title"`
	ReleaseType     string           `toml:"releasetype"`
	ReleaseDate     string           `toml:"releasedate"`
	OriginalDate    string           `toml:"originaldate"`
	CompositionDate string           `toml:"compositiondate"`
	CatalogNumber   string           `toml:"catalognumber"`
	Edition         string           `toml:"edition"`
	Genre           []string         `toml:"genre"`
	SecondaryGenre  []string         `toml:"secondarygenre"`
	Descriptor      []string         `toml:"descriptor"`
	Label           []string         `toml:"label"`
	Artists         string           `toml:"releaseartists"`
	Tracks          []trackEditEntry `toml:"tracks"`
}

type trackEditEntry struct {
	ID          string `toml:"id"`
	Title       string `toml:"title"`
	DiscNumber  string `toml:"discnumber"`
	TrackNumber string `toml:"tracknumber"`
	Artists     string `toml:"artists"`
}

func releaseToEditFile(r *cache.Release, trackList []cache.Track) releaseEditFile {
	tracks := make([]trackEditEntry, len(trackList))
	for i, t := range trackList {
		tracks[i] = trackEditEntry{
			ID:          t.ID,
			Title:       t.Title,
			DiscNumber:  t.DiscNumber,
			TrackNumber: t.TrackNumber,
			Artists:     tags.FormatArtistString(t.Artists),
		}
	}
	return releaseEditFile{
		Title:           r.Title,
		ReleaseType:     r.ReleaseType,
		ReleaseDate:     r.ReleaseDate.String(),
		OriginalDate:    r.OriginalDate.String(),
		CompositionDate: r.CompositionDate.String(),
		CatalogNumber:   r.CatalogNumber,
		Edition:         r.Edition,
		Genre:           r.Genre,
		SecondaryGenre:  r.SecondaryGenre,
		Descriptor:      r.Descriptor,
		Label:           r.Label,
		Artists:         tags.FormatArtistString(r.Artists),
		Tracks:          tracks,
	}
}

// EditRelease materializes a TOML view of the release's writable
// metadata, spawns $EDITOR, validates the result, and writes the
// edited fields back with one tags.Write per track of the release,
// whether or not that track's own fields changed. If any
// write fails partway through, the scratch file is left in place under
// cache-dir so the edit can be re-opened instead of re-typed.
func EditRelease(ctx context.Context, cfg *config.Config, c *cache.Cache, releaseID string) error {
	r, err := c.Release(ctx, releaseID)
	if err != nil {
		return err
	}
	trackList, err := c.Tracks(ctx, releaseID)
	if err != nil {
		return err
	}

	unlock, err := c.Lock(ctx, releaseLockName(releaseID), cache.EditLockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	original := releaseToEditFile(r, trackList)
	originalRaw, err := toml.Marshal(original)
	if err != nil {
		return rose.Wrap(rose.OpReleaseEdit, rose.Unexpected, err)
	}

	scratch := resumePath(cfg, releaseID)
	if err := os.WriteFile(scratch, originalRaw, 0o644); err != nil {
		return rose.Wrap(rose.OpReleaseEdit, rose.Unexpected, err)
	}

	if err := editorCommand(scratch).Run(); err != nil {
		return rose.Expectedf(rose.OpReleaseEdit, "editor exited with an error, leaving the edit at %s: %v", scratch, err)
	}

	editedRaw, err := os.ReadFile(scratch)
	if err != nil {
		return rose.Wrap(rose.OpReleaseEdit, rose.Unexpected, err)
	}
	if strings.TrimSpace(string(editedRaw)) == strings.TrimSpace(string(originalRaw)) {
		os.Remove(scratch)
		return unlock()
	}

	var edited releaseEditFile
	if err := toml.Unmarshal(editedRaw, &edited); err != nil {
		return rose.Expectedf(rose.OpReleaseEdit, "invalid edit, leaving it at %s: %v", scratch, err)
	}
	if err := validateReleaseEdit(edited, trackList, scratch); err != nil {
		return err
	}

	byID := make(map[string]trackEditEntry, len(edited.Tracks))
	for _, te := range edited.Tracks {
		byID[te.ID] = te
	}

	opts := tags.WriteOptions{WriteParentGenres: cfg.WriteParentGenres}
	for _, t := range trackList {
		te := byID[t.ID]
		current, err := tags.Read(t.SourcePath)
		if err != nil {
			return rose.Expectedf(rose.OpReleaseEdit,
				"edit partially applied, resume file retained at %s: re-reading %s failed: %v", scratch, t.SourcePath, err)
		}
		current.ReleaseTitle = edited.Title
		current.ReleaseType = edited.ReleaseType
		current.CatalogNumber = edited.CatalogNumber
		current.Edition = edited.Edition
		current.Genre = edited.Genre
		current.SecondaryGenre = edited.SecondaryGenre
		current.Descriptor = edited.Descriptor
		current.Label = edited.Label
		current.ReleaseArtists = tags.ParseArtistString(edited.Artists)
		if d, ok := tags.ParsePartialDate(edited.ReleaseDate); ok || edited.ReleaseDate == "" {
			current.ReleaseDate = d
		}
		if d, ok := tags.ParsePartialDate(edited.OriginalDate); ok || edited.OriginalDate == "" {
			current.OriginalDate = d
		}
		if d, ok := tags.ParsePartialDate(edited.CompositionDate); ok || edited.CompositionDate == "" {
			current.CompositionDate = d
		}
		current.TrackTitle = te.Title
		current.DiscNumber = atoiOrZero(te.DiscNumber)
		current.TrackNumber = atoiOrZero(te.TrackNumber)
		current.TrackArtists = tags.ParseArtistString(te.Artists)

		if err := tags.Write(t.SourcePath, current, opts); err != nil {
			return rose.Expectedf(rose.OpReleaseEdit,
				"edit partially applied, resume file retained at %s: writing %s failed: %v", scratch, t.SourcePath, err)
		}
	}

	os.Remove(scratch)
	if err := unlock(); err != nil {
		return err
	}
	return cache.Refresh(ctx, c, cfg, []string{filepath.Base(r.SourcePath)})
}

func validateReleaseEdit(edited releaseEditFile, original []cache.Track, scratch string) error {
	if !tags.IsValidReleaseType(edited.ReleaseType) {
		return rose.Expectedf(rose.OpReleaseEdit, "unknown release type %q, leaving the edit at %s", edited.ReleaseType, scratch)
	}
	for _, d := range []string{edited.ReleaseDate, edited.OriginalDate, edited.CompositionDate} {
		if d == "" {
			continue
		}
		if _, ok := tags.ParsePartialDate(d); !ok {
			return rose.Expectedf(rose.OpReleaseEdit, "invalid date %q, leaving the edit at %s", d, scratch)
		}
	}
	if len(edited.Tracks) != len(original) {
		return rose.Expectedf(rose.OpReleaseEdit,
			"edit must describe exactly the release's existing tracks (adding/removing tracks isn't supported here), leaving the edit at %s", scratch)
	}
	known := make(map[string]bool, len(original))
	for _, t := range original {
		known[t.ID] = true
	}
	for _, te := range edited.Tracks {
		if !known[te.ID] {
			return rose.Expectedf(rose.OpReleaseEdit, "track id %q does not match a known track, leaving the edit at %s", te.ID, scratch)
		}
	}
	return nil
}

func atoiOrZero(s string) int {
	n := 0
	neg := false
	for i, r := range s {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}
