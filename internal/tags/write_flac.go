package tags

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"github.com/rose-music/rose/internal/rose"
)

func writeFLAC(path string, r Record, opts WriteOptions) error {
	f, id3Size, err := parseFLACWithID3Support(path)
	if err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
	}
	if id3Size > 0 {
		if err := stripID3v2Header(path, id3Size); err != nil {
			return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
		}
		f, err = flac.ParseFile(path)
		if err != nil {
			return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
		}
	}

	cmtIdx := -1
	for i, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			cmtIdx = i
			break
		}
	}

	cmts := flacvorbis.New()
	add := func(key, value string) { //nolint:unparam
		if value != "" {
			_ = cmts.Add(key, value)
		}
	}
	addInt := func(key string, value int) {
		if value > 0 {
			_ = cmts.Add(key, strconv.Itoa(value))
		}
	}

	add("ROSERELEASEID", r.ReleaseID)
	add("ROSEID", r.ID)
	add("ALBUM", r.ReleaseTitle)
	add("RELEASETYPE", NormalizeReleaseType(r.ReleaseType))
	add("EDITION", r.Edition)
	add("CATALOGNUMBER", r.CatalogNumber)
	addInt("TRACKNUMBER", r.TrackNumber)
	addInt("TRACKTOTAL", r.TrackTotal)
	addInt("DISCNUMBER", r.DiscNumber)
	addInt("DISCTOTAL", r.DiscTotal)
	add("TITLE", r.TrackTitle)
	add("GENRE", JoinGenreField(r.Genre, opts.WriteParentGenres))
	add("SECONDARYGENRE", JoinGenreField(r.SecondaryGenre, opts.WriteParentGenres))
	add("DESCRIPTOR", strings.Join(r.Descriptor, ";"))
	add("ORGANIZATION", strings.Join(r.Label, ";"))
	add("ARTIST", FormatArtistString(r.TrackArtists))
	add("ALBUMARTIST", FormatArtistString(r.ReleaseArtists))
	add("DATE", r.ReleaseDate.String())
	add("ORIGINALDATE", r.OriginalDate.String())
	add("COMPOSITIONDATE", r.CompositionDate.String())

	cmtBlock := cmts.Marshal()
	if cmtIdx >= 0 {
		f.Meta[cmtIdx] = &cmtBlock
	} else {
		f.Meta = append(f.Meta, &cmtBlock)
	}

	if len(r.CoverArt) > 0 {
		kept := f.Meta[:0]
		for _, meta := range f.Meta {
			if meta.Type != flac.Picture {
				kept = append(kept, meta)
			}
		}
		f.Meta = kept

		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", r.CoverArt, detectMimeType(r.CoverArt))
		if err != nil {
			return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
		}
		picBlock := pic.Marshal()
		f.Meta = append(f.Meta, &picBlock)
	}

	if err := f.Save(path); err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
	}
	return nil
}

// parseFLACWithID3Support parses path, tolerating a prepended ID3v2
// header flac.ParseFile rejects outright. Returns the parsed file (nil
// if an ID3v2 header was found — the caller must strip it and
// re-parse) and that header's byte size (0 if none).
func parseFLACWithID3Support(path string) (*flac.File, int64, error) {
	f, err := flac.ParseFile(path)
	if err == nil {
		return f, 0, nil
	}

	file, openErr := os.Open(path)
	if openErr != nil {
		return nil, 0, err
	}
	defer file.Close()

	header := make([]byte, 10)
	if _, readErr := io.ReadFull(file, header); readErr != nil {
		return nil, 0, err
	}
	if !bytes.Equal(header[:3], []byte(id3Magic)) {
		return nil, 0, err
	}

	id3Size := int64(10)
	id3Size += int64(header[6]&0x7f)<<21 | int64(header[7]&0x7f)<<14 | int64(header[8]&0x7f)<<7 | int64(header[9]&0x7f)

	if header[5]&0x40 != 0 {
		extHeader := make([]byte, 4)
		if _, seekErr := file.Seek(10, io.SeekStart); seekErr != nil {
			return nil, 0, err
		}
		if _, readErr := io.ReadFull(file, extHeader); readErr != nil {
			return nil, 0, err
		}
		id3Size += int64(extHeader[0]&0x7f)<<21 | int64(extHeader[1]&0x7f)<<14 | int64(extHeader[2]&0x7f)<<7 | int64(extHeader[3]&0x7f)
	}

	if _, seekErr := file.Seek(id3Size, io.SeekStart); seekErr != nil {
		return nil, 0, err
	}
	flacMagic := make([]byte, 4)
	if _, readErr := io.ReadFull(file, flacMagic); readErr != nil {
		return nil, 0, err
	}
	if !bytes.Equal(flacMagic, []byte("fLaC")) {
		return nil, 0, errors.New("no fLaC marker found after ID3v2 header")
	}

	return nil, id3Size, nil
}

func stripID3v2Header(path string, id3Size int64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if int64(len(data)) <= id3Size {
		return errors.New("file too small to strip ID3v2 header")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data[id3Size:], info.Mode().Perm())
}
