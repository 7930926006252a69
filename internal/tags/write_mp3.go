package tags

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"

	"github.com/rose-music/rose/internal/rose"
)

func writeMP3(path string, r Record, opts WriteOptions) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if errors.Is(err, id3v2.ErrUnsupportedVersion) {
		if stripErr := stripID3v2Tag(path); stripErr != nil {
			return rose.Wrap(rose.OpTagWrite, rose.Unexpected, stripErr)
		}
		t, err = id3v2.Open(path, id3v2.Options{Parse: true})
	}
	if err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
	}
	defer t.Close()

	t.SetVersion(4)
	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	t.DeleteAllFrames()

	t.SetArtist(FormatArtistString(r.TrackArtists))
	t.SetAlbum(r.ReleaseTitle)
	t.SetTitle(r.TrackTitle)
	t.SetGenre(JoinGenreField(r.Genre, opts.WriteParentGenres))

	if s := r.ReleaseDate.String(); s != "" {
		t.AddTextFrame("TDRC", id3v2.EncodingUTF8, s)
	}

	trackStr := strconv.Itoa(r.TrackNumber)
	if r.TrackTotal > 0 {
		trackStr += "/" + strconv.Itoa(r.TrackTotal)
	}
	t.AddTextFrame(t.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, trackStr)

	if r.DiscNumber > 0 {
		discStr := strconv.Itoa(r.DiscNumber)
		if r.DiscTotal > 0 {
			discStr += "/" + strconv.Itoa(r.DiscTotal)
		}
		t.AddTextFrame(t.CommonID("Part of a set"), id3v2.EncodingUTF8, discStr)
	}

	if s := FormatArtistString(r.ReleaseArtists); s != "" {
		t.AddTextFrame(t.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, s)
	}
	if s := r.OriginalDate.String(); s != "" {
		t.AddTextFrame("TDOR", id3v2.EncodingUTF8, s)
	}
	if s := strings.Join(r.Label, ";"); s != "" {
		t.AddTextFrame("TPUB", id3v2.EncodingUTF8, s)
	}

	addTXXXFrame(t, "ROSERELEASEID", r.ReleaseID)
	addTXXXFrame(t, "ROSEID", r.ID)
	addTXXXFrame(t, "RELEASETYPE", NormalizeReleaseType(r.ReleaseType))
	addTXXXFrame(t, "EDITION", r.Edition)
	addTXXXFrame(t, "CATALOGNUMBER", r.CatalogNumber)
	addTXXXFrame(t, "SECONDARYGENRE", JoinGenreField(r.SecondaryGenre, opts.WriteParentGenres))
	addTXXXFrame(t, "DESCRIPTOR", strings.Join(r.Descriptor, ";"))
	addTXXXFrame(t, "COMPOSITIONDATE", r.CompositionDate.String())

	if len(r.CoverArt) > 0 {
		t.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    detectMimeType(r.CoverArt),
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     r.CoverArt,
		})
	}

	if err := t.Save(); err != nil {
		return rose.Wrap(rose.OpTagWrite, rose.Unexpected, err)
	}
	return nil
}

func addTXXXFrame(t *id3v2.Tag, description, value string) {
	if value == "" {
		return
	}
	t.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}

// stripID3v2Tag removes an ID3v2 tag the id3v2 library can't parse
// (e.g. a legacy ID3v2.2 tag), so a fresh one can be written.
func stripID3v2Tag(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) < 10 || string(data[:3]) != id3Magic {
		return nil
	}
	size := int(data[6])<<21 | int(data[7])<<14 | int(data[8])<<7 | int(data[9])
	tagSize := size + 10
	if data[5]&0x10 != 0 {
		tagSize += 10
	}
	if tagSize >= len(data) {
		return errors.New("id3v2 tag size exceeds file size")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data[tagSize:], info.Mode())
}
