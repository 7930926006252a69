package tags

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"

	goflac "github.com/go-flac/go-flac"
)

// Duration reads duration_seconds from a track's container metadata
// without decoding any audio samples: FLAC/MP4 structural headers and
// Ogg page granule positions carry it directly; MP3 falls back to a
// bitrate-based estimate from the first frame header.
func Duration(path string) (int, error) {
	switch extOf(path) {
	case ExtFLAC:
		return durationFLAC(path)
	case ExtOPUS, ExtOGG:
		return durationOgg(path)
	case ExtM4A, ExtMP4:
		return durationM4A(path)
	case ExtMP3:
		return durationMP3(path)
	}
	return 0, nil
}

func durationFLAC(path string) (int, error) {
	f, err := goflac.ParseFile(path)
	if err != nil {
		// Some FLAC files carry a prepended ID3v2 header the parser
		// chokes on; Write already handles stripping it on write, so
		// on read we simply skip duration rather than mutate the file.
		return 0, nil //nolint:nilerr
	}
	for _, meta := range f.Meta {
		if meta.Type != goflac.StreamInfo || len(meta.Data) < 18 {
			continue
		}
		data := meta.Data
		sampleRate := int(data[10])<<12 | int(data[11])<<4 | int(data[12])>>4
		totalSamples := int64(data[13]&0x0F)<<32 | int64(data[14])<<24 | int64(data[15])<<16 | int64(data[16])<<8 | int64(data[17])
		if sampleRate == 0 {
			return 0, nil
		}
		return int(totalSamples / int64(sampleRate)), nil
	}
	return 0, nil
}

// durationOgg locates the last page of an Ogg container and reads its
// granule position, which for both Vorbis and Opus streams is a sample
// count at the stream's fixed/implied rate.
func durationOgg(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	searchSize := min(int64(65536), fi.Size())
	if _, err := f.Seek(-searchSize, io.SeekEnd); err != nil {
		return 0, err
	}
	buf := make([]byte, searchSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}
	buf = buf[:n]

	var lastGranule int64
	for i := len(buf) - 27; i >= 0; i-- {
		if buf[i] == 'O' && buf[i+1] == 'g' && buf[i+2] == 'g' && buf[i+3] == 'S' && i+14 <= len(buf) {
			lastGranule = int64(binary.LittleEndian.Uint64(buf[i+6 : i+14]))
			break
		}
	}
	if lastGranule <= 0 {
		return 0, nil
	}

	sampleRate := 48000 // Opus streams always run at a 48kHz granule clock.
	if strings.EqualFold(extOf(path), ExtOGG) {
		sampleRate = oggVorbisSampleRate(path)
	}
	return int(lastGranule / int64(sampleRate)), nil
}

// oggVorbisSampleRate reads the sample rate out of the Vorbis
// identification header in the first Ogg page.
func oggVorbisSampleRate(path string) int {
	const fallback = 44100
	data, err := os.ReadFile(path)
	if err != nil {
		return fallback
	}
	idx := strings.Index(string(data), "vorbis")
	if idx < 0 || idx+16 > len(data) {
		return fallback
	}
	// Layout after the "vorbis" marker (the 1-byte packet type sits just
	// before it): 4 bytes vorbis version, 1 byte channels, 4 bytes rate.
	rateOff := idx + 6 + 4 + 1
	if rateOff+4 > len(data) {
		return fallback
	}
	rate := binary.LittleEndian.Uint32(data[rateOff : rateOff+4])
	if rate == 0 {
		return fallback
	}
	return int(rate)
}

// durationM4A walks the mp4 box tree for moov/trak/mdia/mdhd, which
// carries the track's timescale and duration directly.
func durationM4A(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return findMdhdDuration(f)
}

func findMdhdDuration(r io.ReadSeeker) (int, error) {
	for {
		size, boxType, err := readBoxHeader(r)
		if err != nil {
			return 0, nil //nolint:nilerr // end of container: no mdhd found
		}
		switch boxType {
		case "moov", "trak", "mdia":
			continue // descend: header already consumed, next read is the child
		case "mdhd":
			return readMdhdBody(r, size)
		default:
			if size < 8 {
				return 0, nil
			}
			if _, err := r.Seek(int64(size-8), io.SeekCurrent); err != nil {
				return 0, err
			}
		}
	}
}

func readBoxHeader(r io.ReadSeeker) (size uint32, boxType string, err error) {
	var header [8]byte
	if _, err = io.ReadFull(r, header[:]); err != nil {
		return 0, "", err
	}
	return binary.BigEndian.Uint32(header[:4]), string(header[4:8]), nil
}

func readMdhdBody(r io.ReadSeeker, boxSize uint32) (int, error) {
	body := make([]byte, boxSize-8)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, err
	}
	if len(body) < 1 {
		return 0, nil
	}
	version := body[0]
	var timescale, duration uint64
	if version == 1 {
		if len(body) < 28 {
			return 0, nil
		}
		timescale = uint64(binary.BigEndian.Uint32(body[20:24]))
		duration = binary.BigEndian.Uint64(body[24:32])
	} else {
		if len(body) < 20 {
			return 0, nil
		}
		timescale = uint64(binary.BigEndian.Uint32(body[12:16]))
		duration = uint64(binary.BigEndian.Uint32(body[16:20]))
	}
	if timescale == 0 {
		return 0, nil
	}
	return int(duration / timescale), nil
}

// mp3BitrateTable covers MPEG-1 Layer III, the overwhelmingly common
// case for tagged music files.
var mp3BitrateTable = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
var mp3SampleRateTable = [4]int{44100, 48000, 32000, 0}

// durationMP3 scans past any ID3v2 header for the first valid MPEG
// frame sync and estimates duration from the file size and that
// frame's bitrate, the same average-bitrate technique mutagen-style
// taggers use rather than decoding the stream.
func durationMP3(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}

	var offset int64
	var header [10]byte
	if n, _ := f.Read(header[:]); n == 10 && string(header[:3]) == id3Magic {
		size := int64(header[6])<<21 | int64(header[7])<<14 | int64(header[8])<<7 | int64(header[9])
		offset = 10 + size
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}

	buf := make([]byte, 4096)
	n, _ := io.ReadFull(f, buf)
	buf = buf[:n]
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] != 0xFF || buf[i+1]&0xE0 != 0xE0 {
			continue
		}
		versionBits := (buf[i+1] >> 3) & 0x03
		layerBits := (buf[i+1] >> 1) & 0x03
		if versionBits != 0x03 || layerBits != 0x01 { // MPEG-1, Layer III
			continue
		}
		bitrateIdx := (buf[i+2] >> 4) & 0x0F
		rateIdx := (buf[i+2] >> 2) & 0x03
		bitrate := mp3BitrateTable[bitrateIdx]
		sampleRate := mp3SampleRateTable[rateIdx]
		if bitrate == 0 || sampleRate == 0 {
			continue
		}
		audioBytes := fi.Size() - offset
		seconds := int(float64(audioBytes) * 8 / float64(bitrate*1000))
		return seconds, nil
	}
	return 0, nil
}
