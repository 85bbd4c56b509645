// Package tagreader does byte-level extraction of album/artist/year tags
// from FLAC Vorbis comments and ID3v1 MP3 trailers, grounded on the general
// byte-layout parsing shape of llehouerou-waves/internal/tags/read_flac.go
// and read_mp3.go.
package tagreader

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"strings"
)

// Tags holds the fields the Scanner needs; any field may be empty. A nil
// *Tags means the file had no recognizable tag block at all.
type Tags struct {
	Album       string
	AlbumArtist string
	Artist      string
	Year        string
	Title       string
}

// Read dispatches to the FLAC or ID3v1 reader by extension (lowercase, no
// leading dot). Any other extension, or any I/O/parse failure, yields
// (nil, nil) — errors never propagate out of this package.
func Read(path, ext string) (*Tags, error) {
	switch strings.ToLower(ext) {
	case "flac":
		t, _ := readFLAC(path)
		return t, nil
	case "mp3":
		t, _ := readID3v1(path)
		return t, nil
	default:
		return nil, nil
	}
}

const vorbisCommentBlockType = 4

// readFLAC parses the FLAC metadata block chain looking for the first
// VORBIS_COMMENT block. Returns nil Tags on any structural failure, with a
// non-nil err only when the file cannot be opened or its 4-byte magic cannot
// be read; the caller always swallows err into a nil Tags per the contract
// above.
func readFLAC(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, err
	}
	if string(magic) != "fLaC" {
		return nil, nil
	}

	for {
		header := make([]byte, 4)
		if _, err := io.ReadFull(r, header); err != nil {
			return nil, nil
		}
		isLast := header[0]&0x80 != 0
		blockType := header[0] & 0x7f
		length := int(header[1])<<16 | int(header[2])<<8 | int(header[3])

		if blockType != vorbisCommentBlockType {
			if isLast {
				return nil, nil
			}
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				return nil, nil
			}
			continue
		}

		block := make([]byte, length)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, nil
		}
		return parseVorbisComment(block), nil
	}
}

func parseVorbisComment(block []byte) *Tags {
	if len(block) < 4 {
		return nil
	}
	pos := 0
	vendorLen := int(binary.LittleEndian.Uint32(block[pos:]))
	pos += 4 + vendorLen
	if pos+4 > len(block) {
		return nil
	}

	count := int(binary.LittleEndian.Uint32(block[pos:]))
	pos += 4

	tags := &Tags{}
	seen := map[string]bool{}

	for i := 0; i < count && pos+4 <= len(block); i++ {
		entryLen := int(binary.LittleEndian.Uint32(block[pos:]))
		pos += 4
		if pos+entryLen > len(block) {
			break
		}
		entry := string(block[pos : pos+entryLen])
		pos += entryLen

		eq := strings.IndexByte(entry, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToUpper(entry[:eq])
		value := entry[eq+1:]

		switch key {
		case "ALBUM":
			if !seen["ALBUM"] {
				tags.Album = value
				seen["ALBUM"] = true
			}
		case "ALBUMARTIST":
			if !seen["ALBUMARTIST"] {
				tags.AlbumArtist = value
				seen["ALBUMARTIST"] = true
			}
		case "ARTIST":
			if !seen["ARTIST"] {
				tags.Artist = value
				seen["ARTIST"] = true
			}
		case "TITLE":
			if !seen["TITLE"] {
				tags.Title = value
				seen["TITLE"] = true
			}
		case "DATE":
			if !seen["DATE"] {
				tags.Year = value
				seen["DATE"] = true
				seen["YEAR"] = true // DATE wins over a later YEAR fallback
			}
		case "YEAR":
			if !seen["YEAR"] {
				tags.Year = value
				seen["YEAR"] = true
			}
		}
	}

	return tags
}

// readID3v1 decodes the fixed-width Latin-1 trailer: title(3..33),
// artist(33..63), album(63..93), year(93..97).
func readID3v1(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < 128 {
		return nil, nil
	}

	buf := make([]byte, 128)
	if _, err := f.ReadAt(buf, info.Size()-128); err != nil {
		return nil, err
	}

	if string(buf[0:3]) != "TAG" {
		return nil, nil
	}

	title := latin1Field(buf[3:33])
	artist := latin1Field(buf[33:63])
	album := latin1Field(buf[63:93])
	year := latin1Field(buf[93:97])

	if album == "" {
		return nil, nil
	}

	return &Tags{
		Album:  album,
		Artist: artist,
		Title:  title,
		Year:   year,
	}, nil
}

func latin1Field(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c == 0 {
			break
		}
		sb.WriteRune(rune(c))
	}
	return strings.TrimSpace(sb.String())
}
