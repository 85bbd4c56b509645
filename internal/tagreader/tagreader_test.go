package tagreader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeVorbisComment(comments []string) []byte {
	buf := make([]byte, 0, 256)
	vendor := "test-vendor"
	le4 := func(n int) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(n))
		return b
	}
	buf = append(buf, le4(len(vendor))...)
	buf = append(buf, []byte(vendor)...)
	buf = append(buf, le4(len(comments))...)
	for _, c := range comments {
		buf = append(buf, le4(len(c))...)
		buf = append(buf, []byte(c)...)
	}
	return buf
}

func writeFLACFile(t *testing.T, dir string, comments []string) string {
	t.Helper()
	path := filepath.Join(dir, "test.flac")

	vc := writeVorbisComment(comments)

	var data []byte
	data = append(data, []byte("fLaC")...)

	header := []byte{
		0x80 | vorbisCommentBlockType,
		byte(len(vc) >> 16),
		byte(len(vc) >> 8),
		byte(len(vc)),
	}
	data = append(data, header...)
	data = append(data, vc...)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write flac: %v", err)
	}
	return path
}

func TestReadFLACVorbisComment(t *testing.T) {
	dir := t.TempDir()
	path := writeFLACFile(t, dir, []string{
		"ALBUM=Waiting",
		"ARTIST=New Found Glory",
		"ALBUMARTIST=New Found Glory",
		"DATE=1998-06-23",
		"TITLE=Something I Call Personality",
	})

	tags, err := Read(path, "flac")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tags == nil {
		t.Fatal("expected tags, got nil")
	}
	if tags.Album != "Waiting" {
		t.Errorf("Album = %q, want Waiting", tags.Album)
	}
	if tags.Artist != "New Found Glory" {
		t.Errorf("Artist = %q", tags.Artist)
	}
	if tags.Year != "1998-06-23" {
		t.Errorf("Year = %q", tags.Year)
	}
}

func TestReadFLACNoVorbisBlock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no-comment.flac")
	data := append([]byte("fLaC"), []byte{0x80, 0, 0, 0}...) // last block, type 0 (STREAMINFO-ish), zero length
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	tags, err := Read(path, "flac")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tags != nil {
		t.Errorf("expected nil tags, got %+v", tags)
	}
}

func writeID3v1File(t *testing.T, dir, title, artist, album, year string) string {
	t.Helper()
	path := filepath.Join(dir, "test.mp3")

	pad := func(s string, n int) []byte {
		b := make([]byte, n)
		copy(b, []byte(s))
		return b
	}

	buf := make([]byte, 128)
	copy(buf[0:3], "TAG")
	copy(buf[3:33], pad(title, 30))
	copy(buf[33:63], pad(artist, 30))
	copy(buf[63:93], pad(album, 30))
	copy(buf[93:97], pad(year, 4))

	body := append(make([]byte, 100), buf...) // pad so file is > 128 bytes total
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write mp3: %v", err)
	}
	return path
}

func TestReadID3v1(t *testing.T) {
	dir := t.TempDir()
	path := writeID3v1File(t, dir, "Something I Call Personality", "New Found Glory", "Waiting", "1998")

	tags, err := Read(path, "mp3")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tags == nil {
		t.Fatal("expected tags, got nil")
	}
	if tags.Album != "Waiting" {
		t.Errorf("Album = %q", tags.Album)
	}
	if tags.Artist != "New Found Glory" {
		t.Errorf("Artist = %q", tags.Artist)
	}
	if tags.Year != "1998" {
		t.Errorf("Year = %q", tags.Year)
	}
}

func TestReadID3v1EmptyAlbumYieldsNil(t *testing.T) {
	dir := t.TempDir()
	path := writeID3v1File(t, dir, "Title", "Artist", "", "1998")

	tags, err := Read(path, "mp3")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tags != nil {
		t.Errorf("expected nil tags for empty album, got %+v", tags)
	}
}

func TestReadUnsupportedExtension(t *testing.T) {
	tags, err := Read("/nonexistent/path.ogg", "ogg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tags != nil {
		t.Errorf("expected nil tags for unsupported extension")
	}
}
