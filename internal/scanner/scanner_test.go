package scanner

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"database/sql"

	dbpkg "github.com/selfhosted/crate/internal/db"
	"github.com/selfhosted/crate/internal/repository"
	"github.com/selfhosted/crate/internal/walker"
)

var fullDepthOpts = walker.Options{Recursive: true, MaxDepth: DefaultMaxDepth}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if err := dbpkg.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestScanner(t *testing.T, musicDir string) (*Scanner, *sql.DB) {
	t.Helper()
	conn := newTestDB(t)
	s := New(
		repository.NewArtistRepository(conn),
		repository.NewAlbumRepository(conn),
		repository.NewTrackRepository(conn),
		repository.NewFileIndexRepository(conn),
		repository.NewScanStateRepository(conn),
		repository.NewScanSkippedRepository(conn),
		musicDir,
	)
	return s, conn
}

func writeID3v1MP3(t *testing.T, path, title, artist, album, year string) {
	t.Helper()
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

	body := append(make([]byte, 200), buf...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write mp3: %v", err)
	}
}

// writeFLACWithTags writes a minimal FLAC file whose sole metadata block is a
// VORBIS_COMMENT carrying the given album/albumArtist/artist/title pairs, in
// the wire format internal/tagreader.parseVorbisComment expects.
func writeFLACWithTags(t *testing.T, path, album, albumArtist, artist, title string) {
	t.Helper()

	vendor := "crate-test"
	comments := []string{}
	if album != "" {
		comments = append(comments, "ALBUM="+album)
	}
	if albumArtist != "" {
		comments = append(comments, "ALBUMARTIST="+albumArtist)
	}
	if artist != "" {
		comments = append(comments, "ARTIST="+artist)
	}
	if title != "" {
		comments = append(comments, "TITLE="+title)
	}

	var block []byte
	u32 := func(n int) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(n))
		return b
	}
	block = append(block, u32(len(vendor))...)
	block = append(block, []byte(vendor)...)
	block = append(block, u32(len(comments))...)
	for _, c := range comments {
		block = append(block, u32(len(c))...)
		block = append(block, []byte(c)...)
	}

	header := []byte{
		0x80 | 4, // last-metadata-block flag set, type 4 (VORBIS_COMMENT)
		byte(len(block) >> 16),
		byte(len(block) >> 8),
		byte(len(block)),
	}

	var out []byte
	out = append(out, []byte("fLaC")...)
	out = append(out, header...)
	out = append(out, block...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		t.Fatalf("write flac: %v", err)
	}
}

// TestRunFullImportsNestedTracksIntoOneAlbum covers tracks several
// directories deep under one artist all landing in a single album by
// (albumArtist, album) grouping.
func TestRunFullImportsNestedTracksIntoOneAlbum(t *testing.T) {
	root := t.TempDir()
	artistDir := filepath.Join(root, "New Found Glory")
	writeID3v1MP3(t, filepath.Join(artistDir, "Disc 1", "01 - Intro.mp3"), "Intro", "New Found Glory", "Waiting", "2002")
	writeID3v1MP3(t, filepath.Join(artistDir, "Disc 2", "01 - Outro.mp3"), "Outro", "New Found Glory", "Waiting", "2002")

	s, conn := newTestScanner(t, root)
	if err := s.RunFull(t.Context(), fullDepthOpts); err != nil {
		t.Fatalf("RunFull: %v", err)
	}

	artists := repository.NewArtistRepository(conn)
	artist, err := artists.GetBySlug("new-found-glory")
	if err != nil || artist == nil {
		t.Fatalf("expected artist to exist, err=%v", err)
	}

	albums := repository.NewAlbumRepository(conn)
	albumList, err := albums.ListByArtist(artist.ID, false)
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(albumList) != 1 {
		t.Fatalf("expected 1 album, got %d: %+v", len(albumList), albumList)
	}
	if albumList[0].TrackCount != 2 {
		t.Errorf("TrackCount = %d, want 2", albumList[0].TrackCount)
	}
}

// TestRunFullDedupesHardlinkedFile covers the hardlink dedup scenario: the
// same inode reachable via two paths is admitted once.
func TestRunFullDedupesHardlinkedFile(t *testing.T) {
	root := t.TempDir()
	artistDir := filepath.Join(root, "Tigers Jaw")
	original := filepath.Join(artistDir, "Two", "01 - Never Saw It Coming.mp3")
	writeID3v1MP3(t, original, "Never Saw It Coming", "Tigers Jaw", "Two", "2008")

	linked := filepath.Join(artistDir, "Two (copy)", "01 - Never Saw It Coming.mp3")
	if err := os.MkdirAll(filepath.Dir(linked), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.Link(original, linked); err != nil {
		t.Skipf("hardlinks unsupported in this environment: %v", err)
	}

	s, conn := newTestScanner(t, root)
	if err := s.RunFull(t.Context(), fullDepthOpts); err != nil {
		t.Fatalf("RunFull: %v", err)
	}

	artists := repository.NewArtistRepository(conn)
	artist, err := artists.GetBySlug("tigers-jaw")
	if err != nil || artist == nil {
		t.Fatalf("expected artist to exist, err=%v", err)
	}
	albums := repository.NewAlbumRepository(conn)
	albumList, err := albums.ListByArtist(artist.ID, false)
	if err != nil {
		t.Fatalf("ListByArtist: %v", err)
	}
	if len(albumList) != 1 || albumList[0].TrackCount != 1 {
		t.Fatalf("expected 1 album with 1 deduped track, got %+v", albumList)
	}
}

// TestRunFullSkipsFilesMissingTags covers a file with no recognizable album
// tag being skipped, not imported, and recorded under the canonical
// "missing album tag" reason.
func TestRunFullSkipsFilesMissingTags(t *testing.T) {
	root := t.TempDir()
	artistDir := filepath.Join(root, "Unknown Artist")
	path := filepath.Join(artistDir, "track.mp3")
	if err := os.MkdirAll(artistDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Not a valid ID3v1 trailer at all: no tags recognized, Album empty.
	if err := os.WriteFile(path, []byte("not an mp3 file, just bytes padded out"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, conn := newTestScanner(t, root)
	if err := s.RunFull(t.Context(), fullDepthOpts); err != nil {
		t.Fatalf("RunFull: %v", err)
	}

	albums := repository.NewAlbumRepository(conn)
	n, err := albums.CountActive()
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no albums, got %d", n)
	}

	scanState := repository.NewScanStateRepository(conn)
	state, err := scanState.Get()
	if err != nil {
		t.Fatalf("Get scan state: %v", err)
	}
	if state.SkippedFiles != 1 {
		t.Errorf("SkippedFiles = %d, want 1", state.SkippedFiles)
	}
	if !strings.Contains(state.SkippedReasonsRaw, "missing album tag") {
		t.Errorf("SkippedReasonsRaw = %q, want it to contain \"missing album tag\"", state.SkippedReasonsRaw)
	}
}

// TestRunFullSweepsArtistsNotSeen covers the soft-delete lifecycle: an
// artist present in one run and absent in the next is marked deleted, not
// removed.
func TestRunFullSweepsArtistsNotSeen(t *testing.T) {
	root := t.TempDir()
	keepDir := filepath.Join(root, "Keep")
	goneDir := filepath.Join(root, "Gone")
	writeID3v1MP3(t, filepath.Join(keepDir, "a.mp3"), "A", "Keep", "Keep Album", "2001")
	writeID3v1MP3(t, filepath.Join(goneDir, "b.mp3"), "B", "Gone", "Gone Album", "2001")

	s, conn := newTestScanner(t, root)
	if err := s.RunFull(t.Context(), fullDepthOpts); err != nil {
		t.Fatalf("first RunFull: %v", err)
	}

	if err := os.RemoveAll(goneDir); err != nil {
		t.Fatalf("remove: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if err := s.RunFull(t.Context(), fullDepthOpts); err != nil {
		t.Fatalf("second RunFull: %v", err)
	}

	artists := repository.NewArtistRepository(conn)
	n, err := artists.CountActive()
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 active artist after sweep, got %d", n)
	}
	gone, err := artists.GetBySlug("gone")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if gone == nil || !gone.Deleted {
		t.Fatalf("expected the swept artist row to remain with deleted set, got %+v", gone)
	}
}

// TestRunFullSkipsAlbumArtistMismatch covers a file tagged with a different
// album artist than the folder it lives in: it must be skipped under
// "missing artist tag", not silently admitted into that folder's artist.
func TestRunFullSkipsAlbumArtistMismatch(t *testing.T) {
	root := t.TempDir()
	artistDir := filepath.Join(root, "Some Artist")
	writeFLACWithTags(t, filepath.Join(artistDir, "01 - Track.flac"), "An Album", "A Completely Different Artist", "A Completely Different Artist", "Track")

	s, conn := newTestScanner(t, root)
	if err := s.RunFull(t.Context(), fullDepthOpts); err != nil {
		t.Fatalf("RunFull: %v", err)
	}

	albums := repository.NewAlbumRepository(conn)
	n, err := albums.CountActive()
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no albums admitted, got %d", n)
	}

	scanState := repository.NewScanStateRepository(conn)
	state, err := scanState.Get()
	if err != nil {
		t.Fatalf("Get scan state: %v", err)
	}
	if state.SkippedFiles != 1 {
		t.Fatalf("SkippedFiles = %d, want 1", state.SkippedFiles)
	}
	if !strings.Contains(state.SkippedReasonsRaw, "missing artist tag") {
		t.Errorf("SkippedReasonsRaw = %q, want it to contain \"missing artist tag\"", state.SkippedReasonsRaw)
	}
}
