package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/selfhosted/crate/internal/config"
	dbpkg "github.com/selfhosted/crate/internal/db"
	"github.com/selfhosted/crate/internal/discography"
	"github.com/selfhosted/crate/internal/httputil"
	"github.com/selfhosted/crate/internal/jobs"
	"github.com/selfhosted/crate/internal/musicbrainz"
	"github.com/selfhosted/crate/internal/repository"
	"github.com/selfhosted/crate/internal/scanner"
)

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

func newTestServer(t *testing.T) (*Server, *repository.ArtistRepository, *repository.AlbumRepository) {
	t.Helper()
	conn := newTestDB(t)

	artists := repository.NewArtistRepository(conn)
	albums := repository.NewAlbumRepository(conn)
	tracks := repository.NewTrackRepository(conn)
	fileIndex := repository.NewFileIndexRepository(conn)
	scanState := repository.NewScanStateRepository(conn)
	scanSkipped := repository.NewScanSkippedRepository(conn)
	settings := repository.NewSettingsRepository(conn)
	stats := repository.NewStatsRepository(conn)
	expArtists := repository.NewExpectedArtistRepository(conn)
	expAlbums := repository.NewExpectedAlbumRepository(conn)
	expSettings := repository.NewExpectedArtistSettingsRepository(conn)
	expIgnored := repository.NewExpectedIgnoredRepository(conn)
	overrides := repository.NewAlbumMatchOverrideRepository(conn)
	wishlist := repository.NewWishlistRepository(conn)

	sc := scanner.New(artists, albums, tracks, fileIndex, scanState, scanSkipped, t.TempDir())
	mb := musicbrainz.New("test/0.0.0")
	disco := discography.New(artists, albums, expArtists, expAlbums, expIgnored, expSettings, overrides, mb)

	cfg := &config.Config{Port: 4000, AppVersion: "test", GitSHA: "abc123", DataDir: t.TempDir(), MusicDir: t.TempDir()}
	jobQueue := jobs.NewQueue("127.0.0.1:0")

	s := NewServer(Deps{
		Config: cfg, DB: conn, Artists: artists, Albums: albums, Tracks: tracks,
		ScanState: scanState, ScanSkipped: scanSkipped, Settings: settings, Stats: stats,
		ExpArtists: expArtists, ExpAlbums: expAlbums, ExpSettings: expSettings, ExpIgnored: expIgnored,
		Wishlist: wishlist, Scanner: sc, Discography: disco, JobQueue: jobQueue,
	})
	return s, artists, albums
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, rec.Body.String())
	}
	return resp
}

func TestHandleHealthReportsFeatures(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"scan":true`) {
		t.Fatalf("expected scan feature flag in body, got %s", rec.Body.String())
	}
}

func TestSettingsRoundTripsThroughTypedPatch(t *testing.T) {
	s, _, _ := newTestServer(t)

	put := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"musicDir":"/mnt/music","unknownField":"ignored"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, put)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body=%s", rec.Code, rec.Body.String())
	}

	get := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec2 := httptest.NewRecorder()
	s.router.ServeHTTP(rec2, get)
	resp := decodeResponse(t, rec2)
	data := resp.Data.(map[string]interface{})
	if data["musicDir"] != "/mnt/music" {
		t.Fatalf("musicDir = %v, want /mnt/music", data["musicDir"])
	}
}

func TestHandleListAlbumsFiltersBySearchAndOwned(t *testing.T) {
	s, artists, albums := newTestServer(t)
	now := time.Now()

	artist, err := artists.UpsertByName("Boards of Canada", now)
	if err != nil {
		t.Fatalf("UpsertByName: %v", err)
	}
	if _, err := albums.UpsertByPath(artist.ID, artist.Slug+"/geogaddi", "Geogaddi", []string{"flac"}, 12, now, now); err != nil {
		t.Fatalf("UpsertByPath: %v", err)
	}
	if _, err := albums.UpsertByPath(artist.ID, artist.Slug+"/tomorrows-harvest", "Tomorrow's Harvest", []string{"flac"}, 10, now, now); err != nil {
		t.Fatalf("UpsertByPath: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/library/albums?search=geogaddi", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	if int(data["total"].(float64)) != 1 {
		t.Fatalf("total = %v, want 1", data["total"])
	}
}

func TestHandleSetAlbumOwnedUpdatesAndReturnsAlbum(t *testing.T) {
	s, artists, albums := newTestServer(t)
	now := time.Now()
	artist, _ := artists.UpsertByName("Aphex Twin", now)
	album, err := albums.UpsertByPath(artist.ID, artist.Slug+"/selected-ambient", "Selected Ambient Works 85-92", []string{"flac"}, 13, now, now)
	if err != nil {
		t.Fatalf("UpsertByPath: %v", err)
	}
	if err := albums.SetOwned(album.ID, false); err != nil {
		t.Fatalf("SetOwned: %v", err)
	}

	body := strings.NewReader(`{"owned":true}`)
	req := httptest.NewRequest(http.MethodPut, "/api/library/albums/"+idStr(album.ID)+"/owned", body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	got := resp.Data.(map[string]interface{})
	if got["owned"] != true {
		t.Fatalf("owned = %v, want true", got["owned"])
	}
}

func TestHandleArtistOverviewDegradesGracefullyWithoutExpectedSync(t *testing.T) {
	s, artists, albums := newTestServer(t)
	now := time.Now()
	artist, _ := artists.UpsertByName("Four Tet", now)
	if _, err := albums.UpsertByPath(artist.ID, artist.Slug+"/rounds", "Rounds", []string{"flac"}, 11, now, now); err != nil {
		t.Fatalf("UpsertByPath: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/artist/"+idStr(artist.ID)+"/overview", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	owned := data["owned"].([]interface{})
	if len(owned) != 1 {
		t.Fatalf("owned len = %d, want 1", len(owned))
	}
	if len(data["wanted"].([]interface{})) != 0 || len(data["missing"].([]interface{})) != 0 {
		t.Fatalf("expected empty wanted/missing before any expected-artist sync, got %v", data)
	}
}

func TestHandleExpectedSyncReturnsNotFoundForUnknownArtist(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/expected/artist/999/sync", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandlePostWishlistRejectsEmptyRequest(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/wishlist", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandlePostWishlistManualEntry(t *testing.T) {
	s, artists, _ := newTestServer(t)
	artist, _ := artists.UpsertByName("Burial", time.Now())

	body := `{"artistId":` + idStr(artist.ID) + `,"title":"Untrue","source":"manual"}`
	req := httptest.NewRequest(http.MethodPost, "/api/wishlist", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	got := resp.Data.(map[string]interface{})
	if got["title"] != "Untrue" {
		t.Fatalf("title = %v, want Untrue", got["title"])
	}
}

func idStr(id int64) string {
	return strconv.FormatInt(id, 10)
}
