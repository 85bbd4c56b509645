package discography

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	dbpkg "github.com/selfhosted/crate/internal/db"
	"github.com/selfhosted/crate/internal/normalizer"
	"github.com/selfhosted/crate/internal/repository"
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

// seedArtistWithAlbums creates an artist and owned albums by title,
// returning the artist id.
func seedArtistWithAlbums(t *testing.T, albums *repository.AlbumRepository, artists *repository.ArtistRepository, titles ...string) int64 {
	t.Helper()
	now := time.Now()
	artist, err := artists.UpsertByName("Test Artist", now)
	if err != nil {
		t.Fatalf("UpsertByName: %v", err)
	}
	for i, title := range titles {
		path := artist.Slug + "/.crate/album-" + title
		if _, err := albums.UpsertByPath(artist.ID, path+string(rune('a'+i)), title, []string{"flac"}, 10, now, now); err != nil {
			t.Fatalf("UpsertByPath: %v", err)
		}
	}
	return artist.ID
}

// TestComputeSummaryMatchesExactAndReportsMissing covers some expected
// release-groups matching owned albums by normalized title, the rest
// reported missing, and completionPct rounded.
func TestComputeSummaryMatchesExactAndReportsMissing(t *testing.T) {
	conn := newTestDB(t)
	artists := repository.NewArtistRepository(conn)
	albums := repository.NewAlbumRepository(conn)
	expectedArtists := repository.NewExpectedArtistRepository(conn)
	expectedAlbums := repository.NewExpectedAlbumRepository(conn)
	ignored := repository.NewExpectedIgnoredRepository(conn)
	artistSettings := repository.NewExpectedArtistSettingsRepository(conn)
	overrides := repository.NewAlbumMatchOverrideRepository(conn)

	artistID := seedArtistWithAlbums(t, albums, artists, "First Album", "Second Album")

	now := time.Now()
	ea, err := expectedArtists.Upsert(artistID, "mbid-1", "Test Artist", now)
	if err != nil {
		t.Fatalf("Upsert expected artist: %v", err)
	}

	releases := []repository.ReleaseGroupInput{
		{MBReleaseGroupID: "rg1", Title: "First Album", NormalizedTitle: normalizer.NormalizeTitle("First Album"), PrimaryType: "Album"},
		{MBReleaseGroupID: "rg2", Title: "Second Album", NormalizedTitle: normalizer.NormalizeTitle("Second Album"), PrimaryType: "Album"},
		{MBReleaseGroupID: "rg3", Title: "Third Album", NormalizedTitle: normalizer.NormalizeTitle("Third Album"), PrimaryType: "Album"},
		{MBReleaseGroupID: "rg4", Title: "Fourth Album", NormalizedTitle: normalizer.NormalizeTitle("Fourth Album"), PrimaryType: "Album"},
	}
	if err := expectedAlbums.SyncReleaseGroups(ea.ID, releases, now); err != nil {
		t.Fatalf("SyncReleaseGroups: %v", err)
	}

	svc := New(artists, albums, expectedArtists, expectedAlbums, ignored, artistSettings, overrides, nil)
	summary, err := svc.ComputeSummary(artistID)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}

	if summary.OwnedCount != 2 {
		t.Errorf("OwnedCount = %d, want 2", summary.OwnedCount)
	}
	if summary.ExpectedCount != 4 {
		t.Errorf("ExpectedCount = %d, want 4", summary.ExpectedCount)
	}
	if summary.MissingCount != 2 {
		t.Errorf("MissingCount = %d, want 2", summary.MissingCount)
	}
	if summary.CompletionPct == nil || *summary.CompletionPct != 50 {
		t.Errorf("CompletionPct = %v, want 50", summary.CompletionPct)
	}
}

// TestComputeSummaryHonorsIgnoredAndOverride covers the ignored-album
// exclusion and the manual override match path.
func TestComputeSummaryHonorsIgnoredAndOverride(t *testing.T) {
	conn := newTestDB(t)
	artists := repository.NewArtistRepository(conn)
	albums := repository.NewAlbumRepository(conn)
	expectedArtists := repository.NewExpectedArtistRepository(conn)
	expectedAlbums := repository.NewExpectedAlbumRepository(conn)
	ignored := repository.NewExpectedIgnoredRepository(conn)
	artistSettings := repository.NewExpectedArtistSettingsRepository(conn)
	overrides := repository.NewAlbumMatchOverrideRepository(conn)

	artistID := seedArtistWithAlbums(t, albums, artists, "Weird Repress Title")

	now := time.Now()
	ea, err := expectedArtists.Upsert(artistID, "mbid-1", "Test Artist", now)
	if err != nil {
		t.Fatalf("Upsert expected artist: %v", err)
	}

	releases := []repository.ReleaseGroupInput{
		{MBReleaseGroupID: "rg1", Title: "Completely Different Official Title", NormalizedTitle: normalizer.NormalizeTitle("Completely Different Official Title"), PrimaryType: "Album"},
		{MBReleaseGroupID: "rg2", Title: "To Be Ignored", NormalizedTitle: normalizer.NormalizeTitle("To Be Ignored"), PrimaryType: "Album"},
	}
	if err := expectedAlbums.SyncReleaseGroups(ea.ID, releases, now); err != nil {
		t.Fatalf("SyncReleaseGroups: %v", err)
	}

	expectedList, err := expectedAlbums.ListByExpectedArtist(ea.ID)
	if err != nil {
		t.Fatalf("ListByExpectedArtist: %v", err)
	}
	var rg1ID, rg2ID int64
	for _, e := range expectedList {
		switch e.MBReleaseGroupID {
		case "rg1":
			rg1ID = e.ID
		case "rg2":
			rg2ID = e.ID
		}
	}

	ownedAlbums, err := albums.ListOwnedByArtist(artistID)
	if err != nil {
		t.Fatalf("ListOwnedByArtist: %v", err)
	}
	if err := overrides.Set(rg1ID, ownedAlbums[0].ID); err != nil {
		t.Fatalf("Set override: %v", err)
	}
	if err := ignored.Ignore(artistID, rg2ID); err != nil {
		t.Fatalf("Ignore: %v", err)
	}

	svc := New(artists, albums, expectedArtists, expectedAlbums, ignored, artistSettings, overrides, nil)
	summary, err := svc.ComputeSummary(artistID)
	if err != nil {
		t.Fatalf("ComputeSummary: %v", err)
	}

	if summary.IgnoredCount != 1 {
		t.Errorf("IgnoredCount = %d, want 1", summary.IgnoredCount)
	}
	if summary.MissingCount != 0 {
		t.Errorf("MissingCount = %d, want 0 (rg1 matched via override)", summary.MissingCount)
	}
	if summary.MatchedOwnedCount != 1 {
		t.Errorf("MatchedOwnedCount = %d, want 1", summary.MatchedOwnedCount)
	}
}

// TestSyncReleaseGroupsPrunesStaleRows covers a second sync that omits a
// previously-synced release-group removing it.
func TestSyncReleaseGroupsPrunesStaleRows(t *testing.T) {
	conn := newTestDB(t)
	artists := repository.NewArtistRepository(conn)
	expectedArtists := repository.NewExpectedArtistRepository(conn)
	expectedAlbums := repository.NewExpectedAlbumRepository(conn)

	t1 := time.Now()
	artist, err := artists.UpsertByName("Test Artist", t1)
	if err != nil {
		t.Fatalf("UpsertByName: %v", err)
	}
	ea, err := expectedArtists.Upsert(artist.ID, "mbid-1", "Test Artist", t1)
	if err != nil {
		t.Fatalf("Upsert expected artist: %v", err)
	}

	first := []repository.ReleaseGroupInput{
		{MBReleaseGroupID: "rg1", Title: "Keep Me", NormalizedTitle: "keep me", PrimaryType: "Album"},
		{MBReleaseGroupID: "rg2", Title: "Drop Me", NormalizedTitle: "drop me", PrimaryType: "Album"},
	}
	if err := expectedAlbums.SyncReleaseGroups(ea.ID, first, t1); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	t2 := t1.Add(time.Second)
	second := []repository.ReleaseGroupInput{
		{MBReleaseGroupID: "rg1", Title: "Keep Me", NormalizedTitle: "keep me", PrimaryType: "Album"},
	}
	if err := expectedAlbums.SyncReleaseGroups(ea.ID, second, t2); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	remaining, err := expectedAlbums.ListByExpectedArtist(ea.ID)
	if err != nil {
		t.Fatalf("ListByExpectedArtist: %v", err)
	}
	if len(remaining) != 1 || remaining[0].MBReleaseGroupID != "rg1" {
		t.Fatalf("expected only rg1 to remain, got %+v", remaining)
	}
}
