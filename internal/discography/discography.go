// Package discography implements the discography reconciliation service:
// syncing expected release-groups from MusicBrainz and computing
// owned-vs-expected completion summaries. Grounded on the teacher's
// internal/collections package for the general shape of a service sitting
// above several repositories and composing their results into one view
// object — the matching algorithm itself is new.
package discography

import (
	"context"
	"time"

	"github.com/selfhosted/crate/internal/apperr"
	"github.com/selfhosted/crate/internal/models"
	"github.com/selfhosted/crate/internal/musicbrainz"
	"github.com/selfhosted/crate/internal/normalizer"
	"github.com/selfhosted/crate/internal/repository"
)

type Service struct {
	artists         *repository.ArtistRepository
	albums          *repository.AlbumRepository
	expectedArtists *repository.ExpectedArtistRepository
	expectedAlbums  *repository.ExpectedAlbumRepository
	ignored         *repository.ExpectedIgnoredRepository
	artistSettings  *repository.ExpectedArtistSettingsRepository
	overrides       *repository.AlbumMatchOverrideRepository
	mb              *musicbrainz.Client
}

func New(
	artists *repository.ArtistRepository,
	albums *repository.AlbumRepository,
	expectedArtists *repository.ExpectedArtistRepository,
	expectedAlbums *repository.ExpectedAlbumRepository,
	ignored *repository.ExpectedIgnoredRepository,
	artistSettings *repository.ExpectedArtistSettingsRepository,
	overrides *repository.AlbumMatchOverrideRepository,
	mb *musicbrainz.Client,
) *Service {
	return &Service{
		artists:         artists,
		albums:          albums,
		expectedArtists: expectedArtists,
		expectedAlbums:  expectedAlbums,
		ignored:         ignored,
		artistSettings:  artistSettings,
		overrides:       overrides,
		mb:              mb,
	}
}

// strongAliasMinOverlap is the token-overlap threshold computeSummary uses
// for its fallback, non-exact match pass.
const strongAliasMinOverlap = 0.8

// SyncExpectedForArtist resolves the artist, resolves or looks up its
// MusicBrainz id under a 15s outer timeout, records the link, fetches its
// release-groups, and transactionally syncs them against what's already
// stored.
func (s *Service) SyncExpectedForArtist(ctx context.Context, artistID int64) error {
	artist, err := s.artists.GetByID(artistID)
	if err != nil {
		return err
	}
	if artist == nil {
		return apperr.NewNotFound("artist")
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	existing, err := s.expectedArtists.GetByArtistID(artistID)
	if err != nil {
		return err
	}

	var mbid, name string
	if existing != nil && existing.MBID != "" {
		mbid, name = existing.MBID, existing.Name
	} else {
		match, err := s.mb.FindArtistByName(ctx, artist.Name)
		if err != nil {
			return err
		}
		if match == nil {
			return apperr.New(apperr.NotFound, "no musicbrainz match found for artist")
		}
		mbid, name = match.MBID, match.Name
	}

	now := time.Now()
	expectedArtist, err := s.expectedArtists.Upsert(artistID, mbid, name, now)
	if err != nil {
		return err
	}

	releases, err := s.mb.FetchArtistAlbums(ctx, mbid)
	if err != nil {
		return err
	}

	inputs := make([]repository.ReleaseGroupInput, len(releases))
	for i, rel := range releases {
		inputs[i] = repository.ReleaseGroupInput{
			MBReleaseGroupID: rel.MBReleaseGroupID,
			Title:            rel.Title,
			NormalizedTitle:  normalizer.NormalizeTitle(rel.Title),
			PrimaryType:      rel.PrimaryType,
			SecondaryTypes:   rel.SecondaryTypes,
			Year:             rel.Year,
		}
	}

	return s.expectedAlbums.SyncReleaseGroups(expectedArtist.ID, inputs, now)
}

// ComputeSummary loads the owned and expected sets, matches them by
// override / exact-normalized / strong-alias priority, and returns the
// completion view.
func (s *Service) ComputeSummary(artistID int64) (*models.Summary, error) {
	artist, err := s.artists.GetByID(artistID)
	if err != nil {
		return nil, err
	}
	if artist == nil {
		return nil, apperr.NewNotFound("artist")
	}

	settings, err := s.artistSettings.Get(artistID)
	if err != nil {
		return nil, err
	}

	expectedArtist, err := s.expectedArtists.GetByArtistID(artistID)
	if err != nil {
		return nil, err
	}

	var expectedAlbums []*models.ExpectedAlbum
	if expectedArtist != nil {
		expectedAlbums, err = s.expectedAlbums.ListByExpectedArtist(expectedArtist.ID)
		if err != nil {
			return nil, err
		}
	}

	owned, err := s.albums.ListOwnedByArtist(artistID)
	if err != nil {
		return nil, err
	}

	ignoredSet, err := s.ignored.IgnoredSet(artistID)
	if err != nil {
		return nil, err
	}

	expectedIDs := make([]int64, len(expectedAlbums))
	for i, e := range expectedAlbums {
		expectedIDs[i] = e.ID
	}
	overrides, err := s.overrides.ByExpectedAlbum(expectedIDs)
	if err != nil {
		return nil, err
	}

	// ownedByNormalized indexes the owned set for the exact-match pass;
	// ownedByID backs the override pass and dup-free matched/unmatched split.
	ownedByNormalized := make(map[string]*models.Album, len(owned))
	ownedByID := make(map[int64]*models.Album, len(owned))
	for _, a := range owned {
		ownedByNormalized[normalizer.NormalizeTitle(a.Title)] = a
		ownedByID[a.ID] = a
	}

	matchedOwnedIDs := make(map[int64]bool)
	var missingAlbums []*models.ExpectedAlbum
	ignoredCount := 0

	for _, e := range expectedAlbums {
		if ignoredSet[e.ID] {
			ignoredCount++
			continue
		}
		if !includedByArtistSettings(e, settings) {
			continue
		}

		var matched *models.Album
		if ownedID, ok := overrides[e.ID]; ok {
			matched = ownedByID[ownedID]
		}
		if matched == nil {
			matched = ownedByNormalized[e.NormalizedTitle]
		}
		if matched == nil {
			matched = findStrongAliasMatch(e.NormalizedTitle, owned)
		}

		if matched != nil {
			matchedOwnedIDs[matched.ID] = true
			continue
		}

		missingAlbums = append(missingAlbums, e)
	}

	var matchedOwnedAlbums, unmatchedOwnedAlbums []*models.Album
	for _, a := range owned {
		if matchedOwnedIDs[a.ID] {
			matchedOwnedAlbums = append(matchedOwnedAlbums, a)
		} else {
			unmatchedOwnedAlbums = append(unmatchedOwnedAlbums, a)
		}
	}

	expectedCount := len(expectedAlbums) - ignoredCount
	missingCount := len(missingAlbums)

	var completionPct *int
	if expectedCount > 0 {
		pct := int(round(float64(expectedCount-missingCount) / float64(expectedCount) * 100))
		completionPct = &pct
	}

	return &models.Summary{
		Artist:               artist,
		Settings:             settings,
		OwnedCount:           len(owned),
		ExpectedCount:        expectedCount,
		MissingCount:         missingCount,
		IgnoredCount:         ignoredCount,
		CompletionPct:        completionPct,
		MissingAlbums:        missingAlbums,
		MatchedOwnedCount:    len(matchedOwnedAlbums),
		MatchedOwnedAlbums:   matchedOwnedAlbums,
		UnmatchedOwnedAlbums: unmatchedOwnedAlbums,
	}, nil
}

// includedByArtistSettings applies the live/compilation inclusion rules: a
// release-group is excluded by default if it carries the "Live" secondary
// type or has primary type Compilation, unless the artist's settings opt
// in.
func includedByArtistSettings(e *models.ExpectedAlbum, settings *models.ExpectedArtistSettings) bool {
	if e.PrimaryType == "Compilation" && (settings == nil || !settings.IncludeCompilations) {
		return false
	}
	for _, t := range e.SecondaryTypes {
		if t == "Live" && (settings == nil || !settings.IncludeLive) {
			return false
		}
	}
	return true
}

func findStrongAliasMatch(normalizedTitle string, owned []*models.Album) *models.Album {
	for _, a := range owned {
		if normalizer.IsStrongTitleAliasMatch(normalizedTitle, normalizer.NormalizeTitle(a.Title), strongAliasMinOverlap) {
			return a
		}
	}
	return nil
}

func round(f float64) float64 {
	if f < 0 {
		return -round(-f)
	}
	whole := float64(int(f))
	if f-whole >= 0.5 {
		return whole + 1
	}
	return whole
}

// verifyArtistOwnsExpectedAlbum fails not-found unless artistID names a real
// artist and expectedAlbumID names a real expected_albums row that belongs
// to that artist's expected_artists link — otherwise an ignore/unignore or
// override call for an unrelated (artistId, expectedAlbumId) pair would
// silently succeed instead of rejecting the mismatched pair.
func (s *Service) verifyArtistOwnsExpectedAlbum(artistID, expectedAlbumID int64) error {
	artist, err := s.artists.GetByID(artistID)
	if err != nil {
		return err
	}
	if artist == nil {
		return apperr.NewNotFound("artist")
	}

	expArtist, err := s.expectedArtists.GetByArtistID(artistID)
	if err != nil {
		return err
	}
	if expArtist == nil {
		return apperr.NewNotFound("expected album")
	}

	expAlbum, err := s.expectedAlbums.GetByID(expectedAlbumID)
	if err != nil {
		return err
	}
	if expAlbum == nil || expAlbum.ExpectedArtistID != expArtist.ID {
		return apperr.NewNotFound("expected album")
	}
	return nil
}

// IgnoreExpectedAlbum and UnignoreExpectedAlbum back the ignore/unignore
// endpoints. Both fail not-found if the artist and expected album don't
// belong together rather than silently succeeding on a mismatched pair.
func (s *Service) IgnoreExpectedAlbum(artistID, expectedAlbumID int64) error {
	if err := s.verifyArtistOwnsExpectedAlbum(artistID, expectedAlbumID); err != nil {
		return err
	}
	return s.ignored.Ignore(artistID, expectedAlbumID)
}

func (s *Service) UnignoreExpectedAlbum(artistID, expectedAlbumID int64) error {
	if err := s.verifyArtistOwnsExpectedAlbum(artistID, expectedAlbumID); err != nil {
		return err
	}
	return s.ignored.Unignore(artistID, expectedAlbumID)
}

// UpdateArtistSettings backs the per-artist include-live/include-compilations
// toggle.
func (s *Service) UpdateArtistSettings(artistID int64, includeLive, includeCompilations bool) error {
	return s.artistSettings.Upsert(artistID, includeLive, includeCompilations)
}

// SetAlbumMatchOverride records a manual expected-album-to-owned-album link,
// taking priority over automatic matching in computeSummary. ownedAlbumID
// must name a real, non-deleted album or the override is rejected.
func (s *Service) SetAlbumMatchOverride(artistID, expectedAlbumID, ownedAlbumID int64) error {
	if err := s.verifyArtistOwnsExpectedAlbum(artistID, expectedAlbumID); err != nil {
		return err
	}
	album, err := s.albums.GetByID(ownedAlbumID)
	if err != nil {
		return err
	}
	if album == nil || album.Deleted || album.ArtistID != artistID {
		return apperr.NewNotFound("album")
	}
	return s.overrides.Set(expectedAlbumID, ownedAlbumID)
}

