package api

import (
	"net/http"

	"github.com/selfhosted/crate/internal/apperr"
	"github.com/selfhosted/crate/internal/httputil"
	"github.com/selfhosted/crate/internal/models"
)

// wishlistRequest accepts the two shapes POST /api/wishlist supports: a
// reference to an already-known expected album, or a free-form manual entry
// keyed by artist + title.
type wishlistRequest struct {
	ExpectedAlbumID *int64 `json:"expectedAlbumId"`
	ArtistID        *int64 `json:"artistId"`
	Title           string `json:"title"`
	Year            *int   `json:"year"`
	Source          string `json:"source"`
}

func (s *Server) handlePostWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		writeValidation(w, "invalid wishlist request body")
		return
	}

	entry := &models.WishlistAlbum{Source: req.Source}

	switch {
	case req.ExpectedAlbumID != nil:
		exists, err := s.wishlist.ExistsForExpectedAlbum(*req.ExpectedAlbumID)
		if err != nil {
			writeError(w, err)
			return
		}
		if exists {
			writeJSON(w, http.StatusOK, map[string]bool{"alreadyWanted": true})
			return
		}
		expected, err := s.expAlbums.GetByID(*req.ExpectedAlbumID)
		if err != nil || expected == nil {
			writeError(w, apperr.NewNotFound("expected album"))
			return
		}
		entry.ExpectedAlbumID = req.ExpectedAlbumID
		entry.Title = expected.Title
		entry.Year = expected.Year
		if entry.Source == "" {
			entry.Source = "musicbrainz"
		}

	case req.ArtistID != nil && req.Title != "":
		entry.ArtistID = req.ArtistID
		entry.Title = req.Title
		entry.Year = req.Year

	default:
		writeValidation(w, "either expectedAlbumId or artistId+title is required")
		return
	}

	created, err := s.wishlist.Create(entry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}
