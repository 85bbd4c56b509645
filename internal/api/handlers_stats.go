package api

import (
	"net/http"

	"github.com/selfhosted/crate/internal/models"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"artists":    st.Artists,
		"albums":     st.Albums,
		"tracks":     st.Tracks,
		"lastScanAt": st.LastScanAt,
	})
}

// handleDashboard aggregates stats, recently added albums, total missing
// albums across synced artists, and the wishlist count for GET
// /api/dashboard. Per-artist summaries are computed the same way
// handleExpectedSummary does; a failure for one artist only drops that
// artist's contribution rather than failing the whole dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.stats.Get()
	if err != nil {
		writeError(w, err)
		return
	}

	recentIDs, err := s.stats.RecentAlbumIDs(10)
	if err != nil {
		writeError(w, err)
		return
	}
	recent := make([]*models.Album, 0, len(recentIDs))
	for _, id := range recentIDs {
		if a, err := s.albums.GetByID(id); err == nil {
			recent = append(recent, a)
		}
	}

	artistIDs, err := s.stats.ArtistIDsWithExpected()
	if err != nil {
		writeError(w, err)
		return
	}
	missingTotal := 0
	for _, artistID := range artistIDs {
		summary, err := s.discography.ComputeSummary(artistID)
		if err != nil {
			continue
		}
		missingTotal += summary.MissingCount
	}

	wishlistCount, err := s.wishlist.Count()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats": map[string]interface{}{
			"artists":    st.Artists,
			"albums":     st.Albums,
			"tracks":     st.Tracks,
			"lastScanAt": st.LastScanAt,
		},
		"recent":        recent,
		"missingTotal":  missingTotal,
		"wishlistCount": wishlistCount,
	})
}
