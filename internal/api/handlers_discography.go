package api

import (
	"net/http"

	"github.com/selfhosted/crate/internal/apperr"
	"github.com/selfhosted/crate/internal/httputil"
)

// handleExpectedSync runs the discography sync synchronously so upstream
// MusicBrainz failures surface as a 502 with a truncated body via
// apperr.UpstreamHTTP/UpstreamTimeout → httputil.WriteAppError. Scheduled/bulk
// syncs instead go through jobs.TaskDiscographySync.
func (s *Server) handleExpectedSync(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	if _, err := s.artists.GetByID(id); err != nil {
		writeError(w, apperr.NewNotFound("artist"))
		return
	}
	if err := s.discography.SyncExpectedForArtist(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	summary, err := s.discography.ComputeSummary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExpectedSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	summary, err := s.discography.ComputeSummary(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExpectedIgnore(w http.ResponseWriter, r *http.Request) {
	s.setExpectedIgnored(w, r, true)
}

func (s *Server) handleExpectedUnignore(w http.ResponseWriter, r *http.Request) {
	s.setExpectedIgnored(w, r, false)
}

func (s *Server) setExpectedIgnored(w http.ResponseWriter, r *http.Request, ignore bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	var body struct {
		ExpectedAlbumID int64 `json:"expectedAlbumId"`
	}
	if err := httputil.ReadJSON(r, &body); err != nil || body.ExpectedAlbumID == 0 {
		writeValidation(w, "expectedAlbumId is required")
		return
	}

	var err error
	if ignore {
		err = s.discography.IgnoreExpectedAlbum(id, body.ExpectedAlbumID)
	} else {
		err = s.discography.UnignoreExpectedAlbum(id, body.ExpectedAlbumID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handlePostAlbumMatchOverride records a manual expected-album-to-owned-album
// link, taking priority over automatic matching on the next summary
// computation.
func (s *Server) handlePostAlbumMatchOverride(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	var body struct {
		ExpectedAlbumID int64 `json:"expectedAlbumId"`
		OwnedAlbumID    int64 `json:"ownedAlbumId"`
	}
	if err := httputil.ReadJSON(r, &body); err != nil || body.ExpectedAlbumID == 0 || body.OwnedAlbumID == 0 {
		writeValidation(w, "expectedAlbumId and ownedAlbumId are required")
		return
	}
	if err := s.discography.SetAlbumMatchOverride(id, body.ExpectedAlbumID, body.OwnedAlbumID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleGetExpectedSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	settings, err := s.expSettings.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePostExpectedSettings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	var body struct {
		IncludeLive         bool `json:"includeLive"`
		IncludeCompilations bool `json:"includeCompilations"`
	}
	// Missing fields coerce to false — a zero-value struct already gives
	// that, so a decode error is the only thing to reject.
	if err := httputil.ReadJSON(r, &body); err != nil {
		writeValidation(w, "invalid settings payload")
		return
	}
	if err := s.discography.UpdateArtistSettings(id, body.IncludeLive, body.IncludeCompilations); err != nil {
		writeError(w, err)
		return
	}
	settings, err := s.expSettings.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
