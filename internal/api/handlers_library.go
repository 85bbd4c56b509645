package api

import (
	"net/http"
	"strconv"

	"github.com/selfhosted/crate/internal/apperr"
	"github.com/selfhosted/crate/internal/httputil"
)

func (s *Server) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("search")
	page := queryInt(q, "page", 1)
	pageSize := queryInt(q, "pageSize", 50)

	var owned *bool
	if v := q.Get("owned"); v != "" {
		b := v == "1"
		owned = &b
	}

	albums, total, err := s.albums.ListPaginated(search, owned, page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":    albums,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

func (s *Server) handleSetAlbumOwned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid album id")
		return
	}
	var body struct {
		Owned bool `json:"owned"`
	}
	if err := httputil.ReadJSON(r, &body); err != nil {
		writeValidation(w, "invalid request body")
		return
	}
	if err := s.albums.SetOwned(id, body.Owned); err != nil {
		writeError(w, err)
		return
	}
	album, err := s.albums.GetByID(id)
	if err != nil || album == nil {
		writeError(w, apperr.NewNotFound("album"))
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := s.artists.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

func (s *Server) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	artist, err := s.artists.GetByID(id)
	if err != nil || artist == nil {
		writeError(w, apperr.NewNotFound("artist"))
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (s *Server) handleGetArtistBySlug(w http.ResponseWriter, r *http.Request) {
	artist, err := s.artists.GetBySlug(r.PathValue("slug"))
	if err != nil || artist == nil {
		writeError(w, apperr.NewNotFound("artist"))
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

// handleArtistOverview serves owned/wanted/missing albums for one artist.
// Per the Open Question decision recorded in SPEC_FULL.md, this reads from the
// canonical expected_*/albums tables rather than a legacy wanted_albums +
// album_aliases pair — the teacher's two-table design has no equivalent here
// since discography sync already produces expected_albums directly.
func (s *Server) handleArtistOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeValidation(w, "invalid artist id")
		return
	}
	artist, err := s.artists.GetByID(id)
	if err != nil || artist == nil {
		writeError(w, apperr.NewNotFound("artist"))
		return
	}

	owned, err := s.albums.ListOwnedByArtist(id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]interface{}{
		"artist": artist,
		"owned":  owned,
		"wanted": []interface{}{},
		"missing": []interface{}{},
	}

	if expArtist, err := s.expArtists.GetByArtistID(id); err == nil && expArtist != nil {
		wanted, err := s.expAlbums.ListByExpectedArtist(expArtist.ID)
		if err == nil {
			resp["wanted"] = wanted
		}
		if summary, err := s.discography.ComputeSummary(id); err == nil {
			resp["missing"] = summary.MissingAlbums
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func queryInt(q map[string][]string, key string, fallback int) int {
	vals, ok := q[key]
	if !ok || len(vals) == 0 || vals[0] == "" {
		return fallback
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return fallback
	}
	return n
}
