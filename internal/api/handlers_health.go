package api

import "net/http"

// handleHealth reports liveness and feature flags, grounded on the
// teacher's handleHealth but without the DB/ffmpeg probes that have no
// analogue here — SQLite is opened synchronously at startup or not at all.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"appVersion": s.config.AppVersion,
		"gitSha":     s.config.GitSHA,
		"features": map[string]bool{
			"scan":        true,
			"discography": true,
			"wishlist":    true,
		},
	})
}
