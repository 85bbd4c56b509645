package api

import (
	"net/http"

	"github.com/selfhosted/crate/internal/httputil"
)

// settingsPatch is the typed partial-patch shape for PUT /api/settings:
// only recognized fields are merged, unknown fields are rejected silently
// rather than stored verbatim.
type settingsPatch struct {
	DataDir  *string `json:"dataDir"`
	MusicDir *string `json:"musicDir"`
	ScanCron *string `json:"scanCronSchedule"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.settings.GetAll()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dataDir":          valueOr(all["data_dir"], s.config.DataDir),
		"musicDir":         valueOr(all["music_dir"], s.config.MusicDir),
		"scanCronSchedule": all["scan_cron_schedule"],
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := httputil.ReadJSON(r, &patch); err != nil {
		writeValidation(w, "invalid settings payload")
		return
	}

	if patch.DataDir != nil {
		if err := s.settings.Set("data_dir", *patch.DataDir); err != nil {
			writeError(w, err)
			return
		}
	}
	if patch.MusicDir != nil {
		if err := s.settings.Set("music_dir", *patch.MusicDir); err != nil {
			writeError(w, err)
			return
		}
	}
	if patch.ScanCron != nil {
		if err := s.settings.Set("scan_cron_schedule", *patch.ScanCron); err != nil {
			writeError(w, err)
			return
		}
	}

	s.config.MergeFromSettings(s.db)
	s.handleGetSettings(w, r)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
