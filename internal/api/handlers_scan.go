package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/selfhosted/crate/internal/apperr"
	"github.com/selfhosted/crate/internal/httputil"
	"github.com/selfhosted/crate/internal/jobs"
)

// scanStartRequest is the POST /api/scan/start body. recursive defaults to
// true and maxDepth defaults to 3 when omitted, matching a shallow,
// conservative scan unless the caller asks for more.
type scanStartRequest struct {
	Recursive *bool  `json:"recursive"`
	MaxDepth  *int   `json:"maxDepth"`
	ArtistID  *int64 `json:"artistId"`
}

const defaultScanMaxDepth = 3

func (s *Server) handleScanStart(w http.ResponseWriter, r *http.Request) {
	var req scanStartRequest
	if r.ContentLength != 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			writeValidation(w, "invalid scan request body")
			return
		}
	}
	if req.MaxDepth != nil && (*req.MaxDepth < 1 || *req.MaxDepth > 20) {
		writeValidation(w, "maxDepth must be between 1 and 20")
		return
	}

	recursive := true
	if req.Recursive != nil {
		recursive = *req.Recursive
	}
	maxDepth := defaultScanMaxDepth
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}

	payload := jobs.ScanPayload{Recursive: recursive, MaxDepth: maxDepth}
	taskKey := "scan:full"
	if req.ArtistID != nil {
		artist, err := s.artists.GetByID(*req.ArtistID)
		if err != nil || artist == nil {
			writeError(w, apperr.NewNotFound("artist"))
			return
		}
		payload.ArtistDirName = artist.Name
		taskKey = "scan:artist:" + artist.Slug
	}

	if _, err := s.jobQueue.EnqueueUnique(jobs.TaskScanLibrary, payload, taskKey); err != nil {
		writeError(w, apperr.Wrap(apperr.Internal, "enqueue scan", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"started": true, "status": "running"})
}

func (s *Server) handleScanCancel(w http.ResponseWriter, r *http.Request) {
	s.scanner.Cancel()
	writeJSON(w, http.StatusOK, map[string]interface{}{"cancelled": true, "status": "cancelled"})
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.scanState.Get()
	if err != nil {
		writeError(w, err)
		return
	}

	var breakdown map[string]int
	if state.SkippedReasonsRaw != "" {
		_ = json.Unmarshal([]byte(state.SkippedReasonsRaw), &breakdown)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":                  state.Status,
		"startedAt":               state.StartedAt,
		"finishedAt":              state.FinishedAt,
		"currentPath":             state.CurrentPath,
		"scannedFiles":            state.ScannedFiles,
		"skippedFiles":            state.SkippedFiles,
		"artistsSeen":             state.ArtistsSeen,
		"albumsSeen":              state.AlbumsSeen,
		"errorMessage":            state.ErrorMessage,
		"skippedReasonsBreakdown": breakdown,
	})
}

func (s *Server) handleScanSkipped(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if parsed, err := strconv.Atoi(q); err == nil {
			limit = parsed
		}
	}
	if limit < 1 || limit > 1000 {
		writeValidation(w, "limit must be between 1 and 1000")
		return
	}

	state, err := s.scanState.Get()
	if err != nil {
		writeError(w, err)
		return
	}
	if state.StartedAt == nil {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}

	rows, err := s.scanSkipped.ListForRun(*state.StartedAt, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
