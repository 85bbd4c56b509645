package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/selfhosted/crate/internal/models"
)

// ScanStateRepository persists the singleton scan progress row (id=1),
// grounded on the teacher's task_scan.go progress-update calls but against a
// row instead of a websocket-only broadcast.
type ScanStateRepository struct {
	db *sql.DB
}

func NewScanStateRepository(db *sql.DB) *ScanStateRepository {
	return &ScanStateRepository{db: db}
}

func (r *ScanStateRepository) Get() (*models.ScanState, error) {
	var s models.ScanState
	var started, finished sql.NullTime
	err := r.db.QueryRow(`SELECT id, status, started_at, finished_at, current_path,
		scanned_files, skipped_files, artists_seen, albums_seen, error_message, skipped_reasons_json
		FROM scan_state WHERE id = 1`).
		Scan(&s.ID, &s.Status, &started, &finished, &s.CurrentPath,
			&s.ScannedFiles, &s.SkippedFiles, &s.ArtistsSeen, &s.AlbumsSeen, &s.ErrorMessage, &s.SkippedReasonsRaw)
	if err != nil {
		return nil, err
	}
	if started.Valid {
		s.StartedAt = &started.Time
	}
	if finished.Valid {
		s.FinishedAt = &finished.Time
	}
	return &s, nil
}

// Start resets counters and marks the scan running.
func (r *ScanStateRepository) Start(startedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE scan_state SET status = 'running', started_at = ?, finished_at = NULL,
		current_path = '', scanned_files = 0, skipped_files = 0, artists_seen = 0, albums_seen = 0,
		error_message = '', skipped_reasons_json = '{}' WHERE id = 1`, startedAt)
	return err
}

// UpdateProgress is called by the Scanner after each artist directory.
func (r *ScanStateRepository) UpdateProgress(currentPath string, scannedFiles, skippedFiles, artistsSeen, albumsSeen int) error {
	_, err := r.db.Exec(`UPDATE scan_state SET current_path = ?, scanned_files = ?, skipped_files = ?,
		artists_seen = ?, albums_seen = ? WHERE id = 1`, currentPath, scannedFiles, skippedFiles, artistsSeen, albumsSeen)
	return err
}

// Finish persists the terminal state and skip-reason histogram.
func (r *ScanStateRepository) Finish(status models.ScanStatusValue, errorMessage string, histogram map[string]int, finishedAt time.Time) error {
	raw, err := json.Marshal(histogram)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`UPDATE scan_state SET status = ?, error_message = ?, skipped_reasons_json = ?, finished_at = ? WHERE id = 1`,
		status, errorMessage, string(raw), finishedAt)
	return err
}

// SetError records a setup-time failure.
func (r *ScanStateRepository) SetError(message string, finishedAt time.Time) error {
	_, err := r.db.Exec(`UPDATE scan_state SET status = 'error', error_message = ?, finished_at = ? WHERE id = 1`, message, finishedAt)
	return err
}
