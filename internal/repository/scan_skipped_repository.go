package repository

import (
	"database/sql"
	"time"

	"github.com/selfhosted/crate/internal/models"
)

// ScanSkippedRepository is the per-scan skip ledger: cleared at the start of
// each scan for prior timestamps, so GET /api/scan/skipped always reflects
// the current or most recent run.
type ScanSkippedRepository struct {
	db *sql.DB
}

func NewScanSkippedRepository(db *sql.DB) *ScanSkippedRepository {
	return &ScanSkippedRepository{db: db}
}

// ClearBefore deletes rows from prior scans, cleared at the start of each
// scan for prior timestamps.
func (r *ScanSkippedRepository) ClearBefore(scanStartedAt time.Time) error {
	_, err := r.db.Exec(`DELETE FROM scan_skipped WHERE scan_started_at < ?`, scanStartedAt)
	return err
}

func (r *ScanSkippedRepository) Insert(scanStartedAt time.Time, filePath, reason string) error {
	_, err := r.db.Exec(`INSERT INTO scan_skipped (scan_started_at, file_path, reason) VALUES (?, ?, ?)`,
		scanStartedAt, filePath, reason)
	return err
}

// ListForRun returns the skip rows for the given scan's startedAt (current
// or last run), capped at limit.
func (r *ScanSkippedRepository) ListForRun(scanStartedAt time.Time, limit int) ([]*models.ScanSkipped, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	rows, err := r.db.Query(`SELECT scan_started_at, file_path, reason FROM scan_skipped
		WHERE scan_started_at = ? ORDER BY file_path LIMIT ?`, scanStartedAt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ScanSkipped
	for rows.Next() {
		var s models.ScanSkipped
		if err := rows.Scan(&s.ScanStartedAt, &s.FilePath, &s.Reason); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
