package repository

import (
	"database/sql"
	"time"

	"github.com/selfhosted/crate/internal/models"
)

// TrackRepository is grounded on the teacher's ListTracksByAlbum/queryTracks
// shape, narrowed to the fields a Track needs.
type TrackRepository struct {
	db *sql.DB
}

func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// UpsertByPath upserts a track row under albumID, bumping lastSeen.
func (r *TrackRepository) UpsertByPath(albumID int64, path, ext string, mtime, now time.Time) error {
	var existingID int64
	err := r.db.QueryRow(`SELECT id FROM tracks WHERE path = ?`, path).Scan(&existingID)
	switch err {
	case sql.ErrNoRows:
		_, err = r.db.Exec(`INSERT INTO tracks (album_id, path, ext, mtime, deleted, created_at, last_seen)
			VALUES (?, ?, ?, ?, 0, ?, ?)`, albumID, path, ext, mtime, now, now)
		return err
	case nil:
		_, err = r.db.Exec(`UPDATE tracks SET album_id = ?, ext = ?, mtime = ?, deleted = 0, last_seen = ? WHERE id = ?`,
			albumID, ext, mtime, now, existingID)
		return err
	default:
		return err
	}
}

func (r *TrackRepository) ListByAlbum(albumID int64) ([]*models.Track, error) {
	rows, err := r.db.Query(`SELECT id, album_id, path, ext, mtime, deleted, created_at, last_seen
		FROM tracks WHERE album_id = ? AND deleted = 0 ORDER BY path`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Track
	for rows.Next() {
		var t models.Track
		if err := rows.Scan(&t.ID, &t.AlbumID, &t.Path, &t.Ext, &t.Mtime, &t.Deleted, &t.CreatedAt, &t.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

// SoftDeleteNotSeenSince implements the track half of the sweep.
func (r *TrackRepository) SoftDeleteNotSeenSince(scanStartedAt time.Time) (int, error) {
	res, err := r.db.Exec(`UPDATE tracks SET deleted = 1 WHERE last_seen < ? AND deleted = 0`, scanStartedAt)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *TrackRepository) CountActive() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM tracks WHERE deleted = 0`).Scan(&n)
	return n, err
}
