package repository

import (
	"database/sql"
	"time"
)

// StatsRepository backs GET /api/stats and the dashboard aggregate,
// grounded on the teacher's analytics-style count queries.
type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type Stats struct {
	Artists    int
	Albums     int
	Tracks     int
	LastScanAt *time.Time
}

func (r *StatsRepository) Get() (*Stats, error) {
	var s Stats
	if err := r.db.QueryRow(`SELECT count(*) FROM artists WHERE deleted = 0`).Scan(&s.Artists); err != nil {
		return nil, err
	}
	if err := r.db.QueryRow(`SELECT count(*) FROM albums WHERE deleted = 0`).Scan(&s.Albums); err != nil {
		return nil, err
	}
	if err := r.db.QueryRow(`SELECT count(*) FROM tracks WHERE deleted = 0`).Scan(&s.Tracks); err != nil {
		return nil, err
	}

	var finished sql.NullTime
	err := r.db.QueryRow(`SELECT finished_at FROM scan_state WHERE id = 1`).Scan(&finished)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if finished.Valid {
		s.LastScanAt = &finished.Time
	}
	return &s, nil
}

// RecentAlbumIDs backs the dashboard's "recent" section, grounded on
// the teacher's ListRecentlyAddedTracks ordering.
func (r *StatsRepository) RecentAlbumIDs(limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id FROM albums WHERE deleted = 0 ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ArtistIDsWithExpected lists the artists that have an expected sync; the
// dashboard sums their missingCount into its missingTotal field.
func (r *StatsRepository) ArtistIDsWithExpected() ([]int64, error) {
	rows, err := r.db.Query(`SELECT artist_id FROM expected_artists`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
