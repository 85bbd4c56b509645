package repository

import "database/sql"

// ExpectedIgnoredRepository backs the user's ignore/unignore actions,
// idempotent by design.
type ExpectedIgnoredRepository struct {
	db *sql.DB
}

func NewExpectedIgnoredRepository(db *sql.DB) *ExpectedIgnoredRepository {
	return &ExpectedIgnoredRepository{db: db}
}

func (r *ExpectedIgnoredRepository) Ignore(artistID, expectedAlbumID int64) error {
	_, err := r.db.Exec(`INSERT INTO expected_ignored_albums (artist_id, expected_album_id) VALUES (?, ?)
		ON CONFLICT (artist_id, expected_album_id) DO NOTHING`, artistID, expectedAlbumID)
	return err
}

func (r *ExpectedIgnoredRepository) Unignore(artistID, expectedAlbumID int64) error {
	_, err := r.db.Exec(`DELETE FROM expected_ignored_albums WHERE artist_id = ? AND expected_album_id = ?`, artistID, expectedAlbumID)
	return err
}

// IgnoredSet returns the ignored expected-album ids for an artist, for
// computeSummary's inclusion filter.
func (r *ExpectedIgnoredRepository) IgnoredSet(artistID int64) (map[int64]bool, error) {
	rows, err := r.db.Query(`SELECT expected_album_id FROM expected_ignored_albums WHERE artist_id = ?`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		set[id] = true
	}
	return set, rows.Err()
}

func (r *ExpectedIgnoredRepository) Count(artistID int64) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM expected_ignored_albums WHERE artist_id = ?`, artistID).Scan(&n)
	return n, err
}
