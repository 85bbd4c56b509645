package repository

import "database/sql"

// AlbumMatchOverrideRepository backs the user-curated 1:1 override map,
// consulted first in computeSummary's matching priority.
type AlbumMatchOverrideRepository struct {
	db *sql.DB
}

func NewAlbumMatchOverrideRepository(db *sql.DB) *AlbumMatchOverrideRepository {
	return &AlbumMatchOverrideRepository{db: db}
}

// ByExpectedAlbum returns expectedAlbumId -> ownedAlbumId for the given
// expected album ids, in one query.
func (r *AlbumMatchOverrideRepository) ByExpectedAlbum(expectedAlbumIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64)
	if len(expectedAlbumIDs) == 0 {
		return out, nil
	}

	placeholders := make([]byte, 0, len(expectedAlbumIDs)*2)
	args := make([]interface{}, len(expectedAlbumIDs))
	for i, id := range expectedAlbumIDs {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	rows, err := r.db.Query(`SELECT expected_album_id, owned_album_id FROM album_match_overrides
		WHERE expected_album_id IN (`+string(placeholders)+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var expectedID, ownedID int64
		if err := rows.Scan(&expectedID, &ownedID); err != nil {
			return nil, err
		}
		out[expectedID] = ownedID
	}
	return out, rows.Err()
}

func (r *AlbumMatchOverrideRepository) Set(expectedAlbumID, ownedAlbumID int64) error {
	_, err := r.db.Exec(`INSERT INTO album_match_overrides (expected_album_id, owned_album_id) VALUES (?, ?)
		ON CONFLICT (expected_album_id) DO UPDATE SET owned_album_id = excluded.owned_album_id`,
		expectedAlbumID, ownedAlbumID)
	return err
}
