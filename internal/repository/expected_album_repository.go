package repository

import (
	"database/sql"
	"strings"
	"time"

	"github.com/selfhosted/crate/internal/models"
)

// ExpectedAlbumRepository implements the upsert-then-prune sync for a
// synced artist's release groups, grounded on the teacher's transactional
// CleanupDuplicateAlbums pattern (same "upsert the current set, then delete
// what wasn't touched" shape, applied here to release-groups instead of
// filesystem albums).
type ExpectedAlbumRepository struct {
	db *sql.DB
}

func NewExpectedAlbumRepository(db *sql.DB) *ExpectedAlbumRepository {
	return &ExpectedAlbumRepository{db: db}
}

func scanExpectedAlbum(row interface{ Scan(dest ...interface{}) error }) (*models.ExpectedAlbum, error) {
	var e models.ExpectedAlbum
	if err := row.Scan(&e.ID, &e.ExpectedArtistID, &e.MBReleaseGroupID, &e.Title, &e.NormalizedTitle,
		&e.PrimaryType, &e.SecondaryTypesRaw, &e.Year, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if e.SecondaryTypesRaw != "" {
		e.SecondaryTypes = strings.Split(e.SecondaryTypesRaw, ",")
	}
	return &e, nil
}

const expectedAlbumCols = `id, expected_artist_id, mb_release_group_id, title, normalized_title, primary_type, secondary_types, year, updated_at`

func (r *ExpectedAlbumRepository) GetByID(id int64) (*models.ExpectedAlbum, error) {
	e, err := scanExpectedAlbum(r.db.QueryRow(`SELECT `+expectedAlbumCols+` FROM expected_albums WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *ExpectedAlbumRepository) ListByExpectedArtist(expectedArtistID int64) ([]*models.ExpectedAlbum, error) {
	rows, err := r.db.Query(`SELECT `+expectedAlbumCols+` FROM expected_albums WHERE expected_artist_id = ? ORDER BY title COLLATE NOCASE`, expectedArtistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ExpectedAlbum
	for rows.Next() {
		e, err := scanExpectedAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SyncReleaseGroups runs the full upsert-then-prune cycle inside a single
// transaction: every release group in releases is upserted (by
// mb_release_group_id when present, otherwise by (expectedArtistId, title)),
// then any row for expectedArtistID not touched by this sync is deleted.
func (r *ExpectedAlbumRepository) SyncReleaseGroups(expectedArtistID int64, releases []ReleaseGroupInput, now time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rel := range releases {
		secondaryRaw := strings.Join(rel.SecondaryTypes, ",")
		if rel.MBReleaseGroupID != "" {
			if _, err := tx.Exec(`INSERT INTO expected_albums
				(expected_artist_id, mb_release_group_id, title, normalized_title, primary_type, secondary_types, year, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (expected_artist_id, mb_release_group_id) WHERE mb_release_group_id != '' DO UPDATE SET
					title = excluded.title, normalized_title = excluded.normalized_title,
					primary_type = excluded.primary_type, secondary_types = excluded.secondary_types,
					year = excluded.year, updated_at = excluded.updated_at`,
				expectedArtistID, rel.MBReleaseGroupID, rel.Title, rel.NormalizedTitle, rel.PrimaryType, secondaryRaw, rel.Year, now); err != nil {
				return err
			}
			continue
		}

		var existingID int64
		err := tx.QueryRow(`SELECT id FROM expected_albums WHERE expected_artist_id = ? AND title = ? AND mb_release_group_id = ''`,
			expectedArtistID, rel.Title).Scan(&existingID)
		switch err {
		case sql.ErrNoRows:
			if _, err := tx.Exec(`INSERT INTO expected_albums
				(expected_artist_id, mb_release_group_id, title, normalized_title, primary_type, secondary_types, year, updated_at)
				VALUES (?, '', ?, ?, ?, ?, ?, ?)`,
				expectedArtistID, rel.Title, rel.NormalizedTitle, rel.PrimaryType, secondaryRaw, rel.Year, now); err != nil {
				return err
			}
		case nil:
			if _, err := tx.Exec(`UPDATE expected_albums SET normalized_title = ?, primary_type = ?,
				secondary_types = ?, year = ?, updated_at = ? WHERE id = ?`,
				rel.NormalizedTitle, rel.PrimaryType, secondaryRaw, rel.Year, now, existingID); err != nil {
				return err
			}
		default:
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM expected_albums WHERE expected_artist_id = ? AND updated_at < ?`, expectedArtistID, now); err != nil {
		return err
	}

	return tx.Commit()
}

// ReleaseGroupInput is the shape SyncReleaseGroups consumes — a trimmed
// view of the Metadata Client's fetchArtistAlbums result.
type ReleaseGroupInput struct {
	MBReleaseGroupID string
	Title            string
	NormalizedTitle  string
	PrimaryType      string
	SecondaryTypes   []string
	Year             *int
}
