package repository

import (
	"database/sql"
	"time"

	"github.com/selfhosted/crate/internal/models"
)

// ExpectedArtistRepository backs the per-artist MusicBrainz linkage,
// grounded on the teacher's Matcher upsert pattern generalized from
// confidence-score matching to a one-to-one external id link.
type ExpectedArtistRepository struct {
	db *sql.DB
}

func NewExpectedArtistRepository(db *sql.DB) *ExpectedArtistRepository {
	return &ExpectedArtistRepository{db: db}
}

func (r *ExpectedArtistRepository) GetByArtistID(artistID int64) (*models.ExpectedArtist, error) {
	var e models.ExpectedArtist
	err := r.db.QueryRow(`SELECT id, artist_id, mbid, name, updated_at FROM expected_artists WHERE artist_id = ?`, artistID).
		Scan(&e.ID, &e.ArtistID, &e.MBID, &e.Name, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Upsert records the resolved mbid/name pair.
func (r *ExpectedArtistRepository) Upsert(artistID int64, mbid, name string, now time.Time) (*models.ExpectedArtist, error) {
	_, err := r.db.Exec(`INSERT INTO expected_artists (artist_id, mbid, name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (artist_id) DO UPDATE SET mbid = excluded.mbid, name = excluded.name, updated_at = excluded.updated_at`,
		artistID, mbid, name, now)
	if err != nil {
		return nil, err
	}
	return r.GetByArtistID(artistID)
}
