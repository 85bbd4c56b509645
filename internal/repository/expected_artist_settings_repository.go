package repository

import (
	"database/sql"

	"github.com/selfhosted/crate/internal/models"
)

// ExpectedArtistSettingsRepository backs updateArtistSettings; booleans
// default to false when no row exists.
type ExpectedArtistSettingsRepository struct {
	db *sql.DB
}

func NewExpectedArtistSettingsRepository(db *sql.DB) *ExpectedArtistSettingsRepository {
	return &ExpectedArtistSettingsRepository{db: db}
}

func (r *ExpectedArtistSettingsRepository) Get(artistID int64) (*models.ExpectedArtistSettings, error) {
	var s models.ExpectedArtistSettings
	err := r.db.QueryRow(`SELECT artist_id, include_live, include_compilations
		FROM expected_artist_settings WHERE artist_id = ?`, artistID).
		Scan(&s.ArtistID, &s.IncludeLive, &s.IncludeCompilations)
	if err == sql.ErrNoRows {
		return &models.ExpectedArtistSettings{ArtistID: artistID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert coerces missing booleans to false.
func (r *ExpectedArtistSettingsRepository) Upsert(artistID int64, includeLive, includeCompilations bool) error {
	_, err := r.db.Exec(`INSERT INTO expected_artist_settings (artist_id, include_live, include_compilations)
		VALUES (?, ?, ?)
		ON CONFLICT (artist_id) DO UPDATE SET include_live = excluded.include_live, include_compilations = excluded.include_compilations`,
		artistID, includeLive, includeCompilations)
	return err
}
