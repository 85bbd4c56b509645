package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/selfhosted/crate/internal/models"
	"github.com/selfhosted/crate/internal/normalizer"
)

// ArtistRepository mirrors the teacher's MusicRepository artist methods
// (FindArtistByName/CreateArtist/DeleteArtist), rewritten for SQLite and
// extended with the soft-delete sweep the scan lifecycle requires.
type ArtistRepository struct {
	db *sql.DB
}

func NewArtistRepository(db *sql.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// UpsertByName finds an artist by case-insensitive name or creates one,
// refreshing its slug and bumping lastSeen — the per-scan artist upsert.
func (r *ArtistRepository) UpsertByName(name string, now time.Time) (*models.Artist, error) {
	var a models.Artist
	err := r.db.QueryRow(`SELECT id, name, slug, deleted, created_at, updated_at, last_seen
		FROM artists WHERE name = ? COLLATE NOCASE`, name).
		Scan(&a.ID, &a.Name, &a.Slug, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.LastSeen)

	if err == nil {
		_, err = r.db.Exec(`UPDATE artists SET last_seen = ?, deleted = 0, updated_at = ? WHERE id = ?`, now, now, a.ID)
		if err != nil {
			return nil, err
		}
		a.LastSeen = now
		a.Deleted = false
		return &a, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	slug := uniqueSlug(r.db, normalizer.Slugify(name))
	res, err := r.db.Exec(`INSERT INTO artists (name, slug, deleted, created_at, updated_at, last_seen)
		VALUES (?, ?, 0, ?, ?, ?)`, name, slug, now, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Artist{
		ID: id, Name: name, Slug: slug,
		CreatedAt: now, UpdatedAt: now, LastSeen: now,
	}, nil
}

func uniqueSlug(db *sql.DB, base string) string {
	if base == "" {
		base = "artist"
	}
	slug := base
	for i := 2; ; i++ {
		var exists bool
		db.QueryRow(`SELECT EXISTS(SELECT 1 FROM artists WHERE slug = ?)`, slug).Scan(&exists)
		if !exists {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func (r *ArtistRepository) GetByID(id int64) (*models.Artist, error) {
	var a models.Artist
	err := r.db.QueryRow(`SELECT id, name, slug, deleted, created_at, updated_at, last_seen
		FROM artists WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &a.Slug, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ArtistRepository) GetBySlug(slug string) (*models.Artist, error) {
	var a models.Artist
	err := r.db.QueryRow(`SELECT id, name, slug, deleted, created_at, updated_at, last_seen
		FROM artists WHERE slug = ?`, slug).
		Scan(&a.ID, &a.Name, &a.Slug, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ArtistRepository) List() ([]*models.Artist, error) {
	rows, err := r.db.Query(`SELECT id, name, slug, deleted, created_at, updated_at, last_seen
		FROM artists WHERE deleted = 0 ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Artist
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.Slug, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.LastSeen); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SoftDeleteNotSeenSince implements the full-library sweep: any artist not
// touched during this scan is soft-deleted.
func (r *ArtistRepository) SoftDeleteNotSeenSince(scanStartedAt time.Time) (int, error) {
	res, err := r.db.Exec(`UPDATE artists SET deleted = 1 WHERE last_seen < ? AND deleted = 0`, scanStartedAt)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *ArtistRepository) CountActive() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM artists WHERE deleted = 0`).Scan(&n)
	return n, err
}
