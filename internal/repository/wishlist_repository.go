package repository

import (
	"database/sql"

	"github.com/selfhosted/crate/internal/models"
)

// WishlistRepository backs POST /api/wishlist, idempotent per
// expectedAlbumId.
type WishlistRepository struct {
	db *sql.DB
}

func NewWishlistRepository(db *sql.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

func (r *WishlistRepository) ExistsForExpectedAlbum(expectedAlbumID int64) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM wishlist_albums WHERE expected_album_id = ?`, expectedAlbumID).Scan(&n)
	return n > 0, err
}

func (r *WishlistRepository) Create(w *models.WishlistAlbum) (*models.WishlistAlbum, error) {
	res, err := r.db.Exec(`INSERT INTO wishlist_albums
		(expected_album_id, artist_id, title, year, source, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		w.ExpectedAlbumID, w.ArtistID, w.Title, w.Year, w.Source, models.WishlistWanted)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	w.ID = id
	w.Status = models.WishlistWanted
	return w, nil
}

func (r *WishlistRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM wishlist_albums WHERE status = 'wanted'`).Scan(&n)
	return n, err
}

func (r *WishlistRepository) List() ([]*models.WishlistAlbum, error) {
	rows, err := r.db.Query(`SELECT id, expected_album_id, artist_id, title, year, source, status, created_at
		FROM wishlist_albums ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.WishlistAlbum
	for rows.Next() {
		var w models.WishlistAlbum
		if err := rows.Scan(&w.ID, &w.ExpectedAlbumID, &w.ArtistID, &w.Title, &w.Year, &w.Source, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &w)
	}
	return out, rows.Err()
}
