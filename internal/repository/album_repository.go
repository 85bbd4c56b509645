package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/selfhosted/crate/internal/models"
)

// AlbumRepository mirrors the teacher's MusicRepository album methods
// (CreateAlbum/FindAlbumByTitle/ListAlbumsByArtist/CleanupDuplicateAlbums),
// rewritten for SQLite and for the synthetic virtual-path identity used
// instead of a real filesystem path.
type AlbumRepository struct {
	db *sql.DB
}

func NewAlbumRepository(db *sql.DB) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// UpsertByPath upserts an album by its virtual path, preserving the
// user-settable `owned` flag across scans.
func (r *AlbumRepository) UpsertByPath(artistID int64, path, title string, formats []string, trackCount int, lastFileMtime, now time.Time) (*models.Album, error) {
	formatsRaw := strings.Join(formats, ",")

	var existingID int64
	var owned bool
	err := r.db.QueryRow(`SELECT id, owned FROM albums WHERE path = ?`, path).Scan(&existingID, &owned)

	switch err {
	case sql.ErrNoRows:
		res, err := r.db.Exec(`INSERT INTO albums
			(artist_id, path, title, formats, track_count, last_file_mtime, owned, deleted, created_at, updated_at, last_seen)
			VALUES (?, ?, ?, ?, ?, ?, 1, 0, ?, ?, ?)`,
			artistID, path, title, formatsRaw, trackCount, lastFileMtime, now, now, now)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return &models.Album{
			ID: id, ArtistID: artistID, Path: path, Title: title,
			Formats: formats, FormatsRaw: formatsRaw, TrackCount: trackCount,
			LastFileMtime: lastFileMtime, Owned: true,
			CreatedAt: now, UpdatedAt: now, LastSeen: now,
		}, nil
	case nil:
		_, err := r.db.Exec(`UPDATE albums SET title = ?, formats = ?, track_count = ?,
			last_file_mtime = ?, deleted = 0, updated_at = ?, last_seen = ? WHERE id = ?`,
			title, formatsRaw, trackCount, lastFileMtime, now, now, existingID)
		if err != nil {
			return nil, err
		}
		return &models.Album{
			ID: existingID, ArtistID: artistID, Path: path, Title: title,
			Formats: formats, FormatsRaw: formatsRaw, TrackCount: trackCount,
			LastFileMtime: lastFileMtime, Owned: owned,
			UpdatedAt: now, LastSeen: now,
		}, nil
	default:
		return nil, err
	}
}

func scanAlbum(row interface {
	Scan(dest ...interface{}) error
}) (*models.Album, error) {
	var a models.Album
	var lastFileMtime sql.NullTime
	if err := row.Scan(&a.ID, &a.ArtistID, &a.Path, &a.Title, &a.FormatsRaw, &a.TrackCount,
		&lastFileMtime, &a.Owned, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.LastSeen); err != nil {
		return nil, err
	}
	if lastFileMtime.Valid {
		a.LastFileMtime = lastFileMtime.Time
	}
	if a.FormatsRaw != "" {
		a.Formats = strings.Split(a.FormatsRaw, ",")
	}
	return &a, nil
}

const albumCols = `id, artist_id, path, title, formats, track_count, last_file_mtime, owned, deleted, created_at, updated_at, last_seen`

func (r *AlbumRepository) GetByID(id int64) (*models.Album, error) {
	a, err := scanAlbum(r.db.QueryRow(`SELECT `+albumCols+` FROM albums WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *AlbumRepository) ListByArtist(artistID int64, includeDeleted bool) ([]*models.Album, error) {
	q := `SELECT ` + albumCols + ` FROM albums WHERE artist_id = ?`
	if !includeDeleted {
		q += ` AND deleted = 0`
	}
	q += ` ORDER BY title COLLATE NOCASE`
	rows, err := r.db.Query(q, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListOwnedByArtist returns active, owned albums — the set computeSummary
// matches expected releases against.
func (r *AlbumRepository) ListOwnedByArtist(artistID int64) ([]*models.Album, error) {
	rows, err := r.db.Query(`SELECT `+albumCols+` FROM albums WHERE artist_id = ? AND deleted = 0 AND owned = 1`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AlbumRepository) SetOwned(id int64, owned bool) error {
	_, err := r.db.Exec(`UPDATE albums SET owned = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, owned, id)
	return err
}

// SoftDeleteNotSeenSince marks every album not touched since scanStartedAt
// as deleted. When artistID is non-nil the sweep is scoped to that artist
// only (never invoked for artist-scoped runs, since only a full run
// performs the library-wide sweep; kept here for completeness of the
// repository contract).
func (r *AlbumRepository) SoftDeleteNotSeenSince(scanStartedAt time.Time, artistID *int64) (int, error) {
	var res sql.Result
	var err error
	if artistID != nil {
		res, err = r.db.Exec(`UPDATE albums SET deleted = 1 WHERE last_seen < ? AND deleted = 0 AND artist_id = ?`, scanStartedAt, *artistID)
	} else {
		res, err = r.db.Exec(`UPDATE albums SET deleted = 1 WHERE last_seen < ? AND deleted = 0`, scanStartedAt)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *AlbumRepository) CountActive() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT count(*) FROM albums WHERE deleted = 0`).Scan(&n)
	return n, err
}

// ListPaginated backs GET /api/library/albums: optional search, optional
// owned filter, 1-indexed page.
func (r *AlbumRepository) ListPaginated(search string, owned *bool, page, pageSize int) ([]*models.Album, int, error) {
	where := []string{"albums.deleted = 0"}
	args := []interface{}{}

	if search != "" {
		where = append(where, "albums.title LIKE ? COLLATE NOCASE")
		args = append(args, "%"+search+"%")
	}
	if owned != nil {
		where = append(where, "albums.owned = ?")
		args = append(args, *owned)
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM albums WHERE " + whereSQL
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT albums.id, albums.artist_id, albums.path, albums.title, albums.formats,
		albums.track_count, albums.last_file_mtime, albums.owned, albums.deleted,
		albums.created_at, albums.updated_at, albums.last_seen, artists.name
		FROM albums JOIN artists ON artists.id = albums.artist_id
		WHERE %s ORDER BY albums.title COLLATE NOCASE LIMIT ? OFFSET ?`, whereSQL)
	args = append(args, pageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*models.Album
	for rows.Next() {
		var a models.Album
		var lastFileMtime sql.NullTime
		if err := rows.Scan(&a.ID, &a.ArtistID, &a.Path, &a.Title, &a.FormatsRaw, &a.TrackCount,
			&lastFileMtime, &a.Owned, &a.Deleted, &a.CreatedAt, &a.UpdatedAt, &a.LastSeen, &a.ArtistName); err != nil {
			return nil, 0, err
		}
		if lastFileMtime.Valid {
			a.LastFileMtime = lastFileMtime.Time
		}
		if a.FormatsRaw != "" {
			a.Formats = strings.Split(a.FormatsRaw, ",")
		}
		out = append(out, &a)
	}
	return out, total, rows.Err()
}
