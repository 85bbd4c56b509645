package repository

import (
	"database/sql"
	"time"

	"github.com/selfhosted/crate/internal/models"
)

// FileIndexRepository backs the per-path tag/identity cache, grounded on the
// teacher's cache-then-upsert pattern in scan_music.go.
type FileIndexRepository struct {
	db *sql.DB
}

func NewFileIndexRepository(db *sql.DB) *FileIndexRepository {
	return &FileIndexRepository{db: db}
}

func (r *FileIndexRepository) Get(path string) (*models.FileIndex, error) {
	var fi models.FileIndex
	err := r.db.QueryRow(`SELECT path, mtime, size, inode_key, file_hash,
		tag_album, tag_album_artist, tag_artist, tag_title, tag_year, last_scan_at
		FROM file_index WHERE path = ?`, path).
		Scan(&fi.Path, &fi.Mtime, &fi.Size, &fi.InodeKey, &fi.FileHash,
			&fi.TagAlbum, &fi.TagAlbumArtist, &fi.TagArtist, &fi.TagTitle, &fi.TagYear, &fi.LastScanAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fi, nil
}

func (r *FileIndexRepository) Upsert(fi *models.FileIndex) error {
	_, err := r.db.Exec(`INSERT INTO file_index
		(path, mtime, size, inode_key, file_hash, tag_album, tag_album_artist, tag_artist, tag_title, tag_year, last_scan_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			mtime = excluded.mtime, size = excluded.size, inode_key = excluded.inode_key,
			file_hash = excluded.file_hash, tag_album = excluded.tag_album,
			tag_album_artist = excluded.tag_album_artist, tag_artist = excluded.tag_artist,
			tag_title = excluded.tag_title, tag_year = excluded.tag_year, last_scan_at = excluded.last_scan_at`,
		fi.Path, fi.Mtime, fi.Size, fi.InodeKey, fi.FileHash,
		fi.TagAlbum, fi.TagAlbumArtist, fi.TagArtist, fi.TagTitle, fi.TagYear, fi.LastScanAt)
	return err
}

// TouchLastScan bumps lastScanAt for a path whose cached row is reused
// unchanged this scan.
func (r *FileIndexRepository) TouchLastScan(path string, when time.Time) error {
	_, err := r.db.Exec(`UPDATE file_index SET last_scan_at = ? WHERE path = ?`, when, path)
	return err
}

// DeleteStale prunes rows whose lastScanAt predates the current scan.
func (r *FileIndexRepository) DeleteStale(before time.Time) (int, error) {
	res, err := r.db.Exec(`DELETE FROM file_index WHERE last_scan_at < ?`, before)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
