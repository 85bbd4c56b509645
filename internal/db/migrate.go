package db

import (
	"database/sql"
	"fmt"
	"log"
)

// column describes one column of a desired table shape, including the
// default SQLite uses when adding it to a table that already exists.
type column struct {
	name       string
	ddlType    string
	notNull    bool
	defaultSQL string // used verbatim in ALTER TABLE ... ADD COLUMN ... DEFAULT <defaultSQL>
}

type table struct {
	name       string
	createSQL  string // full CREATE TABLE statement, used only when the table is absent
	columns    []column
	createIdxs []string
}

// schema is the desired shape of the store. Migrate is forward-only and
// additive: missing tables are created whole, missing columns on existing
// tables are added with a default, nothing is ever dropped or altered
// destructively.
var schema = []table{
	{
		name: "artists",
		createSQL: `CREATE TABLE artists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_seen DATETIME NOT NULL
		)`,
		columns: []column{
			{"name", "TEXT", true, "''"},
			{"slug", "TEXT", true, "''"},
			{"deleted", "INTEGER", true, "0"},
			{"created_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"updated_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"last_seen", "DATETIME", true, "CURRENT_TIMESTAMP"},
		},
		createIdxs: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_artists_name ON artists(name COLLATE NOCASE)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_artists_slug ON artists(slug)`,
		},
	},
	{
		name: "albums",
		createSQL: `CREATE TABLE albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist_id INTEGER NOT NULL REFERENCES artists(id),
			path TEXT NOT NULL,
			title TEXT NOT NULL,
			formats TEXT NOT NULL DEFAULT '',
			track_count INTEGER NOT NULL DEFAULT 0,
			last_file_mtime DATETIME,
			owned INTEGER NOT NULL DEFAULT 1,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_seen DATETIME NOT NULL
		)`,
		columns: []column{
			{"artist_id", "INTEGER", true, "0"},
			{"path", "TEXT", true, "''"},
			{"title", "TEXT", true, "''"},
			{"formats", "TEXT", true, "''"},
			{"track_count", "INTEGER", true, "0"},
			{"last_file_mtime", "DATETIME", false, "NULL"},
			{"owned", "INTEGER", true, "1"},
			{"deleted", "INTEGER", true, "0"},
			{"created_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"updated_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"last_seen", "DATETIME", true, "CURRENT_TIMESTAMP"},
		},
		createIdxs: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_albums_path ON albums(path)`,
			`CREATE INDEX IF NOT EXISTS idx_albums_artist ON albums(artist_id)`,
		},
	},
	{
		name: "tracks",
		createSQL: `CREATE TABLE tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_id INTEGER NOT NULL REFERENCES albums(id),
			path TEXT NOT NULL,
			ext TEXT NOT NULL DEFAULT '',
			mtime DATETIME NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			last_seen DATETIME NOT NULL
		)`,
		columns: []column{
			{"album_id", "INTEGER", true, "0"},
			{"path", "TEXT", true, "''"},
			{"ext", "TEXT", true, "''"},
			{"mtime", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"deleted", "INTEGER", true, "0"},
			{"created_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"last_seen", "DATETIME", true, "CURRENT_TIMESTAMP"},
		},
		createIdxs: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_tracks_path ON tracks(path)`,
			`CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id)`,
		},
	},
	{
		name: "file_index",
		createSQL: `CREATE TABLE file_index (
			path TEXT PRIMARY KEY,
			mtime DATETIME NOT NULL,
			size INTEGER NOT NULL,
			inode_key TEXT NOT NULL DEFAULT '',
			file_hash TEXT NOT NULL DEFAULT '',
			tag_album TEXT NOT NULL DEFAULT '',
			tag_album_artist TEXT NOT NULL DEFAULT '',
			tag_artist TEXT NOT NULL DEFAULT '',
			tag_title TEXT NOT NULL DEFAULT '',
			tag_year TEXT NOT NULL DEFAULT '',
			last_scan_at DATETIME NOT NULL
		)`,
		columns: []column{
			{"mtime", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"size", "INTEGER", true, "0"},
			{"inode_key", "TEXT", true, "''"},
			{"file_hash", "TEXT", true, "''"},
			{"tag_album", "TEXT", true, "''"},
			{"tag_album_artist", "TEXT", true, "''"},
			{"tag_artist", "TEXT", true, "''"},
			{"tag_title", "TEXT", true, "''"},
			{"tag_year", "TEXT", true, "''"},
			{"last_scan_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
		},
	},
	{
		name: "scan_skipped",
		createSQL: `CREATE TABLE scan_skipped (
			scan_started_at DATETIME NOT NULL,
			file_path TEXT NOT NULL,
			reason TEXT NOT NULL
		)`,
		columns: []column{
			{"scan_started_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
			{"file_path", "TEXT", true, "''"},
			{"reason", "TEXT", true, "''"},
		},
		createIdxs: []string{
			`CREATE INDEX IF NOT EXISTS idx_scan_skipped_started ON scan_skipped(scan_started_at)`,
		},
	},
	{
		name: "scan_state",
		createSQL: `CREATE TABLE scan_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			status TEXT NOT NULL DEFAULT 'idle',
			started_at DATETIME,
			finished_at DATETIME,
			current_path TEXT NOT NULL DEFAULT '',
			scanned_files INTEGER NOT NULL DEFAULT 0,
			skipped_files INTEGER NOT NULL DEFAULT 0,
			artists_seen INTEGER NOT NULL DEFAULT 0,
			albums_seen INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			skipped_reasons_json TEXT NOT NULL DEFAULT '{}'
		)`,
		columns: []column{
			{"status", "TEXT", true, "'idle'"},
			{"started_at", "DATETIME", false, "NULL"},
			{"finished_at", "DATETIME", false, "NULL"},
			{"current_path", "TEXT", true, "''"},
			{"scanned_files", "INTEGER", true, "0"},
			{"skipped_files", "INTEGER", true, "0"},
			{"artists_seen", "INTEGER", true, "0"},
			{"albums_seen", "INTEGER", true, "0"},
			{"error_message", "TEXT", true, "''"},
			{"skipped_reasons_json", "TEXT", true, "'{}'"},
		},
	},
	{
		name: "expected_artists",
		createSQL: `CREATE TABLE expected_artists (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			artist_id INTEGER NOT NULL UNIQUE REFERENCES artists(id),
			mbid TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL
		)`,
		columns: []column{
			{"artist_id", "INTEGER", true, "0"},
			{"mbid", "TEXT", true, "''"},
			{"name", "TEXT", true, "''"},
			{"updated_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
		},
	},
	{
		name: "expected_albums",
		createSQL: `CREATE TABLE expected_albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			expected_artist_id INTEGER NOT NULL REFERENCES expected_artists(id),
			mb_release_group_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			normalized_title TEXT NOT NULL DEFAULT '',
			primary_type TEXT NOT NULL DEFAULT '',
			secondary_types TEXT NOT NULL DEFAULT '',
			year INTEGER,
			updated_at DATETIME NOT NULL
		)`,
		columns: []column{
			{"expected_artist_id", "INTEGER", true, "0"},
			{"mb_release_group_id", "TEXT", true, "''"},
			{"title", "TEXT", true, "''"},
			{"normalized_title", "TEXT", true, "''"},
			{"primary_type", "TEXT", true, "''"},
			{"secondary_types", "TEXT", true, "''"},
			{"year", "INTEGER", false, "NULL"},
			{"updated_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
		},
		createIdxs: []string{
			`CREATE INDEX IF NOT EXISTS idx_expected_albums_artist ON expected_albums(expected_artist_id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_expected_albums_rg ON expected_albums(expected_artist_id, mb_release_group_id) WHERE mb_release_group_id != ''`,
		},
	},
	{
		name: "expected_ignored_albums",
		createSQL: `CREATE TABLE expected_ignored_albums (
			artist_id INTEGER NOT NULL,
			expected_album_id INTEGER NOT NULL,
			PRIMARY KEY (artist_id, expected_album_id)
		)`,
		columns: []column{
			{"artist_id", "INTEGER", true, "0"},
			{"expected_album_id", "INTEGER", true, "0"},
		},
	},
	{
		name: "expected_artist_settings",
		createSQL: `CREATE TABLE expected_artist_settings (
			artist_id INTEGER PRIMARY KEY,
			include_live INTEGER NOT NULL DEFAULT 0,
			include_compilations INTEGER NOT NULL DEFAULT 0
		)`,
		columns: []column{
			{"include_live", "INTEGER", true, "0"},
			{"include_compilations", "INTEGER", true, "0"},
		},
	},
	{
		name: "album_match_overrides",
		createSQL: `CREATE TABLE album_match_overrides (
			expected_album_id INTEGER PRIMARY KEY,
			owned_album_id INTEGER NOT NULL UNIQUE
		)`,
		columns: []column{
			{"expected_album_id", "INTEGER", true, "0"},
			{"owned_album_id", "INTEGER", true, "0"},
		},
	},
	{
		name: "wishlist_albums",
		createSQL: `CREATE TABLE wishlist_albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			expected_album_id INTEGER,
			artist_id INTEGER,
			title TEXT NOT NULL DEFAULT '',
			year INTEGER,
			source TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'wanted',
			created_at DATETIME NOT NULL
		)`,
		columns: []column{
			{"expected_album_id", "INTEGER", false, "NULL"},
			{"artist_id", "INTEGER", false, "NULL"},
			{"title", "TEXT", true, "''"},
			{"year", "INTEGER", false, "NULL"},
			{"source", "TEXT", true, "''"},
			{"status", "TEXT", true, "'wanted'"},
			{"created_at", "DATETIME", true, "CURRENT_TIMESTAMP"},
		},
	},
	{
		name: "settings",
		createSQL: `CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL DEFAULT ''
		)`,
		columns: []column{
			{"key", "TEXT", true, "''"},
			{"value", "TEXT", true, "''"},
		},
	},
}

// Migrate applies the schema additively: CREATE TABLE for tables the store
// doesn't have yet (checked against sqlite_master), then PRAGMA table_info introspection to
// ALTER TABLE ADD COLUMN anything a table is missing. Nothing is ever
// dropped, renamed, or altered destructively.
func Migrate(conn *sql.DB) error {
	for _, t := range schema {
		if err := ensureTable(conn, t); err != nil {
			return fmt.Errorf("table %s: %w", t.name, err)
		}
	}
	if _, err := conn.Exec(`INSERT OR IGNORE INTO scan_state (id, status) VALUES (1, 'idle')`); err != nil {
		return fmt.Errorf("seed scan_state: %w", err)
	}
	return nil
}

func ensureTable(conn *sql.DB, t table) error {
	exists, err := tableExists(conn, t.name)
	if err != nil {
		return err
	}
	if !exists {
		log.Printf("[db] creating table %s", t.name)
		if _, err := conn.Exec(t.createSQL); err != nil {
			return fmt.Errorf("create: %w", err)
		}
		for _, idx := range t.createIdxs {
			if _, err := conn.Exec(idx); err != nil {
				return fmt.Errorf("index: %w", err)
			}
		}
		return nil
	}

	existing, err := existingColumns(conn, t.name)
	if err != nil {
		return err
	}
	for _, col := range t.columns {
		if existing[col.name] {
			continue
		}
		log.Printf("[db] adding column %s.%s", t.name, col.name)
		nullability := ""
		if col.notNull {
			nullability = " NOT NULL"
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s%s DEFAULT %s",
			t.name, col.name, col.ddlType, nullability, col.defaultSQL)
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}
	for _, idx := range t.createIdxs {
		if _, err := conn.Exec(idx); err != nil {
			return fmt.Errorf("index: %w", err)
		}
	}
	return nil
}

func tableExists(conn *sql.DB, name string) (bool, error) {
	var n int
	err := conn.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func existingColumns(conn *sql.DB, table string) (map[string]bool, error) {
	rows, err := conn.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &primaryKey); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
