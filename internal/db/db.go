// Package db wires the embedded SQLite store: a fixed-path file with WAL
// journaling, opened once at service start.
package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// Connect opens the embedded store at path, enabling WAL journaling and a
// busy timeout so the scanner's short-lived writer transactions don't starve
// concurrent readers.
func Connect(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	// modernc.org/sqlite serializes writers internally; a single connection
	// avoids SQLITE_BUSY from the driver's own connection pool.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	log.Printf("[db] connected to %s (WAL)", path)
	return conn, nil
}
