package config

import (
	"database/sql"
	"log"
	"os"
	"strconv"
)

// Config holds environment-sourced settings, overlaid with the persisted
// settings row once the store is open (see MergeFromSettings).
type Config struct {
	Port       int
	AppVersion string
	GitSHA     string
	DataDir    string
	MusicDir   string
}

func Load() *Config {
	return &Config{
		Port:       envInt("PORT", 4000),
		AppVersion: env("APP_VERSION", "0.0.0"),
		GitSHA:     env("GIT_SHA", "unknown"),
		DataDir:    env("DATA_DIR", "/data"),
		MusicDir:   env("MUSIC_DIR", "/music"),
	}
}

// MergeFromSettings overlays the singleton settings row, mirroring the
// teacher's Config.MergeFromDB pass over a key/value settings table.
func (c *Config) MergeFromSettings(db *sql.DB) {
	rows, err := db.Query("SELECT key, value FROM settings")
	if err != nil {
		log.Printf("[config] skipping settings merge: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			continue
		}
		switch key {
		case "data_dir":
			c.DataDir = value
		case "music_dir":
			c.MusicDir = value
		}
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
