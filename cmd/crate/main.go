package main

import (
	"context"
	"log"
	"os"

	"github.com/selfhosted/crate/internal/api"
	"github.com/selfhosted/crate/internal/config"
	"github.com/selfhosted/crate/internal/db"
	"github.com/selfhosted/crate/internal/discography"
	"github.com/selfhosted/crate/internal/jobs"
	"github.com/selfhosted/crate/internal/musicbrainz"
	"github.com/selfhosted/crate/internal/repository"
	"github.com/selfhosted/crate/internal/scanner"
	"github.com/selfhosted/crate/internal/scheduler"
	"github.com/selfhosted/crate/internal/watcher"
)

func main() {
	cfg := config.Load()

	conn, err := db.Connect(cfg.DataDir + "/crate.db")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	log.Println("database ready")

	cfg.MergeFromSettings(conn)

	artists := repository.NewArtistRepository(conn)
	albums := repository.NewAlbumRepository(conn)
	tracks := repository.NewTrackRepository(conn)
	fileIndex := repository.NewFileIndexRepository(conn)
	scanState := repository.NewScanStateRepository(conn)
	scanSkipped := repository.NewScanSkippedRepository(conn)
	settings := repository.NewSettingsRepository(conn)
	stats := repository.NewStatsRepository(conn)
	expArtists := repository.NewExpectedArtistRepository(conn)
	expAlbums := repository.NewExpectedAlbumRepository(conn)
	expSettings := repository.NewExpectedArtistSettingsRepository(conn)
	expIgnored := repository.NewExpectedIgnoredRepository(conn)
	overrides := repository.NewAlbumMatchOverrideRepository(conn)
	wishlist := repository.NewWishlistRepository(conn)

	sc := scanner.New(artists, albums, tracks, fileIndex, scanState, scanSkipped, cfg.MusicDir)

	mbClient := musicbrainz.New(cfg.AppVersion)
	disco := discography.New(artists, albums, expArtists, expAlbums, expIgnored, expSettings, overrides, mbClient)

	redisAddr := envOr("REDIS_ADDR", "localhost:6379")
	jobQueue := jobs.NewQueue(redisAddr)

	server := api.NewServer(api.Deps{
		Config:      cfg,
		DB:          conn,
		Artists:     artists,
		Albums:      albums,
		Tracks:      tracks,
		ScanState:   scanState,
		ScanSkipped: scanSkipped,
		Settings:    settings,
		Stats:       stats,
		ExpArtists:  expArtists,
		ExpAlbums:   expAlbums,
		ExpSettings: expSettings,
		ExpIgnored:  expIgnored,
		Wishlist:    wishlist,
		Scanner:     sc,
		Discography: disco,
		JobQueue:    jobQueue,
	})

	syncHandler := jobs.NewDiscographySyncHandler(disco, server.WSHub())
	jobs.RegisterHandlers(jobQueue, sc, syncHandler, server.WSHub())

	go func() {
		if err := jobQueue.Start(context.Background()); err != nil {
			log.Printf("job queue worker stopped: %v", err)
		}
	}()
	defer jobQueue.Stop()

	scanScheduler := scheduler.New(settings, func() {
		if _, err := jobQueue.EnqueueUnique(jobs.TaskScanLibrary, jobs.ScanPayload{Recursive: true, MaxDepth: scanner.DefaultMaxDepth}, "scan:full"); err != nil {
			log.Printf("[scheduler] enqueue scan error: %v", err)
		}
	})
	if err := scanScheduler.Start(); err != nil {
		log.Printf("scheduler failed to start: %v", err)
	}
	defer scanScheduler.Stop()

	fsWatcher, err := watcher.New(cfg.MusicDir, func() {
		if _, err := jobQueue.EnqueueUnique(jobs.TaskScanLibrary, jobs.ScanPayload{Recursive: true, MaxDepth: scanner.DefaultMaxDepth}, "scan:full"); err != nil {
			log.Printf("[watcher] enqueue scan error: %v", err)
		}
	})
	if err != nil {
		log.Printf("watcher failed to initialize: %v", err)
	} else {
		if err := fsWatcher.Start(); err != nil {
			log.Printf("watcher failed to start: %v", err)
		}
		defer fsWatcher.Stop()
	}

	log.Printf("crate listening on :%d", cfg.Port)
	if err := server.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
