package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/selfhosted/crate/internal/apperr"
	"github.com/selfhosted/crate/internal/config"
	"github.com/selfhosted/crate/internal/discography"
	"github.com/selfhosted/crate/internal/httputil"
	"github.com/selfhosted/crate/internal/jobs"
	"github.com/selfhosted/crate/internal/repository"
	"github.com/selfhosted/crate/internal/scanner"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteAppError(w, err)
}

func writeValidation(w http.ResponseWriter, message string) {
	httputil.WriteAppError(w, apperr.NewValidation(message))
}

// Server holds the dependency graph the HTTP layer reads from, grounded on
// the teacher's api.Server (server.go) but trimmed to the repositories and
// domain services this service's HTTP surface actually needs.
type Server struct {
	config      *config.Config
	db          *sql.DB
	artists     *repository.ArtistRepository
	albums      *repository.AlbumRepository
	tracks      *repository.TrackRepository
	scanState   *repository.ScanStateRepository
	scanSkipped *repository.ScanSkippedRepository
	settings    *repository.SettingsRepository
	stats       *repository.StatsRepository
	expArtists  *repository.ExpectedArtistRepository
	expAlbums   *repository.ExpectedAlbumRepository
	expSettings *repository.ExpectedArtistSettingsRepository
	expIgnored  *repository.ExpectedIgnoredRepository
	wishlist    *repository.WishlistRepository

	scanner     *scanner.Scanner
	discography *discography.Service
	jobQueue    *jobs.Queue
	wsHub       *WSHub

	router *http.ServeMux
}

// Deps bundles the already-constructed domain objects main() wires, so
// NewServer stays a plain assembly step rather than a second place that
// builds repositories.
type Deps struct {
	Config      *config.Config
	DB          *sql.DB
	Artists     *repository.ArtistRepository
	Albums      *repository.AlbumRepository
	Tracks      *repository.TrackRepository
	ScanState   *repository.ScanStateRepository
	ScanSkipped *repository.ScanSkippedRepository
	Settings    *repository.SettingsRepository
	Stats       *repository.StatsRepository
	ExpArtists  *repository.ExpectedArtistRepository
	ExpAlbums   *repository.ExpectedAlbumRepository
	ExpSettings *repository.ExpectedArtistSettingsRepository
	ExpIgnored  *repository.ExpectedIgnoredRepository
	Wishlist    *repository.WishlistRepository
	Scanner     *scanner.Scanner
	Discography *discography.Service
	JobQueue    *jobs.Queue
}

func NewServer(d Deps) *Server {
	s := &Server{
		config:      d.Config,
		db:          d.DB,
		artists:     d.Artists,
		albums:      d.Albums,
		tracks:      d.Tracks,
		scanState:   d.ScanState,
		scanSkipped: d.ScanSkipped,
		settings:    d.Settings,
		stats:       d.Stats,
		expArtists:  d.ExpArtists,
		expAlbums:   d.ExpAlbums,
		expSettings: d.ExpSettings,
		expIgnored:  d.ExpIgnored,
		wishlist:    d.Wishlist,
		scanner:     d.Scanner,
		discography: d.Discography,
		jobQueue:    d.JobQueue,
		wsHub:       NewWSHub(),
		router:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub               { return s.wsHub }
func (s *Server) Scanner() *scanner.Scanner    { return s.scanner }
func (s *Server) Discography() *discography.Service {
	return s.discography
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/ws", s.handleWebSocket)

	s.router.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.router.HandleFunc("PUT /api/settings", s.handlePutSettings)

	s.router.HandleFunc("GET /api/stats", s.handleStats)
	s.router.HandleFunc("GET /api/dashboard", s.handleDashboard)

	s.router.HandleFunc("POST /api/scan/start", s.handleScanStart)
	s.router.HandleFunc("POST /api/scan/cancel", s.handleScanCancel)
	s.router.HandleFunc("GET /api/scan/status", s.handleScanStatus)
	s.router.HandleFunc("GET /api/scan/skipped", s.handleScanSkipped)

	s.router.HandleFunc("GET /api/library/albums", s.handleListAlbums)
	s.router.HandleFunc("PUT /api/library/albums/{id}/owned", s.handleSetAlbumOwned)
	s.router.HandleFunc("GET /api/library/artists", s.handleListArtists)
	s.router.HandleFunc("GET /api/library/artists/{id}", s.handleGetArtist)
	s.router.HandleFunc("GET /api/artist/by-slug/{slug}", s.handleGetArtistBySlug)
	s.router.HandleFunc("GET /api/artist/{id}/overview", s.handleArtistOverview)

	s.router.HandleFunc("POST /api/expected/artist/{id}/sync", s.handleExpectedSync)
	s.router.HandleFunc("GET /api/expected/artist/{id}/summary", s.handleExpectedSummary)
	s.router.HandleFunc("POST /api/expected/artist/{id}/ignore", s.handleExpectedIgnore)
	s.router.HandleFunc("POST /api/expected/artist/{id}/unignore", s.handleExpectedUnignore)
	s.router.HandleFunc("POST /api/expected/artist/{id}/override", s.handlePostAlbumMatchOverride)
	s.router.HandleFunc("GET /api/expected/artist/{id}/settings", s.handleGetExpectedSettings)
	s.router.HandleFunc("POST /api/expected/artist/{id}/settings", s.handlePostExpectedSettings)

	s.router.HandleFunc("POST /api/wishlist", s.handlePostWishlist)
}

func (s *Server) Start() error {
	handler := s.securityHeadersMiddleware(s.corsMiddleware(s.router))
	return http.ListenAndServe(":"+strconv.Itoa(s.config.Port), handler)
}

// securityHeadersMiddleware adds standard security headers to all responses,
// kept from the teacher's Server.securityHeadersMiddleware verbatim in
// spirit since there is no domain reason to diverge.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware mirrors the teacher's permissive origin-echo policy, since
// this is a single-user local service with no cookie-based session to leak.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
