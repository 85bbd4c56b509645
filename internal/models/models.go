package models

import "time"

// ──────────────────── Artist ────────────────────

type Artist struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Deleted   bool      `json:"-" db:"deleted"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	LastSeen  time.Time `json:"-" db:"last_seen"`

	AlbumCount int `json:"albumCount,omitempty" db:"-"`
}

// ──────────────────── Album ────────────────────

// Album.Path is the virtual album path — a deterministic synthetic
// identity, never a real filesystem location.
type Album struct {
	ID            int64     `json:"id" db:"id"`
	ArtistID      int64     `json:"artistId" db:"artist_id"`
	Path          string    `json:"-" db:"path"`
	Title         string    `json:"title" db:"title"`
	Formats       []string  `json:"formats" db:"-"`
	FormatsRaw    string    `json:"-" db:"formats"`
	TrackCount    int       `json:"trackCount" db:"track_count"`
	LastFileMtime time.Time `json:"lastFileMtime" db:"last_file_mtime"`
	Owned         bool      `json:"owned" db:"owned"`
	Deleted       bool      `json:"-" db:"deleted"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
	LastSeen      time.Time `json:"-" db:"last_seen"`

	ArtistName string `json:"artistName,omitempty" db:"-"`
}

// ──────────────────── Track ────────────────────

type Track struct {
	ID        int64     `json:"id" db:"id"`
	AlbumID   int64     `json:"albumId" db:"album_id"`
	Path      string    `json:"path" db:"path"`
	Ext       string    `json:"ext" db:"ext"`
	Mtime     time.Time `json:"mtime" db:"mtime"`
	Deleted   bool      `json:"-" db:"deleted"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	LastSeen  time.Time `json:"-" db:"last_seen"`
}

// ──────────────────── FileIndex ────────────────────

// FileIndex caches tag extraction and filesystem identity so unchanged
// files skip re-parse on the next scan.
type FileIndex struct {
	Path           string    `json:"path" db:"path"`
	Mtime          time.Time `json:"mtime" db:"mtime"`
	Size           int64     `json:"size" db:"size"`
	InodeKey       string    `json:"inodeKey,omitempty" db:"inode_key"`
	FileHash       string    `json:"fileHash,omitempty" db:"file_hash"`
	TagAlbum       string    `json:"tagAlbum,omitempty" db:"tag_album"`
	TagAlbumArtist string    `json:"tagAlbumArtist,omitempty" db:"tag_album_artist"`
	TagArtist      string    `json:"tagArtist,omitempty" db:"tag_artist"`
	TagTitle       string    `json:"tagTitle,omitempty" db:"tag_title"`
	TagYear        string    `json:"tagYear,omitempty" db:"tag_year"`
	LastScanAt     time.Time `json:"-" db:"last_scan_at"`
}

// ──────────────────── ScanSkipped ────────────────────

type ScanSkipped struct {
	ScanStartedAt time.Time `json:"scanStartedAt" db:"scan_started_at"`
	FilePath      string    `json:"filePath" db:"file_path"`
	Reason        string    `json:"reason" db:"reason"`
}

// ──────────────────── ScanState ────────────────────

type ScanStatusValue string

const (
	ScanStatusIdle      ScanStatusValue = "idle"
	ScanStatusRunning   ScanStatusValue = "running"
	ScanStatusCancelled ScanStatusValue = "cancelled"
	ScanStatusError     ScanStatusValue = "error"
)

// ScanState is the singleton (id=1) row tracking the progress of the
// current or most recent scan.
type ScanState struct {
	ID                int             `json:"-" db:"id"`
	Status            ScanStatusValue `json:"status" db:"status"`
	StartedAt         *time.Time      `json:"startedAt,omitempty" db:"started_at"`
	FinishedAt        *time.Time      `json:"finishedAt,omitempty" db:"finished_at"`
	CurrentPath       string          `json:"currentPath,omitempty" db:"current_path"`
	ScannedFiles      int             `json:"scannedFiles" db:"scanned_files"`
	SkippedFiles      int             `json:"skippedFiles" db:"skipped_files"`
	ArtistsSeen       int             `json:"artistsSeen" db:"artists_seen"`
	AlbumsSeen        int             `json:"albumsSeen" db:"albums_seen"`
	ErrorMessage      string          `json:"errorMessage,omitempty" db:"error_message"`
	SkippedReasonsRaw string          `json:"-" db:"skipped_reasons_json"`
}

// ──────────────────── Expected (discography) ────────────────────

type ExpectedArtist struct {
	ID        int64     `json:"id" db:"id"`
	ArtistID  int64     `json:"artistId" db:"artist_id"`
	MBID      string    `json:"mbid" db:"mbid"`
	Name      string    `json:"name" db:"name"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type ExpectedAlbum struct {
	ID                int64     `json:"id" db:"id"`
	ExpectedArtistID  int64     `json:"expectedArtistId" db:"expected_artist_id"`
	MBReleaseGroupID  string    `json:"mbReleaseGroupId,omitempty" db:"mb_release_group_id"`
	Title             string    `json:"title" db:"title"`
	NormalizedTitle   string    `json:"normalizedTitle" db:"normalized_title"`
	PrimaryType       string    `json:"primaryType" db:"primary_type"`
	SecondaryTypesRaw string    `json:"-" db:"secondary_types"`
	SecondaryTypes    []string  `json:"secondaryTypes" db:"-"`
	Year              *int      `json:"year" db:"year"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

type ExpectedIgnored struct {
	ArtistID        int64 `db:"artist_id"`
	ExpectedAlbumID int64 `db:"expected_album_id"`
}

type ExpectedArtistSettings struct {
	ArtistID            int64 `json:"artistId" db:"artist_id"`
	IncludeLive         bool  `json:"includeLive" db:"include_live"`
	IncludeCompilations bool  `json:"includeCompilations" db:"include_compilations"`
}

type AlbumMatchOverride struct {
	ExpectedAlbumID int64 `db:"expected_album_id"`
	OwnedAlbumID    int64 `db:"owned_album_id"`
}

type WishlistStatus string

const (
	WishlistWanted WishlistStatus = "wanted"
)

type WishlistAlbum struct {
	ID              int64          `json:"id" db:"id"`
	ExpectedAlbumID *int64         `json:"expectedAlbumId,omitempty" db:"expected_album_id"`
	ArtistID        *int64         `json:"artistId,omitempty" db:"artist_id"`
	Title           string         `json:"title,omitempty" db:"title"`
	Year            *int           `json:"year,omitempty" db:"year"`
	Source          string         `json:"source,omitempty" db:"source"`
	Status          WishlistStatus `json:"status" db:"status"`
	CreatedAt       time.Time      `json:"createdAt" db:"created_at"`
}

// ──────────────────── Settings ────────────────────

// Settings is the singleton application settings row.
type Settings struct {
	DataDir    string `json:"dataDir" db:"data_dir"`
	LibraryDir string `json:"libraryDir" db:"library_dir"`
}

// ──────────────────── Discography summary ────────────────────

// Summary is the computed owned/expected/missing view for one artist's
// discography.
type Summary struct {
	Artist               *Artist                 `json:"artist"`
	Settings             *ExpectedArtistSettings `json:"settings"`
	OwnedCount           int                     `json:"ownedCount"`
	ExpectedCount        int                     `json:"expectedCount"`
	MissingCount         int                     `json:"missingCount"`
	IgnoredCount         int                     `json:"ignoredCount"`
	CompletionPct        *int                    `json:"completionPct"`
	MissingAlbums        []*ExpectedAlbum        `json:"missingAlbums"`
	MatchedOwnedCount    int                     `json:"matchedOwnedCount"`
	MatchedOwnedAlbums   []*Album                `json:"matchedOwnedAlbums"`
	UnmatchedOwnedAlbums []*Album                `json:"unmatchedOwnedAlbums"`
}
